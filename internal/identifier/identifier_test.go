package identifier_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"themesubmit/internal/identifier"
	"themesubmit/internal/manifest"
	"themesubmit/internal/metadata"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Night Sky", "night-sky"},
		{"  --Émeraude  Crème!! ", "emeraude-creme"},
		{"Ｆｕｌｌ Width", "full-width"},
		{"v2.0_final", "v2-0-final"},
		{"日本語", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := identifier.Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugCapsLengthWithoutTrailingDash(t *testing.T) {
	in := strings.Repeat("a", identifier.MaxLength-1) + " bcd"
	got := identifier.Slug(in)
	if len(got) > identifier.MaxLength {
		t.Fatalf("slug too long: %d", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Fatalf("slug must not end with dash: %q", got)
	}
	if got != strings.Repeat("a", identifier.MaxLength-1) {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestDerivePrefersExplicitID(t *testing.T) {
	id, err := identifier.Derive(&metadata.Metadata{ID: "Retro_Shelf", Name: "Something Else"}, "Fallback")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if id != "retro-shelf" {
		t.Fatalf("unexpected id %q", id)
	}

	id, err = identifier.Derive(&metadata.Metadata{Name: "Night Sky"}, "Fallback")
	if err != nil || id != "night-sky" {
		t.Fatalf("expected name-derived id, got %q, %v", id, err)
	}

	id, err = identifier.Derive(&metadata.Metadata{ID: "日本"}, "Dunes")
	if err != nil || id != "dunes" {
		t.Fatalf("expected fallback when id slugs to empty, got %q, %v", id, err)
	}

	id, err = identifier.Derive(nil, "Aurora Borealis")
	if err != nil || id != "aurora-borealis" {
		t.Fatalf("expected fallback id, got %q, %v", id, err)
	}

	if _, err := identifier.Derive(nil, "!!!"); !errors.Is(err, identifier.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

type fakeQueue map[string]int64

func (f fakeQueue) FindQueued(_ context.Context, kind, id string) (int64, error) {
	return f[kind+"/"+id], nil
}

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Styles: []manifest.Entry{{ID: "night-sky", Author: "Ana"}},
	}
}

func TestCheckerManifestDuplicate(t *testing.T) {
	checker := identifier.Checker{Manifest: testManifest()}
	err := checker.Check(context.Background(), identifier.Request{Kind: "style", Identifier: "night-sky", Author: "bo"})
	if !errors.Is(err, identifier.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	var dup *identifier.DuplicateError
	if !errors.As(err, &dup) || dup.Source != identifier.SourceManifest || dup.Author != "Ana" {
		t.Fatalf("unexpected duplicate detail %#v", dup)
	}

	if err := checker.Check(context.Background(), identifier.Request{Kind: "coverflow", Identifier: "night-sky"}); err != nil {
		t.Fatalf("other kinds must not collide: %v", err)
	}
}

func TestCheckerUpdatePolicy(t *testing.T) {
	ctx := context.Background()
	req := identifier.Request{Kind: "style", Identifier: "night-sky", Author: "ana", Update: true}

	disabled := identifier.Checker{Manifest: testManifest()}
	if err := disabled.Check(ctx, req); !errors.Is(err, identifier.ErrDuplicate) {
		t.Fatalf("expected refusal when updates disabled, got %v", err)
	}

	enabled := identifier.Checker{Manifest: testManifest(), AllowUpdates: true}
	if err := enabled.Check(ctx, req); err != nil {
		t.Fatalf("expected update by same author to pass, got %v", err)
	}

	other := req
	other.Author = "mallory"
	if err := enabled.Check(ctx, other); !errors.Is(err, identifier.ErrDuplicate) {
		t.Fatalf("expected refusal for different author, got %v", err)
	}

	missing := req
	missing.Identifier = "unknown"
	var target *identifier.UpdateTargetMissingError
	if err := enabled.Check(ctx, missing); !errors.As(err, &target) {
		t.Fatalf("expected missing update target, got %v", err)
	}
}

func TestCheckerQueueDuplicate(t *testing.T) {
	checker := identifier.Checker{Manifest: testManifest(), Queue: fakeQueue{"background/dunes": 4}}
	err := checker.Check(context.Background(), identifier.Request{Kind: "background", Identifier: "dunes"})
	var dup *identifier.DuplicateError
	if !errors.As(err, &dup) || dup.Source != identifier.SourceQueue || dup.QueueID != 4 {
		t.Fatalf("expected queue duplicate, got %v", err)
	}

	err = checker.Check(context.Background(), identifier.Request{Kind: "background", Identifier: "dunes", IgnoreQueueID: 4})
	if err != nil {
		t.Fatalf("expected own queue entry to be ignored, got %v", err)
	}
}

func TestDuplicateErrorWithoutQueueID(t *testing.T) {
	err := &identifier.DuplicateError{Kind: "background", Identifier: "dunes", Source: identifier.SourceQueue}
	if got := err.Error(); got != `background "dunes" is already queued` {
		t.Fatalf("unexpected message %q", got)
	}
	err.QueueID = 3
	if got := err.Error(); got != `background "dunes" is already queued as item #3` {
		t.Fatalf("unexpected message %q", got)
	}
}
