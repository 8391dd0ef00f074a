package metadata_test

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"themesubmit/internal/metadata"
)

func container(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestExtractFindsObjectInsideBinary(t *testing.T) {
	payload := []byte(`{"name":"Night Sky","author":"ana","version":"1.2.0","description":"Dark {blue} theme","colors":{"bg":"#001"}}`)
	data := container(
		[]byte{0x53, 0x54, 0x59, 0x4c, 0x00, 0x01, 0x7b, 0xff, 0x22, 0x00},
		payload,
		[]byte{0x00, 0x7d, 0x7d, 0x10},
	)

	meta, err := metadata.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := &metadata.Metadata{
		Name:        "Night Sky",
		Author:      "ana",
		Version:     "1.2.0",
		Description: "Dark {blue} theme",
		Extra:       map[string]any{"colors": map[string]any{"bg": "#001"}},
		Offset:      10,
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Fatalf("unexpected metadata (-want +got):\n%s", diff)
	}
}

func TestExtractHonoursEscapedQuotes(t *testing.T) {
	data := []byte(`xx{"name":"Quote \"}\" Pack","author":"b"}yy`)
	meta, err := metadata.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Name != `Quote "}" Pack` {
		t.Fatalf("unexpected name %q", meta.Name)
	}
}

func TestExtractSkipsUnrecognizedAndInvalidCandidates(t *testing.T) {
	data := container(
		[]byte(`{not json}`),
		[]byte(`{"width":10}`),
		[]byte{0x00},
		[]byte(`{"title":"Shelf","creator":"cy","version":2}`),
	)
	meta, err := metadata.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Name != "Shelf" || meta.Author != "cy" || meta.Version != "2" {
		t.Fatalf("unexpected aliases: %+v", meta)
	}
}

func TestExtractNameOutranksTitle(t *testing.T) {
	meta, err := metadata.Extract([]byte(`{"title":"T","name":"N","author":"","creator":"C"}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Name != "N" {
		t.Fatalf("expected name to outrank title, got %q", meta.Name)
	}
	if meta.Author != "C" {
		t.Fatalf("expected creator to fill empty author, got %q", meta.Author)
	}
}

func TestExtractDescendsIntoNestedObject(t *testing.T) {
	data := []byte(`{"header":{"id":"retro-shelf","name":"Retro Shelf"},"size":4}`)
	meta, err := metadata.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.ID != "retro-shelf" {
		t.Fatalf("expected nested id, got %+v", meta)
	}
	if meta.Offset != strings.Index(string(data), `{"id"`) {
		t.Fatalf("unexpected offset %d", meta.Offset)
	}
}

func TestExtractRecoversFromUnbalancedPrefix(t *testing.T) {
	data := container([]byte("PK\x03\x04{{{"), []byte(`{"name":"After Junk"}`))
	meta, err := metadata.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Name != "After Junk" {
		t.Fatalf("unexpected name %q", meta.Name)
	}
}

func TestExtractRejectsOversizedObject(t *testing.T) {
	big := `{"name":"big","pad":"` + strings.Repeat("a", metadata.MaxObjectBytes) + `"}`
	if _, err := metadata.Extract([]byte(big)); !errors.Is(err, metadata.ErrNoMetadata) {
		t.Fatalf("expected ErrNoMetadata for oversized object, got %v", err)
	}
}

func TestExtractFindsObjectAfterUnbalancedNoise(t *testing.T) {
	tests := map[string]int{
		"just over the object limit": metadata.MaxObjectBytes + 1,
		"two mebibytes":              2 << 20,
	}
	for name, size := range tests {
		t.Run(name, func(t *testing.T) {
			data := container(bytes.Repeat([]byte("{"), size), []byte(`{"name":"Buried"}`))

			start := time.Now()
			meta, err := metadata.Extract(data)
			elapsed := time.Since(start)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if meta.Name != "Buried" || meta.Offset != size {
				t.Fatalf("unexpected metadata %+v", meta)
			}
			if elapsed > 5*time.Second {
				t.Fatalf("extract over %d bytes took %v", len(data), elapsed)
			}
		})
	}
}

func TestExtractNestedInvalidCandidatesStayLinear(t *testing.T) {
	const depth = 4000
	block := container(
		bytes.Repeat([]byte(`{"name":`), depth),
		[]byte("!"),
		bytes.Repeat([]byte("}"), depth),
	)
	data := container(bytes.Repeat(block, 64), []byte(`{"author":"Last"}`))

	start := time.Now()
	meta, err := metadata.Extract(data)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Author != "Last" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("extract over %d bytes took %v", len(data), elapsed)
	}
}

func TestExtractPrefersEarliestOpeningBrace(t *testing.T) {
	data := []byte(`{"name":"Outer","inner":{"name":"Inner"}}`)
	meta, err := metadata.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Name != "Outer" || meta.Offset != 0 {
		t.Fatalf("expected the enclosing object, got %+v", meta)
	}
}

func TestExtractEscapedKeyStillRecognized(t *testing.T) {
	meta, err := metadata.Extract([]byte(`junk{"n\u0061me":"Escaped"}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Name != "Escaped" {
		t.Fatalf("unexpected name %q", meta.Name)
	}
}

func TestExtractNoMetadata(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("plain"), []byte("}{"), []byte(`{"a":1}`)} {
		if _, err := metadata.Extract(data); !errors.Is(err, metadata.ErrNoMetadata) {
			t.Fatalf("Extract(%q): expected ErrNoMetadata, got %v", data, err)
		}
	}
}

func TestExtractFileHonoursLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.style")
	content := append(bytes.Repeat([]byte{0}, 32), []byte(`{"name":"Late"}`)...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := metadata.ExtractFile(path, 16); !errors.Is(err, metadata.ErrNoMetadata) {
		t.Fatalf("expected limit to hide metadata, got %v", err)
	}
	meta, err := metadata.ExtractFile(path, 0)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if meta.Name != "Late" {
		t.Fatalf("unexpected name %q", meta.Name)
	}
}

func TestImageInfo(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 36))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	info, err := metadata.ImageInfo(buf.Bytes())
	if err != nil {
		t.Fatalf("ImageInfo: %v", err)
	}
	if info != (metadata.Image{Format: "png", Width: 64, Height: 36}) {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := metadata.ImageInfo([]byte("not an image")); err == nil {
		t.Fatal("expected error for non-image data")
	}
}

func TestNameFromFilename(t *testing.T) {
	tests := map[string]string{
		"/tmp/night_sky-v2.png": "Night Sky V2",
		"retro..shelf.cfb":      "Retro Shelf",
		"___.png":               "",
		"émeraude.jpg":          "Émeraude",
	}
	for input, want := range tests {
		if got := metadata.NameFromFilename(input); got != want {
			t.Fatalf("NameFromFilename(%q) = %q, want %q", input, got, want)
		}
	}
}
