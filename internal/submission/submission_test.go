package submission_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"themesubmit/internal/config"
	"themesubmit/internal/content"
	"themesubmit/internal/github"
	"themesubmit/internal/identifier"
	"themesubmit/internal/manifest"
	"themesubmit/internal/queue"
	"themesubmit/internal/submission"
	"themesubmit/internal/testsupport"
)

const upstreamPath = "/repos/example-org/community-themes"

type putCall struct {
	Repo    string
	Path    string
	Branch  string
	Message string
	Content string
	SHA     string
}

type fakeGitHub struct {
	t *testing.T

	mu        sync.Mutex
	login     string
	manifest  string
	failPut   bool
	calls     []string
	branchRef string
	branchOn  string
	puts      []putCall
	pr        github.NewPullRequest
}

func (f *fakeGitHub) setManifest(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifest = body
}

func (f *fakeGitHub) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if r.URL.Path != "/manifest.json" {
		f.calls = append(f.calls, key)
	}
	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case key == "GET /manifest.json":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.manifest))
	case key == "GET /user":
		reply(http.StatusOK, map[string]string{"login": f.login})
	case key == "POST "+upstreamPath+"/forks":
		reply(http.StatusAccepted, map[string]any{
			"name":  "community-themes",
			"owner": map[string]string{"login": f.login},
			"fork":  true,
		})
	case key == "GET "+upstreamPath+"/git/ref/heads/main":
		reply(http.StatusOK, map[string]any{"object": map[string]string{"sha": "base-sha"}})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/git/refs"):
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.branchRef = body["ref"]
		f.branchOn = strings.TrimSuffix(r.URL.Path, "/git/refs")
		if body["sha"] != "base-sha" {
			f.t.Errorf("branch created from %q", body["sha"])
		}
		reply(http.StatusCreated, map[string]string{"ref": body["ref"]})
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/contents/"):
		reply(http.StatusOK, map[string]string{"type": "file", "sha": "existing-sha"})
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/contents/"):
		if f.failPut {
			reply(http.StatusInternalServerError, map[string]string{"message": "boom"})
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		decoded, err := base64.StdEncoding.DecodeString(body["content"])
		if err != nil {
			f.t.Errorf("content is not base64: %v", err)
		}
		repo, path, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/repos/"), "/contents/")
		f.puts = append(f.puts, putCall{
			Repo:    repo,
			Path:    path,
			Branch:  body["branch"],
			Message: body["message"],
			Content: string(decoded),
			SHA:     body["sha"],
		})
		reply(http.StatusCreated, map[string]any{"commit": map[string]string{"sha": "c"}})
	case key == "POST "+upstreamPath+"/pulls":
		_ = json.NewDecoder(r.Body).Decode(&f.pr)
		reply(http.StatusCreated, map[string]any{
			"number":   7,
			"html_url": "https://github.example/example-org/community-themes/pull/7",
			"state":    "open",
		})
	default:
		f.t.Errorf("unexpected request %s", key)
		reply(http.StatusNotFound, map[string]string{"message": "Not Found"})
	}
}

type harness struct {
	cfg       *config.Config
	store     *queue.Store
	fake      *fakeGitHub
	submitter *submission.Submitter
}

func newHarness(t *testing.T, login string, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	fake := &fakeGitHub{t: t, login: login, manifest: `{"backgrounds":[],"styles":[],"coverflow":[]}`}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	opts = append([]testsupport.ConfigOption{testsupport.WithGitHubAPI(server.URL, server.URL+"/manifest.json")}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)

	gh, err := github.New(cfg.GitHub.APIURL, github.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("github.New: %v", err)
	}
	fetcher, err := manifest.New(cfg.ManifestURL(), manifest.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}
	clock := func() time.Time { return time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC) }
	sub, err := submission.New(cfg, store, fetcher, submission.WithGitHub(gh), submission.WithClock(clock))
	if err != nil {
		t.Fatalf("submission.New: %v", err)
	}
	return &harness{cfg: cfg, store: store, fake: fake, submitter: sub}
}

func styleForm(t *testing.T) *content.Form {
	t.Helper()
	return &content.Form{
		Kind: content.KindStyle,
		File: content.Attachment{
			Name: "night.style",
			Data: testsupport.StyleFile(`{"id":"Night_Sky","name":"Night Sky","author":"Ana","version":"1.0","description":"Dark"}`),
		},
		Preview: &content.Attachment{Name: "shot.png", Data: testsupport.PNG(t, 8, 8)},
	}
}

func backgroundForm(t *testing.T) *content.Form {
	t.Helper()
	return &content.Form{
		Kind:   content.KindBackground,
		File:   content.Attachment{Name: "golden-dunes.png", Data: testsupport.PNG(t, 64, 32)},
		Author: "bo",
	}
}

func TestPrepareQueuesStyleFromMetadata(t *testing.T) {
	h := newHarness(t, "octo")
	ctx := context.Background()

	item, err := h.submitter.Prepare(ctx, styleForm(t))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if item.Identifier != "night-sky" || item.Name != "Night Sky" || item.Author != "Ana" || item.Version != "1.0.0" {
		t.Fatalf("unexpected item %+v", item)
	}
	var paths []string
	for _, file := range item.Files {
		paths = append(paths, file.RepoPath)
	}
	want := []string{"styles/night-sky/night-sky.style", "styles/night-sky/preview.png"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	_, err = h.submitter.Prepare(ctx, styleForm(t))
	var dup *identifier.DuplicateError
	if !errors.As(err, &dup) || dup.Source != identifier.SourceQueue || dup.QueueID != item.ID {
		t.Fatalf("expected queue duplicate, got %v", err)
	}
}

func TestPrepareRejectsManifestDuplicate(t *testing.T) {
	h := newHarness(t, "octo")
	h.fake.setManifest(`{"backgrounds":[{"id":"golden-dunes","name":"Golden Dunes","author":"someone"}]}`)

	_, err := h.submitter.Prepare(context.Background(), backgroundForm(t))
	if !errors.Is(err, identifier.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	queued, _ := h.store.Queued(context.Background())
	if len(queued) != 0 {
		t.Fatal("duplicate must not be queued")
	}
}

func TestPrepareReportsValidationErrors(t *testing.T) {
	h := newHarness(t, "octo", testsupport.WithMinBackgroundSize(1920, 1080))
	_, err := h.submitter.Prepare(context.Background(), backgroundForm(t))
	var verr *content.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInspectReportsProblemWithoutQueueing(t *testing.T) {
	h := newHarness(t, "octo")
	h.fake.setManifest(`{"styles":[{"id":"night-sky","author":"Ana"}]}`)

	result, err := h.submitter.Inspect(context.Background(), styleForm(t))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.Identifier != "night-sky" || result.Metadata == nil || result.Metadata.Name != "Night Sky" {
		t.Fatalf("unexpected inspection %+v", result)
	}
	if !errors.Is(result.Problem, identifier.ErrDuplicate) {
		t.Fatalf("expected duplicate problem, got %v", result.Problem)
	}
}

var branchPattern = regexp.MustCompile(`^submit/octo-20261019123000-[0-9a-f]{8}$`)

func TestSubmitThroughFork(t *testing.T) {
	h := newHarness(t, "octo")
	ctx := context.Background()

	style, err := h.submitter.Prepare(ctx, styleForm(t))
	if err != nil {
		t.Fatalf("Prepare style: %v", err)
	}
	background, err := h.submitter.Prepare(ctx, backgroundForm(t))
	if err != nil {
		t.Fatalf("Prepare background: %v", err)
	}

	result, err := h.submitter.Submit(ctx, submission.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.PullRequest == nil || result.PullRequest.Number != 7 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !branchPattern.MatchString(result.Plan.Branch) {
		t.Fatalf("unexpected branch name %q", result.Plan.Branch)
	}

	calls := h.fake.callLog()
	wantCalls := []string{
		"POST " + upstreamPath + "/forks",
		"GET " + upstreamPath + "/git/ref/heads/main",
		"POST /repos/octo/community-themes/git/refs",
		"PUT /repos/octo/community-themes/contents/styles/night-sky/night-sky.style",
		"PUT /repos/octo/community-themes/contents/styles/night-sky/preview.png",
		"PUT /repos/octo/community-themes/contents/backgrounds/golden-dunes.png",
		"POST " + upstreamPath + "/pulls",
	}
	// The user lookup runs concurrently with the manifest fetch and precedes everything else.
	if len(calls) == 0 || calls[0] != "GET /user" {
		t.Fatalf("expected user lookup first, got %v", calls)
	}
	if diff := cmp.Diff(wantCalls, calls[1:]); diff != "" {
		t.Fatalf("call sequence mismatch (-want +got):\n%s", diff)
	}

	if h.fake.branchRef != "refs/heads/"+result.Plan.Branch {
		t.Fatalf("unexpected branch ref %q", h.fake.branchRef)
	}
	for _, put := range h.fake.puts {
		if put.Branch != result.Plan.Branch || put.SHA != "" {
			t.Fatalf("unexpected put %+v", put)
		}
	}
	if h.fake.puts[0].Message != "Add style Night Sky" || h.fake.puts[2].Message != "Add background Golden Dunes" {
		t.Fatalf("unexpected commit messages %+v", h.fake.puts)
	}
	if !strings.Contains(h.fake.puts[0].Content, `"id":"Night_Sky"`) {
		t.Fatalf("style bytes not committed verbatim: %q", h.fake.puts[0].Content)
	}

	pr := h.fake.pr
	if pr.Title != "Add 2 community submissions" || pr.Base != "main" || pr.Head != "octo:"+result.Plan.Branch || !pr.MaintainerCanModify {
		t.Fatalf("unexpected pull request %+v", pr)
	}
	for _, want := range []string{"| night-sky |", "| golden-dunes |", "`styles/night-sky/preview.png`", "**Night Sky**: Dark"} {
		if !strings.Contains(pr.Body, want) {
			t.Fatalf("pull request body missing %q:\n%s", want, pr.Body)
		}
	}

	for _, id := range []int64{style.ID, background.ID} {
		item, err := h.store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item.Status != queue.StatusSubmitted || item.PRURL != "https://github.example/example-org/community-themes/pull/7" {
			t.Fatalf("item not marked submitted: %+v", item)
		}
	}
}

func TestSubmitAsRepositoryOwnerSkipsFork(t *testing.T) {
	h := newHarness(t, "example-org")
	ctx := context.Background()
	if _, err := h.submitter.Prepare(ctx, backgroundForm(t)); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	result, err := h.submitter.Submit(ctx, submission.Options{Title: "Custom title"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Plan.Fork {
		t.Fatal("owner should not fork")
	}
	for _, call := range h.fake.callLog() {
		if strings.HasSuffix(call, "/forks") {
			t.Fatalf("unexpected fork call: %v", h.fake.callLog())
		}
	}
	if h.fake.branchOn != upstreamPath {
		t.Fatalf("branch created on %q", h.fake.branchOn)
	}
	if h.fake.pr.Title != "Custom title" || h.fake.pr.Head != "example-org:"+result.Plan.Branch {
		t.Fatalf("unexpected pull request %+v", h.fake.pr)
	}
}

func TestSubmitFailureRecordsErrorAndKeepsQueue(t *testing.T) {
	h := newHarness(t, "octo")
	ctx := context.Background()
	item, err := h.submitter.Prepare(ctx, backgroundForm(t))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h.fake.mu.Lock()
	h.fake.failPut = true
	h.fake.mu.Unlock()

	_, err = h.submitter.Submit(ctx, submission.Options{})
	var stepErr *submission.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != submission.StepCommit || stepErr.Path != "backgrounds/golden-dunes.png" {
		t.Fatalf("expected commit step error, got %v", err)
	}
	var apiErr *github.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	for _, call := range h.fake.callLog() {
		if strings.HasSuffix(call, "/pulls") {
			t.Fatal("pull request must not be opened after a failed commit")
		}
	}

	got, err := h.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusQueued || !strings.Contains(got.ErrorMessage, "boom") {
		t.Fatalf("expected queued item with recorded error, got %+v", got)
	}
}

func TestSubmitDryRunMakesNoChanges(t *testing.T) {
	h := newHarness(t, "octo")
	ctx := context.Background()
	if _, err := h.submitter.Prepare(ctx, styleForm(t)); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	result, err := h.submitter.Submit(ctx, submission.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.DryRun || result.PullRequest != nil {
		t.Fatalf("unexpected dry-run result %+v", result)
	}
	if diff := cmp.Diff([]string{"GET /user"}, h.fake.callLog()); diff != "" {
		t.Fatalf("dry run made calls (-want +got):\n%s", diff)
	}
	if result.Plan.Title != "Add style: Night Sky" || len(result.Plan.Files) != 2 || result.Plan.Head() != "octo:"+result.Plan.Branch {
		t.Fatalf("unexpected plan %+v", result.Plan)
	}
	queued, _ := h.store.Queued(ctx)
	if len(queued) != 1 {
		t.Fatal("dry run must keep the queue")
	}
}

func TestSubmitUpdateReplacesExistingFiles(t *testing.T) {
	h := newHarness(t, "octo", testsupport.WithAllowUpdates())
	h.fake.setManifest(`{"styles":[{"id":"night-sky","name":"Night Sky","author":"ana"}]}`)
	ctx := context.Background()

	form := styleForm(t)
	form.Update = true
	form.Preview = nil
	if _, err := h.submitter.Prepare(ctx, form); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	result, err := h.submitter.Submit(ctx, submission.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(h.fake.puts) != 1 || h.fake.puts[0].SHA != "existing-sha" || h.fake.puts[0].Message != "Update style Night Sky" {
		t.Fatalf("expected replacement commit, got %+v", h.fake.puts)
	}
	if result.Plan.Title != "Update style: Night Sky" {
		t.Fatalf("unexpected title %q", result.Plan.Title)
	}
}

func TestSubmitRechecksManifest(t *testing.T) {
	h := newHarness(t, "octo")
	ctx := context.Background()
	item, err := h.submitter.Prepare(ctx, backgroundForm(t))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h.fake.setManifest(`{"backgrounds":[{"id":"golden-dunes","author":"someone"}]}`)

	if _, err := h.submitter.Submit(ctx, submission.Options{}); !errors.Is(err, identifier.ErrDuplicate) {
		t.Fatalf("expected duplicate on recheck, got %v", err)
	}
	got, _ := h.store.GetByID(ctx, item.ID)
	if got.Status != queue.StatusQueued || got.ErrorMessage == "" {
		t.Fatalf("expected recorded duplicate, got %+v", got)
	}
	if diff := cmp.Diff([]string{"GET /user"}, h.fake.callLog()); diff != "" {
		t.Fatalf("no mutating calls expected (-want +got):\n%s", diff)
	}
}

func TestSubmitDryRunLeavesRecheckErrorsUnrecorded(t *testing.T) {
	h := newHarness(t, "octo")
	ctx := context.Background()
	item, err := h.submitter.Prepare(ctx, backgroundForm(t))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h.fake.setManifest(`{"backgrounds":[{"id":"golden-dunes","author":"someone"}]}`)

	if _, err := h.submitter.Submit(ctx, submission.Options{DryRun: true}); !errors.Is(err, identifier.ErrDuplicate) {
		t.Fatalf("expected duplicate on dry run, got %v", err)
	}
	got, err := h.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusQueued || got.ErrorMessage != "" {
		t.Fatalf("dry run must not write to the queue, got %+v", got)
	}
}

func TestSubmitEmptyQueue(t *testing.T) {
	h := newHarness(t, "octo")
	if _, err := h.submitter.Submit(context.Background(), submission.Options{}); !errors.Is(err, submission.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestSubmitBusy(t *testing.T) {
	h := newHarness(t, "octo")
	if err := h.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(h.cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: %v %v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	if _, err := h.submitter.Submit(context.Background(), submission.Options{}); !errors.Is(err, submission.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSubmitRequiresGitHub(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fetcher, err := manifest.New("https://example.test/manifest.json")
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}
	sub, err := submission.New(cfg, store, fetcher)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sub.Submit(context.Background(), submission.Options{}); !errors.Is(err, submission.ErrNoGitHub) {
		t.Fatalf("expected ErrNoGitHub, got %v", err)
	}
}
