package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"themesubmit/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	t.Setenv("THEMESUBMIT_REPOSITORY", "acme/themes")
	t.Setenv("THEMESUBMIT_CLIENT_ID", "client-123")
	t.Setenv("THEMESUBMIT_CLIENT_SECRET", " secret ")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Repository.Owner != "acme" || cfg.Repository.Name != "themes" {
		t.Fatalf("unexpected repository: %+v", cfg.Repository)
	}
	if cfg.Repository.BaseBranch != "main" {
		t.Fatalf("unexpected base branch: %q", cfg.Repository.BaseBranch)
	}
	if cfg.GitHub.ClientID != "client-123" {
		t.Fatalf("expected client id from env, got %q", cfg.GitHub.ClientID)
	}
	if cfg.GitHub.ClientSecret != "secret" {
		t.Fatalf("expected trimmed client secret from env, got %q", cfg.GitHub.ClientSecret)
	}
	if err := cfg.ValidateOAuth(); err != nil {
		t.Fatalf("ValidateOAuth: %v", err)
	}

	wantState := filepath.Join(tempHome, ".local", "share", "themesubmit")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.TokenPath() != filepath.Join(wantState, "token.json") {
		t.Fatalf("unexpected token path: %q", cfg.TokenPath())
	}
	if cfg.QueuePath() != filepath.Join(wantState, "queue.db") {
		t.Fatalf("unexpected queue path: %q", cfg.QueuePath())
	}
	if got := cfg.ManifestURL(); got != "https://raw.githubusercontent.com/acme/themes/main/manifest.json" {
		t.Fatalf("unexpected derived manifest url: %q", got)
	}
	if len(cfg.GitHub.Scopes) != 1 || cfg.GitHub.Scopes[0] != "public_repo" {
		t.Fatalf("unexpected default scopes: %v", cfg.GitHub.Scopes)
	}
	if cfg.Submission.MaxFileBytes != config.Default().Submission.MaxFileBytes {
		t.Fatalf("unexpected max file bytes: %d", cfg.Submission.MaxFileBytes)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "themesubmit.toml")

	type payload struct {
		Repository struct {
			Owner       string `toml:"owner"`
			Name        string `toml:"name"`
			BaseBranch  string `toml:"base_branch"`
			ManifestURL string `toml:"manifest_url"`
		} `toml:"repository"`
		GitHub struct {
			APIURL string   `toml:"api_url"`
			Scopes []string `toml:"scopes"`
		} `toml:"github"`
		Submission struct {
			BranchPrefix string `toml:"branch_prefix"`
			AllowUpdates bool   `toml:"allow_updates"`
		} `toml:"submission"`
	}
	custom := payload{}
	custom.Repository.Owner = "community"
	custom.Repository.Name = "assets"
	custom.Repository.BaseBranch = "develop"
	custom.Repository.ManifestURL = "https://example.com/index.yaml"
	custom.GitHub.APIURL = "https://ghe.example.com/api/v3/"
	custom.GitHub.Scopes = []string{"repo", " repo ", ""}
	custom.Submission.BranchPrefix = "/contrib/"
	custom.Submission.AllowUpdates = true
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.RepositorySlug() != "community/assets" {
		t.Fatalf("unexpected slug %q", cfg.RepositorySlug())
	}
	if cfg.ManifestURL() != "https://example.com/index.yaml" {
		t.Fatalf("expected manifest url override, got %q", cfg.ManifestURL())
	}
	if cfg.GitHub.APIURL != "https://ghe.example.com/api/v3" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.GitHub.APIURL)
	}
	if len(cfg.GitHub.Scopes) != 1 || cfg.GitHub.Scopes[0] != "repo" {
		t.Fatalf("expected deduplicated scopes, got %v", cfg.GitHub.Scopes)
	}
	if cfg.Submission.BranchPrefix != "contrib" {
		t.Fatalf("expected trimmed branch prefix, got %q", cfg.Submission.BranchPrefix)
	}
	if !cfg.Submission.AllowUpdates {
		t.Fatal("expected allow_updates to be true")
	}
}

func TestLoadRequiresRepository(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("THEMESUBMIT_REPOSITORY", "")

	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error when repository owner missing")
	}
	if !strings.Contains(err.Error(), "repository.owner") {
		t.Fatalf("expected error to name repository.owner, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad callback", func(c *config.Config) { c.GitHub.CallbackBind = "localhost" }, "github.callback_bind"},
		{"bad api url", func(c *config.Config) { c.GitHub.APIURL = "ftp://example.com" }, "github.api_url"},
		{"slash in owner", func(c *config.Config) { c.Repository.Owner = "a/b" }, "repository.owner"},
		{"negative width", func(c *config.Config) { c.Submission.MinBackgroundWidth = -1 }, "min_background_width"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Repository.Owner = "acme"
			cfg.Repository.Name = "themes"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateOAuthRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateOAuth(); err == nil {
		t.Fatal("expected error without client id")
	}
	cfg.GitHub.ClientID = "id"
	if err := cfg.ValidateOAuth(); err == nil {
		t.Fatal("expected error without client secret")
	}
}

func TestCreateSampleLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Repository.Owner == "" || cfg.Repository.Name == "" {
		t.Fatalf("sample should name a repository, got %+v", cfg.Repository)
	}
}
