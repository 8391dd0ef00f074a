package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"themesubmit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It points the repository at example-org/community-themes and applies any
// provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Repository.Owner = "example-org"
	cfgVal.Repository.Name = "community-themes"
	cfgVal.GitHub.ClientID = "test-client"
	cfgVal.GitHub.CallbackBind = "127.0.0.1:0"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGitHubAPI points API calls and the manifest at a test server.
func WithGitHubAPI(apiURL, manifestURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.GitHub.APIURL = apiURL
		b.cfg.GitHub.WebURL = apiURL
		b.cfg.Repository.ManifestURL = manifestURL
	}
}

// WithAllowUpdates enables update submissions.
func WithAllowUpdates() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Submission.AllowUpdates = true
	}
}

// WithMinBackgroundSize sets the minimum background dimensions.
func WithMinBackgroundSize(width, height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Submission.MinBackgroundWidth = width
		b.cfg.Submission.MinBackgroundHeight = height
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteConfigFile encodes cfg as TOML next to its state directory and returns
// the file path, for tests that drive config.Load.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
