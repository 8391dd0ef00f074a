package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Repository identifies the community content repository receiving submissions.
type Repository struct {
	Owner       string `toml:"owner"`
	Name        string `toml:"name"`
	BaseBranch  string `toml:"base_branch"`
	ManifestURL string `toml:"manifest_url"`
}

// GitHub contains API endpoints and the OAuth application used for login.
type GitHub struct {
	APIURL         string   `toml:"api_url"`
	WebURL         string   `toml:"web_url"`
	ClientID       string   `toml:"client_id"`
	ClientSecret   string   `toml:"client_secret"`
	Scopes         []string `toml:"scopes"`
	CallbackBind   string   `toml:"callback_bind"`
	RequestTimeout int      `toml:"request_timeout"`
}

// Paths contains local state and log directories.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Submission contains limits applied while validating queued items.
type Submission struct {
	MaxFileBytes        int64  `toml:"max_file_bytes"`
	BranchPrefix        string `toml:"branch_prefix"`
	AllowUpdates        bool   `toml:"allow_updates"`
	MinBackgroundWidth  int    `toml:"min_background_width"`
	MinBackgroundHeight int    `toml:"min_background_height"`
	MaxDescriptionRunes int    `toml:"max_description_runes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for themesubmit.
//
// Configuration sections:
//   - Repository: upstream owner/name, base branch, manifest location
//   - GitHub: API and OAuth endpoints plus the OAuth application credentials
//   - Paths: state (token, queue, lock) and log directories
//   - Submission: file size, branch naming and validation limits
//   - Logging: log format and level
type Config struct {
	Repository Repository `toml:"repository"`
	GitHub     GitHub     `toml:"github"`
	Paths      Paths      `toml:"paths"`
	Submission Submission `toml:"submission"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/themesubmit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("themesubmit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RepositorySlug returns "owner/name" for the upstream repository.
func (c *Config) RepositorySlug() string {
	return c.Repository.Owner + "/" + c.Repository.Name
}

// ManifestURL returns the configured manifest location, deriving the raw
// content URL of manifest.json on the base branch when none is set.
func (c *Config) ManifestURL() string {
	if url := strings.TrimSpace(c.Repository.ManifestURL); url != "" {
		return url
	}
	return fmt.Sprintf("%s/%s/%s/%s/manifest.json",
		defaultRawContentURL, c.Repository.Owner, c.Repository.Name, c.Repository.BaseBranch)
}

// RequestTimeout returns the HTTP timeout applied to GitHub and manifest calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.GitHub.RequestTimeout) * time.Second
}

// TokenPath returns the file holding the stored access token.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Paths.StateDir, "token.json")
}

// QueuePath returns the SQLite database holding queued submissions.
func (c *Config) QueuePath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockPath returns the lock file guarding concurrent submissions.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "submit.lock")
}

// LogPath returns the log file path, or an empty string when file logging is off.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "themesubmit.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
