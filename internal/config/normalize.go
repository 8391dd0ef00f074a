package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeRepository()
	c.normalizeGitHub()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSubmission()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeRepository() {
	c.Repository.Owner = strings.TrimSpace(c.Repository.Owner)
	c.Repository.Name = strings.TrimSpace(c.Repository.Name)
	if c.Repository.Owner == "" {
		if value, ok := os.LookupEnv("THEMESUBMIT_REPOSITORY"); ok {
			owner, name, found := strings.Cut(strings.TrimSpace(value), "/")
			if found {
				c.Repository.Owner = strings.TrimSpace(owner)
				if c.Repository.Name == "" {
					c.Repository.Name = strings.TrimSpace(name)
				}
			}
		}
	}
	c.Repository.BaseBranch = strings.TrimSpace(c.Repository.BaseBranch)
	if c.Repository.BaseBranch == "" {
		c.Repository.BaseBranch = defaultBaseBranch
	}
	c.Repository.ManifestURL = strings.TrimSpace(c.Repository.ManifestURL)
}

func (c *Config) normalizeGitHub() {
	c.GitHub.APIURL = strings.TrimRight(strings.TrimSpace(c.GitHub.APIURL), "/")
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = defaultGitHubAPIURL
	}
	c.GitHub.WebURL = strings.TrimRight(strings.TrimSpace(c.GitHub.WebURL), "/")
	if c.GitHub.WebURL == "" {
		c.GitHub.WebURL = defaultGitHubWebURL
	}
	c.GitHub.ClientID = strings.TrimSpace(c.GitHub.ClientID)
	if c.GitHub.ClientID == "" {
		if value, ok := os.LookupEnv("THEMESUBMIT_CLIENT_ID"); ok {
			c.GitHub.ClientID = strings.TrimSpace(value)
		}
	}
	c.GitHub.ClientSecret = strings.TrimSpace(c.GitHub.ClientSecret)
	if c.GitHub.ClientSecret == "" {
		if value, ok := os.LookupEnv("THEMESUBMIT_CLIENT_SECRET"); ok {
			c.GitHub.ClientSecret = strings.TrimSpace(value)
		}
	}
	scopes := make([]string, 0, len(c.GitHub.Scopes))
	seen := make(map[string]struct{}, len(c.GitHub.Scopes))
	for _, scope := range c.GitHub.Scopes {
		normalized := strings.TrimSpace(scope)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		scopes = append(scopes, normalized)
	}
	if len(scopes) == 0 {
		scopes = append(scopes, defaultScopes...)
	}
	c.GitHub.Scopes = scopes
	c.GitHub.CallbackBind = strings.TrimSpace(c.GitHub.CallbackBind)
	if c.GitHub.CallbackBind == "" {
		c.GitHub.CallbackBind = defaultCallbackBind
	}
	if c.GitHub.RequestTimeout <= 0 {
		c.GitHub.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSubmission() {
	if c.Submission.MaxFileBytes <= 0 {
		c.Submission.MaxFileBytes = defaultMaxFileBytes
	}
	c.Submission.BranchPrefix = strings.Trim(strings.TrimSpace(c.Submission.BranchPrefix), "/")
	if c.Submission.BranchPrefix == "" {
		c.Submission.BranchPrefix = defaultBranchPrefix
	}
	if c.Submission.MaxDescriptionRunes <= 0 {
		c.Submission.MaxDescriptionRunes = defaultMaxDescriptionRunes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
