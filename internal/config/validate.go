package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRepository(); err != nil {
		return err
	}
	if err := c.validateGitHub(); err != nil {
		return err
	}
	if err := c.validateSubmission(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRepository() error {
	if c.Repository.Owner == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/themesubmit/config.toml"
		}
		return fmt.Errorf("repository.owner must be set. Set THEMESUBMIT_REPOSITORY=owner/name or edit %s (create with 'themesubmit config init')", defaultPath)
	}
	if c.Repository.Name == "" {
		return errors.New("repository.name must be set")
	}
	if strings.ContainsAny(c.Repository.Owner, "/ ") || strings.ContainsAny(c.Repository.Name, "/ ") {
		return errors.New("repository.owner and repository.name must not contain slashes or spaces")
	}
	if c.Repository.ManifestURL != "" {
		if err := validateHTTPURL("repository.manifest_url", c.Repository.ManifestURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateGitHub() error {
	if err := validateHTTPURL("github.api_url", c.GitHub.APIURL); err != nil {
		return err
	}
	if err := validateHTTPURL("github.web_url", c.GitHub.WebURL); err != nil {
		return err
	}
	if _, _, err := net.SplitHostPort(c.GitHub.CallbackBind); err != nil {
		return fmt.Errorf("github.callback_bind must be host:port: %w", err)
	}
	if c.GitHub.RequestTimeout <= 0 {
		return errors.New("github.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateSubmission() error {
	if c.Submission.MaxFileBytes <= 0 {
		return errors.New("submission.max_file_bytes must be positive")
	}
	if c.Submission.MinBackgroundWidth < 0 || c.Submission.MinBackgroundHeight < 0 {
		return errors.New("submission.min_background_width and min_background_height must not be negative")
	}
	if strings.ContainsAny(c.Submission.BranchPrefix, " ~^:?*[\\") {
		return fmt.Errorf("submission.branch_prefix %q is not a valid branch name component", c.Submission.BranchPrefix)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// ValidateOAuth reports whether the OAuth application is configured for the
// browser login flow.
func (c *Config) ValidateOAuth() error {
	if c.GitHub.ClientID == "" {
		return errors.New("github.client_id is required for browser login. Set THEMESUBMIT_CLIENT_ID or use 'themesubmit login --token'")
	}
	if c.GitHub.ClientSecret == "" {
		return errors.New("github.client_secret is required for browser login. Set THEMESUBMIT_CLIENT_SECRET or use 'themesubmit login --token'")
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, value)
	}
	return nil
}
