package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"themesubmit/internal/auth"
	"themesubmit/internal/config"
	"themesubmit/internal/content"
	"themesubmit/internal/github"
	"themesubmit/internal/logging"
	"themesubmit/internal/manifest"
	"themesubmit/internal/queue"
	"themesubmit/internal/submission"
)

const userAgent = "themesubmit"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// ensureLogger writes console records to the command's stderr so stdout
// carries only command output.
func (c *commandContext) ensureLogger(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:    cfg.Logging.Level,
			Format:   cfg.Logging.Format,
			Console:  cmd.ErrOrStderr(),
			FilePath: cfg.LogPath(),
		})
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) httpClient() *http.Client {
	return &http.Client{Timeout: c.configValue().RequestTimeout()}
}

func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) authManager() (*auth.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(cfg)
}

// githubClient returns an API client authenticated with the active token.
func (c *commandContext) githubClient(ctx context.Context, cmd *cobra.Command, mgr *auth.Manager) (*github.Client, error) {
	logger, err := c.ensureLogger(cmd)
	if err != nil {
		return nil, err
	}
	client, err := mgr.HTTPClient(ctx, c.httpClient())
	if err != nil {
		return nil, err
	}
	return github.New(c.configValue().GitHub.APIURL,
		github.WithHTTPClient(client),
		github.WithUserAgent(userAgent),
		github.WithLogger(logger),
	)
}

func (c *commandContext) manifestClient() (*manifest.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return manifest.New(cfg.ManifestURL(),
		manifest.WithHTTPClient(c.httpClient()),
		manifest.WithUserAgent(userAgent),
	)
}

func (c *commandContext) submitter(cmd *cobra.Command, store *queue.Store, opts ...submission.Option) (*submission.Submitter, error) {
	logger, err := c.ensureLogger(cmd)
	if err != nil {
		return nil, err
	}
	fetcher, err := c.manifestClient()
	if err != nil {
		return nil, err
	}
	opts = append([]submission.Option{submission.WithLogger(logger)}, opts...)
	return submission.New(c.configValue(), store, fetcher, opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// formatError renders validation failures one problem per line.
func formatError(err error) string {
	var validation *content.ValidationError
	if errors.As(err, &validation) {
		lines := []string{"submission is invalid:"}
		for _, problem := range validation.Problems {
			lines = append(lines, "  - "+problem.String())
		}
		return strings.Join(lines, "\n")
	}
	return err.Error()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
