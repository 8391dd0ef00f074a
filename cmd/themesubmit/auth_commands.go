package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"themesubmit/internal/auth"
	"themesubmit/internal/github"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var token string
	var noHint bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize themesubmit with GitHub",
		Long: "Runs the GitHub OAuth web flow through a local callback listener and stores the\n" +
			"resulting token. Use --token to store a personal access token instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.authManager()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var stored auth.StoredToken
			if value := strings.TrimSpace(token); value != "" {
				stored = auth.StoredToken{AccessToken: value, TokenType: "bearer", CreatedAt: time.Now().UTC()}
			} else {
				logger, err := ctx.ensureLogger(cmd)
				if err != nil {
					return err
				}
				flow, err := auth.NewFlow(ctx.configValue(),
					auth.WithFlowHTTPClient(ctx.httpClient()),
					auth.WithFlowLogger(logger),
				)
				if err != nil {
					return err
				}
				oauthToken, err := flow.Run(cmd.Context(), func(authURL string) error {
					if noHint {
						fmt.Fprintln(out, authURL)
						return nil
					}
					fmt.Fprintln(out, "Open this URL in your browser to authorize themesubmit:")
					fmt.Fprintf(out, "\n  %s\n\n", authURL)
					fmt.Fprintln(out, "Waiting for GitHub to redirect back...")
					return nil
				})
				if err != nil {
					return fmt.Errorf("login: %w", err)
				}
				stored = auth.Token(oauthToken, "")
			}

			user, err := ctx.lookupUser(cmd.Context(), cmd, stored)
			if err != nil {
				return fmt.Errorf("verify token: %w", err)
			}
			stored.Login = user.Login
			if err := mgr.Save(stored); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			fmt.Fprintf(out, "Logged in as %s\n", user.Login)
			if os.Getenv(auth.EnvToken) != "" {
				fmt.Fprintf(out, "Note: %s is set and takes precedence over the stored token\n", auth.EnvToken)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Store a personal access token instead of running the OAuth flow")
	cmd.Flags().BoolVar(&noHint, "no-browser-hint", false, "Print only the authorization URL")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored GitHub token",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.authManager()
			if err != nil {
				return err
			}
			if err := mgr.Clear(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Logged out")
			if os.Getenv(auth.EnvToken) != "" {
				fmt.Fprintf(out, "Note: %s is still set in the environment\n", auth.EnvToken)
			}
			return nil
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the GitHub account behind the active token",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.authManager()
			if err != nil {
				return err
			}
			client, err := ctx.githubClient(cmd.Context(), cmd, mgr)
			if err != nil {
				return err
			}
			user, err := client.CurrentUser(cmd.Context())
			if err != nil {
				var apiErr *github.APIError
				if errors.As(err, &apiErr) && apiErr.ErrorKind() == "auth" {
					return fmt.Errorf("token rejected by github; run `themesubmit login` again: %w", err)
				}
				return err
			}
			out := cmd.OutOrStdout()
			if user.Name != "" {
				fmt.Fprintf(out, "%s (%s)\n", user.Login, user.Name)
			} else {
				fmt.Fprintln(out, user.Login)
			}
			fmt.Fprintf(out, "Token source: %s\n", mgr.Source())
			return nil
		},
	}
}

// lookupUser resolves the account for a token that is not stored yet.
func (c *commandContext) lookupUser(ctx context.Context, cmd *cobra.Command, token auth.StoredToken) (*github.User, error) {
	logger, err := c.ensureLogger(cmd)
	if err != nil {
		return nil, err
	}
	base := c.httpClient()
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.AccessToken, TokenType: token.TokenType})
	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), source)
	httpClient.Timeout = base.Timeout
	client, err := github.New(c.configValue().GitHub.APIURL,
		github.WithHTTPClient(httpClient),
		github.WithUserAgent(userAgent),
		github.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return client.CurrentUser(ctx)
}
