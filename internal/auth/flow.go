package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"themesubmit/internal/config"
	"themesubmit/internal/logging"
)

const (
	callbackPath        = "/callback"
	defaultLoginTimeout = 5 * time.Minute
)

// ErrStateMismatch is returned when the callback carries an unexpected state.
var ErrStateMismatch = errors.New("oauth state mismatch")

// CallbackError reports an error returned by GitHub on the redirect.
type CallbackError struct {
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s (%s)", e.Description, e.Code)
	}
	return "authorization failed: " + e.Code
}

// FlowOption customises Flow construction.
type FlowOption func(*Flow)

// WithFlowHTTPClient overrides the client used for the token exchange.
func WithFlowHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) {
		f.httpClient = client
	}
}

// WithFlowLogger sets the logger.
func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithLoginTimeout bounds how long Run waits for the browser callback.
func WithLoginTimeout(timeout time.Duration) FlowOption {
	return func(f *Flow) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// Flow runs the OAuth web application flow with PKCE against a loopback
// redirect listener.
type Flow struct {
	oauth      oauth2.Config
	bind       string
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// NewFlow builds a Flow for the OAuth application in cfg.
func NewFlow(cfg *config.Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.ValidateOAuth(); err != nil {
		return nil, err
	}
	flow := &Flow{
		oauth: oauth2.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			Scopes:       append([]string(nil), cfg.GitHub.Scopes...),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.GitHub.WebURL + "/login/oauth/authorize",
				TokenURL:  cfg.GitHub.WebURL + "/login/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		bind:       cfg.GitHub.CallbackBind,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		logger:     logging.NewNop(),
		timeout:    defaultLoginTimeout,
	}
	for _, opt := range opts {
		opt(flow)
	}
	flow.logger = logging.NewComponentLogger(flow.logger, "auth")
	return flow, nil
}

type callbackResult struct {
	code string
	err  error
}

// Run starts the loopback listener, hands the authorization URL to open, and
// exchanges the returned code for a token.
func (f *Flow) Run(ctx context.Context, open func(authURL string) error) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	listener, err := net.Listen("tcp", f.bind)
	if err != nil {
		return nil, fmt.Errorf("callback listen on %s: %w", f.bind, err)
	}

	conf := f.oauth
	conf.RedirectURL = "http://" + listener.Addr().String() + callbackPath
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, f.callbackHandler(state, results))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("callback server error", logging.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	f.logger.Debug("waiting for oauth callback",
		logging.String("redirect_url", conf.RedirectURL),
		logging.String(logging.FieldEventType, "oauth_wait"),
	)
	if open != nil {
		if err := open(authURL); err != nil {
			return nil, fmt.Errorf("open authorization url: %w", err)
		}
	}

	var result callbackResult
	select {
	case result = <-results:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
	if result.err != nil {
		return nil, result.err
	}

	exchangeCtx := ctx
	if f.httpClient != nil {
		exchangeCtx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}
	token, err := conf.Exchange(exchangeCtx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	f.logger.Info("github authorization complete", logging.String(logging.FieldEventType, "oauth_complete"))
	return token, nil
}

func (f *Flow) callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()
		var result callbackResult
		switch {
		case query.Get("state") != state:
			result.err = ErrStateMismatch
		case query.Get("error") != "":
			result.err = &CallbackError{Code: query.Get("error"), Description: query.Get("error_description")}
		case strings.TrimSpace(query.Get("code")) == "":
			result.err = errors.New("authorization callback did not include a code")
		default:
			result.code = query.Get("code")
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if result.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<p>Login failed: %s</p>", html.EscapeString(result.err.Error()))
		} else {
			fmt.Fprint(w, "<p>Login complete. You can close this window.</p>")
		}

		select {
		case results <- result:
		default:
		}
	}
}

// Token converts an oauth2 token into its stored form.
func Token(token *oauth2.Token, login string) StoredToken {
	if token == nil {
		return StoredToken{}
	}
	scope, _ := token.Extra("scope").(string)
	return StoredToken{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Scope:       scope,
		Login:       login,
		CreatedAt:   time.Now().UTC(),
		Expiry:      token.Expiry,
	}
}
