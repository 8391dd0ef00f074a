package auth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"themesubmit/internal/config"
)

// EnvToken names the environment variable that overrides the stored token.
const EnvToken = "GITHUB_TOKEN"

// Token sources reported by Manager.Source.
const (
	SourceEnv   = "env"
	SourceStore = "store"
)

// ErrNotAuthenticated is returned when no usable token is available.
var ErrNotAuthenticated = errors.New("not logged in to github (run `themesubmit login`)")

// ManagerOption customises Manager construction.
type ManagerOption func(*Manager)

// WithTokenStore injects a custom persistence layer.
func WithTokenStore(store TokenStore) ManagerOption {
	return func(m *Manager) {
		m.store = store
	}
}

// Manager resolves the access token used for API calls.
type Manager struct {
	store TokenStore

	mu     sync.RWMutex
	cached *StoredToken
	source string
}

// NewManager builds a Manager that persists tokens under cfg's state directory.
func NewManager(cfg *config.Config, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mgr := &Manager{}
	for _, opt := range opts {
		opt(mgr)
	}
	if mgr.store == nil {
		mgr.store = NewFileTokenStore(cfg.TokenPath())
	}
	return mgr, nil
}

// Token returns the active token. GITHUB_TOKEN, when set, takes precedence
// over the stored token.
func (m *Manager) Token(ctx context.Context) (StoredToken, error) {
	if err := ctx.Err(); err != nil {
		return StoredToken{}, err
	}
	if value := strings.TrimSpace(os.Getenv(EnvToken)); value != "" {
		m.mu.Lock()
		m.source = SourceEnv
		m.mu.Unlock()
		return StoredToken{AccessToken: value, TokenType: "bearer"}, nil
	}

	m.mu.RLock()
	cached := m.cached
	m.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	token, err := m.store.Load()
	if err != nil {
		return StoredToken{}, err
	}
	if !token.Valid() {
		return StoredToken{}, ErrNotAuthenticated
	}

	m.mu.Lock()
	m.cached = &token
	m.source = SourceStore
	m.mu.Unlock()
	return token, nil
}

// Source reports where the last token returned by Token came from.
func (m *Manager) Source() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source
}

// Save persists token and makes it the active token.
func (m *Manager) Save(token StoredToken) error {
	if strings.TrimSpace(token.AccessToken) == "" {
		return errors.New("refusing to store an empty token")
	}
	if err := m.store.Save(token); err != nil {
		return err
	}
	m.mu.Lock()
	m.cached = &token
	m.source = SourceStore
	m.mu.Unlock()
	return nil
}

// Clear removes the stored token.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.cached = nil
	m.source = ""
	m.mu.Unlock()
	return m.store.Clear()
}

// HTTPClient returns a client that authenticates requests with the active
// token. Timeouts and transport come from base when provided.
func (m *Manager) HTTPClient(ctx context.Context, base *http.Client) (*http.Client, error) {
	token, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.AccessToken, TokenType: tokenType})
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	client := oauth2.NewClient(ctx, source)
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client, nil
}
