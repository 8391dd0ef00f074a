package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// maxManifestBytes bounds the manifest body read from the network.
const maxManifestBytes = 16 << 20

// Entry describes one published item.
type Entry struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Author  string `json:"author,omitempty" yaml:"author,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Manifest lists published entries per content kind. Keys match the
// repository directory names.
type Manifest struct {
	Backgrounds []Entry `json:"backgrounds" yaml:"backgrounds"`
	Styles      []Entry `json:"styles" yaml:"styles"`
	Coverflow   []Entry `json:"coverflow" yaml:"coverflow"`
}

// Entries returns the entries for a kind name ("background", "style",
// "coverflow"; plural directory names are accepted too).
func (m *Manifest) Entries(kind string) []Entry {
	if m == nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "background", "backgrounds":
		return m.Backgrounds
	case "style", "styles":
		return m.Styles
	case "coverflow":
		return m.Coverflow
	default:
		return nil
	}
}

// Lookup finds an entry by kind and identifier, ignoring case.
func (m *Manifest) Lookup(kind, id string) (Entry, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, false
	}
	for _, entry := range m.Entries(kind) {
		if strings.EqualFold(strings.TrimSpace(entry.ID), id) {
			return entry, true
		}
	}
	return Entry{}, false
}

// Count returns the total number of entries across kinds.
func (m *Manifest) Count() int {
	if m == nil {
		return 0
	}
	return len(m.Backgrounds) + len(m.Styles) + len(m.Coverflow)
}

// Fetcher retrieves the manifest.
type Fetcher interface {
	Fetch(ctx context.Context) (*Manifest, error)
}

// Client downloads the manifest from a fixed URL.
type Client struct {
	url        string
	httpClient *http.Client
	userAgent  string
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with manifest requests.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// New creates a manifest client for rawURL.
func New(rawURL string, opts ...Option) (*Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("manifest url required")
	}
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("parse manifest url: %w", err)
	}
	client := &Client{
		url:        rawURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// URL returns the manifest location.
func (c *Client) URL() string {
	return c.url
}

// Fetch downloads and decodes the manifest.
func (c *Client) Fetch(ctx context.Context) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest request returned %d (latency=%v)", resp.StatusCode, latency)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Decode(body, isYAML(c.url, resp.Header.Get("Content-Type")))
}

// Decode parses a manifest document as JSON, or as YAML when asYAML is set.
func Decode(body []byte, asYAML bool) (*Manifest, error) {
	var m Manifest
	if asYAML {
		if err := yaml.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("decode manifest yaml: %w", err)
		}
		return &m, nil
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode manifest json: %w", err)
	}
	return &m, nil
}

func isYAML(rawURL, contentType string) bool {
	contentType = strings.ToLower(contentType)
	if strings.Contains(contentType, "yaml") {
		return true
	}
	if strings.Contains(contentType, "json") {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(parsed.Path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
