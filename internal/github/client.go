package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v74/github"

	"themesubmit/internal/logging"
)

const defaultUserAgent = "themesubmit"

// API is the set of GitHub operations used by the submission workflow.
type API interface {
	CurrentUser(ctx context.Context) (*User, error)
	GetRepository(ctx context.Context, owner, repo string) (*Repository, error)
	CreateFork(ctx context.Context, owner, repo string) (*Repository, error)
	GetBranchSHA(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, branch, sha string) error
	GetFileSHA(ctx context.Context, owner, repo, path, ref string) (string, error)
	PutFile(ctx context.Context, owner, repo string, file FileCommit) (*Commit, error)
	CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*PullRequest, error)
}

// Client adapts go-github to the API interface and maps its errors to
// *APIError.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	api *gh.Client
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. Pass the authenticated
// client from auth.Manager here.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if strings.TrimSpace(agent) != "" {
			c.userAgent = strings.TrimSpace(agent)
		}
	}
}

// WithBaseURL overrides the API root passed to New, for GitHub Enterprise
// hosts configured after construction.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimSpace(baseURL)
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the API rooted at baseURL.
//
// The root is used verbatim, so an Enterprise host must include its /api/v3
// prefix.
func New(baseURL string, opts ...Option) (*Client, error) {
	client := &Client{
		baseURL:    strings.TrimSpace(baseURL),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		return nil, errors.New("github api url required")
	}
	root, err := url.Parse(strings.TrimRight(client.baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse github api url: %w", err)
	}
	client.logger = logging.NewComponentLogger(client.logger, "github")

	traced := *client.httpClient
	traced.Transport = &loggingTransport{base: client.httpClient.Transport, logger: client.logger}

	client.api = gh.NewClient(&traced)
	client.api.BaseURL = root
	client.api.UserAgent = client.userAgent
	return client, nil
}

// CurrentUser returns the account owning the token.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	user, _, err := c.api.Users.Get(ctx, "")
	if err != nil {
		return nil, mapError(err)
	}
	return &User{Login: user.GetLogin(), Name: user.GetName(), HTMLURL: user.GetHTMLURL()}, nil
}

// GetRepository fetches repository details.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	out, _, err := c.api.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, mapError(err)
	}
	return convertRepository(out), nil
}

// CreateFork forks owner/repo into the authenticated account. GitHub answers
// 202 and creates the fork asynchronously; an existing fork is returned as is.
func (c *Client) CreateFork(ctx context.Context, owner, repo string) (*Repository, error) {
	fork, _, err := c.api.Repositories.CreateFork(ctx, owner, repo, &gh.RepositoryCreateForkOptions{DefaultBranchOnly: true})
	var accepted *gh.AcceptedError
	if errors.As(err, &accepted) {
		err = nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return convertRepository(fork), nil
}

// GetBranchSHA returns the commit SHA at the tip of branch.
func (c *Client) GetBranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, _, err := c.api.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", mapError(err)
	}
	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("branch %s of %s/%s has no commit sha", branch, owner, repo)
	}
	return sha, nil
}

// CreateBranch creates branch pointing at sha.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	_, _, err := c.api.Git.CreateRef(ctx, owner, repo, &gh.Reference{
		Ref:    gh.Ptr("refs/heads/" + branch),
		Object: &gh.GitObject{SHA: gh.Ptr(sha)},
	})
	return mapError(err)
}

// GetFileSHA returns the blob SHA of path at ref, or "" when the file does
// not exist.
func (c *Client) GetFileSHA(ctx context.Context, owner, repo, path, ref string) (string, error) {
	var opts *gh.RepositoryContentGetOptions
	if ref != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: ref}
	}
	file, _, _, err := c.api.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		err = mapError(err)
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if file == nil {
		return "", fmt.Errorf("%s is a directory in %s/%s", path, owner, repo)
	}
	return file.GetSHA(), nil
}

// PutFile creates or replaces one file with a single commit.
func (c *Client) PutFile(ctx context.Context, owner, repo string, file FileCommit) (*Commit, error) {
	if strings.TrimSpace(file.Path) == "" {
		return nil, errors.New("file path required")
	}
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(file.Message),
		Content: file.Content,
	}
	if file.Branch != "" {
		opts.Branch = gh.Ptr(file.Branch)
	}

	var (
		resp *gh.RepositoryContentResponse
		err  error
	)
	if file.SHA != "" {
		opts.SHA = gh.Ptr(file.SHA)
		resp, _, err = c.api.Repositories.UpdateFile(ctx, owner, repo, file.Path, opts)
	} else {
		resp, _, err = c.api.Repositories.CreateFile(ctx, owner, repo, file.Path, opts)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &Commit{
		SHA:     resp.Commit.GetSHA(),
		HTMLURL: resp.Commit.GetHTMLURL(),
		BlobSHA: resp.GetContent().GetSHA(),
	}, nil
}

// CreatePullRequest opens a pull request against owner/repo.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*PullRequest, error) {
	req := &gh.NewPullRequest{
		Title:               gh.Ptr(pr.Title),
		Head:                gh.Ptr(pr.Head),
		Base:                gh.Ptr(pr.Base),
		MaintainerCanModify: gh.Ptr(pr.MaintainerCanModify),
	}
	if pr.Body != "" {
		req.Body = gh.Ptr(pr.Body)
	}
	out, _, err := c.api.PullRequests.Create(ctx, owner, repo, req)
	if err != nil {
		return nil, mapError(err)
	}
	return &PullRequest{Number: out.GetNumber(), HTMLURL: out.GetHTMLURL(), State: out.GetState()}, nil
}

func convertRepository(repo *gh.Repository) *Repository {
	if repo == nil {
		return &Repository{}
	}
	out := &Repository{
		ID:            repo.GetID(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Owner:         Owner{Login: repo.GetOwner().GetLogin()},
		DefaultBranch: repo.GetDefaultBranch(),
		HTMLURL:       repo.GetHTMLURL(),
		Fork:          repo.GetFork(),
	}
	if repo.Parent != nil {
		out.Parent = convertRepository(repo.Parent)
	}
	return out
}

// loggingTransport records one debug line per round trip.
type loggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	start := time.Now()
	resp, err := base.RoundTrip(req)
	latency := time.Since(start)
	if err != nil {
		t.logger.Debug("github request failed",
			logging.String("method", req.Method),
			logging.String("path", req.URL.Path),
			logging.Duration("latency", latency),
			logging.Error(err),
		)
		return nil, err
	}
	t.logger.Debug("github request",
		logging.String("method", req.Method),
		logging.String("path", req.URL.Path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)
	return resp, nil
}
