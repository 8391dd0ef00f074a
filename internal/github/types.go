package github

// User is the authenticated account.
type User struct {
	Login   string `json:"login"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// Owner identifies the account owning a repository.
type Owner struct {
	Login string `json:"login"`
}

// Repository describes a repository or fork.
type Repository struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	FullName      string      `json:"full_name"`
	Owner         Owner       `json:"owner"`
	DefaultBranch string      `json:"default_branch"`
	HTMLURL       string      `json:"html_url"`
	Fork          bool        `json:"fork"`
	Parent        *Repository `json:"parent,omitempty"`
}

// FileCommit creates or replaces a single file on a branch.
type FileCommit struct {
	Path    string
	Message string
	Branch  string
	Content []byte
	// SHA is the blob SHA of the file being replaced; empty creates a new file.
	SHA string
}

// Commit is the result of a contents API write.
type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	// BlobSHA is the SHA of the written file.
	BlobSHA string `json:"-"`
}

// NewPullRequest is the payload for opening a pull request.
type NewPullRequest struct {
	Title               string `json:"title"`
	Head                string `json:"head"`
	Base                string `json:"base"`
	Body                string `json:"body,omitempty"`
	MaintainerCanModify bool   `json:"maintainer_can_modify"`
}

// PullRequest is an opened pull request.
type PullRequest struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
}
