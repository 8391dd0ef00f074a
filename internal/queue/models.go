package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSubmitted Status = "submitted"
)

var allStatuses = []Status{StatusQueued, StatusSubmitted}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus resolves a user-supplied status name.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Item is one queued submission.
type Item struct {
	ID           int64
	Kind         string
	Identifier   string
	Name         string
	Author       string
	Version      string
	Description  string
	Update       bool
	Status       Status
	PRURL        string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Files        []File
}

// File is a snapshot of one file destined for the repository.
type File struct {
	RepoPath   string
	SourceName string
	Size       int64
	SHA256     string
	// Content is only loaded by Queued; other reads leave it nil.
	Content []byte
}

// TotalSize sums the sizes of the item's files.
func (i Item) TotalSize() int64 {
	var total int64
	for _, file := range i.Files {
		total += file.Size
	}
	return total
}

// NewItem carries the fields of an item being enqueued.
type NewItem struct {
	Kind        string
	Identifier  string
	Name        string
	Author      string
	Version     string
	Description string
	Update      bool
	Files       []NewFile
}

// NewFile is a file being enqueued.
type NewFile struct {
	RepoPath   string
	SourceName string
	Content    []byte
}

// DatabaseHealth reports diagnostics for the queue database.
type DatabaseHealth struct {
	DBPath           string
	SchemaVersion    int
	DatabaseExists   bool
	DatabaseReadable bool
	IntegrityCheck   bool
	TotalItems       int
	TotalBytes       int64
	Error            string
}
