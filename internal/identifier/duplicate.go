package identifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"themesubmit/internal/manifest"
)

// ErrDuplicate matches every *DuplicateError.
var ErrDuplicate = errors.New("duplicate identifier")

// Duplicate sources.
const (
	SourceManifest = "manifest"
	SourceQueue    = "queue"
)

// DuplicateError reports an identifier already taken in the manifest or queue.
type DuplicateError struct {
	Kind       string
	Identifier string
	Source     string
	// Author of the existing manifest entry, when known.
	Author string
	// QueueID of the colliding queued item, when Source is SourceQueue.
	QueueID int64
}

func (e *DuplicateError) Error() string {
	switch e.Source {
	case SourceQueue:
		if e.QueueID == 0 {
			return fmt.Sprintf("%s %q is already queued", e.Kind, e.Identifier)
		}
		return fmt.Sprintf("%s %q is already queued as item #%d", e.Kind, e.Identifier, e.QueueID)
	default:
		if e.Author != "" {
			return fmt.Sprintf("%s %q already exists in the repository (author %s)", e.Kind, e.Identifier, e.Author)
		}
		return fmt.Sprintf("%s %q already exists in the repository", e.Kind, e.Identifier)
	}
}

// Is lets errors.Is(err, ErrDuplicate) match.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// ErrorKind classifies duplicates as validation failures.
func (e *DuplicateError) ErrorKind() string {
	return "validation"
}

// QueueLookup reports the queue ID of a pending item with the same kind and
// identifier, or 0 when none exists.
type QueueLookup interface {
	FindQueued(ctx context.Context, kind, identifier string) (int64, error)
}

// Request describes the identifier being checked.
type Request struct {
	Kind       string
	Identifier string
	Author     string
	// Update asks to replace an existing manifest entry.
	Update bool
	// IgnoreQueueID skips a queued item, used when re-checking queued items at submit time.
	IgnoreQueueID int64
}

// Checker detects identifier collisions.
type Checker struct {
	Manifest *manifest.Manifest
	Queue    QueueLookup
	// AllowUpdates permits Request.Update to replace an entry owned by the same author.
	AllowUpdates bool
}

// Check returns a *DuplicateError when the identifier is taken, or an error
// explaining why an update request cannot be honoured.
func (c Checker) Check(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Identifier) == "" {
		return ErrEmpty
	}

	if entry, ok := c.Manifest.Lookup(req.Kind, req.Identifier); ok {
		if !req.Update {
			return &DuplicateError{Kind: req.Kind, Identifier: req.Identifier, Source: SourceManifest, Author: entry.Author}
		}
		if !c.AllowUpdates {
			return fmt.Errorf("updates are disabled (submission.allow_updates): %w",
				&DuplicateError{Kind: req.Kind, Identifier: req.Identifier, Source: SourceManifest, Author: entry.Author})
		}
		if !sameAuthor(entry.Author, req.Author) {
			return fmt.Errorf("update refused, entry belongs to %q: %w", entry.Author,
				&DuplicateError{Kind: req.Kind, Identifier: req.Identifier, Source: SourceManifest, Author: entry.Author})
		}
	} else if req.Update {
		return &UpdateTargetMissingError{Kind: req.Kind, Identifier: req.Identifier}
	}

	if c.Queue != nil {
		queued, err := c.Queue.FindQueued(ctx, req.Kind, req.Identifier)
		if err != nil {
			return fmt.Errorf("check queue: %w", err)
		}
		if queued != 0 && queued != req.IgnoreQueueID {
			return &DuplicateError{Kind: req.Kind, Identifier: req.Identifier, Source: SourceQueue, QueueID: queued}
		}
	}
	return nil
}

// UpdateTargetMissingError reports an update request for an identifier the
// manifest does not contain.
type UpdateTargetMissingError struct {
	Kind       string
	Identifier string
}

func (e *UpdateTargetMissingError) Error() string {
	return fmt.Sprintf("cannot update %s %q: not present in the repository manifest", e.Kind, e.Identifier)
}

// ErrorKind classifies the error as a validation failure.
func (e *UpdateTargetMissingError) ErrorKind() string {
	return "validation"
}

func sameAuthor(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
