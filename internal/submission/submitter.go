package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"themesubmit/internal/config"
	"themesubmit/internal/content"
	"themesubmit/internal/github"
	"themesubmit/internal/identifier"
	"themesubmit/internal/logging"
	"themesubmit/internal/manifest"
	"themesubmit/internal/metadata"
	"themesubmit/internal/queue"
)

// Queue is the persistence used by the Submitter.
type Queue interface {
	identifier.QueueLookup
	Add(ctx context.Context, item queue.NewItem) (*queue.Item, error)
	Queued(ctx context.Context) ([]*queue.Item, error)
	MarkSubmitted(ctx context.Context, ids []int64, prURL string) error
	RecordError(ctx context.Context, ids []int64, message string) error
}

// Option customises Submitter construction.
type Option func(*Submitter)

// WithGitHub sets the GitHub client used by Submit.
func WithGitHub(api github.API) Option {
	return func(s *Submitter) {
		s.github = api
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for branch names.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) {
		if now != nil {
			s.now = now
		}
	}
}

// Submitter validates, queues, and submits community content.
type Submitter struct {
	cfg      *config.Config
	queue    Queue
	manifest manifest.Fetcher
	github   github.API
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Submitter.
func New(cfg *config.Config, q Queue, fetcher manifest.Fetcher, opts ...Option) (*Submitter, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if q == nil {
		return nil, errors.New("queue is nil")
	}
	if fetcher == nil {
		return nil, errors.New("manifest fetcher is nil")
	}
	s := &Submitter{
		cfg:      cfg,
		queue:    q,
		manifest: fetcher,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "submission")
	return s, nil
}

// Limits returns the validation limits from config.
func Limits(cfg *config.Config) content.Limits {
	return content.Limits{
		MaxFileBytes:        cfg.Submission.MaxFileBytes,
		MinBackgroundWidth:  cfg.Submission.MinBackgroundWidth,
		MinBackgroundHeight: cfg.Submission.MinBackgroundHeight,
		MaxDescriptionRunes: cfg.Submission.MaxDescriptionRunes,
	}
}

// Draft extracts embedded metadata from the form's file, when its kind
// carries any, and pre-fills empty fields. It is safe to call repeatedly.
func Draft(form *content.Form) {
	if form.Metadata == nil && form.Kind.HasEmbeddedMetadata() {
		if meta, err := metadata.Extract(form.File.Data); err == nil {
			form.Metadata = meta
		}
	}
	form.Prefill(form.Metadata)
}

// Inspection is what Inspect learns about a form without queueing it.
type Inspection struct {
	Metadata   *metadata.Metadata
	Identifier string
	// Problem is the validation or duplicate error, if any.
	Problem error
}

// Inspect drafts and validates form, derives its identifier, and checks it
// against the manifest and queue.
func (s *Submitter) Inspect(ctx context.Context, form *content.Form) (Inspection, error) {
	Draft(form)
	result := Inspection{Metadata: form.Metadata}
	if err := form.Validate(Limits(s.cfg)); err != nil {
		result.Problem = err
	}
	id, err := identifier.Derive(form.Metadata, form.Name)
	if err != nil {
		if result.Problem == nil {
			result.Problem = err
		}
		return result, nil
	}
	result.Identifier = id

	m, err := s.manifest.Fetch(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch manifest: %w", err)
	}
	if err := s.checker(m).Check(ctx, s.request(form, id)); err != nil && result.Problem == nil {
		result.Problem = err
	}
	return result, nil
}

// Prepare validates form, derives its identifier, rejects duplicates in the
// manifest or local queue, and enqueues the result.
func (s *Submitter) Prepare(ctx context.Context, form *content.Form) (*queue.Item, error) {
	Draft(form)
	if err := form.Validate(Limits(s.cfg)); err != nil {
		return nil, err
	}
	id, err := identifier.Derive(form.Metadata, form.Name)
	if err != nil {
		return nil, fmt.Errorf("derive identifier for %q: %w", form.Name, err)
	}

	m, err := s.manifest.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	if err := s.checker(m).Check(ctx, s.request(form, id)); err != nil {
		return nil, err
	}

	repoFiles := form.RepoFiles(id)
	files := make([]queue.NewFile, 0, len(repoFiles))
	for _, file := range repoFiles {
		files = append(files, queue.NewFile{
			RepoPath:   file.Path,
			SourceName: file.SourceName,
			Content:    file.Data,
		})
	}
	item, err := s.queue.Add(ctx, queue.NewItem{
		Kind:        string(form.Kind),
		Identifier:  id,
		Name:        form.Name,
		Author:      form.Author,
		Version:     form.Version,
		Description: form.Description,
		Update:      form.Update,
		Files:       files,
	})
	if err != nil {
		if errors.Is(err, queue.ErrAlreadyQueued) {
			queuedID, findErr := s.queue.FindQueued(ctx, string(form.Kind), id)
			if findErr != nil {
				s.logger.Warn("failed to look up queued duplicate",
					logging.String(logging.FieldIdentifier, id),
					logging.Error(findErr),
				)
			}
			return nil, &identifier.DuplicateError{
				Kind:       string(form.Kind),
				Identifier: id,
				Source:     identifier.SourceQueue,
				QueueID:    queuedID,
			}
		}
		return nil, err
	}

	s.logger.Info("submission queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldKind, item.Kind),
		logging.String(logging.FieldIdentifier, item.Identifier),
		logging.Int("files", len(item.Files)),
		logging.String(logging.FieldEventType, "queued"),
	)
	return item, nil
}

func (s *Submitter) checker(m *manifest.Manifest) identifier.Checker {
	return identifier.Checker{
		Manifest:     m,
		Queue:        s.queue,
		AllowUpdates: s.cfg.Submission.AllowUpdates,
	}
}

func (s *Submitter) request(form *content.Form, id string) identifier.Request {
	return identifier.Request{
		Kind:       string(form.Kind),
		Identifier: id,
		Author:     form.Author,
		Update:     form.Update,
	}
}
