package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"themesubmit/internal/github"
	"themesubmit/internal/identifier"
	"themesubmit/internal/logging"
	"themesubmit/internal/manifest"
	"themesubmit/internal/queue"
)

// Options controls a Submit run.
type Options struct {
	// DryRun computes the plan without calling mutating endpoints.
	DryRun bool
	// Title overrides the generated pull request title.
	Title string
}

// PlannedFile is one file commit in a Plan.
type PlannedFile struct {
	ItemID  int64
	Path    string
	Size    int64
	Message string
	Replace bool
}

// Plan describes the pull request Submit creates.
type Plan struct {
	Login     string
	Upstream  string
	HeadOwner string
	HeadRepo  string
	// Fork is false when the user owns the upstream repository.
	Fork   bool
	Base   string
	Branch string
	Title  string
	Body   string
	Files  []PlannedFile
	Items  []*queue.Item
}

// Head returns the pull request head reference.
func (p Plan) Head() string {
	return p.HeadOwner + ":" + p.Branch
}

// Result is the outcome of Submit.
type Result struct {
	Plan        Plan
	DryRun      bool
	PullRequest *github.PullRequest
}

// Submit sends every queued item upstream as one pull request.
func (s *Submitter) Submit(ctx context.Context, opts Options) (*Result, error) {
	if s.github == nil {
		return nil, ErrNoGitHub
	}
	if err := s.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(s.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release submit lock", logging.Error(err))
		}
	}()

	items, err := s.queue.Queued(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrQueueEmpty
	}

	var (
		user     *github.User
		upstream *manifest.Manifest
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		u, err := s.github.CurrentUser(groupCtx)
		if err != nil {
			return fmt.Errorf("resolve github user: %w", err)
		}
		user = u
		return nil
	})
	group.Go(func() error {
		m, err := s.manifest.Fetch(groupCtx)
		if err != nil {
			return fmt.Errorf("fetch manifest: %w", err)
		}
		upstream = m
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if err := s.recheck(ctx, upstream, items, !opts.DryRun); err != nil {
		return nil, err
	}

	plan := s.plan(user.Login, items, opts)
	result := &Result{Plan: plan, DryRun: opts.DryRun}
	if opts.DryRun {
		s.logger.Info("dry run planned",
			logging.String(logging.FieldRepository, plan.Upstream),
			logging.String("branch", plan.Branch),
			logging.Int("files", len(plan.Files)),
			logging.String(logging.FieldEventType, "dry_run"),
		)
		return result, nil
	}

	pr, err := s.execute(ctx, &result.Plan)
	ids := itemIDs(items)
	if err != nil {
		if recordErr := s.queue.RecordError(context.WithoutCancel(ctx), ids, err.Error()); recordErr != nil {
			s.logger.Warn("failed to record submission error", logging.Error(recordErr))
		}
		s.logger.Error("submission failed",
			logging.String(logging.FieldRepository, plan.Upstream),
			logging.String("branch", plan.Branch),
			logging.Error(err),
			logging.String(logging.FieldEventType, "submit_failed"),
		)
		return result, err
	}
	result.PullRequest = pr

	if err := s.queue.MarkSubmitted(context.WithoutCancel(ctx), ids, pr.HTMLURL); err != nil {
		return result, fmt.Errorf("pull request %s opened but queue update failed: %w", pr.HTMLURL, err)
	}
	s.logger.Info("pull request opened",
		logging.String(logging.FieldRepository, plan.Upstream),
		logging.Int("number", pr.Number),
		logging.String("url", pr.HTMLURL),
		logging.Int("items", len(items)),
		logging.String(logging.FieldEventType, "submitted"),
	)
	return result, nil
}

// recheck repeats duplicate detection against the fresh manifest. Items
// that collide stay queued; with record set the error is stored on them.
func (s *Submitter) recheck(ctx context.Context, m *manifest.Manifest, items []*queue.Item, record bool) error {
	checker := s.checker(m)
	var problems []error
	for _, item := range items {
		err := checker.Check(ctx, identifier.Request{
			Kind:          item.Kind,
			Identifier:    item.Identifier,
			Author:        item.Author,
			Update:        item.Update,
			IgnoreQueueID: item.ID,
		})
		if err == nil {
			continue
		}
		if record {
			if recordErr := s.queue.RecordError(ctx, []int64{item.ID}, err.Error()); recordErr != nil {
				s.logger.Warn("failed to record duplicate", logging.Int64(logging.FieldItemID, item.ID), logging.Error(recordErr))
			}
		}
		problems = append(problems, fmt.Errorf("item #%d: %w", item.ID, err))
	}
	return errors.Join(problems...)
}

func (s *Submitter) plan(login string, items []*queue.Item, opts Options) Plan {
	owner := s.cfg.Repository.Owner
	name := s.cfg.Repository.Name
	plan := Plan{
		Login:     login,
		Upstream:  s.cfg.RepositorySlug(),
		HeadOwner: owner,
		HeadRepo:  name,
		Base:      s.cfg.Repository.BaseBranch,
		Branch:    s.branchName(login),
		Title:     strings.TrimSpace(opts.Title),
		Items:     items,
	}
	if !strings.EqualFold(login, owner) {
		plan.Fork = true
		plan.HeadOwner = login
	}
	if plan.Title == "" {
		plan.Title = pullRequestTitle(items)
	}
	plan.Body = pullRequestBody(items)
	for _, item := range items {
		message := commitMessage(item)
		for _, file := range item.Files {
			plan.Files = append(plan.Files, PlannedFile{
				ItemID:  item.ID,
				Path:    file.RepoPath,
				Size:    file.Size,
				Message: message,
				Replace: item.Update,
			})
		}
	}
	return plan
}

func (s *Submitter) branchName(login string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s/%s-%s-%s",
		s.cfg.Submission.BranchPrefix,
		identifier.Slug(login),
		s.now().UTC().Format("20060102150405"),
		suffix,
	)
}

// execute performs the GitHub calls for plan. HeadRepo is updated when the
// fork lands under a different name.
func (s *Submitter) execute(ctx context.Context, plan *Plan) (*github.PullRequest, error) {
	owner := s.cfg.Repository.Owner
	name := s.cfg.Repository.Name
	logger := s.logger.With(logging.String(logging.FieldRepository, plan.Upstream))

	if plan.Fork {
		fork, err := s.github.CreateFork(ctx, owner, name)
		if err != nil {
			return nil, &StepError{Step: StepFork, Err: err}
		}
		if fork.Owner.Login != "" {
			plan.HeadOwner = fork.Owner.Login
		}
		if fork.Name != "" {
			plan.HeadRepo = fork.Name
		}
		logger.Info("fork ready", logging.String("fork", plan.HeadOwner+"/"+plan.HeadRepo))
	}

	baseSHA, err := s.github.GetBranchSHA(ctx, owner, name, plan.Base)
	if err != nil {
		return nil, &StepError{Step: StepBranch, Err: err}
	}
	if err := s.github.CreateBranch(ctx, plan.HeadOwner, plan.HeadRepo, plan.Branch, baseSHA); err != nil {
		return nil, &StepError{Step: StepBranch, Err: err}
	}
	logger.Info("branch created", logging.String("branch", plan.Branch), logging.String("base_sha", baseSHA))

	for _, item := range plan.Items {
		message := commitMessage(item)
		for _, file := range item.Files {
			commit := github.FileCommit{
				Path:    file.RepoPath,
				Message: message,
				Branch:  plan.Branch,
				Content: file.Content,
			}
			if item.Update {
				sha, err := s.github.GetFileSHA(ctx, plan.HeadOwner, plan.HeadRepo, file.RepoPath, plan.Branch)
				if err != nil {
					return nil, &StepError{Step: StepCommit, Path: file.RepoPath, Err: err}
				}
				commit.SHA = sha
			}
			if _, err := s.github.PutFile(ctx, plan.HeadOwner, plan.HeadRepo, commit); err != nil {
				return nil, &StepError{Step: StepCommit, Path: file.RepoPath, Err: err}
			}
			logger.Debug("file committed",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.String("path", file.RepoPath),
			)
		}
	}

	pr, err := s.github.CreatePullRequest(ctx, owner, name, github.NewPullRequest{
		Title:               plan.Title,
		Head:                plan.Head(),
		Base:                plan.Base,
		Body:                plan.Body,
		MaintainerCanModify: true,
	})
	if err != nil {
		return nil, &StepError{Step: StepPullRequest, Err: err}
	}
	return pr, nil
}

func itemIDs(items []*queue.Item) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
