package submission

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when another submission holds the lock.
	ErrBusy = errors.New("another submission is in progress")
	// ErrQueueEmpty is returned by Submit when nothing is queued.
	ErrQueueEmpty = errors.New("queue is empty")
	// ErrNoGitHub is returned when Submit runs without a GitHub client.
	ErrNoGitHub = errors.New("github client not configured")
)

// Steps reported by StepError.
const (
	StepFork        = "fork"
	StepBranch      = "branch"
	StepCommit      = "commit"
	StepPullRequest = "pull_request"
)

// StepError wraps the failure of one GitHub step of Submit.
type StepError struct {
	Step string
	// Path is the repository path being committed for StepCommit.
	Path string
	Err  error
}

func (e *StepError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Step, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
