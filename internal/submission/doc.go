// Package submission turns validated forms into queued items and sends the
// queue upstream as a single pull request.
//
// Submit forks the repository when needed, creates one branch from the
// upstream base, commits each file through the contents API, and opens the
// pull request. Any failure is recorded on the queued items and returned;
// nothing already created on GitHub is rolled back.
package submission
