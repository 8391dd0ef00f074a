// Package github wraps go-github with the handful of calls needed to open a
// pull request: user lookup, forking, branch creation, file commits through
// the contents API, and pull request creation.
//
// Response errors are returned as *APIError. The client never retries.
package github
