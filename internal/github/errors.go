package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v74/github"
)

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode       int
	Method           string
	Path             string
	Message          string
	DocumentationURL string
	// RateLimited is set when the response reports an exhausted rate limit.
	RateLimited bool
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("github %s %s returned %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RateLimited {
		msg += " (rate limit exhausted)"
	}
	return msg
}

// ErrorKind classifies the failure for command output.
func (e *APIError) ErrorKind() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "auth"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation"
	default:
		return "api"
	}
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// mapError converts go-github response errors into *APIError. Transport and
// context errors pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		apiErr := newAPIError(rateErr.Response, rateErr.Message, "")
		apiErr.RateLimited = true
		return apiErr
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		apiErr := newAPIError(abuseErr.Response, abuseErr.Message, "")
		apiErr.RateLimited = true
		return apiErr
	}
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) {
		apiErr := newAPIError(respErr.Response, respErr.Message, respErr.DocumentationURL)
		var details []string
		for _, detail := range respErr.Errors {
			switch {
			case detail.Message != "":
				details = append(details, detail.Message)
			case detail.Field != "":
				details = append(details, detail.Field+" "+detail.Code)
			}
		}
		if len(details) > 0 {
			apiErr.Message += " (" + strings.Join(details, "; ") + ")"
		}
		return apiErr
	}
	return err
}

func newAPIError(resp *http.Response, message, docs string) *APIError {
	apiErr := &APIError{Message: strings.TrimSpace(message), DocumentationURL: docs}
	if resp != nil {
		apiErr.StatusCode = resp.StatusCode
		if resp.Request != nil {
			apiErr.Method = resp.Request.Method
			apiErr.Path = resp.Request.URL.Path
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(apiErr.StatusCode)
	}
	return apiErr
}
