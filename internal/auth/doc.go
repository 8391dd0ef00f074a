// Package auth obtains and stores the GitHub access token used for
// submissions.
//
// Flow runs the OAuth web application flow with PKCE against a loopback
// redirect. Manager loads the stored token (or GITHUB_TOKEN from the
// environment) and builds authenticated HTTP clients through x/oauth2.
package auth
