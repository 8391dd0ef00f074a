// Package config loads, normalizes, and validates themesubmit configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// THEMESUBMIT_CLIENT_ID and THEMESUBMIT_CLIENT_SECRET. The Config type
// centralizes the target repository, GitHub OAuth application, local state
// directories and submission limits so the CLI can resolve everything in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, a derived manifest URL, and clear validation errors.
package config
