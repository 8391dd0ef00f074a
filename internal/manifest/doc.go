// Package manifest fetches and queries the content repository's manifest.
//
// The manifest enumerates every published entry per content kind and is the
// reference for duplicate detection. It is served as JSON or YAML; Client
// picks the decoder from the URL extension or the response content type.
package manifest
