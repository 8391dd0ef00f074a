// Package content defines the submittable content kinds and the form each
// kind is filled through.
//
// A Kind knows its repository directory and accepted file extensions. A Form
// carries the user-entered fields plus the chosen files; Prefill copies
// extracted metadata into empty fields, Validate enforces per-kind rules
// (semantic versions, image dimensions, size limits), and RepoFiles lays the
// files out under the repository directory for the derived identifier.
package content
