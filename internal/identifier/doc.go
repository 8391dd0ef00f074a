// Package identifier derives canonical content identifiers and detects
// duplicates.
//
// Slug folds a display string into a lowercase ASCII token (diacritics are
// stripped through Unicode decomposition). Derive picks the source string for
// a submission, preferring an explicit id embedded in the file. Checker
// compares a derived identifier against the remote manifest and the local
// queue and reports collisions as *DuplicateError values that match
// ErrDuplicate.
package identifier
