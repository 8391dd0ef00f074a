// Package metadata pulls display metadata out of submitted asset files.
//
// Style packages and coverflow bundles are opaque containers that carry a
// JSON object somewhere inside them. Extract scans the raw bytes for that
// object by brace matching and returns the recognized fields. Background
// images carry no JSON; ImageInfo reads their header for format and
// dimensions and NameFromFilename derives a display name from the file name.
package metadata
