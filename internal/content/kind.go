package content

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies a content type accepted by the repository.
type Kind string

const (
	KindBackground Kind = "background"
	KindStyle      Kind = "style"
	KindCoverflow  Kind = "coverflow"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindBackground, KindStyle, KindCoverflow}

var (
	imageExtensions = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}}

	// imageFormats maps an image extension to the format name image.DecodeConfig reports.
	imageFormats = map[string]string{".png": "png", ".jpg": "jpeg", ".jpeg": "jpeg"}

	kindExtensions = map[Kind]map[string]struct{}{
		KindBackground: imageExtensions,
		KindStyle:      {".style": {}, ".zip": {}},
		KindCoverflow:  {".cfb": {}, ".zip": {}},
	}

	kindDirs = map[Kind]string{
		KindBackground: "backgrounds",
		KindStyle:      "styles",
		KindCoverflow:  "coverflow",
	}

	kindLabels = map[Kind]string{
		KindBackground: "background",
		KindStyle:      "visual style",
		KindCoverflow:  "coverflow bundle",
	}
)

// ParseKind resolves a kind name, accepting the repository directory names too.
func ParseKind(value string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, kind := range Kinds {
		if normalized == string(kind) || normalized == kindDirs[kind] {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown content kind %q (want one of %s)", value, strings.Join(kindNames(), ", "))
}

func kindNames() []string {
	names := make([]string, 0, len(Kinds))
	for _, kind := range Kinds {
		names = append(names, string(kind))
	}
	return names
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	_, ok := kindDirs[k]
	return ok
}

// Dir returns the repository directory holding entries of this kind.
func (k Kind) Dir() string {
	return kindDirs[k]
}

// Label returns a human-readable name.
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return string(k)
}

// HasEmbeddedMetadata reports whether files of this kind carry a JSON object.
func (k Kind) HasEmbeddedMetadata() bool {
	return k == KindStyle || k == KindCoverflow
}

// RequiresVersion reports whether submissions of this kind need a version.
func (k Kind) RequiresVersion() bool {
	return k.HasEmbeddedMetadata()
}

// AcceptsPreview reports whether a separate preview image may be attached.
func (k Kind) AcceptsPreview() bool {
	return k.HasEmbeddedMetadata()
}

// Extensions returns the accepted file extensions in sorted order.
func (k Kind) Extensions() []string {
	return sortedKeys(kindExtensions[k])
}

// Accepts reports whether path has an extension accepted for this kind.
func (k Kind) Accepts(path string) bool {
	_, ok := kindExtensions[k][strings.ToLower(filepath.Ext(path))]
	return ok
}

// PreviewExtensions returns accepted preview image extensions.
func PreviewExtensions() []string {
	return sortedKeys(imageExtensions)
}

// formatMatches reports whether a decoded image format agrees with the
// extension of path.
func formatMatches(path, format string) bool {
	return imageFormats[strings.ToLower(filepath.Ext(path))] == format
}

func isImagePath(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
