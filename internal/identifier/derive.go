package identifier

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"themesubmit/internal/metadata"
)

// MaxLength caps the byte length of a derived identifier.
const MaxLength = 64

// ErrEmpty indicates no usable characters remained after slugging.
var ErrEmpty = errors.New("identifier is empty after normalization")

// Slug lowercases s, strips diacritics, and collapses every run of characters
// outside [a-z0-9] into a single '-'. The result never starts or ends with '-'
// and is at most MaxLength bytes.
func Slug(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	out := b.String()
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// Derive returns the canonical identifier for a submission. An explicit id in
// the embedded metadata wins, then the metadata name, then fallbackName.
func Derive(meta *metadata.Metadata, fallbackName string) (string, error) {
	var candidates []string
	if meta != nil {
		candidates = append(candidates, meta.ID, meta.Name)
	}
	candidates = append(candidates, fallbackName)
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if id := Slug(candidate); id != "" {
			return id, nil
		}
	}
	return "", ErrEmpty
}
