package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxObjectBytes bounds the length of a single embedded JSON candidate.
const MaxObjectBytes = 64 << 10

// ErrNoMetadata indicates no embedded JSON object with recognized keys was found.
var ErrNoMetadata = errors.New("no embedded metadata found")

// Metadata holds the fields recognized in an embedded JSON object.
type Metadata struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name,omitempty"`
	Author      string         `json:"author,omitempty"`
	Version     string         `json:"version,omitempty"`
	Description string         `json:"description,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	// Offset is the byte position of the object's opening brace.
	Offset int `json:"offset"`
}

var recognizedKeys = map[string]struct{}{
	"id":          {},
	"name":        {},
	"title":       {},
	"author":      {},
	"creator":     {},
	"version":     {},
	"description": {},
}

// Extract locates the first embedded JSON object, by opening position, that
// carries at least one recognized top-level key. Objects longer than
// MaxObjectBytes are ignored, as are candidates containing raw control bytes
// inside a string.
//
// The input is scanned once. Open braces are kept on a stack together with
// whether a recognized key was seen at their level; only those candidates are
// decoded. A candidate that is not valid JSON poisons its enclosing braces,
// since a valid object never contains an invalid one.
func Extract(data []byte) (*Metadata, error) {
	var (
		stack    []frame
		best     *Metadata
		inString bool
		escaped  bool
		key      keyScan
	)
	// done reports whether no brace still open could beat best.
	done := func() bool {
		return best != nil && (len(stack) == 0 || stack[0].open > best.Offset)
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		if len(stack) == 0 {
			if c == '{' {
				stack = append(stack, frame{open: i})
				key = keyScan{}
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
				key.maybe = true
			case c == '"':
				inString = false
				key.ready = true
			case c < 0x20 && c != '\t':
				// Raw control bytes cannot appear in a JSON string; this is binary noise.
				stack = stack[:0]
				inString = false
				if done() {
					return best, nil
				}
			default:
				key.add(c)
			}
			continue
		}

		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '"':
			inString = true
			key = keyScan{}
			continue
		case ':':
			if key.recognized() {
				stack[len(stack)-1].hasKey = true
			}
		case '{':
			for len(stack) > 0 && !fits(stack[0].open, i+1) {
				stack = stack[1:]
			}
			stack = append(stack, frame{open: i})
			if done() {
				return best, nil
			}
		case '}':
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !fits(top.open, i) {
				stack = stack[:0]
			} else if top.invalid {
				markInvalid(stack)
			} else if top.hasKey && (best == nil || top.open < best.Offset) {
				candidate := data[top.open : i+1]
				if !json.Valid(candidate) {
					markInvalid(stack)
				} else if meta, ok := decodeCandidate(candidate); ok {
					meta.Offset = top.open
					best = meta
				}
			}
			if done() {
				return best, nil
			}
		}
		key = keyScan{}
	}
	if best != nil {
		return best, nil
	}
	return nil, ErrNoMetadata
}

// ExtractFile reads at most maxBytes from path and runs Extract on them.
func ExtractFile(path string, maxBytes int64) (*Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := io.Reader(file)
	if maxBytes > 0 {
		reader = io.LimitReader(file, maxBytes)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Extract(data)
}

// frame is an open brace awaiting its match.
type frame struct {
	open    int
	hasKey  bool
	invalid bool
}

func fits(open, end int) bool {
	return end-open+1 <= MaxObjectBytes
}

func markInvalid(stack []frame) {
	if len(stack) > 0 {
		stack[len(stack)-1].invalid = true
	}
}

// keyScan holds the lowercased prefix of the last string literal so a
// following ':' can tell whether it named a recognized key. Escapes and
// non-ASCII bytes make the match undecidable here, so they count as a hit and
// leave the decision to decodeCandidate.
type keyScan struct {
	buf   [16]byte
	n     int
	long  bool
	maybe bool
	ready bool
}

func (k *keyScan) add(c byte) {
	if c >= 0x80 {
		k.maybe = true
	}
	if k.n == len(k.buf) {
		k.long = true
		return
	}
	if 'A' <= c && c <= 'Z' {
		c += 'a' - 'A'
	}
	k.buf[k.n] = c
	k.n++
}

func (k *keyScan) recognized() bool {
	if !k.ready {
		return false
	}
	if k.maybe {
		return true
	}
	if k.long {
		return false
	}
	_, ok := recognizedKeys[string(k.buf[:k.n])]
	return ok
}

func decodeCandidate(candidate []byte) (*Metadata, bool) {
	var raw map[string]any
	if err := json.Unmarshal(candidate, &raw); err != nil {
		return nil, false
	}

	found := false
	for key := range raw {
		if _, ok := recognizedKeys[strings.ToLower(key)]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	meta := &Metadata{
		ID:          firstString(raw, "id"),
		Name:        firstString(raw, "name", "title"),
		Author:      firstString(raw, "author", "creator"),
		Version:     firstString(raw, "version"),
		Description: firstString(raw, "description"),
	}
	for key, value := range raw {
		if _, ok := recognizedKeys[strings.ToLower(key)]; ok {
			continue
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]any)
		}
		meta.Extra[key] = value
	}
	return meta, true
}

// firstString returns the first non-empty value among keys, matched case-insensitively.
func firstString(raw map[string]any, keys ...string) string {
	for _, want := range keys {
		for key, value := range raw {
			if !strings.EqualFold(key, want) {
				continue
			}
			if s := stringValue(value); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
