package content

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"

	"themesubmit/internal/metadata"
)

// Limits bounds what Validate accepts.
type Limits struct {
	MaxFileBytes        int64
	MinBackgroundWidth  int
	MinBackgroundHeight int
	MaxDescriptionRunes int
}

// Attachment is a file chosen in the form, held in memory.
type Attachment struct {
	// Name is the original base file name.
	Name string
	Data []byte
}

// Ext returns the lowercased extension of the attachment name.
func (a Attachment) Ext() string {
	return strings.ToLower(filepath.Ext(a.Name))
}

// ReadAttachment loads path, refusing files larger than maxBytes.
func ReadAttachment(filePath string, maxBytes int64) (Attachment, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Attachment{}, &ValidationError{Problems: []FieldError{{Field: "file", Message: fmt.Sprintf("%s does not exist", filePath)}}}
		}
		return Attachment{}, fmt.Errorf("inspect %s: %w", filePath, err)
	}
	if info.IsDir() {
		return Attachment{}, &ValidationError{Problems: []FieldError{{Field: "file", Message: fmt.Sprintf("%s is a directory", filePath)}}}
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Attachment{}, &ValidationError{Problems: []FieldError{{
			Field:   "file",
			Message: fmt.Sprintf("%s is %d bytes, limit is %d", filepath.Base(filePath), info.Size(), maxBytes),
		}}}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return Attachment{}, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	reader := io.Reader(file)
	if maxBytes > 0 {
		// One extra byte detects files that grew after Stat.
		reader = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return Attachment{}, fmt.Errorf("read %s: %w", filePath, err)
	}
	return Attachment{Name: filepath.Base(filePath), Data: data}, nil
}

// Form holds the fields of one submission.
type Form struct {
	Kind        Kind
	File        Attachment
	Preview     *Attachment
	Name        string
	Author      string
	Version     string
	Description string
	// Update requests replacement of an existing entry with the same identifier.
	Update bool

	// Metadata is the object extracted from File, when any.
	Metadata *metadata.Metadata
	// Image is populated by Validate for backgrounds.
	Image *metadata.Image
}

// Prefill copies extracted metadata into fields the user left empty. For
// kinds without embedded metadata the name falls back to the file name.
func (f *Form) Prefill(meta *metadata.Metadata) {
	if meta != nil {
		f.Metadata = meta
		if strings.TrimSpace(f.Name) == "" {
			f.Name = meta.Name
		}
		if strings.TrimSpace(f.Author) == "" {
			f.Author = meta.Author
		}
		if strings.TrimSpace(f.Version) == "" {
			f.Version = meta.Version
		}
		if strings.TrimSpace(f.Description) == "" {
			f.Description = meta.Description
		}
	}
	if strings.TrimSpace(f.Name) == "" {
		f.Name = metadata.NameFromFilename(f.File.Name)
	}
}

// Validate checks the form against the per-kind rules and normalizes its
// fields. All problems are reported together in a *ValidationError.
func (f *Form) Validate(limits Limits) error {
	var problems []FieldError
	add := func(field, format string, args ...any) {
		problems = append(problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !f.Kind.Valid() {
		add("kind", "unknown content kind %q", f.Kind)
		return &ValidationError{Problems: problems}
	}

	f.Name = collapseSpace(f.Name)
	f.Author = collapseSpace(f.Author)
	f.Description = strings.TrimSpace(f.Description)
	f.Version = strings.TrimSpace(f.Version)

	if f.Name == "" {
		add("name", "is required")
	} else if utf8.RuneCountInString(f.Name) > 80 {
		add("name", "must be at most 80 characters")
	}
	if f.Author == "" {
		add("author", "is required")
	}
	if limits.MaxDescriptionRunes > 0 && utf8.RuneCountInString(f.Description) > limits.MaxDescriptionRunes {
		add("description", "must be at most %d characters", limits.MaxDescriptionRunes)
	}

	switch {
	case f.Version == "" && f.Kind.RequiresVersion():
		add("version", "is required for a %s", f.Kind.Label())
	case f.Version != "":
		v, err := semver.NewVersion(f.Version)
		if err != nil {
			add("version", "%q is not a semantic version", f.Version)
		} else {
			f.Version = v.String()
		}
	}

	switch {
	case len(f.File.Data) == 0:
		add("file", "is required and must not be empty")
	case !f.Kind.Accepts(f.File.Name):
		add("file", "%s: extension must be one of %s", f.File.Name, strings.Join(f.Kind.Extensions(), ", "))
	case limits.MaxFileBytes > 0 && int64(len(f.File.Data)) > limits.MaxFileBytes:
		add("file", "%s exceeds %d bytes", f.File.Name, limits.MaxFileBytes)
	case f.Kind == KindBackground:
		info, err := metadata.ImageInfo(f.File.Data)
		if err != nil {
			add("file", "%s is not a readable image", f.File.Name)
			break
		}
		if !formatMatches(f.File.Name, info.Format) {
			add("file", "%s contains %s data, which does not match its extension", f.File.Name, info.Format)
			break
		}
		f.Image = &info
		if info.Width < limits.MinBackgroundWidth || info.Height < limits.MinBackgroundHeight {
			add("file", "%s is %dx%d, minimum is %dx%d", f.File.Name, info.Width, info.Height, limits.MinBackgroundWidth, limits.MinBackgroundHeight)
		}
	}

	if f.Preview != nil {
		switch {
		case !f.Kind.AcceptsPreview():
			add("preview", "a %s does not take a separate preview", f.Kind.Label())
		case !isImagePath(f.Preview.Name):
			add("preview", "%s: extension must be one of %s", f.Preview.Name, strings.Join(PreviewExtensions(), ", "))
		case limits.MaxFileBytes > 0 && int64(len(f.Preview.Data)) > limits.MaxFileBytes:
			add("preview", "%s exceeds %d bytes", f.Preview.Name, limits.MaxFileBytes)
		default:
			info, err := metadata.ImageInfo(f.Preview.Data)
			switch {
			case err != nil:
				add("preview", "%s is not a readable image", f.Preview.Name)
			case !formatMatches(f.Preview.Name, info.Format):
				add("preview", "%s contains %s data, which does not match its extension", f.Preview.Name, info.Format)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// RepoFile is a file placed at a repository path.
type RepoFile struct {
	Path       string
	SourceName string
	Data       []byte
}

// RepoFiles lays out the form's files for identifier id. Backgrounds live
// directly in their directory; other kinds get a directory per identifier
// holding the package and an optional preview.
func (f *Form) RepoFiles(id string) []RepoFile {
	dir := f.Kind.Dir()
	if f.Kind == KindBackground {
		return []RepoFile{{
			Path:       path.Join(dir, id+f.File.Ext()),
			SourceName: f.File.Name,
			Data:       f.File.Data,
		}}
	}
	files := []RepoFile{{
		Path:       path.Join(dir, id, id+f.File.Ext()),
		SourceName: f.File.Name,
		Data:       f.File.Data,
	}}
	if f.Preview != nil {
		files = append(files, RepoFile{
			Path:       path.Join(dir, id, "preview"+f.Preview.Ext()),
			SourceName: f.Preview.Name,
			Data:       f.Preview.Data,
		})
	}
	return files
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
