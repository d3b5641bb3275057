package converter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"mdepub/internal/epub"
)

// defaultLanguage is used when no language code is supplied.
const defaultLanguage = "en"

// Prompter supplies values for metadata fields left blank by the sidecar.
// The CLI provides an interactive stdin implementation; a nil Prompter
// skips prompting and goes straight to defaults.
type Prompter interface {
	Prompt(field, label string) (string, error)
}

// sidecarRecord is the optional JSON metadata sidecar. The flat keys are
// the documented shape; the nested "metadata" object with Dublin Core
// keys is the legacy shape emitted by earlier tooling and is still
// accepted.
type sidecarRecord struct {
	Title      string            `json:"title"`
	Author     string            `json:"author"`
	Language   string            `json:"language"`
	Identifier string            `json:"identifier"`
	Date       string            `json:"date"`
	Legacy     map[string]string `json:"metadata"`
}

// LoadSidecar reads a metadata sidecar file. A missing file is not an
// error: it yields an empty record for CollectMetadata to fill.
func LoadSidecar(path string) (epub.Metadata, error) {
	var meta epub.Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return meta, fmt.Errorf("converter: read metadata sidecar: %w", err)
	}

	var rec sidecarRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return meta, fmt.Errorf("converter: parse metadata sidecar: %w", err)
	}

	meta.Title = firstNonEmpty(rec.Title, rec.Legacy["dc:title"])
	meta.Language = firstNonEmpty(rec.Language, rec.Legacy["dc:language"])
	meta.Identifier = firstNonEmpty(rec.Identifier, rec.Legacy["dc:identifier"])
	meta.Date = firstNonEmpty(rec.Date, rec.Legacy["dc:date"])
	if author := firstNonEmpty(rec.Author, rec.Legacy["dc:creator"]); author != "" {
		meta.Authors = []string{author}
	}
	return meta, nil
}

// CollectMetadata completes a partial metadata record. Blank fields are
// offered to the Prompter first; whatever remains blank receives its
// documented default: language "en", identifier a freshly generated
// UUID (and therefore different on every run unless supplied), date the
// current UTC date, title the fallback name, author "Unknown". The
// returned record always validates; ErrIncompleteMetadata is a
// defensive check for a field gaining no default in the future.
func CollectMetadata(partial epub.Metadata, p Prompter, fallbackTitle string) (epub.Metadata, error) {
	meta := partial

	if p != nil {
		if meta.Title == "" {
			if v, err := p.Prompt("title", "Book title"); err == nil {
				meta.Title = strings.TrimSpace(v)
			}
		}
		if len(meta.Authors) == 0 {
			if v, err := p.Prompt("author", "Author(s)"); err == nil {
				if v = strings.TrimSpace(v); v != "" {
					meta.Authors = []string{v}
				}
			}
		}
		if meta.Language == "" {
			if v, err := p.Prompt("language", "Language code"); err == nil {
				meta.Language = strings.TrimSpace(v)
			}
		}
	}

	if meta.Title == "" {
		meta.Title = fallbackTitle
	}
	if meta.Title == "" {
		meta.Title = "Untitled"
	}
	if len(meta.Authors) == 0 {
		meta.Authors = []string{"Unknown"}
	}
	if meta.Language == "" {
		meta.Language = defaultLanguage
	}
	if meta.Identifier == "" {
		meta.Identifier = "urn:uuid:" + uuid.NewString()
	}
	if meta.Date == "" {
		meta.Date = time.Now().UTC().Format("2006-01-02")
	}

	if meta.Title == "" || len(meta.Authors) == 0 {
		return meta, epub.ErrIncompleteMetadata
	}
	return meta, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
