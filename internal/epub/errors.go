package epub

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the epub package.
var (
	// ErrEmptySpine indicates the package has no spine entries and
	// therefore no readable content.
	ErrEmptySpine = errors.New("epub: package has empty spine")

	// ErrIncompleteMetadata indicates a metadata field had no value and
	// no viable default. Every required field currently has a default,
	// so this is a defensive check.
	ErrIncompleteMetadata = errors.New("epub: incomplete metadata")
)

// IntegrityError reports an internal inconsistency detected before any
// archive bytes are written: a manifest id collision, a spine entry with
// no manifest item, a manifest item with no content, or a chapter image
// reference that no manifest item covers.
type IntegrityError struct {
	ID     string // offending manifest or spine id, if known
	Path   string // offending package-internal path, if known
	Reason string
}

func (e *IntegrityError) Error() string {
	switch {
	case e.ID != "" && e.Path != "":
		return fmt.Sprintf("epub: integrity: %s (id %q, path %q)", e.Reason, e.ID, e.Path)
	case e.ID != "":
		return fmt.Sprintf("epub: integrity: %s (id %q)", e.Reason, e.ID)
	case e.Path != "":
		return fmt.Sprintf("epub: integrity: %s (path %q)", e.Reason, e.Path)
	default:
		return fmt.Sprintf("epub: integrity: %s", e.Reason)
	}
}
