package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"mdepub/internal/epub"
)

// Errors reported by AssetStore.Resolve. Callers degrade the referencing
// image to literal text instead of aborting the run.
var (
	// ErrAssetNotFound indicates the referenced source file does not exist.
	ErrAssetNotFound = errors.New("converter: image asset not found")

	// ErrUnsupportedImageFormat indicates content sniffing could not
	// classify the file as a supported raster format.
	ErrUnsupportedImageFormat = errors.New("converter: unsupported image format")
)

// ImageAsset is one image admitted into the package: its optimized
// bytes plus the package-internal target path it was assigned.
type ImageAsset struct {
	SourcePath string // path relative to the input directory
	TargetPath string // package-internal path (images/...)
	MediaType  string
	Data       []byte
	Width      int
	Height     int
}

// AssetStore resolves image references against an input directory,
// optimizing and renaming each source image exactly once. Resolution is
// idempotent: repeated references to one source yield one cached asset.
// The zero value is not usable; create stores with NewAssetStore.
type AssetStore struct {
	baseDir string
	opt     *imageOptimizer
	log     *slog.Logger

	mu      sync.Mutex
	entries map[string]*assetEntry
	order   []*assetEntry

	optimizations int // number of optimization passes actually run
}

type assetEntry struct {
	ref  string // cleaned source reference
	seq  int    // encounter order, drives the target name
	once sync.Once
	out  *ImageAsset
	err  error
}

// NewAssetStore creates an asset store rooted at baseDir. maxDim bounds
// the larger image dimension (<= 0 selects the default); quality is the
// JPEG re-encode quality.
func NewAssetStore(baseDir string, maxDim, quality int, log *slog.Logger) *AssetStore {
	if log == nil {
		log = slog.Default()
	}
	return &AssetStore{
		baseDir: baseDir,
		opt:     newImageOptimizer(maxDim, quality),
		log:     log,
		entries: make(map[string]*assetEntry),
	}
}

// Resolve returns the ImageAsset for a Markdown image reference. The
// first resolution of a given source reads, sniffs and optimizes the
// file and assigns a stable target name derived from encounter order;
// later resolutions return the cached result, errors included.
func (s *AssetStore) Resolve(ref string) (*ImageAsset, error) {
	cleaned, ok := cleanReference(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, ref)
	}
	e := s.entry(cleaned)
	e.once.Do(func() { s.load(e) })
	return e.out, e.err
}

// ResolveAll warms the store for a set of references, optimizing
// distinct images concurrently. Target names are assigned in reference
// order before any work starts, so concurrency never changes the
// reference-to-name mapping. Per-reference results are identical to
// sequential Resolve calls.
func (s *AssetStore) ResolveAll(refs []string, workers int) {
	if workers <= 0 {
		workers = 4
	}
	var pending []*assetEntry
	for _, ref := range refs {
		cleaned, ok := cleanReference(ref)
		if !ok {
			continue
		}
		pending = append(pending, s.entry(cleaned))
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, e := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(e *assetEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			e.once.Do(func() { s.load(e) })
		}(e)
	}
	wg.Wait()
}

// Assets returns the successfully resolved assets in encounter order.
func (s *AssetStore) Assets() []*ImageAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ImageAsset, 0, len(s.order))
	for _, e := range s.order {
		if e.err == nil && e.out != nil {
			out = append(out, e.out)
		}
	}
	return out
}

// entry returns the cached entry for a cleaned reference, creating it
// (and fixing its encounter order) on first sight.
func (s *AssetStore) entry(cleaned string) *assetEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[cleaned]; ok {
		return e
	}
	e := &assetEntry{ref: cleaned, seq: len(s.entries)}
	s.entries[cleaned] = e
	s.order = append(s.order, e)
	return e
}

// load performs the at-most-once side effect for an entry: read, sniff,
// optimize, name. Runs inside the entry's sync.Once.
func (s *AssetStore) load(e *assetEntry) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(e.ref))
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			e.err = fmt.Errorf("%w: %s", ErrAssetNotFound, e.ref)
		} else {
			e.err = fmt.Errorf("%w: %s: %v", ErrAssetNotFound, e.ref, err)
		}
		return
	}

	opt, err := s.opt.optimize(data)
	if err != nil {
		e.err = fmt.Errorf("%w: %s", err, e.ref)
		return
	}
	s.mu.Lock()
	s.optimizations++
	s.mu.Unlock()
	if opt.Warning != "" {
		s.log.Warn("image optimization degraded", "ref", e.ref, "reason", opt.Warning)
	}

	e.out = &ImageAsset{
		SourcePath: e.ref,
		TargetPath: fmt.Sprintf("images/img-%04d.%s", e.seq, formatExtension(opt.Format)),
		MediaType:  formatMediaType(opt.Format),
		Data:       opt.Data,
		Width:      opt.Width,
		Height:     opt.Height,
	}
}

// cleanReference normalizes a Markdown image destination into a safe
// slash path relative to the input directory. Remote URLs and paths
// escaping the input directory are rejected.
func cleanReference(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return "", false
	}
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	if i := strings.IndexAny(ref, "#?"); i >= 0 {
		ref = ref[:i]
	}
	cleaned := path.Clean(filepath.ToSlash(ref))
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "/") ||
		cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

func formatExtension(format string) string {
	switch format {
	case "png":
		return "png"
	case "gif":
		return "gif"
	default:
		return "jpg"
	}
}

func formatMediaType(format string) string {
	switch format {
	case "png":
		return epub.MediaTypePNG
	case "gif":
		return epub.MediaTypeGIF
	default:
		return epub.MediaTypeJPEG
	}
}
