package epub

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Package is the in-memory representation of a complete EPUB before it is
// materialized to an archive. Items, content and the spine are composed
// first, validated as a whole, and only then written out. A Package is not
// safe for concurrent use.
type Package struct {
	Metadata Metadata

	items   []ManifestItem
	files   map[string][]byte // href -> content
	spine   []string          // manifest ids in reading order
	nav     []NavEntry
	coverID string // manifest id of the title page, if any
}

// NewPackage creates an empty package with the given metadata.
func NewPackage(meta Metadata) *Package {
	return &Package{
		Metadata: meta,
		files:    make(map[string][]byte),
	}
}

// AddItem registers a manifest item together with its content.
// Items are written to the archive in registration order.
func (p *Package) AddItem(item ManifestItem, content []byte) {
	p.items = append(p.items, item)
	p.files[item.Href] = content
}

// AppendSpine appends a manifest id to the spine and records the matching
// navigation entry. Keeping both in one call is what guarantees that
// navigation order always equals spine order.
func (p *Package) AppendSpine(id, title, href string) {
	p.spine = append(p.spine, id)
	p.nav = append(p.nav, NavEntry{Title: title, Href: href})
}

// SetCover marks the manifest id of the title page document. It is
// referenced from the OPF guide and placed first in the spine by the
// caller.
func (p *Package) SetCover(id string) {
	p.coverID = id
}

// Items returns the manifest items in registration order.
func (p *Package) Items() []ManifestItem {
	return p.items
}

// Spine returns the spine ids in reading order.
func (p *Package) Spine() []string {
	return p.spine
}

// Nav returns the navigation entries, one per spine chapter.
func (p *Package) Nav() []NavEntry {
	return p.nav
}

// File returns the content registered for an href.
func (p *Package) File(href string) ([]byte, bool) {
	data, ok := p.files[href]
	return data, ok
}

func (p *Package) itemByID(id string) (ManifestItem, bool) {
	for _, it := range p.items {
		if it.ID == id {
			return it, true
		}
	}
	return ManifestItem{}, false
}

// Validate checks the package for internal consistency. It must pass
// before any archive bytes are written: a partially written invalid
// archive is worse than no archive.
func (p *Package) Validate() error {
	if len(p.spine) == 0 {
		return ErrEmptySpine
	}
	if p.Metadata.Title == "" || len(p.Metadata.Authors) == 0 || p.Metadata.Identifier == "" {
		return fmt.Errorf("%w: title, author and identifier are required", ErrIncompleteMetadata)
	}

	seen := make(map[string]ManifestItem, len(p.items))
	hrefs := make(map[string]bool, len(p.items))
	for _, it := range p.items {
		if prev, dup := seen[it.ID]; dup {
			return &IntegrityError{ID: it.ID, Path: prev.Href, Reason: "manifest id collision"}
		}
		seen[it.ID] = it
		hrefs[it.Href] = true
		if _, ok := p.files[it.Href]; !ok {
			return &IntegrityError{ID: it.ID, Path: it.Href, Reason: "manifest item has no content"}
		}
	}

	for _, id := range p.spine {
		it, ok := seen[id]
		if !ok {
			return &IntegrityError{ID: id, Reason: "spine references missing manifest item"}
		}
		if err := p.checkChapterImages(it, hrefs); err != nil {
			return err
		}
	}
	if len(p.nav) != len(p.spine) {
		return &IntegrityError{Reason: "navigation entry count differs from spine"}
	}
	return nil
}

// checkChapterImages parses a spine chapter and verifies that every img
// src resolves to a manifest href. A dangling reference would render as a
// broken image in every reader, so it is rejected up front.
func (p *Package) checkChapterImages(it ManifestItem, hrefs map[string]bool) error {
	data := p.files[it.Href]
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return &IntegrityError{ID: it.ID, Path: it.Href, Reason: fmt.Sprintf("chapter is not parseable: %v", err)}
	}

	var verr error
	doc.Find("img[src]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if !hrefs[src] {
			verr = &IntegrityError{ID: it.ID, Path: src, Reason: "chapter references image missing from manifest"}
			return false
		}
		return true
	})
	return verr
}
