package epub

// Metadata holds the book-level metadata embedded in the package document.
type Metadata struct {
	Title      string
	Authors    []string
	Language   string // ISO 639-1 code
	Identifier string
	Date       string // YYYY-MM-DD
}

// ManifestItem represents an item in the package manifest.
type ManifestItem struct {
	ID         string
	Href       string // relative to the OEBPS directory
	MediaType  string
	Properties string // e.g. "nav", "cover-image"
}

// NavEntry is one entry of the navigation documents. Entries mirror the
// spine: one entry per content chapter, in spine order.
type NavEntry struct {
	Title string
	Href  string
}
