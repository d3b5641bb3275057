package epub

import (
	"fmt"
	"html"
	"strings"
)

// Media types used throughout the package.
const (
	MediaTypeXHTML = "application/xhtml+xml"
	MediaTypeNCX   = "application/x-dtbncx+xml"
	MediaTypeCSS   = "text/css"
	MediaTypeJPEG  = "image/jpeg"
	MediaTypePNG   = "image/png"
	MediaTypeGIF   = "image/gif"

	mimetypeContent = "application/epub+zip"
)

// BuildOPF renders the package document (content.opf). The manifest lists
// every item in registration order; the spine lists chapter ids in reading
// order. The output is deterministic: identical package state produces
// byte-identical OPF.
func (p *Package) BuildOPF() []byte {
	var b strings.Builder
	b.WriteString(xmlDecl)
	b.WriteString(`<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">` + "\n")

	p.writeOPFMetadata(&b)
	p.writeOPFManifest(&b)
	p.writeOPFSpine(&b)
	p.writeOPFGuide(&b)

	b.WriteString("</package>\n")
	return []byte(b.String())
}

func (p *Package) writeOPFMetadata(b *strings.Builder) {
	m := p.Metadata
	b.WriteString(`<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">` + "\n")
	fmt.Fprintf(b, "<dc:identifier id=\"pub-id\">%s</dc:identifier>\n", esc(m.Identifier))
	fmt.Fprintf(b, "<dc:title>%s</dc:title>\n", esc(m.Title))
	for _, author := range m.Authors {
		fmt.Fprintf(b, "<dc:creator>%s</dc:creator>\n", esc(author))
	}
	fmt.Fprintf(b, "<dc:language>%s</dc:language>\n", esc(m.Language))
	if m.Date != "" {
		fmt.Fprintf(b, "<dc:date>%s</dc:date>\n", esc(m.Date))
		// Derived from the supplied date, not the wall clock, so identical
		// metadata always yields identical bytes.
		fmt.Fprintf(b, "<meta property=\"dcterms:modified\">%sT00:00:00Z</meta>\n", esc(m.Date))
	}
	b.WriteString("</metadata>\n")
}

func (p *Package) writeOPFManifest(b *strings.Builder) {
	b.WriteString("<manifest>\n")
	for _, it := range p.items {
		fmt.Fprintf(b, "<item id=\"%s\" href=\"%s\" media-type=\"%s\"", esc(it.ID), esc(it.Href), esc(it.MediaType))
		if it.Properties != "" {
			fmt.Fprintf(b, " properties=\"%s\"", esc(it.Properties))
		}
		b.WriteString("/>\n")
	}
	b.WriteString("</manifest>\n")
}

func (p *Package) writeOPFSpine(b *strings.Builder) {
	b.WriteString(`<spine toc="ncx">` + "\n")
	for _, id := range p.spine {
		fmt.Fprintf(b, "<itemref idref=\"%s\" linear=\"yes\"/>\n", esc(id))
	}
	b.WriteString("</spine>\n")
}

func (p *Package) writeOPFGuide(b *strings.Builder) {
	if p.coverID == "" {
		return
	}
	it, ok := p.itemByID(p.coverID)
	if !ok {
		return
	}
	b.WriteString("<guide>\n")
	fmt.Fprintf(b, "<reference type=\"cover\" title=\"Cover\" href=\"%s\"/>\n", esc(it.Href))
	b.WriteString("</guide>\n")
}

const xmlDecl = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"

// esc entity-escapes text for use in XML content and attribute values.
// html.EscapeString covers the five XML-sensitive characters with
// XML-valid entity and numeric references.
func esc(s string) string {
	return html.EscapeString(s)
}
