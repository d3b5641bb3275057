package epub

import (
	"fmt"
	"strings"
)

// BuildNav renders the EPUB3 navigation document (nav.xhtml). It is
// generated from the same spine-ordered entries as the NCX, so the two
// documents can never disagree about reading order.
func (p *Package) BuildNav() []byte {
	var b strings.Builder
	b.WriteString(xmlDecl)
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops"`)
	fmt.Fprintf(&b, " xml:lang=\"%s\" lang=\"%s\">\n", esc(p.Metadata.Language), esc(p.Metadata.Language))
	b.WriteString("<head>\n<title>Contents</title>\n</head>\n<body>\n")
	b.WriteString(`<nav epub:type="toc" role="doc-toc" id="toc">` + "\n<h2>Contents</h2>\n<ol>\n")
	for _, entry := range p.nav {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", esc(entry.Href), esc(entry.Title))
	}
	b.WriteString("</ol>\n</nav>\n</body>\n</html>\n")
	return []byte(b.String())
}

// BuildNCX renders the legacy NCX navigation document kept for EPUB2
// reader compatibility. Entries mirror the spine one-to-one.
func (p *Package) BuildNCX() []byte {
	var b strings.Builder
	b.WriteString(xmlDecl)
	b.WriteString(`<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1"`)
	fmt.Fprintf(&b, " xml:lang=\"%s\">\n", esc(p.Metadata.Language))
	b.WriteString("<head>\n")
	fmt.Fprintf(&b, "<meta name=\"dtb:uid\" content=\"%s\"/>\n", esc(p.Metadata.Identifier))
	b.WriteString("<meta name=\"dtb:depth\" content=\"1\"/>\n")
	b.WriteString("</head>\n")
	fmt.Fprintf(&b, "<docTitle><text>%s</text></docTitle>\n", esc(p.Metadata.Title))
	b.WriteString("<navMap>\n")
	for i, entry := range p.nav {
		fmt.Fprintf(&b, "<navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", i+1, i+1)
		fmt.Fprintf(&b, "<navLabel><text>%s</text></navLabel>\n", esc(entry.Title))
		fmt.Fprintf(&b, "<content src=\"%s\"/>\n", esc(entry.Href))
		b.WriteString("</navPoint>\n")
	}
	b.WriteString("</navMap>\n</ncx>\n")
	return []byte(b.String())
}
