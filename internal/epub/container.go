package epub

import (
	"fmt"
	"strings"
)

// ContainerXML returns the fixed META-INF/container.xml boilerplate
// pointing at the package document.
func ContainerXML() []byte {
	return []byte(xmlDecl +
		`<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">` + "\n" +
		"<rootfiles>\n" +
		`<rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>` + "\n" +
		"</rootfiles>\n</container>\n")
}

// BuildTitlePage renders a simple generated cover page carrying the book
// title and authors.
func (p *Package) BuildTitlePage() []byte {
	m := p.Metadata
	var b strings.Builder
	b.WriteString(xmlDecl)
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml"`)
	fmt.Fprintf(&b, " xml:lang=\"%s\" lang=\"%s\">\n", esc(m.Language), esc(m.Language))
	b.WriteString("<head>\n<title>")
	b.WriteString(esc(m.Title))
	b.WriteString("</title>\n")
	b.WriteString(`<link rel="stylesheet" href="css/style.css" type="text/css"/>` + "\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(`<div class="title">` + esc(m.Title) + "</div>\n")
	for _, author := range m.Authors {
		b.WriteString(`<div class="authors">` + esc(author) + "</div>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}

// DefaultCSS is the stylesheet embedded in every generated package and
// linked from each chapter and the title page.
const DefaultCSS = `@page { margin: 5%; }
html { font-size: 100%; }
body {
  margin: 0 auto;
  max-width: 45em;
  padding: 0.5em 1em;
  text-align: justify;
  font-family: serif;
  line-height: 1.5;
}
h1, h2, h3, h4, h5, h6 {
  text-align: left;
  line-height: 1.2;
  margin: 1.5em 0 0.5em 0;
}
h1 { font-size: 1.5em; margin-top: 2em; }
h2 { font-size: 1.3em; }
h3 { font-size: 1.2em; }
p { margin: 0.75em 0; }
pre {
  font-family: monospace;
  white-space: pre-wrap;
  background: #f4f4f4;
  padding: 0.5em;
}
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #999; padding: 0.3em 0.6em; }
blockquote { margin: 1em 2em; font-style: italic; }
img {
  max-width: 100%;
  height: auto;
  display: block;
  margin: 1em auto;
}
.title {
  font-size: 1.8em;
  font-weight: bold;
  text-align: center;
  margin: 2em 0 1em 0;
}
.authors {
  font-size: 1.1em;
  text-align: center;
  font-style: italic;
  margin-bottom: 2em;
}
`
