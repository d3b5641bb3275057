package converter

import (
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"mdepub/internal/markdown"
)

// Renderer turns chapter blocks into standalone XHTML documents. EPUB
// readers parse each chapter as strict XML, so every text run and
// attribute value passes through entity escaping here and void elements
// are self-closed; nothing is left for the packager to repair.
type Renderer struct {
	assets *AssetStore
	lang   string
	log    *slog.Logger
}

// NewRenderer creates a renderer resolving image references through
// assets. lang is the xml:lang of the generated documents.
func NewRenderer(assets *AssetStore, lang string, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{assets: assets, lang: lang, log: log}
}

// RenderChapter renders one chapter into a complete XHTML document
// linked to the package stylesheet.
func (r *Renderer) RenderChapter(ch markdown.Chapter) []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml"`)
	fmt.Fprintf(&b, " xml:lang=\"%s\" lang=\"%s\">\n", esc(r.lang), esc(r.lang))
	b.WriteString("<head>\n<title>")
	b.WriteString(esc(ch.Title))
	b.WriteString("</title>\n")
	b.WriteString(`<link rel="stylesheet" href="css/style.css" type="text/css"/>` + "\n")
	b.WriteString("</head>\n<body>\n")
	r.writeBlocks(&b, ch.Blocks)
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}

func (r *Renderer) writeBlocks(b *strings.Builder, blocks []markdown.Block) {
	for _, block := range blocks {
		r.writeBlock(b, block)
	}
}

func (r *Renderer) writeBlock(b *strings.Builder, block markdown.Block) {
	switch n := block.(type) {
	case *markdown.Heading:
		fmt.Fprintf(b, "<h%d>", n.Level)
		r.writeInlines(b, n.Inlines)
		fmt.Fprintf(b, "</h%d>\n", n.Level)

	case *markdown.Paragraph:
		b.WriteString("<p>")
		r.writeInlines(b, n.Inlines)
		b.WriteString("</p>\n")

	case *markdown.CodeBlock:
		b.WriteString("<pre><code")
		if class := languageClass(n.Lang); class != "" {
			fmt.Fprintf(b, " class=\"%s\"", class)
		}
		b.WriteString(">")
		b.WriteString(esc(n.Text))
		b.WriteString("</code></pre>\n")

	case *markdown.List:
		r.writeList(b, n)

	case *markdown.Table:
		r.writeTable(b, n)

	case *markdown.Image:
		r.writeImage(b, n.Alt, n.Target, n.Title, true)

	case *markdown.Blockquote:
		b.WriteString("<blockquote>\n")
		r.writeBlocks(b, n.Blocks)
		b.WriteString("</blockquote>\n")

	case *markdown.ThematicBreak:
		b.WriteString("<hr/>\n")
	}
}

func (r *Renderer) writeList(b *strings.Builder, list *markdown.List) {
	tag := "ul"
	if list.Ordered {
		tag = "ol"
	}
	b.WriteString("<" + tag)
	if list.Ordered && list.Start > 1 {
		fmt.Fprintf(b, " start=\"%d\"", list.Start)
	}
	b.WriteString(">\n")
	for _, item := range list.Items {
		b.WriteString("<li>")
		r.writeBlocks(b, item.Blocks)
		b.WriteString("</li>\n")
	}
	b.WriteString("</" + tag + ">\n")
}

// writeTable always emits an explicit header row; rows arrive from the
// parser already normalized to the header width.
func (r *Renderer) writeTable(b *strings.Builder, table *markdown.Table) {
	b.WriteString("<table>\n<thead>\n<tr>")
	for _, cell := range table.Header {
		b.WriteString("<th>")
		r.writeInlines(b, cell.Inlines)
		b.WriteString("</th>")
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, row := range table.Rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			r.writeInlines(b, cell.Inlines)
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
}

// writeImage rewrites an image reference to its AssetStore target path.
// A reference that cannot be resolved keeps the original Markdown image
// syntax as inert escaped text; the run continues.
func (r *Renderer) writeImage(b *strings.Builder, alt, target, title string, block bool) {
	asset, err := r.assets.Resolve(target)
	if err != nil {
		r.log.Warn("image reference degraded to text", "ref", target, "error", err)
		literal := esc(fmt.Sprintf("![%s](%s)", alt, target))
		if block {
			b.WriteString("<p>" + literal + "</p>\n")
		} else {
			b.WriteString(literal)
		}
		return
	}

	var img strings.Builder
	fmt.Fprintf(&img, "<img src=\"%s\" alt=\"%s\"", esc(asset.TargetPath), esc(alt))
	if title != "" {
		fmt.Fprintf(&img, " title=\"%s\"", esc(title))
	}
	img.WriteString("/>")
	if block {
		b.WriteString("<p>" + img.String() + "</p>\n")
	} else {
		b.WriteString(img.String())
	}
}

func (r *Renderer) writeInlines(b *strings.Builder, inlines []markdown.Inline) {
	for _, in := range inlines {
		switch n := in.(type) {
		case *markdown.Text:
			b.WriteString(esc(n.Text))
		case *markdown.Emphasis:
			b.WriteString("<em>")
			r.writeInlines(b, n.Inlines)
			b.WriteString("</em>")
		case *markdown.Strong:
			b.WriteString("<strong>")
			r.writeInlines(b, n.Inlines)
			b.WriteString("</strong>")
		case *markdown.Strike:
			b.WriteString("<del>")
			r.writeInlines(b, n.Inlines)
			b.WriteString("</del>")
		case *markdown.CodeSpan:
			b.WriteString("<code>" + esc(n.Text) + "</code>")
		case *markdown.Link:
			fmt.Fprintf(b, "<a href=\"%s\">", esc(n.Target))
			r.writeInlines(b, n.Inlines)
			b.WriteString("</a>")
		case *markdown.InlineImage:
			r.writeImage(b, n.Alt, n.Target, n.Title, false)
		case *markdown.HardBreak:
			b.WriteString("<br/>")
		}
	}
}

var languageTokenRe = regexp.MustCompile(`^[A-Za-z0-9_+.#-]+$`)

// languageClass turns a code fence info string into a class hint,
// dropping anything that could not appear safely in an attribute.
func languageClass(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" || !languageTokenRe.MatchString(lang) {
		return ""
	}
	return "language-" + strings.ToLower(lang)
}

// esc entity-escapes text for XML content and attribute values.
func esc(s string) string {
	return html.EscapeString(s)
}
