package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Parse converts raw Markdown text into a Document. It is a pure
// function: the same input always yields an identical block sequence.
// Parsing never fails; constructs the grammar cannot place are degraded
// to plain paragraphs, unterminated code fences are closed at end of
// input, and malformed table rows are padded or truncated to the header
// column count.
func Parse(src []byte) *Document {
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	root := md.Parser().Parse(text.NewReader(src))
	return &Document{Blocks: convertChildren(root, src)}
}

func convertChildren(parent ast.Node, src []byte) []Block {
	var out []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b := convertBlock(n, src); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func convertBlock(n ast.Node, src []byte) Block {
	switch node := n.(type) {
	case *ast.Heading:
		level := node.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return &Heading{Level: level, Inlines: convertInlines(node, src)}

	case *ast.Paragraph:
		return paragraphOrImage(convertInlines(node, src))

	case *ast.TextBlock:
		return paragraphOrImage(convertInlines(node, src))

	case *ast.FencedCodeBlock:
		return &CodeBlock{
			Lang: string(node.Language(src)),
			Text: blockLines(node, src),
		}

	case *ast.CodeBlock:
		return &CodeBlock{Text: blockLines(node, src)}

	case *ast.Blockquote:
		return &Blockquote{Blocks: convertChildren(node, src)}

	case *ast.List:
		return convertList(node, src)

	case *ast.ThematicBreak:
		return &ThematicBreak{}

	case *ast.HTMLBlock:
		// Raw HTML cannot be carried into strict-XML chapters; it is
		// kept as literal paragraph text.
		raw := strings.TrimSpace(blockLines(node, src))
		if raw == "" {
			return nil
		}
		return &Paragraph{Inlines: []Inline{&Text{Text: raw}}}

	case *extast.Table:
		return convertTable(node, src)

	default:
		inlines := convertInlines(node, src)
		if len(inlines) == 0 {
			return nil
		}
		return &Paragraph{Inlines: inlines}
	}
}

// paragraphOrImage promotes a paragraph consisting of a single image to
// a standalone Image block.
func paragraphOrImage(inlines []Inline) Block {
	if len(inlines) == 0 {
		return nil
	}
	var img *InlineImage
	for _, in := range inlines {
		switch n := in.(type) {
		case *InlineImage:
			if img != nil {
				return &Paragraph{Inlines: inlines}
			}
			img = n
		case *Text:
			if strings.TrimSpace(n.Text) != "" {
				return &Paragraph{Inlines: inlines}
			}
		default:
			return &Paragraph{Inlines: inlines}
		}
	}
	if img == nil {
		return &Paragraph{Inlines: inlines}
	}
	return &Image{Alt: img.Alt, Target: img.Target, Title: img.Title}
}

func convertList(node *ast.List, src []byte) Block {
	list := &List{Ordered: node.IsOrdered(), Start: node.Start}
	for li := node.FirstChild(); li != nil; li = li.NextSibling() {
		list.Items = append(list.Items, ListItem{Blocks: convertChildren(li, src)})
	}
	return list
}

func convertTable(node *extast.Table, src []byte) Block {
	table := &Table{}
	for row := node.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []TableCell
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, TableCell{Inlines: convertInlines(cell, src)})
		}
		if _, ok := row.(*extast.TableHeader); ok {
			table.Header = cells
			continue
		}
		table.Rows = append(table.Rows, normalizeRow(cells, len(table.Header)))
	}
	return table
}

// normalizeRow repairs a row with the wrong cell count: short rows are
// padded with empty cells, long rows truncated to the header width.
func normalizeRow(cells []TableCell, width int) []TableCell {
	if width <= 0 || len(cells) == width {
		return cells
	}
	if len(cells) > width {
		return cells[:width]
	}
	for len(cells) < width {
		cells = append(cells, TableCell{})
	}
	return cells
}

func convertInlines(parent ast.Node, src []byte) []Inline {
	var out []Inline
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, convertInline(n, src)...)
	}
	return out
}

func convertInline(n ast.Node, src []byte) []Inline {
	switch node := n.(type) {
	case *ast.Text:
		txt := string(node.Value(src))
		if node.HardLineBreak() {
			return []Inline{&Text{Text: txt}, &HardBreak{}}
		}
		if node.SoftLineBreak() {
			txt += "\n"
		}
		return []Inline{&Text{Text: txt}}

	case *ast.String:
		return []Inline{&Text{Text: string(node.Value)}}

	case *ast.Emphasis:
		children := convertInlines(node, src)
		if node.Level >= 2 {
			return []Inline{&Strong{Inlines: children}}
		}
		return []Inline{&Emphasis{Inlines: children}}

	case *extast.Strikethrough:
		return []Inline{&Strike{Inlines: convertInlines(node, src)}}

	case *ast.CodeSpan:
		return []Inline{&CodeSpan{Text: nodeText(node, src)}}

	case *ast.Link:
		return []Inline{&Link{
			Target:  string(node.Destination),
			Inlines: convertInlines(node, src),
		}}

	case *ast.AutoLink:
		url := string(node.URL(src))
		return []Inline{&Link{
			Target:  url,
			Inlines: []Inline{&Text{Text: string(node.Label(src))}},
		}}

	case *ast.Image:
		return []Inline{&InlineImage{
			Alt:    nodeText(node, src),
			Target: string(node.Destination),
			Title:  string(node.Title),
		}}

	case *ast.RawHTML:
		// Inline HTML becomes literal text; the renderer escapes it.
		var buf bytes.Buffer
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			buf.Write(seg.Value(src))
		}
		return []Inline{&Text{Text: buf.String()}}

	default:
		txt := nodeText(n, src)
		if txt == "" {
			return nil
		}
		return []Inline{&Text{Text: txt}}
	}
}

// blockLines concatenates the raw source lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

// nodeText collects the literal text of a node and its descendants.
func nodeText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	collectText(&buf, n, src)
	return buf.String()
}

func collectText(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Value(src))
		case *ast.String:
			buf.Write(node.Value)
		default:
			collectText(buf, c, src)
		}
	}
}
