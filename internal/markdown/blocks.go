package markdown

import "strings"

// Document is an ordered sequence of block-level nodes. Block order is
// the sole source of reading order.
type Document struct {
	Blocks []Block
}

// Block is a block-level node of a parsed document.
type Block interface {
	blockNode()
}

// Heading is a section heading, level 1-6.
type Heading struct {
	Level   int
	Inlines []Inline
}

// Paragraph is a run of inline content.
type Paragraph struct {
	Inlines []Inline
}

// CodeBlock is a fenced or indented code block. Text is the raw,
// unescaped content; Lang is the fence info string, if any.
type CodeBlock struct {
	Lang string
	Text string
}

// List is an ordered or unordered list with possibly nested items.
type List struct {
	Ordered bool
	Start   int
	Items   []ListItem
}

// ListItem holds the blocks of a single list item.
type ListItem struct {
	Blocks []Block
}

// Table is a pipe table. Every row has exactly len(Header) cells; rows
// parsed with a different cell count are padded or truncated to match.
type Table struct {
	Header []TableCell
	Rows   [][]TableCell
}

// TableCell holds the inline content of one table cell.
type TableCell struct {
	Inlines []Inline
}

// Image is a standalone image reference (a paragraph consisting of a
// single image).
type Image struct {
	Alt    string
	Target string
	Title  string
}

// Blockquote wraps nested blocks.
type Blockquote struct {
	Blocks []Block
}

// ThematicBreak is a horizontal rule.
type ThematicBreak struct{}

func (*Heading) blockNode()       {}
func (*Paragraph) blockNode()     {}
func (*CodeBlock) blockNode()     {}
func (*List) blockNode()          {}
func (*Table) blockNode()         {}
func (*Image) blockNode()         {}
func (*Blockquote) blockNode()    {}
func (*ThematicBreak) blockNode() {}

// Inline is a span of inline content inside a block.
type Inline interface {
	inlineNode()
}

// Text is a literal text run.
type Text struct {
	Text string
}

// Emphasis is emphasized (italic) content.
type Emphasis struct {
	Inlines []Inline
}

// Strong is strongly emphasized (bold) content.
type Strong struct {
	Inlines []Inline
}

// Strike is struck-through content.
type Strike struct {
	Inlines []Inline
}

// CodeSpan is an inline code span with raw text.
type CodeSpan struct {
	Text string
}

// Link is a hyperlink around inline content.
type Link struct {
	Target  string
	Inlines []Inline
}

// InlineImage is an image reference inside mixed inline content.
type InlineImage struct {
	Alt    string
	Target string
	Title  string
}

// HardBreak is an explicit line break.
type HardBreak struct{}

func (*Text) inlineNode()        {}
func (*Emphasis) inlineNode()    {}
func (*Strong) inlineNode()      {}
func (*Strike) inlineNode()      {}
func (*CodeSpan) inlineNode()    {}
func (*Link) inlineNode()        {}
func (*InlineImage) inlineNode() {}
func (*HardBreak) inlineNode()   {}

// PlainText flattens inline content to its literal text, dropping all
// markup. Used for chapter titles and navigation labels.
func PlainText(inlines []Inline) string {
	var b strings.Builder
	writePlainText(&b, inlines)
	return strings.TrimSpace(b.String())
}

func writePlainText(b *strings.Builder, inlines []Inline) {
	for _, in := range inlines {
		switch n := in.(type) {
		case *Text:
			b.WriteString(n.Text)
		case *Emphasis:
			writePlainText(b, n.Inlines)
		case *Strong:
			writePlainText(b, n.Inlines)
		case *Strike:
			writePlainText(b, n.Inlines)
		case *CodeSpan:
			b.WriteString(n.Text)
		case *Link:
			writePlainText(b, n.Inlines)
		case *InlineImage:
			b.WriteString(n.Alt)
		case *HardBreak:
			b.WriteString(" ")
		}
	}
}
