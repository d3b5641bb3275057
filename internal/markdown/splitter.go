package markdown

// Chapter is a contiguous slice of a Document starting at a qualifying
// heading (or the start of the document) and ending before the next
// qualifying heading. Chapters are created once from an immutable
// Document and never mutated afterwards.
type Chapter struct {
	Index  int    // 0-based order within the document
	Title  string // leading heading text, or a generated placeholder
	Blocks []Block
}

// FrontMatterTitle is the placeholder title of the synthetic chapter
// holding content that appears before the first qualifying heading.
const FrontMatterTitle = "Front Matter"

// MinHeadingLevel returns the smallest heading level present in doc, or
// 0 when the document has no headings.
func MinHeadingLevel(doc *Document) int {
	min := 0
	for _, b := range doc.Blocks {
		if h, ok := b.(*Heading); ok {
			if min == 0 || h.Level < min {
				min = h.Level
			}
		}
	}
	return min
}

// Split partitions doc into chapters. Every heading at level <= level
// starts a new chapter; level <= 0 selects the document's minimum
// heading level. Content before the first qualifying heading becomes a
// synthetic front-matter chapter if non-empty. A document with no
// headings yields exactly one chapter with an empty title (callers
// substitute their own placeholder). Two adjacent qualifying headings
// each start their own, possibly empty-bodied, chapter.
//
// Concatenating the chapters' blocks in index order reproduces
// doc.Blocks exactly: no block is dropped or duplicated.
func Split(doc *Document, level int) []Chapter {
	if level <= 0 {
		level = MinHeadingLevel(doc)
	}
	if level == 0 {
		// No headings at all: the whole document is one chapter.
		if len(doc.Blocks) == 0 {
			return nil
		}
		return []Chapter{{Index: 0, Blocks: doc.Blocks}}
	}

	var chapters []Chapter
	start := 0
	for i, b := range doc.Blocks {
		h, ok := b.(*Heading)
		if !ok || h.Level > level {
			continue
		}
		if i > start {
			chapters = appendChapter(chapters, doc.Blocks[start:i], level)
		}
		start = i
	}
	if start < len(doc.Blocks) {
		chapters = appendChapter(chapters, doc.Blocks[start:], level)
	}
	return chapters
}

// appendChapter closes one chunk of blocks as a chapter. A chunk opening
// at a qualifying heading takes that heading's text as its title; the
// only other possible chunk is the leading front-matter one.
func appendChapter(chapters []Chapter, blocks []Block, level int) []Chapter {
	ch := Chapter{Index: len(chapters), Blocks: blocks}
	if h, ok := blocks[0].(*Heading); ok && h.Level <= level {
		ch.Title = PlainText(h.Inlines)
	} else {
		ch.Title = FrontMatterTitle
	}
	return append(chapters, ch)
}
