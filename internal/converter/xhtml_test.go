package converter

import (
	"bytes"
	"encoding/xml"
	"image/color"
	"io"
	"strings"
	"testing"

	"mdepub/internal/markdown"
)

func renderSource(t *testing.T, dir, src string) string {
	t.Helper()
	doc := markdown.Parse([]byte(src))
	chapters := markdown.Split(doc, 0)
	if len(chapters) != 1 {
		t.Fatalf("test source split into %d chapters, want 1", len(chapters))
	}
	r := NewRenderer(NewAssetStore(dir, 0, 0, discardLogger()), "en", discardLogger())
	return string(r.RenderChapter(chapters[0]))
}

// requireWellFormed runs the output through an XML token stream; EPUB
// readers are strict XML parsers, so any escaping or nesting slip shows
// up here.
func requireWellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader([]byte(doc)))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("output is not well-formed XML: %v\n%s", err, doc)
		}
	}
}

func TestRenderChapter_WellFormed(t *testing.T) {
	src := "# Title & <Friends>\n\n" +
		"a < b & \"c\"\n\n" +
		"```go\nif a < b { return \"x\" }\n```\n\n" +
		"| h1 | h2 |\n|----|----|\n| a | b |\n\n" +
		"- one\n- two\n\n" +
		"> quoted\n\n" +
		"---\n"
	out := renderSource(t, t.TempDir(), src)
	requireWellFormed(t, out)
}

func TestRenderChapter_EscapesText(t *testing.T) {
	out := renderSource(t, t.TempDir(), "a < b & \"c\"\n")
	if strings.Contains(out, "a < b") {
		t.Fatalf("unescaped text in output:\n%s", out)
	}
	if !strings.Contains(out, "a &lt; b &amp; &#34;c&#34;") {
		t.Fatalf("escaped text missing:\n%s", out)
	}
}

func TestRenderChapter_CodeBlockKeepsLanguage(t *testing.T) {
	out := renderSource(t, t.TempDir(), "```go\nfunc f() {}\n```\n")
	if !strings.Contains(out, `<pre><code class="language-go">`) {
		t.Fatalf("language class missing:\n%s", out)
	}
}

func TestRenderChapter_TableHasHeader(t *testing.T) {
	out := renderSource(t, t.TempDir(), "| a | b |\n|---|---|\n| 1 | 2 |\n")
	if !strings.Contains(out, "<thead>") || !strings.Contains(out, "<th>a</th>") {
		t.Fatalf("table header missing:\n%s", out)
	}
	if !strings.Contains(out, "<td>1</td>") {
		t.Fatalf("table body missing:\n%s", out)
	}
}

func TestRenderChapter_ImageRewrittenToTargetPath(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "images/fig.jpg", mustEncodeJPEG(t, makeSolidNRGBA(10, 10, color.NRGBA{7, 7, 7, 255})))

	out := renderSource(t, dir, "![a diagram](images/fig.jpg)\n")
	if !strings.Contains(out, `<img src="images/img-0000.jpg" alt="a diagram"/>`) {
		t.Fatalf("rewritten image missing:\n%s", out)
	}
	requireWellFormed(t, out)
}

func TestRenderChapter_MissingImageDegradesToText(t *testing.T) {
	out := renderSource(t, t.TempDir(), "![fig](images/missing.png)\n")
	if strings.Contains(out, "<img") {
		t.Fatalf("missing image must not produce an img element:\n%s", out)
	}
	if !strings.Contains(out, "<p>![fig](images/missing.png)</p>") {
		t.Fatalf("literal fallback missing:\n%s", out)
	}
	requireWellFormed(t, out)
}

func TestRenderChapter_InlineMarkup(t *testing.T) {
	out := renderSource(t, t.TempDir(), "*em* **strong** `code` [x](https://example.com) ~~gone~~\n")
	for _, want := range []string{
		"<em>em</em>",
		"<strong>strong</strong>",
		"<code>code</code>",
		`<a href="https://example.com">x</a>`,
		"<del>gone</del>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLanguageClass(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"go", "language-go"},
		{"C++", "language-c++"},
		{"", ""},
		{`x" onload="evil`, ""},
		{"py thon", ""},
	}
	for _, tt := range tests {
		if got := languageClass(tt.lang); got != tt.want {
			t.Errorf("languageClass(%q) = %q, want %q", tt.lang, got, tt.want)
		}
	}
}
