package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"mdepub/internal/epub"
	"mdepub/internal/markdown"
)

// ConvertOptions holds the options for one document conversion. All
// state is explicit; there is no process-wide configuration.
type ConvertOptions struct {
	InputDir     string
	OutputPath   string // default: InputDir with .epub extension
	SplitLevel   int    // chapter split heading level; <= 0 selects per-document minimum
	MaxImageDim  int    // maximum image dimension in pixels; <= 0 selects the default
	JPEGQuality  int
	MetadataPath string // metadata sidecar; default: InputDir/metadata.json
	Prompter     Prompter
	Logger       *slog.Logger
}

// Pipeline converts one directory of Markdown files into a single EPUB.
// The stages run strictly sequentially: chapter boundaries need the
// whole parse, and the manifest needs every chapter's final asset
// references. Only image optimization fans out internally.
type Pipeline struct {
	opts ConvertOptions
	log  *slog.Logger
}

// NewPipeline creates a conversion pipeline with defaulted options.
func NewPipeline(opts ConvertOptions) *Pipeline {
	if opts.OutputPath == "" {
		opts.OutputPath = strings.TrimSuffix(opts.InputDir, string(os.PathSeparator)) + ".epub"
	}
	if opts.MetadataPath == "" {
		opts.MetadataPath = filepath.Join(opts.InputDir, "metadata.json")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{opts: opts, log: log}
}

// chapterDoc is one chapter with its package-internal identity.
type chapterDoc struct {
	id    string
	href  string
	title string
	body  []byte
}

// Convert runs the pipeline. Everything is composed and validated in
// memory first; the archive is written only at the very end, so an
// aborted or failed run never leaves a partial file on disk.
func (p *Pipeline) Convert(ctx context.Context) error {
	files, err := discoverMarkdown(p.opts.InputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("converter: no markdown files in %s", p.opts.InputDir)
	}

	chapters, err := p.collectChapters(ctx, files)
	if err != nil {
		return err
	}

	assets := NewAssetStore(p.opts.InputDir, p.opts.MaxImageDim, p.opts.JPEGQuality, p.log)
	var refs []string
	for _, ch := range chapters {
		refs = append(refs, imageRefs(ch.Blocks)...)
	}
	assets.ResolveAll(refs, 0)

	partial, err := LoadSidecar(p.opts.MetadataPath)
	if err != nil {
		return err
	}
	meta, err := CollectMetadata(partial, p.opts.Prompter, filepath.Base(p.opts.InputDir))
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	renderer := NewRenderer(assets, meta.Language, p.log)
	docs := make([]chapterDoc, len(chapters))
	for i, ch := range chapters {
		docs[i] = chapterDoc{
			id:    fmt.Sprintf("s%05d", i),
			href:  fmt.Sprintf("s%05d-%s.xhtml", i, slugify(ch.Title)),
			title: ch.Title,
			body:  renderer.RenderChapter(ch),
		}
	}

	pkg := buildPackage(meta, docs, assets.Assets())
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := pkg.WriteFile(p.opts.OutputPath); err != nil {
		return err
	}

	p.log.Info("conversion complete",
		"input", p.opts.InputDir,
		"output", p.opts.OutputPath,
		"chapters", len(docs),
		"images", len(assets.Assets()))
	return nil
}

// collectChapters parses and splits every input file. Chapter order
// follows file name order, then heading order within each file; indices
// are global across files.
func (p *Pipeline) collectChapters(ctx context.Context, files []string) ([]markdown.Chapter, error) {
	var out []markdown.Chapter
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("converter: read %s: %w", file, err)
		}
		doc := markdown.Parse(src)
		for _, ch := range markdown.Split(doc, p.opts.SplitLevel) {
			if ch.Title == "" {
				// Heading-free document: one chapter named after the file.
				ch.Title = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}
			ch.Index = len(out)
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("converter: input produced no chapters")
	}
	return out, nil
}

// buildPackage composes the complete in-memory package. Registration
// order here fixes the archive layout: navigation documents and the
// stylesheet first, then chapters, then images.
func buildPackage(meta epub.Metadata, docs []chapterDoc, assets []*ImageAsset) *epub.Package {
	pkg := epub.NewPackage(meta)

	pkg.AppendSpine("titlepage", "Cover", "titlepage.xhtml")
	for _, d := range docs {
		pkg.AppendSpine(d.id, d.title, d.href)
	}

	pkg.AddItem(epub.ManifestItem{ID: "ncx", Href: "toc.ncx", MediaType: epub.MediaTypeNCX}, pkg.BuildNCX())
	pkg.AddItem(epub.ManifestItem{ID: "nav", Href: "nav.xhtml", MediaType: epub.MediaTypeXHTML, Properties: "nav"}, pkg.BuildNav())
	pkg.AddItem(epub.ManifestItem{ID: "css", Href: "css/style.css", MediaType: epub.MediaTypeCSS}, []byte(epub.DefaultCSS))
	pkg.AddItem(epub.ManifestItem{ID: "titlepage", Href: "titlepage.xhtml", MediaType: epub.MediaTypeXHTML}, pkg.BuildTitlePage())
	pkg.SetCover("titlepage")

	for _, d := range docs {
		pkg.AddItem(epub.ManifestItem{ID: d.id, Href: d.href, MediaType: epub.MediaTypeXHTML}, d.body)
	}
	for i, asset := range assets {
		pkg.AddItem(epub.ManifestItem{
			ID:        fmt.Sprintf("image-%04d", i),
			Href:      asset.TargetPath,
			MediaType: asset.MediaType,
		}, asset.Data)
	}
	return pkg
}

// discoverMarkdown lists the input directory's Markdown files sorted by
// name. File name order is the document order contract with the
// upstream extraction step.
func discoverMarkdown(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("converter: read input directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// imageRefs walks blocks collecting every image reference, used to warm
// the asset store before rendering.
func imageRefs(blocks []markdown.Block) []string {
	var refs []string
	for _, b := range blocks {
		switch n := b.(type) {
		case *markdown.Image:
			refs = append(refs, n.Target)
		case *markdown.Paragraph:
			refs = append(refs, inlineImageRefs(n.Inlines)...)
		case *markdown.Heading:
			refs = append(refs, inlineImageRefs(n.Inlines)...)
		case *markdown.Blockquote:
			refs = append(refs, imageRefs(n.Blocks)...)
		case *markdown.List:
			for _, item := range n.Items {
				refs = append(refs, imageRefs(item.Blocks)...)
			}
		case *markdown.Table:
			for _, cell := range n.Header {
				refs = append(refs, inlineImageRefs(cell.Inlines)...)
			}
			for _, row := range n.Rows {
				for _, cell := range row {
					refs = append(refs, inlineImageRefs(cell.Inlines)...)
				}
			}
		}
	}
	return refs
}

func inlineImageRefs(inlines []markdown.Inline) []string {
	var refs []string
	for _, in := range inlines {
		switch n := in.(type) {
		case *markdown.InlineImage:
			refs = append(refs, n.Target)
		case *markdown.Emphasis:
			refs = append(refs, inlineImageRefs(n.Inlines)...)
		case *markdown.Strong:
			refs = append(refs, inlineImageRefs(n.Inlines)...)
		case *markdown.Strike:
			refs = append(refs, inlineImageRefs(n.Inlines)...)
		case *markdown.Link:
			refs = append(refs, inlineImageRefs(n.Inlines)...)
		}
	}
	return refs
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a readable file name fragment from a chapter title.
// Uniqueness comes from the sequence-index prefix, never from the slug.
func slugify(title string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = strings.Trim(s[:40], "-")
	}
	if s == "" {
		return "chapter"
	}
	return s
}
