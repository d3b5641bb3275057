package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// WriteTo validates the package and writes the archive to w. The archive
// layout is fixed: the uncompressed mimetype entry first, then
// META-INF/container.xml, then the package document, then every manifest
// item in registration order. Nothing is written if validation fails.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	cw := &countWriter{w: w}
	zw := zip.NewWriter(cw)

	// The mimetype entry must be the first entry and must be stored
	// without compression so readers can sniff it at a fixed offset.
	mt, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return cw.n, fmt.Errorf("epub: create mimetype entry: %w", err)
	}
	if _, err := mt.Write([]byte(mimetypeContent)); err != nil {
		return cw.n, fmt.Errorf("epub: write mimetype entry: %w", err)
	}

	entries := []struct {
		name string
		data []byte
	}{
		{"META-INF/container.xml", ContainerXML()},
		{"OEBPS/content.opf", p.BuildOPF()},
	}
	for _, it := range p.items {
		entries = append(entries, struct {
			name string
			data []byte
		}{"OEBPS/" + it.Href, p.files[it.Href]})
	}

	for _, e := range entries {
		f, err := zw.Create(e.name)
		if err != nil {
			return cw.n, fmt.Errorf("epub: create entry %s: %w", e.name, err)
		}
		if _, err := f.Write(e.data); err != nil {
			return cw.n, fmt.Errorf("epub: write entry %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("epub: finalize archive: %w", err)
	}
	return cw.n, nil
}

// WriteFile materializes the package to path. The file is created only
// after in-memory validation passes, so an aborted run never leaves a
// partial archive on disk.
func (p *Package) WriteFile(path string) error {
	if err := p.Validate(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("epub: create output file: %w", err)
	}

	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
