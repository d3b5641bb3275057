package converter

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mustEncodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func mustEncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeAsset(t *testing.T, dir, rel string, data []byte) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestAssetStore_ResolveIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "images/fig.jpg", mustEncodeJPEG(t, makeSolidNRGBA(50, 40, color.NRGBA{200, 10, 10, 255})))

	s := NewAssetStore(dir, 0, 0, discardLogger())
	first, err := s.Resolve("images/fig.jpg")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := s.Resolve("images/fig.jpg")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first != second {
		t.Fatal("repeated resolution should return the cached asset")
	}
	if s.optimizations != 1 {
		t.Fatalf("optimization ran %d times, want 1", s.optimizations)
	}
	if len(s.Assets()) != 1 {
		t.Fatalf("store holds %d assets, want 1", len(s.Assets()))
	}
}

func TestAssetStore_ResolveAllStableNames(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "images/a.jpg", mustEncodeJPEG(t, makeSolidNRGBA(10, 10, color.NRGBA{1, 2, 3, 255})))
	writeAsset(t, dir, "images/b.jpg", mustEncodeJPEG(t, makeSolidNRGBA(10, 10, color.NRGBA{4, 5, 6, 255})))

	s := NewAssetStore(dir, 0, 0, discardLogger())
	s.ResolveAll([]string{"images/a.jpg", "images/b.jpg", "images/a.jpg"}, 8)

	a, err := s.Resolve("images/a.jpg")
	if err != nil {
		t.Fatalf("Resolve a: %v", err)
	}
	b, err := s.Resolve("images/b.jpg")
	if err != nil {
		t.Fatalf("Resolve b: %v", err)
	}
	if a.TargetPath != "images/img-0000.jpg" {
		t.Fatalf("a target = %q, want images/img-0000.jpg", a.TargetPath)
	}
	if b.TargetPath != "images/img-0001.jpg" {
		t.Fatalf("b target = %q, want images/img-0001.jpg", b.TargetPath)
	}
	assets := s.Assets()
	if len(assets) != 2 || assets[0] != a || assets[1] != b {
		t.Fatalf("Assets() not in encounter order: %+v", assets)
	}
	if s.optimizations != 2 {
		t.Fatalf("optimization ran %d times, want 2", s.optimizations)
	}
}

func TestAssetStore_NotFound(t *testing.T) {
	s := NewAssetStore(t.TempDir(), 0, 0, discardLogger())
	if _, err := s.Resolve("images/missing.png"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	if len(s.Assets()) != 0 {
		t.Fatal("failed resolution must not produce an asset")
	}
}

func TestAssetStore_SniffsContentNotExtension(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "images/fake.jpg", []byte("this is not an image"))

	s := NewAssetStore(dir, 0, 0, discardLogger())
	if _, err := s.Resolve("images/fake.jpg"); !errors.Is(err, ErrUnsupportedImageFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedImageFormat", err)
	}
}

func TestAssetStore_ResizeBoundsLargerDimension(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "images/wide.jpg", mustEncodeJPEG(t, makeSolidNRGBA(2400, 1200, color.NRGBA{9, 9, 9, 255})))

	s := NewAssetStore(dir, 1200, 0, discardLogger())
	asset, err := s.Resolve("images/wide.jpg")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Width != 1200 || asset.Height != 600 {
		t.Fatalf("resized to %dx%d, want 1200x600", asset.Width, asset.Height)
	}
}

func TestAssetStore_TransparentPNGStaysPNG(t *testing.T) {
	dir := t.TempDir()
	img := makeSolidNRGBA(20, 20, color.NRGBA{0, 0, 255, 255})
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 255, 128})
	writeAsset(t, dir, "images/logo.png", mustEncodePNG(t, img))

	s := NewAssetStore(dir, 0, 0, discardLogger())
	asset, err := s.Resolve("images/logo.png")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasSuffix(asset.TargetPath, ".png") {
		t.Fatalf("target = %q, want .png (alpha must be preserved)", asset.TargetPath)
	}
}

func TestAssetStore_OpaquePNGBecomesJPEG(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "images/photo.png", mustEncodePNG(t, makeSolidNRGBA(20, 20, color.NRGBA{10, 20, 30, 255})))

	s := NewAssetStore(dir, 0, 0, discardLogger())
	asset, err := s.Resolve("images/photo.png")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasSuffix(asset.TargetPath, ".jpg") {
		t.Fatalf("target = %q, want .jpg", asset.TargetPath)
	}
}

func TestAssetStore_AnimatedGIFPassesThrough(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	anim := &gif.GIF{}
	for i := 0; i < 2; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black, color.White})
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	writeAsset(t, dir, "images/anim.gif", buf.Bytes())

	s := NewAssetStore(dir, 0, 0, discardLogger())
	asset, err := s.Resolve("images/anim.gif")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasSuffix(asset.TargetPath, ".gif") {
		t.Fatalf("target = %q, want .gif", asset.TargetPath)
	}
	if !bytes.Equal(asset.Data, buf.Bytes()) {
		t.Fatal("animated GIF must pass through unmodified")
	}
}

func TestCleanReference(t *testing.T) {
	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"images/fig.png", "images/fig.png", true},
		{"./images/fig.png", "images/fig.png", true},
		{"images/fig.png#frag", "images/fig.png", true},
		{"images/fig.png?x=1", "images/fig.png", true},
		{"images/my%20pic.png", "images/my pic.png", true},
		{"https://example.com/fig.png", "", false},
		{"/etc/passwd", "", false},
		{"../outside.png", "", false},
		{"images/../../outside.png", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := cleanReference(tt.ref)
		if ok != tt.ok || got != tt.want {
			t.Errorf("cleanReference(%q) = %q, %v; want %q, %v", tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}
