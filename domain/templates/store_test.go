package templates

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 50, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestLoadAll_ConventionalNames(t *testing.T) {
	dir := t.TempDir()
	for _, s := range []string{"W", "A", "S", "D"} {
		writePNG(t, filepath.Join(dir, s+".png"), 12, 10)
	}
	got, err := NewStore(dir, []string{"A", "D", "S", "W"}, nil).LoadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 templates, got %d", len(got))
	}
	if b := got["W"].Bounds(); b.Dx() != 12 || b.Dy() != 10 {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func TestLoadAll_PartialSetReportsMissing(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "W.png"), 8, 8)
	got, err := NewStore(dir, []string{"S", "W"}, nil).LoadAll()
	if err == nil {
		t.Fatalf("expected an error for the missing symbol")
	}
	if !strings.Contains(err.Error(), "symbol S") {
		t.Fatalf("error should name the missing symbol: %v", err)
	}
	if _, ok := got["W"]; !ok || len(got) != 1 {
		t.Fatalf("expected the loaded subset, got %v", got)
	}
}

func TestLoadAll_Manifest(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "up.png"), 9, 9)
	manifest := "templates:\n  - symbol: W\n    path: up.png\n  - symbol: A\n    path: left.png\n"
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewStore(dir, []string{"A", "W"}, nil).LoadAll()
	if err == nil || !strings.Contains(err.Error(), "symbol A") {
		t.Fatalf("expected error naming A, got %v", err)
	}
	if _, ok := got["W"]; !ok {
		t.Fatalf("W should load through the manifest path")
	}
}

func TestLoadAll_Empty(t *testing.T) {
	got, err := NewStore(t.TempDir(), []string{"W"}, nil).LoadAll()
	if !errors.Is(err, ErrNoTemplates) {
		t.Fatalf("expected ErrNoTemplates, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map")
	}
}

func TestLoadAll_BadManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte("templates: [:"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(dir, nil, nil).LoadAll(); err == nil {
		t.Fatalf("expected parse error")
	}
}
