// Package templates loads the symbol images the detector matches against.
package templates

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soocke/keyprompt-bot/domain/capture"
)

// ManifestName is the optional manifest file inside the template directory.
const ManifestName = "templates.yaml"

// ErrNoTemplates is returned when no template could be loaded at all.
var ErrNoTemplates = errors.New("templates: no templates loaded")

// Entry maps a symbol to an image file relative to the template directory.
type Entry struct {
	Symbol string `yaml:"symbol"`
	Path   string `yaml:"path"`
}

// Manifest is the YAML document listing the templates.
type Manifest struct {
	Templates []Entry `yaml:"templates"`
}

// Store reads templates from a directory.
type Store struct {
	Dir     string
	Symbols []string // required symbols
	logger  *slog.Logger
}

// NewStore returns a store for dir that expects every symbol in symbols.
func NewStore(dir string, symbols []string, logger *slog.Logger) *Store {
	return &Store{Dir: dir, Symbols: symbols, logger: logger}
}

// LoadAll loads every template listed by the manifest, or <SYMBOL>.png for
// each required symbol when there is no manifest. Symbols that fail to load
// are reported in the joined error; the returned map holds the rest.
func (s *Store) LoadAll() (map[string]*image.Gray, error) {
	entries, err := s.entries()
	if err != nil {
		return map[string]*image.Gray{}, err
	}
	out := make(map[string]*image.Gray, len(entries))
	var errs []error
	for _, e := range entries {
		img, err := loadGray(filepath.Join(s.Dir, e.Path))
		if err != nil {
			errs = append(errs, fmt.Errorf("templates: symbol %s: %w", e.Symbol, err))
			continue
		}
		out[e.Symbol] = img
		if s.logger != nil {
			s.logger.Debug("template loaded", "symbol", e.Symbol, "width", img.Rect.Dx(), "height", img.Rect.Dy())
		}
	}
	for _, sym := range s.Symbols {
		if _, ok := out[sym]; !ok && !listed(entries, sym) {
			errs = append(errs, fmt.Errorf("templates: symbol %s: not listed in %s", sym, ManifestName))
		}
	}
	if len(out) == 0 {
		errs = append(errs, ErrNoTemplates)
	}
	return out, errors.Join(errs...)
}

func (s *Store) entries() ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, ManifestName))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("templates: read manifest: %w", err)
		}
		entries := make([]Entry, 0, len(s.Symbols))
		for _, sym := range s.Symbols {
			entries = append(entries, Entry{Symbol: sym, Path: strings.ToUpper(sym) + ".png"})
		}
		return entries, nil
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("templates: parse manifest: %w", err)
	}
	entries := m.Templates[:0:0]
	for _, e := range m.Templates {
		if e.Symbol == "" || e.Path == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func listed(entries []Entry, sym string) bool {
	for _, e := range entries {
		if e.Symbol == sym {
			return true
		}
	}
	return false
}

func loadGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	g := capture.ToGray(img)
	if g.Rect.Empty() {
		return nil, fmt.Errorf("decode %s: empty image", filepath.Base(path))
	}
	return g, nil
}
