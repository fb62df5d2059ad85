package captcha

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomonobold"
)

// Default family names. Each maps onto a bundled Go font with a similar feel.
const (
	FamilyCourier = "Courier"
	FamilyArial   = "Arial"
	FamilyVerdana = "Verdana"
	FamilyTimes   = "Times New Roman"
)

// DefaultFamilies is the family list the styler draws from when none is configured.
var DefaultFamilies = []string{FamilyCourier, FamilyArial, FamilyVerdana, FamilyTimes}

// FontRegistry maps family names to parsed TrueType fonts. It is safe for
// concurrent use, so one registry can back many sessions. Faces are not shared:
// each carries its own glyph cache and belongs to a single scene.
type FontRegistry struct {
	mu    sync.RWMutex
	fonts map[string]*truetype.Font
}

// NewFontRegistry returns an empty registry.
func NewFontRegistry() *FontRegistry {
	return &FontRegistry{fonts: make(map[string]*truetype.Font)}
}

var (
	defaultRegistry     *FontRegistry
	defaultRegistryErr  error
	defaultRegistryOnce sync.Once
)

// DefaultFontRegistry returns the shared registry holding the bundled families.
func DefaultFontRegistry() (*FontRegistry, error) {
	defaultRegistryOnce.Do(func() {
		r := NewFontRegistry()
		bundled := map[string][]byte{
			FamilyCourier: gomonobold.TTF,
			FamilyArial:   gobold.TTF,
			FamilyVerdana: gomedium.TTF,
			FamilyTimes:   gobolditalic.TTF,
		}
		for family, ttf := range bundled {
			if err := r.Register(family, ttf); err != nil {
				defaultRegistryErr = err
				return
			}
		}
		defaultRegistry = r
	})
	return defaultRegistry, defaultRegistryErr
}

// Register parses ttf and stores it under family, replacing any previous font.
func (r *FontRegistry) Register(family string, ttf []byte) error {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fonts[family] = f
	return nil
}

// LoadDir registers every .ttf file in dir under its base name without extension
// and returns the registered family names.
func (r *FontRegistry) LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read font dir: %w", err)
	}
	var families []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".ttf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return families, fmt.Errorf("read font %s: %w", e.Name(), err)
		}
		family := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if err := r.Register(family, data); err != nil {
			return families, err
		}
		families = append(families, family)
	}
	return families, nil
}

// Has reports whether family is registered.
func (r *FontRegistry) Has(family string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fonts[family]
	return ok
}

// Families lists registered family names in sorted order.
func (r *FontRegistry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.fonts))
	for f := range r.fonts {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Face returns a new face for family at size points (72 DPI, so points equal pixels).
func (r *FontRegistry) Face(family string, size int) (font.Face, error) {
	r.mu.RLock()
	f := r.fonts[family]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFont, family)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
