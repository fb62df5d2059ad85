package captcha

import (
	"math/rand/v2"
	"testing"

	"golang.org/x/image/font"
)

// sequentialSeeds returns a deterministic seed source for sessions.
func sequentialSeeds() func() [2]uint64 {
	var n uint64
	return func() [2]uint64 {
		n++
		return [2]uint64{n, n * 7919}
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func testRegistry(t *testing.T) *FontRegistry {
	t.Helper()
	reg, err := DefaultFontRegistry()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	return reg
}

type brokenFaces struct{}

func (brokenFaces) Face(family string, size int) (font.Face, error) {
	return nil, ErrUnknownFont
}
