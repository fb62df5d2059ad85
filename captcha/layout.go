package captcha

import (
	"math/rand/v2"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	// cursorStart is the left margin of the first glyph.
	cursorStart = 10
	// glyphOverlap pulls each following glyph back into its predecessor.
	glyphOverlap = 2
	// tiltThreshold is the angle below which a glyph is pushed to the bottom edge.
	tiltThreshold = -5
)

// FaceSource resolves a font family and pixel size to a face usable for
// both measuring and drawing.
type FaceSource interface {
	Face(family string, size int) (font.Face, error)
}

// Glyph is a letter placed on the canvas together with its measured metrics.
type Glyph struct {
	Letter
	Size int
	Face font.Face

	// X and Y are the translation origin of the glyph.
	X, Y float64
	// Advance is the measured advance width. BoundX and BoundY locate the ink
	// box relative to the pen position; Width and Height are its size.
	Advance        float64
	BoundX, BoundY float64
	Width, Height  float64
}

// Layout places letters left to right. A text size is drawn from rng per letter
// and the glyph is measured with the face returned by faces.
func Layout(letters []Letter, width, height int, rng *rand.Rand, faces FaceSource) ([]Glyph, error) {
	if len(letters) == 0 {
		return nil, nil
	}
	glyphs := make([]Glyph, 0, len(letters))
	x := float64(cursorStart)
	for _, l := range letters {
		size := textSize(height, rng)
		face, err := faces.Face(l.Family, size)
		if err != nil {
			return nil, err
		}
		bounds, advance := font.BoundString(face, l.Value)
		g := Glyph{
			Letter:  l,
			Size:    size,
			Face:    face,
			Advance: fixedToFloat(advance),
			BoundX:  fixedToFloat(bounds.Min.X),
			BoundY:  fixedToFloat(bounds.Min.Y),
			Width:   fixedToFloat(bounds.Max.X - bounds.Min.X),
			Height:  fixedToFloat(bounds.Max.Y - bounds.Min.Y),
		}
		g.X = x
		g.Y = (float64(height) - g.Height) / 2
		if l.Angle < tiltThreshold {
			g.Y = float64(height) - g.Height
		}
		glyphs = append(glyphs, g)

		if step := g.Advance - glyphOverlap; step > 0 {
			x += step
		}
	}
	return glyphs, nil
}

// textSize draws a size in [height/2, height/2+height/4).
func textSize(height int, rng *rand.Rand) int {
	lo := height / 2
	if lo < 1 {
		lo = 1
	}
	span := height / 4
	if span <= 0 {
		return lo
	}
	return lo + rng.IntN(span)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
