package captcha

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
)

// fakeBoldOffset is the horizontal shift of the second text pass.
const fakeBoldOffset = 1

// Scene is everything needed to rasterize one captcha. It is derived in full
// on every regeneration and never patched.
type Scene struct {
	Width, Height int
	Background    color.RGBA
	Glyphs        []Glyph
	Noise         Noise

	// DoubleOffset draws each glyph at (X, Y) inside a frame already translated
	// by (X, Y), shifting it twice. Otherwise the ink box starts at the origin.
	DoubleOffset bool
}

// Compositor rasterizes scenes and encodes them.
type Compositor struct {
	Encoder Encoder
}

// Rasterize paints the scene onto a fresh context.
func (c Compositor) Rasterize(s *Scene) *gg.Context {
	dc := gg.NewContext(s.Width, s.Height)
	dc.SetColor(s.Background)
	dc.Clear()

	var ink color.Color = s.Background
	for _, g := range s.Glyphs {
		dc.SetFontFace(g.Face)
		dc.SetColor(g.Color)
		dc.Push()
		dc.Translate(g.X, g.Y)
		dc.Rotate(gg.Radians(float64(g.Angle)))
		px, py := -g.BoundX, -g.BoundY
		if s.DoubleOffset {
			px, py = g.X, g.Y
		}
		dc.DrawString(g.Value, px, py)
		dc.DrawString(g.Value, px+fakeBoldOffset, py)
		dc.Pop()
		ink = g.Color
	}

	s.Noise.Draw(dc, ink)
	return dc
}

// Render rasterizes and encodes the scene.
func (c Compositor) Render(s *Scene) (*Image, error) {
	dc := c.Rasterize(s)
	var buf bytes.Buffer
	if err := c.Encoder.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return &Image{Data: buf.Bytes(), ContentType: c.Encoder.ContentType()}, nil
}
