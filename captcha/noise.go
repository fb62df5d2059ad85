package captcha

import (
	"image/color"
	"math/rand/v2"

	"github.com/fogleman/gg"
)

// Segment is a straight decoy stroke.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// Noise is the decoy geometry drawn over the text: two full-width segments
// and the outline of an ellipse whose bounding box may start off canvas.
type Noise struct {
	Lines   [2]Segment
	Ellipse struct {
		X, Y, W, H float64
	}
}

// PlanNoise draws the decoy geometry from rng.
func PlanNoise(width, height int, rng *rand.Rand) Noise {
	var n Noise
	for i := range n.Lines {
		n.Lines[i] = Segment{
			X1: 0,
			Y1: float64(rng.IntN(height)),
			X2: float64(width),
			Y2: float64(rng.IntN(height)),
		}
	}
	n.Ellipse.X = float64(rng.IntN(2*width) - width)
	n.Ellipse.Y = float64(rng.IntN(2*height) - height)
	n.Ellipse.W = float64(width)
	n.Ellipse.H = float64(height)
	return n
}

// Draw strokes the noise onto dc using ink, the colour of the last drawn letter.
func (n Noise) Draw(dc *gg.Context, ink color.Color) {
	dc.SetColor(ink)
	dc.SetLineWidth(1)
	for _, l := range n.Lines {
		dc.DrawLine(l.X1, l.Y1, l.X2, l.Y2)
		dc.Stroke()
	}
	e := n.Ellipse
	dc.DrawEllipse(e.X+e.W/2, e.Y+e.H/2, e.W/2, e.H/2)
	dc.Stroke()
}
