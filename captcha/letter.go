package captcha

import (
	"image/color"
	"math/rand/v2"
)

const (
	// MinAngle and MaxAngle bound the per-letter rotation in degrees, inclusive.
	MinAngle = -15
	MaxAngle = 24
)

// Letter is one styled character of an answer. It is never mutated after styling.
type Letter struct {
	Value  string
	Angle  int
	Color  color.RGBA
	Family string
}

// LetterStyler assigns every character an independent random style.
// An empty family list means DefaultFamilies.
type LetterStyler struct {
	Families []string
}

// Style draws angle, colour and family for each rune of answer, in that order, from rng.
func (s LetterStyler) Style(answer string, rng *rand.Rand) []Letter {
	if answer == "" {
		return nil
	}
	families := s.Families
	if len(families) == 0 {
		families = DefaultFamilies
	}
	letters := make([]Letter, 0, len(answer))
	for _, r := range answer {
		letters = append(letters, Letter{
			Value: string(r),
			Angle: MinAngle + rng.IntN(MaxAngle-MinAngle+1),
			Color: color.RGBA{
				R: uint8(rng.IntN(256)),
				G: uint8(rng.IntN(256)),
				B: uint8(rng.IntN(256)),
				A: 255,
			},
			Family: families[rng.IntN(len(families))],
		})
	}
	return letters
}

// randomBackground draws a mid-tone colour with every channel in [90,130).
func randomBackground(rng *rand.Rand) color.RGBA {
	return color.RGBA{
		R: uint8(90 + rng.IntN(40)),
		G: uint8(90 + rng.IntN(40)),
		B: uint8(90 + rng.IntN(40)),
		A: 255,
	}
}
