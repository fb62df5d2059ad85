package captcha

import (
	"math/rand/v2"
	"strings"
)

// DefaultAlphabet is the printable alphanumeric set answers are drawn from.
const DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// WordGenerator produces random plaintext answers.
type WordGenerator struct {
	Alphabet string
}

// Generate returns length characters, each drawn uniformly from the alphabet.
// A non-positive length yields "".
func (g WordGenerator) Generate(rng *rand.Rand, length int) string {
	alphabet := g.Alphabet
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if length <= 0 {
		return ""
	}
	symbols := []rune(alphabet)
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteRune(symbols[rng.IntN(len(symbols))])
	}
	return sb.String()
}
