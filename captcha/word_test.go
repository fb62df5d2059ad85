package captcha

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWordGenerator_LengthAndAlphabet(t *testing.T) {
	g := WordGenerator{}
	rng := newRand(1)
	for _, n := range []int{1, 2, 5, 16, 64} {
		w := g.Generate(rng, n)
		if utf8.RuneCountInString(w) != n {
			t.Fatalf("Generate(%d) = %q, wrong length", n, w)
		}
		for _, r := range w {
			if !strings.ContainsRune(DefaultAlphabet, r) {
				t.Fatalf("Generate(%d) = %q contains %q outside alphabet", n, w, r)
			}
		}
	}
}

func TestWordGenerator_NonPositiveLength(t *testing.T) {
	g := WordGenerator{}
	for _, n := range []int{0, -3} {
		if w := g.Generate(newRand(2), n); w != "" {
			t.Errorf("Generate(%d) = %q, want empty", n, w)
		}
	}
}

func TestWordGenerator_CustomAlphabet(t *testing.T) {
	g := WordGenerator{Alphabet: "xy"}
	w := g.Generate(newRand(3), 200)
	if strings.Trim(w, "xy") != "" {
		t.Fatalf("unexpected symbols in %q", w)
	}
	if !strings.Contains(w, "x") || !strings.Contains(w, "y") {
		t.Errorf("expected both symbols over 200 draws, got %q", w)
	}
}
