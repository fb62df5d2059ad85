package captcha

import (
	"errors"
	"fmt"
	"image/color"
	"math/rand/v2"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Defaults for Options.
const (
	DefaultWidth      = 170
	DefaultHeight     = 40
	DefaultCharNumber = 5
)

// ErrAnswerLength is returned by SetAnswer for a non-empty word whose length
// differs from the configured character count.
var ErrAnswerLength = errors.New("captcha: answer length does not match character count")

// Options configure a Session.
type Options struct {
	Width, Height int
	CharNumber    int

	// Alphabet answers are drawn from. Empty means DefaultAlphabet.
	Alphabet string
	// Families the styler draws from. Empty means DefaultFamilies.
	Families []string
	// Fonts resolves families to faces. Nil means DefaultFontRegistry.
	Fonts FaceSource

	// Format is FormatJPEG or FormatPNG; Quality applies to jpeg only.
	Format  string
	Quality int

	DoubleOffset bool

	// NewSeed supplies the seed of each regeneration's random source.
	// Nil draws from the process-wide generator.
	NewSeed func() [2]uint64
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		CharNumber: DefaultCharNumber,
		Format:     FormatJPEG,
		Quality:    DefaultQuality,
	}
}

// State of a Session.
type State int

const (
	StateUnset State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	default:
		return "unset"
	}
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithNotifier registers fn to receive every new answer.
func WithNotifier(fn func(answer string)) SessionOption {
	return func(s *Session) { s.notify = fn }
}

// WithLogger sets the logger for regeneration events.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Session owns the current answer and everything derived from it. It is meant
// for a single caller at a time; hosts serving many clients keep one Session per client.
type Session struct {
	opts       Options
	words      WordGenerator
	styler     LetterStyler
	compositor Compositor
	notify     func(string)
	log        *zap.Logger

	answer     string
	seed       [2]uint64
	background color.RGBA
	letters    []Letter
	image      *Image
}

// NewSession validates opts and returns a session in the Unset state.
func NewSession(opts Options, options ...SessionOption) (*Session, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidConfig, opts.Width, opts.Height)
	}
	if opts.CharNumber <= 0 {
		return nil, fmt.Errorf("%w: character count %d", ErrInvalidConfig, opts.CharNumber)
	}
	if opts.Alphabet == "" {
		opts.Alphabet = DefaultAlphabet
	}
	if len(opts.Families) == 0 {
		opts.Families = DefaultFamilies
	}
	if opts.Fonts == nil {
		reg, err := DefaultFontRegistry()
		if err != nil {
			return nil, err
		}
		opts.Fonts = reg
	}
	if reg, ok := opts.Fonts.(*FontRegistry); ok {
		for _, f := range opts.Families {
			if !reg.Has(f) {
				return nil, fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownFont, f)
			}
		}
	}
	enc, err := NewEncoder(opts.Format, opts.Quality)
	if err != nil {
		return nil, err
	}
	if opts.NewSeed == nil {
		opts.NewSeed = func() [2]uint64 { return [2]uint64{rand.Uint64(), rand.Uint64()} }
	}

	s := &Session{
		opts:       opts,
		words:      WordGenerator{Alphabet: opts.Alphabet},
		styler:     LetterStyler{Families: opts.Families},
		compositor: Compositor{Encoder: enc},
		log:        zap.NewNop(),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Answer returns the current plaintext answer, "" when Unset.
func (s *Session) Answer() string { return s.answer }

// State reports whether an answer is present.
func (s *Session) State() State {
	if s.answer == "" {
		return StateUnset
	}
	return StateReady
}

// Letters returns a copy of the current styled letters.
func (s *Session) Letters() []Letter {
	return append([]Letter(nil), s.letters...)
}

// Background returns the current background colour.
func (s *Session) Background() color.RGBA { return s.background }

// SetAnswer replaces the answer. A non-empty word regenerates all styling and
// notifies; an empty word moves the session to Unset.
func (s *Session) SetAnswer(word string) error {
	if word == "" {
		s.clear()
		return nil
	}
	if n := utf8.RuneCountInString(word); n != s.opts.CharNumber {
		return fmt.Errorf("%w: got %d, want %d", ErrAnswerLength, n, s.opts.CharNumber)
	}
	s.regenerate(word)
	return nil
}

// Refresh draws a new answer of the configured length, regenerates and notifies.
func (s *Session) Refresh() string {
	seed := s.opts.NewSeed()
	rng := rand.New(rand.NewPCG(seed[0], seed[1]))
	word := s.words.Generate(rng, s.opts.CharNumber)
	for i := 0; i < 8 && word == s.answer; i++ {
		word = s.words.Generate(rng, s.opts.CharNumber)
	}
	s.regenerate(word)
	return word
}

func (s *Session) clear() {
	s.answer = ""
	s.letters = nil
	s.background = color.RGBA{}
	s.image = nil
	s.log.Debug("captcha cleared")
}

// regenerate derives a fresh random source and styling for word. Sizes, layout
// and noise come from the same source when the image is first rendered.
func (s *Session) regenerate(word string) {
	s.answer = word
	s.seed = s.opts.NewSeed()
	rng := s.rng()
	s.background = randomBackground(rng)
	s.letters = s.styler.Style(word, rng)
	s.image = nil
	s.log.Debug("captcha regenerated", zap.Int("letters", len(s.letters)))
	if s.notify != nil {
		s.notify(word)
	}
}

func (s *Session) rng() *rand.Rand {
	return rand.New(rand.NewPCG(s.seed[0], s.seed[1]))
}

// Scene derives the full scene for the current answer. It is nil when Unset.
func (s *Session) Scene() (*Scene, error) {
	if s.answer == "" {
		return nil, nil
	}
	rng := s.rng()
	bg := randomBackground(rng)
	letters := s.styler.Style(s.answer, rng)
	glyphs, err := Layout(letters, s.opts.Width, s.opts.Height, rng, s.opts.Fonts)
	if err != nil {
		return nil, err
	}
	return &Scene{
		Width:        s.opts.Width,
		Height:       s.opts.Height,
		Background:   bg,
		Glyphs:       glyphs,
		Noise:        PlanNoise(s.opts.Width, s.opts.Height, rng),
		DoubleOffset: s.opts.DoubleOffset,
	}, nil
}

// RenderImage returns the encoded image for the current answer, or nil when
// Unset. The result is cached until the next regeneration. A failure leaves
// the answer untouched.
func (s *Session) RenderImage() (*Image, error) {
	if s.answer == "" {
		return nil, nil
	}
	if s.image != nil {
		return s.image, nil
	}
	scene, err := s.Scene()
	if err != nil {
		return nil, fmt.Errorf("render captcha: %w", err)
	}
	img, err := s.compositor.Render(scene)
	if err != nil {
		return nil, fmt.Errorf("render captcha: %w", err)
	}
	s.image = img
	return img, nil
}

// Render returns the current image as a data URI, "" when Unset.
func (s *Session) Render() (string, error) {
	img, err := s.RenderImage()
	if err != nil || img == nil {
		return "", err
	}
	return img.DataURI(), nil
}
