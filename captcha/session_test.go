package captcha

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func newTestSession(t *testing.T, mutate func(*Options), options ...SessionOption) *Session {
	t.Helper()
	opts := DefaultOptions()
	opts.NewSeed = sequentialSeeds()
	if mutate != nil {
		mutate(&opts)
	}
	s, err := NewSession(opts, options...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func decodeDataURI(t *testing.T, uri, mime string) []byte {
	t.Helper()
	payload, ok := strings.CutPrefix(uri, "data:"+mime+";base64,")
	if !ok {
		t.Fatalf("data URI %.40q does not declare %s", uri, mime)
	}
	if payload == "" {
		t.Fatal("empty payload")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	return raw
}

func TestNewSession_InvalidConfig(t *testing.T) {
	tests := map[string]func(*Options){
		"zero width":      func(o *Options) { o.Width = 0 },
		"negative height": func(o *Options) { o.Height = -1 },
		"zero chars":      func(o *Options) { o.CharNumber = 0 },
		"unknown family":  func(o *Options) { o.Families = []string{"Comic Sans"} },
		"bad quality":     func(o *Options) { o.Quality = 500 },
		"bad format":      func(o *Options) { o.Format = "bmp" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			mutate(&opts)
			if _, err := NewSession(opts); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSession_StartsUnset(t *testing.T) {
	s := newTestSession(t, nil)
	if s.State() != StateUnset || s.Answer() != "" {
		t.Fatalf("state = %v answer = %q", s.State(), s.Answer())
	}
	uri, err := s.Render()
	if err != nil || uri != "" {
		t.Fatalf("Render on unset = %q, %v", uri, err)
	}
}

func TestSession_SetAnswerRenders(t *testing.T) {
	var notified []string
	s := newTestSession(t, nil, WithNotifier(func(a string) { notified = append(notified, a) }))

	if err := s.SetAnswer("ABCDE"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if s.State() != StateReady || s.Answer() != "ABCDE" {
		t.Fatalf("state = %v answer = %q", s.State(), s.Answer())
	}
	if len(notified) != 1 || notified[0] != "ABCDE" {
		t.Fatalf("notifications = %v", notified)
	}
	if got := len(s.Letters()); got != 5 {
		t.Fatalf("letters = %d", got)
	}

	uri, err := s.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	raw := decodeDataURI(t, uri, "image/jpeg")
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not jpeg: %v", err)
	}
	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Fatalf("image is %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSession_SetAnswerEmptyClears(t *testing.T) {
	s := newTestSession(t, nil)
	if err := s.SetAnswer("ABCDE"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAnswer(""); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateUnset || s.Letters() != nil {
		t.Fatalf("expected unset session, got %v with %d letters", s.State(), len(s.Letters()))
	}
	if uri, err := s.Render(); uri != "" || err != nil {
		t.Fatalf("Render after clear = %q, %v", uri, err)
	}
	if img, err := s.RenderImage(); img != nil || err != nil {
		t.Fatalf("RenderImage after clear = %v, %v", img, err)
	}
}

func TestSession_SetAnswerWrongLength(t *testing.T) {
	s := newTestSession(t, nil)
	if err := s.SetAnswer("ABCDE"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAnswer("ABC"); !errors.Is(err, ErrAnswerLength) {
		t.Fatalf("err = %v, want ErrAnswerLength", err)
	}
	if s.Answer() != "ABCDE" {
		t.Fatalf("answer changed to %q", s.Answer())
	}
}

func TestSession_RenderIsCached(t *testing.T) {
	s := newTestSession(t, nil)
	s.Refresh()
	a, err := s.Render()
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Render()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("two renders of the same state differ")
	}
}

func TestSession_SameSeedSameImage(t *testing.T) {
	render := func() string {
		s := newTestSession(t, nil)
		if err := s.SetAnswer("QWERT"); err != nil {
			t.Fatal(err)
		}
		uri, err := s.Render()
		if err != nil {
			t.Fatal(err)
		}
		return uri
	}
	if render() != render() {
		t.Fatal("identical seeds produced different images")
	}
}

func TestSession_RefreshRegeneratesEverything(t *testing.T) {
	var notified []string
	s := newTestSession(t, nil, WithNotifier(func(a string) { notified = append(notified, a) }))

	first := s.Refresh()
	firstLetters := s.Letters()
	firstURI, err := s.Render()
	if err != nil {
		t.Fatal(err)
	}

	second := s.Refresh()
	if second == first {
		t.Fatalf("refresh kept answer %q", first)
	}
	if len(second) != DefaultCharNumber || s.Answer() != second {
		t.Fatalf("answer = %q, returned %q", s.Answer(), second)
	}
	if len(notified) != 2 || notified[0] != first || notified[1] != second {
		t.Fatalf("notifications = %v", notified)
	}
	secondURI, err := s.Render()
	if err != nil {
		t.Fatal(err)
	}
	if secondURI == firstURI {
		t.Fatal("image not regenerated")
	}
	same := 0
	for i, l := range s.Letters() {
		if l.Angle == firstLetters[i].Angle && l.Color == firstLetters[i].Color {
			same++
		}
	}
	if same == len(firstLetters) {
		t.Fatal("styling carried over between refreshes")
	}
}

func TestSession_RefreshDifferentFromAssigned(t *testing.T) {
	s := newTestSession(t, nil)
	// The first refresh with this seed source yields a fixed word; assign it first.
	probe := newTestSession(t, nil)
	word := probe.Refresh()
	if err := s.SetAnswer(word); err != nil {
		t.Fatal(err)
	}
	if got := s.Refresh(); got == word {
		t.Fatalf("refresh returned the current answer %q", got)
	}
}

func TestSession_SingleCharacter(t *testing.T) {
	s := newTestSession(t, func(o *Options) { o.CharNumber = 1 })
	word := s.Refresh()
	if len(word) != 1 || len(s.Letters()) != 1 {
		t.Fatalf("word %q letters %d", word, len(s.Letters()))
	}
	uri, err := s.Render()
	if err != nil {
		t.Fatal(err)
	}
	decodeDataURI(t, uri, "image/jpeg")
}

func TestSession_NarrowCanvasClipsWithoutError(t *testing.T) {
	s := newTestSession(t, func(o *Options) {
		o.Width = 20
		o.CharNumber = 12
	})
	s.Refresh()
	scene, err := s.Scene()
	if err != nil {
		t.Fatal(err)
	}
	last := scene.Glyphs[len(scene.Glyphs)-1]
	if last.X+last.Advance <= 20 {
		t.Fatalf("expected glyphs past the right edge, last ends at %v", last.X+last.Advance)
	}
	if _, err := s.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestSession_PNGFormat(t *testing.T) {
	s := newTestSession(t, func(o *Options) { o.Format = FormatPNG })
	s.Refresh()
	uri, err := s.Render()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(decodeDataURI(t, uri, "image/png"))); err != nil {
		t.Fatalf("payload is not png: %v", err)
	}
}

func TestSession_DoubleOffsetChangesLayoutOnly(t *testing.T) {
	plain := newTestSession(t, nil)
	doubled := newTestSession(t, func(o *Options) { o.DoubleOffset = true })
	for _, s := range []*Session{plain, doubled} {
		if err := s.SetAnswer("ABCDE"); err != nil {
			t.Fatal(err)
		}
	}
	a, _ := plain.Scene()
	b, _ := doubled.Scene()
	for i := range a.Glyphs {
		if a.Glyphs[i].X != b.Glyphs[i].X || a.Glyphs[i].Y != b.Glyphs[i].Y {
			t.Fatalf("glyph %d placement differs between modes", i)
		}
	}
	ua, _ := plain.Render()
	ub, _ := doubled.Render()
	if ua == ub {
		t.Fatal("double offset should change the raster")
	}
}

func TestSession_RenderFailureKeepsAnswer(t *testing.T) {
	s := newTestSession(t, func(o *Options) { o.Fonts = brokenFaces{} })
	if err := s.SetAnswer("ABCDE"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Render(); !errors.Is(err, ErrUnknownFont) {
		t.Fatalf("err = %v, want ErrUnknownFont", err)
	}
	if s.State() != StateReady || s.Answer() != "ABCDE" {
		t.Fatalf("failed render changed session: %v %q", s.State(), s.Answer())
	}
}
