package captcha

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		format  string
		quality int
		mime    string
		wantErr bool
	}{
		{"", 0, "image/jpeg", false},
		{"jpeg", 75, "image/jpeg", false},
		{"JPG", 40, "image/jpeg", false},
		{"png", 0, "image/png", false},
		{"jpeg", 101, "", true},
		{"jpeg", -1, "", true},
		{"gif", 75, "", true},
	}
	for _, tt := range tests {
		enc, err := NewEncoder(tt.format, tt.quality)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewEncoder(%q,%d) err = %v, want ErrInvalidConfig", tt.format, tt.quality, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewEncoder(%q,%d): %v", tt.format, tt.quality, err)
		}
		if enc.ContentType() != tt.mime {
			t.Errorf("NewEncoder(%q) content type %q, want %q", tt.format, enc.ContentType(), tt.mime)
		}
	}
}

func TestEncoders_ProduceDeclaredFormat(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	src.Set(1, 1, color.White)

	var buf bytes.Buffer
	if err := (JPEGEncoder{Quality: 75}).Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	if _, err := jpeg.DecodeConfig(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("jpeg output does not decode: %v", err)
	}

	buf.Reset()
	if err := (PNGEncoder{}).Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("png output does not decode: %v", err)
	}
}

func TestImage_DataURI(t *testing.T) {
	img := &Image{Data: []byte{1, 2, 3}, ContentType: "image/png"}
	uri := img.DataURI()
	payload, ok := strings.CutPrefix(uri, "data:image/png;base64,")
	if !ok {
		t.Fatalf("bad prefix: %q", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || !bytes.Equal(raw, img.Data) {
		t.Fatalf("payload round trip failed: %v %v", raw, err)
	}
}
