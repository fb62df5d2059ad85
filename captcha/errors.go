package captcha

import "errors"

var (
	// ErrInvalidConfig is returned by NewSession when Options cannot produce an image.
	ErrInvalidConfig = errors.New("captcha: invalid configuration")
	// ErrUnknownFont is returned when a letter names a family missing from the font registry.
	ErrUnknownFont = errors.New("captcha: unknown font family")
	// ErrEncode wraps codec failures.
	ErrEncode = errors.New("captcha: encode image")
)
