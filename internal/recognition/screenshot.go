package recognition

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

var ErrInvalidScreenshot = errors.New("invalid screenshot")

// Screenshot is one capture of the game canvas. It is never modified after it
// is captured.
type Screenshot struct {
	Image  []byte
	Width  int
	Height int
	// Format is the encoding of Image, ex. "png".
	Format string
}

func (s Screenshot) Validate() error {
	if s.Width <= 1 || s.Height <= 1 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidScreenshot, s.Width, s.Height)
	}
	if s.Format == "" {
		return fmt.Errorf("%w: empty format", ErrInvalidScreenshot)
	}
	if len(s.Image) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidScreenshot)
	}
	return nil
}

// Decode validates and decodes the screenshot. The dimensions of the returned
// image are the ones regions are resolved against.
func (s Screenshot) Decode() (image.Image, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(s.Image))
	if err != nil {
		return nil, fmt.Errorf("decode %s screenshot: %w", s.Format, err)
	}
	return img, nil
}
