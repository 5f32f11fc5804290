package recognition

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Region is a rectangle expressed in percentages of the image width/height so
// that it does not depend on the resolution of the capture. Edges are resolved
// by integer truncation.
type Region struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	// PadRight is added in pixels to the resolved right edge.
	PadRight int `json:"pad_right"`
}

func percentOf(size int, pct float64) int {
	return int(float64(size) / 100 * pct)
}

// Rect resolves the region against bounds, the result is clipped to bounds.
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	rect := image.Rect(
		percentOf(w, r.Left),
		percentOf(h, r.Top),
		percentOf(w, r.Right)+r.PadRight,
		percentOf(h, r.Bottom),
	).Add(bounds.Min)
	return rect.Intersect(bounds)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// crop returns the part of img inside region, it fails if that part is empty.
func crop(img image.Image, region Region) (image.Image, error) {
	rect := region.Rect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %+v is empty for bounds %v", region, img.Bounds())
	}
	if sub, ok := img.(subImager); ok {
		return sub.SubImage(rect), nil
	}
	out := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out, nil
}

// resize scales img to width x height. An image that already has the requested
// size is copied as-is.
func resize(img image.Image, width, height int, interp draw.Interpolator) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cannot resize to %dx%d", width, height)
	}
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
		return out, nil
	}
	interp.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out, nil
}
