package browser

import "image"

// Band is a rectangle of the canvas, in percentages of the canvas size, whose
// coordinates are offsets from the canvas centre. Negative values are left of
// (or above) the centre.
type Band struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func percentOf(size int, pct float64) int {
	return int(float64(size) / 100 * pct)
}

// Rect resolves the band against a canvas size, edges are truncated.
func (b Band) Rect(width, height int) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(percentOf(width, b.Left), percentOf(height, b.Top)),
		Max: image.Pt(percentOf(width, b.Right), percentOf(height, b.Bottom)),
	}
}

// Pick returns a uniformly random point in [Min, Max) of the resolved band,
// intn is usually rand.IntN. A band narrower than a pixel resolves to its
// minimum edge.
func (b Band) Pick(width, height int, intn func(n int) int) image.Point {
	r := b.Rect(width, height)
	return image.Pt(between(r.Min.X, r.Max.X, intn), between(r.Min.Y, r.Max.Y, intn))
}

func between(lo, hi int, intn func(n int) int) int {
	if hi <= lo {
		return lo
	}
	return lo + intn(hi-lo)
}
