package recognition

import (
	"fmt"
	"image"
	"image/color"
)

// MeanDifference returns the mean absolute difference between a and b,
// averaged per channel (R, G, B, A on a 0-255 scale) and then across channels.
// Both images must have the same size.
func MeanDifference(a, b image.Image) (float64, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0, fmt.Errorf("size mismatch: %v != %v", ab.Size(), bb.Size())
	}
	pixels := ab.Dx() * ab.Dy()
	if pixels == 0 {
		return 0, fmt.Errorf("empty image")
	}

	var sums [4]int64
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			pa := color.NRGBAModel.Convert(a.At(ab.Min.X+x, ab.Min.Y+y)).(color.NRGBA)
			pb := color.NRGBAModel.Convert(b.At(bb.Min.X+x, bb.Min.Y+y)).(color.NRGBA)
			sums[0] += absDiff(pa.R, pb.R)
			sums[1] += absDiff(pa.G, pb.G)
			sums[2] += absDiff(pa.B, pb.B)
			sums[3] += absDiff(pa.A, pb.A)
		}
	}

	var total float64
	for _, s := range sums {
		total += float64(s) / float64(pixels)
	}
	return total / float64(len(sums)), nil
}

func absDiff(a, b uint8) int64 {
	if a > b {
		return int64(a - b)
	}
	return int64(b - a)
}
