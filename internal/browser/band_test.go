package browser

import (
	"image"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBandRect(t *testing.T) {
	turbo := Band{Left: -41, Right: -38, Top: 36, Bottom: 39}
	require.Equal(t, image.Rect(-787, 388, -729, 421), turbo.Rect(1920, 1080))

	calibrate := Band{Left: 20, Right: 25, Top: 40, Bottom: 45}
	require.Equal(t, image.Rect(384, 432, 480, 486), calibrate.Rect(1920, 1080))
}

func TestBandPickStaysInside(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	bands := []Band{
		{Left: 20, Right: 25, Top: 40, Bottom: 45},
		{Left: -41, Right: -38, Top: 36, Bottom: 39},
		{Left: -3, Right: 0, Top: 36, Bottom: 39},
		{Left: 0, Right: 5, Top: 37, Bottom: 40},
	}
	for _, b := range bands {
		rect := b.Rect(800, 450)
		for i := 0; i < 200; i++ {
			p := b.Pick(800, 450, r.IntN)
			require.True(t, p.In(rect), "%v not in %v", p, rect)
		}
	}
}

func TestBandPickDegenerate(t *testing.T) {
	b := Band{Left: 10, Right: 10, Top: 0, Bottom: 1}
	p := b.Pick(10, 10, func(n int) int {
		t.Fatalf("intn should not be called for an empty range, got %d", n)
		return 0
	})
	require.Equal(t, image.Pt(1, 0), p)
}
