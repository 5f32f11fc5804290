package browser

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"tigerscraper/internal/recognition"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// Game is the game canvas of a session. Its size is read fresh on every call,
// the canvas follows the window.
type Game struct {
	session  *Session
	selector string
}

func (g *Game) box(ctx context.Context) (*dom.BoxModel, error) {
	var box *dom.BoxModel
	err := g.session.run(ctx, 0, chromedp.Dimensions(g.selector, &box, chromedp.BySearch))
	if err != nil {
		return nil, fmt.Errorf("canvas dimensions: %w", err)
	}
	if box == nil {
		return nil, fmt.Errorf("canvas has no box model")
	}
	return box, nil
}

func (g *Game) Size(ctx context.Context) (width, height int, err error) {
	box, err := g.box(ctx)
	if err != nil {
		return 0, 0, err
	}
	return int(box.Width), int(box.Height), nil
}

// Screenshot captures the canvas element as a png.
func (g *Game) Screenshot(ctx context.Context) (recognition.Screenshot, error) {
	box, err := g.box(ctx)
	if err != nil {
		return recognition.Screenshot{}, err
	}
	var buf []byte
	err = g.session.run(ctx, 0, chromedp.Screenshot(g.selector, &buf, chromedp.BySearch))
	if err != nil {
		return recognition.Screenshot{}, fmt.Errorf("screenshot canvas: %w", err)
	}
	return recognition.Screenshot{
		Image:  buf,
		Width:  int(box.Width),
		Height: int(box.Height),
		Format: "png",
	}, nil
}

// center returns the viewport coordinates of the centre of the content quad.
func center(box *dom.BoxModel) (float64, float64) {
	quad := box.Content
	if len(quad) < 8 {
		return float64(box.Width) / 2, float64(box.Height) / 2
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += quad[i]
		y += quad[i+1]
	}
	return x / 4, y / 4
}

// ClickAt clicks at an offset in pixels from the centre of the canvas.
func (g *Game) ClickAt(ctx context.Context, offset image.Point) error {
	box, err := g.box(ctx)
	if err != nil {
		return err
	}
	cx, cy := center(box)
	err = g.session.run(ctx, 0, chromedp.MouseClickXY(cx+float64(offset.X), cy+float64(offset.Y)))
	if err != nil {
		return fmt.Errorf("click at %v: %w", offset, err)
	}
	return nil
}

// ClickIn clicks at a random point of band and returns the offset it clicked at.
func (g *Game) ClickIn(ctx context.Context, band Band) (image.Point, error) {
	width, height, err := g.Size(ctx)
	if err != nil {
		return image.Point{}, err
	}
	offset := band.Pick(width, height, rand.IntN)
	return offset, g.ClickAt(ctx, offset)
}
