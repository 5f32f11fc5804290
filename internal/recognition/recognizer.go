package recognition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"strings"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/telemetry"

	"golang.org/x/image/draw"
)

const (
	report_bet_amount  = "recognizer.bet-amount"
	report_balance     = "recognizer.balance"
	report_play_enable = "recognizer.play-enabled"
)

// Recognizer turns screenshots of the game canvas into semantic values.
//
// note: fault injection point
type Recognizer interface {
	// BetAmount returns the bet shown on screen in cents.
	BetAmount(ctx context.Context, shot Screenshot) Result[int64]
	// Balance returns the balance shown on screen in cents.
	Balance(ctx context.Context, shot Screenshot) Result[int64]
	// PlayEnabled returns whether the play button is in its enabled state.
	PlayEnabled(ctx context.Context, shot Screenshot) Result[bool]
}

// OCR extracts text from an image.
type OCR interface {
	Text(ctx context.Context, png []byte) (string, error)
}

var ErrNoDigits = errors.New("no digits recognized")

type Options struct {
	BetRegion     Region `json:"bet_region"`
	BalanceRegion Region `json:"balance_region"`
	EnabledRegion Region `json:"enabled_region"`
	// Upscale is the factor the OCR crops are enlarged by, small text OCRs poorly.
	Upscale int `json:"upscale"`
	// Threshold is the mean channel difference (0-255) under which the play
	// button counts as enabled.
	Threshold float64 `json:"threshold"`
}

func DefaultOptions() Options {
	return Options{
		BetRegion:     Region{Left: 50 - 100.0/6, Top: 78, Right: 50 + 100.0/6, Bottom: 83},
		BalanceRegion: Region{Left: 0, Top: 78, Right: 100.0 / 3, Bottom: 83, PadRight: 20},
		EnabledRegion: Region{Left: 80, Top: 85, Right: 95, Bottom: 93},
		Upscale:       4,
		Threshold:     8,
	}
}

// ImageRecognizer is the Recognizer backed by an OCR service for amounts and
// by template matching against a reference image for the play button.
type ImageRecognizer struct {
	ocr       OCR
	reference image.Image
	opts      Options
	interp    draw.Interpolator
	tel       telemetry.API
}

func NewImageRecognizer(ocr OCR, reference image.Image, opts Options, tel telemetry.API) ImageRecognizer {
	assert.NotNil(ocr)
	assert.NotNil(reference)
	assert.NotNil(tel)
	assert.Positive(opts.Upscale)
	assert.Positive(opts.Threshold)

	return ImageRecognizer{
		ocr:       ocr,
		reference: reference,
		opts:      opts,
		interp:    draw.CatmullRom,
		tel:       telemetry.NewScopedAPI("recognition", tel),
	}
}

// LoadReference reads the reference image of the enabled play button.
func LoadReference(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode reference image %s: %w", path, err)
	}
	return img, nil
}

func (r ImageRecognizer) BetAmount(ctx context.Context, shot Screenshot) Result[int64] {
	res := r.readAmount(ctx, shot, r.opts.BetRegion)
	r.report(report_bet_amount, res)
	return res
}

func (r ImageRecognizer) Balance(ctx context.Context, shot Screenshot) Result[int64] {
	res := r.readAmount(ctx, shot, r.opts.BalanceRegion)
	r.report(report_balance, res)
	return res
}

func (r ImageRecognizer) PlayEnabled(ctx context.Context, shot Screenshot) Result[bool] {
	res := r.matchesReference(shot)
	r.report(report_play_enable, res)
	return res
}

func (r ImageRecognizer) report(id string, res interface {
	Outcome() Outcome
	Err() error
}) {
	switch res.Outcome() {
	case OutcomeFailed:
		r.tel.ReportWarning(id, res.Err())
	case OutcomeNoSignal:
		r.tel.ReportDebug(id, res.Err())
	}
}

func (r ImageRecognizer) readAmount(ctx context.Context, shot Screenshot, region Region) Result[int64] {
	img, err := shot.Decode()
	if err != nil {
		return Failed[int64](err)
	}
	cropped, err := crop(img, region)
	if err != nil {
		return Failed[int64](err)
	}
	b := cropped.Bounds()
	scaled, err := resize(cropped, b.Dx()*r.opts.Upscale, b.Dy()*r.opts.Upscale, r.interp)
	if err != nil {
		return Failed[int64](err)
	}

	var buf bytes.Buffer
	err = png.Encode(&buf, scaled)
	if err != nil {
		return Failed[int64](fmt.Errorf("encode crop: %w", err))
	}

	text, err := r.ocr.Text(ctx, buf.Bytes())
	if err != nil {
		return Failed[int64](fmt.Errorf("ocr: %w", err))
	}

	digits := DigitsOnly(text)
	if digits == "" {
		return NoSignal[int64](fmt.Errorf("%w in %q", ErrNoDigits, text))
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Failed[int64](fmt.Errorf("parse %q: %w", digits, err))
	}
	return Value(amount)
}

func (r ImageRecognizer) matchesReference(shot Screenshot) Result[bool] {
	img, err := shot.Decode()
	if err != nil {
		return Failed[bool](err)
	}
	cropped, err := crop(img, r.opts.EnabledRegion)
	if err != nil {
		return Failed[bool](err)
	}
	ref := r.reference.Bounds()
	scaled, err := resize(cropped, ref.Dx(), ref.Dy(), r.interp)
	if err != nil {
		return Failed[bool](err)
	}
	diff, err := MeanDifference(scaled, r.reference)
	if err != nil {
		return Failed[bool](err)
	}
	return Value(diff < r.opts.Threshold)
}

// DigitsOnly strips every character of text that is not a decimal digit.
func DigitsOnly(text string) string {
	return strings.Map(func(c rune) rune {
		if c >= '0' && c <= '9' {
			return c
		}
		return -1
	}, text)
}
