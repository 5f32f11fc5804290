// Package scraper drives the game through rounds of bets and forwards the
// captured spins to subscribers.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"image"
	"tigerscraper/internal/browser"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/chrono"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/intercept"
	"tigerscraper/internal/model"
	"tigerscraper/internal/recognition"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scraper")

var (
	// ErrRecoverable matches every error after which a fresh run may succeed.
	ErrRecoverable = errors.New("recoverable")
	ErrBlocked     = fmt.Errorf("%w: game is blocked", ErrRecoverable)
	ErrFrozen      = fmt.Errorf("%w: game stopped responding", ErrRecoverable)
)

type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

type Session interface {
	Start(ctx context.Context, gameURL string) error
	Game() Game
	Exchanges() *intercept.Buffer
	// Settle waits until the exchanges captured so far are in the buffer.
	Settle(ctx context.Context) error
	Close() error
}

type Game interface {
	Screenshot(ctx context.Context) (recognition.Screenshot, error)
	ClickIn(ctx context.Context, band browser.Band) (image.Point, error)
}

type Decoder interface {
	DecodeAll(src intercept.Source) []intercept.Outcome
}

// Subscriber receives every decoded record.
type Subscriber interface {
	Process(ctx context.Context, record model.Record) error
}

type Scraper struct {
	config      Config
	launcher    Launcher
	recognizer  recognition.Recognizer
	decoder     Decoder
	subscribers []Subscriber
	clock       chrono.API
	tel         telemetry.API
}

func New(
	config Config,
	launcher Launcher,
	recognizer recognition.Recognizer,
	decoder Decoder,
	subscribers []Subscriber,
	clock chrono.API,
	tel telemetry.API,
) *Scraper {
	assert.NotNil(launcher)
	assert.NotNil(recognizer)
	assert.NotNil(decoder)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(config.GameURL)
	for _, sub := range subscribers {
		assert.NotNil(sub)
	}

	return &Scraper{
		config:      config,
		launcher:    launcher,
		recognizer:  recognizer,
		decoder:     decoder,
		subscribers: subscribers,
		clock:       clock,
		tel:         telemetry.NewScopedAPI("scraper", tel),
	}
}

// Summary describes a finished scrape.
type Summary struct {
	Attempts int
	Rounds   int
	Records  int
	Balance  int64
}

// Scrape plays until the balance reaches zero. The browser session is always
// released before it returns.
func (s *Scraper) Scrape(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "scraper.scrape")
	defer span.End()

	st := state{phase: phaseInitializing}
	var err error
	for st.phase != phaseDone && err == nil {
		phase := st.phase
		st, err = s.step(ctx, st)
		if err != nil {
			err = fmt.Errorf("scraper: %s: %w", phase, err)
		}
	}
	st = s.shutdown(ctx, st)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportBroken(report_scraper_scrape, err)
	}
	return st.summary(), err
}

func (s *Scraper) step(ctx context.Context, st state) (state, error) {
	if err := ctx.Err(); err != nil {
		return st, err
	}
	switch st.phase {
	case phaseInitializing:
		return s.initialize(ctx, st)
	case phaseCalibrating:
		return s.calibrate(ctx, st)
	case phaseArming:
		return s.arm(ctx, st)
	case phaseRound:
		return s.round(ctx, st)
	}
	return st, fmt.Errorf("unknown phase %d", st.phase)
}

func (s *Scraper) pause(ctx context.Context, ms int) error {
	return s.clock.Sleep(ctx, time.Duration(ms)*time.Millisecond)
}
