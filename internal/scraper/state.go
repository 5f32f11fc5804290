package scraper

import (
	"context"
	"fmt"
	"tigerscraper/internal/browser"
	"tigerscraper/internal/intercept"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_scraper_scrape    = "scrape"
	report_scraper_calibrate = "calibrate"
	report_scraper_round     = "round"
	report_scraper_notify    = "notify"
	report_scraper_shutdown  = "shutdown"
)

const shutdownTimeout = 30 * time.Second

type phase int

const (
	phaseInitializing phase = iota
	phaseCalibrating
	phaseArming
	phaseRound
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseInitializing:
		return "initializing"
	case phaseCalibrating:
		return "calibrating"
	case phaseArming:
		return "arming"
	case phaseRound:
		return "round"
	case phaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// state is everything the scraper knows between two transitions, each
// transition takes the current state and returns the next one.
type state struct {
	phase   phase
	session Session
	game    Game

	attempts int
	rounds   int
	records  int
	balance  int64
	blocked  bool
}

func (st state) summary() Summary {
	return Summary{
		Attempts: st.attempts,
		Rounds:   st.rounds,
		Records:  st.records,
		Balance:  st.balance,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// release closes the live session, if any.
func (s *Scraper) release(st state) state {
	if st.session == nil {
		return st
	}
	err := st.session.Close()
	if err != nil {
		s.tel.ReportWarning(report_scraper_shutdown, err)
	}
	st.session = nil
	st.game = nil
	return st
}

func (s *Scraper) initialize(ctx context.Context, st state) (next state, err error) {
	ctx, span := tracer.Start(ctx, "scraper.initialize")
	defer func() { endSpan(span, err) }()

	session, err := s.launcher.Launch(ctx)
	if err != nil {
		return st, fmt.Errorf("launch: %w", err)
	}
	st.session = session

	err = session.Start(ctx, s.config.GameURL)
	if err != nil {
		return st, fmt.Errorf("start: %w", err)
	}
	st.game = session.Game()
	st.phase = phaseCalibrating
	return st, nil
}

// calibrate raises the bet and reads it back, an instance that does not show
// the expected bet is blocked and gets replaced.
func (s *Scraper) calibrate(ctx context.Context, st state) (next state, err error) {
	ctx, span := tracer.Start(ctx, "scraper.calibrate")
	defer func() { endSpan(span, err) }()

	st.attempts++
	span.SetAttributes(attribute.Int("attempt", st.attempts))

	s.tel.ReportDebug(report_scraper_calibrate, "raising bet")
	for i := 0; i < s.config.CalibrationClicks; i++ {
		_, err = st.game.ClickIn(ctx, s.config.Bands.Calibrate)
		if err != nil {
			return st, fmt.Errorf("raise bet: %w", err)
		}
	}
	err = s.pause(ctx, s.config.CalibrationPauseMs)
	if err != nil {
		return st, err
	}

	st.blocked = true
	shot, err := st.game.Screenshot(ctx)
	if err != nil {
		s.tel.ReportWarning(report_scraper_calibrate, fmt.Errorf("screenshot: %w", err))
	} else {
		bet := s.recognizer.BetAmount(ctx, shot)
		value, ok := bet.Get()
		st.blocked = !ok || value != s.config.CalibrationBet
		span.SetAttributes(attribute.String("bet", bet.String()))
	}

	if !st.blocked {
		st.phase = phaseArming
		return st, nil
	}

	s.tel.ReportWarning(report_scraper_calibrate, ErrBlocked, "attempt", st.attempts)
	st = s.release(st)
	if s.config.MaxCalibrationAttempts > 0 && st.attempts >= s.config.MaxCalibrationAttempts {
		return st, fmt.Errorf("%w after %d calibration attempts", ErrBlocked, st.attempts)
	}
	st.phase = phaseInitializing
	return st, nil
}

func (s *Scraper) arm(ctx context.Context, st state) (next state, err error) {
	ctx, span := tracer.Start(ctx, "scraper.arm")
	defer func() { endSpan(span, err) }()

	_, err = st.game.ClickIn(ctx, s.config.Bands.Turbo)
	if err != nil {
		return st, fmt.Errorf("turbo: %w", err)
	}
	err = s.pause(ctx, s.config.ActionPauseMs)
	if err != nil {
		return st, err
	}
	st.phase = phaseRound
	return st, nil
}

func (s *Scraper) bet(ctx context.Context, st state) error {
	if s.config.Mode == ModeSingle {
		_, err := st.game.ClickIn(ctx, s.config.Bands.Bet)
		if err != nil {
			return fmt.Errorf("bet: %w", err)
		}
		return nil
	}

	steps := []struct {
		name string
		band browser.Band
	}{
		{name: "auto", band: s.config.Bands.Auto},
		{name: "ten", band: s.config.Bands.Ten},
		{name: "start", band: s.config.Bands.Start},
	}
	for i, step := range steps {
		if i > 0 {
			err := s.pause(ctx, s.config.ActionPauseMs)
			if err != nil {
				return err
			}
		}
		_, err := st.game.ClickIn(ctx, step.band)
		if err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

// awaitReady polls the play button until it is enabled again.
func (s *Scraper) awaitReady(ctx context.Context, st state) error {
	for polls := 1; ; polls++ {
		shot, err := st.game.Screenshot(ctx)
		if err != nil {
			return fmt.Errorf("screenshot: %w", err)
		}
		if s.recognizer.PlayEnabled(ctx, shot).Or(false) {
			return nil
		}
		if s.config.ReadyPollLimit > 0 && polls >= s.config.ReadyPollLimit {
			return fmt.Errorf("%w: play button not enabled after %d polls", ErrFrozen, polls)
		}
		s.tel.ReportDebug(report_scraper_round, "waiting for the game to play again")
		err = s.pause(ctx, s.config.PollIntervalMs)
		if err != nil {
			return err
		}
	}
}

func (s *Scraper) notify(ctx context.Context, st state) int {
	ctx, span := tracer.Start(ctx, "scraper.notify")
	defer span.End()

	err := st.session.Settle(ctx)
	if err != nil {
		s.tel.ReportWarning(report_scraper_notify, err)
	}
	records := intercept.Records(s.decoder.DecodeAll(st.session.Exchanges()))
	for _, record := range records {
		for _, sub := range s.subscribers {
			err := sub.Process(ctx, record)
			if err != nil {
				span.RecordError(err)
				s.tel.ReportBroken(report_scraper_notify, err, "subscriber", fmt.Sprintf("%T", sub))
			}
		}
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	s.tel.ReportDebug(report_scraper_notify, "records", len(records))
	return len(records)
}

func (s *Scraper) round(ctx context.Context, st state) (next state, err error) {
	ctx, span := tracer.Start(ctx, "scraper.round")
	defer func() { endSpan(span, err) }()

	st.rounds++
	span.SetAttributes(attribute.Int("round", st.rounds))

	err = s.bet(ctx, st)
	if err != nil {
		return st, err
	}
	err = s.awaitReady(ctx, st)
	if err != nil {
		return st, err
	}

	st.records += s.notify(ctx, st)

	st.balance = 0
	shot, err := st.game.Screenshot(ctx)
	if err != nil {
		return st, fmt.Errorf("screenshot: %w", err)
	}
	balance := s.recognizer.Balance(ctx, shot)
	if _, ok := balance.Get(); !ok {
		s.tel.ReportWarning(report_scraper_round, "balance", balance.String())
	}
	st.balance = balance.Or(0)
	s.tel.ReportDebug(report_scraper_round, "balance", FormatBalance(st.balance))

	if st.balance <= 0 {
		st.phase = phaseDone
	}
	return st, nil
}

// shutdown forwards what the live session captured since the last round, if
// any, and releases it.
func (s *Scraper) shutdown(ctx context.Context, st state) state {
	if st.session != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		st.records += s.notify(ctx, st)
		cancel()
	}
	st = s.release(st)
	s.tel.ReportDebug(report_scraper_shutdown, "attempts", st.attempts, "rounds", st.rounds, "records", st.records)
	return st
}
