// Package runner is the operator level loop around the scraper, it owns the
// repository and retries scrapes that fail in a recoverable way.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/chrono"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/repository"
	"tigerscraper/internal/scraper"
	"time"
)

const (
	report_runner_run      = "run"
	report_runner_schedule = "schedule"
	report_runner_close    = "close"
)

var ErrUnreachable = errors.New("repository is not reachable")

type Scraper interface {
	Scrape(ctx context.Context) (scraper.Summary, error)
}

type Runner struct {
	config  LoopConfig
	repo    repository.Repository
	scraper Scraper
	clock   chrono.API
	tel     telemetry.API
	closers []func(ctx context.Context) error

	closeOnce sync.Once
	closeErr  error
}

func New(config LoopConfig, repo repository.Repository, s Scraper, clock chrono.API, tel telemetry.API) *Runner {
	assert.NotNil(repo)
	assert.NotNil(s)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return &Runner{
		config:  config,
		repo:    repo,
		scraper: s,
		clock:   clock,
		tel:     telemetry.NewScopedAPI("runner", tel),
	}
}

// OnClose registers a function that is called by Close, after the repository
// is closed.
func (r *Runner) OnClose(fn func(ctx context.Context) error) {
	r.closers = append(r.closers, fn)
}

// Prepare checks that the repository is reachable and ensures its schema.
func (r *Runner) Prepare(ctx context.Context) error {
	err := r.repo.Ping(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUnreachable, err)
		r.tel.ReportBroken(report_runner_run, err)
		return err
	}
	err = r.repo.EnsureSchema(ctx)
	if err != nil {
		r.tel.ReportBroken(report_runner_run, err)
		return err
	}
	return nil
}

// loop scrapes until a scrape ends without error, a non recoverable error
// occurs or the run attempts are used up.
func (r *Runner) loop(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		summary, err := r.scraper.Scrape(ctx)
		if err == nil {
			r.tel.ReportDebug(
				report_runner_run,
				"attempt", attempt,
				"rounds", summary.Rounds,
				"records", summary.Records,
			)
			return nil
		}
		if !errors.Is(err, scraper.ErrRecoverable) {
			return err
		}
		if r.config.MaxRunAttempts > 0 && attempt >= r.config.MaxRunAttempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		r.tel.ReportWarning(report_runner_run, err, "attempt", attempt)
		err = r.clock.Sleep(ctx, time.Duration(r.config.RetryDelayMs)*time.Millisecond)
		if err != nil {
			return err
		}
	}
}

// Run prepares the repository and runs the loop once. The repository is closed
// when it returns.
func (r *Runner) Run(ctx context.Context) error {
	defer r.Close(context.WithoutCancel(ctx))

	err := r.Prepare(ctx)
	if err != nil {
		return err
	}
	return r.loop(ctx)
}

// Schedule prepares the repository and runs the loop on a cron schedule until
// ctx is done. The repository is closed when it returns.
func (r *Runner) Schedule(ctx context.Context, cron chrono.CronAPI, spec string) error {
	defer r.Close(context.WithoutCancel(ctx))

	err := r.Prepare(ctx)
	if err != nil {
		return err
	}
	err = cron.Cron(spec, func() {
		err := r.loop(ctx)
		if err != nil && ctx.Err() == nil {
			r.tel.ReportBroken(report_runner_schedule, err)
		}
		r.tel.ReportDebug(report_runner_schedule, "next", cron.Next())
	})
	if err != nil {
		return fmt.Errorf("schedule '%s': %w", spec, err)
	}
	r.tel.ReportDebug(report_runner_schedule, "cron", spec, "next", cron.Next())

	<-ctx.Done()
	cron.Stop()
	return nil
}

// Close closes the repository and calls the OnClose functions, only the first
// call has an effect.
func (r *Runner) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		errs := []error{r.repo.Close(ctx)}
		for _, fn := range r.closers {
			errs = append(errs, fn(ctx))
		}
		r.closeErr = errors.Join(errs...)
		if r.closeErr != nil {
			r.tel.ReportWarning(report_runner_close, r.closeErr)
		}
	})
	return r.closeErr
}
