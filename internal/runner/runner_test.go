package runner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"tigerscraper/internal/components/chrono"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/model"
	"tigerscraper/internal/repository"
	"tigerscraper/internal/scraper"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	pingErr error
	ensured int
	closed  int
}

func (r *fakeRepository) Ping(ctx context.Context) error         { return r.pingErr }
func (r *fakeRepository) EnsureSchema(ctx context.Context) error { r.ensured++; return nil }
func (r *fakeRepository) Close(ctx context.Context) error        { r.closed++; return nil }

func (r *fakeRepository) Save(ctx context.Context, record model.Record) (string, error) {
	return "1", nil
}

func (r *fakeRepository) Recent(ctx context.Context, n int) ([]model.Document, error) {
	return nil, nil
}

var _ repository.Repository = &fakeRepository{}

type scriptedScraper struct {
	errs  []error
	calls int
}

func (s *scriptedScraper) Scrape(ctx context.Context) (scraper.Summary, error) {
	s.calls++
	if len(s.errs) == 0 {
		return scraper.Summary{Rounds: 1}, nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return scraper.Summary{}, err
}

func newRunner(config LoopConfig, repo *fakeRepository, s *scriptedScraper) (*Runner, *chrono.FakeImpl) {
	clock := chrono.NewFakeImpl(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(config, repo, s, clock, &telemetry.Recorder{}), clock
}

func TestRunUnreachable(t *testing.T) {
	repo := &fakeRepository{pingErr: errors.New("server selection timeout")}
	s := &scriptedScraper{}
	r, _ := newRunner(LoopConfig{}, repo, s)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)
	require.Zero(t, s.calls)
	require.Zero(t, repo.ensured)
	require.Equal(t, 1, repo.closed)
}

func TestRunRetriesRecoverable(t *testing.T) {
	repo := &fakeRepository{}
	s := &scriptedScraper{errs: []error{
		scraper.ErrBlocked,
		scraper.ErrFrozen,
	}}
	r, clock := newRunner(LoopConfig{MaxRunAttempts: 5, RetryDelayMs: 250}, repo, s)

	closed := 0
	r.OnClose(func(ctx context.Context) error { closed++; return nil })

	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, 3, s.calls)
	require.Equal(t, 1, repo.ensured)
	require.Equal(t, 1, repo.closed)
	require.Equal(t, 1, closed)
	require.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, clock.Sleeps)

	require.NoError(t, r.Close(context.Background()))
	require.Equal(t, 1, repo.closed)
}

func TestRunGivesUp(t *testing.T) {
	repo := &fakeRepository{}
	s := &scriptedScraper{errs: []error{scraper.ErrBlocked, scraper.ErrBlocked, scraper.ErrBlocked}}
	r, _ := newRunner(LoopConfig{MaxRunAttempts: 2}, repo, s)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, scraper.ErrBlocked)
	require.Equal(t, 2, s.calls)
	require.Equal(t, 1, repo.closed)
}

func TestRunStopsOnFatal(t *testing.T) {
	repo := &fakeRepository{}
	fatal := errors.New("chrome not found")
	s := &scriptedScraper{errs: []error{fatal}}
	r, _ := newRunner(LoopConfig{MaxRunAttempts: 5}, repo, s)

	require.ErrorIs(t, r.Run(context.Background()), fatal)
	require.Equal(t, 1, s.calls)
	require.Equal(t, 1, repo.closed)
}

type fakeCron struct {
	spec       string
	callback   func()
	stopped    bool
	registered chan struct{}
}

func (c *fakeCron) Cron(spec string, callback func()) error {
	c.spec = spec
	c.callback = callback
	close(c.registered)
	return nil
}

func (c *fakeCron) Next() time.Time {
	return time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
}

func (c *fakeCron) Stop() {
	c.stopped = true
}

func TestSchedule(t *testing.T) {
	repo := &fakeRepository{}
	s := &scriptedScraper{}
	r, _ := newRunner(LoopConfig{}, repo, s)
	cron := &fakeCron{registered: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- r.Schedule(ctx, cron, "@every 1h")
	}()

	<-cron.registered
	cron.callback()
	require.Equal(t, 1, s.calls)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, 1, repo.ensured)
	require.Equal(t, "@every 1h", cron.spec)
	require.True(t, cron.stopped)
	require.Equal(t, 1, repo.closed)
}

func TestReadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{
		// override a few values, everything else comes from the defaults
		repository: {
			driver: "sqlite",
			sqlite: { file: ":memory:" },
		},
		game: { max_calibration_attempts: 3 },
		tika: { address: "http://tika:9998" },
	}`), 0644)
	require.NoError(t, err)

	config, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, repository.DriverSqlite, config.Repository.Driver)
	require.Equal(t, ":memory:", config.Repository.Sqlite.File)
	require.Equal(t, 3, config.Game.MaxCalibrationAttempts)
	require.Equal(t, int64(4500), config.Game.CalibrationBet)
	require.Equal(t, scraper.DefaultGameURL, config.Game.GameURL)
	require.Equal(t, "http://tika:9998", config.Tika.Address)
	require.Equal(t, 30, config.Tika.Timeout)
	require.Equal(t, 1920, config.Browser.WindowWidth)
	require.Equal(t, 8.0, config.Recognition.Options.Threshold)
	require.Equal(t, 5, config.Runner.MaxRunAttempts)
}

func TestReadConfigUnlimited(t *testing.T) {
	cases := []struct {
		file        string
		maxAttempts int
		rps         float64
	}{
		{
			file:        `{ runner: { max_run_attempts: -1 }, tika: { requests_per_second: -1 } }`,
			maxAttempts: -1,
			rps:         -1,
		},
		{
			file:        `{ runner: { max_run_attempts: 0 }, tika: { requests_per_second: 0 } }`,
			maxAttempts: 5,
			rps:         4,
		},
		{
			file:        `{ runner: { max_run_attempts: 2 }, tika: { requests_per_second: 0.5 } }`,
			maxAttempts: 2,
			rps:         0.5,
		},
	}

	for _, test := range cases {
		path := filepath.Join(t.TempDir(), "config.json5")
		require.NoError(t, os.WriteFile(path, []byte(test.file), 0644))

		config, err := ReadConfig(path)
		require.NoError(t, err, test.file)
		require.Equal(t, test.maxAttempts, config.Runner.MaxRunAttempts, test.file)
		require.Equal(t, test.rps, config.Tika.RequestsPerSecond, test.file)
	}
}

func TestRunUnlimitedAttempts(t *testing.T) {
	repo := &fakeRepository{}
	errs := make([]error, 7)
	for i := range errs {
		errs[i] = scraper.ErrFrozen
	}
	s := &scriptedScraper{errs: errs}
	r, clock := newRunner(LoopConfig{MaxRunAttempts: -1, RetryDelayMs: 10}, repo, s)

	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, 8, s.calls)
	require.Len(t, clock.Sleeps, 7)
}

func TestNewRecognizerMissingReference(t *testing.T) {
	config := Defaults()
	config.Recognition.Reference = filepath.Join(t.TempDir(), "enabled_play_button.png")

	_, err := NewRecognizer(config, &telemetry.Recorder{})
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Contains(t, err.Error(), "config.example.json5")
}
