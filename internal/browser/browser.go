// Package browser drives a chromium instance running the game through the
// devtools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/chrono"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/intercept"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

const (
	report_launcher_launch = "launcher.launch"
	report_session_start   = "session.start"
	report_session_close   = "session.close"
	report_chromedp        = "chromedp"
)

const (
	DefaultScope         = `.*api.pg-demo.com/game-api/fortune-tiger/v2/.*`
	DefaultStartButton   = `//div[@id='__startedButton']/div`
	DefaultCanvas        = `//canvas[@id='GameCanvas']`
	DefaultStartTimeout  = 60 * time.Second
	DefaultCanvasTimeout = 10 * time.Second
	DefaultWindowWidth   = 1920
	DefaultWindowHeight  = 1080
)

var ErrElementTimeout = errors.New("timed out waiting for element")

const settleTimeout = 5 * time.Second

type Config struct {
	// Headed shows the browser window, browsers are headless by default.
	Headed bool `json:"headed"`
	// RemoteURL is the devtools websocket url of an already running browser,
	// when empty a local browser is started.
	RemoteURL string `json:"remote_url"`
	ExecPath  string `json:"exec_path"`

	WindowWidth  int `json:"window_width"`
	WindowHeight int `json:"window_height"`

	// Scope is matched against request urls, only matching exchanges are captured.
	Scope string `json:"scope"`

	StartButton string `json:"start_button"`
	Canvas      string `json:"canvas"`
	// StartTimeout and CanvasTimeout are in seconds.
	StartTimeout  int `json:"start_timeout"`
	CanvasTimeout int `json:"canvas_timeout"`
}

func DefaultConfig() Config {
	return Config{
		WindowWidth:   DefaultWindowWidth,
		WindowHeight:  DefaultWindowHeight,
		Scope:         DefaultScope,
		StartButton:   DefaultStartButton,
		Canvas:        DefaultCanvas,
		StartTimeout:  int(DefaultStartTimeout / time.Second),
		CanvasTimeout: int(DefaultCanvasTimeout / time.Second),
	}
}

// Launcher creates fresh browser sessions.
type Launcher struct {
	config Config
	scope  *regexp.Regexp
	clock  chrono.API
	tel    telemetry.API
}

func NewLauncher(config Config, clock chrono.API, tel telemetry.API) (*Launcher, error) {
	assert.NotNil(clock)
	assert.NotNil(tel)

	scope, err := regexp.Compile(config.Scope)
	if err != nil {
		return nil, fmt.Errorf("compile capture scope: %w", err)
	}
	return &Launcher{
		config: config,
		scope:  scope,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("browser", tel),
	}, nil
}

func (l *Launcher) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.config.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, l.config.RemoteURL)
	}
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !l.config.Headed),
		chromedp.WindowSize(l.config.WindowWidth, l.config.WindowHeight),
	)
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

// Launch starts a browser with network capture enabled. The session lives
// until it is closed or ctx is done, so ctx should outlive the session.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	allocCtx, cancelAlloc := l.allocator(ctx)
	browserCtx, cancelBrowser := chromedp.NewContext(
		allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			l.tel.ReportWarning(report_chromedp, fmt.Sprintf(format, args...))
		}),
	)

	sessionID := uuid.NewString()
	s := &Session{
		id:            sessionID,
		config:        l.config,
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		exchanges:     intercept.NewBuffer(sessionID),
		done:          make(chan struct{}),
		tel:           l.tel,
	}
	s.capture = newCapture(l.scope, s.exchanges, fetchResponseBody, l.clock, l.tel)
	chromedp.ListenTarget(browserCtx, s.capture.listen)

	err := chromedp.Run(
		browserCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(l.config.WindowWidth), int64(l.config.WindowHeight)),
	)
	if err != nil {
		close(s.done)
		s.Close()
		l.tel.ReportBroken(report_launcher_launch, err)
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	go func() {
		defer close(s.done)
		s.capture.run(browserCtx)
	}()

	l.tel.ReportDebug(report_launcher_launch, "session", sessionID, "remote", l.config.RemoteURL != "")
	return s, nil
}

func fetchResponseBody(ctx context.Context, id network.RequestID) ([]byte, error) {
	var body []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	return body, err
}

// Session is one running browser, it owns the browser process (or tab, for
// remote browsers) and the exchanges captured from it.
type Session struct {
	id     string
	config Config
	tel    telemetry.API

	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	capture       *capture
	exchanges     *intercept.Buffer
	done          chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Exchanges() *intercept.Buffer {
	return s.exchanges
}

// Settle waits until the body of every exchange that finished loading is
// fetched and the exchange is in the buffer. It returns early when the session
// is closed, and fails when the bodies take longer than settleTimeout.
func (s *Session) Settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	select {
	case <-s.capture.settled():
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("settle capture: %w", ctx.Err())
	}
}

func (s *Session) Game() *Game {
	return &Game{session: s, selector: s.config.Canvas}
}

// run executes actions on the browser, it stops when either ctx or the session
// is done. A positive timeout bounds the run.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) waitFor(ctx context.Context, selector string, timeout time.Duration, actions ...chromedp.Action) error {
	actions = append([]chromedp.Action{chromedp.WaitReady(selector, chromedp.BySearch)}, actions...)
	err := s.run(ctx, timeout, actions...)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s", ErrElementTimeout, selector, timeout)
	}
	return err
}

// Start opens the game, dismisses the start overlay and waits for the canvas.
func (s *Session) Start(ctx context.Context, gameURL string) error {
	s.tel.ReportDebug(report_session_start, "accessing game url")
	err := s.run(ctx, 0, chromedp.Navigate(gameURL))
	if err != nil {
		s.tel.ReportBroken(report_session_start, fmt.Errorf("navigate: %w", err))
		return err
	}

	err = s.waitFor(
		ctx,
		s.config.StartButton,
		time.Duration(s.config.StartTimeout)*time.Second,
		chromedp.Click(s.config.StartButton, chromedp.BySearch),
	)
	if err != nil {
		s.tel.ReportBroken(report_session_start, fmt.Errorf("start button: %w", err))
		return err
	}
	s.tel.ReportDebug(report_session_start, "start button clicked")

	err = s.waitFor(ctx, s.config.Canvas, time.Duration(s.config.CanvasTimeout)*time.Second)
	if err != nil {
		s.tel.ReportBroken(report_session_start, fmt.Errorf("game canvas: %w", err))
		return err
	}
	s.tel.ReportDebug(report_session_start, "game canvas found")
	return nil
}

// Close shuts the browser down, it is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
			s.tel.ReportWarning(report_session_close, err)
		}
		s.cancelBrowser()
		s.cancelAlloc()
		<-s.done
		s.exchanges.Clear()
		s.tel.ReportDebug(report_session_close, "session", s.id)
	})
	return s.closeErr
}
