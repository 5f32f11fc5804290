package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"tigerscraper/internal/components/chrono"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/intercept"

	"github.com/chromedp/cdproto/network"
)

const (
	report_capture_listen = "capture.listen"
	report_capture_body   = "capture.body"
)

type bodyFetcher func(ctx context.Context, id network.RequestID) ([]byte, error)

type finished struct {
	id       network.RequestID
	exchange intercept.Exchange
}

// capture assembles in-scope network events into exchanges and appends them to
// the buffer in the order their responses finished loading.
type capture struct {
	scope  *regexp.Regexp
	buffer *intercept.Buffer
	fetch  bodyFetcher
	clock  chrono.API
	tel    telemetry.API

	mu      sync.Mutex
	pending map[network.RequestID]*intercept.Exchange
	queue   chan finished
	// inflight counts the queued exchanges whose body is not fetched yet.
	inflight int
	idle     []chan struct{}
}

func newCapture(scope *regexp.Regexp, buffer *intercept.Buffer, fetch bodyFetcher, clock chrono.API, tel telemetry.API) *capture {
	return &capture{
		scope:   scope,
		buffer:  buffer,
		fetch:   fetch,
		clock:   clock,
		tel:     tel,
		pending: make(map[network.RequestID]*intercept.Exchange),
		queue:   make(chan finished, 256),
	}
}

// listen must never block, it runs on the chromedp event loop.
func (c *capture) listen(ev any) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		if ev.Request == nil || !c.scope.MatchString(ev.Request.URL) {
			return
		}
		ex, err := requestExchange(ev.Request)
		if err != nil {
			c.tel.ReportWarning(report_capture_listen, err)
			return
		}
		c.mu.Lock()
		c.pending[ev.RequestID] = &ex
		c.mu.Unlock()

	case *network.EventResponseReceived:
		if ev.Response == nil {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		ex, ok := c.pending[ev.RequestID]
		if !ok {
			return
		}
		ex.StatusCode = int(ev.Response.Status)
		ex.ResponseHeaders = flattenHeaders(ev.Response.Headers)
		ex.Date = c.clock.Now()
		if date, err := http.ParseTime(ex.ResponseHeader("Date")); err == nil {
			ex.Date = date
		}

	case *network.EventLoadingFinished:
		c.mu.Lock()
		ex, ok := c.pending[ev.RequestID]
		delete(c.pending, ev.RequestID)
		c.mu.Unlock()
		if !ok || ex.StatusCode == 0 {
			return
		}
		c.begin()
		select {
		case c.queue <- finished{id: ev.RequestID, exchange: *ex}:
		default:
			c.end()
			c.tel.ReportWarning(report_capture_listen, fmt.Errorf("capture queue is full, dropping %s", ex.URL))
		}

	case *network.EventLoadingFailed:
		c.mu.Lock()
		delete(c.pending, ev.RequestID)
		c.mu.Unlock()
	}
}

// run fetches the bodies of finished exchanges until ctx is done.
func (c *capture) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.queue:
			c.complete(ctx, f)
		}
	}
}

func (c *capture) complete(ctx context.Context, f finished) {
	defer c.end()
	body, err := c.fetch(ctx, f.id)
	if err != nil {
		c.tel.ReportWarning(report_capture_body, fmt.Errorf("%s: %w", f.exchange.URL, err))
		return
	}
	f.exchange.ResponseBody = body
	c.buffer.Add(f.exchange)
}

func (c *capture) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight++
}

func (c *capture) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight > 0 {
		return
	}
	for _, ch := range c.idle {
		close(ch)
	}
	c.idle = nil
}

// settled returns a channel that is closed once every exchange that finished
// loading so far is either in the buffer or dropped.
func (c *capture) settled() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan struct{})
	if c.inflight == 0 {
		close(ch)
		return ch
	}
	c.idle = append(c.idle, ch)
	return ch
}

func requestExchange(req *network.Request) (intercept.Exchange, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return intercept.Exchange{}, fmt.Errorf("parse url: %w", err)
	}
	return intercept.Exchange{
		Method:         req.Method,
		URL:            req.URL,
		Host:           u.Host,
		Path:           u.Path,
		RawQuery:       u.RawQuery,
		RequestHeaders: flattenHeaders(req.Headers),
		RequestBody:    postData(req.PostDataEntries),
	}, nil
}

func flattenHeaders(headers network.Headers) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// postData joins the post data entries of a request, entries are base64
// encoded by the devtools protocol.
func postData(entries []*network.PostDataEntry) []byte {
	var sb strings.Builder
	for _, e := range entries {
		if e == nil {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(e.Bytes)
		if err != nil {
			sb.WriteString(e.Bytes)
			continue
		}
		sb.Write(raw)
	}
	return []byte(sb.String())
}
