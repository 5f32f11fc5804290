package intercept

import (
	"strings"
	"sync"
	"time"
)

// Exchange is one captured request/response pair.
type Exchange struct {
	SessionID string

	Method         string
	URL            string
	Host           string
	Path           string
	RawQuery       string
	RequestHeaders map[string]string
	RequestBody    []byte

	StatusCode      int
	ResponseHeaders map[string]string
	ResponseBody    []byte
	Date            time.Time
}

// ResponseHeader looks up a response header case-insensitively.
func (e Exchange) ResponseHeader(name string) string {
	return lookup(e.ResponseHeaders, name)
}

func lookup(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Buffer holds the exchanges captured by one browser session in capture order.
// It is written to by the network listener and drained by the scraper.
type Buffer struct {
	sessionID string

	mu        sync.Mutex
	exchanges []Exchange
}

func NewBuffer(sessionID string) *Buffer {
	return &Buffer{sessionID: sessionID}
}

func (b *Buffer) SessionID() string {
	return b.sessionID
}

// Add appends an exchange, stamping it with the buffer's session id.
func (b *Buffer) Add(ex Exchange) {
	ex.SessionID = b.sessionID

	b.mu.Lock()
	defer b.mu.Unlock()
	b.exchanges = append(b.exchanges, ex)
}

// Drain returns every buffered exchange and empties the buffer.
func (b *Buffer) Drain() []Exchange {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.exchanges
	b.exchanges = nil
	return out
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exchanges = nil
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.exchanges)
}
