// Package model contains the telemetry records produced from intercepted spin exchanges.
package model

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const DefaultBodyFormat = "Form Value"

var (
	ErrInvalidStatusCode = errors.New("status code must be within [100, 599]")
	ErrMissingField      = errors.New("missing required field")
)

// Request is the request half of an intercepted exchange.
type Request struct {
	Method      string
	Path        string
	Host        string
	URL         string
	QueryString string
	Headers     map[string]string
	// Body is the request body decoded as url-encoded form data.
	Body       map[string][]string
	BodyFormat string
}

// QueryMap parses QueryString, a key that appears more than once maps to all of
// its values in their original order. Malformed pairs are dropped.
func (r Request) QueryMap() map[string][]string {
	values, _ := url.ParseQuery(r.QueryString)
	return values
}

func (r Request) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"method", r.Method},
		{"path", r.Path},
		{"host", r.Host},
		{"url", r.URL},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("request: %s: %w", f.name, ErrMissingField)
		}
	}
	return nil
}

// Response is the response half of an intercepted exchange.
type Response struct {
	StatusCode int
	Headers    map[string]string
	// Body is the decoded json body.
	Body map[string]any
	Date time.Time
}

// NewResponse creates a validated Response.
func NewResponse(statusCode int, headers map[string]string, body map[string]any, date time.Time) (Response, error) {
	res := Response{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
		Date:       date,
	}
	return res, res.Validate()
}

func (r Response) Validate() error {
	if r.StatusCode < 100 || r.StatusCode > 599 {
		return fmt.Errorf("response: %d: %w", r.StatusCode, ErrInvalidStatusCode)
	}
	if r.Body == nil {
		return fmt.Errorf("response: body: %w", ErrMissingField)
	}
	return nil
}

// Record pairs the request and response of one spin. The derived fields are
// computed once on creation, a Record is never modified afterwards: it keeps
// its own copy of the maps it is created from and hands out copies of them.
type Record struct {
	sessionID string
	request   Request
	response  Response

	gameID    int64
	betAmount float64
	winAmount float64
	betProfit float64
	balance   float64
}

func NewRecord(sessionID string, req Request, res Response) (Record, error) {
	if req.BodyFormat == "" {
		req.BodyFormat = DefaultBodyFormat
	}
	if err := req.Validate(); err != nil {
		return Record{}, err
	}
	if err := res.Validate(); err != nil {
		return Record{}, err
	}

	req, res = req.clone(), res.clone()
	return Record{
		sessionID: sessionID,
		request:   req,
		response:  res,
		gameID:    int64(numberAt(res.Body, pathGameID...)),
		betAmount: numberAt(res.Body, pathBetAmount...),
		winAmount: numberAt(res.Body, pathWinAmount...),
		betProfit: numberAt(res.Body, pathBetProfit...),
		balance:   numberAt(res.Body, pathBalance...),
	}, nil
}

func (r Record) SessionID() string  { return r.sessionID }
func (r Record) Request() Request   { return r.request.clone() }
func (r Record) Response() Response { return r.response.clone() }
func (r Record) GameID() int64      { return r.gameID }
func (r Record) BetAmount() float64 { return r.betAmount }
func (r Record) WinAmount() float64 { return r.winAmount }
func (r Record) BetProfit() float64 { return r.betProfit }
func (r Record) Balance() float64   { return r.balance }

// spin response bodies look like {"dt": {"si": {"gid": 126, "tb": 4.5, ...}}, "err": null}
var (
	pathGameID    = []string{"dt", "si", "gid"}
	pathBetAmount = []string{"dt", "si", "tb"}
	pathWinAmount = []string{"dt", "si", "tw"}
	pathBetProfit = []string{"dt", "si", "np"}
	pathBalance   = []string{"dt", "si", "bl"}
)

// numberAt walks body along path, anything missing or non-numeric yields 0.
func numberAt(body map[string]any, path ...string) float64 {
	var current any = body
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return 0
		}
		current, ok = obj[key]
		if !ok {
			return 0
		}
	}

	switch v := current.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
