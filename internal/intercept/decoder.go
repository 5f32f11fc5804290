package intercept

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/model"
)

const (
	report_decoder_decode     = "decoder.decode"
	report_decoder_decode_all = "decoder.decode-all"
)

// DefaultPathMarker is the part of the request path that identifies a spin.
const DefaultPathMarker = "Spin"

type Kind int

const (
	KindDecoded Kind = iota
	KindSkipped
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindDecoded:
		return "decoded"
	case KindSkipped:
		return "skipped"
	case KindFailed:
		return "failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the result of decoding a single exchange, Record is only set when
// Kind is KindDecoded.
type Outcome struct {
	Kind   Kind
	Record model.Record
	// Reason is set when the exchange was skipped.
	Reason string
	Err    error
}

func decoded(r model.Record) Outcome { return Outcome{Kind: KindDecoded, Record: r} }
func skipped(reason string) Outcome  { return Outcome{Kind: KindSkipped, Reason: reason} }
func failed(err error) Outcome       { return Outcome{Kind: KindFailed, Err: err} }

// Source is anything exchanges can be drained from, usually a *Buffer.
type Source interface {
	Drain() []Exchange
}

type Decoder struct {
	pathMarker string
	tel        telemetry.API
}

func NewDecoder(pathMarker string, tel telemetry.API) Decoder {
	assert.NotNil(tel)
	if pathMarker == "" {
		pathMarker = DefaultPathMarker
	}
	return Decoder{
		pathMarker: pathMarker,
		tel:        telemetry.NewScopedAPI("intercept", tel),
	}
}

// Decode turns a captured exchange into a record. Exchanges that are not
// successful gzip encoded spins are skipped.
func (d Decoder) Decode(ex Exchange) Outcome {
	if ex.StatusCode != http.StatusOK {
		return skipped(fmt.Sprintf("status code %d", ex.StatusCode))
	}
	if !strings.Contains(ex.Path, d.pathMarker) {
		return skipped(fmt.Sprintf("path %s is not a spin", ex.Path))
	}
	encoding := ex.ResponseHeader("Content-Encoding")
	if !strings.Contains(encoding, "gzip") {
		return skipped(fmt.Sprintf("content encoding '%s' is not gzip", encoding))
	}

	record, err := d.decode(ex)
	if err != nil {
		d.tel.ReportBroken(report_decoder_decode, err, "url", ex.URL)
		return failed(err)
	}
	return decoded(record)
}

func (d Decoder) decode(ex Exchange) (model.Record, error) {
	raw, err := inflate(ex.ResponseBody)
	if err != nil {
		return model.Record{}, fmt.Errorf("gunzip: %w", err)
	}
	var body map[string]any
	err = json.Unmarshal(raw, &body)
	if err != nil {
		return model.Record{}, fmt.Errorf("json unmarshal: %w", err)
	}
	form, err := url.ParseQuery(string(ex.RequestBody))
	if err != nil {
		return model.Record{}, fmt.Errorf("parse form body: %w", err)
	}

	req := model.Request{
		Method:      ex.Method,
		Path:        ex.Path,
		Host:        ex.Host,
		URL:         ex.URL,
		QueryString: ex.RawQuery,
		Headers:     ex.RequestHeaders,
		Body:        form,
	}
	res, err := model.NewResponse(ex.StatusCode, ex.ResponseHeaders, body, ex.Date)
	if err != nil {
		return model.Record{}, err
	}
	return model.NewRecord(ex.SessionID, req, res)
}

// inflate gunzips body when it carries the gzip magic number, the browser may
// already have inflated it for us.
func inflate(body []byte) ([]byte, error) {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// DecodeAll drains src and decodes every exchange in capture order. The source
// is always emptied, whether decoding succeeds or not.
func (d Decoder) DecodeAll(src Source) []Outcome {
	exchanges := src.Drain()
	outcomes := make([]Outcome, len(exchanges))
	var failures int64
	for i, ex := range exchanges {
		outcomes[i] = d.Decode(ex)
		if outcomes[i].Kind == KindFailed {
			failures++
		}
	}
	d.tel.ReportDebug(report_decoder_decode_all, "exchanges", len(exchanges), "failed", failures)
	return outcomes
}

// Records returns the records of the decoded outcomes.
func Records(outcomes []Outcome) []model.Record {
	var out []model.Record
	for _, o := range outcomes {
		if o.Kind == KindDecoded {
			out = append(out, o.Record)
		}
	}
	return out
}
