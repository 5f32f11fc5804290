// Package tika is an OCR client for an Apache Tika server with tesseract
// enabled.
package tika

import (
	"context"
	"fmt"
	"net/http"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const report_client_text = "client.text"

type Config struct {
	Address string `json:"address"`
	// Timeout is in seconds.
	Timeout int `json:"timeout"`
	// RequestsPerSecond limits the rate of OCR requests, a value <= 0 means
	// unlimited. Configs read by the runner replace 0 with their default, so
	// they use a negative value to lift the limit.
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(config Config, tel telemetry.API) Client {
	assert.NotEmptyStr(config.Address)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("tika", tel)

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	httpClient.SetBaseURL(config.Address)

	if config.RequestsPerSecond > 0 {
		burst := int(config.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}
	telemetry.InstrumentResty(httpClient, tel)

	return Client{http: httpClient, tel: tel}
}

// Text runs OCR on a png image and returns the plain text extracted by tika.
func (c Client) Text(ctx context.Context, png []byte) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		SetHeader("Content-Type", "image/png").
		SetHeader("X-Tika-PDFOcrStrategy", "ocr_only").
		SetBody(png).
		Put("/tika")
	if err != nil {
		c.tel.ReportBroken(report_client_text, fmt.Errorf("put: %w", err))
		return "", err
	}
	if res.StatusCode() != http.StatusOK {
		err = fmt.Errorf("tika returned a %d status code", res.StatusCode())
		c.tel.ReportBroken(report_client_text, err)
		return "", err
	}
	return res.String(), nil
}
