package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"tigerscraper/internal/browser"
	"tigerscraper/internal/components/chrono"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/intercept"
	"tigerscraper/internal/ocr/tika"
	"tigerscraper/internal/recognition"
	"tigerscraper/internal/repository"
	"tigerscraper/internal/scraper"
	"tigerscraper/internal/subscriber"

	"github.com/prometheus/client_golang/prometheus"
)

// NewRecognizer creates the OCR backed recognizer described by config.
func NewRecognizer(config Config, tel telemetry.API) (recognition.ImageRecognizer, error) {
	reference, err := recognition.LoadReference(config.Recognition.Reference)
	if errors.Is(err, fs.ErrNotExist) {
		return recognition.ImageRecognizer{}, fmt.Errorf("%w (capture it as described in config.example.json5)", err)
	}
	if err != nil {
		return recognition.ImageRecognizer{}, err
	}
	ocr := tika.NewClient(config.Tika, tel)
	return recognition.NewImageRecognizer(ocr, reference, config.Recognition.Options, tel), nil
}

type closers []func(ctx context.Context) error

func (c closers) close(ctx context.Context) error {
	var errs []error
	for _, fn := range c {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

// subscribers creates the configured sinks, the returned closers release them.
func subscribers(ctx context.Context, config Config, repo repository.Repository, tel telemetry.API) ([]scraper.Subscriber, closers, error) {
	var subs []scraper.Subscriber
	var cleanup closers

	if !config.Subscribers.DisableRepository {
		subs = append(subs, subscriber.NewRepositorySubscriber(repo, tel))
	}

	if config.Subscribers.Kafka.Brokers != "" {
		writer := subscriber.NewKafkaWriter(config.Subscribers.Kafka)
		cleanup = append(cleanup, func(context.Context) error { return writer.Close() })
		subs = append(subs, subscriber.NewKafkaSubscriber(writer, tel))
	}

	if config.Subscribers.Redis.Address != "" {
		rdb, err := subscriber.ConnectRedis(ctx, config.Subscribers.Redis.Address)
		if err != nil {
			return nil, nil, errors.Join(err, cleanup.close(ctx))
		}
		cleanup = append(cleanup, func(context.Context) error { return rdb.Close() })
		subs = append(subs, subscriber.NewRedisSubscriber(rdb, config.Subscribers.Redis.Channel, tel))
	}

	if config.Metrics.Address != "" {
		reg := prometheus.NewRegistry()
		metrics, err := subscriber.NewMetricsSubscriber(reg)
		if err != nil {
			return nil, nil, errors.Join(err, cleanup.close(ctx))
		}
		srv := subscriber.StartMetricsServer(config.Metrics.Address, reg, repo.Ping, tel)
		cleanup = append(cleanup, srv.Shutdown)
		subs = append(subs, metrics)
	}

	return subs, cleanup, nil
}

// Build wires every component described by config into a runner.
func Build(ctx context.Context, config Config, clock chrono.API, tel telemetry.API) (*Runner, error) {
	repo, err := repository.Open(ctx, config.Repository)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Runner, error) {
		return nil, errors.Join(err, repo.Close(ctx))
	}

	recognizer, err := NewRecognizer(config, tel)
	if err != nil {
		return fail(err)
	}
	launcher, err := browser.NewLauncher(config.Browser, clock, tel)
	if err != nil {
		return fail(err)
	}
	if config.Subscribers.Redis.Address != "" && config.Subscribers.Redis.Channel == "" {
		return fail(fmt.Errorf("a redis channel was not specified"))
	}
	subs, cleanup, err := subscribers(ctx, config, repo, tel)
	if err != nil {
		return fail(err)
	}

	s := scraper.New(
		config.Game,
		scraper.BrowserLauncher(launcher),
		recognizer,
		intercept.NewDecoder(intercept.DefaultPathMarker, tel),
		subs,
		clock,
		tel,
	)
	r := New(config.Runner, repo, s, clock, tel)
	for _, fn := range cleanup {
		r.OnClose(fn)
	}
	return r, nil
}
