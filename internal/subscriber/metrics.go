package subscriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/model"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSubscriber keeps prometheus totals of the records it receives.
type MetricsSubscriber struct {
	records  prometheus.Counter
	bet      prometheus.Counter
	win      prometheus.Counter
	balance  prometheus.Gauge
	lastGame prometheus.Gauge
}

func NewMetricsSubscriber(reg prometheus.Registerer) (MetricsSubscriber, error) {
	s := MetricsSubscriber{
		records:  prometheus.NewCounter(prometheus.CounterOpts{Name: "tigerscraper_records_total", Help: "spin records received"}),
		bet:      prometheus.NewCounter(prometheus.CounterOpts{Name: "tigerscraper_bet_amount_total", Help: "sum of the bet amounts"}),
		win:      prometheus.NewCounter(prometheus.CounterOpts{Name: "tigerscraper_win_amount_total", Help: "sum of the win amounts"}),
		balance:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "tigerscraper_balance", Help: "balance after the last spin"}),
		lastGame: prometheus.NewGauge(prometheus.GaugeOpts{Name: "tigerscraper_last_game_id", Help: "game id of the last spin"}),
	}
	for _, c := range []prometheus.Collector{s.records, s.bet, s.win, s.balance, s.lastGame} {
		err := reg.Register(c)
		if err != nil {
			return MetricsSubscriber{}, fmt.Errorf("register metrics: %w", err)
		}
	}
	return s, nil
}

func (s MetricsSubscriber) Process(ctx context.Context, record model.Record) error {
	s.records.Inc()
	// counters panic on negative values
	if record.BetAmount() > 0 {
		s.bet.Add(record.BetAmount())
	}
	if record.WinAmount() > 0 {
		s.win.Add(record.WinAmount())
	}
	s.balance.Set(record.Balance())
	s.lastGame.Set(float64(record.GameID()))
	return nil
}

type HealthFunc func(ctx context.Context) error

// MetricsHandler serves /metrics from gatherer and /healthz from healthFn.
func MetricsHandler(gatherer prometheus.Gatherer, healthFn HealthFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartMetricsServer serves MetricsHandler on addr in the background, a server
// that fails to listen or stops serving is reported to tel.
func StartMetricsServer(addr string, gatherer prometheus.Gatherer, healthFn HealthFunc, tel telemetry.API) *http.Server {
	tel = telemetry.NewScopedAPI("subscriber", tel)
	srv := &http.Server{
		Addr:              addr,
		Handler:           MetricsHandler(gatherer, healthFn),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			tel.ReportBroken(report_metrics_serve, err, "address", addr)
		}
	}()
	return srv
}
