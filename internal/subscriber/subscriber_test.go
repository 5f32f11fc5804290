package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/model"
	"tigerscraper/internal/repository/sqlite"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func spin(t *testing.T, gid int, bet, win, balance float64) model.Record {
	t.Helper()
	res, err := model.NewResponse(200, nil, map[string]any{
		"dt": map[string]any{"si": map[string]any{
			"gid": float64(gid),
			"tb":  bet,
			"tw":  win,
			"np":  win - bet,
			"bl":  balance,
		}},
	}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	rec, err := model.NewRecord("session", model.Request{
		Method: "POST",
		Path:   "/game-api/fortune-tiger/v2/Spin",
		Host:   "api.pg-demo.com",
		URL:    "https://api.pg-demo.com/game-api/fortune-tiger/v2/Spin",
	}, res)
	require.NoError(t, err)
	return rec
}

func TestRepositorySubscriber(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.Open(sqlite.Config{File: ":memory:"})
	require.NoError(t, err)
	defer repo.Close(ctx)
	require.NoError(t, repo.EnsureSchema(ctx))

	tel := &telemetry.Recorder{}
	sub := NewRepositorySubscriber(repo, tel)
	require.NoError(t, sub.Process(ctx, spin(t, 1, 4.5, 0, 95.5)))

	docs, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, int64(1), docs[0].GameID)
	require.True(t, tel.Has(telemetry.LevelDebug, report_repository_process))
}

type failingSaver struct{}

func (failingSaver) Save(ctx context.Context, record model.Record) (string, error) {
	return "", errors.New("server selection timeout")
}

func TestRepositorySubscriberError(t *testing.T) {
	tel := &telemetry.Recorder{}
	err := NewRepositorySubscriber(failingSaver{}, tel).Process(context.Background(), spin(t, 1, 1, 0, 1))
	require.Error(t, err)
	require.True(t, tel.Has(telemetry.LevelBroken, report_repository_process))
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return w.err
}

func TestKafkaSubscriber(t *testing.T) {
	writer := &fakeWriter{}
	sub := NewKafkaSubscriber(writer, &telemetry.Recorder{})
	require.NoError(t, sub.Process(context.Background(), spin(t, 126, 4.5, 9, 104.5)))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	require.Equal(t, "126", string(msg.Key))

	var doc model.Document
	require.NoError(t, json.Unmarshal(msg.Value, &doc))
	require.Equal(t, int64(126), doc.GameID)
	require.Equal(t, 104.5, doc.Balance)

	writer.err = errors.New("leader not available")
	require.Error(t, sub.Process(context.Background(), spin(t, 1, 1, 0, 1)))
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(KafkaConfig{Brokers: "localhost:9092", Topic: "spins"})
	require.Equal(t, "spins", w.Topic)
	require.True(t, w.AllowAutoTopicCreation)
	require.NotNil(t, w.Addr)
}

type fakePublisher struct {
	channel string
	message any
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	p.channel = channel
	p.message = message
	return redis.NewIntResult(1, p.err)
}

func TestRedisSubscriber(t *testing.T) {
	pub := &fakePublisher{}
	sub := NewRedisSubscriber(pub, "spins", &telemetry.Recorder{})
	require.NoError(t, sub.Process(context.Background(), spin(t, 7, 1, 2, 3)))

	require.Equal(t, "spins", pub.channel)
	payload, ok := pub.message.([]byte)
	require.True(t, ok)
	require.Contains(t, string(payload), `"game_id":7`)

	pub.err = errors.New("connection refused")
	tel := &telemetry.Recorder{}
	require.Error(t, NewRedisSubscriber(pub, "spins", tel).Process(context.Background(), spin(t, 7, 1, 2, 3)))
	require.True(t, tel.Has(telemetry.LevelBroken, report_redis_process))
}

func TestMetricsSubscriber(t *testing.T) {
	reg := prometheus.NewRegistry()
	sub, err := NewMetricsSubscriber(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sub.Process(ctx, spin(t, 1, 4.5, 9, 104.5)))
	require.NoError(t, sub.Process(ctx, spin(t, 2, 4.5, 0, 100)))

	require.Equal(t, 2.0, testutil.ToFloat64(sub.records))
	require.Equal(t, 9.0, testutil.ToFloat64(sub.bet))
	require.Equal(t, 9.0, testutil.ToFloat64(sub.win))
	require.Equal(t, 100.0, testutil.ToFloat64(sub.balance))
	require.Equal(t, 2.0, testutil.ToFloat64(sub.lastGame))

	_, err = NewMetricsSubscriber(reg)
	require.Error(t, err)
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	sub, err := NewMetricsSubscriber(reg)
	require.NoError(t, err)
	require.NoError(t, sub.Process(context.Background(), spin(t, 1, 4.5, 0, 95.5)))

	var healthErr error
	srv := httptest.NewServer(MetricsHandler(reg, func(ctx context.Context) error { return healthErr }))
	defer srv.Close()

	get := func(path string) (int, string) {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return res.StatusCode, string(body)
	}

	status, body := get("/metrics")
	require.Equal(t, http.StatusOK, status)
	require.True(t, strings.Contains(body, "tigerscraper_records_total 1"), body)

	status, _ = get("/healthz")
	require.Equal(t, http.StatusOK, status)

	healthErr = errors.New("repository is not reachable")
	status, body = get("/healthz")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Contains(t, body, "repository is not reachable")
}

func TestStartMetricsServerReportsListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	tel := &telemetry.Recorder{}
	srv := StartMetricsServer(taken.Addr().String(), prometheus.NewRegistry(), func(ctx context.Context) error { return nil }, tel)
	defer srv.Close()

	require.Eventually(t, func() bool {
		return tel.Has(telemetry.LevelBroken, "subscriber."+report_metrics_serve)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartMetricsServerShutdown(t *testing.T) {
	tel := &telemetry.Recorder{}
	srv := StartMetricsServer("127.0.0.1:0", prometheus.NewRegistry(), func(ctx context.Context) error { return nil }, tel)
	require.NoError(t, srv.Shutdown(context.Background()))

	require.Never(t, func() bool {
		return len(tel.Reports(telemetry.LevelBroken)) > 0
	}, 200*time.Millisecond, 10*time.Millisecond)
}
