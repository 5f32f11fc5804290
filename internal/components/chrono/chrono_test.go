package chrono

import (
	"context"
	"testing"
	"tigerscraper/internal/components/telemetry"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeImplSleep(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeImpl(start)

	require.NoError(t, clock.Sleep(context.Background(), time.Second))
	require.NoError(t, clock.Sleep(context.Background(), 500*time.Millisecond))
	require.Equal(t, start.Add(1500*time.Millisecond), clock.Now())
	require.Equal(t, []time.Duration{time.Second, 500 * time.Millisecond}, clock.Sleeps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, clock.Sleep(ctx, time.Hour), context.Canceled)
	require.Len(t, clock.Sleeps, 2)
}

func TestStandardImplSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, NewStandardImpl().Sleep(ctx, time.Hour), context.Canceled)
}

func TestStandardCron(t *testing.T) {
	rec := &telemetry.Recorder{}
	c := NewStandardCron(rec)
	defer c.Stop()

	require.True(t, c.Next().IsZero())
	require.Error(t, c.Cron("not a spec", func() {}))

	require.NoError(t, c.Cron("@every 1h", func() {}))
	next := c.Next()
	require.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)
}
