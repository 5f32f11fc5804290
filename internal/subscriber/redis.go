package subscriber

import (
	"context"
	"fmt"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/model"

	"github.com/redis/go-redis/v9"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// ConnectRedis creates a client and checks that the server is reachable.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rdb, nil
}

// RedisSubscriber publishes every record as json on a channel.
type RedisSubscriber struct {
	client  Publisher
	channel string
	tel     telemetry.API
}

func NewRedisSubscriber(client Publisher, channel string, tel telemetry.API) RedisSubscriber {
	assert.NotNil(client)
	assert.NotEmptyStr(channel)
	assert.NotNil(tel)
	return RedisSubscriber{
		client:  client,
		channel: channel,
		tel:     telemetry.NewScopedAPI("subscriber", tel),
	}
}

func (s RedisSubscriber) Process(ctx context.Context, record model.Record) error {
	payload, err := encode(record)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	receivers, err := s.client.Publish(ctx, s.channel, payload).Result()
	if err != nil {
		s.tel.ReportBroken(report_redis_process, err)
		return fmt.Errorf("publish: %w", err)
	}
	s.tel.ReportDebug(report_redis_process, "channel", s.channel, "receivers", receivers)
	return nil
}
