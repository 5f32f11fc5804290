// Package subscriber contains the sinks decoded records are forwarded to.
package subscriber

import (
	"encoding/json"
	"tigerscraper/internal/model"
)

const (
	report_repository_process = "repository.process"
	report_kafka_process      = "kafka.process"
	report_redis_process      = "redis.process"
	report_metrics_serve      = "metrics.serve"
)

type KafkaConfig struct {
	Brokers string `json:"brokers"`
	Topic   string `json:"topic"`
}

type RedisConfig struct {
	Address string `json:"address"`
	Channel string `json:"channel"`
}

type MetricsConfig struct {
	// Address is the listen address of the /metrics and /healthz server, the
	// metrics subscriber and its server are disabled when it is empty.
	Address string `json:"address"`
}

// Config selects the subscribers, the repository is always subscribed unless
// disabled and a sink without an address is disabled.
type Config struct {
	DisableRepository bool        `json:"disable_repository"`
	Kafka             KafkaConfig `json:"kafka"`
	Redis             RedisConfig `json:"redis"`
}

func encode(record model.Record) ([]byte, error) {
	return json.Marshal(record.Document())
}
