package subscriber

import (
	"context"
	"fmt"
	"strconv"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/model"

	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaWriter(config KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers),
		Topic:                  config.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// KafkaSubscriber writes every record as json to a topic, keyed by game id.
type KafkaSubscriber struct {
	writer MessageWriter
	tel    telemetry.API
}

func NewKafkaSubscriber(writer MessageWriter, tel telemetry.API) KafkaSubscriber {
	assert.NotNil(writer)
	assert.NotNil(tel)
	return KafkaSubscriber{
		writer: writer,
		tel:    telemetry.NewScopedAPI("subscriber", tel),
	}
}

func (s KafkaSubscriber) Process(ctx context.Context, record model.Record) error {
	payload, err := encode(record)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(record.GameID(), 10)),
		Value: payload,
		Time:  record.Response().Date,
	})
	if err != nil {
		s.tel.ReportBroken(report_kafka_process, err)
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
