package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes import events to Kafka
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

func NewProducer(config ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		MaxAttempts:            config.MaxAttempts,
		WriteTimeout:           config.WriteTimeout,
		Compression:            compressionCodec(config.Compression),
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}

	return newProducer(writer, config.Topic, logger), nil
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	}
	return 0
}

func newProducer(writer messageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{writer: writer, logger: logger, topic: topic}
}

// PublishImportEvent writes evt keyed by table so events of one table stay
// ordered on a partition.
func (p *Producer) PublishImportEvent(ctx context.Context, evt *ImportEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.PublishImportEvent",
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("tabel_naam", evt.TabelNaam.String()),
		attribute.Int64("sync_id", evt.SyncID),
	)
	defer span.End()

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.TraceID = tracing.GetTraceID(ctx)

	data, err := json.Marshal(evt)
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("failed to marshal import event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "type", Value: []byte(evt.Type)},
		{Key: "tabel_naam", Value: []byte(evt.TabelNaam)},
		{Key: "sync_id", Value: []byte(strconv.FormatInt(evt.SyncID, 10))},
	}
	trace := map[string]string{}
	tracing.Inject(ctx, trace)
	for k, v := range trace {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(evt.TabelNaam),
		Value:   data,
		Headers: headers,
	}); err != nil {
		tracing.RecordError(span, err)
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish import event to Kafka topic %s", p.topic)
		return err
	}

	p.logger.WithContext(ctx).Debugf("Published %s for sync %d to Kafka", evt.Type, evt.SyncID)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
