package kafka

import (
	"fmt"
	"time"
)

// ProducerConfig holds the settings for the import event writer.
type ProducerConfig struct {
	Brokers []string
	Topic   string

	// Messages are flushed when BatchSize is reached or BatchTimeout passes.
	BatchSize    int
	BatchTimeout time.Duration

	// RequiredAcks follows kafka semantics: 0 none, 1 leader, -1 all ISR.
	RequiredAcks int
	MaxAttempts  int
	WriteTimeout time.Duration
	Compression  string
}

// DefaultProducerConfig favours low latency; import events are few and small.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "tulip.imports",
		BatchSize:    10,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: -1,
		MaxAttempts:  5,
		WriteTimeout: 5 * time.Second,
		Compression:  "none",
	}
}

func (c ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka: topic is required")
	}
	switch c.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("kafka: required acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	return nil
}
