package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

var testLogger = ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})

func TestNewImportEvent(t *testing.T) {
	file := "zakelijk.csv"
	duur := 12.5
	msg := "Batch 3 mislukt"

	ok := NewImportEvent(&models.SyncLog{ID: 7, TabelNaam: models.EntityZakelijk, Status: models.SyncSuccess, BestandNaam: &file, RecordsTotaal: 10, RecordsNieuw: 2, SyncDuurSeconden: &duur})
	assert.Equal(t, EventImportCompleted, ok.Type)
	assert.Equal(t, "zakelijk.csv", ok.BestandNaam)
	assert.Equal(t, 12.5, ok.DuurSeconden)
	assert.Equal(t, 2, ok.Nieuw)

	failed := NewImportEvent(&models.SyncLog{ID: 8, TabelNaam: models.EntityPolissen, Status: models.SyncError, ErrorMessage: &msg})
	assert.Equal(t, EventImportFailed, failed.Type)
	assert.Equal(t, msg, failed.Error)
}

func TestPublishImportEvent(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "tulip-imports", testLogger)

	err := p.PublishImportEvent(context.Background(), &ImportEvent{Type: EventImportCompleted, SyncID: 7, TabelNaam: models.EntityPolissen})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	m := w.messages[0]
	assert.Equal(t, "polissen", string(m.Key))
	assert.Contains(t, m.Headers, kafka.Header{Key: "sync_id", Value: []byte("7")})

	var evt ImportEvent
	require.NoError(t, json.Unmarshal(m.Value, &evt))
	assert.Equal(t, int64(7), evt.SyncID)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestPublishImportEvent_WriterError(t *testing.T) {
	p := newProducer(&recordingWriter{err: errors.New("broker down")}, "tulip-imports", testLogger)
	assert.Error(t, p.PublishImportEvent(context.Background(), &ImportEvent{TabelNaam: models.EntityPolissen}))
}

func TestNewProducer_Validates(t *testing.T) {
	_, err := NewProducer(ProducerConfig{Topic: "x"}, testLogger)
	assert.Error(t, err)
	_, err = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}}, testLogger)
	assert.Error(t, err)
}
