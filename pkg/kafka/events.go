package kafka

import (
	"context"
	"time"

	"github.com/Ramsey-B/tulip/pkg/models"
)

const (
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
)

// ImportEvent announces the end of an import run to downstream consumers.
type ImportEvent struct {
	Type          string                `json:"type"`
	SyncID        int64                 `json:"sync_id"`
	TabelNaam     models.EntityType     `json:"tabel_naam"`
	Strategy      models.ImportStrategy `json:"strategy,omitempty"`
	BestandNaam   string                `json:"bestand_naam,omitempty"`
	Status        models.SyncStatus     `json:"status"`
	RecordsTotaal int                   `json:"records_totaal"`
	Nieuw         int                   `json:"records_nieuw"`
	Gewijzigd     int                   `json:"records_gewijzigd"`
	Verwijderd    int                   `json:"records_verwijderd"`
	Ongewijzigd   int                   `json:"records_ongewijzigd"`
	DuurSeconden  float64               `json:"sync_duur_seconden,omitempty"`
	Error         string                `json:"error,omitempty"`
	TraceID       string                `json:"trace_id,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

// NewImportEvent builds the event for a closed sync log.
func NewImportEvent(log *models.SyncLog) *ImportEvent {
	evt := &ImportEvent{
		Type:          EventImportCompleted,
		SyncID:        log.ID,
		TabelNaam:     log.TabelNaam,
		Strategy:      models.ImportStrategy(log.Strategy),
		Status:        log.Status,
		RecordsTotaal: log.RecordsTotaal,
		Nieuw:         log.RecordsNieuw,
		Gewijzigd:     log.RecordsGewijzigd,
		Verwijderd:    log.RecordsVerwijderd,
		Ongewijzigd:   log.RecordsOngewijzigd,
	}
	if log.Status == models.SyncError {
		evt.Type = EventImportFailed
	}
	if log.BestandNaam != nil {
		evt.BestandNaam = *log.BestandNaam
	}
	if log.SyncDuurSeconden != nil {
		evt.DuurSeconden = *log.SyncDuurSeconden
	}
	if log.ErrorMessage != nil {
		evt.Error = *log.ErrorMessage
	}
	return evt
}

// Publisher sends import events. Publishing is best effort; callers log
// failures and carry on.
type Publisher interface {
	PublishImportEvent(ctx context.Context, evt *ImportEvent) error
	Close() error
}

// NoopPublisher drops every event, used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishImportEvent(context.Context, *ImportEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
