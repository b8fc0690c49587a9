package models

import (
	"time"

	"github.com/Ramsey-B/tulip/pkg/database"
)

// SyncLog is the audit record of one import run.
type SyncLog struct {
	ID                 int64      `db:"id" json:"id"`
	SyncDatum          time.Time  `db:"sync_datum" json:"sync_datum"`
	TabelNaam          EntityType `db:"tabel_naam" json:"tabel_naam"`
	BestandNaam        *string    `db:"bestand_naam" json:"bestand_naam"`
	RecordsTotaal      int        `db:"records_totaal" json:"records_totaal"`
	RecordsNieuw       int        `db:"records_nieuw" json:"records_nieuw"`
	RecordsGewijzigd   int        `db:"records_gewijzigd" json:"records_gewijzigd"`
	RecordsVerwijderd  int        `db:"records_verwijderd" json:"records_verwijderd"`
	RecordsOngewijzigd int        `db:"records_ongewijzigd" json:"records_ongewijzigd"`
	SyncDuurSeconden   *float64   `db:"sync_duur_seconden" json:"sync_duur_seconden"`
	Status             SyncStatus `db:"status" json:"status"`
	ErrorMessage       *string    `db:"error_message" json:"error_message"`
	UitgevoerdDoor     *string    `db:"uitgevoerd_door" json:"uitgevoerd_door"`
	Strategy           string     `db:"strategy" json:"strategy"`
	LockToken          *string    `db:"lock_token" json:"-"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// SyncWijziging is one record level change detected by a reconciling import.
// For gewijzigd records VeldNaam, OudeWaarde and NieuweWaarde hold the
// changed fields joined with ", ".
type SyncWijziging struct {
	ID             int64                    `db:"id" json:"id"`
	SyncID         int64                    `db:"sync_id" json:"sync_id"`
	SyncDatum      time.Time                `db:"sync_datum" json:"sync_datum"`
	TabelNaam      EntityType               `db:"tabel_naam" json:"tabel_naam"`
	RecordID       string                   `db:"record_id" json:"record_id"`
	WijzigingType  WijzigingType            `db:"wijziging_type" json:"wijziging_type"`
	VeldNaam       *string                  `db:"veld_naam" json:"veld_naam"`
	OudeWaarde     *string                  `db:"oude_waarde" json:"oude_waarde"`
	NieuweWaarde   *string                  `db:"nieuwe_waarde" json:"nieuwe_waarde"`
	RecordSnapshot database.JSONB[Snapshot] `db:"record_snapshot" json:"record_snapshot"`
}

// Snapshot is the full state of a record at the moment a change was detected.
type Snapshot map[string]any
