package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/Ramsey-B/tulip/pkg/models"
)

type Counts struct {
	Nieuw       int `json:"nieuw"`
	Gewijzigd   int `json:"gewijzigd"`
	Verwijderd  int `json:"verwijderd"`
	Ongewijzigd int `json:"ongewijzigd"`
}

// Entry is one logged change: a new, changed or removed record. Unchanged
// records produce no entry.
type Entry struct {
	RecordID string               `json:"record_id"`
	Type     models.WijzigingType `json:"wijziging_type"`
	Changes  []FieldChange        `json:"changes,omitempty"`
	Snapshot models.Snapshot      `json:"record_snapshot"`
}

// Diff is the type independent form of a Result, ready to be logged.
type Diff struct {
	Entries []Entry `json:"entries"`
	Counts  Counts  `json:"counts"`
}

func (r Result[T]) Counts() Counts {
	return Counts{
		Nieuw:       len(r.Nieuw),
		Gewijzigd:   len(r.Gewijzigd),
		Verwijderd:  len(r.Verwijderd),
		Ongewijzigd: len(r.Ongewijzigd),
	}
}

// Diff flattens the result into entries: nieuw first, then gewijzigd, then
// verwijderd. Snapshots hold the incoming record, or the stored one for
// removals.
func (r Result[T]) Diff() *Diff {
	d := &Diff{
		Entries: make([]Entry, 0, len(r.Nieuw)+len(r.Gewijzigd)+len(r.Verwijderd)),
		Counts:  r.Counts(),
	}
	for _, rec := range r.Nieuw {
		d.Entries = append(d.Entries, Entry{RecordID: rec.Key(), Type: models.WijzigingNieuw, Snapshot: Snapshot(rec)})
	}
	for _, c := range r.Gewijzigd {
		d.Entries = append(d.Entries, Entry{
			RecordID: c.Incoming.Key(),
			Type:     models.WijzigingGewijzigd,
			Changes:  c.Changes,
			Snapshot: Snapshot(c.Incoming),
		})
	}
	for _, rec := range r.Verwijderd {
		d.Entries = append(d.Entries, Entry{RecordID: rec.Key(), Type: models.WijzigingVerwijderd, Snapshot: Snapshot(rec)})
	}
	return d
}

// VeldNaam, OudeWaarde and NieuweWaarde join the field changes with ", ",
// empty values rendered as "". They are nil when nothing changed.
func (e Entry) VeldNaam() *string {
	return e.join(func(c FieldChange) string { return c.Field })
}

func (e Entry) OudeWaarde() *string {
	return e.join(func(c FieldChange) string { return deref(c.Old) })
}

func (e Entry) NieuweWaarde() *string {
	return e.join(func(c FieldChange) string { return deref(c.New) })
}

func (e Entry) join(part func(FieldChange) string) *string {
	if len(e.Changes) == 0 {
		return nil
	}
	parts := make([]string, len(e.Changes))
	for i, c := range e.Changes {
		parts[i] = part(c)
	}
	s := strings.Join(parts, ", ")
	return &s
}

// Snapshot renders record through its json tags, without system fields.
func Snapshot(record any) models.Snapshot {
	raw, err := json.Marshal(record)
	if err != nil {
		return models.Snapshot{}
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil || snap == nil {
		return models.Snapshot{}
	}
	for f := range SystemFields {
		delete(snap, f)
	}
	return snap
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
