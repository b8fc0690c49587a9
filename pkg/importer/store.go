package importer

import (
	"context"
	"time"

	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/reconcile"
)

// Actor is the authenticated user running an import.
type Actor struct {
	ID   string
	Role models.Role
}

type BeginRequest struct {
	Entity   models.EntityType
	Actor    Actor
	FileName string
	Strategy models.ImportStrategy
	// Reconcile is set for ReconcileAndLog imports. The store calls it with
	// the stored set it read while holding the table lock, before clearing.
	Reconcile Reconciler
}

// Reconciler diffs the incoming records against the stored set.
type Reconciler func(existing models.Dataset) *reconcile.Diff

// Session is an open import. Every batch and the final call refer to it.
type Session struct {
	ID        int64
	Entity    models.EntityType
	StartedAt time.Time
	// Diff is what Reconcile returned; nil for replace-all sessions.
	Diff *reconcile.Diff
}

// Completion carries the final figures of a successful import. Records is
// the number of primary records; polissen imports add their dekkingen and
// pakketten.
type Completion struct {
	Records      int
	Dekkingen    int
	Pakketten    int
	FileName     string
	DuurSeconden float64
}

func (c Completion) Total() int {
	return c.Records + c.Dekkingen + c.Pakketten
}

// Store is the storage side of the batch protocol. Begin clears the stored
// records of the entity type and opens an audit entry in processing state.
// Calls are atomic on their own but not across each other.
type Store interface {
	Begin(ctx context.Context, req BeginRequest) (*Session, error)
	SendBatch(ctx context.Context, session *Session, batch models.Dataset, n int) error
	Finish(ctx context.Context, session *Session, done Completion) error
	Fail(ctx context.Context, session *Session, reason string, duurSeconden float64) error
}

// ReconcilingStore can also hand out the stored set for a diff. Its Begin
// honours BeginRequest.Reconcile.
type ReconcilingStore interface {
	Store
	Existing(ctx context.Context, entity models.EntityType) (models.Dataset, error)
}
