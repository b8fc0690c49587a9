package models

import (
	"fmt"
	"strings"
)

// EntityType identifies one importable export and doubles as the sync_log tabel_naam.
type EntityType string

const (
	EntityParticulier EntityType = "relaties_particulier"
	EntityZakelijk    EntityType = "relaties_zakelijk"
	EntityPolissen    EntityType = "polissen"
)

var EntityTypes = []EntityType{EntityParticulier, EntityZakelijk, EntityPolissen}

// ParseEntityType accepts the table name, its URL slug or the bare relatie type.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "relaties_particulier", "particulier":
		return EntityParticulier, nil
	case "relaties_zakelijk", "zakelijk":
		return EntityZakelijk, nil
	case "polissen", "polis":
		return EntityPolissen, nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

func (e EntityType) String() string {
	return string(e)
}

// Slug is the form used in URL paths, e.g. relaties-zakelijk.
func (e EntityType) Slug() string {
	return strings.ReplaceAll(string(e), "_", "-")
}

// RelatieType returns the relatie subtype stamped on every record of this export.
func (e EntityType) RelatieType() (RelatieType, bool) {
	switch e {
	case EntityParticulier:
		return RelatieParticulier, true
	case EntityZakelijk:
		return RelatieZakelijk, true
	}
	return "", false
}

type RelatieType string

const (
	RelatieParticulier RelatieType = "particulier"
	RelatieZakelijk    RelatieType = "zakelijk"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUploader Role = "uploader"
	RoleUser     Role = "user"
)

// CanImport reports whether the role may start or continue an import.
func (r Role) CanImport() bool {
	return r == RoleAdmin || r == RoleUploader
}

// ImportStrategy selects how an import treats stored records of the same entity type.
type ImportStrategy string

const (
	// ReplaceAll deletes every stored record and inserts the file wholesale.
	ReplaceAll ImportStrategy = "replace_all"
	// ReconcileAndLog diffs the file against the stored set and records each change.
	ReconcileAndLog ImportStrategy = "reconcile_and_log"
)

func ParseImportStrategy(s string) (ImportStrategy, error) {
	switch ImportStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case ReplaceAll:
		return ReplaceAll, nil
	case ReconcileAndLog:
		return ReconcileAndLog, nil
	}
	return "", fmt.Errorf("unknown import strategy %q", s)
}

type SyncStatus string

const (
	SyncProcessing SyncStatus = "processing"
	SyncSuccess    SyncStatus = "success"
	SyncError      SyncStatus = "error"
)

type WijzigingType string

const (
	WijzigingNieuw      WijzigingType = "nieuw"
	WijzigingGewijzigd  WijzigingType = "gewijzigd"
	WijzigingVerwijderd WijzigingType = "verwijderd"
)
