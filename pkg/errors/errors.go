package errors

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// Reason classifies why a row was skipped or a value dropped.
type Reason string

const (
	// ReasonMissingIdentity: the row lacks the entity's identity field(s).
	ReasonMissingIdentity Reason = "missing_identity"
	// ReasonDuplicate: an earlier row in the file had the same identity.
	ReasonDuplicate Reason = "duplicate"
	// ReasonMalformedRow: the csv line could not be read.
	ReasonMalformedRow Reason = "malformed_row"
	// ReasonInvalidValue: a non empty value did not parse for its field kind.
	ReasonInvalidValue Reason = "invalid_value"
)

// RowError describes a problem with one line of an export file. Skipped rows
// and dropped values are reported with it instead of aborting the import.
type RowError struct {
	Line     int    `json:"line"`
	RecordID string `json:"record_id,omitempty"`
	Field    string `json:"field,omitempty"`
	Value    string `json:"value,omitempty"`
	Reason   Reason `json:"reason"`
	Message  string `json:"message"`
}

func NewRowError(line int, reason Reason, msg string) *RowError {
	return &RowError{
		Line:    line,
		Reason:  reason,
		Message: msg,
	}
}

func NewRowErrorf(line int, reason Reason, format string, args ...any) *RowError {
	return NewRowError(line, reason, fmt.Sprintf(format, args...))
}

func (e *RowError) Error() string {
	path := []string{fmt.Sprintf("line %d", e.Line)}
	if e.RecordID != "" {
		path = append(path, fmt.Sprintf("record '%s'", e.RecordID))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}
	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *RowError) AddField(field string) *RowError {
	e.Field = field
	return e
}

func (e *RowError) AddValue(value string) *RowError {
	e.Value = value
	return e
}

func (e *RowError) AddRecordID(id string) *RowError {
	e.RecordID = id
	return e
}

func (e *RowError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).
		AddMetaValue("line", strconv.Itoa(e.Line)).
		AddMetaValue("record_id", e.RecordID).
		AddMetaValue("field", e.Field).
		AddMetaValue("reason", string(e.Reason))
}

func IsRowError(err error) bool {
	_, ok := err.(*RowError)
	return ok
}
