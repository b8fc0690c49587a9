package errors

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
)

// Messages are shown to operators as-is.
const (
	MsgNotAuthenticated = "Niet geauthenticeerd"
	MsgForbidden        = "Geen toegang"
	MsgNoFile           = "Geen bestand ontvangen"
	MsgNoRecords        = "Geen geldige records gevonden in het bestand"
	MsgNoSyncID         = "Geen syncId ontvangen"
	MsgStartFailed      = "Kon import niet starten"
	MsgFinishFailed     = "Kon import niet afronden"
	MsgImportRunning    = "Er loopt al een import voor deze tabel"
	MsgSessionClosed    = "Import is niet meer actief"
	MsgSessionExpired   = "Importsessie verlopen"
	MsgWrongEntity      = "Sync log hoort bij een andere tabel"
	MsgRelatieType      = "Relatie is al opgeslagen met een ander relatietype"
	MsgUnknown          = "Onbekende fout"
)

func NotAuthenticated() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnauthorized, MsgNotAuthenticated)
}

func Forbidden() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusForbidden, MsgForbidden)
}

func NoFile() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, MsgNoFile)
}

func NoRecords() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, MsgNoRecords)
}

func NoSyncID() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, MsgNoSyncID)
}

func ImportRunning(tabel string) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, MsgImportRunning).AddMetaValue("tabel_naam", tabel)
}

// SessionClosed is returned for batches sent to a log that is no longer processing.
func SessionClosed(syncID int64) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, MsgSessionClosed).AddMetaValue("sync_id", strconv.FormatInt(syncID, 10))
}

// SessionExpired means the table lock of the session ran out and may be held by another import.
func SessionExpired(syncID int64) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, MsgSessionExpired).AddMetaValue("sync_id", strconv.FormatInt(syncID, 10))
}

func WrongEntity(tabel string) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, MsgWrongEntity).AddMetaValue("tabel_naam", tabel)
}

// RelatieTypeConflict lists relaties whose id is stored under the other relatie type.
func RelatieTypeConflict(ids []string) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, MsgRelatieType).AddMetaValue("ids", ids)
}

// StartFailed, BatchFailed and FinishFailed prefix a phase message to cause
// and keep its status code when it has one.
func StartFailed(cause error) *httperror.HTTPError {
	return wrap(cause, MsgStartFailed)
}

func BatchFailed(batch int, cause error) *httperror.HTTPError {
	return wrapf(cause, "Batch %d mislukt", batch).AddMetaValue("batch", strconv.Itoa(batch))
}

func FinishFailed(cause error) *httperror.HTTPError {
	return wrap(cause, MsgFinishFailed)
}

func wrap(cause error, msg string) *httperror.HTTPError {
	return wrapf(cause, "%s", msg)
}

func wrapf(cause error, format string, args ...any) *httperror.HTTPError {
	code := http.StatusInternalServerError
	if httperror.IsHTTPError(cause) {
		code = httperror.GetStatusCode(cause)
	}
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return httperror.NewHTTPError(code, msg)
}

// StatusCode returns the HTTP status carried by err, 500 otherwise.
func StatusCode(err error) int {
	if httperror.IsHTTPError(err) {
		return httperror.GetStatusCode(err)
	}
	return http.StatusInternalServerError
}

// Message is the operator facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if httperror.IsHTTPError(err) {
		return httperror.ToHTTPError(err).Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgUnknown
}
