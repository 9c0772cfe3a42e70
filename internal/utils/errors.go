package utils

import (
	"errors"
	"net/http"

	"ms-invites/internal/models"
)

// StatusForError maps the invite core's error kinds onto HTTP status codes.
// Sold-out and quota exhaustion stay distinct strings in the body so the
// seller UI can tell "restock this seller" apart from "close sales".
func StatusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrExhaustedRange),
		errors.Is(err, models.ErrQuotaExceeded),
		errors.Is(err, models.ErrAmountMismatch),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrNotPaid),
		errors.Is(err, models.ErrAlreadyCheckedIn),
		errors.Is(err, models.ErrWrongEvent),
		errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnknownKind),
		errors.Is(err, models.ErrUnknownSeller):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
