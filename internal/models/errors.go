package models

import "errors"

// Error kinds surfaced by the invite core. Handlers map these to HTTP status
// codes with errors.Is; sold-out (ErrExhaustedRange) and seller restock
// (ErrQuotaExceeded) stay distinct so operators know which lever to pull.
var (
	ErrExhaustedRange    = errors.New("code range exhausted")
	ErrQuotaExceeded     = errors.New("seller quota exceeded")
	ErrAmountMismatch    = errors.New("confirmed amount does not match amount due")
	ErrInvalidTransition = errors.New("invalid invite state transition")
	ErrNotPaid           = errors.New("invite is not paid")
	ErrAlreadyCheckedIn  = errors.New("invite already checked in")
	ErrNotFound          = errors.New("invite not found")
	ErrWrongEvent        = errors.New("code belongs to a different event")
	ErrUnknownKind       = errors.New("kind has no declared range on this event")
	ErrUnknownSeller     = errors.New("seller not registered")
	ErrConflict          = errors.New("concurrent update conflict")
)
