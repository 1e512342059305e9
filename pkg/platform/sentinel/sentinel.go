package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the ledger client and other
// infrastructure layers return these (optionally wrapped) so services can
// translate them into domain errors.
//
// - ErrNotFound: record does not exist in store
// - ErrConflict: unique key already taken (tx hash, country code on insert)
// - ErrInvalidState: record in wrong state for requested transition
// - ErrUnavailable: dependency temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
