package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// - ErrNotFound: record does not exist in the store
// - ErrUnavailable: backing service or execution context is gone
// - ErrTerminated: the offload pool was shut down before the call completed
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrTerminated  = errors.New("terminated")
)
