// Package snipeerr defines the closed error taxonomy used across the
// ingest, classification, decode, validation, and execution pipeline.
package snipeerr

import "errors"

// Kind is one of the error kinds named in the error handling design.
type Kind string

const (
	RateLimited          Kind = "rate_limited"
	Timeout              Kind = "timeout"
	GatewayTransient     Kind = "gateway_transient"
	MalformedTransaction Kind = "malformed_transaction"
	MintNotFound         Kind = "mint_not_found"
	InvalidAddress       Kind = "invalid_address"
	InsufficientBalance  Kind = "insufficient_balance"
	SimulationRejected   Kind = "simulation_rejected"
	NotConfirmed         Kind = "not_confirmed"
	ProviderError        Kind = "provider_error"
	ConfigInvalid        Kind = "config_invalid"
	RetriesExhausted     Kind = "retries_exhausted"
)

// Error carries a Kind alongside the operation and underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs an *Error for kind, wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err's Kind (if it is an *Error) equals kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Transient reports whether kind is retried by the backoff runner.
func (k Kind) Transient() bool {
	switch k {
	case RateLimited, Timeout, GatewayTransient:
		return true
	default:
		return false
	}
}
