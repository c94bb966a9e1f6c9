package wallet

import "errors"

// Typed failures crossing the service boundary. Every public operation
// returns one of these (possibly wrapped with detail) rather than leaking
// adapter errors.
var (
	// ErrNetworkUnavailable means the chain adapter could not produce a
	// result. Callers must treat the queried state as unknown, not zero.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrInsufficientBalance means amount + fee exceeds the spendable
	// balance at check time.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBuildFailure means the unsigned transaction could not be
	// constructed.
	ErrBuildFailure = errors.New("transaction build failed")

	// ErrBroadcastFailure means the signed transaction was rejected or
	// never acknowledged by the chain API.
	ErrBroadcastFailure = errors.New("broadcast failed")

	// ErrSigningFailure means no signing key for the source address could
	// be resolved from the secure store.
	ErrSigningFailure = errors.New("signing key unavailable")
)
