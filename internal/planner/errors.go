package planner

import (
	"context"
	"errors"
	"net"

	"github.com/chargepath/chargepath/internal/provider/resilience"
	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/internal/stations"
)

// Code is a machine-readable planning failure kind.
type Code string

// Planning failure kinds.
const (
	CodeMissingCredentials Code = "missing-credentials"
	CodeInvalidLocation    Code = "invalid-location"
	CodeRouteNotFound      Code = "route-not-found"
	CodeNoChargersFound    Code = "no-chargers-found"
	CodeNetworkError       Code = "network-error"
	CodeUnknown            Code = "unknown"
)

// Error is the single error type returned by Plan. Message is meant to be
// shown to the user as is.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify converts any error into an *Error. Errors that already are one
// pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	code := CodeUnknown
	switch {
	case errors.Is(err, routing.ErrMissingCredentials), errors.Is(err, stations.ErrMissingCredentials):
		code = CodeMissingCredentials
	case errors.Is(err, routing.ErrInvalidLocation):
		code = CodeInvalidLocation
	case errors.Is(err, routing.ErrRouteNotFound):
		code = CodeRouteNotFound
	case errors.Is(err, routing.ErrNetwork), errors.Is(err, stations.ErrDirectoryUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		isProviderError(err):
		code = CodeNetworkError
	}
	return &Error{Code: code, Message: err.Error(), Err: err}
}

func isProviderError(err error) bool {
	var (
		re *routing.Error
		se *stations.Error
		ne net.Error
	)
	return errors.As(err, &re) || errors.As(err, &se) || errors.As(err, &ne)
}
