package signalclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSignal means the server has no signal for the pair yet. It is
	// an empty state, not a failure.
	ErrNoSignal = errors.New("no signal available")

	// ErrAuthExpired means the bearer token was rejected. The caller
	// should drop the stored token and re-authenticate.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrInsufficientFunds maps the broker deposit rejection.
	ErrInsufficientFunds = errors.New("insufficient deposit")
)

// NetworkError wraps transport-level failures: timeouts, refused
// connections, DNS errors. The server may be fine; the data is unknown.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError carries a non-2xx response with the server's detail message,
// which is suitable for surfacing to users verbatim.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}
