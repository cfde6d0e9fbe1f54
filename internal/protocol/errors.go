package protocol

import (
	"errors"
	"fmt"
)

// Typed failures for the protocol stack. Cipher and codec errors never
// crash the process; call sites convert them to one of these and log at
// the operation boundary.

var (
	// ErrEmptyPayload reports a response with no envelope text.
	ErrEmptyPayload = errors.New("empty response payload")

	// ErrNoCorrelationID reports a trigger response without a request serial.
	ErrNoCorrelationID = errors.New("trigger response carried no request serial")

	// ErrPollTimeout reports an operation that exhausted its poll budget.
	ErrPollTimeout = errors.New("poll attempts exhausted")

	// ErrNotAuthenticated reports a session call attempted while logged out.
	ErrNotAuthenticated = errors.New("no active session")
)

// DecryptError reports a failure to decrypt or parse an inner payload.
// Callers treat it as a possibly stale session token, not as a permanent
// fault.
type DecryptError struct {
	Err error
}

func (e *DecryptError) Error() string { return fmt.Sprintf("payload decrypt: %v", e.Err) }
func (e *DecryptError) Unwrap() error { return e.Err }

// AuthError reports a rejected login.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login rejected: code %s: %s", e.Code, e.Message)
}

// APIError reports an unclassified non-success server code.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("server code %s: %s", e.Code, e.Message) }

// RateLimitedError reports a call still rate limited after its retry
// budget.
type RateLimitedError struct {
	Attempts int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts", e.Attempts)
}

// SessionExpiredError reports an expired session that re-login could not
// recover.
type SessionExpiredError struct {
	Code string
}

func (e *SessionExpiredError) Error() string { return fmt.Sprintf("session expired (code %s)", e.Code) }

// EndpointNotSupportedError reports an endpoint the cloud has declared
// unsupported for a vehicle. The orchestrator memoizes it for the rest of
// the process run.
type EndpointNotSupportedError struct {
	VIN      string
	Endpoint string
}

func (e *EndpointNotSupportedError) Error() string {
	return fmt.Sprintf("endpoint %s not supported for vehicle %s", e.Endpoint, e.VIN)
}

// ControlPasswordError reports a remote-command PIN failure. Surfaced to
// the caller verbatim and never retried automatically.
type ControlPasswordError struct {
	Code    string
	Message string
}

func (e *ControlPasswordError) Error() string {
	return fmt.Sprintf("control password rejected: code %s: %s", e.Code, e.Message)
}
