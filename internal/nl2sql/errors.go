package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// FailureKind is the closed set of ways a generation call can fail.
type FailureKind string

const (
	FailureUnauthorized FailureKind = "unauthorized"
	FailureRateLimited  FailureKind = "rate_limited"
	FailureUnreachable  FailureKind = "unreachable"
	FailureUnknown      FailureKind = "unknown"
)

type Error struct {
	Kind       FailureKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s generation failed (%s, status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s generation failed (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies any error returned by a Generator.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	if isTransportError(err) {
		return FailureUnreachable
	}
	return FailureUnknown
}

func kindForStatus(status int) FailureKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureUnauthorized
	case http.StatusTooManyRequests:
		return FailureRateLimited
	default:
		return FailureUnknown
	}
}

func statusError(provider string, status int, err error) *Error {
	return &Error{Kind: kindForStatus(status), Provider: provider, StatusCode: status, Err: err}
}

// transportError wraps a failure that happened before any HTTP status was
// received.
func transportError(provider string, err error) *Error {
	return &Error{Kind: FailureUnreachable, Provider: provider, Err: err}
}

func classify(provider string, err error) *Error {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}
	if isTransportError(err) {
		return transportError(provider, err)
	}
	return &Error{Kind: FailureUnknown, Provider: provider, Err: err}
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
