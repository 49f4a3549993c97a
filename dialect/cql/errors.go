package cql

import (
	"context"
	"errors"
	"strings"

	"github.com/gocql/gocql"
)

// requestError is implemented by the errors the coordinator returns,
// e.g. *gocql.RequestErrUnavailable.
type requestError interface {
	Code() int
	Message() string
}

// IsTimeout reports if the error resulted from a coordinator or client side timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gocql.ErrTimeoutNoResponse) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if _, ok := asError[*gocql.RequestErrReadTimeout](err); ok {
		return true
	}
	if _, ok := asError[*gocql.RequestErrWriteTimeout](err); ok {
		return true
	}
	if e, ok := asError[requestError](err); ok {
		return e.Code() == gocql.ErrCodeReadTimeout || e.Code() == gocql.ErrCodeWriteTimeout
	}
	return containsAny(err.Error(), "Operation timed out", "timeout")
}

// IsUnavailable reports if the error resulted from too few live replicas or
// no usable connection.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gocql.ErrNoConnections) || errors.Is(err, gocql.ErrUnavailable) {
		return true
	}
	if _, ok := asError[*gocql.RequestErrUnavailable](err); ok {
		return true
	}
	if e, ok := asError[requestError](err); ok {
		return e.Code() == gocql.ErrCodeUnavailable || e.Code() == gocql.ErrCodeBootstrapping
	}
	return containsAny(err.Error(), "Cannot achieve consistency level", "no hosts available")
}

// IsOverloaded reports if the coordinator rejected the request as overloaded.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[requestError](err); ok {
		return e.Code() == gocql.ErrCodeOverloaded
	}
	return false
}

// IsInvalidQuery reports if the statement was rejected as syntactically or
// semantically invalid.
func IsInvalidQuery(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[requestError](err); ok {
		switch e.Code() {
		case gocql.ErrCodeSyntax, gocql.ErrCodeInvalid, gocql.ErrCodeConfig, gocql.ErrCodeAlreadyExists:
			return true
		}
	}
	return containsAny(err.Error(), "no viable alternative", "mismatched input", "Undefined column name", "unconfigured table")
}

// IsRetryable reports if the statement may succeed when executed again.
func IsRetryable(err error) bool {
	return IsTimeout(err) || IsUnavailable(err) || IsOverloaded(err)
}

// asError attempts to extract an error implementing T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
