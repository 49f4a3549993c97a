package cql_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"

	"github.com/syssam/cassava/dialect/cql"
)

type codeErr int

func (e codeErr) Error() string   { return fmt.Sprintf("code %#x", int(e)) }
func (e codeErr) Code() int       { return int(e) }
func (e codeErr) Message() string { return e.Error() }

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name                                      string
		err                                       error
		timeout, unavailable, overloaded, invalid bool
	}{
		{name: "nil"},
		{name: "plain", err: errors.New("boom")},
		{name: "deadline", err: fmt.Errorf("select: %w", context.DeadlineExceeded), timeout: true},
		{name: "no response", err: gocql.ErrTimeoutNoResponse, timeout: true},
		{name: "read timeout", err: fmt.Errorf("exec: %w", &gocql.RequestErrReadTimeout{}), timeout: true},
		{name: "write timeout code", err: codeErr(gocql.ErrCodeWriteTimeout), timeout: true},
		{name: "no connections", err: gocql.ErrNoConnections, unavailable: true},
		{name: "unavailable replicas", err: &gocql.RequestErrUnavailable{}, unavailable: true},
		{name: "bootstrapping", err: codeErr(gocql.ErrCodeBootstrapping), unavailable: true},
		{name: "overloaded", err: fmt.Errorf("insert: %w", codeErr(gocql.ErrCodeOverloaded)), overloaded: true},
		{name: "syntax", err: codeErr(gocql.ErrCodeSyntax), invalid: true},
		{name: "unknown table", err: errors.New("unconfigured table person"), invalid: true},
		{name: "parse", err: errors.New("line 1:7 no viable alternative at input 'FORM'"), invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.timeout, cql.IsTimeout(tt.err), "timeout")
			assert.Equal(t, tt.unavailable, cql.IsUnavailable(tt.err), "unavailable")
			assert.Equal(t, tt.overloaded, cql.IsOverloaded(tt.err), "overloaded")
			assert.Equal(t, tt.invalid, cql.IsInvalidQuery(tt.err), "invalid")
			assert.Equal(t, tt.timeout || tt.unavailable || tt.overloaded, cql.IsRetryable(tt.err), "retryable")
		})
	}
}
