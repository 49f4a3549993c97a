package cql

import (
	"context"
	"time"

	"github.com/gocql/gocql"
)

// Statement is a CQL string with its bound values and execution options.
// Statements are immutable: the With methods return modified copies.
type Statement struct {
	cql    string
	values []any

	consistency       *gocql.Consistency
	serialConsistency *gocql.SerialConsistency
	retryPolicy       gocql.RetryPolicy
	pageSize          int
	pagingState       []byte
	tracing           bool
	timestamp         *int64
	readTimeout       time.Duration
	idempotent        bool
	conditional       bool
}

// NewStatement returns a statement for the given CQL and values.
func NewStatement(cql string, values ...any) *Statement {
	return &Statement{cql: cql, values: values}
}

func (s *Statement) clone() *Statement {
	c := *s
	return &c
}

// CQL returns the statement text.
func (s *Statement) CQL() string { return s.cql }

// String returns the statement text.
func (s *Statement) String() string { return s.cql }

// Values returns the bound values in bind-marker order.
func (s *Statement) Values() []any { return s.values }

// Consistency returns the statement consistency, if set.
func (s *Statement) Consistency() (gocql.Consistency, bool) {
	if s.consistency == nil {
		return 0, false
	}
	return *s.consistency, true
}

// SerialConsistency returns the statement serial consistency, if set.
func (s *Statement) SerialConsistency() (gocql.SerialConsistency, bool) {
	if s.serialConsistency == nil {
		return 0, false
	}
	return *s.serialConsistency, true
}

// RetryPolicy returns the statement retry policy or nil.
func (s *Statement) RetryPolicy() gocql.RetryPolicy { return s.retryPolicy }

// PageSize returns the fetch size. Zero means the driver default.
func (s *Statement) PageSize() int { return s.pageSize }

// PagingState returns the paging state to resume from.
func (s *Statement) PagingState() []byte { return s.pagingState }

// Tracing reports whether tracing is requested.
func (s *Statement) Tracing() bool { return s.tracing }

// Timestamp returns the client-side write timestamp in microseconds, if set.
func (s *Statement) Timestamp() (int64, bool) {
	if s.timestamp == nil {
		return 0, false
	}
	return *s.timestamp, true
}

// ReadTimeout returns the per-statement timeout. Zero means none.
func (s *Statement) ReadTimeout() time.Duration { return s.readTimeout }

// Idempotent reports whether the statement is safe to retry.
func (s *Statement) Idempotent() bool { return s.idempotent }

// Conditional reports whether the statement is a lightweight transaction.
func (s *Statement) Conditional() bool { return s.conditional }

// WithValues returns a copy bound to the given values.
func (s *Statement) WithValues(values ...any) *Statement {
	c := s.clone()
	c.values = values
	return c
}

// WithConsistency returns a copy with the given consistency level.
func (s *Statement) WithConsistency(cl gocql.Consistency) *Statement {
	c := s.clone()
	c.consistency = &cl
	return c
}

// WithSerialConsistency returns a copy with the given serial consistency.
func (s *Statement) WithSerialConsistency(cl gocql.SerialConsistency) *Statement {
	c := s.clone()
	c.serialConsistency = &cl
	return c
}

// WithRetryPolicy returns a copy with the given retry policy.
func (s *Statement) WithRetryPolicy(p gocql.RetryPolicy) *Statement {
	c := s.clone()
	c.retryPolicy = p
	return c
}

// WithPageSize returns a copy with the given fetch size.
func (s *Statement) WithPageSize(n int) *Statement {
	c := s.clone()
	c.pageSize = n
	return c
}

// WithPagingState returns a copy resuming from the given paging state.
func (s *Statement) WithPagingState(state []byte) *Statement {
	c := s.clone()
	c.pagingState = state
	return c
}

// WithTracing returns a copy with tracing enabled or disabled.
func (s *Statement) WithTracing(on bool) *Statement {
	c := s.clone()
	c.tracing = on
	return c
}

// WithTimestamp returns a copy with a client-side write timestamp.
func (s *Statement) WithTimestamp(micros int64) *Statement {
	c := s.clone()
	c.timestamp = &micros
	return c
}

// WithReadTimeout returns a copy with a per-statement timeout.
func (s *Statement) WithReadTimeout(d time.Duration) *Statement {
	c := s.clone()
	c.readTimeout = d
	return c
}

// WithIdempotent returns a copy marked idempotent or not.
func (s *Statement) WithIdempotent(on bool) *Statement {
	c := s.clone()
	c.idempotent = on
	return c
}

// WithConditional returns a copy marked as a lightweight transaction.
func (s *Statement) WithConditional(on bool) *Statement {
	c := s.clone()
	c.conditional = on
	return c
}

// ctxDefaultsKey is the key used for attaching statement defaults to a context.
type ctxDefaultsKey struct{}

// defaults holds statement options applied to statements that do not set them.
type defaults struct {
	consistency *gocql.Consistency
	pageSize    int
	tracing     bool
}

// WithConsistency returns a context whose statements default to the given
// consistency level.
func WithConsistency(ctx context.Context, cl gocql.Consistency) context.Context {
	d, _ := ctx.Value(ctxDefaultsKey{}).(defaults)
	d.consistency = &cl
	return context.WithValue(ctx, ctxDefaultsKey{}, d)
}

// WithPageSize returns a context whose statements default to the given fetch size.
func WithPageSize(ctx context.Context, n int) context.Context {
	d, _ := ctx.Value(ctxDefaultsKey{}).(defaults)
	d.pageSize = n
	return context.WithValue(ctx, ctxDefaultsKey{}, d)
}

// WithTracing returns a context whose statements are traced.
func WithTracing(ctx context.Context) context.Context {
	d, _ := ctx.Value(ctxDefaultsKey{}).(defaults)
	d.tracing = true
	return context.WithValue(ctx, ctxDefaultsKey{}, d)
}

// ApplyDefaults returns st with the context defaults applied to the options
// it leaves unset.
func ApplyDefaults(ctx context.Context, st *Statement) *Statement {
	d, ok := ctx.Value(ctxDefaultsKey{}).(defaults)
	if !ok {
		return st
	}
	if d.consistency != nil && st.consistency == nil {
		st = st.WithConsistency(*d.consistency)
	}
	if d.pageSize > 0 && st.pageSize == 0 {
		st = st.WithPageSize(d.pageSize)
	}
	if d.tracing && !st.tracing {
		st = st.WithTracing(true)
	}
	return st
}
