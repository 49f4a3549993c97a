package operations

import (
	"errors"
	"time"

	"github.com/gocql/gocql"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/query"
)

// QueryOptions configures the execution of a statement. The zero value uses
// the driver defaults. Options are immutable; create them with
// NewQueryOptions and derive new ones with Mutate.
type QueryOptions struct {
	consistency       *gocql.Consistency
	serialConsistency *gocql.SerialConsistency
	retryPolicy       gocql.RetryPolicy
	tracing           bool
	fetchSize         int
	readTimeout       time.Duration
	keyspace          string
}

// Consistency returns the consistency level, if set.
func (o QueryOptions) Consistency() (gocql.Consistency, bool) {
	if o.consistency == nil {
		return 0, false
	}
	return *o.consistency, true
}

// SerialConsistency returns the serial consistency level, if set.
func (o QueryOptions) SerialConsistency() (gocql.SerialConsistency, bool) {
	if o.serialConsistency == nil {
		return 0, false
	}
	return *o.serialConsistency, true
}

// RetryPolicy returns the retry policy or nil.
func (o QueryOptions) RetryPolicy() gocql.RetryPolicy { return o.retryPolicy }

// Tracing reports whether tracing is enabled.
func (o QueryOptions) Tracing() bool { return o.tracing }

// FetchSize returns the page size, zero for the driver default.
func (o QueryOptions) FetchSize() int { return o.fetchSize }

// ReadTimeout returns the per statement timeout, zero for none.
func (o QueryOptions) ReadTimeout() time.Duration { return o.readTimeout }

// Keyspace returns the keyspace overriding the template keyspace.
func (o QueryOptions) Keyspace() string { return o.keyspace }

// Mutate returns a builder seeded with o.
func (o QueryOptions) Mutate() QueryOptionsBuilder { return QueryOptionsBuilder{o: o} }

// Apply sets the options on st.
func (o QueryOptions) Apply(st *cql.Statement) *cql.Statement {
	if o.consistency != nil {
		st = st.WithConsistency(*o.consistency)
	}
	if o.serialConsistency != nil {
		st = st.WithSerialConsistency(*o.serialConsistency)
	}
	if o.retryPolicy != nil {
		st = st.WithRetryPolicy(o.retryPolicy)
	}
	if o.tracing {
		st = st.WithTracing(true)
	}
	if o.fetchSize > 0 {
		st = st.WithPageSize(o.fetchSize)
	}
	if o.readTimeout > 0 {
		st = st.WithReadTimeout(o.readTimeout)
	}
	return st
}

func (o QueryOptions) validate() error {
	var errs []error
	if o.fetchSize < 0 {
		errs = append(errs, cassava.NewValidationError("fetch size", errors.New("must not be negative")))
	}
	if o.readTimeout < 0 {
		errs = append(errs, cassava.NewValidationError("read timeout", errors.New("must not be negative")))
	}
	return cassava.NewAggregateError(errs...)
}

// WriteOptions configures a write.
type WriteOptions struct {
	QueryOptions
	ttl       *time.Duration
	timestamp *int64
}

// TTL returns the time to live of written values, if set.
func (o WriteOptions) TTL() (time.Duration, bool) {
	if o.ttl == nil {
		return 0, false
	}
	return *o.ttl, true
}

// Timestamp returns the write timestamp in microseconds, if set.
func (o WriteOptions) Timestamp() (int64, bool) {
	if o.timestamp == nil {
		return 0, false
	}
	return *o.timestamp, true
}

// Mutate returns a builder seeded with o.
func (o WriteOptions) Mutate() WriteOptionsBuilder { return WriteOptionsBuilder{o: o} }

func (o WriteOptions) validate() error {
	var errs []error
	errs = append(errs, o.QueryOptions.validate())
	if o.ttl != nil && *o.ttl < 0 {
		errs = append(errs, cassava.NewValidationError("ttl", errors.New("must not be negative")))
	}
	if o.ttl != nil && *o.ttl%time.Second != 0 {
		errs = append(errs, cassava.NewValidationError("ttl", errors.New("must be whole seconds")))
	}
	if o.timestamp != nil && *o.timestamp < 0 {
		errs = append(errs, cassava.NewValidationError("timestamp", errors.New("must not be negative")))
	}
	return cassava.NewAggregateError(errs...)
}

// InsertOptions configures an insert.
type InsertOptions struct {
	WriteOptions
	ifNotExists bool
	insertNulls bool
}

// IfNotExists reports whether the insert is a lightweight transaction.
func (o InsertOptions) IfNotExists() bool { return o.ifNotExists }

// InsertNulls reports whether NULL properties are written explicitly.
func (o InsertOptions) InsertNulls() bool { return o.insertNulls }

// Mutate returns a builder seeded with o.
func (o InsertOptions) Mutate() InsertOptionsBuilder { return InsertOptionsBuilder{o: o} }

// UpdateOptions configures an update. IfExists and IfCondition are mutually
// exclusive.
type UpdateOptions struct {
	WriteOptions
	ifExists    bool
	ifCondition query.Filter
}

// IfExists reports whether the update applies only to existing rows.
func (o UpdateOptions) IfExists() bool { return o.ifExists }

// IfCondition returns the IF condition of the update.
func (o UpdateOptions) IfCondition() query.Filter { return o.ifCondition }

// Mutate returns a builder seeded with o.
func (o UpdateOptions) Mutate() UpdateOptionsBuilder { return UpdateOptionsBuilder{o: o} }

// DeleteOptions configures a delete. IfExists and IfCondition are mutually
// exclusive.
type DeleteOptions struct {
	WriteOptions
	ifExists    bool
	ifCondition query.Filter
}

// IfExists reports whether the delete applies only to existing rows.
func (o DeleteOptions) IfExists() bool { return o.ifExists }

// IfCondition returns the IF condition of the delete.
func (o DeleteOptions) IfCondition() query.Filter { return o.ifCondition }

// Mutate returns a builder seeded with o.
func (o DeleteOptions) Mutate() DeleteOptionsBuilder { return DeleteOptionsBuilder{o: o} }

// QueryOptionsBuilder builds QueryOptions. Its methods return a new builder
// and leave the receiver unchanged.
type QueryOptionsBuilder struct{ o QueryOptions }

// NewQueryOptions returns an empty builder.
func NewQueryOptions() QueryOptionsBuilder { return QueryOptionsBuilder{} }

// Consistency sets the consistency level.
func (b QueryOptionsBuilder) Consistency(c gocql.Consistency) QueryOptionsBuilder {
	b.o.consistency = &c
	return b
}

// SerialConsistency sets the serial consistency level.
func (b QueryOptionsBuilder) SerialConsistency(c gocql.SerialConsistency) QueryOptionsBuilder {
	b.o.serialConsistency = &c
	return b
}

// RetryPolicy sets the retry policy.
func (b QueryOptionsBuilder) RetryPolicy(p gocql.RetryPolicy) QueryOptionsBuilder {
	b.o.retryPolicy = p
	return b
}

// Tracing enables tracing.
func (b QueryOptionsBuilder) Tracing(on bool) QueryOptionsBuilder {
	b.o.tracing = on
	return b
}

// FetchSize sets the page size.
func (b QueryOptionsBuilder) FetchSize(n int) QueryOptionsBuilder {
	b.o.fetchSize = n
	return b
}

// ReadTimeout sets the statement timeout.
func (b QueryOptionsBuilder) ReadTimeout(d time.Duration) QueryOptionsBuilder {
	b.o.readTimeout = d
	return b
}

// Keyspace overrides the template keyspace.
func (b QueryOptionsBuilder) Keyspace(ks string) QueryOptionsBuilder {
	b.o.keyspace = ks
	return b
}

// Build validates and returns the options.
func (b QueryOptionsBuilder) Build() (QueryOptions, error) {
	if err := b.o.validate(); err != nil {
		return QueryOptions{}, err
	}
	return b.o, nil
}

// WriteOptionsBuilder builds WriteOptions.
type WriteOptionsBuilder struct{ o WriteOptions }

// NewWriteOptions returns an empty builder.
func NewWriteOptions() WriteOptionsBuilder { return WriteOptionsBuilder{} }

// Query replaces the query options.
func (b WriteOptionsBuilder) Query(o QueryOptions) WriteOptionsBuilder {
	b.o.QueryOptions = o
	return b
}

// Consistency sets the consistency level.
func (b WriteOptionsBuilder) Consistency(c gocql.Consistency) WriteOptionsBuilder {
	b.o.consistency = &c
	return b
}

// SerialConsistency sets the serial consistency level.
func (b WriteOptionsBuilder) SerialConsistency(c gocql.SerialConsistency) WriteOptionsBuilder {
	b.o.serialConsistency = &c
	return b
}

// RetryPolicy sets the retry policy.
func (b WriteOptionsBuilder) RetryPolicy(p gocql.RetryPolicy) WriteOptionsBuilder {
	b.o.retryPolicy = p
	return b
}

// Tracing enables tracing.
func (b WriteOptionsBuilder) Tracing(on bool) WriteOptionsBuilder {
	b.o.tracing = on
	return b
}

// Keyspace overrides the template keyspace.
func (b WriteOptionsBuilder) Keyspace(ks string) WriteOptionsBuilder {
	b.o.keyspace = ks
	return b
}

// TTL sets the time to live of written values.
func (b WriteOptionsBuilder) TTL(d time.Duration) WriteOptionsBuilder {
	b.o.ttl = &d
	return b
}

// Timestamp sets the write timestamp in microseconds.
func (b WriteOptionsBuilder) Timestamp(micros int64) WriteOptionsBuilder {
	b.o.timestamp = &micros
	return b
}

// Build validates and returns the options.
func (b WriteOptionsBuilder) Build() (WriteOptions, error) {
	if err := b.o.validate(); err != nil {
		return WriteOptions{}, err
	}
	return b.o, nil
}

// InsertOptionsBuilder builds InsertOptions.
type InsertOptionsBuilder struct{ o InsertOptions }

// NewInsertOptions returns an empty builder.
func NewInsertOptions() InsertOptionsBuilder { return InsertOptionsBuilder{} }

// Write replaces the write options.
func (b InsertOptionsBuilder) Write(o WriteOptions) InsertOptionsBuilder {
	b.o.WriteOptions = o
	return b
}

// Consistency sets the consistency level.
func (b InsertOptionsBuilder) Consistency(c gocql.Consistency) InsertOptionsBuilder {
	b.o.consistency = &c
	return b
}

// SerialConsistency sets the serial consistency level.
func (b InsertOptionsBuilder) SerialConsistency(c gocql.SerialConsistency) InsertOptionsBuilder {
	b.o.serialConsistency = &c
	return b
}

// RetryPolicy sets the retry policy.
func (b InsertOptionsBuilder) RetryPolicy(p gocql.RetryPolicy) InsertOptionsBuilder {
	b.o.retryPolicy = p
	return b
}

// Tracing enables tracing.
func (b InsertOptionsBuilder) Tracing(on bool) InsertOptionsBuilder {
	b.o.tracing = on
	return b
}

// Keyspace overrides the template keyspace.
func (b InsertOptionsBuilder) Keyspace(ks string) InsertOptionsBuilder {
	b.o.keyspace = ks
	return b
}

// TTL sets the time to live of written values.
func (b InsertOptionsBuilder) TTL(d time.Duration) InsertOptionsBuilder {
	b.o.ttl = &d
	return b
}

// Timestamp sets the write timestamp in microseconds.
func (b InsertOptionsBuilder) Timestamp(micros int64) InsertOptionsBuilder {
	b.o.timestamp = &micros
	return b
}

// IfNotExists makes the insert a lightweight transaction.
func (b InsertOptionsBuilder) IfNotExists(on bool) InsertOptionsBuilder {
	b.o.ifNotExists = on
	return b
}

// InsertNulls writes NULL properties explicitly.
func (b InsertOptionsBuilder) InsertNulls(on bool) InsertOptionsBuilder {
	b.o.insertNulls = on
	return b
}

// Build validates and returns the options.
func (b InsertOptionsBuilder) Build() (InsertOptions, error) {
	if err := b.o.validate(); err != nil {
		return InsertOptions{}, err
	}
	return b.o, nil
}

// UpdateOptionsBuilder builds UpdateOptions.
type UpdateOptionsBuilder struct{ o UpdateOptions }

// NewUpdateOptions returns an empty builder.
func NewUpdateOptions() UpdateOptionsBuilder { return UpdateOptionsBuilder{} }

// Write replaces the write options.
func (b UpdateOptionsBuilder) Write(o WriteOptions) UpdateOptionsBuilder {
	b.o.WriteOptions = o
	return b
}

// Consistency sets the consistency level.
func (b UpdateOptionsBuilder) Consistency(c gocql.Consistency) UpdateOptionsBuilder {
	b.o.consistency = &c
	return b
}

// SerialConsistency sets the serial consistency level.
func (b UpdateOptionsBuilder) SerialConsistency(c gocql.SerialConsistency) UpdateOptionsBuilder {
	b.o.serialConsistency = &c
	return b
}

// RetryPolicy sets the retry policy.
func (b UpdateOptionsBuilder) RetryPolicy(p gocql.RetryPolicy) UpdateOptionsBuilder {
	b.o.retryPolicy = p
	return b
}

// Tracing enables tracing.
func (b UpdateOptionsBuilder) Tracing(on bool) UpdateOptionsBuilder {
	b.o.tracing = on
	return b
}

// Keyspace overrides the template keyspace.
func (b UpdateOptionsBuilder) Keyspace(ks string) UpdateOptionsBuilder {
	b.o.keyspace = ks
	return b
}

// TTL sets the time to live of written values.
func (b UpdateOptionsBuilder) TTL(d time.Duration) UpdateOptionsBuilder {
	b.o.ttl = &d
	return b
}

// Timestamp sets the write timestamp in microseconds.
func (b UpdateOptionsBuilder) Timestamp(micros int64) UpdateOptionsBuilder {
	b.o.timestamp = &micros
	return b
}

// IfExists applies the update only to an existing row. It clears the IF
// condition.
func (b UpdateOptionsBuilder) IfExists(on bool) UpdateOptionsBuilder {
	b.o.ifExists = on
	if on {
		b.o.ifCondition = query.Filter{}
	}
	return b
}

// IfCondition applies the update only when cs hold. It clears IfExists.
func (b UpdateOptionsBuilder) IfCondition(cs ...query.Criteria) UpdateOptionsBuilder {
	b.o.ifCondition = query.NewFilter(cs...)
	b.o.ifExists = false
	return b
}

// Build validates and returns the options.
func (b UpdateOptionsBuilder) Build() (UpdateOptions, error) {
	if err := b.o.validate(); err != nil {
		return UpdateOptions{}, err
	}
	return b.o, nil
}

// DeleteOptionsBuilder builds DeleteOptions.
type DeleteOptionsBuilder struct{ o DeleteOptions }

// NewDeleteOptions returns an empty builder.
func NewDeleteOptions() DeleteOptionsBuilder { return DeleteOptionsBuilder{} }

// Write replaces the write options.
func (b DeleteOptionsBuilder) Write(o WriteOptions) DeleteOptionsBuilder {
	b.o.WriteOptions = o
	return b
}

// Consistency sets the consistency level.
func (b DeleteOptionsBuilder) Consistency(c gocql.Consistency) DeleteOptionsBuilder {
	b.o.consistency = &c
	return b
}

// SerialConsistency sets the serial consistency level.
func (b DeleteOptionsBuilder) SerialConsistency(c gocql.SerialConsistency) DeleteOptionsBuilder {
	b.o.serialConsistency = &c
	return b
}

// RetryPolicy sets the retry policy.
func (b DeleteOptionsBuilder) RetryPolicy(p gocql.RetryPolicy) DeleteOptionsBuilder {
	b.o.retryPolicy = p
	return b
}

// Tracing enables tracing.
func (b DeleteOptionsBuilder) Tracing(on bool) DeleteOptionsBuilder {
	b.o.tracing = on
	return b
}

// Keyspace overrides the template keyspace.
func (b DeleteOptionsBuilder) Keyspace(ks string) DeleteOptionsBuilder {
	b.o.keyspace = ks
	return b
}

// Timestamp sets the write timestamp in microseconds.
func (b DeleteOptionsBuilder) Timestamp(micros int64) DeleteOptionsBuilder {
	b.o.timestamp = &micros
	return b
}

// IfExists applies the delete only to an existing row. It clears the IF
// condition.
func (b DeleteOptionsBuilder) IfExists(on bool) DeleteOptionsBuilder {
	b.o.ifExists = on
	if on {
		b.o.ifCondition = query.Filter{}
	}
	return b
}

// IfCondition applies the delete only when cs hold. It clears IfExists.
func (b DeleteOptionsBuilder) IfCondition(cs ...query.Criteria) DeleteOptionsBuilder {
	b.o.ifCondition = query.NewFilter(cs...)
	b.o.ifExists = false
	return b
}

// Build validates and returns the options. DELETE accepts no TTL.
func (b DeleteOptionsBuilder) Build() (DeleteOptions, error) {
	err := b.o.validate()
	if b.o.ttl != nil {
		err = cassava.NewAggregateError(err, cassava.NewValidationError("ttl", errors.New("not supported by delete")))
	}
	if err != nil {
		return DeleteOptions{}, err
	}
	return b.o, nil
}
