package operations_test

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/operations"
	"github.com/syssam/cassava/query"
)

func TestQueryOptions(t *testing.T) {
	opts, err := operations.NewQueryOptions().
		Consistency(gocql.LocalQuorum).
		FetchSize(50).
		ReadTimeout(time.Second).
		Tracing(true).
		Build()
	require.NoError(t, err)

	cl, ok := opts.Consistency()
	require.True(t, ok)
	assert.Equal(t, gocql.LocalQuorum, cl)
	_, ok = opts.SerialConsistency()
	assert.False(t, ok)

	st := opts.Apply(cql.NewStatement("SELECT * FROM notes"))
	assert.Equal(t, 50, st.PageSize())
	assert.Equal(t, time.Second, st.ReadTimeout())
	assert.True(t, st.Tracing())

	changed, err := opts.Mutate().FetchSize(10).Build()
	require.NoError(t, err)
	assert.Equal(t, 10, changed.FetchSize())
	assert.Equal(t, 50, opts.FetchSize(), "receiver unchanged")
}

func TestQueryOptionsValidation(t *testing.T) {
	_, err := operations.NewQueryOptions().FetchSize(-1).ReadTimeout(-time.Second).Build()
	require.Error(t, err)
	assert.True(t, cassava.IsValidationError(err))
	assert.Contains(t, err.Error(), "fetch size")
	assert.Contains(t, err.Error(), "read timeout")
}

func TestWriteOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		b    operations.WriteOptionsBuilder
		want string
	}{
		{name: "negative ttl", b: operations.NewWriteOptions().TTL(-time.Second), want: "ttl"},
		{name: "fractional ttl", b: operations.NewWriteOptions().TTL(1500 * time.Millisecond), want: "ttl"},
		{name: "negative timestamp", b: operations.NewWriteOptions().Timestamp(-1), want: "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			require.Error(t, err)
			assert.True(t, cassava.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	opts, err := operations.NewWriteOptions().TTL(10 * time.Second).Timestamp(1234).Build()
	require.NoError(t, err)
	ttl, ok := opts.TTL()
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, ttl)
	ts, ok := opts.Timestamp()
	require.True(t, ok)
	assert.EqualValues(t, 1234, ts)
}

func TestConditionalOptionsExclusive(t *testing.T) {
	u, err := operations.NewUpdateOptions().
		IfCondition(query.Where("text").EQ("hello")).
		IfExists(true).
		Build()
	require.NoError(t, err)
	assert.True(t, u.IfExists())
	assert.True(t, u.IfCondition().IsEmpty())

	u, err = u.Mutate().IfCondition(query.Where("text").EQ("hello")).Build()
	require.NoError(t, err)
	assert.False(t, u.IfExists())
	assert.Equal(t, 1, u.IfCondition().Len())

	d, err := operations.NewDeleteOptions().
		IfExists(true).
		IfCondition(query.Where("text").EQ("hello")).
		Build()
	require.NoError(t, err)
	assert.False(t, d.IfExists())
	assert.False(t, d.IfCondition().IsEmpty())
}

func TestDeleteOptionsRejectTTL(t *testing.T) {
	w, err := operations.NewWriteOptions().TTL(time.Minute).Build()
	require.NoError(t, err)
	_, err = operations.NewDeleteOptions().Write(w).Build()
	require.Error(t, err)
	assert.True(t, cassava.IsValidationError(err))
}

func TestInsertOptions(t *testing.T) {
	w, err := operations.NewWriteOptions().Consistency(gocql.One).Build()
	require.NoError(t, err)
	opts, err := operations.NewInsertOptions().Write(w).IfNotExists(true).InsertNulls(true).Build()
	require.NoError(t, err)
	assert.True(t, opts.IfNotExists())
	assert.True(t, opts.InsertNulls())
	cl, ok := opts.Consistency()
	require.True(t, ok)
	assert.Equal(t, gocql.One, cl)
}
