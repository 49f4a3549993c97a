package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
	"github.com/syssam/cassava/query"
)

// SelectOperation reads entities of type T.
//
//	people, err := operations.Select[Person](t).
//		Matching(query.New(query.Where("lastname").EQ("White"))).
//		All(ctx)
type SelectOperation[T any] struct {
	t     *Template
	table cql.Identifier
	q     query.Query
	opts  QueryOptions
	raw   *cql.Statement
}

// Select returns a select operation for T.
func Select[T any](t *Template) SelectOperation[T] {
	return SelectOperation[T]{t: t}
}

// InTable reads from table instead of the entity table.
func (o SelectOperation[T]) InTable(table cql.Identifier) SelectOperation[T] {
	o.table = table
	return o
}

// Matching restricts the selection to the rows matching q.
func (o SelectOperation[T]) Matching(q query.Query) SelectOperation[T] {
	o.q = q
	return o
}

// WithOptions sets the query options.
func (o SelectOperation[T]) WithOptions(opts QueryOptions) SelectOperation[T] {
	o.opts = opts
	return o
}

// Statement reads with a declared statement instead of one derived from
// the query. Matching then only supplies the page request of Slice.
func (o SelectOperation[T]) Statement(st *cql.Statement) SelectOperation[T] {
	o.raw = st
	return o
}

func (o SelectOperation[T]) statement(ctx context.Context, e *mapping.Entity, q query.Query) (*cql.Statement, error) {
	if o.raw != nil {
		return o.opts.Apply(o.raw), nil
	}
	b, err := o.t.mapper.Select(ctx, e, o.table, q)
	if err != nil {
		return nil, err
	}
	return o.opts.Apply(b.Keyspace(o.t.ks(o.opts)).Build()), nil
}

func (o SelectOperation[T]) rows(ctx context.Context, q query.Query, op string) (*mapping.Entity, cql.Rows, error) {
	e, err := entityOf[T](o.t)
	if err != nil {
		return nil, nil, err
	}
	st, err := o.statement(ctx, e, q)
	if err != nil {
		return nil, nil, err
	}
	rows, err := o.t.query(ctx, st, e.Name(), op)
	if err != nil {
		return nil, nil, err
	}
	return e, rows, nil
}

// Stream returns a lazy stream of the matching entities.
func (o SelectOperation[T]) Stream(ctx context.Context) (*Stream[T], error) {
	e, rows, err := o.rows(ctx, o.q, "stream")
	if err != nil {
		return nil, err
	}
	return newStream[T](ctx, o.t.conv, e, rows), nil
}

// All returns all matching entities.
func (o SelectOperation[T]) All(ctx context.Context) ([]*T, error) {
	s, err := o.Stream(ctx)
	if err != nil {
		return nil, err
	}
	return s.Collect()
}

// One returns the single matching entity, or nil when no row matches. More
// than one row fails with *cassava.IncorrectResultSizeError unless the
// query is limited, in which case the first row is returned.
func (o SelectOperation[T]) One(ctx context.Context) (*T, error) {
	e, rows, err := o.rows(ctx, o.q, "one")
	if err != nil {
		return nil, err
	}
	return readOne[T](ctx, o.t, e, rows, o.q.IsLimited())
}

func readOne[T any](ctx context.Context, t *Template, e *mapping.Entity, rows cql.Rows, limited bool) (_ *T, err error) {
	defer func() {
		if cerr := rows.Close(); err == nil && cerr != nil {
			err = cassava.NewQueryError(e.Name(), "one", cerr)
		}
	}()
	if !rows.Next() {
		return nil, rows.Err()
	}
	first := rows.Row()
	if !limited {
		n := 1
		for rows.Next() {
			n++
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if n > 1 {
			return nil, cassava.NewIncorrectResultSizeError(1, n)
		}
	} else if err := rows.Err(); err != nil {
		return nil, err
	}
	v, err := t.conv.Read(ctx, e, first)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// First returns the first matching entity, or nil when no row matches.
func (o SelectOperation[T]) First(ctx context.Context) (*T, error) {
	e, rows, err := o.rows(ctx, o.q.WithLimit(1), "first")
	if err != nil {
		return nil, err
	}
	return readOne[T](ctx, o.t, e, rows, true)
}

// Exists reports whether any row matches. A declared statement returning a
// single count projection row exists when the count is positive.
func (o SelectOperation[T]) Exists(ctx context.Context) (_ bool, err error) {
	e, err := entityOf[T](o.t)
	if err != nil {
		return false, err
	}
	q := o.q.WithLimit(1)
	if o.raw == nil && len(q.Columns()) == 0 {
		for _, k := range e.KeyColumns() {
			q = q.WithColumns(k.Name())
		}
	}
	_, rows, err := o.rows(ctx, q, "exists")
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := rows.Close(); err == nil && cerr != nil {
			err = cassava.NewQueryError(e.Name(), "exists", cerr)
		}
	}()
	if !rows.Next() {
		return false, rows.Err()
	}
	if o.raw == nil {
		return true, rows.Err()
	}
	row := rows.Row()
	if rows.Next() || !isCountProjection(row) {
		return true, rows.Err()
	}
	var n int64
	if err := o.t.conv.ReadValue(row.Value(0), &n); err != nil {
		return false, cassava.NewQueryError(e.Name(), "exists", err)
	}
	return n > 0, nil
}

// isCountProjection reports whether row is the single column result of
// COUNT(...).
func isCountProjection(row cql.Row) bool {
	cols := row.Columns()
	if len(cols) != 1 {
		return false
	}
	name := strings.ToLower(cols[0].Name)
	if name != "count" && !strings.HasPrefix(name, "count(") && !strings.HasPrefix(name, "system.count(") {
		return false
	}
	switch row.Value(0).(type) {
	case int64, int32, int:
		return true
	}
	return false
}

// Count returns the number of matching rows. A declared statement must
// select the count in its first column.
func (o SelectOperation[T]) Count(ctx context.Context) (_ int64, err error) {
	e, err := entityOf[T](o.t)
	if err != nil {
		return 0, err
	}
	st := o.raw
	if st == nil {
		b, err := o.t.mapper.Select(ctx, e, o.table, o.q.WithLimit(0))
		if err != nil {
			return 0, err
		}
		st = b.Keyspace(o.t.ks(o.opts)).Count().Build()
	}
	st = o.opts.Apply(st)
	rows, err := o.t.query(ctx, st, e.Name(), "count")
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := rows.Close(); err == nil && cerr != nil {
			err = cassava.NewQueryError(e.Name(), "count", cerr)
		}
	}()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, cassava.NewQueryError(e.Name(), "count", errors.New("no count row"))
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	var n int64
	if err := o.t.conv.ReadValue(rows.Row().Value(0), &n); err != nil {
		return 0, cassava.NewQueryError(e.Name(), "count", err)
	}
	return n, nil
}

// Slice returns the page requested by the query's PageRequest. An unpaged
// query returns all rows in a single slice.
func (o SelectOperation[T]) Slice(ctx context.Context) (_ query.Slice[*T], err error) {
	page := o.q.Page()
	if !page.IsPaged() {
		all, err := o.All(ctx)
		if err != nil {
			return query.Slice[*T]{}, err
		}
		return query.NewSlice(all, page, nil), nil
	}
	e, err := entityOf[T](o.t)
	if err != nil {
		return query.Slice[*T]{}, err
	}
	st, err := o.statement(ctx, e, o.q)
	if err != nil {
		return query.Slice[*T]{}, err
	}
	st = st.WithPageSize(page.Size)
	if !page.IsFirst() {
		st = st.WithPagingState(page.State)
	}
	rows, err := o.t.query(ctx, st, e.Name(), "slice")
	if err != nil {
		return query.Slice[*T]{}, err
	}
	s := newStream[T](ctx, o.t.conv, e, rows)
	defer func() {
		if cerr := s.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	content := make([]*T, 0, page.Size)
	for len(content) < page.Size && s.Next() {
		content = append(content, s.Entity())
	}
	if err := s.Err(); err != nil {
		return query.Slice[*T]{}, err
	}
	return query.NewSlice(content, page, rows.PagingState()), nil
}

// OneValue reads the first column of the single matching row into a V, e.g.
// a projection of one property. It returns nil when no row matches or the
// column is NULL.
func OneValue[V, T any](ctx context.Context, o SelectOperation[T]) (_ *V, err error) {
	if len(o.q.Columns()) != 1 {
		return nil, cassava.NewValidationError("query", fmt.Errorf("projection needs exactly one column, got %d", len(o.q.Columns())))
	}
	e, rows, err := o.rows(ctx, o.q, "value")
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); err == nil && cerr != nil {
			err = cassava.NewQueryError(e.Name(), "value", cerr)
		}
	}()
	if !rows.Next() {
		return nil, rows.Err()
	}
	raw := rows.Row().Value(0)
	if !o.q.IsLimited() && rows.Next() {
		return nil, cassava.NewIncorrectResultSizeError(1, 2)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	v := new(V)
	if err := o.t.conv.ReadValue(raw, v); err != nil {
		return nil, cassava.NewMappingError(e.Name(), o.q.Columns()[0], "incompatible value", err)
	}
	return v, nil
}
