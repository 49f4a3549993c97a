package operations

import (
	"context"
	"errors"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/query"
)

// DeleteOperation deletes the rows of T matching a query.
//
//	res, err := operations.Delete[Person](t).
//		Matching(query.New(query.Where("lastname").EQ("White"))).
//		All(ctx)
type DeleteOperation[T any] struct {
	t     *Template
	table cql.Identifier
	q     query.Query
	opts  DeleteOptions
}

// Delete returns a delete operation for T.
func Delete[T any](t *Template) DeleteOperation[T] {
	return DeleteOperation[T]{t: t}
}

// InTable deletes from table instead of the entity table.
func (o DeleteOperation[T]) InTable(table cql.Identifier) DeleteOperation[T] {
	o.table = table
	return o
}

// Matching restricts the delete to the rows matching q. Columns selected by
// q are deleted instead of whole rows.
func (o DeleteOperation[T]) Matching(q query.Query) DeleteOperation[T] {
	o.q = q
	return o
}

// WithOptions sets the delete options.
func (o DeleteOperation[T]) WithOptions(opts DeleteOptions) DeleteOperation[T] {
	o.opts = opts
	return o
}

// All executes the delete. A query without criteria is rejected; use
// Truncate to remove all rows.
func (o DeleteOperation[T]) All(ctx context.Context) (WriteResult, error) {
	e, err := entityOf[T](o.t)
	if err != nil {
		return WriteResult{}, err
	}
	if o.q.Filter().IsEmpty() {
		return WriteResult{}, cassava.NewValidationError("query", errors.New("delete requires criteria"))
	}
	where, err := o.t.mapper.Relations(ctx, e, o.q.Filter())
	if err != nil {
		return WriteResult{}, err
	}
	cols, err := o.t.mapper.Columns(e, o.q.Columns())
	if err != nil {
		return WriteResult{}, err
	}
	b := cql.DeleteFrom(tableOf(e, o.table)).Keyspace(o.t.ks(o.opts.QueryOptions)).Columns(cols...).Where(where...)
	if err := o.t.deleteConditions(ctx, e, b, o.opts, nil); err != nil {
		return WriteResult{}, err
	}
	if ts, ok := o.opts.Timestamp(); ok {
		b.Timestamp(ts)
	}
	res, err := o.t.exec(ctx, o.opts.Apply(b.Build()), e.Name(), "delete")
	if err != nil {
		return WriteResult{}, err
	}
	return newWriteResult(res), nil
}

// deleteEntity deletes v. Versioned entities are deleted IF the stored
// version is the current one.
func deleteEntity[T any](ctx context.Context, t *Template, table cql.Identifier, v *T, opts DeleteOptions) (WriteResult, error) {
	e, err := entityOf[T](t)
	if err != nil {
		return WriteResult{}, err
	}
	if v == nil {
		return WriteResult{}, cassava.NewValidationError("entity", errors.New("must not be nil"))
	}
	var conds []cql.Relation
	vp, versioned := e.VersionProperty()
	if versioned {
		conds = append(conds, cql.EQ(vp.Column(), vp.Version(v)))
	}
	st, err := t.deleteStatement(ctx, e, table, v, opts, conds...)
	if err != nil {
		return WriteResult{}, err
	}
	res, err := t.exec(ctx, st, e.Name(), "delete")
	if err != nil {
		return WriteResult{}, err
	}
	if versioned && !res.Applied {
		return newWriteResult(res), cassava.NewOptimisticLockingError(e.Name(), "delete", vp.Version(v))
	}
	return newWriteResult(res), nil
}

// deleteByID deletes the row identified by id.
func deleteByID[T any](ctx context.Context, t *Template, table cql.Identifier, id any, opts DeleteOptions) (WriteResult, error) {
	e, err := entityOf[T](t)
	if err != nil {
		return WriteResult{}, err
	}
	st, err := t.deleteStatement(ctx, e, table, id, opts)
	if err != nil {
		return WriteResult{}, err
	}
	res, err := t.exec(ctx, st, e.Name(), "delete")
	if err != nil {
		return WriteResult{}, err
	}
	return newWriteResult(res), nil
}
