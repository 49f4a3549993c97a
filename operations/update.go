package operations

import (
	"context"
	"errors"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
	"github.com/syssam/cassava/query"
)

// UpdateOperation updates the rows of T matching a query.
//
//	res, err := operations.Update[Person](t).
//		Matching(query.New(query.Where("lastname").EQ("White"))).
//		Apply(ctx, query.NewUpdate().Set("nickname", "Heisenberg"))
type UpdateOperation[T any] struct {
	t     *Template
	table cql.Identifier
	q     query.Query
	opts  UpdateOptions
}

// Update returns an update operation for T.
func Update[T any](t *Template) UpdateOperation[T] {
	return UpdateOperation[T]{t: t}
}

// InTable updates table instead of the entity table.
func (o UpdateOperation[T]) InTable(table cql.Identifier) UpdateOperation[T] {
	o.table = table
	return o
}

// Matching restricts the update to the rows matching q.
func (o UpdateOperation[T]) Matching(q query.Query) UpdateOperation[T] {
	o.q = q
	return o
}

// WithOptions sets the update options.
func (o UpdateOperation[T]) WithOptions(opts UpdateOptions) UpdateOperation[T] {
	o.opts = opts
	return o
}

// Apply executes the update.
func (o UpdateOperation[T]) Apply(ctx context.Context, u query.Update) (WriteResult, error) {
	e, err := entityOf[T](o.t)
	if err != nil {
		return WriteResult{}, err
	}
	st, err := o.statement(ctx, e, u)
	if err != nil {
		return WriteResult{}, err
	}
	res, err := o.t.exec(ctx, st, e.Name(), "update")
	if err != nil {
		return WriteResult{}, err
	}
	return newWriteResult(res), nil
}

func (o UpdateOperation[T]) statement(ctx context.Context, e *mapping.Entity, u query.Update) (*cql.Statement, error) {
	if u.IsEmpty() {
		return nil, cassava.NewValidationError("update", errors.New("no assignments"))
	}
	assigns, err := o.t.mapper.Assignments(ctx, e, u)
	if err != nil {
		return nil, err
	}
	where, err := o.t.mapper.Relations(ctx, e, o.q.Filter())
	if err != nil {
		return nil, err
	}
	b := cql.Update(tableOf(e, o.table)).Keyspace(o.t.ks(o.opts.QueryOptions)).Assign(assigns...).Where(where...)
	if err := o.t.updateConditions(ctx, e, b, o.opts, nil); err != nil {
		return nil, err
	}
	if ttl, ok := o.opts.TTL(); ok {
		b.TTL(ttl)
	}
	if ts, ok := o.opts.Timestamp(); ok {
		b.Timestamp(ts)
	}
	return o.opts.Apply(b.Build()), nil
}

// updateEntity updates all columns of v. Versioned entities are updated
// with optimistic locking.
func updateEntity[T any](ctx context.Context, t *Template, table cql.Identifier, v *T, opts UpdateOptions) (EntityWriteResult[T], error) {
	e, err := entityOf[T](t)
	if err != nil {
		return EntityWriteResult[T]{}, err
	}
	if v == nil {
		return EntityWriteResult[T]{}, cassava.NewValidationError("entity", errors.New("must not be nil"))
	}
	if _, ok := e.VersionProperty(); ok {
		return updateVersioned(ctx, t, e, table, v, opts)
	}
	st, err := t.updateStatement(ctx, e, table, v, opts)
	if err != nil {
		return EntityWriteResult[T]{}, err
	}
	res, err := t.exec(ctx, st, e.Name(), "update")
	if err != nil {
		return EntityWriteResult[T]{}, err
	}
	return EntityWriteResult[T]{WriteResult: newWriteResult(res), Entity: v}, nil
}

// updateVersioned increments the version of v and updates it IF the stored
// version is the current one. The version is restored when the update fails
// or is not applied.
func updateVersioned[T any](ctx context.Context, t *Template, e *mapping.Entity, table cql.Identifier, v *T, opts UpdateOptions) (EntityWriteResult[T], error) {
	vp, _ := e.VersionProperty()
	cur := vp.Version(v)
	vp.SetVersion(v, cur+1)
	st, err := t.updateStatement(ctx, e, table, v, opts, cql.EQ(vp.Column(), cur))
	if err != nil {
		vp.SetVersion(v, cur)
		return EntityWriteResult[T]{}, err
	}
	res, err := t.exec(ctx, st, e.Name(), "update")
	if err != nil {
		vp.SetVersion(v, cur)
		return EntityWriteResult[T]{}, err
	}
	if !res.Applied {
		vp.SetVersion(v, cur)
		return EntityWriteResult[T]{WriteResult: newWriteResult(res), Entity: v}, cassava.NewOptimisticLockingError(e.Name(), "update", cur)
	}
	return EntityWriteResult[T]{WriteResult: newWriteResult(res), Entity: v}, nil
}
