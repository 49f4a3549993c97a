package operations

import (
	"context"
	"errors"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
)

// InsertOperation inserts entities of type T. Its methods return a new
// operation and leave the receiver unchanged.
//
//	res, err := operations.Insert[Person](t).
//		WithOptions(opts).
//		One(ctx, &person)
type InsertOperation[T any] struct {
	t     *Template
	table cql.Identifier
	opts  InsertOptions
}

// Insert returns an insert operation for T.
func Insert[T any](t *Template) InsertOperation[T] {
	return InsertOperation[T]{t: t}
}

// InTable inserts into table instead of the entity table.
func (o InsertOperation[T]) InTable(table cql.Identifier) InsertOperation[T] {
	o.table = table
	return o
}

// WithOptions sets the insert options.
func (o InsertOperation[T]) WithOptions(opts InsertOptions) InsertOperation[T] {
	o.opts = opts
	return o
}

// One inserts v. A versioned entity with version zero is inserted with
// version one and IF NOT EXISTS; one with a non-zero version is updated with
// optimistic locking instead. A rejected versioned insert restores the
// version and fails with *cassava.OptimisticLockingError.
func (o InsertOperation[T]) One(ctx context.Context, v *T) (EntityWriteResult[T], error) {
	e, err := entityOf[T](o.t)
	if err != nil {
		return EntityWriteResult[T]{}, err
	}
	if v == nil {
		return EntityWriteResult[T]{}, cassava.NewValidationError("entity", errors.New("must not be nil"))
	}
	vp, versioned := e.VersionProperty()
	if !versioned {
		st, err := o.t.insertStatement(ctx, e, o.table, v, o.opts)
		if err != nil {
			return EntityWriteResult[T]{}, err
		}
		res, err := o.t.exec(ctx, st, e.Name(), "insert")
		if err != nil {
			return EntityWriteResult[T]{}, err
		}
		return EntityWriteResult[T]{WriteResult: newWriteResult(res), Entity: v}, nil
	}
	if cur := vp.Version(v); cur != 0 {
		return updateVersioned(ctx, o.t, e, o.table, v, UpdateOptions{WriteOptions: o.opts.WriteOptions})
	}
	opts := o.opts
	opts.ifNotExists = true
	vp.SetVersion(v, 1)
	st, err := o.t.insertStatement(ctx, e, o.table, v, opts)
	if err != nil {
		vp.SetVersion(v, 0)
		return EntityWriteResult[T]{}, err
	}
	res, err := o.t.exec(ctx, st, e.Name(), "insert")
	if err != nil {
		vp.SetVersion(v, 0)
		return EntityWriteResult[T]{}, err
	}
	if !res.Applied {
		vp.SetVersion(v, 0)
		return EntityWriteResult[T]{WriteResult: newWriteResult(res), Entity: v}, cassava.NewOptimisticLockingError(e.Name(), "insert", 0)
	}
	return EntityWriteResult[T]{WriteResult: newWriteResult(res), Entity: v}, nil
}
