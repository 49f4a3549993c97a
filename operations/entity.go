package operations

import (
	"context"

	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
	"github.com/syssam/cassava/query"
)

// EntityOperations is the entity-centric façade of a Template for T.
//
//	people := operations.For[Person](t)
//	if _, err := people.Insert(ctx, &p); err != nil {
//		return err
//	}
//	got, err := people.SelectOneByID(ctx, p.Key)
type EntityOperations[T any] struct {
	t *Template
}

// For returns the operations of T.
func For[T any](t *Template) *EntityOperations[T] {
	return &EntityOperations[T]{t: t}
}

// Template returns the underlying template.
func (o *EntityOperations[T]) Template() *Template { return o.t }

// Entity returns the persistent entity of T.
func (o *EntityOperations[T]) Entity() (*mapping.Entity, error) { return entityOf[T](o.t) }

// Insert inserts v.
func (o *EntityOperations[T]) Insert(ctx context.Context, v *T) (EntityWriteResult[T], error) {
	return Insert[T](o.t).One(ctx, v)
}

// InsertWith inserts v with opts.
func (o *EntityOperations[T]) InsertWith(ctx context.Context, v *T, opts InsertOptions) (EntityWriteResult[T], error) {
	return Insert[T](o.t).WithOptions(opts).One(ctx, v)
}

// Update updates all columns of v.
func (o *EntityOperations[T]) Update(ctx context.Context, v *T) (EntityWriteResult[T], error) {
	return updateEntity(ctx, o.t, cql.Identifier{}, v, UpdateOptions{})
}

// UpdateWith updates all columns of v with opts.
func (o *EntityOperations[T]) UpdateWith(ctx context.Context, v *T, opts UpdateOptions) (EntityWriteResult[T], error) {
	return updateEntity(ctx, o.t, cql.Identifier{}, v, opts)
}

// Delete deletes the row of v.
func (o *EntityOperations[T]) Delete(ctx context.Context, v *T) (WriteResult, error) {
	return deleteEntity(ctx, o.t, cql.Identifier{}, v, DeleteOptions{})
}

// DeleteWith deletes the row of v with opts.
func (o *EntityOperations[T]) DeleteWith(ctx context.Context, v *T, opts DeleteOptions) (WriteResult, error) {
	return deleteEntity(ctx, o.t, cql.Identifier{}, v, opts)
}

// DeleteByID deletes the row identified by id.
func (o *EntityOperations[T]) DeleteByID(ctx context.Context, id any) (WriteResult, error) {
	return deleteByID[T](ctx, o.t, cql.Identifier{}, id, DeleteOptions{})
}

// DeleteMatching deletes the rows matching q.
func (o *EntityOperations[T]) DeleteMatching(ctx context.Context, q query.Query) (WriteResult, error) {
	return Delete[T](o.t).Matching(q).All(ctx)
}

// SelectOneByID returns the entity identified by id, or nil if there is
// none. id is a simple identifier, a primary key class value, an entity
// value or a mapping.MapID.
func (o *EntityOperations[T]) SelectOneByID(ctx context.Context, id any) (*T, error) {
	e, err := entityOf[T](o.t)
	if err != nil {
		return nil, err
	}
	where, err := o.t.conv.WriteID(ctx, e, id)
	if err != nil {
		return nil, err
	}
	st := cql.SelectFrom(e.Table()).Keyspace(o.t.keyspace).Where(where...).Build()
	rows, err := o.t.query(ctx, st, e.Name(), "select by id")
	if err != nil {
		return nil, err
	}
	return readOne[T](ctx, o.t, e, rows, false)
}

// ExistsByID reports whether a row is identified by id.
func (o *EntityOperations[T]) ExistsByID(ctx context.Context, id any) (_ bool, err error) {
	e, err := entityOf[T](o.t)
	if err != nil {
		return false, err
	}
	where, err := o.t.conv.WriteID(ctx, e, id)
	if err != nil {
		return false, err
	}
	keys := e.KeyColumns()
	cols := make([]cql.Identifier, len(keys))
	for i, k := range keys {
		cols[i] = k.Column()
	}
	st := cql.SelectFrom(e.Table()).Keyspace(o.t.keyspace).Columns(cols...).Where(where...).Limit(1).Build()
	rows, err := o.t.query(ctx, st, e.Name(), "exists by id")
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	return rows.Next(), rows.Err()
}

// Select returns the entities matching q.
func (o *EntityOperations[T]) Select(ctx context.Context, q query.Query) ([]*T, error) {
	return Select[T](o.t).Matching(q).All(ctx)
}

// SelectOne returns the single entity matching q, or nil.
func (o *EntityOperations[T]) SelectOne(ctx context.Context, q query.Query) (*T, error) {
	return Select[T](o.t).Matching(q).One(ctx)
}

// Slice returns the page of entities requested by q.
func (o *EntityOperations[T]) Slice(ctx context.Context, q query.Query) (query.Slice[*T], error) {
	return Select[T](o.t).Matching(q).Slice(ctx)
}

// Stream returns a lazy stream of the entities matching q.
func (o *EntityOperations[T]) Stream(ctx context.Context, q query.Query) (*Stream[T], error) {
	return Select[T](o.t).Matching(q).Stream(ctx)
}

// Count returns the number of rows matching q.
func (o *EntityOperations[T]) Count(ctx context.Context, q query.Query) (int64, error) {
	return Select[T](o.t).Matching(q).Count(ctx)
}

// Exists reports whether any row matches q.
func (o *EntityOperations[T]) Exists(ctx context.Context, q query.Query) (bool, error) {
	return Select[T](o.t).Matching(q).Exists(ctx)
}

// Truncate removes all rows of the entity table.
func (o *EntityOperations[T]) Truncate(ctx context.Context) error {
	e, err := entityOf[T](o.t)
	if err != nil {
		return err
	}
	return o.t.Truncate(ctx, e)
}

// InsertAsync inserts v in a new goroutine. v must not be used until the
// future completed.
func (o *EntityOperations[T]) InsertAsync(ctx context.Context, v *T) *cql.Future[EntityWriteResult[T]] {
	return cql.Async(ctx, func(ctx context.Context) (EntityWriteResult[T], error) {
		return o.Insert(ctx, v)
	})
}

// UpdateAsync updates v in a new goroutine.
func (o *EntityOperations[T]) UpdateAsync(ctx context.Context, v *T) *cql.Future[EntityWriteResult[T]] {
	return cql.Async(ctx, func(ctx context.Context) (EntityWriteResult[T], error) {
		return o.Update(ctx, v)
	})
}

// DeleteAsync deletes v in a new goroutine.
func (o *EntityOperations[T]) DeleteAsync(ctx context.Context, v *T) *cql.Future[WriteResult] {
	return cql.Async(ctx, func(ctx context.Context) (WriteResult, error) {
		return o.Delete(ctx, v)
	})
}

// SelectAsync selects the entities matching q in a new goroutine.
func (o *EntityOperations[T]) SelectAsync(ctx context.Context, q query.Query) *cql.Future[[]*T] {
	return cql.Async(ctx, func(ctx context.Context) ([]*T, error) {
		return o.Select(ctx, q)
	})
}

// SelectOneByIDAsync selects the entity identified by id in a new goroutine.
func (o *EntityOperations[T]) SelectOneByIDAsync(ctx context.Context, id any) *cql.Future[*T] {
	return cql.Async(ctx, func(ctx context.Context) (*T, error) {
		return o.SelectOneByID(ctx, id)
	})
}

// CountAsync counts the rows matching q in a new goroutine.
func (o *EntityOperations[T]) CountAsync(ctx context.Context, q query.Query) *cql.Future[int64] {
	return cql.Async(ctx, func(ctx context.Context) (int64, error) {
		return o.Count(ctx, q)
	})
}
