package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/mapping"
	"github.com/syssam/cassava/operations"
	"github.com/syssam/cassava/query"
)

// MapID identifies a row by property name, for entities with a composite
// primary key.
type MapID = mapping.MapID

// DefaultExpressionCacheSize is the number of compiled expressions a
// repository keeps.
const DefaultExpressionCacheSize = 256

// Repository provides CRUD methods and query methods for entities of type T.
type Repository[T any] struct {
	t        *operations.Template
	ops      *operations.EntityOperations[T]
	e        *mapping.Entity
	programs *lru.Cache[string, *vm.Program]
	log      *slog.Logger
}

type config struct {
	cacheSize int
	programs  *lru.Cache[string, *vm.Program]
	log       *slog.Logger
}

// Option configures a Repository.
type Option func(*config)

// WithExpressionCacheSize sets the size of the compiled expression cache.
func WithExpressionCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithExpressionCache shares a compiled expression cache between
// repositories.
func WithExpressionCache(cache *lru.Cache[string, *vm.Program]) Option {
	return func(c *config) { c.programs = cache }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns the repository of T. T must be mapped to a table.
func New[T any](t *operations.Template, opts ...Option) (*Repository[T], error) {
	if t == nil {
		return nil, cassava.NewValidationError("template", errors.New("must not be nil"))
	}
	cfg := &config{cacheSize: DefaultExpressionCacheSize, log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	ops := operations.For[T](t)
	e, err := ops.Entity()
	if err != nil {
		return nil, err
	}
	programs := cfg.programs
	if programs == nil {
		if cfg.cacheSize <= 0 {
			return nil, cassava.NewValidationError("expression cache size", errors.New("must be positive"))
		}
		if programs, err = lru.New[string, *vm.Program](cfg.cacheSize); err != nil {
			return nil, err
		}
	}
	return &Repository[T]{t: t, ops: ops, e: e, programs: programs, log: cfg.log}, nil
}

// Entity returns the mapped entity of T.
func (r *Repository[T]) Entity() *mapping.Entity { return r.e }

// Operations returns the entity operations the repository delegates to.
func (r *Repository[T]) Operations() *operations.EntityOperations[T] { return r.ops }

// Save writes v. Versioned entities are inserted when new and updated
// with optimistic locking otherwise.
func (r *Repository[T]) Save(ctx context.Context, v *T) (*T, error) {
	res, err := r.ops.Insert(ctx, v)
	if err != nil {
		return nil, err
	}
	return res.Entity, nil
}

// SaveAll saves vs in order and stops at the first failure.
func (r *Repository[T]) SaveAll(ctx context.Context, vs []*T) ([]*T, error) {
	out := make([]*T, 0, len(vs))
	for _, v := range vs {
		saved, err := r.Save(ctx, v)
		if err != nil {
			return out, err
		}
		out = append(out, saved)
	}
	return out, nil
}

// Insert inserts v IF NOT EXISTS. A row that already exists is reported by
// the result's Applied flag, not as an error.
func (r *Repository[T]) Insert(ctx context.Context, v *T) (operations.EntityWriteResult[T], error) {
	opts, err := operations.NewInsertOptions().IfNotExists(true).Build()
	if err != nil {
		return operations.EntityWriteResult[T]{}, err
	}
	return r.ops.InsertWith(ctx, v, opts)
}

// FindByID returns the entity identified by id. A missing row fails with
// *cassava.NotFoundError.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	v, err := r.ops.SelectOneByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, cassava.NewNotFoundErrorWithID(r.e.Name(), id)
	}
	return v, nil
}

// ExistsByID reports whether a row is identified by id.
func (r *Repository[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	return r.ops.ExistsByID(ctx, id)
}

// FindAll returns all entities.
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.ops.Select(ctx, query.Empty())
}

// FindAllByID returns the entities identified by ids. Entities with a
// single key column are read with one IN query; others are read one by one
// and missing rows are skipped.
func (r *Repository[T]) FindAllByID(ctx context.Context, ids ...any) ([]*T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if keys := r.e.KeyColumns(); len(keys) == 1 && !r.e.HasCompositeKey() {
		return r.ops.Select(ctx, query.New(query.Where(keys[0].Name()).In(ids...)))
	}
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		v, err := r.ops.SelectOneByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// FindSlice returns the page of all entities requested by page.
func (r *Repository[T]) FindSlice(ctx context.Context, page query.PageRequest) (query.Slice[*T], error) {
	return r.ops.Slice(ctx, query.Empty().WithPage(page))
}

// Count returns the number of rows.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.ops.Count(ctx, query.Empty())
}

// DeleteByID deletes the row identified by id.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) error {
	_, err := r.ops.DeleteByID(ctx, id)
	return err
}

// Delete deletes v. Versioned entities are deleted with optimistic
// locking.
func (r *Repository[T]) Delete(ctx context.Context, v *T) error {
	_, err := r.ops.Delete(ctx, v)
	return err
}

// DeleteAll deletes vs and reports all failures.
func (r *Repository[T]) DeleteAll(ctx context.Context, vs ...*T) error {
	var errs []error
	for _, v := range vs {
		errs = append(errs, r.Delete(ctx, v))
	}
	return cassava.NewAggregateError(errs...)
}

// Truncate removes all rows of the table.
func (r *Repository[T]) Truncate(ctx context.Context) error {
	return r.ops.Truncate(ctx)
}
