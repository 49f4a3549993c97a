package operations

import (
	"context"
	"errors"
	"sync"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

// ErrBatchExecuted is returned when a batch is modified or executed after it
// was executed.
var ErrBatchExecuted = errors.New("operations: batch already executed")

// BatchOperation groups entity writes into a single batch statement. Unlike
// the other operations a batch is mutable, and it can be executed once.
// Versioned entities are written as is, without optimistic locking.
//
//	res, err := t.Batch(cql.LoggedBatch).
//		Insert(&walter, &skyler).
//		Delete(&jesse).
//		Execute(ctx)
type BatchOperation struct {
	t       *Template
	mu      sync.Mutex
	typ     cql.BatchType
	pending []func(context.Context) (*cql.Statement, error)
	opts    WriteOptions
	err     error
	done    bool
}

// Batch returns an empty batch of the given type.
func (t *Template) Batch(typ cql.BatchType) *BatchOperation {
	return &BatchOperation{t: t, typ: typ}
}

// Insert adds inserts of vs, pointers to mapped entities.
func (o *BatchOperation) Insert(vs ...any) *BatchOperation {
	return o.InsertWith(InsertOptions{}, vs...)
}

// InsertWith adds inserts of vs with opts.
func (o *BatchOperation) InsertWith(opts InsertOptions, vs ...any) *BatchOperation {
	return o.add(vs, func(ctx context.Context, e *mapping.Entity, v any) (*cql.Statement, error) {
		return o.t.insertStatement(ctx, e, cql.Identifier{}, v, opts)
	})
}

// Update adds updates of all columns of vs.
func (o *BatchOperation) Update(vs ...any) *BatchOperation {
	return o.UpdateWith(UpdateOptions{}, vs...)
}

// UpdateWith adds updates of vs with opts.
func (o *BatchOperation) UpdateWith(opts UpdateOptions, vs ...any) *BatchOperation {
	return o.add(vs, func(ctx context.Context, e *mapping.Entity, v any) (*cql.Statement, error) {
		return o.t.updateStatement(ctx, e, cql.Identifier{}, v, opts)
	})
}

// Delete adds deletes of vs.
func (o *BatchOperation) Delete(vs ...any) *BatchOperation {
	return o.DeleteWith(DeleteOptions{}, vs...)
}

// DeleteWith adds deletes of vs with opts.
func (o *BatchOperation) DeleteWith(opts DeleteOptions, vs ...any) *BatchOperation {
	return o.add(vs, func(ctx context.Context, e *mapping.Entity, v any) (*cql.Statement, error) {
		return o.t.deleteStatement(ctx, e, cql.Identifier{}, v, opts)
	})
}

// WithOptions sets the options of the batch statement. Its timestamp
// applies to all statements of the batch.
func (o *BatchOperation) WithOptions(opts WriteOptions) *BatchOperation {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = opts
	return o
}

// Len returns the number of statements added so far.
func (o *BatchOperation) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

type statementFunc func(context.Context, *mapping.Entity, any) (*cql.Statement, error)

// add resolves the entities of vs. The first error is reported by Execute.
func (o *BatchOperation) add(vs []any, fn statementFunc) *BatchOperation {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		o.err = ErrBatchExecuted
		return o
	}
	if o.err != nil {
		return o
	}
	for _, v := range vs {
		e, err := o.entity(v)
		if err != nil {
			o.err = err
			return o
		}
		o.pending = append(o.pending, func(ctx context.Context) (*cql.Statement, error) {
			return fn(ctx, e, v)
		})
	}
	return o
}

func (o *BatchOperation) entity(v any) (*mapping.Entity, error) {
	if v == nil {
		return nil, cassava.NewValidationError("entity", errors.New("must not be nil"))
	}
	e, err := o.t.mc.EntityFor(v)
	if err != nil {
		return nil, err
	}
	if e.Kind() != mapping.KindTable {
		return nil, notTable(e)
	}
	return e, nil
}

// Execute runs the batch. An empty batch is rejected.
func (o *BatchOperation) Execute(ctx context.Context) (WriteResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return WriteResult{}, ErrBatchExecuted
	}
	o.done = true
	if o.err != nil {
		return WriteResult{}, o.err
	}
	if len(o.pending) == 0 {
		return WriteResult{}, cassava.NewValidationError("batch", errors.New("no statements"))
	}
	if err := o.opts.validate(); err != nil {
		return WriteResult{}, err
	}
	b := cql.NewBatch(o.typ)
	for _, fn := range o.pending {
		st, err := fn(ctx)
		if err != nil {
			return WriteResult{}, err
		}
		b.Add(st)
	}
	if ts, ok := o.opts.Timestamp(); ok {
		b.Timestamp(ts)
	}
	res, err := o.t.exec(ctx, o.opts.Apply(b.Build()), "", "batch")
	if err != nil {
		return WriteResult{}, err
	}
	return newWriteResult(res), nil
}
