package operations

import (
	"context"
	"errors"
	"iter"

	"github.com/syssam/cassava/convert"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

// Stream is a lazy, single-pass sequence of entities read from a result
// set. Rows are converted as they are consumed. A Stream must be closed,
// which All and Collect do on return.
//
//	s, err := operations.Select[Person](t).Stream(ctx)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	for s.Next() {
//		use(s.Entity())
//	}
//	return s.Err()
type Stream[T any] struct {
	ctx    context.Context
	conv   *convert.Converter
	e      *mapping.Entity
	rows   cql.Rows
	cur    *T
	err    error
	closed bool
}

func newStream[T any](ctx context.Context, conv *convert.Converter, e *mapping.Entity, rows cql.Rows) *Stream[T] {
	return &Stream[T]{ctx: ctx, conv: conv, e: e, rows: rows}
}

// Next advances to the next entity. It returns false at the end of the
// result, on error and after Close.
func (s *Stream[T]) Next() bool {
	if s.closed {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.fail(err)
		return false
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			s.fail(err)
			return false
		}
		_ = s.Close()
		return false
	}
	v, err := s.conv.Read(s.ctx, s.e, s.rows.Row())
	if err != nil {
		s.fail(err)
		return false
	}
	s.cur = v.(*T)
	return true
}

func (s *Stream[T]) fail(err error) {
	s.err = err
	_ = s.Close()
}

// Entity returns the current entity.
func (s *Stream[T]) Entity() *T { return s.cur }

// Err returns the error that ended the iteration, if any.
func (s *Stream[T]) Err() error { return s.err }

// PagingState returns the paging state of the underlying result.
func (s *Stream[T]) PagingState() []byte { return s.rows.PagingState() }

// Close releases the result set and reports the first error of the
// iteration, including driver errors raised while reading rows. It is safe
// to call more than once.
func (s *Stream[T]) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true
	s.cur = nil
	if err := errors.Join(s.rows.Err(), s.rows.Close()); err != nil && s.err == nil {
		s.err = err
	}
	return s.err
}

// All returns an iterator over the remaining entities. Iteration errors are
// yielded last. The stream is closed when the loop ends.
func (s *Stream[T]) All() iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.cur, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

// Collect reads the remaining entities and closes the stream.
func (s *Stream[T]) Collect() ([]*T, error) {
	var out []*T
	for v, err := range s.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
