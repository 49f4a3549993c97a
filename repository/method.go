package repository

import (
	"context"
	"fmt"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
	"github.com/syssam/cassava/operations"
	"github.com/syssam/cassava/query"
)

// Method is a query method of a repository: a derived or declared query
// with its execution kind. A Method is immutable and safe for concurrent
// use.
type Method[T any] struct {
	t        *operations.Template
	e        *mapping.Entity
	sig      Signature
	params   *params
	kind     ExecutionKind
	tree     *PartTree
	declared *stringQuery
}

// Result is the outcome of a query method. Kind tells which field is set.
type Result[T any] struct {
	Kind   ExecutionKind
	All    []*T
	One    *T
	Slice  query.Slice[*T]
	Stream *operations.Stream[T]
	Count  int64
	Exists bool
	Write  operations.WriteResult
}

// Method declares a query method on the repository. The query is derived or
// parsed now: unknown properties fail with *cassava.PropertyReferenceError,
// and anything else that cannot become a statement fails with
// *cassava.QueryCreationError.
func (r *Repository[T]) Method(sig Signature) (*Method[T], error) {
	if sig.Name == "" {
		return nil, cassava.NewQueryCreationError(sig.Name, "method name is empty", nil)
	}
	p, err := indexParams(sig)
	if err != nil {
		return nil, cassava.NewQueryCreationError(sig.Name, "invalid parameters", err)
	}
	m := &Method[T]{t: r.t, e: r.e, sig: sig, params: p}
	if sig.IsDeclared() {
		if m.declared, err = parseStringQuery(sig.Query); err != nil {
			return nil, cassava.NewQueryCreationError(sig.Name, "invalid query", err)
		}
		if err := m.declared.compile(p, r.programs); err != nil {
			return nil, cassava.NewQueryCreationError(sig.Name, "unresolved placeholder", err)
		}
	} else {
		if m.tree, err = Parse(sig.Name, r.e); err != nil {
			return nil, err
		}
		if n := m.tree.Arity(); n > len(p.values) {
			return nil, cassava.NewQueryCreationError(sig.Name, fmt.Sprintf("predicate binds %d arguments, method declares %d value parameters", n, len(p.values)), nil)
		}
	}
	m.kind = deriveKind(sig, p, m.tree)
	if m.kind == ExecDelete && m.declared == nil && len(m.tree.Parts) == 0 {
		return nil, cassava.NewQueryCreationError(sig.Name, "delete requires criteria", nil)
	}
	r.log.Debug("repository: method", "entity", r.e.Name(), "method", sig.Name, "kind", m.kind, "declared", m.declared != nil)
	return m, nil
}

// deriveKind picks the execution kind from the name prefix and parameters
// unless the signature declares it.
func deriveKind(sig Signature, p *params, tree *PartTree) ExecutionKind {
	if sig.Returns != ExecDerive {
		return sig.Returns
	}
	subject := Subject{Prefix: prefixOf(sig.Name)}
	if tree != nil {
		subject = tree.Subject
	}
	switch {
	case subject.IsCount():
		return ExecCount
	case subject.IsExists():
		return ExecExists
	case subject.IsDelete():
		return ExecDelete
	case subject.IsStream():
		return ExecStream
	case p.page >= 0:
		return ExecSlice
	case subject.Limit == 1:
		return ExecSingle
	}
	return ExecCollection
}

func prefixOf(name string) string {
	for _, p := range prefixes {
		if len(name) >= len(p) && name[:len(p)] == p && startsUpperOrEmpty(name[len(p):]) {
			return p
		}
	}
	return ""
}

// Signature returns the declaration of the method.
func (m *Method[T]) Signature() Signature { return m.sig }

// Kind returns the execution kind of the method.
func (m *Method[T]) Kind() ExecutionKind { return m.kind }

// Tree returns the parsed name of a derived method, nil for declared ones.
func (m *Method[T]) Tree() *PartTree { return m.tree }

// Execute runs the method with args, one per declared parameter, and shapes
// the result by the method's kind.
func (m *Method[T]) Execute(ctx context.Context, args ...any) (Result[T], error) {
	return m.execute(ctx, m.kind, args)
}

// All runs the method as a collection query.
func (m *Method[T]) All(ctx context.Context, args ...any) ([]*T, error) {
	r, err := m.execute(ctx, ExecCollection, args)
	return r.All, err
}

// One runs the method as a single entity query. It returns nil when no row
// matches and *cassava.IncorrectResultSizeError for more than one row
// unless the method limits its result.
func (m *Method[T]) One(ctx context.Context, args ...any) (*T, error) {
	r, err := m.execute(ctx, ExecSingle, args)
	return r.One, err
}

// Slice runs the method for the page given by its page parameter.
func (m *Method[T]) Slice(ctx context.Context, args ...any) (query.Slice[*T], error) {
	r, err := m.execute(ctx, ExecSlice, args)
	return r.Slice, err
}

// Stream runs the method as a lazy stream. The caller must close it.
func (m *Method[T]) Stream(ctx context.Context, args ...any) (*operations.Stream[T], error) {
	r, err := m.execute(ctx, ExecStream, args)
	return r.Stream, err
}

// Count runs the method as a count query.
func (m *Method[T]) Count(ctx context.Context, args ...any) (int64, error) {
	r, err := m.execute(ctx, ExecCount, args)
	return r.Count, err
}

// Exists runs the method as an existence check.
func (m *Method[T]) Exists(ctx context.Context, args ...any) (bool, error) {
	r, err := m.execute(ctx, ExecExists, args)
	return r.Exists, err
}

// Delete runs the method as a delete.
func (m *Method[T]) Delete(ctx context.Context, args ...any) (operations.WriteResult, error) {
	r, err := m.execute(ctx, ExecDelete, args)
	return r.Write, err
}

func (m *Method[T]) execute(ctx context.Context, kind ExecutionKind, args []any) (res Result[T], err error) {
	res.Kind = kind
	a, err := bindArguments(m.params, args, len(m.sig.Params))
	if err != nil {
		return res, cassava.NewValidationError("arguments", err)
	}
	c, err := m.prepare(ctx, a)
	if err != nil {
		return res, err
	}
	switch kind {
	case ExecCollection:
		res.All, err = c.sel.All(ctx)
	case ExecSingle:
		res.One, err = c.sel.One(ctx)
	case ExecSlice:
		res.Slice, err = c.sel.Slice(ctx)
	case ExecStream:
		res.Stream, err = c.sel.Stream(ctx)
	case ExecCount:
		res.Count, err = c.sel.Count(ctx)
	case ExecExists:
		res.Exists, err = c.sel.Exists(ctx)
	case ExecDelete:
		if c.st != nil {
			res.Write, err = m.t.Execute(ctx, c.opts.Apply(c.st))
		} else {
			res.Write, err = operations.Delete[T](m.t).Matching(c.q).All(ctx)
		}
	default:
		err = cassava.NewQueryCreationError(m.sig.Name, "unknown execution kind "+kind.String(), nil)
	}
	return res, err
}

// call is a method call ready to execute: the select operation, and either
// the derived query or the declared statement.
type call[T any] struct {
	sel  operations.SelectOperation[T]
	q    query.Query
	st   *cql.Statement
	opts operations.QueryOptions
}

func (m *Method[T]) prepare(ctx context.Context, a *arguments) (call[T], error) {
	c := call[T]{opts: a.queryOptions(m.sig.Options)}
	c.sel = operations.Select[T](m.t).WithOptions(c.opts)
	if m.declared != nil {
		text, raw, err := m.declared.bind(a)
		if err != nil {
			return c, cassava.NewQueryCreationError(m.sig.Name, "cannot bind parameters", err)
		}
		values := make([]any, len(raw))
		for i, v := range raw {
			if values[i], err = m.t.Converter().WriteValue(ctx, v); err != nil {
				return c, cassava.NewMappingError(m.e.Name(), "", fmt.Sprintf("cannot convert parameter %d", i), err)
			}
		}
		c.st = cql.NewStatement(text, values...)
		c.q = query.Empty()
		if a.paged {
			c.q = c.q.WithPage(a.page)
		}
		c.sel = c.sel.Statement(c.st).Matching(c.q)
		return c, nil
	}
	q, err := m.tree.Query(a.values)
	if err != nil {
		return c, cassava.NewQueryCreationError(m.sig.Name, "cannot bind parameters", err)
	}
	q = q.WithSort(a.sort)
	if m.sig.AllowFiltering {
		q = q.WithAllowFiltering()
	}
	if a.paged {
		q = q.WithPage(a.page)
	}
	c.q = q
	c.sel = c.sel.Matching(q)
	return c, nil
}
