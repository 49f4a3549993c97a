package query

import (
	"context"
	"fmt"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

// ValueWriter converts query operands to driver values.
// *convert.Converter implements it.
type ValueWriter interface {
	WriteValue(ctx context.Context, v any) (any, error)
}

// Mapper maps property based queries and updates of an entity to statement
// clauses: property paths become columns and operands are converted with the
// ValueWriter.
type Mapper struct {
	w ValueWriter
}

// NewMapper returns a mapper converting operands with w.
func NewMapper(w ValueWriter) *Mapper { return &Mapper{w: w} }

// Relations maps the criteria of f to WHERE (or IF) relations. A criteria on
// a primary key class property compares each of its key columns.
func (m *Mapper) Relations(ctx context.Context, e *mapping.Entity, f Filter) ([]cql.Relation, error) {
	rels := make([]cql.Relation, 0, f.Len())
	for _, c := range f.criteria {
		path, err := e.Resolve(c.Property)
		if err != nil {
			return nil, err
		}
		if p := path.Property(); p.IsCompositeKey() {
			kr, err := m.keyRelations(ctx, e, p, c)
			if err != nil {
				return nil, err
			}
			rels = append(rels, kr...)
			continue
		}
		values := make([]any, len(c.Values))
		for i, v := range c.Values {
			if values[i], err = m.w.WriteValue(ctx, v); err != nil {
				return nil, cassava.NewMappingError(e.Name(), path.Name(), "cannot convert query value", err)
			}
		}
		rels = append(rels, cql.Relation{Column: path.Column(), Op: c.Op, Values: values})
	}
	return rels, nil
}

func (m *Mapper) keyRelations(ctx context.Context, e *mapping.Entity, p *mapping.Property, c Criteria) ([]cql.Relation, error) {
	if c.Op != cql.OpEQ || len(c.Values) != 1 {
		return nil, cassava.NewMappingError(e.Name(), p.Name(), fmt.Sprintf("primary key class supports only %s", cql.OpEQ), nil)
	}
	kc, err := e.Nested(p)
	if err != nil {
		return nil, err
	}
	owner, ok := kc.Pointer(c.Values[0])
	if !ok {
		return nil, cassava.NewMappingError(e.Name(), p.Name(), fmt.Sprintf("value must be %s, got %T", kc.Name(), c.Values[0]), nil)
	}
	var rels []cql.Relation
	for _, k := range kc.KeyColumns() {
		raw, _ := k.Value(owner)
		v, err := m.w.WriteValue(ctx, raw)
		if err != nil {
			return nil, cassava.NewMappingError(e.Name(), p.Name()+"."+k.Name(), "cannot convert query value", err)
		}
		rels = append(rels, cql.EQ(k.Column(), v))
	}
	return rels, nil
}

// Columns maps property paths to selected columns. A primary key class
// property selects all of its columns.
func (m *Mapper) Columns(e *mapping.Entity, paths []string) ([]cql.Identifier, error) {
	var cols []cql.Identifier
	for _, name := range paths {
		path, err := e.Resolve(name)
		if err != nil {
			return nil, err
		}
		if !path.Property().IsCompositeKey() {
			cols = append(cols, path.Column())
			continue
		}
		for _, k := range e.KeyColumns() {
			cols = append(cols, k.Column())
		}
	}
	return cols, nil
}

// Orderings maps a sort to ORDER BY terms.
func (m *Mapper) Orderings(e *mapping.Entity, s Sort) ([]cql.Ordering, error) {
	out := make([]cql.Ordering, 0, len(s.orders))
	for _, o := range s.orders {
		path, err := e.Resolve(o.Property)
		if err != nil {
			return nil, err
		}
		if !path.Property().IsClusteringKey() {
			return nil, cassava.NewMappingError(e.Name(), path.Name(), "ordering requires a clustering column", nil)
		}
		out = append(out, cql.Ordering{Column: path.Column(), Descending: o.Descending})
	}
	return out, nil
}

// Select returns a SELECT builder for q. The zero table selects from the
// entity table.
func (m *Mapper) Select(ctx context.Context, e *mapping.Entity, table cql.Identifier, q Query) (*cql.SelectBuilder, error) {
	rels, err := m.Relations(ctx, e, q.filter)
	if err != nil {
		return nil, err
	}
	cols, err := m.Columns(e, q.columns)
	if err != nil {
		return nil, err
	}
	orders, err := m.Orderings(e, q.sort)
	if err != nil {
		return nil, err
	}
	if table.IsZero() {
		table = e.Table()
	}
	b := cql.SelectFrom(table).Columns(cols...).Where(rels...).Limit(q.limit)
	for _, o := range orders {
		b.OrderBy(o.Column, o.Descending)
	}
	if q.distinct {
		b.Distinct()
	}
	if q.allowFiltering {
		b.AllowFiltering()
	}
	return b, nil
}

// Assignments maps an update to SET terms.
func (m *Mapper) Assignments(ctx context.Context, e *mapping.Entity, u Update) ([]cql.Assignment, error) {
	out := make([]cql.Assignment, 0, len(u.ops))
	for _, op := range u.ops {
		path, err := e.Resolve(op.Property)
		if err != nil {
			return nil, err
		}
		p := path.Property()
		if p.IsPrimaryKey() {
			return nil, cassava.NewMappingError(e.Name(), path.Name(), "primary key columns cannot be updated", nil)
		}
		v, err := m.w.WriteValue(ctx, op.Value)
		if err != nil {
			return nil, cassava.NewMappingError(e.Name(), path.Name(), "cannot convert update value", err)
		}
		col := path.Column()
		switch op.Kind {
		case UpdateSet:
			out = append(out, cql.Set(col, v))
		case UpdateSetAt:
			k, err := m.w.WriteValue(ctx, op.Key)
			if err != nil {
				return nil, cassava.NewMappingError(e.Name(), path.Name(), "cannot convert update key", err)
			}
			out = append(out, cql.SetElement(col, k, v))
		case UpdateIncrement:
			out = append(out, cql.Increment(col, op.Value.(int64)))
		case UpdateAppend:
			out = append(out, cql.Append(col, collectionOperand(p, op.Kind, v)))
		case UpdatePrepend:
			if p.Shape() != mapping.ShapeList {
				return nil, cassava.NewMappingError(e.Name(), path.Name(), "prepend requires a list", nil)
			}
			out = append(out, cql.Prepend(col, v))
		case UpdateRemove:
			out = append(out, cql.Remove(col, collectionOperand(p, op.Kind, v)))
		default:
			return nil, cassava.NewMappingError(e.Name(), path.Name(), "unknown update "+op.Kind.String(), nil)
		}
	}
	return out, nil
}

// collectionOperand returns the operand of a collection append or removal.
// Appending to a map takes a single map operand; removing from a map takes
// the keys, which the driver marshals from a slice as a set.
func collectionOperand(p *mapping.Property, kind UpdateKind, v any) any {
	if p.Shape() == mapping.ShapeMap && kind == UpdateAppend {
		if elems, ok := v.([]any); ok && len(elems) == 1 {
			return elems[0]
		}
	}
	return v
}
