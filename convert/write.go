package convert

import (
	"context"
	"fmt"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

// Write writes the properties of v, a value of or pointer to the entity type,
// to sink. NULL properties, including empty collections, are skipped unless
// insertNulls is set, in which case an explicit NULL is written. Composite
// primary keys are flattened into their columns.
func (c *Converter) Write(ctx context.Context, e *mapping.Entity, v any, sink cql.ValueSink, insertNulls bool) error {
	owner, ok := e.Pointer(v)
	if !ok {
		return cassava.NewMappingError(e.Name(), "", fmt.Sprintf("cannot write %T", v), nil)
	}
	for _, p := range e.Properties() {
		if p.IsCompositeKey() {
			if err := c.writeKey(ctx, e, p, owner, sink, insertNulls); err != nil {
				return err
			}
			continue
		}
		val, ok := p.Get(owner)
		if !ok {
			if insertNulls {
				sink.SetValue(p.Column(), nil)
			}
			continue
		}
		dv, err := c.writeProperty(ctx, e, p, val)
		if err != nil {
			return err
		}
		sink.SetValue(p.Column(), dv)
	}
	return nil
}

func (c *Converter) writeKey(ctx context.Context, e *mapping.Entity, p *mapping.Property, owner any, sink cql.ValueSink, insertNulls bool) error {
	kc, err := e.Nested(p)
	if err != nil {
		return err
	}
	ref, _ := p.Get(owner)
	return c.Write(ctx, kc, ref, sink, insertNulls)
}

// writeProperty converts the value returned by p.Get.
func (c *Converter) writeProperty(ctx context.Context, e *mapping.Entity, p *mapping.Property, v any) (any, error) {
	elem := c.writeSimple
	if p.IsNested() {
		n, err := e.Nested(p)
		if err != nil {
			return nil, err
		}
		elem = func(v any) (any, error) { return c.writeNested(ctx, n, v) }
	}
	var (
		out any
		err error
	)
	switch p.Shape() {
	case mapping.ShapeList, mapping.ShapeSet:
		items := v.([]any)
		vs := make([]any, len(items))
		for i, x := range items {
			if vs[i], err = elem(x); err != nil {
				break
			}
		}
		out = vs
	case mapping.ShapeMap:
		m := v.(map[any]any)
		vs := make(map[any]any, len(m))
		for k, x := range m {
			var dk, dx any
			if dk, err = c.writeSimple(k); err != nil {
				break
			}
			if dx, err = elem(x); err != nil {
				break
			}
			vs[dk] = dx
		}
		out = vs
	default:
		out, err = elem(v)
	}
	if err != nil {
		return nil, cassava.NewMappingError(e.Name(), p.Name(), "cannot convert value", err)
	}
	return out, nil
}

// writeNested converts a user type or tuple value into its container.
func (c *Converter) writeNested(ctx context.Context, n *mapping.Entity, v any) (any, error) {
	owner, ok := n.Pointer(v)
	if !ok {
		return nil, nil
	}
	switch n.Kind() {
	case mapping.KindUserType:
		ut, err := c.userType(ctx, n)
		if err != nil {
			return nil, err
		}
		uv := cql.NewUDTValue(ut)
		for _, p := range n.Properties() {
			val, ok := p.Get(owner)
			if !ok {
				continue
			}
			dv, err := c.writeProperty(ctx, n, p, val)
			if err != nil {
				return nil, err
			}
			if err := uv.Set(p.Column(), dv); err != nil {
				return nil, cassava.NewMappingError(n.Name(), p.Name(), "user type schema mismatch", err)
			}
		}
		return uv, nil
	case mapping.KindTuple:
		types, err := n.TupleTypes()
		if err != nil {
			return nil, err
		}
		tv := cql.NewTupleValue(types...)
		for i, p := range n.Properties() {
			val, ok := p.Get(owner)
			if !ok {
				continue
			}
			dv, err := c.writeProperty(ctx, n, p, val)
			if err != nil {
				return nil, err
			}
			if err := tv.Set(i, dv); err != nil {
				return nil, cassava.NewMappingError(n.Name(), p.Name(), "tuple schema mismatch", err)
			}
		}
		return tv, nil
	default:
		return nil, cassava.NewMappingError(n.Name(), "", fmt.Sprintf("%s cannot be written as a value", n.Kind()), nil)
	}
}

// writeSimple converts a non-nested value: custom conversions first, then the
// built-in ones, then identity.
func (c *Converter) writeSimple(v any) (any, error) {
	for _, cv := range c.conversions {
		if cv.write == nil {
			continue
		}
		if out, ok, err := cv.write(v); ok {
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cv, err)
			}
			return out, nil
		}
	}
	return encode(v)
}

// WriteValue converts a single statement parameter. User type and tuple
// values become their containers; slices and maps are converted
// element-wise.
func (c *Converter) WriteValue(ctx context.Context, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			var err error
			if out[i], err = c.WriteValue(ctx, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case map[any]any:
		out := make(map[any]any, len(x))
		for k, item := range x {
			dk, err := c.writeSimple(k)
			if err != nil {
				return nil, err
			}
			if out[dk], err = c.WriteValue(ctx, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	if e, err := c.mc.EntityFor(v); err == nil && (e.IsUserType() || e.IsTuple()) {
		return c.writeNested(ctx, e, v)
	}
	return c.writeSimple(v)
}

// WriteID returns the key relations selecting the row identified by id: a
// simple identifier value, a primary key class value, an entity value or a
// mapping.MapID naming the key properties.
func (c *Converter) WriteID(ctx context.Context, e *mapping.Entity, id any) ([]cql.Relation, error) {
	if id == nil {
		return nil, cassava.NewMappingError(e.Name(), "", "nil identifier", nil)
	}
	keys := e.KeyColumns()
	values := make([]any, len(keys))
	switch {
	case isMapID(id):
		mid := toMapID(id)
		used := 0
		for i, k := range keys {
			v, ok := lookupKey(mid, k)
			if !ok {
				return nil, cassava.NewMappingError(e.Name(), k.Name(), "identifier is missing key column "+k.Column().String(), nil)
			}
			values[i] = v
			used++
		}
		if used != len(mid) {
			return nil, cassava.NewMappingError(e.Name(), "", fmt.Sprintf("identifier names unknown properties: %v", mid.Names()), nil)
		}
	case isEntity(e, id):
		owner, _ := e.Pointer(id)
		for i, k := range keys {
			values[i], _ = k.Value(owner)
		}
	case e.HasCompositeKey():
		idp, _ := e.IDProperty()
		kc, err := e.Nested(idp)
		if err != nil {
			return nil, err
		}
		owner, ok := kc.Pointer(id)
		if !ok {
			return nil, cassava.NewMappingError(e.Name(), idp.Name(), fmt.Sprintf("identifier must be %s, got %T", kc.Name(), id), nil)
		}
		for i, k := range keys {
			values[i], _ = mapping.KeyColumn{Path: k.Path[1:]}.Value(owner)
		}
	case len(keys) == 1:
		values[0] = id
	default:
		return nil, cassava.NewMappingError(e.Name(), "", fmt.Sprintf("entity has %d key columns, use a MapID", len(keys)), nil)
	}
	rels := make([]cql.Relation, len(keys))
	for i, k := range keys {
		v, err := c.WriteValue(ctx, values[i])
		if err != nil {
			return nil, cassava.NewMappingError(e.Name(), k.Name(), "cannot convert key value", err)
		}
		rels[i] = cql.EQ(k.Column(), v)
	}
	return rels, nil
}

func isMapID(id any) bool {
	switch id.(type) {
	case mapping.MapID, map[string]any:
		return true
	}
	return false
}

func toMapID(id any) mapping.MapID {
	if m, ok := id.(mapping.MapID); ok {
		return m
	}
	return mapping.MapID(id.(map[string]any))
}

func isEntity(e *mapping.Entity, v any) bool {
	_, ok := e.Pointer(v)
	return ok
}

// lookupKey finds a key column value by dotted path, property name or column
// name.
func lookupKey(id mapping.MapID, k mapping.KeyColumn) (any, bool) {
	for _, name := range []string{k.Name(), k.Property().Name(), k.Column().Name()} {
		if v, ok := id.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}
