package convert

import (
	"context"
	"fmt"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

// source looks up the raw value of a property: a row column, a user type
// field or a tuple component.
type source func(p *mapping.Property, i int) (any, bool)

func rowSource(row cql.Row) source {
	return func(p *mapping.Property, _ int) (any, bool) {
		return row.Lookup(p.Column().Name())
	}
}

// Read instantiates the entity from row and returns a pointer to it.
// Entities declaring a constructor are created through it with the
// constructor parameters read from the row. Columns missing from the row
// leave the property unset.
func (c *Converter) Read(ctx context.Context, e *mapping.Entity, row cql.Row) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if row == nil {
		return nil, cassava.NewMappingError(e.Name(), "", "nil row", nil)
	}
	return c.read(e, rowSource(row))
}

func (c *Converter) read(e *mapping.Entity, src source) (any, error) {
	params := e.ConstructorParams()
	var owner any
	if e.HasConstructor() {
		names := make([]string, len(params))
		values := make([]any, len(params))
		for i, p := range params {
			raw, ok, err := c.readRaw(e, p, position(e, p), src)
			switch {
			case err != nil:
				return nil, err
			case !ok:
				return nil, cassava.NewMappingError(e.Name(), p.Name(), fmt.Sprintf("no column %s for constructor parameter", p.Column()), nil)
			}
			typed, err := p.Convert(raw, c)
			if err != nil {
				return nil, cassava.NewMappingError(e.Name(), p.Name(), "incompatible value", err)
			}
			names[i], values[i] = p.Name(), typed
		}
		v, err := e.Construct(mapping.NewArgs(names, values))
		if err != nil {
			return nil, err
		}
		owner = v
	} else {
		owner = e.New()
	}
	for i, p := range e.Properties() {
		if isParam(params, p) {
			continue
		}
		raw, ok, err := c.readRaw(e, p, i, src)
		if err != nil {
			return nil, err
		}
		if !ok || raw == nil {
			continue
		}
		if p.IsImmutable() {
			return nil, cassava.NewMappingError(e.Name(), p.Name(), "immutable property is not a constructor parameter", nil)
		}
		if err := p.Set(owner, raw, c); err != nil {
			return nil, cassava.NewMappingError(e.Name(), p.Name(), "incompatible value", err)
		}
	}
	return owner, nil
}

// readRaw returns the raw value of p. Composite keys are read from the key
// columns of the same source.
func (c *Converter) readRaw(e *mapping.Entity, p *mapping.Property, i int, src source) (any, bool, error) {
	if !p.IsCompositeKey() {
		v, ok := src(p, i)
		return v, ok, nil
	}
	kc, err := e.Nested(p)
	if err != nil {
		return nil, false, err
	}
	v, err := c.read(kc, src)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func position(e *mapping.Entity, p *mapping.Property) int {
	for i, x := range e.Properties() {
		if x == p {
			return i
		}
	}
	return -1
}

func isParam(params []*mapping.Property, p *mapping.Property) bool {
	for _, x := range params {
		if x == p {
			return true
		}
	}
	return false
}

// readNested reads a user type or tuple container into a new value of n.
func (c *Converter) readNested(n *mapping.Entity, v any) (any, error) {
	switch x := v.(type) {
	case *cql.UDTValue:
		if !n.IsUserType() {
			return nil, cassava.NewMappingError(n.Name(), "", "cannot read user type value into "+n.Kind().String(), nil)
		}
		return c.read(n, func(p *mapping.Property, _ int) (any, bool) {
			return x.Lookup(p.Column().Name())
		})
	case *cql.TupleValue:
		if !n.IsTuple() {
			return nil, cassava.NewMappingError(n.Name(), "", "cannot read tuple value into "+n.Kind().String(), nil)
		}
		if x.Len() != len(n.Properties()) {
			return nil, cassava.NewMappingError(n.Name(), "", fmt.Sprintf("tuple has %d components, want %d", x.Len(), len(n.Properties())), nil)
		}
		return c.read(n, func(_ *mapping.Property, i int) (any, bool) {
			return x.Get(i), true
		})
	default:
		return nil, cassava.NewMappingError(n.Name(), "", fmt.Sprintf("cannot read %T", v), nil)
	}
}

// Decode converts src, a value read from the driver, into the value pointed
// to by dst. It implements mapping.Decoder: custom conversions are consulted
// first, then user type and tuple containers, then the built-in conversions.
func (c *Converter) Decode(src, dst any) error {
	for _, cv := range c.conversions {
		if cv.read == nil {
			continue
		}
		if ok, err := cv.read(src, dst); ok {
			if err != nil {
				return fmt.Errorf("%s: %w", cv, err)
			}
			return nil
		}
	}
	switch src.(type) {
	case *cql.UDTValue, *cql.TupleValue:
		n, err := c.mc.EntityFor(dst)
		if err != nil {
			return err
		}
		v, err := c.readNested(n, src)
		if err != nil {
			return err
		}
		n.Assign(dst, v)
		return nil
	}
	return decode(src, dst)
}

// ReadValue decodes a single column value, e.g. of a projection, into dst.
func (c *Converter) ReadValue(src, dst any) error {
	if src == nil {
		return nil
	}
	return c.Decode(src, dst)
}
