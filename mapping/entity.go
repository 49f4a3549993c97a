package mapping

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
)

// Entity describes a mapped Go type. Entities are created by a Context and
// are immutable.
type Entity struct {
	mc      *Context
	d       *decl
	name    string
	table   cql.Identifier
	kind    Kind
	props   []*Property
	id      *Property
	version *Property
	keys    []KeyColumn
	params  []*Property
}

// Name returns the Go type name of the entity.
func (e *Entity) Name() string { return e.name }

// Table returns the table, user type or tuple name.
func (e *Entity) Table() cql.Identifier { return e.table }

// Kind returns the entity classification.
func (e *Entity) Kind() Kind { return e.kind }

// IsUserType reports whether the entity is a user-defined type.
func (e *Entity) IsUserType() bool { return e.kind == KindUserType }

// IsTuple reports whether the entity is a tuple.
func (e *Entity) IsTuple() bool { return e.kind == KindTuple }

// IsPrimaryKeyClass reports whether the entity is a composite key class.
func (e *Entity) IsPrimaryKeyClass() bool { return e.kind == KindPrimaryKeyClass }

// Properties returns the properties in declaration order. Tuple elements are
// returned in ordinal order.
func (e *Entity) Properties() []*Property { return e.props }

// Property returns the named property. Names match case-insensitively.
func (e *Entity) Property(name string) (*Property, bool) {
	for _, p := range e.props {
		if p.name == name {
			return p, true
		}
	}
	for _, p := range e.props {
		if strings.EqualFold(p.name, name) {
			return p, true
		}
	}
	return nil, false
}

// PropertyByColumn returns the property stored in the named column.
func (e *Entity) PropertyByColumn(column string) (*Property, bool) {
	for _, p := range e.props {
		if p.column.Name() == column {
			return p, true
		}
	}
	for _, p := range e.props {
		if !p.column.IsQuoted() && strings.EqualFold(p.column.Name(), column) {
			return p, true
		}
	}
	return nil, false
}

// IDProperty returns the identifier property: the simple id, or the
// property holding the primary key class. Tables with several key columns
// declared inline have no identifier property and are addressed with MapID.
func (e *Entity) IDProperty() (*Property, bool) { return e.id, e.id != nil }

// VersionProperty returns the optimistic locking version property.
func (e *Entity) VersionProperty() (*Property, bool) { return e.version, e.version != nil }

// HasCompositeKey reports whether the primary key is held by a key class.
func (e *Entity) HasCompositeKey() bool { return e.id != nil && e.id.composite }

// KeyColumns returns the primary key columns of a table or key class:
// partition columns first, then clustering columns.
func (e *Entity) KeyColumns() []KeyColumn { return e.keys }

// ConstructorParams returns the properties passed to the constructor.
func (e *Entity) ConstructorParams() []*Property { return e.params }

// HasConstructor reports whether the entity declares a constructor.
func (e *Entity) HasConstructor() bool { return e.d.ctor != nil }

// New returns a pointer to a new zero value of the entity type.
func (e *Entity) New() any { return e.d.newFn() }

// Construct instantiates the entity through its constructor.
func (e *Entity) Construct(args Args) (any, error) {
	if e.d.ctor == nil {
		return e.d.newFn(), nil
	}
	v, err := e.d.ctor.fn(args)
	if err != nil {
		return nil, cassava.NewMappingError(e.name, "", "constructor failed", err)
	}
	return v, nil
}

// Pointer returns v as a pointer to the entity type. v may be a value or a
// pointer. The boolean is false for nil pointers and foreign types.
func (e *Entity) Pointer(v any) (any, bool) { return e.d.ptrFn(v) }

// Assign copies the value pointed to by src into dst. Both must be pointers
// to the entity type.
func (e *Entity) Assign(dst, src any) { e.d.copyFn(dst, src) }

// Nested returns the entity of a nested property.
func (e *Entity) Nested(p *Property) (*Entity, error) {
	if !p.nested {
		return nil, cassava.NewMappingError(e.name, p.name, "property is not nested", nil)
	}
	return e.mc.resolve(p.nestedKey)
}

// DataType returns the CQL type of a property, resolving nested user types
// and tuples.
func (e *Entity) DataType(p *Property) (cql.DataType, error) {
	if !p.typ.IsZero() {
		return p.typ, nil
	}
	n, err := e.Nested(p)
	if err != nil {
		return cql.DataType{}, err
	}
	var elem cql.DataType
	switch n.kind {
	case KindUserType:
		elem = cql.Frozen(cql.UDT(n.table))
	case KindTuple:
		types, err := n.TupleTypes()
		if err != nil {
			return cql.DataType{}, err
		}
		elem = cql.TupleOf(types...)
	default:
		return cql.DataType{}, cassava.NewMappingError(e.name, p.name, "composite key has no column type", nil)
	}
	switch p.shape {
	case ShapeList:
		return cql.ListOf(elem), nil
	case ShapeSet:
		return cql.SetOf(elem), nil
	case ShapeMap:
		return cql.MapOf(p.keyType, elem), nil
	default:
		return elem, nil
	}
}

// UserType returns the user type schema derived from the entity.
func (e *Entity) UserType() (*cql.UserType, error) {
	if e.kind != KindUserType {
		return nil, cassava.NewMappingError(e.name, "", "not a user type", nil)
	}
	ut := &cql.UserType{Name: e.table}
	for _, p := range e.props {
		t, err := e.DataType(p)
		if err != nil {
			return nil, err
		}
		ut.Fields = append(ut.Fields, cql.UserTypeField{Name: p.column, Type: t})
	}
	return ut, nil
}

// TupleTypes returns the element types of a tuple entity.
func (e *Entity) TupleTypes() ([]cql.DataType, error) {
	if e.kind != KindTuple {
		return nil, cassava.NewMappingError(e.name, "", "not a tuple", nil)
	}
	types := make([]cql.DataType, len(e.props))
	for i, p := range e.props {
		t, err := e.DataType(p)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// String returns the entity name.
func (e *Entity) String() string { return e.name }

// KeyColumn is a primary key column, possibly inside a primary key class.
type KeyColumn struct {
	// Path leads from the entity to the key column property.
	Path []*Property
}

// Property returns the key column property.
func (k KeyColumn) Property() *Property { return k.Path[len(k.Path)-1] }

// Column returns the column name.
func (k KeyColumn) Column() cql.Identifier { return k.Property().column }

// Role returns the key role.
func (k KeyColumn) Role() Role { return k.Property().role }

// IsDescending reports whether a clustering column sorts descending.
func (k KeyColumn) IsDescending() bool { return k.Property().descending }

// Name returns the dotted property path, e.g. "key.lastname".
func (k KeyColumn) Name() string {
	names := make([]string, len(k.Path))
	for i, p := range k.Path {
		names[i] = p.name
	}
	return strings.Join(names, ".")
}

// Value returns the key column value of owner.
func (k KeyColumn) Value(owner any) (any, bool) {
	cur := owner
	for _, p := range k.Path {
		v, ok := p.Get(cur)
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// build resolves a declaration into an entity.
func (c *Context) build(d *decl) (*Entity, error) {
	e := &Entity{mc: c, d: d, name: d.goName, kind: d.kind()}
	name := d.name
	if name == "" {
		name = c.naming(d.goName)
	}
	table, err := cql.NewIdentifier(name, d.forceQuote)
	if err != nil {
		return nil, cassava.NewMappingError(e.name, "", "invalid name", err)
	}
	e.table = table
	for i, src := range d.props {
		p := src.clone()
		p.index = i
		if err := c.resolveProperty(e, p); err != nil {
			return nil, err
		}
		for _, prev := range e.props {
			switch {
			case strings.EqualFold(prev.name, p.name):
				return nil, cassava.NewMappingError(e.name, p.name, "duplicate property", nil)
			case prev.column.Equal(p.column):
				return nil, cassava.NewMappingError(e.name, p.name, fmt.Sprintf("column %s already mapped by %s", p.column, prev.name), nil)
			}
		}
		if p.version {
			if e.version != nil {
				return nil, cassava.NewMappingError(e.name, p.name, "multiple version properties", nil)
			}
			e.version = p
		}
		e.props = append(e.props, p)
	}
	switch e.kind {
	case KindTable:
		err = c.tableKey(e)
	case KindPrimaryKeyClass:
		err = classKey(e)
	case KindTuple:
		err = tupleOrder(e)
	}
	if err != nil {
		return nil, err
	}
	if e.version != nil && e.kind != KindTable {
		return nil, cassava.NewMappingError(e.name, e.version.name, "version properties are only supported on tables", nil)
	}
	if d.ctor != nil {
		for _, name := range d.ctor.params {
			p, ok := e.Property(name)
			if !ok {
				return nil, cassava.NewMappingError(e.name, name, "constructor parameter does not name a property", nil)
			}
			e.params = append(e.params, p)
		}
	}
	return e, nil
}

func (c *Context) resolveProperty(e *Entity, p *Property) error {
	if p.err != nil {
		return cassava.NewMappingError(e.name, p.name, "invalid declaration", p.err)
	}
	if p.name == "" {
		return cassava.NewMappingError(e.name, "", "empty property name", nil)
	}
	col := p.columnName
	if col == "" {
		col = c.naming(p.name)
	}
	id, err := cql.NewIdentifier(col, p.forceQuote)
	if err != nil {
		return cassava.NewMappingError(e.name, p.name, "invalid column name", err)
	}
	p.column = id
	if nd, ok := c.lookup(p.acc.typeKey()); ok {
		p.nested, p.nestedKind, p.nestedKey, p.nestedName = true, nd.kind(), nd.key, nd.goName
		switch {
		case p.nestedKind == KindTable:
			return cassava.NewMappingError(e.name, p.name, fmt.Sprintf("table %s cannot be nested", nd.goName), nil)
		case p.nestedKind == KindPrimaryKeyClass && !p.composite:
			return cassava.NewMappingError(e.name, p.name, fmt.Sprintf("primary key class %s must be declared with PrimaryKey", nd.goName), nil)
		case p.nestedKind != KindPrimaryKeyClass && p.composite:
			return cassava.NewMappingError(e.name, p.name, fmt.Sprintf("%s is not a primary key class", nd.goName), nil)
		case p.composite && e.kind != KindTable:
			return cassava.NewMappingError(e.name, p.name, "primary key classes can only be used by tables", nil)
		}
		if p.shape == ShapeMap {
			k, ok := inferType(p.acc.keyZero())
			if !ok {
				return cassava.NewMappingError(e.name, p.name, "cannot infer CQL type of map key", nil)
			}
			p.keyType = k
		}
	} else {
		if p.requireNested {
			return cassava.NewMappingError(e.name, p.name, fmt.Sprintf("type %s is not registered", p.goType), nil)
		}
		if p.typ.IsZero() {
			t, ok := p.inferType()
			if !ok {
				return cassava.NewMappingError(e.name, p.name, fmt.Sprintf("cannot infer CQL type of %s, declare it with Type", p.goType), nil)
			}
			p.typ = t
		}
	}
	if (e.kind == KindUserType || e.kind == KindTuple) && (p.role != RoleNone || p.id) {
		return cassava.NewMappingError(e.name, p.name, fmt.Sprintf("key columns are not allowed in %s types", e.kind), nil)
	}
	if p.descending && p.role != RoleClustering {
		return cassava.NewMappingError(e.name, p.name, "descending order requires a clustering key", nil)
	}
	if p.version && (p.role != RoleNone || p.id) {
		return cassava.NewMappingError(e.name, p.name, "version cannot be a key column", nil)
	}
	return nil
}

func (c *Context) tableKey(e *Entity) error {
	var composite *Property
	var ids, keyed []*Property
	for _, p := range e.props {
		switch {
		case p.composite:
			if composite != nil {
				return cassava.NewMappingError(e.name, p.name, "multiple primary key properties", nil)
			}
			composite = p
		case p.id || p.role != RoleNone:
			if p.role == RoleNone {
				p.role = RolePartition
			}
			if p.id {
				ids = append(ids, p)
			}
			keyed = append(keyed, p)
		}
	}
	if composite != nil {
		if len(keyed) > 0 {
			return cassava.NewMappingError(e.name, keyed[0].name, "key columns cannot be combined with a primary key class", nil)
		}
		kc, err := c.resolve(composite.nestedKey)
		if err != nil {
			return err
		}
		for _, k := range kc.keys {
			e.keys = append(e.keys, KeyColumn{Path: append([]*Property{composite}, k.Path...)})
		}
		e.id = composite
		return nil
	}
	switch {
	case len(keyed) == 0:
		return cassava.NewMappingError(e.name, "", "no primary key declared", nil)
	case len(ids) > 1:
		return cassava.NewMappingError(e.name, ids[1].name, "multiple identifier properties", nil)
	case len(ids) == 1:
		e.id = ids[0]
	case len(keyed) == 1:
		e.id = keyed[0]
	}
	keys, err := orderKeys(e, keyed)
	if err != nil {
		return err
	}
	e.keys = keys
	return nil
}

func classKey(e *Entity) error {
	for _, p := range e.props {
		if p.role == RoleNone {
			return cassava.NewMappingError(e.name, p.name, "primary key class properties must be partition or clustering keys", nil)
		}
	}
	keys, err := orderKeys(e, e.props)
	if err != nil {
		return err
	}
	e.keys = keys
	return nil
}

// orderKeys orders key columns: partition before clustering, then by
// ordinal, then by declaration order. Properties without an ordinal come
// first within their role.
func orderKeys(e *Entity, props []*Property) ([]KeyColumn, error) {
	sorted := slices.Clone(props)
	slices.SortStableFunc(sorted, func(a, b *Property) int {
		if c := cmp.Compare(a.role, b.role); c != 0 {
			return c
		}
		return cmp.Compare(ordinalOf(a), ordinalOf(b))
	})
	if err := checkOrdinals(e, sorted, func(a, b *Property) bool { return a.role == b.role }); err != nil {
		return nil, err
	}
	if sorted[0].role != RolePartition {
		return nil, cassava.NewMappingError(e.name, "", "no partition key declared", nil)
	}
	keys := make([]KeyColumn, len(sorted))
	for i, p := range sorted {
		keys[i] = KeyColumn{Path: []*Property{p}}
	}
	return keys, nil
}

func tupleOrder(e *Entity) error {
	slices.SortStableFunc(e.props, func(a, b *Property) int {
		return cmp.Compare(ordinalOf(a), ordinalOf(b))
	})
	return checkOrdinals(e, e.props, func(*Property, *Property) bool { return true })
}

func ordinalOf(p *Property) int {
	if !p.hasOrdinal {
		return math.MinInt
	}
	return p.ordinal
}

// checkOrdinals reports explicit ordinals declared twice in sorted, a slice
// ordered by ordinal within each group.
func checkOrdinals(e *Entity, sorted []*Property, sameGroup func(a, b *Property) bool) error {
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		if !a.hasOrdinal || !b.hasOrdinal || !sameGroup(a, b) || a.ordinal != b.ordinal {
			continue
		}
		names := []string{a.name}
		for j := i; j < len(sorted) && sorted[j].hasOrdinal && sameGroup(a, sorted[j]) && sorted[j].ordinal == a.ordinal; j++ {
			names = append(names, sorted[j].name)
		}
		return cassava.NewAmbiguousOrdinalError(e.name, a.ordinal, names...)
	}
	return nil
}
