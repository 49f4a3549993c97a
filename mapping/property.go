package mapping

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/syssam/cassava/dialect/cql"
)

// Decoder converts a value read from the driver into the Go value pointed to
// by dst. It is implemented by the converter and consulted by properties for
// values that are not already of the property type.
type Decoder interface {
	Decode(src, dst any) error
}

// key identifies a Go type in the registry.
type key[T any] struct{}

// Property is a resolved property of an Entity. Properties are immutable once
// their entity was built.
type Property struct {
	name       string
	goType     string
	columnName string
	forceQuote bool
	column     cql.Identifier
	typ        cql.DataType
	keyType    cql.DataType
	shape      Shape
	nillable   bool
	id         bool
	composite  bool
	role       Role
	ordinal    int
	hasOrdinal bool
	descending bool
	immutable  bool
	version    bool
	index      int

	requireNested bool
	nested        bool
	nestedKind    Kind
	nestedKey     any
	nestedName    string

	acc accessor
	err error
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// GoType returns the Go type of the property as printed by %T.
func (p *Property) GoType() string { return p.goType }

// Column returns the column (or user type field) name.
func (p *Property) Column() cql.Identifier { return p.column }

// Type returns the declared or inferred CQL type. It is zero for nested
// properties; use Entity.DataType to resolve those.
func (p *Property) Type() cql.DataType { return p.typ }

// Shape returns the Go shape of the property value.
func (p *Property) Shape() Shape { return p.shape }

// IsCollection reports whether the property is a list, set or map.
func (p *Property) IsCollection() bool { return p.shape != ShapeScalar }

// IsNested reports whether the property value, or its elements, are mapped
// types themselves.
func (p *Property) IsNested() bool { return p.nested }

// NestedKind returns the kind of the nested type.
func (p *Property) NestedKind() Kind { return p.nestedKind }

// IsNillable reports whether the property is a pointer that may be nil.
func (p *Property) IsNillable() bool { return p.nillable }

// IsID reports whether the property is the entity identifier.
func (p *Property) IsID() bool { return p.id }

// IsCompositeKey reports whether the property holds a primary key class.
func (p *Property) IsCompositeKey() bool { return p.composite }

// Role returns the primary key role of the column.
func (p *Property) Role() Role { return p.role }

// IsPartitionKey reports whether the column is part of the partition key.
func (p *Property) IsPartitionKey() bool { return p.role == RolePartition }

// IsClusteringKey reports whether the column is a clustering column.
func (p *Property) IsClusteringKey() bool { return p.role == RoleClustering }

// IsPrimaryKey reports whether the property is a key column or holds the
// composite key.
func (p *Property) IsPrimaryKey() bool { return p.role != RoleNone || p.composite }

// Ordinal returns the explicit ordinal and whether one was declared.
func (p *Property) Ordinal() (int, bool) { return p.ordinal, p.hasOrdinal }

// IsDescending reports whether a clustering column sorts descending.
func (p *Property) IsDescending() bool { return p.descending }

// IsImmutable reports whether the property may only be set through the
// entity constructor.
func (p *Property) IsImmutable() bool { return p.immutable }

// IsVersion reports whether the property is the optimistic locking version.
func (p *Property) IsVersion() bool { return p.version }

// String returns the property name.
func (p *Property) String() string { return p.name }

// Get returns the property value of owner, a pointer to the entity struct.
// The boolean is false for nil pointers and empty collections. Nested scalar
// values are returned as pointers into owner.
func (p *Property) Get(owner any) (any, bool) {
	if p.nested && p.shape == ShapeScalar {
		return p.acc.ref(owner)
	}
	return p.acc.get(owner)
}

// Convert converts v to the Go type of the property field. Values that are
// not of the field type are passed to d.
func (p *Property) Convert(v any, d Decoder) (any, error) {
	return p.acc.convert(v, d)
}

// Set converts v and assigns it to the property of owner.
func (p *Property) Set(owner, v any, d Decoder) error {
	typed, err := p.acc.convert(v, d)
	if err != nil {
		return err
	}
	p.acc.store(owner, typed)
	return nil
}

// Store assigns a value returned by Convert to the property of owner.
func (p *Property) Store(owner, typed any) {
	p.acc.store(owner, typed)
}

// Version returns the version of owner. It panics if p is not a version
// property.
func (p *Property) Version(owner any) int64 {
	return p.acc.(versioned).version(owner)
}

// SetVersion sets the version of owner. It panics if p is not a version
// property.
func (p *Property) SetVersion(owner any, n int64) {
	p.acc.(versioned).setVersion(owner, n)
}

func (p *Property) clone() *Property {
	c := *p
	return &c
}

// inferType infers the CQL type of a non-nested property from its Go type.
func (p *Property) inferType() (cql.DataType, bool) {
	elem, ok := inferType(p.acc.zero())
	if !ok {
		return cql.DataType{}, false
	}
	switch p.shape {
	case ShapeList:
		return cql.ListOf(elem), true
	case ShapeSet:
		return cql.SetOf(elem), true
	case ShapeMap:
		k, ok := inferType(p.acc.keyZero())
		if !ok {
			return cql.DataType{}, false
		}
		return cql.MapOf(k, elem), true
	default:
		return elem, true
	}
}

// Prop declares a property of the entity type E.
type Prop[E any] struct {
	p *Property
}

func newProp[E any](name, goType string, shape Shape, acc accessor) *Prop[E] {
	return &Prop[E]{p: &Property{name: name, goType: goType, shape: shape, acc: acc}}
}

// Column sets the column name. By default it is derived from the property
// name by the context naming strategy.
func (b *Prop[E]) Column(name string) *Prop[E] {
	if name == "" {
		b.p.err = errors.New("empty column name")
	}
	b.p.columnName = name
	return b
}

// ForceQuote quotes the column name.
func (b *Prop[E]) ForceQuote() *Prop[E] {
	b.p.forceQuote = true
	return b
}

// Type sets the CQL type of the column. It is required for Go types without
// a default mapping.
func (b *Prop[E]) Type(t cql.DataType) *Prop[E] {
	if t.IsZero() {
		b.p.err = errors.New("invalid CQL type")
	}
	b.p.typ = t
	return b
}

// ID marks the property as the entity identifier. An identifier without an
// explicit key role is the partition key.
func (b *Prop[E]) ID() *Prop[E] {
	b.p.id = true
	return b
}

// PartitionKey marks the column as part of the partition key.
func (b *Prop[E]) PartitionKey() *Prop[E] {
	b.p.role = RolePartition
	return b
}

// ClusteringKey marks the column as a clustering column.
func (b *Prop[E]) ClusteringKey() *Prop[E] {
	b.p.role = RoleClustering
	return b
}

// Ordinal sets the position of a key column within its role, or of a tuple
// element.
func (b *Prop[E]) Ordinal(n int) *Prop[E] {
	if n < 0 || n == math.MaxInt {
		b.p.err = fmt.Errorf("invalid ordinal %d", n)
	}
	b.p.ordinal = n
	b.p.hasOrdinal = true
	return b
}

// Descending sorts a clustering column in descending order.
func (b *Prop[E]) Descending() *Prop[E] {
	b.p.descending = true
	return b
}

// Immutable prevents the converter from setting the property other than
// through the entity constructor.
func (b *Prop[E]) Immutable() *Prop[E] {
	b.p.immutable = true
	return b
}

// Field declares a property stored in the field returned by ref. Fields of
// registered user type or tuple types are mapped as nested values.
//
//	mapping.Field("lastname", func(p *Person) *string { return &p.Lastname })
func Field[E, V any](name string, ref func(*E) *V) *Prop[E] {
	return newProp[E](name, goTypeOf[V](), ShapeScalar, field[E, V]{fn: ref})
}

// Nillable declares a pointer property. A nil pointer is a NULL column.
func Nillable[E, V any](name string, ref func(*E) **V) *Prop[E] {
	b := newProp[E](name, goTypeOf[*V](), ShapeScalar, nillable[E, V]{fn: ref})
	b.p.nillable = true
	return b
}

// Embedded is like Field for values of a registered user type or tuple type.
func Embedded[E, V any](name string, ref func(*E) *V) *Prop[E] {
	b := Field(name, ref)
	b.p.requireNested = true
	return b
}

// NillableEmbedded is like Nillable for values of a registered user type or
// tuple type.
func NillableEmbedded[E, V any](name string, ref func(*E) **V) *Prop[E] {
	b := Nillable(name, ref)
	b.p.requireNested = true
	return b
}

// List declares a list property.
func List[E, V any](name string, ref func(*E) *[]V) *Prop[E] {
	return newProp[E](name, goTypeOf[[]V](), ShapeList, list[E, V]{fn: ref})
}

// Set declares a set property held in a slice. Element order on read is the
// order returned by the database.
func Set[E, V any](name string, ref func(*E) *[]V) *Prop[E] {
	return newProp[E](name, goTypeOf[[]V](), ShapeSet, list[E, V]{fn: ref})
}

// Map declares a map property.
func Map[E any, K comparable, V any](name string, ref func(*E) *map[K]V) *Prop[E] {
	return newProp[E](name, goTypeOf[map[K]V](), ShapeMap, dict[E, K, V]{fn: ref})
}

// Version declares the optimistic locking version of a table entity.
func Version[E any, V ~int | ~int32 | ~int64](name string, ref func(*E) *V) *Prop[E] {
	b := newProp[E](name, goTypeOf[V](), ShapeScalar, versionField[E, V]{field[E, V]{fn: ref}})
	b.p.version = true
	b.p.typ = cql.Bigint
	if reflect.TypeFor[V]().Kind() == reflect.Int32 {
		b.p.typ = cql.Int
	}
	return b
}

// PrimaryKey declares the composite primary key of a table. K must be
// registered with PrimaryKeyClass.
func PrimaryKey[E, K any](name string, ref func(*E) *K) *Prop[E] {
	b := Embedded(name, ref)
	b.p.id = true
	b.p.composite = true
	return b
}

func goTypeOf[V any]() string {
	return fmt.Sprintf("%T", new(V))[1:]
}

type accessor interface {
	get(owner any) (any, bool)
	ref(owner any) (any, bool)
	convert(v any, d Decoder) (any, error)
	store(owner, typed any)
	// zero returns the zero value of the element type; typeKey its
	// registry key.
	zero() any
	keyZero() any
	typeKey() any
}

type versioned interface {
	version(owner any) int64
	setVersion(owner any, n int64)
}

func ownerOf[E any](o any) *E {
	e, ok := o.(*E)
	if !ok {
		panic(fmt.Sprintf("mapping: property of %T used with %T", (*E)(nil), o))
	}
	return e
}

// assign converts src to V. Values of type V and *V are taken as is;
// everything else goes through d.
func assign[V any](src any, d Decoder) (V, error) {
	var dst V
	switch x := src.(type) {
	case nil:
		return dst, nil
	case V:
		return x, nil
	case *V:
		if x != nil {
			return *x, nil
		}
		return dst, nil
	}
	if d == nil {
		return dst, fmt.Errorf("cannot assign %T to %T", src, dst)
	}
	err := d.Decode(src, &dst)
	return dst, err
}

type field[E, V any] struct {
	fn func(*E) *V
}

func (a field[E, V]) get(o any) (any, bool) { return *a.fn(ownerOf[E](o)), true }
func (a field[E, V]) ref(o any) (any, bool) { return a.fn(ownerOf[E](o)), true }
func (a field[E, V]) zero() any             { return *new(V) }
func (a field[E, V]) keyZero() any          { return nil }
func (a field[E, V]) typeKey() any          { return key[V]{} }

func (a field[E, V]) convert(v any, d Decoder) (any, error) {
	return assign[V](v, d)
}

func (a field[E, V]) store(o, typed any) {
	x, _ := typed.(V)
	*a.fn(ownerOf[E](o)) = x
}

type versionField[E any, V ~int | ~int32 | ~int64] struct {
	field[E, V]
}

func (a versionField[E, V]) convert(v any, d Decoder) (any, error) {
	switch x := v.(type) {
	case int64:
		return V(x), nil
	case int:
		return V(x), nil
	case int32:
		return V(x), nil
	}
	return assign[V](v, d)
}

func (a versionField[E, V]) version(o any) int64 {
	return int64(*a.fn(ownerOf[E](o)))
}

func (a versionField[E, V]) setVersion(o any, n int64) {
	*a.fn(ownerOf[E](o)) = V(n)
}

type nillable[E, V any] struct {
	fn func(*E) **V
}

func (a nillable[E, V]) get(o any) (any, bool) {
	p := *a.fn(ownerOf[E](o))
	if p == nil {
		return nil, false
	}
	return *p, true
}

func (a nillable[E, V]) ref(o any) (any, bool) {
	p := *a.fn(ownerOf[E](o))
	if p == nil {
		return nil, false
	}
	return p, true
}

func (a nillable[E, V]) zero() any    { return *new(V) }
func (a nillable[E, V]) keyZero() any { return nil }
func (a nillable[E, V]) typeKey() any { return key[V]{} }

func (a nillable[E, V]) convert(v any, d Decoder) (any, error) {
	if v == nil {
		return (*V)(nil), nil
	}
	if p, ok := v.(*V); ok {
		return p, nil
	}
	x, err := assign[V](v, d)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func (a nillable[E, V]) store(o, typed any) {
	p, _ := typed.(*V)
	*a.fn(ownerOf[E](o)) = p
}

type list[E, V any] struct {
	fn func(*E) *[]V
}

func (a list[E, V]) get(o any) (any, bool) {
	s := *a.fn(ownerOf[E](o))
	if len(s) == 0 {
		return nil, false
	}
	out := make([]any, len(s))
	for i := range s {
		out[i] = s[i]
	}
	return out, true
}

func (a list[E, V]) ref(o any) (any, bool) { return a.get(o) }
func (a list[E, V]) zero() any             { return *new(V) }
func (a list[E, V]) keyZero() any          { return nil }
func (a list[E, V]) typeKey() any          { return key[V]{} }

func (a list[E, V]) convert(v any, d Decoder) (any, error) {
	switch items := v.(type) {
	case nil:
		return []V(nil), nil
	case []V:
		return items, nil
	case []any:
		if len(items) == 0 {
			return []V(nil), nil
		}
		out := make([]V, len(items))
		for i, x := range items {
			var err error
			if out[i], err = assign[V](x, d); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot assign %T to %T", v, []V(nil))
	}
}

func (a list[E, V]) store(o, typed any) {
	s, _ := typed.([]V)
	*a.fn(ownerOf[E](o)) = s
}

type dict[E any, K comparable, V any] struct {
	fn func(*E) *map[K]V
}

func (a dict[E, K, V]) get(o any) (any, bool) {
	m := *a.fn(ownerOf[E](o))
	if len(m) == 0 {
		return nil, false
	}
	out := make(map[any]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, true
}

func (a dict[E, K, V]) ref(o any) (any, bool) { return a.get(o) }
func (a dict[E, K, V]) zero() any             { return *new(V) }
func (a dict[E, K, V]) keyZero() any          { return *new(K) }
func (a dict[E, K, V]) typeKey() any          { return key[V]{} }

func (a dict[E, K, V]) convert(v any, d Decoder) (any, error) {
	switch m := v.(type) {
	case nil:
		return map[K]V(nil), nil
	case map[K]V:
		return m, nil
	case map[any]any:
		if len(m) == 0 {
			return map[K]V(nil), nil
		}
		out := make(map[K]V, len(m))
		for k, x := range m {
			kk, err := assign[K](k, d)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", k, err)
			}
			if out[kk], err = assign[V](x, d); err != nil {
				return nil, fmt.Errorf("value of %v: %w", k, err)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot assign %T to %T", v, map[K]V(nil))
	}
}

func (a dict[E, K, V]) store(o, typed any) {
	m, _ := typed.(map[K]V)
	*a.fn(ownerOf[E](o)) = m
}
