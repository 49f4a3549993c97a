package mapping

import (
	"fmt"
)

// Declaration is a mapped type declaration accepted by Context.Register.
// Declarations are created with Table, UserType, Tuple and PrimaryKeyClass.
type Declaration interface {
	decl() *decl
}

type decl struct {
	key        any
	id         string
	goName     string
	name       string
	forceQuote bool
	userType   bool
	tuple      bool
	keyClass   bool
	props      []*Property
	ctor       *constructor

	newFn  func() any
	ptrFn  func(any) (any, bool)
	copyFn func(dst, src any)
}

// kind applies the classification precedence: tuple, user type, primary
// key class, table.
func (d *decl) kind() Kind {
	switch {
	case d.tuple:
		return KindTuple
	case d.userType:
		return KindUserType
	case d.keyClass:
		return KindPrimaryKeyClass
	default:
		return KindTable
	}
}

type constructor struct {
	params []string
	fn     func(Args) (any, error)
}

// Decl declares how values of the Go struct type T are mapped.
type Decl[T any] struct {
	d *decl
}

func newDecl[T any](name string) *Decl[T] {
	k := key[T]{}
	return &Decl[T]{d: &decl{
		key:    k,
		id:     fmt.Sprintf("%T", k),
		goName: typeName[T](),
		name:   name,
		newFn:  func() any { return new(T) },
		ptrFn: func(v any) (any, bool) {
			switch x := v.(type) {
			case *T:
				return x, x != nil
			case T:
				return &x, true
			}
			return nil, false
		},
		copyFn: func(dst, src any) { *dst.(*T) = *src.(*T) },
	}}
}

// Table declares T as a table entity. An empty name is derived from the Go
// type name by the naming strategy.
//
//	mapping.Table[Person]("person").Fields(
//	    mapping.Field("id", func(p *Person) *string { return &p.ID }).ID(),
//	    mapping.Field("lastname", func(p *Person) *string { return &p.Lastname }),
//	)
func Table[T any](name string) *Decl[T] {
	return newDecl[T](name)
}

// UserType declares T as a user-defined type.
func UserType[T any](name string) *Decl[T] {
	return newDecl[T](name).AsUserType(name)
}

// Tuple declares T as a tuple. Its properties are the tuple elements,
// ordered by ordinal.
func Tuple[T any]() *Decl[T] {
	return newDecl[T]("").AsTuple()
}

// PrimaryKeyClass declares T as a composite primary key. All of its
// properties are key columns.
func PrimaryKeyClass[T any]() *Decl[T] {
	d := newDecl[T]("")
	d.d.keyClass = true
	return d
}

// AsUserType marks the type as a user-defined type.
func (d *Decl[T]) AsUserType(name string) *Decl[T] {
	d.d.userType = true
	if name != "" {
		d.d.name = name
	}
	return d
}

// AsTuple marks the type as a tuple.
func (d *Decl[T]) AsTuple() *Decl[T] {
	d.d.tuple = true
	return d
}

// ForceQuote quotes the table or type name.
func (d *Decl[T]) ForceQuote() *Decl[T] {
	d.d.forceQuote = true
	return d
}

// Fields appends property declarations.
func (d *Decl[T]) Fields(props ...*Prop[T]) *Decl[T] {
	for _, p := range props {
		d.d.props = append(d.d.props, p.p)
	}
	return d
}

// Constructor sets the function used to instantiate T when reading. The
// named properties are read from the row and passed in Args; the remaining
// properties are set on the returned value afterwards.
//
//	Constructor(func(a mapping.Args) (*Person, error) {
//	    return NewPerson(mapping.Arg[string](a, "id")), nil
//	}, "id")
func (d *Decl[T]) Constructor(fn func(Args) (*T, error), params ...string) *Decl[T] {
	d.d.ctor = &constructor{
		params: params,
		fn: func(a Args) (any, error) {
			v, err := fn(a)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, fmt.Errorf("constructor returned nil")
			}
			return v, nil
		},
	}
	return d
}

func (d *Decl[T]) decl() *decl { return d.d }

// Args holds the constructor arguments by property name.
type Args struct {
	names  []string
	values []any
}

// NewArgs returns arguments for the given property names and values.
func NewArgs(names []string, values []any) Args {
	return Args{names: names, values: values}
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.names) }

// Value returns the argument for the named property.
func (a Args) Value(name string) (any, bool) {
	for i, n := range a.names {
		if n == name {
			return a.values[i], true
		}
	}
	return nil, false
}

// Arg returns the argument for the named property as V, or the zero value
// when it is absent or NULL.
func Arg[V any](a Args, name string) V {
	v, _ := a.Value(name)
	x, _ := v.(V)
	return x
}
