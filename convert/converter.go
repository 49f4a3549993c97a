package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

// DefaultUserTypeCacheSize is the number of user type schemas cached by a
// Converter unless configured otherwise.
const DefaultUserTypeCacheSize = 128

// UserTypeResolver returns the schema of a user type. *cql.Session resolves
// user types from the cluster metadata.
type UserTypeResolver interface {
	ResolveUserType(ctx context.Context, name cql.Identifier) (*cql.UserType, error)
}

// UserTypeResolverFunc adapts a function to UserTypeResolver.
type UserTypeResolverFunc func(ctx context.Context, name cql.Identifier) (*cql.UserType, error)

// ResolveUserType calls f(ctx, name).
func (f UserTypeResolverFunc) ResolveUserType(ctx context.Context, name cql.Identifier) (*cql.UserType, error) {
	return f(ctx, name)
}

// Conversion is a custom conversion applied before the built-in ones.
// Conversions are created with Writing and Reading.
type Conversion struct {
	name  string
	write func(v any) (any, bool, error)
	read  func(src, dst any) (bool, error)
}

// String returns the conversion name, e.g. "Status -> string".
func (c Conversion) String() string { return c.name }

// Writing returns a conversion applied to values of type S written to the
// database.
//
//	convert.Writing(func(s Status) (string, error) { return string(s), nil })
func Writing[S, T any](fn func(S) (T, error)) Conversion {
	return Conversion{
		name: fmt.Sprintf("%T -> %T", *new(S), *new(T)),
		write: func(v any) (any, bool, error) {
			s, ok := v.(S)
			if !ok {
				return nil, false, nil
			}
			t, err := fn(s)
			return t, true, err
		},
	}
}

// Reading returns a conversion applied to database values of type S read
// into properties of type T.
func Reading[S, T any](fn func(S) (T, error)) Conversion {
	return Conversion{
		name: fmt.Sprintf("%T <- %T", *new(T), *new(S)),
		read: func(src, dst any) (bool, error) {
			s, ok := src.(S)
			if !ok {
				return false, nil
			}
			d, ok := dst.(*T)
			if !ok {
				return false, nil
			}
			t, err := fn(s)
			if err != nil {
				return true, err
			}
			*d = t
			return true, nil
		},
	}
}

// Converter converts between mapped Go values and the values bound to
// statements or read from rows. A Converter is safe for concurrent use.
type Converter struct {
	mc          *mapping.Context
	conversions []Conversion
	resolver    UserTypeResolver
	cacheSize   int
	types       *lru.Cache[string, *cql.UserType]
	log         *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithConversions appends custom conversions. Conversions are consulted in
// the order they were added.
func WithConversions(cs ...Conversion) Option {
	return func(c *Converter) {
		c.conversions = append(c.conversions, cs...)
	}
}

// WithUserTypeResolver sets the resolver consulted for user type schemas.
// Without a resolver, schemas are derived from the mapped entities.
func WithUserTypeResolver(r UserTypeResolver) Option {
	return func(c *Converter) {
		c.resolver = r
	}
}

// WithUserTypeCacheSize bounds the number of cached user type schemas.
func WithUserTypeCacheSize(n int) Option {
	return func(c *Converter) {
		c.cacheSize = n
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a converter for the entities of mc.
func New(mc *mapping.Context, opts ...Option) (*Converter, error) {
	c := &Converter{
		mc:        mc,
		cacheSize: DefaultUserTypeCacheSize,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheSize <= 0 {
		return nil, cassava.NewValidationError("UserTypeCacheSize", fmt.Errorf("must be positive, got %d", c.cacheSize))
	}
	for _, cv := range c.conversions {
		if cv.read == nil && cv.write == nil {
			return nil, cassava.NewValidationError("Conversions", errors.New("conversion must be created with Writing or Reading"))
		}
	}
	types, err := lru.New[string, *cql.UserType](c.cacheSize)
	if err != nil {
		return nil, err
	}
	c.types = types
	return c, nil
}

// MappingContext returns the mapping context of the converter.
func (c *Converter) MappingContext() *mapping.Context { return c.mc }

// Invalidate drops the cached schema of the named user type, e.g. after an
// ALTER TYPE.
func (c *Converter) Invalidate(name cql.Identifier) {
	c.types.Remove(name.String())
}

// userType returns the schema of a user type entity, resolving and caching
// it on first use.
func (c *Converter) userType(ctx context.Context, e *mapping.Entity) (*cql.UserType, error) {
	key := e.Table().String()
	if ut, ok := c.types.Get(key); ok {
		return ut, nil
	}
	var (
		ut  *cql.UserType
		err error
	)
	if c.resolver != nil {
		ut, err = c.resolver.ResolveUserType(ctx, e.Table())
	} else {
		ut, err = e.UserType()
	}
	if err != nil {
		return nil, cassava.NewMappingError(e.Name(), "", "resolve user type "+key, err)
	}
	c.types.Add(key, ut)
	c.log.Debug("convert: user type resolved", "type", key, "fields", len(ut.Fields))
	return ut, nil
}

var _ mapping.Decoder = (*Converter)(nil)
