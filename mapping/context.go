package mapping

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/cassava"
)

var (
	// ErrContextClosed is returned by a Context after Close.
	ErrContextClosed = errors.New("mapping: context closed")
	// ErrNotMapped is returned for Go types that were not registered.
	ErrNotMapped = errors.New("mapping: type is not mapped")
)

// Context is the registry of mapped types. Entities are built from their
// declarations on first use and cached for the lifetime of the context.
// A Context is safe for concurrent use.
type Context struct {
	naming NamingStrategy
	log    *slog.Logger

	mu       sync.RWMutex
	decls    map[any]*decl
	order    []*decl
	entities map[any]*Entity
	closed   bool
	group    singleflight.Group
}

// Option configures a Context.
type Option func(*Context)

// WithNamingStrategy sets the strategy deriving names that are not declared
// explicitly. The default is LowerCase.
func WithNamingStrategy(ns NamingStrategy) Option {
	return func(c *Context) {
		if ns != nil {
			c.naming = ns
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// NewContext returns an empty mapping context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		naming:   LowerCase,
		log:      slog.Default(),
		decls:    make(map[any]*decl),
		entities: make(map[any]*Entity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds declarations to the context. Declarations are validated
// when their entity is first resolved.
func (c *Context) Register(decls ...Declaration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	for _, dd := range decls {
		d := dd.decl()
		if _, ok := c.decls[d.key]; ok {
			return cassava.NewMappingError(d.goName, "", "registered twice", nil)
		}
		c.decls[d.key] = d
		c.order = append(c.order, d)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Context) MustRegister(decls ...Declaration) *Context {
	if err := c.Register(decls...); err != nil {
		panic(err)
	}
	return c
}

// EntityOf returns the entity of the Go type T.
func EntityOf[T any](c *Context) (*Entity, error) {
	e, err := c.resolve(key[T]{})
	if errors.Is(err, ErrNotMapped) {
		return nil, fmt.Errorf("%w: %s", ErrNotMapped, typeName[T]())
	}
	return e, err
}

// EntityByName returns the entity with the given Go type name or table name.
func (c *Context) EntityByName(name string) (*Entity, error) {
	c.mu.RLock()
	var found *decl
	for _, d := range c.order {
		if strings.EqualFold(d.goName, name) || strings.EqualFold(d.name, name) {
			found = d
			break
		}
	}
	c.mu.RUnlock()
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotMapped, name)
	}
	return c.resolve(found.key)
}

// EntityFor returns the entity of the type of v, a value or a pointer.
func (c *Context) EntityFor(v any) (*Entity, error) {
	c.mu.RLock()
	var found *decl
	for _, d := range c.order {
		if _, ok := d.ptrFn(v); ok {
			found = d
			break
		}
	}
	c.mu.RUnlock()
	if found == nil {
		return nil, fmt.Errorf("%w: %T", ErrNotMapped, v)
	}
	return c.resolve(found.key)
}

// Entities resolves and returns all registered entities in registration
// order.
func (c *Context) Entities() ([]*Entity, error) {
	c.mu.RLock()
	order := append([]*decl(nil), c.order...)
	c.mu.RUnlock()
	entities := make([]*Entity, 0, len(order))
	for _, d := range order {
		e, err := c.resolve(d.key)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Close releases the cached entities. Resolving entities afterwards fails
// with ErrContextClosed.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entities = nil
	return nil
}

func (c *Context) lookup(k any) (*decl, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.decls[k]
	return d, ok
}

// resolve returns the cached entity for k, building it once. Concurrent
// callers share a single build.
func (c *Context) resolve(k any) (*Entity, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrContextClosed
	}
	e, ok := c.entities[k]
	d, registered := c.decls[k]
	c.mu.RUnlock()
	switch {
	case ok:
		return e, nil
	case !registered:
		return nil, ErrNotMapped
	}
	v, err, _ := c.group.Do(d.id, func() (any, error) {
		e, err := c.build(d)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return nil, ErrContextClosed
		}
		if cached, ok := c.entities[k]; ok {
			return cached, nil
		}
		c.entities[k] = e
		c.log.Debug("mapping: entity resolved", "entity", e.name, "kind", e.kind.String(), "name", e.table.String())
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entity), nil
}
