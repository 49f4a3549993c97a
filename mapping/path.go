package mapping

import (
	"strings"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
)

// PropertyPath is a property reference resolved against an entity. Paths
// longer than one element lead through a primary key class.
type PropertyPath []*Property

// Property returns the last property of the path.
func (p PropertyPath) Property() *Property { return p[len(p)-1] }

// Column returns the column of the last property.
func (p PropertyPath) Column() cql.Identifier { return p.Property().column }

// Name returns the dotted path.
func (p PropertyPath) Name() string { return KeyColumn{Path: p}.Name() }

// Resolve resolves a property reference. The path is either a property name,
// a dotted path through a primary key class ("key.lastname"), or the name of
// a key class property used without its prefix ("lastname"). Column names are
// accepted as a last resort. Unknown references fail with a
// *cassava.PropertyReferenceError.
func (e *Entity) Resolve(path string) (PropertyPath, error) {
	if path == "" {
		return nil, cassava.NewPropertyReferenceError(e.name, path)
	}
	if p, ok := e.resolveDotted(path); ok {
		return p, nil
	}
	if !strings.Contains(path, ".") {
		for _, k := range e.keys {
			if len(k.Path) > 1 && strings.EqualFold(k.Property().name, path) {
				return PropertyPath(k.Path), nil
			}
		}
		if p, ok := e.PropertyByColumn(path); ok {
			return PropertyPath{p}, nil
		}
		for _, k := range e.keys {
			if len(k.Path) > 1 && k.Column().Name() == path {
				return PropertyPath(k.Path), nil
			}
		}
	}
	return nil, cassava.NewPropertyReferenceError(e.name, path)
}

func (e *Entity) resolveDotted(path string) (PropertyPath, bool) {
	var (
		out PropertyPath
		cur = e
	)
	for seg := range strings.SplitSeq(path, ".") {
		if cur == nil {
			return nil, false
		}
		p, ok := cur.Property(seg)
		if !ok {
			return nil, false
		}
		out = append(out, p)
		cur = nil
		if p.composite {
			n, err := e.mc.resolve(p.nestedKey)
			if err != nil {
				return nil, false
			}
			cur = n
		}
	}
	return out, true
}
