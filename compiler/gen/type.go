package gen

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/cassava/compiler/load"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

type (
	// Graph holds the types of a schema and the generation config.
	Graph struct {
		*Config
		// Package is the resolved name of the generated package.
		Package string
		Nodes   []*Type
	}

	// Type is a mapped struct type.
	Type struct {
		Name        string
		Kind        mapping.Kind
		Table       cql.Identifier // Table or user type name; zero for other kinds.
		ForceQuote  bool
		Fields      []*Field
		Constructor []*Field
	}

	// Field is a property of a Type.
	Field struct {
		Name        string // Mapping property name.
		StructField string // Exported Go field name.
		GoType      string
		Column      cql.Identifier // Zero for primary key class properties.
		ForceQuote  bool
		// Type is the CQL type of the column. DeclaredType reports whether
		// it differs from the type the mapping infers from the Go type.
		Type         cql.DataType
		DeclaredType bool
		Shape        mapping.Shape
		Nested       *Type
		Nillable     bool
		ID           bool
		Role         mapping.Role
		Ordinal      *int
		Descending   bool
		Immutable    bool
		Version      bool
	}
)

// NewGraph validates the spec and builds the generation graph.
func NewGraph(c *Config, spec *load.Spec) (*Graph, error) {
	if c == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	if err := spec.Validate(); err != nil {
		return nil, NewSchemaError("", "", "invalid spec", err)
	}
	pkg, err := c.packageName(spec.Package)
	if err != nil {
		return nil, err
	}
	g := &Graph{Config: c, Package: pkg}
	byName := make(map[string]*Type, len(spec.Entities))
	for _, d := range spec.Entities {
		kind, err := mapping.ParseKind(d.Kind)
		if err != nil {
			return nil, NewSchemaError(d.Name, "", "", err)
		}
		t := &Type{Name: d.Name, Kind: kind, ForceQuote: d.ForceQuote}
		if !exported(d.Name) {
			return nil, NewSchemaError(d.Name, "", "name must be an exported Go identifier", nil)
		}
		if d.Table != "" && (kind == mapping.KindTable || kind == mapping.KindUserType) {
			if t.Table, err = cql.NewIdentifier(d.Table, d.ForceQuote); err != nil {
				return nil, NewSchemaError(d.Name, "", "", err)
			}
		}
		byName[d.Name] = t
		g.Nodes = append(g.Nodes, t)
	}
	for i, d := range spec.Entities {
		t := g.Nodes[i]
		for _, pd := range d.Properties {
			f, err := newField(byName, pd)
			if err != nil {
				return nil, NewSchemaError(t.Name, pd.Name, "", err)
			}
			t.Fields = append(t.Fields, f)
		}
		for _, name := range d.Constructor {
			f, _ := t.Field(name)
			t.Constructor = append(t.Constructor, f)
		}
	}
	if err := g.checkFieldNames(); err != nil {
		return nil, err
	}
	return g, nil
}

func newField(types map[string]*Type, pd *mapping.PropertyDescriptor) (*Field, error) {
	f := &Field{
		Name:        pd.Name,
		StructField: pascal(pd.Name),
		GoType:      pd.GoType,
		ForceQuote:  pd.ForceQuote,
		Nillable:    pd.Nillable,
		ID:          pd.ID,
		Ordinal:     pd.Ordinal,
		Descending:  pd.Descending,
		Immutable:   pd.Immutable,
		Version:     pd.Version,
	}
	switch pd.Shape {
	case mapping.ShapeList.String():
		f.Shape = mapping.ShapeList
	case mapping.ShapeSet.String():
		f.Shape = mapping.ShapeSet
	case mapping.ShapeMap.String():
		f.Shape = mapping.ShapeMap
	}
	switch pd.Role {
	case mapping.RolePartition.String():
		f.Role = mapping.RolePartition
	case mapping.RoleClustering.String():
		f.Role = mapping.RoleClustering
	}
	if pd.Column != "" {
		col, err := cql.NewIdentifier(pd.Column, pd.ForceQuote)
		if err != nil {
			return nil, err
		}
		f.Column = col
	}
	if pd.Nested != "" {
		f.Nested = types[pd.Nested]
		return f, nil
	}
	typ, err := cql.ParseDataType(pd.Type)
	if err != nil {
		return nil, err
	}
	f.Type = typ
	inferred, err := load.InferType(pd)
	f.DeclaredType = err != nil || !inferred.Equal(typ)
	return f, nil
}

// checkFieldNames rejects properties whose exported names collide.
func (g *Graph) checkFieldNames() error {
	for _, t := range g.Nodes {
		seen := make(map[string]string, len(t.Fields))
		for _, f := range t.Fields {
			if other, ok := seen[f.StructField]; ok {
				return NewSchemaError(t.Name, f.Name, "struct field "+f.StructField+" is also used by "+other, nil)
			}
			seen[f.StructField] = f.Name
		}
	}
	return nil
}

// Tables returns the table types.
func (g *Graph) Tables() []*Type {
	var ts []*Type
	for _, t := range g.Nodes {
		if t.Kind == mapping.KindTable {
			ts = append(ts, t)
		}
	}
	return ts
}

// UserTypes returns the user types, each after the user types it uses.
func (g *Graph) UserTypes() []*Type {
	var (
		ts    []*Type
		seen  = make(map[*Type]bool)
		visit func(*Type)
	)
	visit = func(t *Type) {
		if seen[t] {
			return
		}
		seen[t] = true
		for _, f := range t.Fields {
			if f.Nested != nil {
				visit(f.Nested)
			}
		}
		if t.Kind == mapping.KindUserType {
			ts = append(ts, t)
		}
	}
	for _, t := range g.Nodes {
		visit(t)
	}
	return ts
}

// Field returns the field named name.
func (t *Type) Field(name string) (*Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Receiver returns the receiver name used in generated accessors.
func (t *Type) Receiver() string {
	return strings.ToLower(t.Name[:1])
}

// IsTable reports whether t is a table.
func (t *Type) IsTable() bool { return t.Kind == mapping.KindTable }

// KeyColumn is a primary key column, possibly declared on a primary key
// class.
type KeyColumn struct {
	*Field
	// Via is the primary key property of the table for class-declared keys.
	Via *Field
}

// KeyColumns returns the partition key columns followed by the clustering
// columns, each ordered by ordinal. Columns without an ordinal come first
// in declaration order.
func (t *Type) KeyColumns() []KeyColumn {
	var keys []KeyColumn
	for _, f := range t.Fields {
		switch {
		case f.Nested != nil && f.Nested.Kind == mapping.KindPrimaryKeyClass:
			for _, nf := range f.Nested.Fields {
				if nf.Role != mapping.RoleNone {
					keys = append(keys, KeyColumn{Field: nf, Via: f})
				}
			}
		case f.Role != mapping.RoleNone:
			keys = append(keys, KeyColumn{Field: f})
		case f.ID:
			id := *f
			id.Role = mapping.RolePartition
			keys = append(keys, KeyColumn{Field: &id})
		}
	}
	slices.SortStableFunc(keys, func(a, b KeyColumn) int {
		if c := cmp.Compare(a.Role, b.Role); c != 0 {
			return c
		}
		return compareOrdinal(a.Ordinal, b.Ordinal)
	})
	return keys
}

func compareOrdinal(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}

// ColumnType returns the CQL type of the field's column. User type values
// are frozen.
func (f *Field) ColumnType() cql.DataType {
	if f.Nested == nil {
		return f.Type
	}
	var elem cql.DataType
	switch f.Nested.Kind {
	case mapping.KindUserType:
		elem = cql.Frozen(cql.UDT(f.Nested.Table))
	case mapping.KindTuple:
		types := make([]cql.DataType, len(f.Nested.Fields))
		for i, nf := range f.Nested.Fields {
			types[i] = nf.ColumnType()
		}
		elem = cql.TupleOf(types...)
	}
	switch f.Shape {
	case mapping.ShapeList:
		return cql.ListOf(elem)
	case mapping.ShapeSet:
		return cql.SetOf(elem)
	default:
		return elem
	}
}

// IsKeyClass reports whether the field holds the table's primary key class.
func (f *Field) IsKeyClass() bool {
	return f.Nested != nil && f.Nested.Kind == mapping.KindPrimaryKeyClass
}

var (
	// acronyms are spelled in upper case in exported names.
	acronyms = map[string]bool{
		"API": true, "CQL": true, "HTML": true, "HTTP": true, "ID": true, "IP": true,
		"JSON": true, "SQL": true, "TTL": true, "URL": true, "UUID": true, "XML": true,
	}
	titler = cases.Title(language.English, cases.NoLower)
)

// pascal converts a property name such as "created_at" or "userId" to an
// exported Go name.
func pascal(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		if u := strings.ToUpper(w); acronyms[u] {
			b.WriteString(u)
			continue
		}
		b.WriteString(titler.String(w))
	}
	return b.String()
}

// words splits a name at underscores, hyphens and lower-to-upper case
// transitions.
func words(s string) []string {
	var (
		ws    []string
		start int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '_' || c == '-':
			if i > start {
				ws = append(ws, s[start:i])
			}
			start = i + 1
		case c >= 'A' && c <= 'Z' && i > start && s[i-1] >= 'a' && s[i-1] <= 'z':
			ws = append(ws, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		ws = append(ws, s[start:])
	}
	return ws
}

func exported(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z' && !strings.ContainsFunc(name, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}
