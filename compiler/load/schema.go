// Package load reads entity descriptors from YAML schema files.
package load

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"

	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

// Spec is the content of one or more schema files.
//
//	package: model
//	entities:
//	  - name: Person
//	    table: person
//	    properties:
//	      - {name: id, go_type: string, id: true}
//	      - {name: nicknames, go_type: "[]string", shape: set}
//	      - {name: address, nested: Address}
//	  - name: Address
//	    kind: user_type
//	    properties:
//	      - {name: city, go_type: "*string"}
//
// Entity names are Go type names. Property names are mapping property
// names; the generated struct fields are their exported forms. Go types are
// spelled as mapping.Property.GoType reports them, so a registered context
// round-trips through its descriptors. Nested properties name the nested
// entity instead of a Go type.
type Spec struct {
	Package  string                `yaml:"package,omitempty"`
	Entities []*mapping.Descriptor `yaml:"entities"`
}

// Entity returns the descriptor named name.
func (s *Spec) Entity(name string) (*mapping.Descriptor, bool) {
	for _, d := range s.Entities {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Load reads the schema files at paths. Directories contribute their .yaml
// and .yml files in name order. The specs are merged and validated.
func Load(paths ...string) (*Spec, error) {
	files, err := Files(paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("load: no schema files in %s", strings.Join(paths, ", "))
	}
	spec := &Spec{}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		s, err := Parse(b)
		if err != nil {
			return nil, fmt.Errorf("load: %s: %w", f, err)
		}
		if err := spec.merge(s); err != nil {
			return nil, fmt.Errorf("load: %s: %w", f, err)
		}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Files expands paths to the schema files they name.
func Files(paths ...string) ([]string, error) {
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		for _, e := range entries {
			if ext := filepath.Ext(e.Name()); !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	return files, nil
}

// Parse decodes a single schema document. Unknown keys are rejected.
func Parse(b []byte) (*Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	s := &Spec{}
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return s, nil
}

// Marshal encodes the spec as YAML.
func (s *Spec) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Spec) merge(o *Spec) error {
	switch {
	case o.Package == "":
	case s.Package == "":
		s.Package = o.Package
	case s.Package != o.Package:
		return fmt.Errorf("package %q conflicts with %q", o.Package, s.Package)
	}
	s.Entities = append(s.Entities, o.Entities...)
	return nil
}

// Validate checks the descriptors and fills in defaults: the kind, table
// and type names, columns and CQL types that can be inferred.
func (s *Spec) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(s.Entities))
	for _, d := range s.Entities {
		if d.Name == "" {
			errs = append(errs, errors.New("load: entity without name"))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Errorf("load: duplicate entity %q", d.Name))
			continue
		}
		seen[d.Name] = true
		if err := s.validateEntity(d); err != nil {
			errs = append(errs, fmt.Errorf("load: entity %q: %w", d.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Spec) validateEntity(d *mapping.Descriptor) error {
	if d.Kind == "" {
		d.Kind = mapping.KindTable.String()
	}
	kind, err := mapping.ParseKind(d.Kind)
	if err != nil {
		return err
	}
	if d.Table == "" && (kind == mapping.KindTable || kind == mapping.KindUserType) {
		d.Table = inflect.Underscore(d.Name)
	}
	if len(d.Properties) == 0 {
		return errors.New("no properties")
	}
	var (
		errs  []error
		names = make(map[string]bool)
		cols  = make(map[string]bool)
		keyed bool
	)
	for _, p := range d.Properties {
		if err := s.validateProperty(kind, p); err != nil {
			errs = append(errs, fmt.Errorf("property %q: %w", p.Name, err))
			continue
		}
		if names[p.Name] {
			errs = append(errs, fmt.Errorf("duplicate property %q", p.Name))
		}
		names[p.Name] = true
		if p.Column != "" {
			if cols[p.Column] {
				errs = append(errs, fmt.Errorf("duplicate column %q", p.Column))
			}
			cols[p.Column] = true
		}
		if p.ID || p.Role == mapping.RolePartition.String() || s.isKeyClass(p.Nested) {
			keyed = true
		}
	}
	for _, c := range d.Constructor {
		if !names[c] {
			errs = append(errs, fmt.Errorf("constructor parameter %q is not a property", c))
		}
	}
	if kind == mapping.KindTable && !keyed && len(errs) == 0 {
		errs = append(errs, errors.New("table has no primary key"))
	}
	return errors.Join(errs...)
}

func (s *Spec) isKeyClass(name string) bool {
	n, ok := s.Entity(name)
	return ok && n.Kind == mapping.KindPrimaryKeyClass.String()
}

func (s *Spec) validateProperty(kind mapping.Kind, p *mapping.PropertyDescriptor) error {
	if p.Name == "" {
		return errors.New("missing name")
	}
	switch p.Shape {
	case "":
		p.Shape = mapping.ShapeScalar.String()
	case mapping.ShapeScalar.String(), mapping.ShapeList.String(), mapping.ShapeSet.String(), mapping.ShapeMap.String():
	default:
		return fmt.Errorf("unknown shape %q", p.Shape)
	}
	switch p.Role {
	case "", mapping.RolePartition.String(), mapping.RoleClustering.String():
	default:
		return fmt.Errorf("unknown key role %q", p.Role)
	}
	if (p.ID || p.Role != "") && (kind == mapping.KindUserType || kind == mapping.KindTuple) {
		return fmt.Errorf("%s types cannot declare key columns", kind)
	}
	if p.ID && kind != mapping.KindTable {
		return errors.New("only tables declare an id")
	}
	if p.Column == "" && !s.isKeyClass(p.Nested) {
		p.Column = inflect.Underscore(p.Name)
	}
	if p.Nested != "" {
		n, ok := s.Entity(p.Nested)
		if !ok {
			return fmt.Errorf("unknown nested type %q", p.Nested)
		}
		if n.Kind == mapping.KindPrimaryKeyClass.String() && (kind != mapping.KindTable || p.Shape != mapping.ShapeScalar.String()) {
			return errors.New("primary key classes are only used as scalar table properties")
		}
		if p.Shape == mapping.ShapeMap.String() {
			return errors.New("maps of nested types are not supported")
		}
		return nil
	}
	if p.GoType == "" {
		return errors.New("missing go_type")
	}
	if t, ok := strings.CutPrefix(p.GoType, "*"); ok && p.Shape == mapping.ShapeScalar.String() {
		p.GoType, p.Nillable = t, true
	}
	if p.Version && (p.Shape != mapping.ShapeScalar.String() || !slices.Contains([]string{"int", "int32", "int64"}, p.GoType)) {
		return fmt.Errorf("version must be an int, int32 or int64, got %s", p.GoType)
	}
	switch p.Shape {
	case mapping.ShapeList.String(), mapping.ShapeSet.String():
		if !strings.HasPrefix(p.GoType, "[]") {
			return fmt.Errorf("%s go_type must be []T, got %s", p.Shape, p.GoType)
		}
	case mapping.ShapeMap.String():
		if _, _, ok := SplitMap(p.GoType); !ok {
			return fmt.Errorf("map go_type must be map[K]V, got %s", p.GoType)
		}
	}
	if p.Type != "" {
		if _, err := cql.ParseDataType(p.Type); err != nil {
			return err
		}
		return nil
	}
	t, err := InferType(p)
	if err != nil {
		return err
	}
	p.Type = t.String()
	return nil
}

// goTypes maps the Go types the generator understands to their CQL types.
var goTypes = map[string]cql.DataType{
	"string":          {Name: cql.TypeText},
	"int":             {Name: cql.TypeBigint},
	"int64":           {Name: cql.TypeBigint},
	"int32":           {Name: cql.TypeInt},
	"int16":           {Name: cql.TypeSmallint},
	"int8":            {Name: cql.TypeTinyint},
	"float64":         {Name: cql.TypeDouble},
	"float32":         {Name: cql.TypeFloat},
	"bool":            {Name: cql.TypeBoolean},
	"[]byte":          {Name: cql.TypeBlob},
	"time.Time":       {Name: cql.TypeTimestamp},
	"civil.Date":      {Name: cql.TypeDate},
	"civil.Time":      {Name: cql.TypeTime},
	"gocql.Duration":  {Name: cql.TypeDuration},
	"uuid.UUID":       {Name: cql.TypeUUID},
	"gocql.UUID":      {Name: cql.TypeUUID},
	"decimal.Decimal": {Name: cql.TypeDecimal},
	"big.Int":         {Name: cql.TypeVarint},
	"net.IP":          {Name: cql.TypeInet},
}

// InferType returns the CQL type of a non-nested property from its Go
// type and shape.
func InferType(p *mapping.PropertyDescriptor) (cql.DataType, error) {
	scalar := func(goType string) (cql.DataType, error) {
		t, ok := goTypes[goType]
		if !ok {
			return cql.DataType{}, fmt.Errorf("cannot infer the CQL type of %s, declare type", goType)
		}
		return t, nil
	}
	switch p.Shape {
	case mapping.ShapeList.String(), mapping.ShapeSet.String():
		elem, err := scalar(strings.TrimPrefix(p.GoType, "[]"))
		if err != nil {
			return cql.DataType{}, err
		}
		if p.Shape == mapping.ShapeList.String() {
			return cql.ListOf(elem), nil
		}
		return cql.SetOf(elem), nil
	case mapping.ShapeMap.String():
		k, v, _ := SplitMap(p.GoType)
		kt, err := scalar(k)
		if err != nil {
			return cql.DataType{}, err
		}
		vt, err := scalar(v)
		if err != nil {
			return cql.DataType{}, err
		}
		return cql.MapOf(kt, vt), nil
	default:
		return scalar(p.GoType)
	}
}

// SplitMap splits map[K]V into its key and value types.
func SplitMap(goType string) (key, value string, ok bool) {
	rest, ok := strings.CutPrefix(goType, "map[")
	if !ok {
		return "", "", false
	}
	depth := 1
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				key, value = rest[:i], rest[i+1:]
				return key, value, key != "" && value != ""
			}
		}
	}
	return "", "", false
}
