package gen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/syssam/cassava/compiler/load"
	"github.com/syssam/cassava/mapping"
)

// Import paths referenced by generated code.
const (
	mappingPkg    = "github.com/syssam/cassava/mapping"
	cqlPkg        = "github.com/syssam/cassava/dialect/cql"
	operationsPkg = "github.com/syssam/cassava/operations"
	repositoryPkg = "github.com/syssam/cassava/repository"
)

// knownPackages resolves the package qualifiers allowed in go_type.
var knownPackages = map[string]string{
	"big":     "math/big",
	"civil":   "cloud.google.com/go/civil",
	"decimal": "github.com/shopspring/decimal",
	"gocql":   "github.com/gocql/gocql",
	"inf":     "gopkg.in/inf.v0",
	"net":     "net",
	"time":    "time",
	"uuid":    "github.com/google/uuid",
}

// newFile creates a new Jennifer file with the header comment.
func (g *Graph) newFile() *jen.File {
	f := jen.NewFile(g.Package)
	if g.Header != "" {
		f.HeaderComment(g.Header)
	}
	return f
}

// fileName returns the name of the Go file declaring t.
func fileName(t *Type) string {
	return inflect.Underscore(t.Name) + ".go"
}

// typeFile renders the struct and mapping declaration of t.
func (g *Graph) typeFile(t *Type) (*jen.File, error) {
	f := g.newFile()
	fields := make([]jen.Code, 0, len(t.Fields))
	for _, fd := range t.Fields {
		typ, err := fieldType(fd)
		if err != nil {
			return nil, NewSchemaError(t.Name, fd.Name, "", err)
		}
		fields = append(fields, jen.Id(fd.StructField).Add(typ))
	}
	f.Comment(typeComment(t))
	f.Type().Id(t.Name).Struct(fields...)

	decl, err := declaration(t)
	if err != nil {
		return nil, err
	}
	f.Commentf("%sDeclaration returns the mapping declaration of %s.", t.Name, t.Name)
	f.Func().Id(t.Name+"Declaration").Params().Op("*").Qual(mappingPkg, "Decl").Types(jen.Id(t.Name)).Block(
		jen.Return(decl),
	)
	if t.IsTable() {
		f.Commentf("New%sRepository returns a repository of %s values.", t.Name, t.Name)
		f.Func().Id("New"+t.Name+"Repository").
			Params(jen.Id("t").Op("*").Qual(operationsPkg, "Template"), jen.Id("opts").Op("...").Qual(repositoryPkg, "Option")).
			Params(jen.Op("*").Qual(repositoryPkg, "Repository").Types(jen.Id(t.Name)), jen.Error()).
			Block(jen.Return(jen.Qual(repositoryPkg, "New").Types(jen.Id(t.Name)).Call(jen.Id("t"), jen.Id("opts").Op("..."))))
	}
	return f, nil
}

func typeComment(t *Type) string {
	switch t.Kind {
	case mapping.KindTable:
		return fmt.Sprintf("%s is mapped to the %s table.", t.Name, t.Table.Name())
	case mapping.KindUserType:
		return fmt.Sprintf("%s is mapped to the %s user type.", t.Name, t.Table.Name())
	case mapping.KindTuple:
		return fmt.Sprintf("%s is mapped to a tuple.", t.Name)
	default:
		return fmt.Sprintf("%s is a primary key class.", t.Name)
	}
}

// declaration renders the mapping declaration expression of t.
func declaration(t *Type) (*jen.Statement, error) {
	var d *jen.Statement
	switch t.Kind {
	case mapping.KindTable:
		d = jen.Qual(mappingPkg, "Table").Types(jen.Id(t.Name)).Call(jen.Lit(t.Table.Name()))
	case mapping.KindUserType:
		d = jen.Qual(mappingPkg, "UserType").Types(jen.Id(t.Name)).Call(jen.Lit(t.Table.Name()))
	case mapping.KindTuple:
		d = jen.Qual(mappingPkg, "Tuple").Types(jen.Id(t.Name)).Call()
	default:
		d = jen.Qual(mappingPkg, "PrimaryKeyClass").Types(jen.Id(t.Name)).Call()
	}
	if t.ForceQuote {
		d.Dot("ForceQuote").Call()
	}
	props := make([]jen.Code, 0, len(t.Fields))
	for _, f := range t.Fields {
		p, err := property(t, f)
		if err != nil {
			return nil, NewSchemaError(t.Name, f.Name, "", err)
		}
		props = append(props, p)
	}
	d.Dot("Fields").Custom(jen.Options{Open: "(", Close: ")", Separator: ",", Multi: true}, props...)
	if len(t.Constructor) > 0 {
		ctor, err := constructor(t)
		if err != nil {
			return nil, err
		}
		d.Dot("Constructor").Call(ctor...)
	}
	return d, nil
}

// property renders the property declaration of f.
func property(t *Type, f *Field) (*jen.Statement, error) {
	typ, err := fieldType(f)
	if err != nil {
		return nil, err
	}
	ref := jen.Func().Params(jen.Id(t.Receiver()).Op("*").Id(t.Name)).Op("*").Add(typ).Block(
		jen.Return(jen.Op("&").Id(t.Receiver()).Dot(f.StructField)),
	)
	var fn string
	switch {
	case f.IsKeyClass():
		fn = "PrimaryKey"
	case f.Version:
		fn = "Version"
	case f.Shape == mapping.ShapeList:
		fn = "List"
	case f.Shape == mapping.ShapeSet:
		fn = "Set"
	case f.Shape == mapping.ShapeMap:
		fn = "Map"
	case f.Nested != nil && f.Nillable:
		fn = "NillableEmbedded"
	case f.Nested != nil:
		fn = "Embedded"
	case f.Nillable:
		fn = "Nillable"
	default:
		fn = "Field"
	}
	p := jen.Qual(mappingPkg, fn).Call(jen.Lit(f.Name), ref)
	if f.Column.Name() != "" && f.Column.Name() != strings.ToLower(f.Name) {
		p.Dot("Column").Call(jen.Lit(f.Column.Name()))
	}
	if f.ForceQuote {
		p.Dot("ForceQuote").Call()
	}
	if f.DeclaredType && !f.Version {
		p.Dot("Type").Call(jen.Qual(cqlPkg, "MustParseDataType").Call(jen.Lit(f.Type.String())))
	}
	if f.ID && !f.IsKeyClass() {
		p.Dot("ID").Call()
	}
	switch f.Role {
	case mapping.RolePartition:
		p.Dot("PartitionKey").Call()
	case mapping.RoleClustering:
		p.Dot("ClusteringKey").Call()
	}
	if f.Ordinal != nil {
		p.Dot("Ordinal").Call(jen.Lit(*f.Ordinal))
	}
	if f.Descending {
		p.Dot("Descending").Call()
	}
	if f.Immutable {
		p.Dot("Immutable").Call()
	}
	return p, nil
}

// constructor renders the arguments of Decl.Constructor: a function that
// builds the value from its constructor properties, then their names.
func constructor(t *Type) ([]jen.Code, error) {
	values := jen.Dict{}
	names := make([]jen.Code, 0, len(t.Constructor))
	for _, f := range t.Constructor {
		typ, err := fieldType(f)
		if err != nil {
			return nil, NewSchemaError(t.Name, f.Name, "", err)
		}
		values[jen.Id(f.StructField)] = jen.Qual(mappingPkg, "Arg").Types(typ).Call(jen.Id("a"), jen.Lit(f.Name))
		names = append(names, jen.Lit(f.Name))
	}
	fn := jen.Func().Params(jen.Id("a").Qual(mappingPkg, "Args")).Params(jen.Op("*").Id(t.Name), jen.Error()).Block(
		jen.Return(jen.Op("&").Id(t.Name).Values(values), jen.Nil()),
	)
	return append([]jen.Code{fn}, names...), nil
}

// fieldType returns the Go type of the struct field holding f.
func fieldType(f *Field) (jen.Code, error) {
	if f.Nested != nil {
		elem := jen.Id(f.Nested.Name)
		switch {
		case f.Shape == mapping.ShapeList || f.Shape == mapping.ShapeSet:
			return jen.Index().Add(elem), nil
		case f.Nillable:
			return jen.Op("*").Add(elem), nil
		default:
			return elem, nil
		}
	}
	if f.Nillable {
		return goType("*" + f.GoType)
	}
	return goType(f.GoType)
}

// goType converts a Go type expression such as map[string][]uuid.UUID to
// code, qualifying the packages it references.
func goType(s string) (jen.Code, error) {
	switch {
	case s == "":
		return nil, errors.New("empty Go type")
	case strings.HasPrefix(s, "*"):
		elem, err := goType(s[1:])
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(elem), nil
	case strings.HasPrefix(s, "[]"):
		elem, err := goType(s[2:])
		if err != nil {
			return nil, err
		}
		return jen.Index().Add(elem), nil
	case strings.HasPrefix(s, "map["):
		k, v, ok := load.SplitMap(s)
		if !ok {
			return nil, fmt.Errorf("malformed map type %s", s)
		}
		kc, err := goType(k)
		if err != nil {
			return nil, err
		}
		vc, err := goType(v)
		if err != nil {
			return nil, err
		}
		return jen.Map(kc).Add(vc), nil
	}
	if pkg, name, ok := strings.Cut(s, "."); ok {
		path, ok := knownPackages[pkg]
		if !ok {
			return nil, fmt.Errorf("unknown package %q in %s", pkg, s)
		}
		return jen.Qual(path, name), nil
	}
	return jen.Id(s), nil
}

// registerFile renders the functions registering all types.
func (g *Graph) registerFile() *jen.File {
	f := g.newFile()
	decls := make([]jen.Code, len(g.Nodes))
	for i, t := range g.Nodes {
		decls[i] = jen.Id(t.Name + "Declaration").Call()
	}
	f.Comment("Declarations returns the mapping declarations of the package's types.")
	f.Func().Id("Declarations").Params().Index().Qual(mappingPkg, "Declaration").Block(
		jen.Return(jen.Index().Qual(mappingPkg, "Declaration").Custom(jen.Options{Open: "{", Close: "}", Separator: ",", Multi: true}, decls...)),
	)
	f.Comment("Register registers the package's types with mc.")
	f.Func().Id("Register").Params(jen.Id("mc").Op("*").Qual(mappingPkg, "Context")).Error().Block(
		jen.Return(jen.Id("mc").Dot("Register").Call(jen.Id("Declarations").Call().Op("..."))),
	)
	return f
}

// schemaFile renders the Go file embedding schema.cql.
func (g *Graph) schemaFile() *jen.File {
	f := g.newFile()
	f.Anon("embed")
	f.Comment("Schema holds the CREATE statements of the package's types, separated by semicolons.")
	f.Comment("//go:embed " + schemaCQL)
	f.Var().Id("Schema").String()
	return f
}
