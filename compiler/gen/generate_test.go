package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, f *jen.File) string {
	t.Helper()
	b, err := renderFile(f)
	require.NoError(t, err)
	return string(b)
}

func TestTypeFile(t *testing.T) {
	g := testGraph(t)

	f, err := g.typeFile(g.Nodes[0])
	require.NoError(t, err)
	src := render(t, f)
	assert.Contains(t, src, "// Code generated by cassava. DO NOT EDIT.")
	assert.Contains(t, src, "package model")
	assert.Contains(t, src, "// Person is mapped to the person table.")
	assert.Regexp(t, `ID\s+string`, src)
	assert.Regexp(t, `Nicknames\s+\[\]string`, src)
	assert.Regexp(t, `Address\s+Address`, src)
	assert.Regexp(t, `CreatedAt\s+time\.Time`, src)
	assert.Contains(t, src, "func PersonDeclaration() *mapping.Decl[Person]")
	assert.Contains(t, src, `mapping.Table[Person]("person").Fields(`)
	assert.Contains(t, src, `mapping.Field("id", func(p *Person) *string {`)
	assert.Contains(t, src, "return &p.ID")
	assert.Contains(t, src, "}).ID(),")
	assert.Contains(t, src, `mapping.Set("nicknames", func(p *Person) *[]string {`)
	assert.Contains(t, src, `mapping.Embedded("address", func(p *Person) *Address {`)
	assert.Contains(t, src, `}).Column("created_at").Immutable(),`)
	assert.Contains(t, src, "func NewPersonRepository(t *operations.Template, opts ...repository.Option) (*repository.Repository[Person], error)")
	assert.Contains(t, src, "return repository.New[Person](t, opts...)")

	f, err = g.typeFile(g.Nodes[1])
	require.NoError(t, err)
	src = render(t, f)
	assert.Contains(t, src, `mapping.UserType[Address]("address")`)
	assert.Regexp(t, `City\s+\*string`, src)
	assert.Contains(t, src, `mapping.Nillable("city", func(a *Address) **string {`)
	assert.NotContains(t, src, "Repository")

	f, err = g.typeFile(g.Nodes[2])
	require.NoError(t, err)
	assert.Contains(t, render(t, f), "mapping.Tuple[Point]()")

	f, err = g.typeFile(g.Nodes[3])
	require.NoError(t, err)
	src = render(t, f)
	assert.Contains(t, src, `mapping.PrimaryKey("key", func(p *Post) *PostKey {`)
	assert.Contains(t, src, `mapping.Map("scores", func(p *Post) *map[string]int32 {`)

	f, err = g.typeFile(g.Nodes[4])
	require.NoError(t, err)
	src = render(t, f)
	assert.Contains(t, src, "mapping.PrimaryKeyClass[PostKey]()")
	assert.Contains(t, src, "}).PartitionKey(),")
	assert.Contains(t, src, `}).Column("created_at").ClusteringKey().Ordinal(0).Descending(),`)

	f, err = g.typeFile(g.Nodes[5])
	require.NoError(t, err)
	src = render(t, f)
	assert.Contains(t, src, `"github.com/google/uuid"`)
	assert.Contains(t, src, `"github.com/shopspring/decimal"`)
	assert.Regexp(t, `Balance\s+decimal\.Decimal`, src)
	assert.Contains(t, src, `}).Type(cql.MustParseDataType("ascii")),`)
	assert.Contains(t, src, `mapping.Version("version", func(a *Account) *int64 {`)
	assert.Contains(t, src, "Constructor(func(a mapping.Args) (*Account, error) {")
	assert.Regexp(t, `ID:\s+mapping\.Arg\[uuid\.UUID\]\(a, "id"\),`, src)
	assert.Contains(t, src, `}, "id", "name")`)
}

func TestRegisterFile(t *testing.T) {
	g := testGraph(t, WithHeader("// custom header"))
	src := render(t, g.registerFile())
	assert.Contains(t, src, "// custom header")
	assert.Contains(t, src, "func Declarations() []mapping.Declaration {")
	assert.Contains(t, src, "PersonDeclaration(),")
	assert.Contains(t, src, "AccountDeclaration(),")
	assert.Contains(t, src, "func Register(mc *mapping.Context) error {")
	assert.Contains(t, src, "return mc.Register(Declarations()...)")
}

func TestSchemaFile(t *testing.T) {
	g := testGraph(t)
	src := render(t, g.schemaFile())
	assert.Contains(t, src, `_ "embed"`)
	assert.Contains(t, src, "//go:embed schema.cql\nvar Schema string")
}

func TestGoType(t *testing.T) {
	tests := []struct{ in, want string }{
		{in: "string", want: "string"},
		{in: "*int32", want: "*int32"},
		{in: "[]time.Time", want: "[]time.Time"},
		{in: "map[string][]uuid.UUID", want: "map[string][]uuid.UUID"},
		{in: "civil.Date", want: "civil.Date"},
		{in: "*big.Int", want: "*big.Int"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			code, err := goType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fmt.Sprintf("%#v", jen.Add(code)))
		})
	}
	for _, in := range []string{"", "foo.Bar", "map[string"} {
		_, err := goType(in)
		assert.Error(t, err, in)
	}
}

func TestGenerate(t *testing.T) {
	g := testGraph(t, WithWorkers(2))
	w := NewWriter(g)
	require.NoError(t, w.Generate(context.Background()))

	for _, name := range []string{"person.go", "address.go", "point.go", "post.go", "post_key.go", "account.go", "cassava.go", "schema.go"} {
		assert.FileExists(t, filepath.Join(g.Target, name))
	}
	b, err := os.ReadFile(filepath.Join(g.Target, "schema.cql"))
	require.NoError(t, err)
	assert.Equal(t, g.DDL(), string(b))

	m := w.Metrics()
	assert.Equal(t, 9, m.FilesGenerated)
	assert.Positive(t, m.TotalBytes)
}

func TestGenerateErrors(t *testing.T) {
	g := testGraph(t)
	g.Target = ""
	require.True(t, IsConfigError(Generate(context.Background(), g)))

	g = testGraph(t)
	g.Nodes[0].Fields[1].GoType = "foo.Bar"
	err := Generate(context.Background(), g)
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	assert.True(t, IsSchemaError(err))
	assert.Contains(t, err.Error(), `unknown package "foo"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Generate(ctx, testGraph(t)), context.Canceled)
}
