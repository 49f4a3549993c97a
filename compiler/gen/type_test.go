package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cassava/compiler/load"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

func TestNewGraph(t *testing.T) {
	g := testGraph(t)
	assert.Equal(t, "model", g.Package)
	require.Len(t, g.Nodes, 6)

	tables := g.Tables()
	require.Len(t, tables, 3)
	assert.Equal(t, []string{"Person", "Post", "Account"}, []string{tables[0].Name, tables[1].Name, tables[2].Name})

	types := g.UserTypes()
	require.Len(t, types, 1)
	assert.Equal(t, "address", types[0].Table.Name())

	person := g.Nodes[0]
	id, ok := person.Field("id")
	require.True(t, ok)
	assert.Equal(t, "ID", id.StructField)
	assert.True(t, id.ID)
	assert.False(t, id.DeclaredType)
	created, ok := person.Field("createdAt")
	require.True(t, ok)
	assert.Equal(t, "CreatedAt", created.StructField)
	assert.Equal(t, "created_at", created.Column.Name())
	address, ok := person.Field("address")
	require.True(t, ok)
	assert.Equal(t, mapping.KindUserType, address.Nested.Kind)
	assert.True(t, cql.Frozen(cql.UDT(cql.Ident("address"))).Equal(address.ColumnType()))

	account := g.Nodes[5]
	note, _ := account.Field("note")
	assert.True(t, note.DeclaredType)
	balance, _ := account.Field("balance")
	assert.False(t, balance.DeclaredType)
	require.Len(t, account.Constructor, 2)
	assert.Equal(t, "name", account.Constructor[1].Name)
}

func TestKeyColumns(t *testing.T) {
	g := testGraph(t)

	keys := g.Nodes[0].KeyColumns()
	require.Len(t, keys, 1)
	assert.Equal(t, "id", keys[0].Column.Name())
	assert.Equal(t, mapping.RolePartition, keys[0].Role)
	assert.Nil(t, keys[0].Via)

	keys = g.Nodes[3].KeyColumns()
	require.Len(t, keys, 2)
	assert.Equal(t, "author", keys[0].Column.Name())
	assert.Equal(t, "created_at", keys[1].Column.Name())
	assert.True(t, keys[1].Descending)
	assert.Equal(t, "key", keys[1].Via.Name)
}

func TestColumnType(t *testing.T) {
	g := testGraph(t)
	address := g.Nodes[1]
	location, ok := address.Field("location")
	require.True(t, ok)
	assert.Equal(t, "tuple<double, double>", location.ColumnType().String())

	post := g.Nodes[3]
	scores, _ := post.Field("scores")
	assert.Equal(t, "map<text, int>", scores.ColumnType().String())
}

func TestNewGraphErrors(t *testing.T) {
	_, err := NewGraph(nil, &load.Spec{})
	require.True(t, IsConfigError(err))

	c := MustNewConfig(WithTarget("model"))
	spec, err := load.Parse([]byte(`
entities:
  - name: A
    properties:
      - {name: id, go_type: string, id: true}
      - {name: user_id, go_type: string}
      - {name: userId, column: uid, go_type: string}
`))
	require.NoError(t, err)
	_, err = NewGraph(c, spec)
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
	assert.Contains(t, err.Error(), "struct field UserID")

	spec, err = load.Parse([]byte(`
entities:
  - name: lower
    properties:
      - {name: id, go_type: string, id: true}
`))
	require.NoError(t, err)
	_, err = NewGraph(c, spec)
	require.ErrorContains(t, err, "exported Go identifier")

	spec, err = load.Parse([]byte(`
entities:
  - name: A
    properties:
      - {name: id, go_type: string}
`))
	require.NoError(t, err)
	_, err = NewGraph(c, spec)
	require.ErrorIs(t, err, ErrInvalidSchema)
}

func TestPascal(t *testing.T) {
	tests := []struct{ in, want string }{
		{in: "id", want: "ID"},
		{in: "name", want: "Name"},
		{in: "created_at", want: "CreatedAt"},
		{in: "createdAt", want: "CreatedAt"},
		{in: "userId", want: "UserID"},
		{in: "ttl", want: "TTL"},
		{in: "url_path", want: "URLPath"},
		{in: "first-name", want: "FirstName"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, pascal(tt.in))
		})
	}
}
