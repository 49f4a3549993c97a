package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	g := testGraph(t)
	sts := g.Statements()
	require.Len(t, sts, 4)
	assert.Equal(t, "CREATE TYPE address (city text, location tuple<double, double>)", sts[0].CQL())
	assert.Equal(t, "CREATE TABLE person (id text, lastname text, age int, nicknames set<text>, address frozen<address>, created_at timestamp, PRIMARY KEY ((id)))", sts[1].CQL())
	assert.Equal(t, "CREATE TABLE posts (author text, created_at timestamp, title text, scores map<text, int>, PRIMARY KEY ((author), created_at)) WITH CLUSTERING ORDER BY (created_at DESC)", sts[2].CQL())
	assert.Equal(t, "CREATE TABLE accounts (id uuid, name text, balance decimal, note ascii, version bigint, PRIMARY KEY ((id)))", sts[3].CQL())
}

func TestStatementsKeyspace(t *testing.T) {
	g := testGraph(t, WithKeyspace("shop"), WithIfNotExists(true))
	sts := g.Statements()
	require.Len(t, sts, 4)
	assert.Equal(t, "CREATE TYPE IF NOT EXISTS shop.address (city text, location tuple<double, double>)", sts[0].CQL())
	assert.Contains(t, sts[3].CQL(), "CREATE TABLE IF NOT EXISTS shop.accounts (")
}

func TestDDL(t *testing.T) {
	g := testGraph(t)
	ddl := g.DDL()
	assert.Contains(t, ddl, "CREATE TYPE address (city text, location tuple<double, double>);\nCREATE TABLE person (")
	assert.Regexp(t, `;\n$`, ddl)
}
