package gen

import (
	"strings"

	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

const schemaCQL = "schema.cql"

// Statements returns the CREATE statements of the graph: user types, each
// after the types it uses, then tables.
func (g *Graph) Statements() []*cql.Statement {
	var sts []*cql.Statement
	for _, t := range g.UserTypes() {
		b := cql.CreateType(t.Table).Keyspace(g.Keyspace)
		if g.IfNotExists {
			b.IfNotExists()
		}
		for _, f := range t.Fields {
			b.Field(f.Column, f.ColumnType())
		}
		sts = append(sts, b.Build())
	}
	for _, t := range g.Tables() {
		b := cql.CreateTable(t.Table).Keyspace(g.Keyspace)
		if g.IfNotExists {
			b.IfNotExists()
		}
		for _, k := range t.KeyColumns() {
			if k.Role == mapping.RolePartition {
				b.PartitionKey(k.Column, k.ColumnType())
			} else {
				b.ClusteringColumn(k.Column, k.ColumnType(), k.Descending)
			}
		}
		for _, f := range t.Fields {
			if f.IsKeyClass() || f.ID || f.Role != mapping.RoleNone {
				continue
			}
			b.Column(f.Column, f.ColumnType())
		}
		sts = append(sts, b.Build())
	}
	return sts
}

// DDL renders the statements as a CQL script.
func (g *Graph) DDL() string {
	var sb strings.Builder
	for _, st := range g.Statements() {
		sb.WriteString(st.CQL())
		sb.WriteString(";\n")
	}
	return sb.String()
}
