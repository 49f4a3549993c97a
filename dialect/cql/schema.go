package cql

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ColumnSpec is a column of a CREATE TABLE statement.
type ColumnSpec struct {
	Name       Identifier
	Type       DataType
	Descending bool // Clustering order; ignored for other columns.
}

// CreateTableBuilder builds CREATE TABLE statements.
type CreateTableBuilder struct {
	keyspace    string
	name        Identifier
	ifNotExists bool
	partition   []ColumnSpec
	clustering  []ColumnSpec
	columns     []ColumnSpec
}

// CreateTable returns a builder for CREATE TABLE name.
func CreateTable(name Identifier) *CreateTableBuilder {
	return &CreateTableBuilder{name: name}
}

// Keyspace qualifies the table with a keyspace.
func (c *CreateTableBuilder) Keyspace(ks string) *CreateTableBuilder {
	c.keyspace = ks
	return c
}

// IfNotExists adds IF NOT EXISTS.
func (c *CreateTableBuilder) IfNotExists() *CreateTableBuilder {
	c.ifNotExists = true
	return c
}

// PartitionKey appends a partition key column.
func (c *CreateTableBuilder) PartitionKey(name Identifier, t DataType) *CreateTableBuilder {
	c.partition = append(c.partition, ColumnSpec{Name: name, Type: t})
	return c
}

// ClusteringColumn appends a clustering column.
func (c *CreateTableBuilder) ClusteringColumn(name Identifier, t DataType, desc bool) *CreateTableBuilder {
	c.clustering = append(c.clustering, ColumnSpec{Name: name, Type: t, Descending: desc})
	return c
}

// Column appends a regular column.
func (c *CreateTableBuilder) Column(name Identifier, t DataType) *CreateTableBuilder {
	c.columns = append(c.columns, ColumnSpec{Name: name, Type: t})
	return c
}

// Build renders the statement.
func (c *CreateTableBuilder) Build() *Statement {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if c.ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	tableName(&sb, c.keyspace, c.name)
	sb.WriteString(" (")
	all := append(append(append([]ColumnSpec(nil), c.partition...), c.clustering...), c.columns...)
	for _, col := range all {
		sb.WriteString(col.Name.String())
		sb.WriteByte(' ')
		sb.WriteString(col.Type.String())
		sb.WriteString(", ")
	}
	sb.WriteString("PRIMARY KEY ((")
	for i, col := range c.partition {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name.String())
	}
	sb.WriteByte(')')
	for _, col := range c.clustering {
		sb.WriteString(", ")
		sb.WriteString(col.Name.String())
	}
	sb.WriteString("))")
	for i, col := range c.clustering {
		if i == 0 {
			sb.WriteString(" WITH CLUSTERING ORDER BY (")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name.String())
		if col.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
		if i == len(c.clustering)-1 {
			sb.WriteByte(')')
		}
	}
	return NewStatement(sb.String())
}

// CreateTypeBuilder builds CREATE TYPE statements.
type CreateTypeBuilder struct {
	keyspace    string
	name        Identifier
	ifNotExists bool
	fields      []UserTypeField
}

// CreateType returns a builder for CREATE TYPE name.
func CreateType(name Identifier) *CreateTypeBuilder {
	return &CreateTypeBuilder{name: name}
}

// CreateTypeOf returns a builder for the given user type schema.
func CreateTypeOf(t *UserType) *CreateTypeBuilder {
	return &CreateTypeBuilder{keyspace: t.Keyspace, name: t.Name, fields: t.Fields}
}

// Keyspace qualifies the type with a keyspace.
func (c *CreateTypeBuilder) Keyspace(ks string) *CreateTypeBuilder {
	c.keyspace = ks
	return c
}

// IfNotExists adds IF NOT EXISTS.
func (c *CreateTypeBuilder) IfNotExists() *CreateTypeBuilder {
	c.ifNotExists = true
	return c
}

// Field appends a field.
func (c *CreateTypeBuilder) Field(name Identifier, t DataType) *CreateTypeBuilder {
	c.fields = append(c.fields, UserTypeField{Name: name, Type: t})
	return c
}

// Build renders the statement.
func (c *CreateTypeBuilder) Build() *Statement {
	var sb strings.Builder
	sb.WriteString("CREATE TYPE ")
	if c.ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	tableName(&sb, c.keyspace, c.name)
	sb.WriteString(" (")
	for i, f := range c.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name.String())
		sb.WriteByte(' ')
		sb.WriteString(f.Type.String())
	}
	sb.WriteByte(')')
	return NewStatement(sb.String())
}

// DropTable returns DROP TABLE [IF EXISTS] name.
func DropTable(keyspace string, name Identifier, ifExists bool) *Statement {
	var sb strings.Builder
	sb.WriteString("DROP TABLE ")
	if ifExists {
		sb.WriteString("IF EXISTS ")
	}
	tableName(&sb, keyspace, name)
	return NewStatement(sb.String())
}

// DropType returns DROP TYPE [IF EXISTS] name.
func DropType(keyspace string, name Identifier, ifExists bool) *Statement {
	var sb strings.Builder
	sb.WriteString("DROP TYPE ")
	if ifExists {
		sb.WriteString("IF EXISTS ")
	}
	tableName(&sb, keyspace, name)
	return NewStatement(sb.String())
}

// Keyspace replication strategies.
const (
	SimpleStrategy          = "SimpleStrategy"
	NetworkTopologyStrategy = "NetworkTopologyStrategy"
)

// KeyspaceBuilder builds CREATE KEYSPACE and ALTER KEYSPACE statements.
// Without replication options the keyspace uses SimpleStrategy with one
// replica.
type KeyspaceBuilder struct {
	verb          string
	name          string
	ifNotExists   bool
	factor        int
	dataCenters   map[string]int
	durableWrites *bool
}

// CreateKeyspace returns a builder for CREATE KEYSPACE name.
func CreateKeyspace(name string) *KeyspaceBuilder {
	return &KeyspaceBuilder{verb: "CREATE", name: name, factor: 1}
}

// AlterKeyspace returns a builder for ALTER KEYSPACE name.
func AlterKeyspace(name string) *KeyspaceBuilder {
	return &KeyspaceBuilder{verb: "ALTER", name: name, factor: 1}
}

// IfNotExists adds IF NOT EXISTS. It is ignored by ALTER.
func (k *KeyspaceBuilder) IfNotExists() *KeyspaceBuilder {
	k.ifNotExists = true
	return k
}

// SimpleReplication selects SimpleStrategy with factor replicas.
func (k *KeyspaceBuilder) SimpleReplication(factor int) *KeyspaceBuilder {
	k.factor, k.dataCenters = factor, nil
	return k
}

// NetworkReplication selects NetworkTopologyStrategy with the given
// replica count per data center.
func (k *KeyspaceBuilder) NetworkReplication(dataCenters map[string]int) *KeyspaceBuilder {
	k.dataCenters = maps.Clone(dataCenters)
	return k
}

// DurableWrites sets the durable_writes option.
func (k *KeyspaceBuilder) DurableWrites(on bool) *KeyspaceBuilder {
	k.durableWrites = &on
	return k
}

// Build renders the statement.
func (k *KeyspaceBuilder) Build() *Statement {
	var sb strings.Builder
	sb.WriteString(k.verb)
	sb.WriteString(" KEYSPACE ")
	if k.ifNotExists && k.verb == "CREATE" {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(k.name)
	sb.WriteString(" WITH replication = {'class': '")
	if len(k.dataCenters) > 0 {
		sb.WriteString(NetworkTopologyStrategy)
		sb.WriteByte('\'')
		for _, dc := range slices.Sorted(maps.Keys(k.dataCenters)) {
			sb.WriteString(", '")
			sb.WriteString(strings.ReplaceAll(dc, "'", "''"))
			sb.WriteString("': ")
			sb.WriteString(strconv.Itoa(k.dataCenters[dc]))
		}
	} else {
		sb.WriteString(SimpleStrategy)
		sb.WriteString("', 'replication_factor': ")
		sb.WriteString(strconv.Itoa(k.factor))
	}
	sb.WriteByte('}')
	if k.durableWrites != nil {
		sb.WriteString(" AND durable_writes = ")
		sb.WriteString(strconv.FormatBool(*k.durableWrites))
	}
	return NewStatement(sb.String())
}

// DropKeyspace returns DROP KEYSPACE [IF EXISTS] name.
func DropKeyspace(name string, ifExists bool) *Statement {
	var sb strings.Builder
	sb.WriteString("DROP KEYSPACE ")
	if ifExists {
		sb.WriteString("IF EXISTS ")
	}
	sb.WriteString(name)
	return NewStatement(sb.String())
}
