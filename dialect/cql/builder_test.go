package cql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuilder(t *testing.T) {
	tests := []struct {
		name     string
		st       *Statement
		wantCQL  string
		wantArgs []any
	}{
		{
			name:    "all",
			st:      SelectFrom(Ident("person")).Build(),
			wantCQL: "SELECT * FROM person",
		},
		{
			name: "where",
			st: SelectFrom(Ident("person")).
				Where(EQ(Ident("lastname"), "White"), EQ(Ident("firstname"), "Walter")).
				Build(),
			wantCQL:  "SELECT * FROM person WHERE lastname=? AND firstname=?",
			wantArgs: []any{"White", "Walter"},
		},
		{
			name: "columns order limit filtering",
			st: SelectFrom(Ident("person")).Keyspace("ks").
				Columns(Ident("id"), Quoted("NickName")).
				Where(GT(Ident("age"), 50), In(Ident("city"), "a", "b"), Contains(Ident("tags"), "x")).
				OrderBy(Ident("age"), true).
				Limit(10).
				AllowFiltering().
				Build(),
			wantCQL:  `SELECT id,"NickName" FROM ks.person WHERE age>? AND city IN (?,?) AND tags CONTAINS ? ORDER BY age DESC LIMIT 10 ALLOW FILTERING`,
			wantArgs: []any{50, "a", "b", "x"},
		},
		{
			name:     "count",
			st:       SelectFrom(Ident("person")).Count().Where(NotNull(Ident("id"))).Build(),
			wantCQL:  "SELECT COUNT(1) FROM person WHERE id IS NOT NULL",
			wantArgs: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCQL, tt.st.CQL())
			assert.Equal(t, tt.wantArgs, tt.st.Values())
			assert.True(t, tt.st.Idempotent())
		})
	}
}

func TestInsertBuilder(t *testing.T) {
	st := InsertInto(Ident("person")).
		Value(Ident("id"), "heisenberg").
		Value(Ident("lastname"), "White").
		Value(Ident("id"), "walter").
		IfNotExists().
		TTL(10 * time.Second).
		Timestamp(1234).
		Build()
	assert.Equal(t, "INSERT INTO person (id,lastname) VALUES (?,?) IF NOT EXISTS USING TTL 10 AND TIMESTAMP 1234", st.CQL())
	assert.Equal(t, []any{"walter", "White"}, st.Values())
	assert.True(t, st.Conditional())
	assert.False(t, st.Idempotent())
}

func TestUpdateBuilder(t *testing.T) {
	t.Run("assignments", func(t *testing.T) {
		st := Update(Ident("person")).
			TTL(time.Minute).
			Assign(
				Set(Ident("lastname"), "White"),
				Append(Ident("aliases"), []any{"Heisenberg"}),
				Prepend(Ident("history"), []any{"cook"}),
				Remove(Ident("tags"), []any{"teacher"}),
				SetElement(Ident("scores"), "chemistry", 100),
			).
			Where(EQ(Ident("id"), "walter")).
			Build()
		assert.Equal(t,
			"UPDATE person USING TTL 60 SET lastname=?,aliases=aliases+?,history=?+history,tags=tags-?,scores[?]=? WHERE id=?",
			st.CQL())
		assert.Equal(t, []any{"White", []any{"Heisenberg"}, []any{"cook"}, []any{"teacher"}, "chemistry", 100, "walter"}, st.Values())
		assert.False(t, st.Idempotent())
	})

	t.Run("conditions", func(t *testing.T) {
		b := Update(Ident("person")).Assign(Set(Ident("version"), int64(2))).Where(EQ(Ident("id"), "w"))
		st := b.IfExists().If(EQ(Ident("version"), int64(1))).Build()
		assert.Equal(t, "UPDATE person SET version=? WHERE id=? IF version=?", st.CQL())
		assert.Equal(t, []any{int64(2), "w", int64(1)}, st.Values())
		assert.True(t, st.Conditional())

		st = b.IfExists().Build()
		assert.Equal(t, "UPDATE person SET version=? WHERE id=? IF EXISTS", st.CQL())
	})

	t.Run("counter", func(t *testing.T) {
		st := Update(Ident("views")).Assign(Increment(Ident("hits"), 1)).Where(EQ(Ident("page"), "/")).Build()
		assert.Equal(t, "UPDATE views SET hits=hits+? WHERE page=?", st.CQL())
	})
}

func TestDeleteBuilder(t *testing.T) {
	st := DeleteFrom(Ident("person")).Where(EQ(Ident("id"), "w")).Build()
	assert.Equal(t, "DELETE FROM person WHERE id=?", st.CQL())
	assert.True(t, st.Idempotent())

	st = DeleteFrom(Ident("person")).
		Columns(Ident("nickname")).
		Timestamp(42).
		Where(EQ(Ident("id"), "w")).
		IfExists().
		Build()
	assert.Equal(t, "DELETE nickname FROM person USING TIMESTAMP 42 WHERE id=? IF EXISTS", st.CQL())
	assert.True(t, st.Conditional())

	assert.Equal(t, "TRUNCATE ks.person", Truncate("ks", Ident("person")).CQL())
}

func TestBatchBuilder(t *testing.T) {
	b := NewBatch(LoggedBatch).
		Add(InsertInto(Ident("person")).Value(Ident("id"), "a").Build()).
		Add(DeleteFrom(Ident("person")).Where(EQ(Ident("id"), "b")).Build())
	require.Equal(t, 2, b.Len())
	st := b.Build()
	assert.Equal(t, "BEGIN BATCH INSERT INTO person (id) VALUES (?); DELETE FROM person WHERE id=?; APPLY BATCH", st.CQL())
	assert.Equal(t, []any{"a", "b"}, st.Values())

	st = NewBatch(UnloggedBatch).Timestamp(7).Build()
	assert.Equal(t, "BEGIN UNLOGGED BATCH USING TIMESTAMP 7 APPLY BATCH", st.CQL())
}

func TestSchemaBuilders(t *testing.T) {
	st := CreateTable(Ident("person")).IfNotExists().
		PartitionKey(Ident("lastname"), Text).
		ClusteringColumn(Ident("firstname"), Text, true).
		Column(Ident("address"), Frozen(UDT(Ident("address")))).
		Build()
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS person (lastname text, firstname text, address frozen<address>, PRIMARY KEY ((lastname), firstname)) WITH CLUSTERING ORDER BY (firstname DESC)",
		st.CQL())

	st = CreateType(Ident("address")).Field(Ident("city"), Text).Field(Ident("zip"), Int).Build()
	assert.Equal(t, "CREATE TYPE address (city text, zip int)", st.CQL())

	assert.Equal(t, "DROP TABLE IF EXISTS person", DropTable("", Ident("person"), true).CQL())
	assert.Equal(t, "DROP TYPE ks.address", DropType("ks", Ident("address"), false).CQL())
}

func TestKeyspaceBuilders(t *testing.T) {
	tests := []struct {
		name string
		st   *Statement
		want string
	}{
		{
			name: "default replication",
			st:   CreateKeyspace("shop").Build(),
			want: "CREATE KEYSPACE shop WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}",
		},
		{
			name: "simple",
			st:   CreateKeyspace("shop").IfNotExists().SimpleReplication(3).DurableWrites(false).Build(),
			want: "CREATE KEYSPACE IF NOT EXISTS shop WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 3} AND durable_writes = false",
		},
		{
			name: "network topology",
			st:   CreateKeyspace("shop").NetworkReplication(map[string]int{"eu-west": 2, "dc1": 3}).Build(),
			want: "CREATE KEYSPACE shop WITH replication = {'class': 'NetworkTopologyStrategy', 'dc1': 3, 'eu-west': 2}",
		},
		{
			name: "alter",
			st:   AlterKeyspace("shop").IfNotExists().SimpleReplication(2).Build(),
			want: "ALTER KEYSPACE shop WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 2}",
		},
		{name: "drop", st: DropKeyspace("shop", true), want: "DROP KEYSPACE IF EXISTS shop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.st.CQL())
		})
	}
}
