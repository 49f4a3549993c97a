package operations_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/dialect/cql/cqltest"
	"github.com/syssam/cassava/mapping"
	"github.com/syssam/cassava/operations"
	"github.com/syssam/cassava/query"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type (
	User struct {
		ID      string
		Name    string
		Email   *string
		Version int64
	}
	Note struct {
		ID   string
		Text string
		Tags []string
	}
	Post struct {
		Key   PostKey
		Title string
		Home  Address
	}
	PostKey struct {
		Author  string
		Created time.Time
	}
	Address struct {
		City string
	}
)

func newTemplate(t *testing.T, opts ...operations.Option) (*operations.Template, *cqltest.Driver) {
	t.Helper()
	mc := mapping.NewContext()
	require.NoError(t, mc.Register(
		mapping.Table[User]("users").Fields(
			mapping.Field("id", func(u *User) *string { return &u.ID }).ID(),
			mapping.Field("name", func(u *User) *string { return &u.Name }),
			mapping.Nillable("email", func(u *User) **string { return &u.Email }),
			mapping.Version("version", func(u *User) *int64 { return &u.Version }),
		),
		mapping.Table[Note]("notes").Fields(
			mapping.Field("id", func(n *Note) *string { return &n.ID }).ID(),
			mapping.Field("text", func(n *Note) *string { return &n.Text }),
			mapping.Set("tags", func(n *Note) *[]string { return &n.Tags }),
		),
		mapping.Table[Post]("posts").Fields(
			mapping.PrimaryKey("key", func(p *Post) *PostKey { return &p.Key }),
			mapping.Field("title", func(p *Post) *string { return &p.Title }),
			mapping.Embedded("home", func(p *Post) *Address { return &p.Home }),
		),
		mapping.PrimaryKeyClass[PostKey]().Fields(
			mapping.Field("author", func(k *PostKey) *string { return &k.Author }).PartitionKey(),
			mapping.Field("created", func(k *PostKey) *time.Time { return &k.Created }).ClusteringKey().Descending(),
		),
		mapping.UserType[Address]("address").Fields(
			mapping.Field("city", func(a *Address) *string { return &a.City }),
		),
	))
	t.Cleanup(func() { _ = mc.Close() })
	drv := cqltest.New()
	tpl, err := operations.New(drv, mc, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, drv.ExpectationsWereMet())
		assert.True(t, drv.AllRowsClosed(), "rows left open")
	})
	return tpl, drv
}

func TestNewTemplate(t *testing.T) {
	_, err := operations.New(nil, mapping.NewContext())
	require.Error(t, err)
	assert.True(t, cassava.IsValidationError(err))

	_, err = operations.New(cqltest.New(), nil)
	require.Error(t, err)
	assert.True(t, cassava.IsValidationError(err))
}

func TestInsert(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()

	drv.ExpectExec("INSERT INTO notes (id,text) VALUES (?,?)").WithArgs("n1", "hello")
	n := &Note{ID: "n1", Text: "hello"}
	res, err := operations.Insert[Note](tpl).One(ctx, n)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Same(t, n, res.Entity)

	opts, err := operations.NewInsertOptions().IfNotExists(true).TTL(10 * time.Second).Timestamp(1234).Build()
	require.NoError(t, err)
	drv.ExpectExec("INSERT INTO notes (id,text,tags) VALUES (?,?,?) IF NOT EXISTS USING TTL 10 AND TIMESTAMP 1234").
		WithArgs("n2", "bye", []any{"a"}).
		WillNotApply(cql.RowOf("id", "n2"))
	res, err = operations.Insert[Note](tpl).WithOptions(opts).One(ctx, &Note{ID: "n2", Text: "bye", Tags: []string{"a"}})
	require.NoError(t, err, "rejected conditional insert of an unversioned entity is not an error")
	assert.False(t, res.Applied)
	require.Len(t, res.Rows, 1)
	assert.True(t, drv.LastStatement().Conditional())

	_, err = operations.Insert[Note](tpl).One(ctx, nil)
	assert.True(t, cassava.IsValidationError(err))
}

func TestInsertInTable(t *testing.T) {
	tpl, drv := newTemplate(t, operations.WithKeyspace("app"))
	drv.ExpectExec("INSERT INTO app.notes_archive (id,text) VALUES (?,?)").WithArgs("n1", "hello")
	_, err := operations.Insert[Note](tpl).InTable(cql.Ident("notes_archive")).One(context.Background(), &Note{ID: "n1", Text: "hello"})
	require.NoError(t, err)
}

func TestInsertVersioned(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()

	drv.ExpectExec("INSERT INTO users (id,name,version) VALUES (?,?,?) IF NOT EXISTS").WithArgs("u1", "Walter", int64(1))
	u := &User{ID: "u1", Name: "Walter"}
	res, err := operations.Insert[User](tpl).One(ctx, u)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.EqualValues(t, 1, u.Version)

	drv.ExpectExec("INSERT INTO users (id,name,version) VALUES (?,?,?) IF NOT EXISTS").
		WithArgs("u2", "Jesse", int64(1)).
		WillNotApply()
	u = &User{ID: "u2", Name: "Jesse"}
	_, err = operations.Insert[User](tpl).One(ctx, u)
	require.Error(t, err)
	assert.True(t, cassava.IsOptimisticLocking(err))
	assert.EqualValues(t, 0, u.Version, "version restored")

	drv.ExpectExec("INSERT INTO users (id,name,version) VALUES (?,?,?) IF NOT EXISTS").WillReturnError(errors.New("timeout"))
	u = &User{ID: "u3", Name: "Skyler"}
	_, err = operations.Insert[User](tpl).One(ctx, u)
	require.Error(t, err)
	assert.True(t, cassava.IsMutationError(err))
	assert.EqualValues(t, 0, u.Version)
}

func TestInsertVersionedExisting(t *testing.T) {
	tpl, drv := newTemplate(t)
	drv.ExpectExec("UPDATE users SET name=?,email=?,version=? WHERE id=? IF version=?").
		WithArgs("Walter", nil, int64(3), "u1", int64(2))
	u := &User{ID: "u1", Name: "Walter", Version: 2}
	_, err := operations.Insert[User](tpl).One(context.Background(), u)
	require.NoError(t, err)
	assert.EqualValues(t, 3, u.Version)
}

func TestUpdateEntity(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	users := operations.For[User](tpl)

	email := "walt@example.com"
	drv.ExpectExec("UPDATE users SET name=?,email=?,version=? WHERE id=? IF version=?").
		WithArgs("Walt", email, int64(2), "u1", int64(1))
	u := &User{ID: "u1", Name: "Walt", Email: &email, Version: 1}
	res, err := users.Update(ctx, u)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Entity.Version)

	drv.ExpectExec("UPDATE users SET name=?,email=?,version=? WHERE id=? IF version=?").
		WithArgs("Walt", email, int64(3), "u1", int64(2)).
		WillNotApply(cql.RowOf("version", int64(5)))
	res, err = users.Update(ctx, u)
	require.Error(t, err)
	assert.True(t, cassava.IsOptimisticLocking(err))
	assert.False(t, res.Applied)
	assert.EqualValues(t, 2, u.Version)

	notes := operations.For[Note](tpl)
	drv.ExpectExec("UPDATE notes SET text=?,tags=? WHERE id=?").WithArgs("hello", nil, "n1")
	_, err = notes.Update(ctx, &Note{ID: "n1", Text: "hello"})
	require.NoError(t, err)
	assert.True(t, drv.LastStatement().Idempotent())
}

func TestUpdateMatching(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	byID := query.New(query.Where("id").EQ("n1"))

	drv.ExpectExec("UPDATE notes SET text=?,tags=tags+? WHERE id=?").WithArgs("bye", []any{"x"}, "n1")
	_, err := operations.Update[Note](tpl).
		Matching(byID).
		Apply(ctx, query.NewUpdate().Set("text", "bye").Append("tags", "x"))
	require.NoError(t, err)

	opts, err := operations.NewUpdateOptions().IfExists(true).Build()
	require.NoError(t, err)
	drv.ExpectExec("UPDATE notes SET text=? WHERE id=? IF EXISTS").WithArgs("bye", "n1").WillNotApply()
	res, err := operations.Update[Note](tpl).Matching(byID).WithOptions(opts).Apply(ctx, query.NewUpdate().Set("text", "bye"))
	require.NoError(t, err)
	assert.False(t, res.Applied)

	opts, err = operations.NewUpdateOptions().IfCondition(query.Where("text").EQ("hello")).TTL(time.Minute).Build()
	require.NoError(t, err)
	drv.ExpectExec("UPDATE notes USING TTL 60 SET text=? WHERE id=? IF text=?").WithArgs("bye", "n1", "hello")
	_, err = operations.Update[Note](tpl).Matching(byID).WithOptions(opts).Apply(ctx, query.NewUpdate().Set("text", "bye"))
	require.NoError(t, err)

	_, err = operations.Update[Note](tpl).Matching(byID).Apply(ctx, query.NewUpdate())
	assert.True(t, cassava.IsValidationError(err))

	_, err = operations.Update[Note](tpl).Matching(byID).Apply(ctx, query.NewUpdate().Set("id", "n2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary key columns cannot be updated")
}

func TestDelete(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()

	drv.ExpectExec("DELETE FROM notes WHERE id=?").WithArgs("n1")
	_, err := operations.Delete[Note](tpl).Matching(query.New(query.Where("id").EQ("n1"))).All(ctx)
	require.NoError(t, err)

	drv.ExpectExec("DELETE text FROM notes WHERE id IN (?,?)").WithArgs("n1", "n2")
	_, err = operations.Delete[Note](tpl).
		Matching(query.New(query.Where("id").In("n1", "n2")).WithColumns("text")).
		All(ctx)
	require.NoError(t, err)

	_, err = operations.Delete[Note](tpl).All(ctx)
	require.Error(t, err)
	assert.True(t, cassava.IsValidationError(err))

	drv.ExpectExec("DELETE FROM notes USING TIMESTAMP 99 WHERE id=?").WithArgs("n3")
	opts, err := operations.NewDeleteOptions().Timestamp(99).Build()
	require.NoError(t, err)
	_, err = operations.For[Note](tpl).DeleteWith(ctx, &Note{ID: "n3"}, opts)
	require.NoError(t, err)

	drv.ExpectExec("DELETE FROM notes WHERE id=?").WithArgs("n4")
	_, err = operations.For[Note](tpl).DeleteByID(ctx, "n4")
	require.NoError(t, err)
}

func TestDeleteVersioned(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	users := operations.For[User](tpl)

	drv.ExpectExec("DELETE FROM users WHERE id=? IF version=?").WithArgs("u1", int64(3))
	_, err := users.Delete(ctx, &User{ID: "u1", Version: 3})
	require.NoError(t, err)

	drv.ExpectExec("DELETE FROM users WHERE id=? IF version=?").WithArgs("u1", int64(3)).WillNotApply()
	_, err = users.Delete(ctx, &User{ID: "u1", Version: 3})
	require.Error(t, err)
	assert.True(t, cassava.IsOptimisticLocking(err))
	assert.ErrorIs(t, err, cassava.ErrOptimisticLocking)
}

func TestSelectOneByID(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	users := operations.For[User](tpl)

	drv.ExpectQuery("SELECT * FROM users WHERE id=?").
		WithArgs("u1").
		WillReturnRows(cql.RowOf("id", "u1", "name", "Walter", "email", nil, "version", int64(2)))
	u, err := users.SelectOneByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "u1", Name: "Walter", Version: 2}, u)

	drv.ExpectQuery("SELECT * FROM users WHERE id=?").WithArgs("u2")
	u, err = users.SelectOneByID(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, u)

	drv.ExpectQuery("SELECT id FROM users WHERE id=? LIMIT 1").WithArgs("u1").WillReturnRows(cql.RowOf("id", "u1"))
	ok, err := users.ExistsByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSelectCompositeID(t *testing.T) {
	tpl, drv := newTemplate(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	drv.ExpectQuery("SELECT * FROM posts WHERE author=? AND created=?").
		WithArgs("walter", created).
		WillReturnRows(cql.RowOf("author", "walter", "created", created, "title", "Chemistry", "home", nil))
	p, err := operations.For[Post](tpl).SelectOneByID(context.Background(), PostKey{Author: "walter", Created: created})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Chemistry", p.Title)
	assert.Equal(t, PostKey{Author: "walter", Created: created}, p.Key)
}

func TestSelect(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	q := query.New(query.Where("text").EQ("hello")).WithAllowFiltering()

	drv.ExpectQuery("SELECT * FROM notes WHERE text=? ALLOW FILTERING").
		WithArgs("hello").
		WillReturnRows(cql.RowOf("id", "n1", "text", "hello"), cql.RowOf("id", "n2", "text", "hello"))
	notes, err := operations.Select[Note](tpl).Matching(q).All(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n2", notes[1].ID)

	drv.ExpectQuery("SELECT * FROM notes WHERE text=? ALLOW FILTERING").
		WillReturnRows(cql.RowOf("id", "n1", "text", "hello"), cql.RowOf("id", "n2", "text", "hello"))
	_, err = operations.Select[Note](tpl).Matching(q).One(ctx)
	require.Error(t, err)
	assert.True(t, cassava.IsIncorrectResultSize(err))

	drv.ExpectQuery("SELECT * FROM notes WHERE text=? LIMIT 2 ALLOW FILTERING").
		WillReturnRows(cql.RowOf("id", "n1", "text", "hello"), cql.RowOf("id", "n2", "text", "hello"))
	n, err := operations.Select[Note](tpl).Matching(q.WithLimit(2)).One(ctx)
	require.NoError(t, err, "limited query returns the first row")
	assert.Equal(t, "n1", n.ID)

	drv.ExpectQuery("SELECT * FROM notes WHERE text=? LIMIT 1 ALLOW FILTERING").
		WillReturnRows(cql.RowOf("id", "n1", "text", "hello"))
	n, err = operations.Select[Note](tpl).Matching(q).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID)

	drv.ExpectQuery("SELECT id FROM notes WHERE text=? LIMIT 1 ALLOW FILTERING")
	ok, err := operations.Select[Note](tpl).Matching(q).Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	drv.ExpectQuery("SELECT COUNT(1) FROM notes WHERE text=? ALLOW FILTERING").
		WillReturnRows(cql.RowOf("count", int64(7)))
	count, err := operations.Select[Note](tpl).Matching(q).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)
}

func TestSelectOptions(t *testing.T) {
	tpl, drv := newTemplate(t)
	opts, err := operations.NewQueryOptions().FetchSize(25).Keyspace("reporting").Build()
	require.NoError(t, err)
	drv.ExpectQuery("SELECT * FROM reporting.notes").WithStatement(func(st *cql.Statement) error {
		if st.PageSize() != 25 {
			return fmt.Errorf("page size %d", st.PageSize())
		}
		return nil
	})
	notes, err := operations.Select[Note](tpl).WithOptions(opts).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSelectErrors(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()

	drv.ExpectQuery("SELECT * FROM notes").WillReturnError(errors.New("unavailable"))
	_, err := operations.Select[Note](tpl).All(ctx)
	require.Error(t, err)
	assert.True(t, cassava.IsQueryError(err))

	_, err = operations.Select[Note](tpl).Matching(query.New(query.Where("author").EQ("x"))).All(ctx)
	assert.True(t, cassava.IsPropertyReferenceError(err))

	_, err = operations.Select[PostKey](tpl).All(ctx)
	assert.True(t, cassava.IsMappingError(err))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = operations.Select[Note](tpl).All(cctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSlice(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	notes := operations.For[Note](tpl)

	drv.ExpectQuery("SELECT * FROM notes").
		WithStatement(func(st *cql.Statement) error {
			if st.PageSize() != 2 || st.PagingState() != nil {
				return fmt.Errorf("page size %d, state %q", st.PageSize(), st.PagingState())
			}
			return nil
		}).
		WillReturnRows(cql.RowOf("id", "n1"), cql.RowOf("id", "n2"), cql.RowOf("id", "n3")).
		WillReturnPagingState([]byte("p2"))
	s, err := notes.Slice(ctx, query.Empty().WithPage(query.FirstPage(2)))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len(), "at most one page is read")
	require.True(t, s.HasNext())

	drv.ExpectQuery("SELECT * FROM notes").
		WithStatement(func(st *cql.Statement) error {
			if string(st.PagingState()) != "p2" {
				return fmt.Errorf("state %q", st.PagingState())
			}
			return nil
		}).
		WillReturnRows(cql.RowOf("id", "n3"))
	s, err = notes.Slice(ctx, query.Empty().WithPage(s.NextPage()))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "n3", s.Content()[0].ID)
	assert.False(t, s.HasNext())
	assert.Zero(t, s.NextPage())

	drv.ExpectQuery("SELECT * FROM notes").WillReturnRows(cql.RowOf("id", "n1"))
	s, err = notes.Slice(ctx, query.Empty())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.HasNext())
}

func TestStream(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()

	drv.ExpectQuery("SELECT * FROM notes").
		WillReturnRows(cql.RowOf("id", "n1"), cql.RowOf("id", "n2"), cql.RowOf("id", "n3"))
	s, err := operations.Select[Note](tpl).Stream(ctx)
	require.NoError(t, err)
	var ids []string
	for n, err := range s.All() {
		require.NoError(t, err)
		ids = append(ids, n.ID)
		if len(ids) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"n1", "n2"}, ids)
	assert.False(t, s.Next(), "stream is closed after the loop")
	require.NoError(t, s.Err())

	drv.ExpectQuery("SELECT * FROM notes").WillReturnRows(cql.RowOf("id", "n1", "tags", 42))
	s, err = operations.For[Note](tpl).Stream(ctx, query.Empty())
	require.NoError(t, err)
	_, err = s.Collect()
	require.Error(t, err)
	assert.True(t, cassava.IsMappingError(err))

	cctx, cancel := context.WithCancel(ctx)
	drv.ExpectQuery("SELECT * FROM notes").WillReturnRows(cql.RowOf("id", "n1"), cql.RowOf("id", "n2"))
	s, err = operations.Select[Note](tpl).Stream(cctx)
	require.NoError(t, err)
	require.True(t, s.Next())
	cancel()
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), context.Canceled)
}

func TestRowErrors(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	lost := errors.New("connection lost")
	sel := operations.Select[Note](tpl)

	drv.ExpectQuery("SELECT * FROM notes").WillReturnRows(cql.RowOf("id", "n1")).WillFailRows(lost)
	notes, err := sel.All(ctx)
	require.ErrorIs(t, err, lost)
	assert.Nil(t, notes)

	drv.ExpectQuery("SELECT * FROM notes").WillReturnRows(cql.RowOf("id", "n1"), cql.RowOf("id", "n2")).WillFailRows(lost)
	s, err := sel.Stream(ctx)
	require.NoError(t, err)
	require.True(t, s.Next())
	require.True(t, s.Next())
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), lost)
	assert.ErrorIs(t, s.Close(), lost)

	drv.ExpectQuery("SELECT * FROM notes").WillReturnRows(cql.RowOf("id", "n1")).WillFailRows(lost)
	n, err := sel.One(ctx)
	require.ErrorIs(t, err, lost)
	assert.Nil(t, n)

	drv.ExpectQuery("SELECT * FROM notes LIMIT 1").WillReturnRows(cql.RowOf("id", "n1")).WillFailRows(lost)
	_, err = sel.First(ctx)
	require.ErrorIs(t, err, lost)

	drv.ExpectQuery("SELECT * FROM notes").WillFailRows(lost)
	_, err = sel.One(ctx)
	require.ErrorIs(t, err, lost)

	drv.ExpectQuery("SELECT id FROM notes LIMIT 1").WillReturnRows(cql.RowOf("id", "n1")).WillFailRows(lost)
	_, err = sel.Exists(ctx)
	require.ErrorIs(t, err, lost)

	drv.ExpectQuery("SELECT COUNT(1) FROM notes").WillReturnRows(cql.RowOf("count", int64(1))).WillFailRows(lost)
	_, err = sel.Count(ctx)
	require.ErrorIs(t, err, lost)

	drv.ExpectQuery("SELECT * FROM notes").WillReturnRows(cql.RowOf("id", "n1")).WillFailRows(lost)
	_, err = sel.Matching(query.Empty().WithPage(query.FirstPage(10))).Slice(ctx)
	require.ErrorIs(t, err, lost)

	proj := sel.Matching(query.New(query.Where("id").EQ("n1")).WithColumns("text"))
	drv.ExpectQuery("SELECT text FROM notes WHERE id=?").WillReturnRows(cql.RowOf("text", "hello")).WillFailRows(lost)
	v, err := operations.OneValue[string](ctx, proj)
	require.ErrorIs(t, err, lost)
	assert.Nil(t, v)
}

func TestOneValue(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	op := operations.Select[Note](tpl).Matching(query.New(query.Where("id").EQ("n1")).WithColumns("text"))

	drv.ExpectQuery("SELECT text FROM notes WHERE id=?").WithArgs("n1").WillReturnRows(cql.RowOf("text", "hello"))
	v, err := operations.OneValue[string](ctx, op)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "hello", *v)

	drv.ExpectQuery("SELECT text FROM notes WHERE id=?").WillReturnRows(cql.RowOf("text", nil))
	v, err = operations.OneValue[string](ctx, op)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = operations.OneValue[string](ctx, operations.Select[Note](tpl))
	assert.True(t, cassava.IsValidationError(err))
}

func TestBatch(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()

	drv.ExpectExec("BEGIN UNLOGGED BATCH USING TIMESTAMP 5 INSERT INTO notes (id,text) VALUES (?,?); DELETE FROM users WHERE id=?; APPLY BATCH").
		WithArgs("n1", "hello", "u1")
	opts, err := operations.NewWriteOptions().Timestamp(5).Build()
	require.NoError(t, err)
	b := tpl.Batch(cql.UnloggedBatch).
		Insert(&Note{ID: "n1", Text: "hello"}).
		Delete(&User{ID: "u1", Version: 4}).
		WithOptions(opts)
	assert.Equal(t, 2, b.Len())
	res, err := b.Execute(ctx)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	_, err = b.Execute(ctx)
	assert.ErrorIs(t, err, operations.ErrBatchExecuted)

	_, err = tpl.Batch(cql.LoggedBatch).Insert(&Note{ID: "n2"}, 42).Execute(ctx)
	assert.ErrorIs(t, err, mapping.ErrNotMapped)

	_, err = tpl.Batch(cql.LoggedBatch).Execute(ctx)
	assert.True(t, cassava.IsValidationError(err))

	_, err = tpl.Batch(cql.LoggedBatch).Insert(&Address{City: "Albuquerque"}).Execute(ctx)
	assert.True(t, cassava.IsMappingError(err))
}

func TestSchema(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()

	posts, err := operations.For[Post](tpl).Entity()
	require.NoError(t, err)
	st, err := tpl.Schema().IfNotExists(true).CreateTableStatement(posts)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS posts (author text, created timestamp, title text, home frozen<address>, PRIMARY KEY ((author), created)) WITH CLUSTERING ORDER BY (created DESC)",
		st.CQL(),
	)

	sts, err := tpl.Schema().Statements()
	require.NoError(t, err)
	require.Len(t, sts, 4)
	assert.Equal(t, "CREATE TYPE address (city text)", sts[0].CQL())
	assert.Equal(t, "CREATE TABLE notes (id text, text text, tags set<text>, PRIMARY KEY ((id)))", sts[2].CQL())

	for _, st := range sts {
		drv.ExpectExec(st.CQL())
	}
	require.NoError(t, tpl.Schema().CreateAll(ctx))

	drv.ExpectExec("DROP TABLE IF EXISTS users")
	drv.ExpectExec("DROP TABLE IF EXISTS notes")
	drv.ExpectExec("DROP TABLE IF EXISTS posts")
	drv.ExpectExec("DROP TYPE IF EXISTS address")
	require.NoError(t, tpl.Schema().IfNotExists(true).DropAll(ctx))

	drv.ExpectExec("TRUNCATE notes")
	require.NoError(t, operations.For[Note](tpl).Truncate(ctx))
}

func TestKeyspace(t *testing.T) {
	ctx := context.Background()
	tpl, drv := newTemplate(t, operations.WithKeyspace("app"))

	drv.ExpectExec("CREATE KEYSPACE IF NOT EXISTS app WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}")
	require.NoError(t, tpl.Schema().IfNotExists(true).CreateKeyspace(ctx, operations.KeyspaceSpec{}))

	durable := false
	st, err := tpl.Schema().CreateKeyspaceStatement(operations.KeyspaceSpec{
		Name:          "reporting",
		DataCenters:   map[string]int{"dc1": 3},
		DurableWrites: &durable,
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE KEYSPACE reporting WITH replication = {'class': 'NetworkTopologyStrategy', 'dc1': 3} AND durable_writes = false", st.CQL())

	_, err = tpl.Schema().CreateKeyspaceStatement(operations.KeyspaceSpec{ReplicationFactor: -1})
	assert.True(t, cassava.IsValidationError(err))

	drv.ExpectExec("DROP KEYSPACE IF EXISTS app")
	require.NoError(t, tpl.Schema().IfNotExists(true).DropKeyspace(ctx, ""))

	drv.ExpectExec("DROP KEYSPACE app").WillReturnError(errors.New("unauthorized"))
	err = tpl.Schema().DropKeyspace(ctx, "app")
	assert.True(t, cassava.IsMutationError(err))

	bare, _ := newTemplate(t)
	err = bare.Schema().DropKeyspace(ctx, "")
	assert.True(t, cassava.IsValidationError(err), "no keyspace to drop")
}

func TestAsync(t *testing.T) {
	tpl, drv := newTemplate(t)
	ctx := context.Background()
	notes := operations.For[Note](tpl)

	drv.ExpectExec("INSERT INTO notes (id,text) VALUES (?,?)").WithArgs("n1", "hello")
	res, err := notes.InsertAsync(ctx, &Note{ID: "n1", Text: "hello"}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n1", res.Entity.ID)

	drv.ExpectQuery("SELECT * FROM notes WHERE id=?").WithArgs("n1").WillReturnRows(cql.RowOf("id", "n1", "text", "hello"))
	n, err := notes.SelectOneByIDAsync(ctx, "n1").Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", n.Text)

	drv.ExpectQuery("SELECT COUNT(1) FROM notes").WillReturnRows(cql.RowOf("count", int64(1)))
	count, err := notes.CountAsync(ctx, query.Empty()).Await(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	drv.ExpectExec("DELETE FROM notes WHERE id=?").WithArgs("n1")
	_, err = notes.DeleteAsync(ctx, n).Await(ctx)
	require.NoError(t, err)
}
