package convert_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gocql/gocql"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/inf.v0"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/convert"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

type (
	Person struct {
		Key       PersonKey
		Nickname  *string
		Birthdate civil.Date
		Wakeup    civil.Time
		Address   Address
		Previous  []Address
		Aliases   []string
		Tags      []string
		Scores    map[string]int32
		Balance   decimal.Decimal
		Ref       uuid.UUID
		Status    Status
		Version   int64
	}
	PersonKey struct {
		Lastname  string
		Firstname string
		Created   time.Time
	}
	Address struct {
		Street string
		Geo    *Geo
	}
	Geo struct {
		Lat, Lng float64
	}
	Account struct {
		ID      string
		Owner   string
		Balance int64
		Opened  time.Time
	}
	Status string
)

func decls() []mapping.Declaration {
	return []mapping.Declaration{
		mapping.Table[Person]("person").Fields(
			mapping.PrimaryKey("key", func(p *Person) *PersonKey { return &p.Key }),
			mapping.Nillable("nickname", func(p *Person) **string { return &p.Nickname }),
			mapping.Field("birthdate", func(p *Person) *civil.Date { return &p.Birthdate }),
			mapping.Field("wakeup", func(p *Person) *civil.Time { return &p.Wakeup }),
			mapping.Embedded("address", func(p *Person) *Address { return &p.Address }),
			mapping.List("previous", func(p *Person) *[]Address { return &p.Previous }),
			mapping.List("aliases", func(p *Person) *[]string { return &p.Aliases }),
			mapping.Set("tags", func(p *Person) *[]string { return &p.Tags }),
			mapping.Map("scores", func(p *Person) *map[string]int32 { return &p.Scores }),
			mapping.Field("balance", func(p *Person) *decimal.Decimal { return &p.Balance }),
			mapping.Field("ref", func(p *Person) *uuid.UUID { return &p.Ref }),
			mapping.Field("status", func(p *Person) *Status { return &p.Status }).Type(cql.Text),
			mapping.Version("version", func(p *Person) *int64 { return &p.Version }),
		),
		mapping.PrimaryKeyClass[PersonKey]().Fields(
			mapping.Field("lastname", func(k *PersonKey) *string { return &k.Lastname }).PartitionKey(),
			mapping.Field("firstname", func(k *PersonKey) *string { return &k.Firstname }).PartitionKey(),
			mapping.Field("created", func(k *PersonKey) *time.Time { return &k.Created }).ClusteringKey().Descending(),
		),
		mapping.UserType[Address]("address").Fields(
			mapping.Field("street", func(a *Address) *string { return &a.Street }),
			mapping.NillableEmbedded("geo", func(a *Address) **Geo { return &a.Geo }),
		),
		mapping.Tuple[Geo]().Fields(
			mapping.Field("lng", func(g *Geo) *float64 { return &g.Lng }).Ordinal(1),
			mapping.Field("lat", func(g *Geo) *float64 { return &g.Lat }).Ordinal(0),
		),
		mapping.Table[Account]("accounts").Fields(
			mapping.Field("id", func(a *Account) *string { return &a.ID }).ID(),
			mapping.Field("owner", func(a *Account) *string { return &a.Owner }).Immutable(),
			mapping.Field("balance", func(a *Account) *int64 { return &a.Balance }),
			mapping.Field("opened", func(a *Account) *time.Time { return &a.Opened }).Immutable(),
		).Constructor(func(a mapping.Args) (*Account, error) {
			id := mapping.Arg[string](a, "id")
			if id == "" {
				return nil, errors.New("empty id")
			}
			return &Account{ID: id, Owner: mapping.Arg[string](a, "owner")}, nil
		}, "id", "owner"),
	}
}

func newConverter(t *testing.T, opts ...convert.Option) *convert.Converter {
	t.Helper()
	mc := mapping.NewContext()
	require.NoError(t, mc.Register(decls()...))
	t.Cleanup(func() { _ = mc.Close() })
	c, err := convert.New(mc, opts...)
	require.NoError(t, err)
	return c
}

func entity[T any](t *testing.T, c *convert.Converter) *mapping.Entity {
	t.Helper()
	e, err := mapping.EntityOf[T](c.MappingContext())
	require.NoError(t, err)
	return e
}

func walter() *Person {
	nick := "heisenberg"
	return &Person{
		Key: PersonKey{
			Lastname:  "White",
			Firstname: "Walter",
			Created:   time.Date(2008, 1, 20, 21, 0, 0, 0, time.UTC),
		},
		Nickname:  &nick,
		Birthdate: civil.Date{Year: 1958, Month: time.September, Day: 7},
		Wakeup:    civil.Time{Hour: 1, Minute: 2, Second: 3},
		Address:   Address{Street: "308 Negra Arroyo Lane", Geo: &Geo{Lat: 35.126, Lng: -106.536}},
		Previous:  []Address{{Street: "Belmont"}},
		Aliases:   []string{"Mr. White"},
		Tags:      []string{"chemistry", "teacher"},
		Scores:    map[string]int32{"purity": 99},
		Balance:   decimal.RequireFromString("80000000.50"),
		Ref:       uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Status:    "retired",
		Version:   2,
	}
}

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestWriteRead(t *testing.T) {
	ctx := context.Background()
	c := newConverter(t)
	e := entity[Person](t, c)
	p := walter()

	rec := &convert.Record{}
	require.NoError(t, c.Write(ctx, e, p, rec, false))
	var cols []string
	for _, col := range rec.Columns {
		cols = append(cols, col.String())
	}
	assert.Equal(t, []string{
		"lastname", "firstname", "created", "nickname", "birthdate", "wakeup", "address",
		"previous", "aliases", "tags", "scores", "balance", "ref", "status", "version",
	}, cols, "composite keys are flattened")

	v, _ := rec.Lookup("birthdate")
	assert.Equal(t, cql.LocalDate(-4134), v)
	v, _ = rec.Lookup("wakeup")
	assert.Equal(t, cql.LocalTime(3723000), v)
	v, _ = rec.Lookup("ref")
	assert.IsType(t, gocql.UUID{}, v)
	v, _ = rec.Lookup("balance")
	assert.Equal(t, "80000000.50", v.(*inf.Dec).String())
	v, _ = rec.Lookup("address")
	uv, ok := v.(*cql.UDTValue)
	require.True(t, ok)
	street, _ := uv.Lookup("street")
	assert.Equal(t, "308 Negra Arroyo Lane", street)
	geo, _ := uv.Lookup("geo")
	require.IsType(t, &cql.TupleValue{}, geo)
	assert.Equal(t, []any{35.126, -106.536}, geo.(*cql.TupleValue).Values(), "tuple components follow ordinals")
	v, _ = rec.Lookup("previous")
	require.Len(t, v, 1)
	assert.IsType(t, &cql.UDTValue{}, v.([]any)[0])

	got, err := c.Read(ctx, e, rec.Row())
	require.NoError(t, err)
	if diff := cmp.Diff(p, got.(*Person), decimalEqual); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalTime(t *testing.T) {
	ctx := context.Background()
	c := newConverter(t)
	v, err := c.WriteValue(ctx, civil.Time{Hour: 1, Minute: 2, Second: 3})
	require.NoError(t, err)
	assert.Equal(t, cql.LocalTime(3723000), v)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, cql.DriverValue(v))

	var tod civil.Time
	require.NoError(t, c.Decode(v, &tod))
	assert.Equal(t, civil.Time{Hour: 1, Minute: 2, Second: 3}, tod)
	require.NoError(t, c.Decode(3723000*time.Millisecond, &tod), "gocql reads time columns as durations")
	assert.Equal(t, civil.Time{Hour: 1, Minute: 2, Second: 3}, tod)

	assert.Error(t, c.Decode(cql.LocalTime(cql.MillisPerDay), &tod))
	_, err = c.WriteValue(ctx, cql.LocalTime(-1))
	assert.Error(t, err)
	_, err = c.WriteValue(ctx, civil.Time{Hour: 25})
	assert.Error(t, err)

	assert.Equal(t, cql.LocalTime(86_399_999), convert.LocalTimeOf(civil.Time{Hour: 23, Minute: 59, Second: 59, Nanosecond: 999_999_999}))
}

func TestEmptyCollections(t *testing.T) {
	ctx := context.Background()
	c := newConverter(t)
	e := entity[Person](t, c)
	p := walter()
	p.Aliases, p.Tags, p.Scores, p.Nickname = []string{}, []string{}, map[string]int32{}, nil

	rec := &convert.Record{}
	require.NoError(t, c.Write(ctx, e, p, rec, false))
	for _, col := range []string{"aliases", "tags", "scores", "nickname"} {
		_, ok := rec.Lookup(col)
		assert.False(t, ok, "%s must not be written", col)
	}

	got, err := c.Read(ctx, e, rec.Row())
	require.NoError(t, err)
	read := got.(*Person)
	assert.Nil(t, read.Aliases, "empty list reads back as nil")
	assert.Nil(t, read.Tags, "empty set reads back as nil")
	assert.Nil(t, read.Scores)
	assert.Nil(t, read.Nickname)

	rec = &convert.Record{}
	require.NoError(t, c.Write(ctx, e, p, rec, true))
	for _, col := range []string{"aliases", "tags", "scores", "nickname"} {
		v, ok := rec.Lookup(col)
		assert.True(t, ok, "%s is written as NULL", col)
		assert.Nil(t, v)
	}
}

func TestUserTypeResolver(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	fields := []cql.UserTypeField{
		{Name: cql.Ident("street"), Type: cql.Text},
		{Name: cql.Ident("geo"), Type: cql.TupleOf(cql.Double, cql.Double)},
	}
	c := newConverter(t, convert.WithUserTypeResolver(convert.UserTypeResolverFunc(
		func(_ context.Context, name cql.Identifier) (*cql.UserType, error) {
			calls.Add(1)
			return &cql.UserType{Keyspace: "ks", Name: name, Fields: fields}, nil
		},
	)), convert.WithUserTypeCacheSize(4))
	e := entity[Person](t, c)

	for range 3 {
		require.NoError(t, c.Write(ctx, e, walter(), &convert.Record{}, false))
	}
	assert.EqualValues(t, 1, calls.Load(), "schemas are cached")

	c.Invalidate(cql.Ident("address"))
	v, err := c.WriteValue(ctx, Address{Street: "Belmont"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, "ks", v.(*cql.UDTValue).Type().Keyspace)

	fields = fields[:1]
	c.Invalidate(cql.Ident("address"))
	err = c.Write(ctx, e, walter(), &convert.Record{}, false)
	assert.True(t, cassava.IsMappingError(err))
	assert.ErrorContains(t, err, "user type schema mismatch")

	failing := newConverter(t, convert.WithUserTypeResolver(convert.UserTypeResolverFunc(
		func(context.Context, cql.Identifier) (*cql.UserType, error) { return nil, errors.New("keyspace not found") },
	)))
	err = failing.Write(ctx, entity[Person](t, failing), walter(), &convert.Record{}, false)
	assert.ErrorContains(t, err, "keyspace not found")
}

func TestCustomConversions(t *testing.T) {
	ctx := context.Background()
	c := newConverter(t, convert.WithConversions(
		convert.Writing(func(s Status) (string, error) { return strings.ToUpper(string(s)), nil }),
		convert.Reading(func(s string) (Status, error) {
			if s == "" {
				return "", errors.New("empty status")
			}
			return Status(strings.ToLower(s)), nil
		}),
		convert.Writing(func(d civil.Date) (string, error) { return d.String(), nil }),
	))
	e := entity[Person](t, c)

	rec := &convert.Record{}
	require.NoError(t, c.Write(ctx, e, walter(), rec, false))
	v, _ := rec.Lookup("status")
	assert.Equal(t, "RETIRED", v)
	v, _ = rec.Lookup("birthdate")
	assert.Equal(t, "1958-09-07", v, "custom conversions take precedence over built-in ones")

	row := cql.RowOf("lastname", "White", "status", "ACTIVE")
	got, err := c.Read(ctx, e, row)
	require.NoError(t, err)
	assert.Equal(t, Status("active"), got.(*Person).Status)

	_, err = c.Read(ctx, e, cql.RowOf("status", ""))
	assert.True(t, cassava.IsMappingError(err))
	assert.ErrorContains(t, err, "empty status")

	_, err = convert.New(mapping.NewContext(), convert.WithConversions(convert.Conversion{}))
	var verr *cassava.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReadConstructor(t *testing.T) {
	ctx := context.Background()
	c := newConverter(t)
	e := entity[Account](t, c)

	got, err := c.Read(ctx, e, cql.RowOf("id", "a1", "owner", "walter", "balance", int32(5)))
	require.NoError(t, err)
	assert.Equal(t, &Account{ID: "a1", Owner: "walter", Balance: 5}, got)

	tests := []struct {
		name string
		row  cql.Row
		want string
	}{
		{name: "MissingParameter", row: cql.RowOf("id", "a1"), want: "no column owner for constructor parameter"},
		{name: "Immutable", row: cql.RowOf("id", "a1", "owner", "w", "opened", time.Now()), want: "immutable property is not a constructor parameter"},
		{name: "ConstructorError", row: cql.RowOf("id", "", "owner", "w"), want: "empty id"},
		{name: "Incompatible", row: cql.RowOf("id", "a1", "owner", "w", "balance", "lots"), want: "Account.balance: incompatible value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Read(ctx, e, tt.row)
			require.Error(t, err)
			assert.True(t, cassava.IsMappingError(err))
			assert.ErrorIs(t, err, cassava.ErrInvalidMapping)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Read(cctx, e, cql.RowOf("id", "a1", "owner", "w"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadIncompatible(t *testing.T) {
	c := newConverter(t)
	e := entity[Person](t, c)
	_, err := c.Read(context.Background(), e, cql.RowOf("birthdate", true))
	var merr *cassava.MappingError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "Person", merr.Entity)
	assert.Equal(t, "birthdate", merr.Property)
	assert.Equal(t, "incompatible value", merr.Message)
}

func TestWriteID(t *testing.T) {
	ctx := context.Background()
	c := newConverter(t)
	person, account := entity[Person](t, c), entity[Account](t, c)
	created := time.Date(2008, 1, 20, 21, 0, 0, 0, time.UTC)
	want := []cql.Relation{
		cql.EQ(cql.Ident("lastname"), "White"),
		cql.EQ(cql.Ident("firstname"), "Walter"),
		cql.EQ(cql.Ident("created"), created),
	}

	tests := []struct {
		name string
		e    *mapping.Entity
		id   any
		want []cql.Relation
	}{
		{name: "Simple", e: account, id: "a1", want: []cql.Relation{cql.EQ(cql.Ident("id"), "a1")}},
		{name: "KeyClass", e: person, id: PersonKey{Lastname: "White", Firstname: "Walter", Created: created}, want: want},
		{name: "KeyClassPointer", e: person, id: &PersonKey{Lastname: "White", Firstname: "Walter", Created: created}, want: want},
		{name: "Entity", e: person, id: walter(), want: want},
		{name: "MapID", e: person, id: mapping.MapID{"lastname": "White", "firstname": "Walter", "created": created}, want: want},
		{name: "MapIDPath", e: person, id: mapping.NewMapID().With("key.lastname", "White").With("key.firstname", "Walter").With("key.created", created), want: want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rels, err := c.WriteID(ctx, tt.e, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rels)
		})
	}

	_, err := c.WriteID(ctx, person, mapping.MapID{"lastname": "White"})
	assert.ErrorContains(t, err, "identifier is missing key column firstname")
	_, err = c.WriteID(ctx, person, mapping.MapID{"lastname": "White", "firstname": "Walter", "created": created, "age": 50})
	assert.ErrorContains(t, err, "unknown properties")
	_, err = c.WriteID(ctx, person, "White")
	assert.ErrorContains(t, err, "identifier must be PersonKey")
	_, err = c.WriteID(ctx, account, nil)
	assert.True(t, cassava.IsMappingError(err))
}

func TestDecode(t *testing.T) {
	c := newConverter(t)
	var (
		n64    int64
		n8     int8
		f64    float64
		status Status
		id     uuid.UUID
		gid    gocql.UUID
		dec    decimal.Decimal
		date   civil.Date
		ts     time.Time
	)
	require.NoError(t, c.Decode(int32(7), &n64))
	assert.Equal(t, int64(7), n64)
	require.NoError(t, c.Decode(float32(1.5), &f64))
	assert.Equal(t, 1.5, f64)
	assert.ErrorContains(t, c.Decode(int64(300), &n8), "overflows")
	require.NoError(t, c.Decode("active", &status))
	assert.Equal(t, Status("active"), status)

	u := uuid.New()
	require.NoError(t, c.Decode(gocql.UUID(u), &id))
	assert.Equal(t, u, id)
	require.NoError(t, c.Decode(u, &gid))
	assert.Equal(t, gocql.UUID(u), gid)
	require.NoError(t, c.Decode(u.String(), &id))
	assert.Equal(t, u, id)

	require.NoError(t, c.Decode(inf.NewDec(1250, 2), &dec))
	assert.True(t, decimal.RequireFromString("12.50").Equal(dec))

	require.NoError(t, c.Decode(cql.LocalDate(0), &date))
	assert.Equal(t, civil.Date{Year: 1970, Month: time.January, Day: 1}, date)
	require.NoError(t, c.Decode(cql.LocalDate(1), &ts))
	assert.Equal(t, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), ts)

	assert.EqualError(t, c.Decode(true, &ts), "cannot convert bool to time.Time")
	require.NoError(t, c.ReadValue(nil, &ts))
}

func TestWriteValue(t *testing.T) {
	ctx := context.Background()
	c := newConverter(t)

	v, err := c.WriteValue(ctx, Geo{Lat: 1, Lng: 2})
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, cql.DriverValue(v))

	v, err = c.WriteValue(ctx, []any{civil.Date{Year: 1970, Month: 1, Day: 2}, uuid.Nil})
	require.NoError(t, err)
	assert.Equal(t, []any{cql.LocalDate(1), gocql.UUID{}}, v)

	v, err = c.WriteValue(ctx, map[any]any{"k": decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, "3", v.(map[any]any)["k"].(*inf.Dec).String())

	v, err = c.WriteValue(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = convert.New(mapping.NewContext(), convert.WithUserTypeCacheSize(0))
	assert.True(t, cassava.IsValidationError(err))
}
