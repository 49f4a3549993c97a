package operations

import (
	"context"
	"errors"
	"slices"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

// SchemaCreator derives CREATE and DROP statements from the registered
// entities.
type SchemaCreator struct {
	t           *Template
	ifNotExists bool
}

// Schema returns a schema creator for the entities of the template's
// mapping context.
func (t *Template) Schema() SchemaCreator {
	return SchemaCreator{t: t}
}

// IfNotExists makes CREATE statements use IF NOT EXISTS and DROP
// statements use IF EXISTS.
func (s SchemaCreator) IfNotExists(on bool) SchemaCreator {
	s.ifNotExists = on
	return s
}

// CreateTableStatement returns the CREATE TABLE statement of e.
func (s SchemaCreator) CreateTableStatement(e *mapping.Entity) (*cql.Statement, error) {
	if e.Kind() != mapping.KindTable {
		return nil, notTable(e)
	}
	b := cql.CreateTable(e.Table()).Keyspace(s.t.keyspace)
	if s.ifNotExists {
		b.IfNotExists()
	}
	for _, k := range e.KeyColumns() {
		typ, err := keyType(e, k)
		if err != nil {
			return nil, err
		}
		if k.Role() == mapping.RolePartition {
			b.PartitionKey(k.Column(), typ)
		} else {
			b.ClusteringColumn(k.Column(), typ, k.IsDescending())
		}
	}
	for _, p := range e.Properties() {
		if p.IsPrimaryKey() {
			continue
		}
		typ, err := e.DataType(p)
		if err != nil {
			return nil, err
		}
		b.Column(p.Column(), typ)
	}
	return b.Build(), nil
}

// keyType returns the type of a key column, which may be declared on a
// primary key class.
func keyType(e *mapping.Entity, k mapping.KeyColumn) (cql.DataType, error) {
	owner := e
	for _, p := range k.Path[:len(k.Path)-1] {
		n, err := owner.Nested(p)
		if err != nil {
			return cql.DataType{}, err
		}
		owner = n
	}
	return owner.DataType(k.Property())
}

// CreateTypeStatement returns the CREATE TYPE statement of a user type
// entity.
func (s SchemaCreator) CreateTypeStatement(e *mapping.Entity) (*cql.Statement, error) {
	ut, err := e.UserType()
	if err != nil {
		return nil, err
	}
	b := cql.CreateTypeOf(ut).Keyspace(s.t.keyspace)
	if s.ifNotExists {
		b.IfNotExists()
	}
	return b.Build(), nil
}

// Statements returns the CREATE statements of all entities: user types in
// dependency order, then tables in registration order.
func (s SchemaCreator) Statements() ([]*cql.Statement, error) {
	types, tables, err := s.entities()
	if err != nil {
		return nil, err
	}
	sts := make([]*cql.Statement, 0, len(types)+len(tables))
	for _, e := range types {
		st, err := s.CreateTypeStatement(e)
		if err != nil {
			return nil, err
		}
		sts = append(sts, st)
	}
	for _, e := range tables {
		st, err := s.CreateTableStatement(e)
		if err != nil {
			return nil, err
		}
		sts = append(sts, st)
	}
	return sts, nil
}

// CreateAll executes the statements returned by Statements.
func (s SchemaCreator) CreateAll(ctx context.Context) error {
	sts, err := s.Statements()
	if err != nil {
		return err
	}
	for _, st := range sts {
		if _, err := s.t.exec(ctx, st, "", "create"); err != nil {
			return err
		}
	}
	return nil
}

// DropAll drops all tables, then all user types in reverse dependency
// order.
func (s SchemaCreator) DropAll(ctx context.Context) error {
	types, tables, err := s.entities()
	if err != nil {
		return err
	}
	for _, e := range tables {
		if _, err := s.t.exec(ctx, cql.DropTable(s.t.keyspace, e.Table(), s.ifNotExists), e.Name(), "drop"); err != nil {
			return err
		}
	}
	for _, e := range slices.Backward(types) {
		if _, err := s.t.exec(ctx, cql.DropType(s.t.keyspace, e.Table(), s.ifNotExists), e.Name(), "drop"); err != nil {
			return err
		}
		s.t.conv.Invalidate(e.Table())
	}
	return nil
}

// KeyspaceSpec describes a keyspace. DataCenters selects
// NetworkTopologyStrategy, otherwise SimpleStrategy is used with
// ReplicationFactor replicas, one when unset.
type KeyspaceSpec struct {
	// Name defaults to the template keyspace.
	Name              string
	ReplicationFactor int
	DataCenters       map[string]int
	DurableWrites     *bool
}

func (s SchemaCreator) keyspace(name string) (string, error) {
	if name == "" {
		name = s.t.keyspace
	}
	if name == "" {
		return "", cassava.NewValidationError("keyspace", errors.New("name is required"))
	}
	return name, nil
}

// CreateKeyspaceStatement returns the CREATE KEYSPACE statement of spec.
func (s SchemaCreator) CreateKeyspaceStatement(spec KeyspaceSpec) (*cql.Statement, error) {
	name, err := s.keyspace(spec.Name)
	if err != nil {
		return nil, err
	}
	b := cql.CreateKeyspace(name)
	if s.ifNotExists {
		b.IfNotExists()
	}
	switch {
	case len(spec.DataCenters) > 0:
		b.NetworkReplication(spec.DataCenters)
	case spec.ReplicationFactor > 0:
		b.SimpleReplication(spec.ReplicationFactor)
	case spec.ReplicationFactor < 0:
		return nil, cassava.NewValidationError("keyspace", errors.New("replication factor must be positive"))
	}
	if spec.DurableWrites != nil {
		b.DurableWrites(*spec.DurableWrites)
	}
	return b.Build(), nil
}

// CreateKeyspace creates the keyspace described by spec.
func (s SchemaCreator) CreateKeyspace(ctx context.Context, spec KeyspaceSpec) error {
	st, err := s.CreateKeyspaceStatement(spec)
	if err != nil {
		return err
	}
	_, err = s.t.exec(ctx, st, "", "create keyspace")
	return err
}

// DropKeyspace drops the named keyspace, or the template keyspace when
// name is empty, with everything in it.
func (s SchemaCreator) DropKeyspace(ctx context.Context, name string) error {
	name, err := s.keyspace(name)
	if err != nil {
		return err
	}
	_, err = s.t.exec(ctx, cql.DropKeyspace(name, s.ifNotExists), "", "drop keyspace")
	return err
}

// entities returns the user types, ordered so that a type follows the
// types it uses, and the tables.
func (s SchemaCreator) entities() (types, tables []*mapping.Entity, err error) {
	all, err := s.t.mc.Entities()
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[*mapping.Entity]bool)
	var visit func(*mapping.Entity) error
	visit = func(e *mapping.Entity) error {
		if seen[e] {
			return nil
		}
		seen[e] = true
		for _, p := range e.Properties() {
			if !p.IsNested() {
				continue
			}
			n, err := e.Nested(p)
			if err != nil {
				return err
			}
			if err := visit(n); err != nil {
				return err
			}
		}
		if e.IsUserType() {
			types = append(types, e)
		}
		return nil
	}
	for _, e := range all {
		if err := visit(e); err != nil {
			return nil, nil, err
		}
		if e.Kind() == mapping.KindTable {
			tables = append(tables, e)
		}
	}
	return types, tables, nil
}

