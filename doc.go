// Package cassava maps Go structs to Cassandra tables and derives queries
// from repository method names.
//
// This package holds the error types shared by every layer. The work is done
// by the sub-packages:
//
//   - dialect/cql: identifiers, data types, statement builders and the gocql driver
//   - mapping: entity declarations and the mapping context
//   - convert: reading rows into entities and writing entities into statements
//   - query: criteria, sorting, paging and the query mapper
//   - operations: the Template running inserts, updates, deletes and selects
//   - repository: generic repositories and derived query methods
//   - compiler/load, compiler/gen, cmd/cassava: code generation from YAML schemas
//
// A typical setup:
//
//	mc := mapping.NewContext()
//	if err := model.Register(mc); err != nil {
//	    return err
//	}
//	t, err := operations.New(drv, mc, operations.WithKeyspace("shop"))
//	if err != nil {
//	    return err
//	}
//	people, err := repository.New[model.Person](t)
//	if err != nil {
//	    return err
//	}
//	byName, err := people.Method(repository.Signature{
//	    Name:   "findByLastnameOrderByAgeDesc",
//	    Params: []repository.Param{repository.Value("lastname")},
//	})
//	if err != nil {
//	    return err
//	}
//	smiths, err := byName.All(ctx, "Smith")
package cassava
