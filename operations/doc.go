// Package operations executes entity reads and writes against a cql.Driver.
//
// A Template ties a driver to a mapping context and its converter. The
// generic operations Select, Insert, Update and Delete are immutable
// builders: each method returns a new operation, and the terminal method
// (All, One, Apply, ...) renders and executes the statement.
//
//	tpl, err := operations.New(session, mc, operations.WithKeyspace("app"))
//	if err != nil {
//		return err
//	}
//	people, err := operations.Select[Person](tpl).
//		Matching(query.New(query.Where("lastname").EQ("White"))).
//		All(ctx)
//
// For returns the entity-centric façade of a type, with id based lookups and
// asynchronous variants:
//
//	f := operations.For[Person](tpl).SelectOneByIDAsync(ctx, key)
//	p, err := f.Await(ctx)
//
// Entities with a version property are written with optimistic locking: an
// insert of version zero uses IF NOT EXISTS, updates and deletes compare the
// stored version, and a rejected write fails with
// *cassava.OptimisticLockingError after restoring the in-memory version.
package operations
