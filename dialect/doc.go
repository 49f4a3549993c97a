// Package dialect names the wide-column dialects cassava can talk to.
//
// The statement model, the driver seam and the gocql-backed implementation
// live in the dialect/cql sub-package. This package only holds the dialect
// identifiers so that drivers, wrappers and tests agree on them without
// importing each other.
//
// # Dialect Constants
//
//	dialect.Cassandra = "cassandra"
//	dialect.Scylla    = "scylla"
//
// # Usage
//
// Opening a session:
//
//	import (
//	    "github.com/syssam/cassava/dialect"
//	    "github.com/syssam/cassava/dialect/cql"
//	)
//
//	cfg, err := cql.LoadConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	drv, err := cql.Connect(cfg, cql.WithDialect(dialect.Scylla))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Sub-packages
//
//   - dialect/cql: identifiers, data types, statement builders, driver seam
//   - dialect/cql/cqltest: an expectation-based mock driver for tests
package dialect
