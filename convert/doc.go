// Package convert converts mapped Go values to statement values and result
// rows back to Go values.
//
// Writes skip NULL properties. Empty lists, sets and maps are NULL as well,
// so they are never written and read back as nil. User types are written as
// *cql.UDTValue using the schema returned by the UserTypeResolver, tuples as
// *cql.TupleValue ordered by element ordinal.
//
// Built-in conversions:
//
//	civil.Time       <-> cql.LocalTime (milliseconds since midnight)
//	civil.Date       <-> cql.LocalDate (days since the epoch)
//	time.Time        <-  cql.LocalDate
//	uuid.UUID        <-> gocql.UUID
//	decimal.Decimal  <-> *inf.Dec
//	gocql.Duration   passed through (months, days, nanoseconds)
//
// Integers read from narrower columns are widened, and named basic types,
// e.g. type Status string, are read from values of their underlying type. Custom conversions
// registered with WithConversions are consulted before all of these.
package convert
