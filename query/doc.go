// Package query provides immutable query, sort, update and paging values
// expressed in terms of entity properties, and the Mapper translating them
// into statement clauses.
//
// Every builder method returns a new value and leaves its receiver
// untouched, so queries can be shared and extended freely:
//
//	base := query.New(query.Where("lastname").EQ("White"))
//	recent := base.WithSort(query.By(query.Desc("created"))).WithLimit(10)
package query
