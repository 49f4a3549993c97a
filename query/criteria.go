package query

import (
	"fmt"
	"slices"

	"github.com/syssam/cassava/dialect/cql"
)

// Criteria is a single predicate on a property: a property path, an
// operator and its operands.
type Criteria struct {
	Property string
	Op       cql.Operator
	Values   []any
}

// String renders the criteria for logs, e.g. `lastname = [White]`.
func (c Criteria) String() string {
	if c.Op == cql.OpNotNull {
		return c.Property + " " + string(c.Op)
	}
	return fmt.Sprintf("%s %s %v", c.Property, c.Op, c.Values)
}

// Column is a typed property reference providing criteria constructors.
// Declaring columns once per entity keeps query values type-checked:
//
//	var Lastname = query.Column[string]("lastname")
//	q := query.New(Lastname.EQ("White"))
type Column[V any] string

// Where returns an untyped column for the given property path.
func Where(path string) Column[any] { return Column[any](path) }

// Name returns the property path.
func (c Column[V]) Name() string { return string(c) }

func (c Column[V]) criteria(op cql.Operator, vs ...any) Criteria {
	return Criteria{Property: string(c), Op: op, Values: vs}
}

// EQ returns property = v.
func (c Column[V]) EQ(v V) Criteria { return c.criteria(cql.OpEQ, v) }

// NEQ returns property != v. Cassandra accepts it in IF conditions only.
func (c Column[V]) NEQ(v V) Criteria { return c.criteria(cql.OpNEQ, v) }

// GT returns property > v.
func (c Column[V]) GT(v V) Criteria { return c.criteria(cql.OpGT, v) }

// GTE returns property >= v.
func (c Column[V]) GTE(v V) Criteria { return c.criteria(cql.OpGTE, v) }

// LT returns property < v.
func (c Column[V]) LT(v V) Criteria { return c.criteria(cql.OpLT, v) }

// LTE returns property <= v.
func (c Column[V]) LTE(v V) Criteria { return c.criteria(cql.OpLTE, v) }

// In returns property IN (vs...).
func (c Column[V]) In(vs ...V) Criteria {
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i] = v
	}
	return c.criteria(cql.OpIn, values...)
}

// Like returns property LIKE pattern. It requires a SASI index.
func (c Column[V]) Like(pattern string) Criteria { return c.criteria(cql.OpLike, pattern) }

// Contains returns property CONTAINS v for collection properties.
func (c Column[V]) Contains(v any) Criteria { return c.criteria(cql.OpContains, v) }

// ContainsKey returns property CONTAINS KEY k for map properties.
func (c Column[V]) ContainsKey(k any) Criteria { return c.criteria(cql.OpContainsKey, k) }

// NotNull returns property IS NOT NULL. It is valid in materialized view
// definitions only.
func (c Column[V]) NotNull() Criteria { return c.criteria(cql.OpNotNull) }

// Filter is an immutable conjunction of criteria.
type Filter struct {
	criteria []Criteria
}

// NewFilter returns a filter of the given criteria.
func NewFilter(cs ...Criteria) Filter {
	return Filter{criteria: slices.Clone(cs)}
}

// And returns a new filter with cs appended. The receiver is unchanged.
func (f Filter) And(cs ...Criteria) Filter {
	return Filter{criteria: append(slices.Clip(f.criteria), cs...)}
}

// Criteria returns a copy of the criteria.
func (f Filter) Criteria() []Criteria { return slices.Clone(f.criteria) }

// IsEmpty reports whether the filter has no criteria.
func (f Filter) IsEmpty() bool { return len(f.criteria) == 0 }

// Len returns the number of criteria.
func (f Filter) Len() int { return len(f.criteria) }

// Order is an ordering on a property.
type Order struct {
	Property   string
	Descending bool
}

// Asc orders ascending by property.
func Asc(property string) Order { return Order{Property: property} }

// Desc orders descending by property.
func Desc(property string) Order { return Order{Property: property, Descending: true} }

// Sort is an immutable list of orderings.
type Sort struct {
	orders []Order
}

// By returns a sort of the given orders.
func By(orders ...Order) Sort { return Sort{orders: slices.Clone(orders)} }

// Unsorted returns an empty sort.
func Unsorted() Sort { return Sort{} }

// And returns a new sort with orders appended.
func (s Sort) And(orders ...Order) Sort {
	return Sort{orders: append(slices.Clip(s.orders), orders...)}
}

// Orders returns a copy of the orderings.
func (s Sort) Orders() []Order { return slices.Clone(s.orders) }

// IsSorted reports whether the sort has orderings.
func (s Sort) IsSorted() bool { return len(s.orders) > 0 }
