package query

import (
	"slices"
	"strings"
)

// Query describes a SELECT, or the rows affected by an UPDATE or DELETE. A
// Query is immutable: every method returns a new value.
type Query struct {
	filter         Filter
	columns        []string
	sort           Sort
	limit          int
	distinct       bool
	allowFiltering bool
	page           PageRequest
}

// New returns a query matching all criteria.
func New(cs ...Criteria) Query { return Query{filter: NewFilter(cs...)} }

// Empty returns a query matching all rows.
func Empty() Query { return Query{} }

// FromFilter returns a query of the given filter.
func FromFilter(f Filter) Query { return Query{filter: f} }

// And returns the query with cs added to its filter.
func (q Query) And(cs ...Criteria) Query {
	q.filter = q.filter.And(cs...)
	return q
}

// WithColumns restricts the selection to the given property paths.
func (q Query) WithColumns(paths ...string) Query {
	q.columns = append(slices.Clip(q.columns), paths...)
	return q
}

// WithSort returns the query ordered by s. Orderings of previous calls are
// kept in front.
func (q Query) WithSort(s Sort) Query {
	q.sort = q.sort.And(s.orders...)
	return q
}

// WithLimit limits the number of rows. Zero removes the limit.
func (q Query) WithLimit(n int) Query {
	q.limit = max(n, 0)
	return q
}

// WithDistinct selects distinct partition keys.
func (q Query) WithDistinct() Query {
	q.distinct = true
	return q
}

// WithAllowFiltering allows server side filtering.
func (q Query) WithAllowFiltering() Query {
	q.allowFiltering = true
	return q
}

// WithPage sets the page request used by slice queries.
func (q Query) WithPage(p PageRequest) Query {
	q.page = p
	return q
}

// Filter returns the query filter.
func (q Query) Filter() Filter { return q.filter }

// Columns returns the selected property paths. Empty selects all.
func (q Query) Columns() []string { return slices.Clone(q.columns) }

// Sort returns the query sort.
func (q Query) Sort() Sort { return q.sort }

// Limit returns the row limit, zero for none.
func (q Query) Limit() int { return q.limit }

// IsLimited reports whether the query has a row limit.
func (q Query) IsLimited() bool { return q.limit > 0 }

// IsDistinct reports whether the query selects distinct partition keys.
func (q Query) IsDistinct() bool { return q.distinct }

// AllowsFiltering reports whether ALLOW FILTERING is set.
func (q Query) AllowsFiltering() bool { return q.allowFiltering }

// Page returns the page request.
func (q Query) Page() PageRequest { return q.page }

// String renders the query for logs.
func (q Query) String() string {
	var sb strings.Builder
	sb.WriteString("Query{")
	for i, c := range q.filter.criteria {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c.String())
	}
	for i, o := range q.sort.orders {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(o.Property)
		if o.Descending {
			sb.WriteString(" DESC")
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
