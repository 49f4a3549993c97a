package convert

import (
	"strings"

	"github.com/syssam/cassava/dialect/cql"
)

// Record is a ValueSink collecting column values in write order.
type Record struct {
	Columns []cql.Identifier
	Values  []any
}

// SetValue implements cql.ValueSink. Writing a column twice replaces the
// first value.
func (r *Record) SetValue(col cql.Identifier, v any) {
	for i, c := range r.Columns {
		if c.Equal(col) {
			r.Values[i] = v
			return
		}
	}
	r.Columns = append(r.Columns, col)
	r.Values = append(r.Values, v)
}

// Len returns the number of columns.
func (r *Record) Len() int { return len(r.Columns) }

// Lookup implements the lookup of cql.Row.
func (r *Record) Lookup(name string) (any, bool) {
	for i, c := range r.Columns {
		if c.Name() == name {
			return r.Values[i], true
		}
	}
	for i, c := range r.Columns {
		if !c.IsQuoted() && strings.EqualFold(c.Name(), name) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Row returns the record as a result row.
func (r *Record) Row() cql.Row {
	cols := make([]cql.ColumnDefinition, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = cql.ColumnDefinition{Name: c.Name()}
	}
	return cql.NewRow(cols, append([]any(nil), r.Values...))
}

var _ cql.ValueSink = (*Record)(nil)
