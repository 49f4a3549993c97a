package cql

import "strings"

// ColumnDefinition describes a result column.
type ColumnDefinition struct {
	Name string
	Type DataType
}

// Row is a single result row.
type Row interface {
	// Columns returns the column definitions of the row.
	Columns() []ColumnDefinition
	// Value returns the i-th column value. NULL is nil.
	Value(i int) any
	// Lookup returns the value of the named column and whether the row has
	// such a column.
	Lookup(name string) (any, bool)
}

// Rows is a lazy, single-pass iterator over a result set.
//
//	defer rows.Close()
//	for rows.Next() {
//	    row := rows.Row()
//	    ...
//	}
//	if err := rows.Err(); err != nil {
//	    ...
//	}
type Rows interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
	// PagingState returns the state to resume after the current page. It
	// is nil when there are no more pages.
	PagingState() []byte
}

// Result is the outcome of a statement executed with Exec.
type Result struct {
	// Applied is false when a lightweight transaction was rejected.
	Applied bool
	// Rows holds the current values returned by a rejected conditional write.
	Rows []Row
}

// MapRow is a Row backed by slices.
type MapRow struct {
	cols   []ColumnDefinition
	values []any
}

// NewRow returns a row with the given columns and values.
func NewRow(cols []ColumnDefinition, values []any) *MapRow {
	return &MapRow{cols: cols, values: values}
}

// RowOf returns a row from alternating column names and values. Column types
// are left unset. It panics on an odd number of arguments.
func RowOf(kv ...any) *MapRow {
	if len(kv)%2 != 0 {
		panic("cql: RowOf expects name/value pairs")
	}
	r := &MapRow{}
	for i := 0; i < len(kv); i += 2 {
		r.cols = append(r.cols, ColumnDefinition{Name: kv[i].(string)})
		r.values = append(r.values, kv[i+1])
	}
	return r
}

// Columns implements Row.
func (r *MapRow) Columns() []ColumnDefinition { return r.cols }

// Value implements Row.
func (r *MapRow) Value(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Lookup implements Row. Column names match exactly first, then
// case-insensitively.
func (r *MapRow) Lookup(name string) (any, bool) {
	for i, c := range r.cols {
		if c.Name == name {
			return r.values[i], true
		}
	}
	for i, c := range r.cols {
		if strings.EqualFold(c.Name, name) {
			return r.values[i], true
		}
	}
	return nil, false
}

// SliceRows is a Rows over an in-memory slice.
type SliceRows struct {
	rows        []Row
	pos         int
	pagingState []byte
	err         error
	closed      bool
}

// NewRows returns an iterator over rows.
func NewRows(rows ...Row) *SliceRows {
	return &SliceRows{rows: rows, pos: -1}
}

// WithPagingState sets the paging state reported after iteration.
func (r *SliceRows) WithPagingState(state []byte) *SliceRows {
	r.pagingState = state
	return r
}

// WithError makes the iterator fail with err once the rows are consumed.
func (r *SliceRows) WithError(err error) *SliceRows {
	r.err = err
	return r
}

// Next implements Rows.
func (r *SliceRows) Next() bool {
	if r.closed || r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

// Row implements Rows.
func (r *SliceRows) Row() Row {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil
	}
	return r.rows[r.pos]
}

// Err implements Rows.
func (r *SliceRows) Err() error {
	if r.pos+1 >= len(r.rows) {
		return r.err
	}
	return nil
}

// Close implements Rows.
func (r *SliceRows) Close() error {
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *SliceRows) Closed() bool { return r.closed }

// PagingState implements Rows.
func (r *SliceRows) PagingState() []byte { return r.pagingState }

var (
	_ Row  = (*MapRow)(nil)
	_ Rows = (*SliceRows)(nil)
)
