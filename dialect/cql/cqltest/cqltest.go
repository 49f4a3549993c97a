// Package cqltest provides an expectation-based cql.Driver for tests.
//
//	drv := cqltest.New()
//	drv.ExpectQuery("SELECT * FROM person WHERE id=?").
//	    WithArgs("heisenberg").
//	    WillReturnRows(cql.RowOf("id", "heisenberg", "lastname", "White"))
//	...
//	require.NoError(t, drv.ExpectationsWereMet())
package cqltest

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/syssam/cassava/dialect"
	"github.com/syssam/cassava/dialect/cql"
)

// Driver is a cql.Driver that replays scripted results. Expectations are
// matched in order.
type Driver struct {
	mu       sync.Mutex
	expected []*Expectation
	executed []*cql.Statement
	rows     []*cql.SliceRows
	regexp   bool
	lenient  bool
	closed   bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithRegexpMatcher matches expected statements as regular expressions
// instead of exact strings.
func WithRegexpMatcher() Option {
	return func(d *Driver) { d.regexp = true }
}

// Lenient makes unexpected statements succeed: reads return no rows and
// writes are applied.
func Lenient() Option {
	return func(d *Driver) { d.lenient = true }
}

// New returns a mock driver.
func New(opts ...Option) *Driver {
	d := &Driver{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Expectation describes an expected statement and its scripted outcome.
type Expectation struct {
	query       bool
	cql         string
	args        []any
	checkArgs   bool
	check       func(*cql.Statement) error
	rows        []cql.Row
	pagingState []byte
	rowsErr     error
	applied     bool
	current     []cql.Row
	err         error
	met         bool
}

// ExpectQuery expects a read.
func (d *Driver) ExpectQuery(stmt string) *Expectation {
	return d.expect(&Expectation{query: true, cql: stmt})
}

// ExpectExec expects a write. By default the write is applied.
func (d *Driver) ExpectExec(stmt string) *Expectation {
	return d.expect(&Expectation{cql: stmt, applied: true})
}

func (d *Driver) expect(e *Expectation) *Expectation {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expected = append(d.expected, e)
	return e
}

// WithArgs expects the statement to be bound to args.
func (e *Expectation) WithArgs(args ...any) *Expectation {
	e.args = args
	e.checkArgs = true
	return e
}

// WithStatement adds a custom check of the executed statement, e.g. of its
// consistency level or fetch size.
func (e *Expectation) WithStatement(check func(*cql.Statement) error) *Expectation {
	e.check = check
	return e
}

// WillReturnRows sets the rows returned by a read.
func (e *Expectation) WillReturnRows(rows ...cql.Row) *Expectation {
	e.rows = rows
	return e
}

// WillReturnPagingState sets the paging state returned by a read.
func (e *Expectation) WillReturnPagingState(state []byte) *Expectation {
	e.pagingState = state
	return e
}

// WillFailRows makes the returned rows fail with err once they are
// consumed, like a driver losing its connection mid-result.
func (e *Expectation) WillFailRows(err error) *Expectation {
	e.rowsErr = err
	return e
}

// WillNotApply makes a conditional write report Applied=false with the
// given current rows.
func (e *Expectation) WillNotApply(current ...cql.Row) *Expectation {
	e.applied = false
	e.current = current
	return e
}

// WillReturnError makes the statement fail with err.
func (e *Expectation) WillReturnError(err error) *Expectation {
	e.err = err
	return e
}

func (d *Driver) next(st *cql.Statement, query bool) (*Expectation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("cqltest: driver closed")
	}
	d.executed = append(d.executed, st)
	for _, e := range d.expected {
		if e.met {
			continue
		}
		if err := d.match(e, st, query); err != nil {
			if d.lenient {
				return nil, nil
			}
			return nil, err
		}
		e.met = true
		return e, nil
	}
	if d.lenient {
		return nil, nil
	}
	return nil, fmt.Errorf("cqltest: unexpected statement %q with args %v", st.CQL(), st.Values())
}

func (d *Driver) match(e *Expectation, st *cql.Statement, query bool) error {
	if e.query != query {
		return fmt.Errorf("cqltest: expected %s %q, got %s %q", kind(e.query), e.cql, kind(query), st.CQL())
	}
	if d.regexp {
		re, err := regexp.Compile(e.cql)
		if err != nil {
			return fmt.Errorf("cqltest: compile %q: %w", e.cql, err)
		}
		if !re.MatchString(st.CQL()) {
			return fmt.Errorf("cqltest: statement %q does not match %q", st.CQL(), e.cql)
		}
	} else if strings.TrimSpace(e.cql) != strings.TrimSpace(st.CQL()) {
		return fmt.Errorf("cqltest: expected statement %q, got %q", e.cql, st.CQL())
	}
	if e.checkArgs {
		if diff := cmp.Diff(e.args, st.Values(), cmpopts.EquateEmpty(), exportAll); diff != "" {
			return fmt.Errorf("cqltest: arguments of %q mismatch (-want +got):\n%s", st.CQL(), diff)
		}
	}
	if e.check != nil {
		if err := e.check(st); err != nil {
			return fmt.Errorf("cqltest: statement %q: %w", st.CQL(), err)
		}
	}
	return nil
}

// exportAll lets argument comparison look into values with unexported
// fields such as *cql.UDTValue.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

func kind(query bool) string {
	if query {
		return "query"
	}
	return "exec"
}

// Query implements cql.Driver.
func (d *Driver) Query(ctx context.Context, st *cql.Statement) (cql.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := d.next(st, true)
	if err != nil {
		return nil, err
	}
	rows := cql.NewRows()
	if e != nil {
		if e.err != nil {
			return nil, e.err
		}
		rows = cql.NewRows(e.rows...).WithPagingState(e.pagingState).WithError(e.rowsErr)
	}
	d.mu.Lock()
	d.rows = append(d.rows, rows)
	d.mu.Unlock()
	return rows, nil
}

// Exec implements cql.Driver.
func (d *Driver) Exec(ctx context.Context, st *cql.Statement) (*cql.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := d.next(st, false)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return &cql.Result{Applied: true}, nil
	}
	if e.err != nil {
		return nil, e.err
	}
	return &cql.Result{Applied: e.applied, Rows: e.current}, nil
}

// Close implements cql.Driver.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Dialect implements cql.Driver.
func (d *Driver) Dialect() string { return dialect.Cassandra }

// Statements returns the statements executed so far.
func (d *Driver) Statements() []*cql.Statement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*cql.Statement(nil), d.executed...)
}

// LastStatement returns the last executed statement or nil.
func (d *Driver) LastStatement() *cql.Statement {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.executed) == 0 {
		return nil
	}
	return d.executed[len(d.executed)-1]
}

// AllRowsClosed reports whether every iterator returned by Query was closed.
func (d *Driver) AllRowsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.rows {
		if !r.Closed() {
			return false
		}
	}
	return true
}

// ExpectationsWereMet returns an error listing the expectations that were
// not matched by an executed statement.
func (d *Driver) ExpectationsWereMet() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var unmet []string
	for _, e := range d.expected {
		if !e.met {
			unmet = append(unmet, fmt.Sprintf("%s %q", kind(e.query), e.cql))
		}
	}
	if len(unmet) > 0 {
		return fmt.Errorf("cqltest: unmet expectations:\n  %s", strings.Join(unmet, "\n  "))
	}
	return nil
}

var _ cql.Driver = (*Driver)(nil)
