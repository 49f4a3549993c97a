package cql

import (
	"strconv"
	"strings"
	"time"
)

// Operator is a relation operator of a WHERE or IF clause.
type Operator string

// Relation operators.
const (
	OpEQ          Operator = "="
	OpNEQ         Operator = "!="
	OpGT          Operator = ">"
	OpGTE         Operator = ">="
	OpLT          Operator = "<"
	OpLTE         Operator = "<="
	OpIn          Operator = "IN"
	OpLike        Operator = "LIKE"
	OpContains    Operator = "CONTAINS"
	OpContainsKey Operator = "CONTAINS KEY"
	OpNotNull     Operator = "IS NOT NULL"
)

// Relation is a single column restriction, e.g. lastname=?.
type Relation struct {
	Column Identifier
	Op     Operator
	Values []any
}

// EQ returns col=?.
func EQ(col Identifier, v any) Relation { return Relation{Column: col, Op: OpEQ, Values: []any{v}} }

// NEQ returns col!=?. Only valid in IF clauses.
func NEQ(col Identifier, v any) Relation { return Relation{Column: col, Op: OpNEQ, Values: []any{v}} }

// GT returns col>?.
func GT(col Identifier, v any) Relation { return Relation{Column: col, Op: OpGT, Values: []any{v}} }

// GTE returns col>=?.
func GTE(col Identifier, v any) Relation { return Relation{Column: col, Op: OpGTE, Values: []any{v}} }

// LT returns col<?.
func LT(col Identifier, v any) Relation { return Relation{Column: col, Op: OpLT, Values: []any{v}} }

// LTE returns col<=?.
func LTE(col Identifier, v any) Relation { return Relation{Column: col, Op: OpLTE, Values: []any{v}} }

// In returns col IN (?,...).
func In(col Identifier, vs ...any) Relation { return Relation{Column: col, Op: OpIn, Values: vs} }

// Like returns col LIKE ?.
func Like(col Identifier, pattern string) Relation {
	return Relation{Column: col, Op: OpLike, Values: []any{pattern}}
}

// Contains returns col CONTAINS ?.
func Contains(col Identifier, v any) Relation {
	return Relation{Column: col, Op: OpContains, Values: []any{v}}
}

// ContainsKey returns col CONTAINS KEY ?.
func ContainsKey(col Identifier, v any) Relation {
	return Relation{Column: col, Op: OpContainsKey, Values: []any{v}}
}

// NotNull returns col IS NOT NULL.
func NotNull(col Identifier) Relation { return Relation{Column: col, Op: OpNotNull} }

func (r Relation) render(sb *strings.Builder, args *[]any) {
	sb.WriteString(r.Column.String())
	switch r.Op {
	case OpNotNull:
		sb.WriteString(" IS NOT NULL")
	case OpIn:
		sb.WriteString(" IN (")
		for i, v := range r.Values {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('?')
			*args = append(*args, v)
		}
		sb.WriteByte(')')
	case OpLike, OpContains, OpContainsKey:
		sb.WriteByte(' ')
		sb.WriteString(string(r.Op))
		sb.WriteString(" ?")
		*args = append(*args, r.Values[0])
	default:
		sb.WriteString(string(r.Op))
		sb.WriteByte('?')
		*args = append(*args, r.Values[0])
	}
}

func renderRelations(sb *strings.Builder, args *[]any, keyword string, rels []Relation) {
	for i, r := range rels {
		if i == 0 {
			sb.WriteString(keyword)
		} else {
			sb.WriteString(" AND ")
		}
		r.render(sb, args)
	}
}

func tableName(sb *strings.Builder, keyspace string, table Identifier) {
	if keyspace != "" {
		sb.WriteString(keyspace)
		sb.WriteByte('.')
	}
	sb.WriteString(table.String())
}

// Ordering is an ORDER BY term.
type Ordering struct {
	Column     Identifier
	Descending bool
}

// SelectBuilder builds SELECT statements.
type SelectBuilder struct {
	keyspace       string
	table          Identifier
	columns        []string
	distinct       bool
	where          []Relation
	orderBy        []Ordering
	limit          int
	allowFiltering bool
}

// SelectFrom returns a builder for SELECT * FROM table.
func SelectFrom(table Identifier) *SelectBuilder {
	return &SelectBuilder{table: table}
}

// Keyspace qualifies the table with a keyspace.
func (s *SelectBuilder) Keyspace(ks string) *SelectBuilder {
	s.keyspace = ks
	return s
}

// Columns restricts the selection to the given columns.
func (s *SelectBuilder) Columns(cols ...Identifier) *SelectBuilder {
	for _, c := range cols {
		s.columns = append(s.columns, c.String())
	}
	return s
}

// Count selects COUNT(1) instead of columns.
func (s *SelectBuilder) Count() *SelectBuilder {
	s.columns = []string{"COUNT(1)"}
	return s
}

// Distinct selects distinct partition keys.
func (s *SelectBuilder) Distinct() *SelectBuilder {
	s.distinct = true
	return s
}

// Where appends relations joined by AND.
func (s *SelectBuilder) Where(rels ...Relation) *SelectBuilder {
	s.where = append(s.where, rels...)
	return s
}

// OrderBy appends an ordering term.
func (s *SelectBuilder) OrderBy(col Identifier, desc bool) *SelectBuilder {
	s.orderBy = append(s.orderBy, Ordering{Column: col, Descending: desc})
	return s
}

// Limit sets the LIMIT clause. Zero or less means no limit.
func (s *SelectBuilder) Limit(n int) *SelectBuilder {
	s.limit = n
	return s
}

// AllowFiltering appends ALLOW FILTERING.
func (s *SelectBuilder) AllowFiltering() *SelectBuilder {
	s.allowFiltering = true
	return s
}

// Build renders the statement.
func (s *SelectBuilder) Build() *Statement {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT ")
	if s.distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		sb.WriteByte('*')
	} else {
		sb.WriteString(strings.Join(s.columns, ","))
	}
	sb.WriteString(" FROM ")
	tableName(&sb, s.keyspace, s.table)
	renderRelations(&sb, &args, " WHERE ", s.where)
	for i, o := range s.orderBy {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteByte(',')
		}
		sb.WriteString(o.Column.String())
		if o.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}
	if s.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(s.limit))
	}
	if s.allowFiltering {
		sb.WriteString(" ALLOW FILTERING")
	}
	return NewStatement(sb.String(), args...).WithIdempotent(true)
}

// using renders the USING clause shared by writes.
type using struct {
	ttl       *time.Duration
	timestamp *int64
}

func (u using) render(sb *strings.Builder) {
	var parts []string
	if u.ttl != nil {
		parts = append(parts, "TTL "+strconv.FormatInt(int64(u.ttl.Seconds()), 10))
	}
	if u.timestamp != nil {
		parts = append(parts, "TIMESTAMP "+strconv.FormatInt(*u.timestamp, 10))
	}
	if len(parts) > 0 {
		sb.WriteString(" USING ")
		sb.WriteString(strings.Join(parts, " AND "))
	}
}

// ValueSink receives column values, e.g. from an entity converter.
type ValueSink interface {
	SetValue(column Identifier, value any)
}

// InsertBuilder builds INSERT statements.
type InsertBuilder struct {
	keyspace    string
	table       Identifier
	columns     []Identifier
	values      []any
	ifNotExists bool
	using       using
}

// InsertInto returns a builder for INSERT INTO table.
func InsertInto(table Identifier) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Keyspace qualifies the table with a keyspace.
func (i *InsertBuilder) Keyspace(ks string) *InsertBuilder {
	i.keyspace = ks
	return i
}

// Value appends a column value. Setting the same column twice replaces the
// first value.
func (i *InsertBuilder) Value(col Identifier, v any) *InsertBuilder {
	for idx, c := range i.columns {
		if c.Equal(col) {
			i.values[idx] = v
			return i
		}
	}
	i.columns = append(i.columns, col)
	i.values = append(i.values, v)
	return i
}

// SetValue implements ValueSink.
func (i *InsertBuilder) SetValue(col Identifier, v any) { i.Value(col, v) }

// Columns returns the columns set so far.
func (i *InsertBuilder) Columns() []Identifier { return i.columns }

// IfNotExists makes the insert a lightweight transaction.
func (i *InsertBuilder) IfNotExists() *InsertBuilder {
	i.ifNotExists = true
	return i
}

// TTL sets USING TTL. Sub-second precision is truncated.
func (i *InsertBuilder) TTL(d time.Duration) *InsertBuilder {
	i.using.ttl = &d
	return i
}

// Timestamp sets USING TIMESTAMP in microseconds.
func (i *InsertBuilder) Timestamp(micros int64) *InsertBuilder {
	i.using.timestamp = &micros
	return i
}

// Build renders the statement.
func (i *InsertBuilder) Build() *Statement {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	tableName(&sb, i.keyspace, i.table)
	sb.WriteString(" (")
	for idx, c := range i.columns {
		if idx > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c.String())
	}
	sb.WriteString(") VALUES (")
	for idx := range i.columns {
		if idx > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('?')
	}
	sb.WriteByte(')')
	if i.ifNotExists {
		sb.WriteString(" IF NOT EXISTS")
	}
	i.using.render(&sb)
	st := NewStatement(sb.String(), append([]any(nil), i.values...)...)
	if i.ifNotExists {
		return st.WithConditional(true)
	}
	return st.WithIdempotent(true)
}

type assignKind uint8

const (
	assignSet assignKind = iota
	assignAdd
	assignPrepend
	assignRemove
	assignElement
)

// Assignment is a single SET term of an UPDATE statement.
type Assignment struct {
	kind   assignKind
	Column Identifier
	Key    any
	Value  any
}

// Set returns col=?.
func Set(col Identifier, v any) Assignment { return Assignment{kind: assignSet, Column: col, Value: v} }

// Increment returns col=col+? for counters.
func Increment(col Identifier, delta int64) Assignment {
	return Assignment{kind: assignAdd, Column: col, Value: delta}
}

// Append returns col=col+? for collections.
func Append(col Identifier, v any) Assignment {
	return Assignment{kind: assignAdd, Column: col, Value: v}
}

// Prepend returns col=?+col for lists.
func Prepend(col Identifier, v any) Assignment {
	return Assignment{kind: assignPrepend, Column: col, Value: v}
}

// Remove returns col=col-? for collections and counters.
func Remove(col Identifier, v any) Assignment {
	return Assignment{kind: assignRemove, Column: col, Value: v}
}

// SetElement returns col[?]=? for list indexes and map keys.
func SetElement(col Identifier, key, v any) Assignment {
	return Assignment{kind: assignElement, Column: col, Key: key, Value: v}
}

// Idempotent reports whether the assignment can be replayed safely.
func (a Assignment) Idempotent() bool {
	return a.kind == assignSet || a.kind == assignElement
}

func (a Assignment) render(sb *strings.Builder, args *[]any) {
	col := a.Column.String()
	switch a.kind {
	case assignAdd:
		sb.WriteString(col + "=" + col + "+?")
	case assignPrepend:
		sb.WriteString(col + "=?+" + col)
	case assignRemove:
		sb.WriteString(col + "=" + col + "-?")
	case assignElement:
		sb.WriteString(col + "[?]=?")
		*args = append(*args, a.Key)
	default:
		sb.WriteString(col + "=?")
	}
	*args = append(*args, a.Value)
}

// UpdateBuilder builds UPDATE statements.
type UpdateBuilder struct {
	keyspace    string
	table       Identifier
	assignments []Assignment
	where       []Relation
	conditions  []Relation
	ifExists    bool
	using       using
}

// Update returns a builder for UPDATE table.
func Update(table Identifier) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Keyspace qualifies the table with a keyspace.
func (u *UpdateBuilder) Keyspace(ks string) *UpdateBuilder {
	u.keyspace = ks
	return u
}

// Assign appends SET terms.
func (u *UpdateBuilder) Assign(as ...Assignment) *UpdateBuilder {
	u.assignments = append(u.assignments, as...)
	return u
}

// SetValue implements ValueSink by appending col=?.
func (u *UpdateBuilder) SetValue(col Identifier, v any) {
	u.assignments = append(u.assignments, Set(col, v))
}

// Assignments returns the SET terms added so far.
func (u *UpdateBuilder) Assignments() []Assignment { return u.assignments }

// Where appends key relations.
func (u *UpdateBuilder) Where(rels ...Relation) *UpdateBuilder {
	u.where = append(u.where, rels...)
	return u
}

// If appends IF conditions. It clears IfExists.
func (u *UpdateBuilder) If(conds ...Relation) *UpdateBuilder {
	u.conditions = append(u.conditions, conds...)
	u.ifExists = false
	return u
}

// IfExists makes the update apply only to an existing row. It clears IF conditions.
func (u *UpdateBuilder) IfExists() *UpdateBuilder {
	u.ifExists = true
	u.conditions = nil
	return u
}

// TTL sets USING TTL.
func (u *UpdateBuilder) TTL(d time.Duration) *UpdateBuilder {
	u.using.ttl = &d
	return u
}

// Timestamp sets USING TIMESTAMP in microseconds.
func (u *UpdateBuilder) Timestamp(micros int64) *UpdateBuilder {
	u.using.timestamp = &micros
	return u
}

// Build renders the statement.
func (u *UpdateBuilder) Build() *Statement {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("UPDATE ")
	tableName(&sb, u.keyspace, u.table)
	u.using.render(&sb)
	idempotent := true
	for i, a := range u.assignments {
		if i == 0 {
			sb.WriteString(" SET ")
		} else {
			sb.WriteByte(',')
		}
		a.render(&sb, &args)
		idempotent = idempotent && a.Idempotent()
	}
	renderRelations(&sb, &args, " WHERE ", u.where)
	conditional := u.ifExists || len(u.conditions) > 0
	if u.ifExists {
		sb.WriteString(" IF EXISTS")
	}
	renderRelations(&sb, &args, " IF ", u.conditions)
	st := NewStatement(sb.String(), args...)
	if conditional {
		return st.WithConditional(true)
	}
	return st.WithIdempotent(idempotent)
}

// DeleteBuilder builds DELETE statements.
type DeleteBuilder struct {
	keyspace   string
	table      Identifier
	columns    []Identifier
	where      []Relation
	conditions []Relation
	ifExists   bool
	using      using
}

// DeleteFrom returns a builder for DELETE FROM table.
func DeleteFrom(table Identifier) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Keyspace qualifies the table with a keyspace.
func (d *DeleteBuilder) Keyspace(ks string) *DeleteBuilder {
	d.keyspace = ks
	return d
}

// Columns restricts the delete to the given columns.
func (d *DeleteBuilder) Columns(cols ...Identifier) *DeleteBuilder {
	d.columns = append(d.columns, cols...)
	return d
}

// Where appends key relations.
func (d *DeleteBuilder) Where(rels ...Relation) *DeleteBuilder {
	d.where = append(d.where, rels...)
	return d
}

// If appends IF conditions. It clears IfExists.
func (d *DeleteBuilder) If(conds ...Relation) *DeleteBuilder {
	d.conditions = append(d.conditions, conds...)
	d.ifExists = false
	return d
}

// IfExists makes the delete apply only to an existing row. It clears IF conditions.
func (d *DeleteBuilder) IfExists() *DeleteBuilder {
	d.ifExists = true
	d.conditions = nil
	return d
}

// Timestamp sets USING TIMESTAMP in microseconds.
func (d *DeleteBuilder) Timestamp(micros int64) *DeleteBuilder {
	d.using.timestamp = &micros
	return d
}

// Build renders the statement.
func (d *DeleteBuilder) Build() *Statement {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("DELETE ")
	for i, c := range d.columns {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c.String())
	}
	if len(d.columns) > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString("FROM ")
	tableName(&sb, d.keyspace, d.table)
	d.using.render(&sb)
	renderRelations(&sb, &args, " WHERE ", d.where)
	if d.ifExists {
		sb.WriteString(" IF EXISTS")
	}
	renderRelations(&sb, &args, " IF ", d.conditions)
	st := NewStatement(sb.String(), args...)
	if d.ifExists || len(d.conditions) > 0 {
		return st.WithConditional(true)
	}
	return st.WithIdempotent(true)
}

// Truncate returns TRUNCATE table.
func Truncate(keyspace string, table Identifier) *Statement {
	var sb strings.Builder
	sb.WriteString("TRUNCATE ")
	tableName(&sb, keyspace, table)
	return NewStatement(sb.String())
}

// BatchType selects the batch log behavior.
type BatchType uint8

// Batch types.
const (
	LoggedBatch BatchType = iota
	UnloggedBatch
	CounterBatch
)

// BatchBuilder groups write statements into a single BEGIN BATCH statement.
type BatchBuilder struct {
	typ        BatchType
	statements []*Statement
	using      using
}

// NewBatch returns an empty batch of the given type.
func NewBatch(typ BatchType) *BatchBuilder {
	return &BatchBuilder{typ: typ}
}

// Add appends statements to the batch.
func (b *BatchBuilder) Add(sts ...*Statement) *BatchBuilder {
	b.statements = append(b.statements, sts...)
	return b
}

// Len returns the number of statements in the batch.
func (b *BatchBuilder) Len() int { return len(b.statements) }

// Timestamp sets USING TIMESTAMP for the whole batch.
func (b *BatchBuilder) Timestamp(micros int64) *BatchBuilder {
	b.using.timestamp = &micros
	return b
}

// Build renders the batch. The bound values of the statements are
// concatenated in order.
func (b *BatchBuilder) Build() *Statement {
	var (
		sb          strings.Builder
		args        []any
		conditional bool
	)
	switch b.typ {
	case UnloggedBatch:
		sb.WriteString("BEGIN UNLOGGED BATCH")
	case CounterBatch:
		sb.WriteString("BEGIN COUNTER BATCH")
	default:
		sb.WriteString("BEGIN BATCH")
	}
	b.using.render(&sb)
	for _, st := range b.statements {
		sb.WriteByte(' ')
		sb.WriteString(st.CQL())
		sb.WriteByte(';')
		args = append(args, st.Values()...)
		conditional = conditional || st.Conditional()
	}
	sb.WriteString(" APPLY BATCH")
	return NewStatement(sb.String(), args...).WithConditional(conditional)
}
