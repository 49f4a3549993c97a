package cql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"github.com/syssam/cassava/dialect"
)

// Driver executes statements against a cluster. The gocql-backed Session is
// the production implementation; the stats and debug drivers wrap any Driver.
type Driver interface {
	// Query executes a read and returns a lazy iterator over its rows.
	// The caller must close the returned Rows.
	Query(ctx context.Context, st *Statement) (Rows, error)
	// Exec executes a write. Rejected lightweight transactions are reported
	// through Result.Applied, not as errors.
	Exec(ctx context.Context, st *Statement) (*Result, error)
	// Close releases the driver resources.
	Close() error
	// Dialect returns the dialect name.
	Dialect() string
}

// Session is a Driver backed by a gocql session.
type Session struct {
	session  *gocql.Session
	dialect  string
	keyspace string
	tracer   gocql.Tracer

	mu    sync.Mutex
	types map[string]DataType
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDialect sets the dialect reported by the session.
func WithDialect(name string) SessionOption {
	return func(s *Session) {
		if name != "" {
			s.dialect = name
		}
	}
}

// WithKeyspace sets the keyspace used for schema metadata lookups.
func WithKeyspace(ks string) SessionOption {
	return func(s *Session) {
		if ks != "" {
			s.keyspace = ks
		}
	}
}

// WithTracer sets the tracer used for statements that request tracing.
// By default traces are written to the default slog logger.
func WithTracer(t gocql.Tracer) SessionOption {
	return func(s *Session) {
		s.tracer = t
	}
}

// NewSession wraps a gocql session.
func NewSession(s *gocql.Session, opts ...SessionOption) *Session {
	sess := &Session{
		session: s,
		dialect: dialect.Cassandra,
		types:   make(map[string]DataType),
	}
	for _, opt := range opts {
		opt(sess)
	}
	if sess.tracer == nil {
		sess.tracer = gocql.NewTraceWriter(s, traceLog{})
	}
	return sess
}

// Session returns the underlying gocql session.
func (s *Session) Session() *gocql.Session { return s.session }

// Keyspace returns the session keyspace.
func (s *Session) Keyspace() string { return s.keyspace }

// Dialect implements Driver.
func (s *Session) Dialect() string { return dialect.Normalize(s.dialect) }

// Close implements Driver.
func (s *Session) Close() error {
	s.session.Close()
	return nil
}

func (s *Session) query(ctx context.Context, st *Statement) (*gocql.Query, context.CancelFunc) {
	st = ApplyDefaults(ctx, st)
	cancel := context.CancelFunc(func() {})
	if d := st.ReadTimeout(); d > 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
	}
	values := make([]any, len(st.Values()))
	for i, v := range st.Values() {
		values[i] = DriverValue(v)
	}
	q := s.session.Query(st.CQL(), values...).WithContext(ctx)
	if cl, ok := st.Consistency(); ok {
		q = q.Consistency(cl)
	}
	if cl, ok := st.SerialConsistency(); ok {
		q = q.SerialConsistency(cl)
	}
	if p := st.RetryPolicy(); p != nil {
		q = q.RetryPolicy(p)
	}
	if n := st.PageSize(); n > 0 {
		q = q.PageSize(n)
	}
	if ps := st.PagingState(); len(ps) > 0 {
		q = q.PageState(ps)
	}
	if ts, ok := st.Timestamp(); ok {
		q = q.WithTimestamp(ts)
	}
	if st.Tracing() {
		q = q.Trace(s.tracer)
	}
	return q.Idempotent(st.Idempotent()), cancel
}

// Query implements Driver.
func (s *Session) Query(ctx context.Context, st *Statement) (Rows, error) {
	q, cancel := s.query(ctx, st)
	iter := q.Iter()
	cols := iter.Columns()
	defs := make([]ColumnDefinition, len(cols))
	for i, c := range cols {
		defs[i] = ColumnDefinition{Name: c.Name, Type: s.dataType(c.TypeInfo)}
	}
	return &iterRows{session: s, iter: iter, cols: cols, defs: defs, cancel: cancel}, nil
}

// Exec implements Driver.
func (s *Session) Exec(ctx context.Context, st *Statement) (*Result, error) {
	q, cancel := s.query(ctx, st)
	defer cancel()
	if !st.Conditional() {
		if err := q.Exec(); err != nil {
			return nil, fmt.Errorf("dialect/cql: exec: %w", err)
		}
		return &Result{Applied: true}, nil
	}
	current := make(map[string]any)
	applied, err := q.MapScanCAS(current)
	if err != nil {
		return nil, fmt.Errorf("dialect/cql: exec: %w", err)
	}
	res := &Result{Applied: applied}
	if !applied && len(current) > 0 {
		row := &MapRow{}
		for k, v := range current {
			row.cols = append(row.cols, ColumnDefinition{Name: k})
			row.values = append(row.values, v)
		}
		res.Rows = []Row{row}
	}
	return res, nil
}

// ResolveUserType returns the schema of the named user type from the
// cluster metadata of the session keyspace.
func (s *Session) ResolveUserType(_ context.Context, name Identifier) (*UserType, error) {
	if s.keyspace == "" {
		return nil, errors.New("dialect/cql: resolve user type: session has no keyspace")
	}
	md, err := s.session.KeyspaceMetadata(s.keyspace)
	if err != nil {
		return nil, fmt.Errorf("dialect/cql: resolve user type %s: %w", name, err)
	}
	ut, ok := md.UserTypes[name.Name()]
	if !ok {
		return nil, fmt.Errorf("dialect/cql: user type %s not found in keyspace %s", name, s.keyspace)
	}
	t := &UserType{Keyspace: ut.Keyspace, Name: name}
	for i, fn := range ut.FieldNames {
		id, err := NewIdentifier(fn, false)
		if err != nil {
			return nil, err
		}
		t.Fields = append(t.Fields, UserTypeField{Name: id, Type: s.dataType(ut.FieldTypes[i])})
	}
	return t, nil
}

var nativeTypes = map[gocql.Type]TypeName{
	gocql.TypeAscii:     TypeASCII,
	gocql.TypeBigInt:    TypeBigint,
	gocql.TypeBlob:      TypeBlob,
	gocql.TypeBoolean:   TypeBoolean,
	gocql.TypeCounter:   TypeCounter,
	gocql.TypeDate:      TypeDate,
	gocql.TypeDecimal:   TypeDecimal,
	gocql.TypeDouble:    TypeDouble,
	gocql.TypeDuration:  TypeDuration,
	gocql.TypeFloat:     TypeFloat,
	gocql.TypeInet:      TypeInet,
	gocql.TypeInt:       TypeInt,
	gocql.TypeSmallInt:  TypeSmallint,
	gocql.TypeText:      TypeText,
	gocql.TypeTime:      TypeTime,
	gocql.TypeTimestamp: TypeTimestamp,
	gocql.TypeTimeUUID:  TypeTimeUUID,
	gocql.TypeTinyInt:   TypeTinyint,
	gocql.TypeUUID:      TypeUUID,
	gocql.TypeVarchar:   TypeVarchar,
	gocql.TypeVarint:    TypeVarint,
}

// dataType maps gocql type information to a DataType. User types are
// cached by keyspace and name.
func (s *Session) dataType(info gocql.TypeInfo) DataType {
	switch t := info.(type) {
	case gocql.CollectionType:
		switch t.Type() {
		case gocql.TypeList:
			return ListOf(s.dataType(t.Elem))
		case gocql.TypeSet:
			return SetOf(s.dataType(t.Elem))
		default:
			return MapOf(s.dataType(t.Key), s.dataType(t.Elem))
		}
	case gocql.TupleTypeInfo:
		elems := make([]DataType, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = s.dataType(e)
		}
		return TupleOf(elems...)
	case gocql.UDTTypeInfo:
		key := t.KeySpace + "." + t.Name
		s.mu.Lock()
		dt, ok := s.types[key]
		s.mu.Unlock()
		if ok {
			return dt
		}
		ut := &UserType{Keyspace: t.KeySpace, Name: Ident(t.Name)}
		for _, f := range t.Elements {
			ut.Fields = append(ut.Fields, UserTypeField{Name: Ident(f.Name), Type: s.dataType(f.Type)})
		}
		dt = UDTOf(ut)
		s.mu.Lock()
		s.types[key] = dt
		s.mu.Unlock()
		return dt
	default:
		return DataType{Name: nativeTypes[info.Type()]}
	}
}

// iterRows adapts a gocql iterator to Rows.
type iterRows struct {
	session *Session
	iter    *gocql.Iter
	cols    []gocql.ColumnInfo
	defs    []ColumnDefinition
	cancel  context.CancelFunc
	row     Row
	err     error
	closed  bool
}

// Next scans the next row. Values are scanned into pointer-to-pointer
// destinations so that NULL columns surface as nil.
func (r *iterRows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	var (
		dests []any
		spans []int
	)
	for _, c := range r.cols {
		if tt, ok := c.TypeInfo.(gocql.TupleTypeInfo); ok {
			for _, e := range tt.Elems {
				dests = append(dests, nullable(e))
			}
			spans = append(spans, len(tt.Elems))
			continue
		}
		dests = append(dests, nullable(c.TypeInfo))
		spans = append(spans, 1)
	}
	if !r.iter.Scan(dests...) {
		_ = r.Close()
		return false
	}
	values := make([]any, len(r.cols))
	pos := 0
	for i, c := range r.cols {
		if tt, ok := c.TypeInfo.(gocql.TupleTypeInfo); ok {
			tv := NewTupleValue(r.defs[i].Type.Elems...)
			for j, e := range tt.Elems {
				_ = tv.Set(j, fromDriver(r.session, e, deref(dests[pos+j])))
			}
			values[i] = tv
		} else {
			values[i] = fromDriver(r.session, c.TypeInfo, deref(dests[pos]))
		}
		pos += spans[i]
	}
	r.row = &MapRow{cols: r.defs, values: values}
	return true
}

func (r *iterRows) Row() Row { return r.row }

func (r *iterRows) Err() error { return r.err }

func (r *iterRows) PagingState() []byte {
	if ps := r.iter.PageState(); len(ps) > 0 {
		return ps
	}
	return nil
}

// Close releases the iterator. The first iteration error is reported by
// both Close and Err.
func (r *iterRows) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	if err := r.iter.Close(); err != nil {
		r.err = fmt.Errorf("dialect/cql: query: %w", err)
	}
	r.cancel()
	return r.err
}

// nullable returns a **T scan destination for the type.
func nullable(info gocql.TypeInfo) any {
	return reflect.New(reflect.TypeOf(info.New())).Interface()
}

func deref(dest any) any {
	v := reflect.ValueOf(dest).Elem()
	if v.IsNil() {
		return nil
	}
	return v.Elem().Interface()
}

// fromDriver converts gocql values to the package representation: user
// types become *UDTValue, dates LocalDate, collections []any and map[any]any.
func fromDriver(s *Session, info gocql.TypeInfo, v any) any {
	if v == nil {
		return nil
	}
	switch t := info.(type) {
	case gocql.UDTTypeInfo:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		dt := s.dataType(t)
		uv := NewUDTValue(dt.UserType)
		for _, f := range t.Elements {
			_ = uv.Set(Ident(f.Name), fromDriver(s, f.Type, m[f.Name]))
		}
		return uv
	case gocql.CollectionType:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Len() == 0 {
				return nil
			}
			out := make([]any, rv.Len())
			for i := range out {
				out[i] = fromDriver(s, t.Elem, rv.Index(i).Interface())
			}
			return out
		case reflect.Map:
			if rv.Len() == 0 {
				return nil
			}
			out := make(map[any]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[fromDriver(s, t.Key, iter.Key().Interface())] = fromDriver(s, t.Elem, iter.Value().Interface())
			}
			return out
		}
		return v
	case gocql.TupleTypeInfo:
		vs, ok := v.([]any)
		if !ok {
			return v
		}
		tv := NewTupleValue(s.dataType(t).Elems...)
		for i, e := range t.Elems {
			if i < len(vs) {
				_ = tv.Set(i, fromDriver(s, e, vs[i]))
			}
		}
		return tv
	default:
		if info.Type() == gocql.TypeDate {
			if tm, ok := v.(interface{ Unix() int64 }); ok {
				return LocalDate(tm.Unix() / 86400)
			}
		}
		if info.Type() == gocql.TypeTime {
			if d, ok := v.(time.Duration); ok {
				return LocalTime(d / time.Millisecond)
			}
		}
		return v
	}
}

// traceLog writes gocql traces to the default slog logger.
type traceLog struct{}

func (traceLog) Write(p []byte) (int, error) {
	slog.Debug("cql trace", "trace", string(p))
	return len(p), nil
}

var (
	_ Driver    = (*Session)(nil)
	_ io.Writer = traceLog{}
)
