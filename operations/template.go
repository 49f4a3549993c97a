package operations

import (
	"context"
	"errors"
	"log/slog"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/convert"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
	"github.com/syssam/cassava/query"
)

// Template executes entity operations against a driver. It converts
// entities with a convert.Converter and maps property based queries with a
// query.Mapper. A Template is safe for concurrent use.
type Template struct {
	drv      cql.Driver
	mc       *mapping.Context
	conv     *convert.Converter
	mapper   *query.Mapper
	keyspace string
	log      *slog.Logger
}

type config struct {
	conv     *convert.Converter
	convOpts []convert.Option
	keyspace string
	log      *slog.Logger
}

// Option configures a Template.
type Option func(*config)

// WithConverter sets the converter. It must use the same mapping context.
func WithConverter(c *convert.Converter) Option {
	return func(cfg *config) { cfg.conv = c }
}

// WithConverterOptions configures the converter created by New. It is
// ignored when WithConverter is used.
func WithConverterOptions(opts ...convert.Option) Option {
	return func(cfg *config) { cfg.convOpts = append(cfg.convOpts, opts...) }
}

// WithKeyspace qualifies every table with the keyspace.
func WithKeyspace(ks string) Option {
	return func(cfg *config) { cfg.keyspace = ks }
}

// WithLogger sets the logger. Statements are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.log = l
		}
	}
}

// New returns a template executing statements with drv. Drivers that
// resolve user types from cluster metadata, such as *cql.Session, are used
// as the converter's UserTypeResolver.
func New(drv cql.Driver, mc *mapping.Context, opts ...Option) (*Template, error) {
	if drv == nil {
		return nil, cassava.NewValidationError("driver", errors.New("must not be nil"))
	}
	if mc == nil {
		return nil, cassava.NewValidationError("mapping context", errors.New("must not be nil"))
	}
	cfg := &config{log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	conv := cfg.conv
	if conv == nil {
		copts := []convert.Option{convert.WithLogger(cfg.log)}
		if r, ok := drv.(convert.UserTypeResolver); ok {
			copts = append(copts, convert.WithUserTypeResolver(r))
		}
		var err error
		if conv, err = convert.New(mc, append(copts, cfg.convOpts...)...); err != nil {
			return nil, err
		}
	}
	if conv.MappingContext() != mc {
		return nil, cassava.NewValidationError("converter", errors.New("uses a different mapping context"))
	}
	return &Template{
		drv:      drv,
		mc:       mc,
		conv:     conv,
		mapper:   query.NewMapper(conv),
		keyspace: cfg.keyspace,
		log:      cfg.log,
	}, nil
}

// Driver returns the underlying driver.
func (t *Template) Driver() cql.Driver { return t.drv }

// Converter returns the entity converter.
func (t *Template) Converter() *convert.Converter { return t.conv }

// MappingContext returns the mapping context.
func (t *Template) MappingContext() *mapping.Context { return t.mc }

// Mapper returns the query mapper.
func (t *Template) Mapper() *query.Mapper { return t.mapper }

// Keyspace returns the default keyspace, empty for the session keyspace.
func (t *Template) Keyspace() string { return t.keyspace }

// Execute runs a raw write statement.
func (t *Template) Execute(ctx context.Context, st *cql.Statement) (WriteResult, error) {
	res, err := t.exec(ctx, st, "", "execute")
	if err != nil {
		return WriteResult{}, err
	}
	return newWriteResult(res), nil
}

// Query runs a raw read statement. The caller must close the rows.
func (t *Template) Query(ctx context.Context, st *cql.Statement) (cql.Rows, error) {
	return t.query(ctx, st, "", "query")
}

// Truncate removes all rows of the entity table.
func (t *Template) Truncate(ctx context.Context, e *mapping.Entity) error {
	_, err := t.exec(ctx, cql.Truncate(t.keyspace, e.Table()), e.Name(), "truncate")
	return err
}

func (t *Template) ks(o QueryOptions) string {
	if o.keyspace != "" {
		return o.keyspace
	}
	return t.keyspace
}

func (t *Template) exec(ctx context.Context, st *cql.Statement, entity, op string) (*cql.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.log.DebugContext(ctx, "operations: exec", "op", op, "entity", entity, "cql", st.CQL())
	res, err := t.drv.Exec(ctx, st)
	if err != nil {
		return nil, cassava.NewMutationError(entity, op, err)
	}
	return res, nil
}

func (t *Template) query(ctx context.Context, st *cql.Statement, entity, op string) (cql.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.log.DebugContext(ctx, "operations: query", "op", op, "entity", entity, "cql", st.CQL())
	rows, err := t.drv.Query(ctx, st)
	if err != nil {
		return nil, cassava.NewQueryError(entity, op, err)
	}
	return rows, nil
}

// entityOf resolves the entity of T. T must be a table.
func entityOf[T any](t *Template) (*mapping.Entity, error) {
	e, err := mapping.EntityOf[T](t.mc)
	if err != nil {
		return nil, err
	}
	if e.Kind() != mapping.KindTable {
		return nil, notTable(e)
	}
	return e, nil
}

func notTable(e *mapping.Entity) error {
	return cassava.NewMappingError(e.Name(), "", e.Kind().String()+" is not a table", nil)
}

// WriteResult is the outcome of a write. Conditional writes that were not
// applied are successful results with Applied false; Rows then holds the
// current values returned by the server.
type WriteResult struct {
	Applied bool
	Rows    []cql.Row
}

func newWriteResult(res *cql.Result) WriteResult {
	return WriteResult{Applied: res.Applied, Rows: res.Rows}
}

// EntityWriteResult is the outcome of an entity write.
type EntityWriteResult[T any] struct {
	WriteResult
	// Entity is the written entity, including an incremented version.
	Entity *T
}
