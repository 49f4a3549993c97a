package cql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueryStats holds statement execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of reads executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of writes executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64
	// NotApplied is the count of rejected lightweight transactions.
	NotApplied atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
		NotApplied:    s.NotApplied.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
	s.NotApplied.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of statement statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
	NotApplied    int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d not_applied=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors, s.NotApplied,
	)
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, cql string, args []any, duration time.Duration)

// StatsDriver wraps a Driver with statement statistics collection.
type StatsDriver struct {
	Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex

	statements *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to the default logger.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(_ context.Context, cql string, args []any, duration time.Duration) {
		slog.Warn("slow statement detected", "duration", duration, "cql", cql, "args", args)
	})
}

// WithRegisterer exports the statistics as Prometheus metrics
// (cassava_statements_total and cassava_statement_duration_seconds).
// Collectors already registered by another StatsDriver are reused.
func WithRegisterer(reg prometheus.Registerer) StatsOption {
	return func(s *StatsDriver) {
		statements := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cassava",
			Name:      "statements_total",
			Help:      "Number of executed statements by kind and outcome.",
		}, []string{"kind", "outcome"})
		latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cassava",
			Name:      "statement_duration_seconds",
			Help:      "Statement execution latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"})
		s.statements = register(reg, statements)
		s.latency = register(reg, latency)
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// NewStatsDriver wraps a Driver with statistics collection.
//
// Example:
//
//	sess, _ := cql.Connect(cfg)
//	drv := cql.NewStatsDriver(sess,
//	    cql.WithSlowThreshold(200*time.Millisecond),
//	    cql.WithSlowQueryLog(),
//	    cql.WithRegisterer(prometheus.DefaultRegisterer),
//	)
//
//	// Later, check statistics:
//	fmt.Println(drv.QueryStats().Stats())
func NewStatsDriver(drv Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query executes a read and records statistics.
func (d *StatsDriver) Query(ctx context.Context, st *Statement) (Rows, error) {
	start := time.Now()
	rows, err := d.Driver.Query(ctx, st)
	d.record(ctx, st, start, err, true, true)
	return rows, err
}

// Exec executes a write and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, st *Statement) (*Result, error) {
	start := time.Now()
	res, err := d.Driver.Exec(ctx, st)
	applied := err != nil || res.Applied
	d.record(ctx, st, start, err, false, applied)
	return res, err
}

// Dialect returns the wrapped driver dialect.
func (d *StatsDriver) Dialect() string { return d.Driver.Dialect() }

func (d *StatsDriver) record(ctx context.Context, st *Statement, start time.Time, err error, isQuery, applied bool) {
	duration := time.Since(start)
	kind := "exec"
	if isQuery {
		kind = "query"
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		d.stats.Errors.Add(1)
	case !applied:
		outcome = "not_applied"
		d.stats.NotApplied.Add(1)
	}
	if d.statements != nil {
		d.statements.WithLabelValues(kind, outcome).Inc()
		d.latency.WithLabelValues(kind).Observe(duration.Seconds())
	}

	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, st.CQL(), st.Values(), duration)
		}
	}
}

// DebugDriver wraps a Driver with debug logging.
type DebugDriver struct {
	Driver
	log func(context.Context, ...any)
}

// DebugOption configures the DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLog sets a custom log function.
func DebugWithLog(logFunc func(context.Context, ...any)) DebugOption {
	return func(d *DebugDriver) {
		d.log = logFunc
	}
}

// NewDebugDriver wraps a Driver with debug logging.
//
// Example:
//
//	drv := cql.NewDebugDriver(sess, cql.DebugWithLog(func(ctx context.Context, v ...any) {
//	    log.Println(v...)
//	}))
func NewDebugDriver(drv Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		Driver: drv,
		log: func(_ context.Context, v ...any) {
			slog.Info(fmt.Sprint(v...))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query executes a read and logs it.
func (d *DebugDriver) Query(ctx context.Context, st *Statement) (Rows, error) {
	d.log(ctx, fmt.Sprintf("query: %s args: %v", st.CQL(), st.Values()))
	return d.Driver.Query(ctx, st)
}

// Exec executes a write and logs it.
func (d *DebugDriver) Exec(ctx context.Context, st *Statement) (*Result, error) {
	d.log(ctx, fmt.Sprintf("exec: %s args: %v", st.CQL(), st.Values()))
	return d.Driver.Exec(ctx, st)
}

// Ensure interfaces are implemented.
var (
	_ Driver = (*StatsDriver)(nil)
	_ Driver = (*DebugDriver)(nil)
)
