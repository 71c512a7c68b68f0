package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/schemakit/dialect"
)

// Origin tells which side of the library issued a statement.
type Origin uint8

const (
	// OriginCommand marks statements run on behalf of the caller, such as
	// those rendered by a command builder. It is the default.
	OriginCommand Origin = iota
	// OriginIntrospection marks the metadata reads of a schema catalog.
	OriginIntrospection

	numOrigins
)

func (o Origin) String() string {
	if o == OriginIntrospection {
		return "introspection"
	}
	return "command"
}

type ctxOriginKey struct{}

// WithOrigin returns a context marking the statements run under it.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, ctxOriginKey{}, o)
}

// OriginFromContext returns the origin set by WithOrigin, or
// OriginCommand.
func OriginFromContext(ctx context.Context) Origin {
	o, _ := ctx.Value(ctxOriginKey{}).(Origin)
	return o
}

type originCounters struct {
	queries atomic.Int64
	execs   atomic.Int64
}

// QueryStats counts the statements run through a StatsDriver, split by
// origin. The zero value is ready to use.
type QueryStats struct {
	origins  [numOrigins]originCounters
	duration atomic.Int64 // nanoseconds
	slow     atomic.Int64
	errors   atomic.Int64
}

func (s *QueryStats) record(o Origin, isQuery bool, elapsed time.Duration, err error) {
	if o >= numOrigins {
		o = OriginCommand
	}
	if isQuery {
		s.origins[o].queries.Add(1)
	} else {
		s.origins[o].execs.Add(1)
	}
	s.duration.Add(int64(elapsed))
	if err != nil {
		s.errors.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	snap := StatsSnapshot{
		Introspection: s.origin(OriginIntrospection),
		Commands:      s.origin(OriginCommand),
		TotalDuration: time.Duration(s.duration.Load()),
		SlowQueries:   s.slow.Load(),
		Errors:        s.errors.Load(),
	}
	snap.TotalQueries = snap.Introspection.Queries + snap.Commands.Queries
	snap.TotalExecs = snap.Introspection.Execs + snap.Commands.Execs
	return snap
}

func (s *QueryStats) origin(o Origin) OriginStats {
	return OriginStats{
		Queries: s.origins[o].queries.Load(),
		Execs:   s.origins[o].execs.Load(),
	}
}

// OriginStats counts the statements of one origin.
type OriginStats struct {
	Queries int64
	Execs   int64
}

// Total returns the number of queries and execs.
func (s OriginStats) Total() int64 { return s.Queries + s.Execs }

// StatsSnapshot is a point-in-time copy of QueryStats. TotalQueries and
// TotalExecs sum both origins.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	Introspection OriginStats
	Commands      OriginStats
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the mean duration of a statement.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	n := s.TotalQueries + s.TotalExecs
	if n == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(n)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("introspection=%d commands=%d queries=%d execs=%d avg=%s slow=%d errors=%d",
		s.Introspection.Total(), s.Commands.Total(), s.TotalQueries, s.TotalExecs,
		s.AvgQueryDuration(), s.SlowQueries, s.Errors)
}

// SlowQueryHook is called for every statement slower than the threshold.
// The origin of the statement is available through OriginFromContext.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver is a Driver counting its statements in a QueryStats.
// Statements of a pinned Session are not counted.
type StatsDriver struct {
	*Driver
	stats     *QueryStats
	threshold time.Duration
	hook      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold = d
	}
}

// WithSlowQueryHook sets the function called for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.hook = hook
	}
}

// WithSlowQueryLog logs slow statements to slog.Default().
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryLogger(nil)
}

// WithSlowQueryLogger logs slow statements to logger at Warn level.
func WithSlowQueryLogger(logger *slog.Logger) StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.WarnContext(ctx, "slow statement",
			"origin", OriginFromContext(ctx).String(),
			"duration", duration,
			"query", query,
			"args", args,
		)
	})
}

// NewStatsDriver wraps drv with statement counting.
//
//	sd := sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowQueryLog())
//	cat, err := schema.NewCatalog(sd)
//	...
//	fmt.Println(sd.QueryStats().Stats().Introspection.Total())
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		stats:     &QueryStats{},
		threshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats { return d.stats }

// Query implements the dialect.Query method.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, query, args, true, func() error {
		return d.Driver.Query(ctx, query, args, v)
	})
}

// Exec implements the dialect.Exec method.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, query, args, false, func() error {
		return d.Driver.Exec(ctx, query, args, v)
	})
}

func (d *StatsDriver) observe(ctx context.Context, query string, args any, isQuery bool, run func() error) error {
	start := time.Now()
	err := run()
	elapsed := time.Since(start)
	d.stats.record(OriginFromContext(ctx), isQuery, elapsed, err)
	if elapsed > d.threshold {
		d.stats.slow.Add(1)
		if d.hook != nil {
			argv, _ := args.([]any)
			d.hook(ctx, query, argv, elapsed)
		}
	}
	return err
}

// Tx starts a transaction whose statements are counted as well.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query implements the dialect.Query method.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.driver.observe(ctx, query, args, true, func() error {
		return tx.Tx.Query(ctx, query, args, v)
	})
}

// Exec implements the dialect.Exec method.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.driver.observe(ctx, query, args, false, func() error {
		return tx.Tx.Exec(ctx, query, args, v)
	})
}

// DebugDriver is a Driver logging every statement with its origin.
type DebugDriver struct {
	*Driver
	logger *slog.Logger
	level  slog.Level
}

// DebugOption configures a DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLogger logs statements to logger at Debug level.
func DebugWithLogger(logger *slog.Logger) DebugOption {
	return func(d *DebugDriver) {
		d.logger, d.level = logger, slog.LevelDebug
	}
}

// DebugWithLevel sets the level statements are logged at.
func DebugWithLevel(level slog.Level) DebugOption {
	return func(d *DebugDriver) {
		d.level = level
	}
}

// NewDebugDriver wraps drv with statement logging. Statements go to
// slog.Default() at Info level unless configured otherwise.
//
//	cat, err := schema.NewCatalog(sql.NewDebugDriver(drv, sql.DebugWithLogger(logger)))
func NewDebugDriver(drv *Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{Driver: drv, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

func (d *DebugDriver) log(ctx context.Context, msg string, attrs ...any) {
	d.logger.Log(ctx, d.level, msg, append(attrs, "origin", OriginFromContext(ctx).String())...)
}

// Query implements the dialect.Query method.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log(ctx, "query", "sql", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec implements the dialect.Exec method.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log(ctx, "exec", "sql", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction whose statements are logged as well.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.log(ctx, "begin")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, driver: d}, nil
}

// DebugTx is a transaction of a DebugDriver.
type DebugTx struct {
	dialect.Tx
	driver *DebugDriver
}

// Query implements the dialect.Query method.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.driver.log(ctx, "query", "sql", query, "args", args, "tx", true)
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec implements the dialect.Exec method.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.driver.log(ctx, "exec", "sql", query, "args", args, "tx", true)
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit commits the transaction.
func (tx *DebugTx) Commit() error {
	tx.driver.log(context.Background(), "commit")
	return tx.Tx.Commit()
}

// Rollback aborts the transaction.
func (tx *DebugTx) Rollback() error {
	tx.driver.log(context.Background(), "rollback")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)

// OpenWithStats is like Open but returns a StatsDriver and its counters.
func OpenWithStats(driverName, source string, opts ...StatsOption) (*StatsDriver, *QueryStats, error) {
	drv, err := Open(driverName, source)
	if err != nil {
		return nil, nil, err
	}
	sd := NewStatsDriver(drv, opts...)
	return sd, sd.QueryStats(), nil
}
