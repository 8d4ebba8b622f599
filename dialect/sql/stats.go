package sql

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/linkage/dialect"
)

// QueryStats counts the statements run through a StatsDriver.
type QueryStats struct {
	queries      atomic.Int64
	execs        atomic.Int64
	elapsed      atomic.Int64
	slow         atomic.Int64
	errors       atomic.Int64
	transactions atomic.Int64
}

// Snapshot returns the current counters.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:      s.queries.Load(),
		Execs:        s.execs.Load(),
		Elapsed:      time.Duration(s.elapsed.Load()),
		Slow:         s.slow.Load(),
		Errors:       s.errors.Load(),
		Transactions: s.transactions.Load(),
	}
}

// StatsSnapshot is a copy of the counters at one point in time.
type StatsSnapshot struct {
	Queries      int64
	Execs        int64
	Elapsed      time.Duration
	Slow         int64
	Errors       int64
	Transactions int64
}

// LogValue reports the counters as a log group.
func (s StatsSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("queries", s.Queries),
		slog.Int64("execs", s.Execs),
		slog.Int64("transactions", s.Transactions),
		slog.Duration("elapsed", s.Elapsed),
		slog.Int64("slow", s.Slow),
		slog.Int64("errors", s.Errors),
	)
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, took time.Duration)

// StatsDriver wraps a Driver and counts its statements.
type StatsDriver struct {
	dialect.Driver
	stats     *QueryStats
	threshold time.Duration
	onSlow    SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement counts as
// slow. Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold = d
	}
}

// WithSlowQueryHook sets the callback run for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.onSlow = hook
	}
}

// WithSlowQueryLog logs slow statements at warn level, to slog.Default()
// when l is nil.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, took time.Duration) {
		l.WarnContext(ctx, "slow statement", "took", took, "sql", query, "args", args)
	})
}

// NewStatsDriver wraps drv with statement counting.
//
//	drv, _ := sql.Open(dialect.SQLite, "file:links.db")
//	st := sqlstore.New(drv, sqlstore.WithStats(sql.WithSlowThreshold(200*time.Millisecond)))
//	...
//	log.Info("link store", "stats", st.Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
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
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// Query implements dialect.Driver.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.observe(ctx, &d.stats.queries, query, args, start, err)
	return err
}

// Exec implements dialect.Driver.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.observe(ctx, &d.stats.execs, query, args, start, err)
	return err
}

// Tx starts a transaction whose statements are counted too.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.stats.transactions.Add(1)
	return &statsTx{Tx: tx, drv: d}, nil
}

func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args any, start time.Time, err error) {
	took := time.Since(start)
	counter.Add(1)
	d.stats.elapsed.Add(int64(took))
	if err != nil {
		d.stats.errors.Add(1)
	}
	if took <= d.threshold {
		return
	}
	d.stats.slow.Add(1)
	if d.onSlow != nil {
		list, _ := args.([]any)
		d.onSlow(ctx, query, list, took)
	}
}

type statsTx struct {
	dialect.Tx
	drv *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.drv.observe(ctx, &tx.drv.stats.queries, query, args, start, err)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.drv.observe(ctx, &tx.drv.stats.execs, query, args, start, err)
	return err
}

// LogDriver wraps a Driver and logs every statement at debug level.
type LogDriver struct {
	dialect.Driver
	log *slog.Logger
}

// NewLogDriver wraps drv with statement logging. A nil logger logs to
// slog.Default().
func NewLogDriver(drv dialect.Driver, l *slog.Logger) *LogDriver {
	if l == nil {
		l = slog.Default()
	}
	return &LogDriver{Driver: drv, log: l.With("dialect", drv.Dialect())}
}

// Query implements dialect.Driver.
func (d *LogDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log.DebugContext(ctx, "query", "sql", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec implements dialect.Driver.
func (d *LogDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log.DebugContext(ctx, "exec", "sql", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction whose statements and outcome are logged.
func (d *LogDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		d.log.DebugContext(ctx, "begin transaction", "error", err)
		return nil, err
	}
	d.log.DebugContext(ctx, "begin transaction")
	return &logTx{Tx: tx, log: d.log}, nil
}

type logTx struct {
	dialect.Tx
	log *slog.Logger
}

func (tx *logTx) Query(ctx context.Context, query string, args, v any) error {
	tx.log.DebugContext(ctx, "tx query", "sql", query, "args", args)
	return tx.Tx.Query(ctx, query, args, v)
}

func (tx *logTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.log.DebugContext(ctx, "tx exec", "sql", query, "args", args)
	return tx.Tx.Exec(ctx, query, args, v)
}

func (tx *logTx) Commit() error {
	err := tx.Tx.Commit()
	tx.log.Debug("commit transaction", "error", err)
	return err
}

func (tx *logTx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.log.Debug("rollback transaction", "error", err)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ dialect.Driver = (*LogDriver)(nil)
	_ dialect.Tx     = (*logTx)(nil)
)
