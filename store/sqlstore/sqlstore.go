// Package sqlstore implements store.Store over a dialect.Driver.
//
// Records map to rows of their collection table; association properties are
// not stored. Transactions are carried in the context, so every store call
// made with a context returned inside InTx joins the transaction.
package sqlstore

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/dialect"
	"github.com/syssam/linkage/dialect/sql"
	"github.com/syssam/linkage/dialect/sql/sqlgraph"
	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"
)

// Store is a store.Store backed by SQL tables.
type Store struct {
	drv   dialect.Driver
	log   *slog.Logger
	stats *sql.StatsDriver

	logQueries bool
	statsOpts  []sql.StatsOption
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for transaction events, statement logs
// and slow statements.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithQueryLog logs every statement at debug level.
func WithQueryLog() Option {
	return func(s *Store) {
		s.logQueries = true
	}
}

// WithStats counts the statements run by the store. Slow statements are
// logged at warn level unless opts set another hook.
func WithStats(opts ...sql.StatsOption) Option {
	return func(s *Store) {
		s.statsOpts = append([]sql.StatsOption{nil}, opts...)
	}
}

// New returns a Store executing statements on drv.
func New(drv dialect.Driver, opts ...Option) *Store {
	s := &Store{drv: drv, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logQueries {
		s.drv = sql.NewLogDriver(s.drv, s.log)
	}
	if s.statsOpts != nil {
		s.statsOpts[0] = sql.WithSlowQueryLog(s.log)
		s.stats = sql.NewStatsDriver(s.drv, s.statsOpts...)
		s.drv = s.stats
	}
	return s
}

// Stats returns the statement counters. ok is false when the store was
// created without WithStats.
func (s *Store) Stats() (snap sql.StatsSnapshot, ok bool) {
	if s.stats == nil {
		return snap, false
	}
	return s.stats.QueryStats().Snapshot(), true
}

type txKey struct{}

// conn returns the transaction carried by ctx, or the driver.
func (s *Store) conn(ctx context.Context) dialect.ExecQuerier {
	if tx, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return tx
	}
	return s.drv
}

func (s *Store) builder() *sql.DialectBuilder {
	return sql.Dialect(s.drv.Dialect())
}

// InTx implements store.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.log.ErrorContext(ctx, "rollback failed", "error", rerr)
			return linkage.NewAggregateError(err, &linkage.RollbackError{Err: rerr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit transaction: %w", err)
	}
	return nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, c *schema.Collection, q store.Query) ([]*entity.Record, error) {
	sel := s.builder().Select().From(c.Table()).Where(Predicate(q.Where))
	for _, o := range q.Order {
		sel.OrderBy(sql.OrderTerm{Column: o.Column, Desc: o.Desc})
	}
	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find %s: %w", c.Alias(), err)
	}
	out := make([]*entity.Record, len(rows))
	for i, row := range rows {
		out[i] = entity.New(row, entity.Persisted())
	}
	return out, nil
}

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, c *schema.Collection, r *entity.Record, _ store.Options) error {
	if err := c.Emit(ctx, schema.BeforeSave, r); err != nil {
		return err
	}
	pk := c.PrimaryKey()
	key, ok := r.Key(pk)
	exists := false
	if ok {
		var err error
		if exists, err = s.exists(ctx, c, key); err != nil {
			return fmt.Errorf("sqlstore: save %s: %w", c.Alias(), err)
		}
		if !exists && !r.IsNew() {
			return linkage.NewNotFoundError(c.Alias(), key)
		}
	}
	var err error
	if exists {
		err = s.update(ctx, c, r, key)
	} else {
		err = s.insert(ctx, c, r)
	}
	if err != nil {
		if sqlgraph.IsConstraintError(err) {
			return linkage.NewConstraintError(fmt.Sprintf("save %s", c.Alias()), err)
		}
		return fmt.Errorf("sqlstore: save %s: %w", c.Alias(), err)
	}
	r.SetNew(false)
	r.Clean()
	return c.Emit(ctx, schema.AfterSave, r)
}

func (s *Store) exists(ctx context.Context, c *schema.Collection, key any) (bool, error) {
	rows, err := s.query(ctx, s.builder().Select(c.PrimaryKey()).From(c.Table()).Where(sql.EQ(c.PrimaryKey(), key)))
	return len(rows) > 0, err
}

// update writes the dirty columns of a persisted record, or every column of a
// new record that carries the key of an existing row.
func (s *Store) update(ctx context.Context, c *schema.Collection, r *entity.Record, key any) error {
	pk := c.PrimaryKey()
	cols := store.Columns(r)
	upd := s.builder().Update(c.Table()).Where(sql.EQ(pk, key))
	for _, name := range r.Columns() {
		v, ok := cols[name]
		if !ok || name == pk || (!r.IsNew() && !r.IsDirty(name)) {
			continue
		}
		upd.Set(name, v)
	}
	if upd.Empty() {
		return nil
	}
	return s.exec(ctx, upd, nil)
}

func (s *Store) insert(ctx context.Context, c *schema.Collection, r *entity.Record) error {
	pk := c.PrimaryKey()
	cols := store.Columns(r)
	generated, hasKey := r.Key(pk)
	if !hasKey {
		if generated, hasKey = c.NewKey(); hasKey {
			cols[pk] = generated
		}
	}
	ins := s.builder().Insert(c.Table())
	for _, name := range r.Columns() {
		if v, ok := cols[name]; ok && name != pk {
			ins.Columns(name).Values(v)
		}
	}
	if hasKey {
		ins.Columns(pk).Values(cols[pk])
		if err := s.exec(ctx, ins, nil); err != nil {
			return err
		}
		r.Set(pk, cols[pk])
		return nil
	}
	if s.drv.Dialect() == dialect.Postgres {
		rows, err := s.query(ctx, ins.Returning(pk))
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert into %s returned no rows", c.Table())
		}
		r.Set(pk, rows[0][pk])
		return nil
	}
	var res stdsql.Result
	if err := s.exec(ctx, ins, &res); err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.Set(pk, id)
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, c *schema.Collection, r *entity.Record) error {
	key, ok := c.KeyOf(r)
	if !ok {
		return linkage.NewNotFoundError(c.Alias(), nil)
	}
	if err := c.Emit(ctx, schema.BeforeDelete, r); err != nil {
		return err
	}
	n, err := s.delete(ctx, c, sql.EQ(c.PrimaryKey(), key))
	if err != nil {
		return err
	}
	if n == 0 {
		return linkage.NewNotFoundError(c.Alias(), key)
	}
	return c.Emit(ctx, schema.AfterDelete, r)
}

// DeleteAll implements store.Store.
func (s *Store) DeleteAll(ctx context.Context, c *schema.Collection, where schema.Conditions) (int, error) {
	return s.delete(ctx, c, Predicate(where))
}

func (s *Store) delete(ctx context.Context, c *schema.Collection, p *sql.Predicate) (int, error) {
	var res stdsql.Result
	if err := s.exec(ctx, s.builder().Delete(c.Table()).Where(p), &res); err != nil {
		if sqlgraph.IsConstraintError(err) {
			return 0, linkage.NewConstraintError(fmt.Sprintf("delete %s", c.Alias()), err)
		}
		return 0, fmt.Errorf("sqlstore: delete %s: %w", c.Alias(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: delete %s: rows affected: %w", c.Alias(), err)
	}
	return int(n), nil
}

// builderErr is implemented by the statement builders.
type builderErr interface {
	sql.Querier
	Err() error
}

func (s *Store) exec(ctx context.Context, b builderErr, res *stdsql.Result) error {
	query, args := b.Query()
	if err := b.Err(); err != nil {
		return err
	}
	var v any
	if res != nil {
		v = res
	}
	return s.conn(ctx).Exec(ctx, query, args, v)
}

func (s *Store) query(ctx context.Context, b builderErr) ([]map[string]any, error) {
	query, args := b.Query()
	if err := b.Err(); err != nil {
		return nil, err
	}
	rows := &sql.Rows{}
	if err := s.conn(ctx).Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return sql.ScanMaps(rows)
}

// Predicate converts conditions to a WHERE predicate. Columns are combined
// with AND in sorted order; nil conditions yield a nil predicate.
func Predicate(where schema.Conditions) *sql.Predicate {
	if len(where) == 0 {
		return nil
	}
	preds := make([]*sql.Predicate, 0, len(where))
	for _, col := range where.Columns() {
		switch v := where[col].(type) {
		case nil:
			preds = append(preds, sql.IsNull(col))
		case schema.In:
			preds = append(preds, sql.In(col, v...))
		default:
			preds = append(preds, sql.EQ(col, v))
		}
	}
	return sql.And(preds...)
}

var _ store.Store = (*Store)(nil)
