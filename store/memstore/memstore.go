// Package memstore implements store.Store in memory.
//
// Rows are kept per table as plain column maps. Transactions snapshot every
// table on entry and restore the snapshot when the transaction function
// fails; writes made concurrently by other goroutines during a failed
// transaction are rolled back with it.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"
)

type table struct {
	rows []map[string]any
	seq  int64
}

func (t *table) clone() *table {
	rows := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		rows[i] = maps.Clone(r)
	}
	return &table{rows: rows, seq: t.seq}
}

func (t *table) index(column string, key any) int {
	return slices.IndexFunc(t.rows, func(row map[string]any) bool {
		return entity.KeyEqual(row[column], key)
	})
}

// Store is an in-memory store.Store.
type Store struct {
	mu     sync.Mutex
	tables map[string]*table
	unique map[string][][]string
}

// Option configures a Store.
type Option func(*Store)

// WithUniqueKey makes Save reject a row whose columns collide with an existing
// row of the same table, the way a unique index would.
func WithUniqueKey(table string, columns ...string) Option {
	return func(s *Store) {
		s.unique[table] = append(s.unique[table], columns)
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[string]*table),
		unique: make(map[string][][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// table returns the table, creating it. Callers hold s.mu.
func (s *Store) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{}
		s.tables[name] = t
	}
	return t
}

// Insert adds raw rows to a table, bypassing hooks. It is meant for fixtures.
func (s *Store) Insert(c *schema.Collection, rows ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(c.Table())
	for _, row := range rows {
		row = maps.Clone(row)
		if n, ok := entity.AsInt64(row[c.PrimaryKey()]); ok && n > t.seq {
			t.seq = n
		}
		t.rows = append(t.rows, row)
	}
}

// Rows returns a copy of the rows of a table matching where.
func (s *Store) Rows(c *schema.Collection, where schema.Conditions) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, row := range s.table(c.Table()).rows {
		if where.Match(row) {
			out = append(out, maps.Clone(row))
		}
	}
	return out
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, c *schema.Collection, q store.Query) ([]*entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := s.Rows(c, q.Where)
	if len(q.Order) > 0 {
		slices.SortStableFunc(rows, func(a, b map[string]any) int {
			for _, o := range q.Order {
				n := compare(a[o.Column], b[o.Column])
				if o.Desc {
					n = -n
				}
				if n != 0 {
					return n
				}
			}
			return 0
		})
	}
	out := make([]*entity.Record, len(rows))
	for i, row := range rows {
		out[i] = entity.New(row, entity.Persisted())
	}
	return out, nil
}

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, c *schema.Collection, r *entity.Record, _ store.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Emit(ctx, schema.BeforeSave, r); err != nil {
		return err
	}
	if err := s.write(c, r); err != nil {
		return err
	}
	r.SetNew(false)
	r.Clean()
	return c.Emit(ctx, schema.AfterSave, r)
}

func (s *Store) write(c *schema.Collection, r *entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		t         = s.table(c.Table())
		pk        = c.PrimaryKey()
		cols      = store.Columns(r)
		key, ok   = r.Key(pk)
		idx       = -1
		generated bool
	)
	if ok {
		idx = t.index(pk, key)
	}
	if idx < 0 && ok && !r.IsNew() {
		return linkage.NewNotFoundError(c.Alias(), key)
	}
	if !ok {
		if key, ok = c.NewKey(); !ok {
			t.seq++
			key = int(t.seq)
		}
		cols[pk] = key
		generated = true
	}
	if err := s.checkUnique(c, t, cols, idx); err != nil {
		return err
	}
	if idx >= 0 {
		maps.Copy(t.rows[idx], cols)
		return nil
	}
	if n, ok := entity.AsInt64(key); ok && n > t.seq {
		t.seq = n
	}
	t.rows = append(t.rows, cols)
	if generated {
		r.Set(pk, key)
	}
	return nil
}

// checkUnique enforces the unique keys of the table. skip is the index of the
// row being updated, or -1.
func (s *Store) checkUnique(c *schema.Collection, t *table, cols map[string]any, skip int) error {
	merged := cols
	if skip >= 0 {
		merged = maps.Clone(t.rows[skip])
		maps.Copy(merged, cols)
	}
	for _, columns := range s.unique[c.Table()] {
		for i, row := range t.rows {
			if i == skip {
				continue
			}
			if slices.ContainsFunc(columns, func(col string) bool { return !entity.KeyEqual(row[col], merged[col]) }) {
				continue
			}
			return linkage.NewConstraintError(
				fmt.Sprintf("UNIQUE constraint failed: %s.%s", c.Table(), strings.Join(columns, ", ")), nil,
			)
		}
	}
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, c *schema.Collection, r *entity.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, ok := c.KeyOf(r)
	if !ok {
		return linkage.NewNotFoundError(c.Alias(), nil)
	}
	if err := c.Emit(ctx, schema.BeforeDelete, r); err != nil {
		return err
	}
	s.mu.Lock()
	t := s.table(c.Table())
	idx := t.index(c.PrimaryKey(), key)
	if idx >= 0 {
		t.rows = slices.Delete(t.rows, idx, idx+1)
	}
	s.mu.Unlock()
	if idx < 0 {
		return linkage.NewNotFoundError(c.Alias(), key)
	}
	return c.Emit(ctx, schema.AfterDelete, r)
}

// DeleteAll implements store.Store.
func (s *Store) DeleteAll(ctx context.Context, c *schema.Collection, where schema.Conditions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(c.Table())
	before := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, where.Match)
	return before - len(t.rows), nil
}

type txKey struct{}

// InTx implements store.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	snapshot := make(map[string]*table, len(s.tables))
	for name, t := range s.tables {
		snapshot[name] = t.clone()
	}
	s.mu.Unlock()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.tables = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := entity.AsInt64(a); ok {
		if y, ok := entity.AsInt64(b); ok {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := a.(float64); ok {
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

var _ store.Store = (*Store)(nil)
