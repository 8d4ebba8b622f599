package assoc

import (
	"context"
	"errors"
	"reflect"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"
)

// UnlinkOption configures Unlink.
type UnlinkOption func(*unlinkConfig)

type unlinkConfig struct {
	cleanProperty bool
}

// WithCleanProperty sets whether Unlink removes the unlinked records from the
// source property. Defaults to true.
func WithCleanProperty(v bool) UnlinkOption {
	return func(c *unlinkConfig) {
		c.cleanProperty = v
	}
}

// Link creates one junction row per target, in order, and sets the source
// property to targets. Extra junction columns are read from the
// JoinDataProperty of each target. Existing links are not checked; duplicates
// are left to the store's unique constraints.
func (b *BelongsToMany) Link(ctx context.Context, src *entity.Record, targets []*entity.Record, opts store.Options) error {
	if err := b.checkPersisted("link", src, targets); err != nil {
		return err
	}
	st, j, err := b.prepare()
	if err != nil {
		return err
	}
	srcKey, _ := b.Source().KeyOf(src)
	err = st.InTx(ctx, func(ctx context.Context) error {
		for _, t := range targets {
			if err := b.saveLink(ctx, st, j, srcKey, t, opts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.log.DebugContext(ctx, "link", "association", b.name, "source", srcKey, "targets", len(targets))
	b.setProperty(src, targets)
	return nil
}

// Unlink deletes the junction rows between src and targets that this
// association owns.
func (b *BelongsToMany) Unlink(ctx context.Context, src *entity.Record, targets []*entity.Record, opts ...UnlinkOption) error {
	cfg := unlinkConfig{cleanProperty: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := b.checkPersisted("unlink", src, targets); err != nil {
		return err
	}
	st, j, err := b.prepare()
	if err != nil {
		return err
	}
	srcKey, _ := b.Source().KeyOf(src)
	tgt := b.Target()
	keys := make(schema.In, 0, len(targets))
	for _, t := range targets {
		k, _ := tgt.KeyOf(t)
		keys = append(keys, k)
	}
	var n int
	err = st.InTx(ctx, func(ctx context.Context) error {
		var derr error
		n, derr = b.deleteLinks(ctx, st, j, srcKey, keys, true)
		return derr
	})
	if err != nil {
		return err
	}
	b.log.DebugContext(ctx, "unlink", "association", b.name, "source", srcKey, "deleted", n)
	if !cfg.cleanProperty {
		return nil
	}
	current, ok := src.Get(b.Property()).([]*entity.Record)
	if !ok {
		return nil
	}
	remaining := make([]*entity.Record, 0, len(current))
	for _, r := range current {
		if r == nil {
			remaining = append(remaining, r)
			continue
		}
		if k, ok := tgt.KeyOf(r); ok && containsKey(keys, k) {
			continue
		}
		remaining = append(remaining, r)
	}
	b.setProperty(src, remaining)
	return nil
}

// saveLink saves the junction row between the source key and t.
func (b *BelongsToMany) saveLink(ctx context.Context, st store.Store, j *schema.Collection, srcKey any, t *entity.Record, opts store.Options) error {
	tgtKey, _ := b.Target().KeyOf(t)
	row := joinData(t)
	for col, v := range b.Conditions().Local(j.Alias()) {
		if _, set := row[col]; set || v == nil {
			continue
		}
		if _, in := v.(schema.In); in {
			continue
		}
		row[col] = v
	}
	row[b.ForeignKey()] = srcKey
	row[b.TargetForeignKey()] = tgtKey
	if err := st.Save(ctx, j, entity.New(row), opts); err != nil {
		return persistErr(j, "save", err)
	}
	return nil
}

// deleteLinks removes the owned junction rows from the source key to the
// target keys; nil keys match every target. With hooks, rows are loaded and
// deleted one at a time.
func (b *BelongsToMany) deleteLinks(ctx context.Context, st store.Store, j *schema.Collection, srcKey any, keys schema.In, hooks bool) (int, error) {
	where := b.Conditions().Local(j.Alias())
	where[b.ForeignKey()] = srcKey
	if keys != nil {
		where[b.TargetForeignKey()] = keys
	}
	return deleteRows(ctx, st, j, where, hooks)
}

func deleteRows(ctx context.Context, st store.Store, j *schema.Collection, where schema.Conditions, hooks bool) (int, error) {
	if !hooks {
		n, err := st.DeleteAll(ctx, j, where)
		if err != nil {
			return 0, persistErr(j, "delete", err)
		}
		return n, nil
	}
	rows, err := st.Find(ctx, j, store.Query{Where: where})
	if err != nil {
		return 0, persistErr(j, "find", err)
	}
	for _, row := range rows {
		if err := st.Delete(ctx, j, row); err != nil {
			return 0, persistErr(j, "delete", err)
		}
	}
	return len(rows), nil
}

// checkPersisted fails when src or any target is not persisted.
func (b *BelongsToMany) checkPersisted(op string, src *entity.Record, targets []*entity.Record) error {
	source := b.Source()
	if source == nil {
		return linkage.NewConfigError("source", nil, "association "+b.name+" has no source collection")
	}
	if !src.Persisted(source.PrimaryKey()) {
		return linkage.NewPreconditionError(op, "source must be persisted")
	}
	pk := b.Target().PrimaryKey()
	for _, t := range targets {
		if !t.Persisted(pk) {
			return linkage.NewPreconditionError(op, "cannot link unpersisted records")
		}
	}
	return nil
}

// prepare returns the store and the resolved junction.
func (b *BelongsToMany) prepare() (store.Store, *schema.Collection, error) {
	b.mu.RLock()
	st := b.store
	b.mu.RUnlock()
	if st == nil {
		return nil, nil, linkage.NewConfigError("store", nil, "association "+b.name+" has no store")
	}
	j, err := b.Junction()
	if err != nil {
		return nil, nil, err
	}
	return st, j, nil
}

// setProperty stores a copy of targets in the source property and marks it
// clean.
func (b *BelongsToMany) setProperty(src *entity.Record, targets []*entity.Record) {
	prop := b.Property()
	src.Set(prop, append(make([]*entity.Record, 0, len(targets)), targets...))
	src.SetDirty(prop, false)
}

// joinData returns the storable junction columns carried by t.
func joinData(t *entity.Record) map[string]any {
	row := make(map[string]any)
	switch v := t.Get(JoinDataProperty).(type) {
	case map[string]any:
		for k, val := range v {
			if store.Storable(val) {
				row[k] = val
			}
		}
	case *entity.Record:
		if v != nil {
			row = store.Columns(v)
		}
	}
	return row
}

func containsKey(keys schema.In, k any) bool {
	for _, key := range keys {
		if entity.KeyEqual(key, k) {
			return true
		}
	}
	return false
}

// persistErr wraps a store failure. Errors already classified by this
// package pass through.
func persistErr(c *schema.Collection, op string, err error) error {
	var pe *linkage.PersistenceError
	switch {
	case errors.As(err, &pe),
		linkage.IsPreconditionError(err),
		linkage.IsShapeError(err),
		linkage.IsConfigError(err):
		return err
	}
	return linkage.NewPersistenceError(c.Alias(), op, err)
}

// isEmpty reports whether an association value holds nothing to save.
func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}
