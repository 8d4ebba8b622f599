package assoc

import (
	"context"
	"strings"
	"sync"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"
)

// Targets returns the target records currently linked to src that this
// association owns, in the configured sort order.
func (b *BelongsToMany) Targets(ctx context.Context, src *entity.Record) ([]*entity.Record, error) {
	st, j, err := b.prepare()
	if err != nil {
		return nil, err
	}
	key, ok := b.Source().KeyOf(src)
	if !ok {
		return nil, linkage.NewPreconditionError("targets", "missing primary key for source")
	}
	return b.targets(ctx, st, j, key)
}

func (b *BelongsToMany) targets(ctx context.Context, st store.Store, j *schema.Collection, srcKey any) ([]*entity.Record, error) {
	where := b.Conditions().Local(j.Alias())
	where[b.ForeignKey()] = srcKey
	rows, err := st.Find(ctx, j, store.Query{Where: where})
	if err != nil {
		return nil, persistErr(j, "find", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	tfk := b.TargetForeignKey()
	keys := make(schema.In, 0, len(rows))
	for _, row := range rows {
		if k, ok := row.Key(tfk); ok && !containsKey(keys, k) {
			keys = append(keys, k)
		}
	}
	tgt := b.Target()
	tw := b.Conditions().Qualified(tgt.Alias())
	tw[tgt.PrimaryKey()] = keys
	out, err := st.Find(ctx, tgt, store.Query{Where: tw, Order: b.targetSort(tgt)})
	if err != nil {
		return nil, persistErr(tgt, "find", err)
	}
	return out, nil
}

// targetSort returns the sort terms that apply to the target collection,
// unqualified.
func (b *BelongsToMany) targetSort(tgt *schema.Collection) schema.Sort {
	var out schema.Sort
	for _, o := range b.Sort() {
		q, col, ok := strings.Cut(o.Column, ".")
		switch {
		case !ok:
			out = append(out, o)
		case q == tgt.Alias():
			out = append(out, schema.Order{Column: col, Desc: o.Desc})
		}
	}
	return out
}

// ReplaceLinks makes the links of src equal to targets. Links to targets
// present on both sides are left untouched, missing ones are deleted, and new
// ones are inserted after saving their target when it is new or dirty. The
// whole operation runs in one transaction.
//
// On success the source property holds targets, in order, and is clean. On
// failure the property is left as it was, and every target saved during the
// call, nested ones included, gets back the fields, dirty flags and new flag
// it had before.
func (b *BelongsToMany) ReplaceLinks(ctx context.Context, src *entity.Record, targets []*entity.Record, opts store.Options) error {
	source := b.Source()
	if source == nil {
		return linkage.NewConfigError("source", nil, "association "+b.name+" has no source collection")
	}
	if !src.Persisted(source.PrimaryKey()) {
		return linkage.NewPreconditionError("replace", "missing primary key for source")
	}
	for i, t := range targets {
		if t == nil {
			return linkage.NewNilEntryError(b.Property(), i)
		}
	}
	st, j, err := b.prepare()
	if err != nil {
		return err
	}
	srcKey, _ := source.KeyOf(src)
	tgt := b.Target()
	ctx, jr, owner := withJournal(ctx)

	var removed, inserted int
	err = st.InTx(ctx, func(ctx context.Context) error {
		existing, err := b.targets(ctx, st, j, srcKey)
		if err != nil {
			return err
		}
		current := make(map[string]bool, len(existing))
		for _, r := range existing {
			if k, ok := tgt.KeyOf(r); ok {
				current[entity.KeyString(k)] = true
			}
		}
		desired := make(map[string]bool, len(targets))
		var inserts []*entity.Record
		for _, t := range targets {
			k, ok := tgt.KeyOf(t)
			if !ok {
				inserts = append(inserts, t)
				continue
			}
			ks := entity.KeyString(k)
			if desired[ks] {
				continue
			}
			desired[ks] = true
			if !current[ks] {
				inserts = append(inserts, t)
			}
		}
		var stale schema.In
		for _, r := range existing {
			if k, ok := tgt.KeyOf(r); ok && !desired[entity.KeyString(k)] {
				stale = append(stale, k)
			}
		}
		if len(stale) > 0 {
			if removed, err = b.deleteLinks(ctx, st, j, srcKey, stale, true); err != nil {
				return err
			}
		}
		for _, t := range inserts {
			if err := b.saveTarget(ctx, st, t, opts); err != nil {
				return err
			}
			if err := b.saveLink(ctx, st, j, srcKey, t, opts); err != nil {
				return err
			}
		}
		inserted = len(inserts)
		return nil
	})
	if err != nil {
		restored := 0
		if owner {
			restored = jr.restore()
		}
		b.log.DebugContext(ctx, "replace failed", "association", b.name, "source", srcKey, "restored", restored, "error", err)
		return err
	}
	b.log.DebugContext(ctx, "replace",
		"association", b.name,
		"source", srcKey,
		"removed", removed,
		"inserted", inserted,
		"kept", len(targets)-inserted,
	)
	b.setProperty(src, targets)
	return nil
}

// saveTarget saves t when it is new or has dirty columns, then saves its own
// dirty many-to-many properties unless opts.SkipAssociated is set.
func (b *BelongsToMany) saveTarget(ctx context.Context, st store.Store, t *entity.Record, opts store.Options) error {
	track(ctx, t)
	tgt := b.Target()
	// Saving cleans t, so the dirty properties are collected first.
	var nested []*BelongsToMany
	if !opts.SkipAssociated {
		for _, a := range tgt.Associations() {
			if m, ok := a.(*BelongsToMany); ok && t.IsDirty(m.Property()) {
				nested = append(nested, m)
			}
		}
	}
	if t.IsNew() || hasDirtyColumns(t) {
		if err := st.Save(ctx, tgt, t, opts); err != nil {
			return persistErr(tgt, "save", err)
		}
	}
	for _, m := range nested {
		if _, err := m.SaveAssociated(ctx, t, opts); err != nil {
			return err
		}
	}
	return nil
}

func hasDirtyColumns(r *entity.Record) bool {
	for _, name := range r.Dirty() {
		if store.Storable(r.Get(name)) {
			return true
		}
	}
	return false
}

type journalKey struct{}

// journal holds the state of the records saved by a replace, in save order.
type journal struct {
	mu    sync.Mutex
	seen  map[*entity.Record]bool
	snaps []entity.Snapshot
}

// withJournal returns the journal carried by ctx. When there is none, a new
// one is attached and owner is true.
func withJournal(ctx context.Context) (context.Context, *journal, bool) {
	if jr, ok := ctx.Value(journalKey{}).(*journal); ok {
		return ctx, jr, false
	}
	jr := &journal{seen: make(map[*entity.Record]bool)}
	return context.WithValue(ctx, journalKey{}, jr), jr, true
}

// track snapshots r in the journal of ctx, once.
func track(ctx context.Context, r *entity.Record) {
	jr, ok := ctx.Value(journalKey{}).(*journal)
	if !ok {
		return
	}
	jr.mu.Lock()
	defer jr.mu.Unlock()
	if jr.seen[r] {
		return
	}
	jr.seen[r] = true
	jr.snaps = append(jr.snaps, r.Snapshot())
}

// restore puts the tracked records back, latest first, and returns how many
// it restored.
func (jr *journal) restore() int {
	jr.mu.Lock()
	defer jr.mu.Unlock()
	for i := len(jr.snaps) - 1; i >= 0; i-- {
		jr.snaps[i].Restore()
	}
	return len(jr.snaps)
}
