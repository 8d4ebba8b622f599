package assoc

import (
	"context"
	"reflect"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/store"
)

// SaveAssociated persists the links held in the association property of src
// according to the save strategy, and returns src.
//
// An empty property (absent, nil, "", false or a zero-length sequence)
// removes every owned link of a persisted source under SaveReplace and is a
// no-op otherwise. A non-empty value that is not a sequence fails with a
// *linkage.ShapeError.
//
// Under SaveReplace, map entries become new target records and the sequence
// is passed to ReplaceLinks. Under SaveAppend, entries that are not records
// are skipped, each record is saved, and the records saved successfully are
// linked.
//
// A failed replace returns a nil record and the error; callers test it with
// linkage.IsPersistenceError to decide whether the enclosing save fails.
func (b *BelongsToMany) SaveAssociated(ctx context.Context, src *entity.Record, opts store.Options) (*entity.Record, error) {
	prop := b.Property()
	value := src.Get(prop)
	strategy := b.SaveStrategy()
	if isEmpty(value) {
		if strategy == SaveReplace && !src.IsNew() {
			if err := b.ReplaceLinks(ctx, src, nil, opts); err != nil {
				return nil, err
			}
		}
		return src, nil
	}
	entries, ok := sequence(value)
	if !ok {
		return nil, linkage.NewShapeError(prop, value)
	}
	if strategy == SaveReplace {
		targets := make([]*entity.Record, 0, len(entries))
		for i, e := range entries {
			switch e := e.(type) {
			case *entity.Record:
				if e == nil {
					return nil, linkage.NewNilEntryError(prop, i)
				}
				targets = append(targets, e)
			case map[string]any:
				targets = append(targets, entity.New(e))
			default:
				return nil, linkage.NewShapeError(prop, e)
			}
		}
		if err := b.ReplaceLinks(ctx, src, targets, opts); err != nil {
			return nil, err
		}
		return src, nil
	}
	return b.saveAppend(ctx, src, entries, opts)
}

func (b *BelongsToMany) saveAppend(ctx context.Context, src *entity.Record, entries []any, opts store.Options) (*entity.Record, error) {
	st, _, err := b.prepare()
	if err != nil {
		return nil, err
	}
	saved := make([]*entity.Record, 0, len(entries))
	for i, e := range entries {
		t, ok := e.(*entity.Record)
		if !ok || t == nil {
			b.log.WarnContext(ctx, "skipping non-record entry", "association", b.name, "index", i, "type", reflect.TypeOf(e))
			continue
		}
		if err := b.saveTarget(ctx, st, t, opts); err != nil {
			b.log.WarnContext(ctx, "skipping target that failed to save", "association", b.name, "index", i, "error", err)
			continue
		}
		saved = append(saved, t)
	}
	if len(saved) == 0 {
		return src, nil
	}
	if err := b.Link(ctx, src, saved, opts); err != nil {
		return nil, err
	}
	return src, nil
}

// sequence returns the entries of a slice or array value.
func sequence(v any) ([]any, bool) {
	switch v := v.(type) {
	case []*entity.Record:
		out := make([]any, len(v))
		for i, r := range v {
			out[i] = r
		}
		return out, true
	case []any:
		return v, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
