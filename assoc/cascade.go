package assoc

import (
	"context"

	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/schema"
)

// CascadeDelete removes the junction rows of a deleted source record. It does
// nothing when the association is not dependent or src has no key.
//
// The rows removed are those matching the source key, the association
// conditions and the conditions of the source's HasMany relation to the
// junction. Without cascade callbacks they are removed with a single
// DeleteAll; with them, each row is deleted on its own so that the junction
// delete hooks fire.
func (b *BelongsToMany) CascadeDelete(ctx context.Context, src *entity.Record) error {
	if !b.Dependent() {
		return nil
	}
	source := b.Source()
	if source == nil {
		return nil
	}
	key, ok := source.KeyOf(src)
	if !ok {
		return nil
	}
	st, j, err := b.prepare()
	if err != nil {
		return err
	}
	where := b.Conditions().Local(j.Alias())
	if rel, ok := source.Association(j.Alias()); ok && rel.Kind() == schema.HasMany {
		where = where.Merge(rel.Conditions())
	}
	where[b.ForeignKey()] = key

	callbacks := b.CascadeCallbacks()
	var n int
	err = st.InTx(ctx, func(ctx context.Context) error {
		var derr error
		n, derr = deleteRows(ctx, st, j, where, callbacks)
		return derr
	})
	if err != nil {
		return err
	}
	b.log.DebugContext(ctx, "cascade", "association", b.name, "source", key, "deleted", n, "callbacks", callbacks)
	return nil
}
