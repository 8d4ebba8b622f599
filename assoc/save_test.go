package assoc

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAssociatedEmpty(t *testing.T) {
	empties := map[string]any{
		"nil":         nil,
		"string":      "",
		"false":       false,
		"records":     []*entity.Record{},
		"values":      []any{},
		"nil records": []*entity.Record(nil),
	}
	for name, value := range empties {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			src := f.article(1)
			src.Set("tags", value)
			got, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
			require.NoError(t, err)
			assert.Same(t, src, got)
			assert.Empty(t, f.links(1), "replace removes every link")

			fresh := entity.New(map[string]any{"title": "draft"})
			fresh.Set("tags", value)
			f.st.reset()
			got, err = f.tagsOf.SaveAssociated(context.Background(), fresh, store.Options{})
			require.NoError(t, err)
			assert.Same(t, fresh, got)
			assert.Empty(t, f.st.calls, "nothing to reconcile for a new source")
		})
	}
}

func TestSaveAssociatedAbsent(t *testing.T) {
	f := newFixture(t, WithSaveStrategy(SaveAppend))
	src := f.article(1)
	got, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
	require.NoError(t, err)
	assert.Same(t, src, got)
	assert.Equal(t, []int{1, 2}, f.links(1), "append keeps links")
	assert.Empty(t, f.st.calls)
}

func TestSaveAssociatedShape(t *testing.T) {
	for _, strategy := range []SaveStrategy{SaveAppend, SaveReplace} {
		for _, value := range []any{"tag", 42, true, map[string]any{"id": 1}, f64(1.5)} {
			f := newFixture(t, WithSaveStrategy(strategy))
			src := f.article(1)
			src.Set("tags", value)
			got, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, linkage.IsShapeError(err), "%s %v", strategy, value)
			assert.Contains(t, err.Error(), "not traversable")
			assert.Empty(t, f.st.calls)
		}
	}
}

func f64(v float64) *float64 { return &v }

func TestSaveAssociatedReplace(t *testing.T) {
	f := newFixture(t)
	src := f.article(1)
	src.Set("tags", []any{f.tag(1), map[string]any{"name": "from map"}})

	got, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
	require.NoError(t, err)
	assert.Same(t, src, got)
	assert.Equal(t, []int{1, 5}, f.links(1))
	assert.Equal(t, []int{1, 5}, keys(t, src.Get("tags")))
	assert.False(t, src.IsDirty("tags"))

	src.Set("tags", []any{f.tag(1), 7})
	_, err = f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
	assert.True(t, linkage.IsShapeError(err))
}

func TestSaveAssociatedNilEntry(t *testing.T) {
	f := newFixture(t)
	src := f.article(1)
	src.Set("tags", []*entity.Record{f.tag(1), nil})

	got, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
	assert.Nil(t, got)
	require.True(t, linkage.IsShapeError(err))
	assert.EqualError(t, err, `linkage: cannot save association value "tags": nil entry at index 1`)
	assert.Equal(t, []int{1, 2}, f.links(1))
	assert.Empty(t, f.st.calls)
	assert.True(t, src.IsDirty("tags"))

	src.Set("tags", []any{nil, f.tag(3)})
	_, err = f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
	assert.True(t, linkage.IsShapeError(err), "untyped nil is not a record")
}

func TestSaveAssociatedReplaceFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.st.fail = func(c call) error {
		if c.op == "save" {
			return boom
		}
		return nil
	}
	src := f.article(1)
	src.Set("tags", []*entity.Record{f.tag(3)})
	got, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, linkage.IsPersistenceError(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, f.links(1))
	assert.True(t, src.IsDirty("tags"))
}

func TestSaveAssociatedReplaceNewTargets(t *testing.T) {
	f := newFixture(t)
	src := f.article(2)
	one := entity.New(map[string]any{"name": "one"})
	two := entity.New(map[string]any{"name": "two"})
	src.Set("tags", []*entity.Record{one, two})

	_, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{SkipAssociated: true})
	require.NoError(t, err)
	assert.False(t, one.IsNew())
	assert.False(t, two.IsNew())
	assert.Equal(t, []int{5, 6}, f.links(2), "targets are saved without their own associations")
}

func TestSaveAssociatedAppend(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixture(t, WithSaveStrategy(SaveAppend), WithLogger(log))
	boom := errors.New("boom")
	f.st.fail = func(c call) error {
		if c.op == "save" && c.alias == "Tags" && c.fields["name"] == "broken" {
			return boom
		}
		return nil
	}

	src := f.article(2)
	renamed := f.tag(3)
	renamed.Set("name", "tag three")
	fresh := entity.New(map[string]any{"name": "fresh"})
	src.Set("tags", []any{
		renamed,
		map[string]any{"name": "raw"},
		entity.New(map[string]any{"name": "broken"}),
		fresh,
	})

	got, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
	require.NoError(t, err)
	assert.Same(t, src, got)
	assert.Equal(t, []int{1, 3, 5}, f.links(2), "existing links are kept")
	assert.Equal(t, []int{3, 5}, keys(t, src.Get("tags")))

	rows := f.mem.Rows(f.tags, schema.Conditions{"id": 3})
	require.Len(t, rows, 1)
	assert.Equal(t, "tag three", rows[0]["name"])
	assert.Empty(t, f.mem.Rows(f.tags, schema.Conditions{"name": "raw"}), "raw maps are skipped")

	assert.Contains(t, buf.String(), "skipping non-record entry")
	assert.Contains(t, buf.String(), "skipping target that failed to save")
}

func TestSaveAssociatedAppendNewSource(t *testing.T) {
	f := newFixture(t, WithSaveStrategy(SaveAppend))
	src := entity.New(map[string]any{"title": "draft"})
	src.Set("tags", []*entity.Record{f.tag(1)})
	got, err := f.tagsOf.SaveAssociated(context.Background(), src, store.Options{})
	assert.Nil(t, got)
	assert.True(t, linkage.IsPreconditionError(err))
}
