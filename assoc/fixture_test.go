package assoc

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"

	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"
	"github.com/syssam/linkage/store/memstore"

	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// call is one store operation seen by recorder.
type call struct {
	op     string
	alias  string
	fields map[string]any
	where  schema.Conditions
}

// recorder wraps a store, records the calls made through it and fails the
// ones matched by fail.
type recorder struct {
	store.Store

	mu    sync.Mutex
	calls []call
	fail  func(c call) error
}

func (r *recorder) record(c call) error {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return fail(c)
	}
	return nil
}

func (r *recorder) Find(ctx context.Context, c *schema.Collection, q store.Query) ([]*entity.Record, error) {
	if err := r.record(call{op: "find", alias: c.Alias(), where: q.Where}); err != nil {
		return nil, err
	}
	return r.Store.Find(ctx, c, q)
}

func (r *recorder) Save(ctx context.Context, c *schema.Collection, rec *entity.Record, opts store.Options) error {
	if err := r.record(call{op: "save", alias: c.Alias(), fields: store.Columns(rec)}); err != nil {
		return err
	}
	return r.Store.Save(ctx, c, rec, opts)
}

func (r *recorder) Delete(ctx context.Context, c *schema.Collection, rec *entity.Record) error {
	if err := r.record(call{op: "delete", alias: c.Alias(), fields: store.Columns(rec)}); err != nil {
		return err
	}
	return r.Store.Delete(ctx, c, rec)
}

func (r *recorder) DeleteAll(ctx context.Context, c *schema.Collection, where schema.Conditions) (int, error) {
	if err := r.record(call{op: "deleteAll", alias: c.Alias(), where: maps.Clone(where)}); err != nil {
		return 0, err
	}
	return r.Store.DeleteAll(ctx, c, where)
}

// ops returns the recorded calls of the given operation on alias.
func (r *recorder) ops(op, alias string) []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []call
	for _, c := range r.calls {
		if c.op == op && c.alias == alias {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.fail = nil
}

type fixture struct {
	reg      *schema.Registry
	mem      *memstore.Store
	st       *recorder
	articles *schema.Collection
	tags     *schema.Collection
	junction *schema.Collection
	tagsOf   *BelongsToMany
}

// newFixture defines Articles.Tags over an in-memory store holding two
// articles, four tags and the links {1-1, 1-2, 2-1}.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		reg: schema.NewRegistry(),
		mem: memstore.New(memstore.WithUniqueKey("articles_tags", "article_id", "tag_id")),
	}
	f.st = &recorder{Store: f.mem}
	f.articles = f.reg.Get("Articles")
	f.tags = f.reg.Get("Tags")
	var err error
	f.tagsOf, err = Define(f.articles, "Tags", append([]Option{
		WithRegistry(f.reg),
		WithStore(f.st),
		WithLogger(discard),
	}, opts...)...)
	require.NoError(t, err)
	f.junction, err = f.tagsOf.Junction()
	require.NoError(t, err)

	f.mem.Insert(f.articles,
		map[string]any{"id": 1, "title": "First"},
		map[string]any{"id": 2, "title": "Second"},
	)
	f.mem.Insert(f.tags,
		map[string]any{"id": 1, "name": "tag1"},
		map[string]any{"id": 2, "name": "tag2"},
		map[string]any{"id": 3, "name": "tag3"},
		map[string]any{"id": 4, "name": "tag4"},
	)
	f.mem.Insert(f.junction,
		map[string]any{"id": 1, "article_id": 1, "tag_id": 1},
		map[string]any{"id": 2, "article_id": 1, "tag_id": 2},
		map[string]any{"id": 3, "article_id": 2, "tag_id": 1},
	)
	return f
}

func (f *fixture) article(id int) *entity.Record {
	return entity.New(map[string]any{"id": id}, entity.Persisted())
}

func (f *fixture) tag(id int) *entity.Record {
	return entity.New(map[string]any{"id": id}, entity.Persisted())
}

// links returns the tag ids linked to the article, in insertion order.
func (f *fixture) links(articleID int) []int {
	var out []int
	for _, row := range f.mem.Rows(f.junction, schema.Conditions{"article_id": articleID}) {
		n, _ := entity.AsInt64(row["tag_id"])
		out = append(out, int(n))
	}
	return out
}

func keys(t *testing.T, records any) []int {
	t.Helper()
	rs, ok := records.([]*entity.Record)
	require.True(t, ok, "property holds %T", records)
	out := make([]int, len(rs))
	for i, r := range rs {
		n, _ := entity.AsInt64(r.Get("id"))
		out[i] = int(n)
	}
	return out
}
