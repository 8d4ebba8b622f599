package sql

import (
	"testing"

	"github.com/syssam/linkage/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	tests := []struct {
		dialect string
		query   string
	}{
		{dialect.SQLite, `SELECT "article_id", "tag_id" FROM "articles_tags" WHERE ("article_id" = ? AND "tag_id" IN (?, ?)) ORDER BY "tag_id" DESC, "id"`},
		{dialect.MySQL, "SELECT `article_id`, `tag_id` FROM `articles_tags` WHERE (`article_id` = ? AND `tag_id` IN (?, ?)) ORDER BY `tag_id` DESC, `id`"},
		{dialect.Postgres, `SELECT "article_id", "tag_id" FROM "articles_tags" WHERE ("article_id" = $1 AND "tag_id" IN ($2, $3)) ORDER BY "tag_id" DESC, "id"`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			s := Dialect(tt.dialect).Select("article_id", "tag_id").
				From("articles_tags").
				Where(EQ("article_id", 1)).
				Where(In("tag_id", 2, 3)).
				OrderBy(Desc("tag_id"), Asc("id"))
			query, args := s.Query()
			require.NoError(t, s.Err())
			assert.Equal(t, tt.query, query)
			assert.Equal(t, []any{1, 2, 3}, args)
		})
	}
}

func TestSelectorAll(t *testing.T) {
	query, args := Dialect(dialect.SQLite).Select().From("tags").Query()
	assert.Equal(t, `SELECT * FROM "tags"`, query)
	assert.Empty(t, args)
}

func TestInsertBuilder(t *testing.T) {
	tests := []struct {
		name    string
		builder *InsertBuilder
		query   string
		args    []any
	}{
		{
			name:    "postgres returning",
			builder: Dialect(dialect.Postgres).Insert("tags").Columns("name", "slug").Values("go", "go-lang").Returning("id"),
			query:   `INSERT INTO "tags" ("name", "slug") VALUES ($1, $2) RETURNING "id"`,
			args:    []any{"go", "go-lang"},
		},
		{
			name:    "mysql ignores returning",
			builder: Dialect(dialect.MySQL).Insert("tags").Columns("name").Values("go").Returning("id"),
			query:   "INSERT INTO `tags` (`name`) VALUES (?)",
			args:    []any{"go"},
		},
		{
			name:    "default values",
			builder: Dialect(dialect.SQLite).Insert("tags"),
			query:   `INSERT INTO "tags" DEFAULT VALUES`,
		},
		{
			name:    "mysql default values",
			builder: Dialect(dialect.MySQL).Insert("tags"),
			query:   "INSERT INTO `tags` () VALUES ()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := tt.builder.Query()
			require.NoError(t, tt.builder.Err())
			assert.Equal(t, tt.query, query)
			assert.Equal(t, tt.args, args)
		})
	}

	b := Dialect(dialect.SQLite).Insert("tags").Columns("name", "slug").Values("go")
	b.Query()
	assert.ErrorContains(t, b.Err(), "2 columns and 1 values")
}

func TestUpdateBuilder(t *testing.T) {
	u := Dialect(dialect.Postgres).Update("tags").Set("name", "go").Set("slug", nil).Where(EQ("id", 3))
	assert.False(t, u.Empty())
	query, args := u.Query()
	require.NoError(t, u.Err())
	assert.Equal(t, `UPDATE "tags" SET "name" = $1, "slug" = $2 WHERE "id" = $3`, query)
	assert.Equal(t, []any{"go", nil, 3}, args)
	assert.True(t, Dialect(dialect.Postgres).Update("tags").Empty())
}

func TestDeleteBuilder(t *testing.T) {
	d := Dialect(dialect.SQLite).Delete("articles_tags").
		Where(And(EQ("article_id", 1), IsNull("deleted_at"), Not(Or(EQ("tag_id", 2), NotNull("pinned")))))
	query, args := d.Query()
	require.NoError(t, d.Err())
	assert.Equal(t, `DELETE FROM "articles_tags" WHERE ("article_id" = ? AND "deleted_at" IS NULL AND NOT (("tag_id" = ? OR "pinned" IS NOT NULL)))`, query)
	assert.Equal(t, []any{1, 2}, args)

	query, args = Dialect(dialect.SQLite).Delete("tags").Query()
	assert.Equal(t, `DELETE FROM "tags"`, query)
	assert.Empty(t, args)
}

func TestPredicateEmpty(t *testing.T) {
	tests := []struct {
		name string
		p    *Predicate
		want string
	}{
		{"in", In("id"), "1 = 0"},
		{"not in", NotIn("id"), "1 = 1"},
		{"and", And(), "1 = 1"},
		{"or", Or(), "1 = 0"},
		{"single", And(NEQ("id", 1)), `"id" <> ?`},
		{"not in values", NotIn("id", 1, 2), `"id" NOT IN (?, ?)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Builder{dialect: dialect.SQLite}
			tt.p.render(b)
			query, _ := b.Query()
			assert.Equal(t, tt.want, query)
		})
	}
}

func TestInvalidIdentifier(t *testing.T) {
	s := Dialect(dialect.SQLite).Select("id").From("tags; DROP TABLE tags")
	s.Query()
	assert.ErrorContains(t, s.Err(), `invalid identifier "tags; DROP TABLE tags"`)
}
