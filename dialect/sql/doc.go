// Package sql provides a database/sql backed dialect.Driver and the statement
// builders used by the SQL store.
//
// # Builder Types
//
//   - Builder: low-level statement writer with identifier quoting
//   - Selector: SELECT with WHERE and ORDER BY
//   - InsertBuilder: single-row INSERT with RETURNING support
//   - UpdateBuilder: UPDATE with SET and WHERE clauses
//   - DeleteBuilder: DELETE with WHERE predicates
//
// # Dialect Support
//
// Identifiers are quoted with backticks for MySQL and double quotes
// elsewhere. Placeholders are $n for PostgreSQL and ? elsewhere:
//
//	q, args := sql.Dialect(dialect.Postgres).
//	    Select("article_id", "tag_id").
//	    From("articles_tags").
//	    Where(sql.And(sql.EQ("article_id", 1), sql.In("tag_id", 2, 3))).
//	    Query()
//	// SELECT "article_id", "tag_id" FROM "articles_tags"
//	//     WHERE ("article_id" = $1 AND "tag_id" IN ($2, $3))
//
// # Predicates
//
//	sql.EQ("name", "go")          // name = ?
//	sql.IsNull("deleted_at")      // deleted_at IS NULL
//	sql.In("id", 1, 2)            // id IN (?, ?)
//	sql.And(p1, p2), sql.Or(p1, p2), sql.Not(p)
//
// # Instrumentation
//
// NewStatsDriver counts statements and slow queries; NewLogDriver logs every
// statement through log/slog.
package sql
