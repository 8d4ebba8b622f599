package sqlgraph

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestConstraintClasses(t *testing.T) {
	tests := []struct {
		name                     string
		err                      error
		unique, foreignKey, check bool
	}{
		{name: "nil"},
		{name: "plain", err: errors.New("connection refused")},
		{name: "pq unique", err: &pq.Error{Code: "23505"}, unique: true},
		{name: "pq foreign key", err: &pq.Error{Code: "23503"}, foreignKey: true},
		{name: "pq check", err: &pq.Error{Code: "23514"}, check: true},
		{name: "pq other", err: &pq.Error{Code: "42P01", Message: "violates unique constraint"}},
		{name: "mysql duplicate", err: &mysql.MySQLError{Number: 1062}, unique: true},
		{name: "mysql parent row", err: &mysql.MySQLError{Number: 1451}, foreignKey: true},
		{name: "mysql child row", err: &mysql.MySQLError{Number: 1452}, foreignKey: true},
		{name: "mysql check", err: &mysql.MySQLError{Number: 3819}, check: true},
		{name: "wrapped pq", err: fmt.Errorf("dialect/sql: exec: %w", &pq.Error{Code: "23505"}), unique: true},
		{name: "message unique", err: errors.New("UNIQUE constraint failed: articles_tags.article_id, articles_tags.tag_id"), unique: true},
		{name: "message foreign key", err: errors.New("FOREIGN KEY constraint failed"), foreignKey: true},
		{name: "message check", err: errors.New(`pq: new row violates check constraint "positive"`), check: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.foreignKey, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.foreignKey || tt.check, IsConstraintError(tt.err))
		})
	}
}

func TestConstraintError(t *testing.T) {
	cause := &pq.Error{Code: "23505"}
	err := fmt.Errorf("save: %w", NewConstraintError("duplicate link", cause))
	assert.True(t, IsConstraintError(err))
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, errors.Unwrap(err), "sql/sqlgraph: duplicate link")
}

func TestSQLiteUnique(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE articles_tags (article_id INTEGER, tag_id INTEGER, UNIQUE (article_id, tag_id))`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO articles_tags (article_id, tag_id) VALUES (1, 2)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO articles_tags (article_id, tag_id) VALUES (1, 2)`)
	require.Error(t, err)
	assert.True(t, IsUniqueConstraintError(err))
	assert.False(t, IsForeignKeyConstraintError(err))
}
