package schema

import (
	"slices"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TableName returns the default table name for an alias: "ArticlesTags" -> "articles_tags".
func TableName(alias string) string {
	return inflect.Underscore(alias)
}

// AliasName returns the alias for a table name: "tags_articles" -> "TagsArticles".
func AliasName(table string) string {
	// Casers are stateful and must not be shared between goroutines.
	titleCaser := cases.Title(language.English, cases.NoLower)
	parts := strings.Split(table, "_")
	for i, p := range parts {
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, "")
}

// ForeignKeyName returns the conventional column referencing rows of table:
// "articles" -> "article_id".
func ForeignKeyName(table string) string {
	return inflect.Singularize(table) + "_id"
}

// JunctionTableName returns the default junction table for two participant
// tables, ordered alphabetically: ("tags", "articles") -> "articles_tags".
func JunctionTableName(a, b string) string {
	names := []string{a, b}
	slices.Sort(names)
	return strings.Join(names, "_")
}

// PropertyName returns the record property for an association name. Any
// namespace prefix is dropped: "Contacts.Tags" -> "tags".
func PropertyName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return inflect.Underscore(name)
}

// UUIDKeys generates string primary keys with UUID v7, which sort by creation time.
func UUIDKeys() KeyGenerator {
	return func() any {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	}
}
