package assoc

import (
	"log/slog"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"
)

// Option configures a BelongsToMany.
type Option func(*BelongsToMany) error

// WithSource sets the source collection.
func WithSource(c *schema.Collection) Option {
	return func(b *BelongsToMany) error {
		if c == nil {
			return linkage.NewConfigError("source", nil, "collection cannot be nil")
		}
		b.source = c
		return nil
	}
}

// WithTarget sets the target collection.
func WithTarget(c *schema.Collection) Option {
	return func(b *BelongsToMany) error {
		if c == nil {
			return linkage.NewConfigError("target", nil, "collection cannot be nil")
		}
		b.target = c
		return nil
	}
}

// WithThrough sets an explicit junction collection. It is wired on first use.
func WithThrough(c *schema.Collection) Option {
	return func(b *BelongsToMany) error {
		if c == nil {
			return linkage.NewConfigError("through", nil, "collection cannot be nil")
		}
		b.junction = c
		return nil
	}
}

// WithJoinTable sets the junction table name. The junction alias is derived
// from it: "tags_articles" -> "TagsArticles".
func WithJoinTable(table string) Option {
	return func(b *BelongsToMany) error {
		b.joinTable = table
		return nil
	}
}

// WithForeignKey sets the junction column referencing the source.
func WithForeignKey(fk string) Option {
	return func(b *BelongsToMany) error {
		b.foreignKey = fk
		return nil
	}
}

// WithTargetForeignKey sets the junction column referencing the target.
func WithTargetForeignKey(fk string) Option {
	return func(b *BelongsToMany) error {
		b.targetFK = fk
		return nil
	}
}

// WithConditions restricts the junction and target rows owned by the
// association.
func WithConditions(c schema.Conditions) Option {
	return func(b *BelongsToMany) error {
		b.conditions = c.Clone()
		return nil
	}
}

// WithSort sets the order of the fetched targets.
func WithSort(s schema.Sort) Option {
	return func(b *BelongsToMany) error {
		b.sort = s
		return nil
	}
}

// WithStrategy sets the fetch strategy.
func WithStrategy(s Strategy) Option {
	return func(b *BelongsToMany) error {
		if err := validStrategy(s); err != nil {
			return err
		}
		b.strategy = s
		return nil
	}
}

// WithSaveStrategy sets the save strategy.
func WithSaveStrategy(s SaveStrategy) Option {
	return func(b *BelongsToMany) error {
		if s != SaveAppend && s != SaveReplace {
			return linkage.NewConfigError("save strategy", s, "use append or replace")
		}
		b.saveStrategy = s
		return nil
	}
}

// WithDependent sets whether deleting a source record removes its links.
func WithDependent(v bool) Option {
	return func(b *BelongsToMany) error {
		b.dependent = v
		return nil
	}
}

// WithCascadeCallbacks sets whether links are removed one row at a time so
// that the junction delete hooks fire.
func WithCascadeCallbacks(v bool) Option {
	return func(b *BelongsToMany) error {
		b.callbacks = v
		return nil
	}
}

// WithPropertyName overrides the source record property holding the targets.
func WithPropertyName(name string) Option {
	return func(b *BelongsToMany) error {
		b.property = name
		return nil
	}
}

// WithRegistry sets the registry used to resolve the target and junction.
// Associations sharing collections must share a registry.
func WithRegistry(r *schema.Registry) Option {
	return func(b *BelongsToMany) error {
		if r == nil {
			return linkage.NewConfigError("registry", nil, "registry cannot be nil")
		}
		b.registry = r
		return nil
	}
}

// WithStore sets the store used to read and write records.
func WithStore(s store.Store) Option {
	return func(b *BelongsToMany) error {
		b.store = s
		return nil
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *BelongsToMany) error {
		b.log = l
		return nil
	}
}
