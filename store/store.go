// Package store defines the persistence capabilities consumed by the link
// engine. Implementations live in the memstore and sqlstore subpackages.
package store

import (
	"context"

	"github.com/syssam/linkage/entity"
	"github.com/syssam/linkage/schema"
)

// Query selects records of a collection.
type Query struct {
	Where schema.Conditions
	Order schema.Sort
}

// Options are passed through to Save and to the lifecycle hooks.
type Options struct {
	// SkipAssociated disables the recursive save of the record's own
	// many-to-many properties.
	SkipAssociated bool
	// Values carries caller-defined options untouched.
	Values map[string]any
}

// Store is the persistence layer of a single collection at a time.
type Store interface {
	// Find returns the records of c matching q. Returned records are persisted
	// and clean.
	Find(ctx context.Context, c *schema.Collection, q Query) ([]*entity.Record, error)

	// Save inserts a new record or updates a persisted one. A new record
	// carrying the key of an existing row updates that row. On success r is
	// persisted, clean, and holds its primary key.
	Save(ctx context.Context, c *schema.Collection, r *entity.Record, opts Options) error

	// Delete removes a persisted record, firing the collection's delete hooks.
	Delete(ctx context.Context, c *schema.Collection, r *entity.Record) error

	// DeleteAll removes every row matching where in one operation, without
	// hooks, and returns the number of rows removed.
	DeleteAll(ctx context.Context, c *schema.Collection, where schema.Conditions) (int, error)

	// InTx runs fn inside a transaction. Writes done through ctx are rolled
	// back if fn returns an error. Nested calls join the outer transaction.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
