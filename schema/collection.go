package schema

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/syssam/linkage/entity"
)

// DefaultPrimaryKey is the primary key column used when none is configured.
const DefaultPrimaryKey = "id"

// KeyGenerator returns a fresh primary key value for a new record.
type KeyGenerator func() any

// Collection describes a record collection (a table) and the associations it owns.
type Collection struct {
	alias      string
	table      string
	primaryKey string
	keyGen     KeyGenerator

	mu     sync.RWMutex
	assocs map[string]Association
	order  []string
	hooks  map[Event][]Hook
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithTable sets the storage table name. Defaults to the underscored alias.
func WithTable(table string) CollectionOption {
	return func(c *Collection) {
		if table != "" {
			c.table = table
		}
	}
}

// WithPrimaryKey sets the primary key column. Defaults to "id".
func WithPrimaryKey(column string) CollectionOption {
	return func(c *Collection) {
		if column != "" {
			c.primaryKey = column
		}
	}
}

// WithKeyGenerator makes stores assign keys from gen instead of relying on
// auto-increment.
func WithKeyGenerator(gen KeyGenerator) CollectionOption {
	return func(c *Collection) {
		c.keyGen = gen
	}
}

// NewCollection returns a collection with the given alias.
func NewCollection(alias string, opts ...CollectionOption) *Collection {
	c := &Collection{
		alias:      alias,
		table:      TableName(alias),
		primaryKey: DefaultPrimaryKey,
		assocs:     make(map[string]Association),
		hooks:      make(map[Event][]Hook),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Alias returns the collection alias, e.g. "ArticlesTags".
func (c *Collection) Alias() string { return c.alias }

// Table returns the storage table name, e.g. "articles_tags".
func (c *Collection) Table() string { return c.table }

// PrimaryKey returns the primary key column.
func (c *Collection) PrimaryKey() string { return c.primaryKey }

// NewKey returns a generated key, or false if the collection relies on the
// store to assign keys.
func (c *Collection) NewKey() (any, bool) {
	if c.keyGen == nil {
		return nil, false
	}
	return c.keyGen(), true
}

// KeyOf returns the primary key value of r.
func (c *Collection) KeyOf(r *entity.Record) (any, bool) {
	if r == nil {
		return nil, false
	}
	return r.Key(c.primaryKey)
}

// AddAssociation registers a. If an association with the same name is already
// registered, it is kept and returned with false.
func (c *Collection) AddAssociation(a Association) (Association, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.assocs[a.Name()]; ok {
		return old, false
	}
	c.assocs[a.Name()] = a
	c.order = append(c.order, a.Name())
	return a, true
}

// SetAssociation registers a, replacing any association with the same name.
func (c *Collection) SetAssociation(a Association) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.assocs[a.Name()]; !ok {
		c.order = append(c.order, a.Name())
	}
	c.assocs[a.Name()] = a
}

// Association returns the association registered under name.
func (c *Collection) Association(name string) (Association, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.assocs[name]
	return a, ok
}

// Associations returns the registered associations in registration order.
func (c *Collection) Associations() []Association {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Association, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.assocs[name])
	}
	return out
}

// RemoveAssociation unregisters the association named name.
func (c *Collection) RemoveAssociation(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.assocs[name]; !ok {
		return
	}
	delete(c.assocs, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
}

// String returns the collection alias and table.
func (c *Collection) String() string {
	return fmt.Sprintf("%s(%s)", c.alias, c.table)
}

// Event is a lifecycle event emitted by stores.
type Event string

// Lifecycle events.
const (
	BeforeSave   Event = "before_save"
	AfterSave    Event = "after_save"
	BeforeDelete Event = "before_delete"
	AfterDelete  Event = "after_delete"
)

// Hook observes a lifecycle event. A non-nil error returned from a Before
// hook aborts the write.
type Hook func(ctx context.Context, c *Collection, r *entity.Record) error

// On registers a hook for the event.
func (c *Collection) On(e Event, h Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[e] = append(c.hooks[e], h)
}

// Emit runs the hooks registered for the event in registration order and
// stops at the first error.
func (c *Collection) Emit(ctx context.Context, e Event, r *entity.Record) error {
	c.mu.RLock()
	hooks := slices.Clone(c.hooks[e])
	c.mu.RUnlock()
	for _, h := range hooks {
		if err := h(ctx, c, r); err != nil {
			return fmt.Errorf("%s hook on %s: %w", e, c.alias, err)
		}
	}
	return nil
}
