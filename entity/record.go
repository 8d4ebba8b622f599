// Package entity provides Record, the in-memory row representation used by the
// link engine and its stores.
package entity

import (
	"maps"
	"reflect"
	"slices"
	"sync"
)

// Record is a mapping of column name to value, together with a
// persistence-state flag and per-field dirty flags.
//
// A Record starts out new. Stores mark it persisted after a successful save
// or when they hydrate it from storage.
type Record struct {
	mu     sync.RWMutex
	fields map[string]any
	dirty  map[string]bool
	isNew  bool
}

// Option configures a Record at construction.
type Option func(*Record)

// Persisted marks the record as already stored. Its initial fields start clean.
func Persisted() Option {
	return func(r *Record) {
		r.isNew = false
		clear(r.dirty)
	}
}

// New returns a new record holding a copy of fields. All fields start dirty.
func New(fields map[string]any, opts ...Option) *Record {
	r := &Record{
		fields: make(map[string]any, len(fields)),
		dirty:  make(map[string]bool, len(fields)),
		isNew:  true,
	}
	for k, v := range fields {
		r.fields[k] = v
		r.dirty[k] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the value of the field, or nil if unset.
func (r *Record) Get(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fields[name]
}

// Has reports whether the field is set.
func (r *Record) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fields[name]
	return ok
}

// Set assigns the field and marks it dirty.
func (r *Record) Set(name string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[name] = v
	r.dirty[name] = true
}

// Unset removes the field.
func (r *Record) Unset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fields, name)
	delete(r.dirty, name)
}

// Fields returns a copy of the field map.
func (r *Record) Fields() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.fields)
}

// Columns returns the field names in sorted order.
func (r *Record) Columns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.fields))
}

// IsNew reports whether the record has not been stored yet.
func (r *Record) IsNew() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isNew
}

// SetNew sets the persistence-state flag.
func (r *Record) SetNew(isNew bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isNew = isNew
}

// IsDirty reports whether the field was modified since it was last cleaned.
func (r *Record) IsDirty(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dirty[name]
}

// Dirty returns the names of the dirty fields in sorted order.
func (r *Record) Dirty() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.dirty))
	for k, d := range r.dirty {
		if d {
			names = append(names, k)
		}
	}
	slices.Sort(names)
	return names
}

// SetDirty sets the dirty flag of a single field.
func (r *Record) SetDirty(name string, dirty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dirty {
		r.dirty[name] = true
		return
	}
	delete(r.dirty, name)
}

// Clean clears every dirty flag.
func (r *Record) Clean() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.dirty)
}

// Snapshot is a copy of the state of a record, taken with Record.Snapshot.
type Snapshot struct {
	r      *Record
	fields map[string]any
	dirty  map[string]bool
	isNew  bool
}

// Snapshot copies the fields, dirty flags and persistence state of r.
// Field values are copied shallowly.
func (r *Record) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		r:      r,
		fields: maps.Clone(r.fields),
		dirty:  maps.Clone(r.dirty),
		isNew:  r.isNew,
	}
}

// Restore puts the record back in the state it had when s was taken.
func (s Snapshot) Restore() {
	if s.r == nil {
		return
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.fields = maps.Clone(s.fields)
	s.r.dirty = maps.Clone(s.dirty)
	s.r.isNew = s.isNew
}

// Key returns the value stored under the primary key column.
// ok is false when the value is unset or nil.
func (r *Record) Key(column string) (any, bool) {
	v := r.Get(column)
	if isNil(v) {
		return nil, false
	}
	return v, true
}

// Persisted reports whether the record is stored and carries a primary key.
func (r *Record) Persisted(column string) bool {
	if r == nil || r.IsNew() {
		return false
	}
	_, ok := r.Key(column)
	return ok
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
