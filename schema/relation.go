package schema

import (
	"fmt"
	"sync"
)

// Kind is the kind of an association.
type Kind int

// Association kinds.
const (
	Unknown    Kind = iota // Unknown.
	BelongsTo              // Owner holds the foreign key.
	HasMany                // Target holds the foreign key.
	ManyToMany             // Linked through a junction collection.
)

// String returns the kind name.
func (k Kind) String() string {
	s := "Unknown"
	switch k {
	case BelongsTo:
		s = "BelongsTo"
	case HasMany:
		s = "HasMany"
	case ManyToMany:
		s = "ManyToMany"
	}
	return s
}

// Association is implemented by every relationship registered on a Collection.
type Association interface {
	// Name is unique per source collection.
	Name() string
	Kind() Kind
	Source() *Collection
	Target() *Collection
	// ForeignKey is the column holding the link: on the source for
	// BelongsTo, on the target for HasMany, on the junction for ManyToMany.
	ForeignKey() string
	Conditions() Conditions
}

// Relation is a single-record (BelongsTo) or one-to-many (HasMany) association.
type Relation struct {
	mu         sync.RWMutex
	name       string
	kind       Kind
	source     *Collection
	target     *Collection
	foreignKey string
	conditions Conditions
}

// NewBelongsTo returns a relation from source to target where source holds fk.
func NewBelongsTo(name string, source, target *Collection, fk string) *Relation {
	return &Relation{name: name, kind: BelongsTo, source: source, target: target, foreignKey: fk}
}

// NewHasMany returns a relation from source to target where target holds fk.
func NewHasMany(name string, source, target *Collection, fk string) *Relation {
	return &Relation{name: name, kind: HasMany, source: source, target: target, foreignKey: fk}
}

// Name implements Association.
func (r *Relation) Name() string { return r.name }

// Kind implements Association.
func (r *Relation) Kind() Kind { return r.kind }

// Source implements Association.
func (r *Relation) Source() *Collection { return r.source }

// Target implements Association.
func (r *Relation) Target() *Collection { return r.target }

// ForeignKey implements Association.
func (r *Relation) ForeignKey() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.foreignKey
}

// SetForeignKey changes the foreign key column.
func (r *Relation) SetForeignKey(fk string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.foreignKey = fk
}

// Conditions implements Association.
func (r *Relation) Conditions() Conditions {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conditions.Clone()
}

// SetConditions replaces the conditions restricting the related rows.
func (r *Relation) SetConditions(c Conditions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions = c.Clone()
}

// String returns a short description of the relation.
func (r *Relation) String() string {
	return fmt.Sprintf("%s(%s.%s -> %s, fk=%s)", r.kind, r.source.Alias(), r.name, r.target.Alias(), r.ForeignKey())
}

var _ Association = (*Relation)(nil)
