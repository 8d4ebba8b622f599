package assoc

import (
	"github.com/syssam/linkage"
	"github.com/syssam/linkage/schema"
)

// Junction returns the junction collection, resolving and wiring it on first
// use. Without an explicit junction, the table is the sorted participant
// tables joined with "_", or the configured join table, and the collection is
// looked up in the registry under the camelized table name.
func (b *BelongsToMany) Junction() (*schema.Collection, error) {
	b.mu.RLock()
	j, wired := b.junction, b.wired
	b.mu.RUnlock()
	if j != nil && wired {
		return j, nil
	}
	src := b.Source()
	if src == nil {
		return nil, linkage.NewConfigError("source", nil, "association "+b.name+" has no source collection")
	}
	if j == nil {
		b.mu.RLock()
		table := b.joinTable
		b.mu.RUnlock()
		if table == "" {
			table = schema.JunctionTableName(src.Table(), b.Target().Table())
		}
		j = b.registry.Get(schema.AliasName(table), schema.WithTable(table))
	}
	b.adopt(j)
	return j, nil
}

// SetJunction makes j the junction collection and wires it.
func (b *BelongsToMany) SetJunction(j *schema.Collection) error {
	if j == nil {
		return linkage.NewConfigError("junction", nil, "collection cannot be nil")
	}
	if b.Source() == nil {
		return linkage.NewConfigError("source", nil, "association "+b.name+" has no source collection")
	}
	b.mu.RLock()
	same := b.junction == j && b.wired
	b.mu.RUnlock()
	if !same {
		b.adopt(j)
	}
	return nil
}

// SetJunctionName resolves the junction through the registry. Resolving to
// the current junction keeps it as is.
func (b *BelongsToMany) SetJunctionName(alias string) error {
	if alias == "" {
		return linkage.NewConfigError("junction", nil, "name cannot be empty")
	}
	return b.SetJunction(b.registry.Get(alias))
}

// adopt wires j and caches it. Calls are serialized so that two concurrent
// resolutions register the relations once.
func (b *BelongsToMany) adopt(j *schema.Collection) {
	b.wireMu.Lock()
	defer b.wireMu.Unlock()
	b.mu.RLock()
	done := b.junction == j && b.wired
	prev := b.links
	b.mu.RUnlock()
	if done {
		return
	}
	w := b.wire(j, prev)
	b.mu.Lock()
	b.junction = j
	b.wired = true
	b.links = w
	b.mu.Unlock()
}

// wire registers the reciprocal relations around j, after removing the ones
// registered for the previous junction. A relation already registered under
// the same name keeps its own definition; it is tracked for key changes only
// when it has the expected kind. A reverse association created by a previous
// wiring is moved to j.
func (b *BelongsToMany) wire(j *schema.Collection, prev wiring) wiring {
	src, tgt := b.Source(), b.Target()
	fk, tfk := b.ForeignKey(), b.TargetForeignKey()
	unwire(prev.owned)

	var w wiring
	w.junctionSource = w.add(j, schema.NewBelongsTo(src.Alias(), j, src, fk))
	w.junctionTarget = w.add(j, schema.NewBelongsTo(tgt.Alias(), j, tgt, tfk))
	w.targetJunction = w.add(tgt, schema.NewHasMany(j.Alias(), tgt, j, tfk))
	w.sourceJunction = w.add(src, schema.NewHasMany(j.Alias(), src, j, fk))
	if src != tgt {
		existing, ok := tgt.Association(src.Alias())
		switch {
		case !ok:
			w.reverse = b.newReverse()
			tgt.AddAssociation(w.reverse)
		case prev.reverse != nil && existing == schema.Association(prev.reverse):
			w.reverse = prev.reverse
		}
	}
	if w.reverse != nil {
		w.reverse.mu.Lock()
		w.reverse.junction = j
		w.reverse.wired = true
		w.reverse.links = wiring{
			junctionSource: w.junctionTarget,
			junctionTarget: w.junctionSource,
			sourceJunction: w.targetJunction,
			targetJunction: w.sourceJunction,
			reverse:        b,
		}
		w.reverse.mu.Unlock()
	}
	b.log.Debug("junction wired",
		"association", b.name,
		"junction", j.Alias(),
		"foreign_key", fk,
		"target_foreign_key", tfk,
	)
	return w
}

// newReverse returns the association from the target back to the source,
// with the keys swapped.
func (b *BelongsToMany) newReverse() *BelongsToMany {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &BelongsToMany{
		name:         b.source.Alias(),
		source:       b.target,
		target:       b.source,
		foreignKey:   b.targetFK,
		targetFK:     b.foreignKey,
		strategy:     StrategySelect,
		saveStrategy: SaveReplace,
		dependent:    true,
		registry:     b.registry,
		store:        b.store,
		log:          b.log,
	}
}

// add registers r on c and returns the relation registered under its name,
// or nil when that name holds another kind of association.
func (w *wiring) add(c *schema.Collection, r *schema.Relation) *schema.Relation {
	a, created := c.AddAssociation(r)
	if created {
		w.owned = append(w.owned, r)
	}
	if rel, ok := a.(*schema.Relation); ok && rel.Kind() == r.Kind() {
		return rel
	}
	return nil
}

// unwire removes the relations from the collections that still hold them.
func unwire(owned []*schema.Relation) {
	for _, r := range owned {
		c := r.Source()
		if cur, ok := c.Association(r.Name()); ok && cur == schema.Association(r) {
			c.RemoveAssociation(r.Name())
		}
	}
}
