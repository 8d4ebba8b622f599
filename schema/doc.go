// Package schema describes record collections and the relationships between
// them.
//
// A Collection is the descriptor of one table: its alias, storage table,
// primary key column, lifecycle hooks and the associations it owns, keyed by
// association name. Collections are obtained from a Registry, which is created
// once per application context and passed explicitly to whoever needs it:
//
//	reg := schema.NewRegistry()
//	articles := reg.Get("Articles")
//	tags := reg.Get("Tags")
//
// # Relation Kinds
//
// Associations are tagged variants:
//
//   - BelongsTo: the owner holds the foreign key (junction -> participant)
//   - HasMany: the target holds the foreign key (participant -> junction)
//   - ManyToMany: two participants linked through a junction collection
//
// BelongsTo and HasMany are plain Relation values built by this package.
// ManyToMany associations are implemented by the assoc package and registered
// through the same Association interface.
//
// # Registration
//
// AddAssociation is idempotent: registering a name that already exists keeps
// the first definition. This makes reciprocal wiring order-independent, a
// collection configured explicitly is never overwritten by the automatic
// wiring of the other side.
//
// # Conditions
//
// Conditions are column equality constraints:
//
//	schema.Conditions{"highlighted": true, "tag_id": schema.In{1, 2}}
//
// Keys may be qualified by a collection alias ("SpecialTags.highlighted").
// Local and Qualified split a set of conditions per collection.
package schema
