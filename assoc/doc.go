// Package assoc implements many-to-many associations: a source collection
// linked to a target collection through a junction collection holding one
// row per link.
//
// A BelongsToMany describes one such association. It resolves its junction
// lazily from an injected schema.Registry, wiring the reciprocal relations on
// every participant:
//
//	junction  BelongsTo  <source alias>   (foreign key)
//	junction  BelongsTo  <target alias>   (target foreign key)
//	source    HasMany    <junction alias> (foreign key)
//	target    HasMany    <junction alias> (target foreign key)
//	target    ManyToMany <source alias>   (keys swapped)
//
// Junction rows are written through a store.Store:
//
//	reg := schema.NewRegistry()
//	articles := reg.Get("Articles")
//	tags, err := assoc.Define(articles, "Tags",
//	    assoc.WithRegistry(reg),
//	    assoc.WithStore(memstore.New()),
//	)
//	...
//	err = tags.ReplaceLinks(ctx, article, []*entity.Record{golang, postgres}, store.Options{})
//
// Link and Unlink add and remove individual links. ReplaceLinks reconciles
// the persisted links with a desired set, writing only the difference.
// CascadeDelete removes the links of a deleted source record, and
// SaveAssociated dispatches a record's association property to the configured
// save strategy.
package assoc
