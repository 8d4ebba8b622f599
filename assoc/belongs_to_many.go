package assoc

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"
)

// Strategy is the strategy used to fetch the target records.
type Strategy string

// Fetch strategies.
const (
	StrategySelect   Strategy = "select"
	StrategySubquery Strategy = "subquery"
	// StrategyJoin is recognized only to be rejected: the targets of a
	// many-to-many association cannot be reached with a single join.
	StrategyJoin Strategy = "join"
)

// SaveStrategy is the policy applied by SaveAssociated.
type SaveStrategy string

// Save strategies.
const (
	// SaveAppend links the saved targets to the existing ones.
	SaveAppend SaveStrategy = "append"
	// SaveReplace makes the persisted links equal to the property.
	SaveReplace SaveStrategy = "replace"
)

// JoinDataProperty is the target record property holding extra junction
// columns, as a map[string]any or an *entity.Record.
const JoinDataProperty = "_joinData"

// BelongsToMany is a many-to-many association between a source and a target
// collection.
type BelongsToMany struct {
	mu     sync.RWMutex
	wireMu sync.Mutex

	name         string
	source       *schema.Collection
	target       *schema.Collection
	foreignKey   string
	targetFK     string
	joinTable    string
	conditions   schema.Conditions
	sort         schema.Sort
	strategy     Strategy
	saveStrategy SaveStrategy
	dependent    bool
	callbacks    bool
	property     string

	registry *schema.Registry
	store    store.Store
	log      *slog.Logger

	junction *schema.Collection
	wired    bool
	// relations created by wire, kept in sync with the keys.
	links wiring
}

// wiring holds the reciprocal relations around the junction. Relations of
// another kind registered under the same name are left out. owned lists the
// relations this association registered itself.
type wiring struct {
	junctionSource *schema.Relation
	junctionTarget *schema.Relation
	sourceJunction *schema.Relation
	targetJunction *schema.Relation
	reverse        *BelongsToMany
	owned          []*schema.Relation
}

// New returns a many-to-many association named name. The association is not
// registered on its source; see Define.
func New(name string, opts ...Option) (*BelongsToMany, error) {
	b := &BelongsToMany{
		name:         name,
		strategy:     StrategySelect,
		saveStrategy: SaveReplace,
		dependent:    true,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.registry == nil {
		b.registry = schema.NewRegistry()
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	return b, nil
}

// Define creates the association on source and registers it there. An
// association already registered under name is kept and returned when it is
// a BelongsToMany.
func Define(source *schema.Collection, name string, opts ...Option) (*BelongsToMany, error) {
	b, err := New(name, append([]Option{WithSource(source)}, opts...)...)
	if err != nil {
		return nil, err
	}
	a, added := source.AddAssociation(b)
	if added {
		return b, nil
	}
	if existing, ok := a.(*BelongsToMany); ok {
		return existing, nil
	}
	return nil, linkage.NewConfigError("association", name, "name already used by a "+a.Kind().String()+" association on "+source.Alias())
}

// Name returns the association name.
func (b *BelongsToMany) Name() string { return b.name }

// Kind returns schema.ManyToMany.
func (b *BelongsToMany) Kind() schema.Kind { return schema.ManyToMany }

// Source returns the source collection.
func (b *BelongsToMany) Source() *schema.Collection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.source
}

// Target returns the target collection. When none was configured, it is
// looked up in the registry under the association name without its
// namespace prefix.
func (b *BelongsToMany) Target() *schema.Collection {
	b.mu.RLock()
	t := b.target
	b.mu.RUnlock()
	if t != nil {
		return t
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.target == nil {
		b.target = b.registry.Get(targetAlias(b.name))
	}
	return b.target
}

func targetAlias(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Strategy returns the fetch strategy.
func (b *BelongsToMany) Strategy() Strategy {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.strategy
}

// SetStrategy sets the fetch strategy. The join strategy is rejected.
func (b *BelongsToMany) SetStrategy(s Strategy) error {
	if err := validStrategy(s); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.strategy = s
	return nil
}

func validStrategy(s Strategy) error {
	switch s {
	case StrategySelect, StrategySubquery:
		return nil
	case StrategyJoin:
		return linkage.NewConfigError("strategy", s, "many-to-many targets cannot be joined; use select or subquery")
	default:
		return linkage.NewConfigError("strategy", s, "use select or subquery")
	}
}

// SaveStrategy returns the save strategy.
func (b *BelongsToMany) SaveStrategy() SaveStrategy {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saveStrategy
}

// SetSaveStrategy sets the save strategy. Values other than SaveAppend and
// SaveReplace are rejected.
func (b *BelongsToMany) SetSaveStrategy(s SaveStrategy) error {
	if s != SaveAppend && s != SaveReplace {
		return linkage.NewConfigError("save strategy", s, "use append or replace")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveStrategy = s
	return nil
}

// RequiresKeys reports whether fetching the targets needs the source keys
// loaded first. Only the subquery strategy does without them.
func (b *BelongsToMany) RequiresKeys() bool {
	return b.Strategy() != StrategySubquery
}

// CanBeJoined is always false: loading the targets takes a second query.
func (b *BelongsToMany) CanBeJoined() bool { return false }

// ForeignKey returns the junction column referencing the source. It defaults
// to the singular source table followed by "_id".
func (b *BelongsToMany) ForeignKey() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.foreignKey == "" && b.source != nil {
		return schema.ForeignKeyName(b.source.Table())
	}
	return b.foreignKey
}

// SetForeignKey sets the junction column referencing the source. The change
// is carried to the reciprocal relations this association registered.
func (b *BelongsToMany) SetForeignKey(fk string) {
	b.setForeignKey(fk)
	b.mu.RLock()
	w := b.links
	b.mu.RUnlock()
	if w.junctionSource != nil {
		w.junctionSource.SetForeignKey(fk)
	}
	if w.sourceJunction != nil {
		w.sourceJunction.SetForeignKey(fk)
	}
	if w.reverse != nil {
		w.reverse.setTargetForeignKey(fk)
	}
}

// TargetForeignKey returns the junction column referencing the target. It
// defaults to the singular target table followed by "_id".
func (b *BelongsToMany) TargetForeignKey() string {
	b.mu.RLock()
	fk := b.targetFK
	b.mu.RUnlock()
	if fk == "" {
		return schema.ForeignKeyName(b.Target().Table())
	}
	return fk
}

// SetTargetForeignKey sets the junction column referencing the target. The
// change is carried to the reciprocal relations this association registered.
func (b *BelongsToMany) SetTargetForeignKey(fk string) {
	b.setTargetForeignKey(fk)
	b.mu.RLock()
	w := b.links
	b.mu.RUnlock()
	if w.junctionTarget != nil {
		w.junctionTarget.SetForeignKey(fk)
	}
	if w.targetJunction != nil {
		w.targetJunction.SetForeignKey(fk)
	}
	if w.reverse != nil {
		w.reverse.setForeignKey(fk)
	}
}

func (b *BelongsToMany) setForeignKey(fk string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.foreignKey = fk
}

func (b *BelongsToMany) setTargetForeignKey(fk string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targetFK = fk
}

// Sort returns the order applied to the fetched targets, nil by default.
func (b *BelongsToMany) Sort() schema.Sort {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sort
}

// SetSort sets the order applied to the fetched targets.
func (b *BelongsToMany) SetSort(s schema.Sort) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sort = s
}

// Conditions returns the conditions restricting the rows this association
// owns. Keys may be qualified with the junction or target alias.
func (b *BelongsToMany) Conditions() schema.Conditions {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conditions.Clone()
}

// SetConditions sets the conditions restricting the rows this association owns.
func (b *BelongsToMany) SetConditions(c schema.Conditions) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conditions = c.Clone()
}

// Dependent reports whether deleting a source record removes its links.
func (b *BelongsToMany) Dependent() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dependent
}

// SetDependent sets whether deleting a source record removes its links.
func (b *BelongsToMany) SetDependent(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dependent = v
}

// CascadeCallbacks reports whether junction rows are deleted one at a time
// with the junction delete hooks.
func (b *BelongsToMany) CascadeCallbacks() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.callbacks
}

// SetCascadeCallbacks sets whether junction rows are deleted one at a time
// with the junction delete hooks.
func (b *BelongsToMany) SetCascadeCallbacks(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = v
}

// Property returns the source record property holding the targets.
func (b *BelongsToMany) Property() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.property != "" {
		return b.property
	}
	return schema.PropertyName(b.name)
}

// Registry returns the registry used to resolve collections.
func (b *BelongsToMany) Registry() *schema.Registry { return b.registry }

// String returns a short description of the association.
func (b *BelongsToMany) String() string {
	src := "?"
	if s := b.Source(); s != nil {
		src = s.Alias()
	}
	return "ManyToMany(" + src + "." + b.name + " -> " + b.Target().Alias() + ")"
}

var _ schema.Association = (*BelongsToMany)(nil)
