package schema

import (
	"maps"
	"slices"
	"strings"

	"github.com/syssam/linkage/entity"
)

// Conditions is a set of column equality constraints, combined with AND.
// A nil value matches NULL, an In value matches any of its members.
type Conditions map[string]any

// In is a membership constraint.
type In []any

// Clone returns a copy of c. The copy of a nil set is nil.
func (c Conditions) Clone() Conditions {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}

// Merge returns a new set holding c and others. Later sets win on key clashes.
func (c Conditions) Merge(others ...Conditions) Conditions {
	out := make(Conditions, len(c))
	maps.Copy(out, c)
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// Columns returns the condition keys in sorted order.
func (c Conditions) Columns() []string {
	return slices.Sorted(maps.Keys(c))
}

// Local returns the conditions that apply to the collection with the given
// alias: unqualified keys and keys qualified with alias (unqualified in the
// result). Keys qualified with another alias are dropped.
func (c Conditions) Local(alias string) Conditions {
	out := make(Conditions, len(c))
	for k, v := range c {
		q, col, ok := strings.Cut(k, ".")
		switch {
		case !ok:
			out[k] = v
		case q == alias:
			out[col] = v
		}
	}
	return out
}

// Qualified returns only the keys qualified with alias, unqualified.
func (c Conditions) Qualified(alias string) Conditions {
	out := make(Conditions)
	for k, v := range c {
		if q, col, ok := strings.Cut(k, "."); ok && q == alias {
			out[col] = v
		}
	}
	return out
}

// Match reports whether the field map satisfies every condition.
func (c Conditions) Match(fields map[string]any) bool {
	for col, want := range c {
		got := fields[col]
		switch want := want.(type) {
		case nil:
			if got != nil {
				return false
			}
		case In:
			if !slices.ContainsFunc(want, func(v any) bool { return valueEqual(got, v) }) {
				return false
			}
		default:
			if !valueEqual(got, want) {
				return false
			}
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	return entity.KeyEqual(a, b)
}

// Order is a single sort term.
type Order struct {
	Column string
	Desc   bool
}

// Asc returns an ascending sort term.
func Asc(column string) Order { return Order{Column: column} }

// Desc returns a descending sort term.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Sort is an ordered list of sort terms.
type Sort []Order
