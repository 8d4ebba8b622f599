package sql

// Predicate is a boolean SQL expression rendered into a Builder.
type Predicate struct {
	render func(*Builder)
}

// P returns a predicate rendered by fn.
func P(fn func(*Builder)) *Predicate {
	return &Predicate{render: fn}
}

// EQ returns a predicate that checks if the column equals v.
func EQ(column string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" = ").Arg(v)
	})
}

// NEQ returns a predicate that checks if the column does not equal v.
func NEQ(column string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" <> ").Arg(v)
	})
}

// IsNull returns a predicate that checks if the column is NULL.
func IsNull(column string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" IS NULL")
	})
}

// NotNull returns a predicate that checks if the column is not NULL.
func NotNull(column string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" IS NOT NULL")
	})
}

// In returns a predicate that checks if the column value is in vs.
// An empty list matches nothing.
func In(column string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("1 = 0")
			return
		}
		b.Ident(column).WriteString(" IN (").Args(vs...).WriteString(")")
	})
}

// NotIn returns a predicate that checks if the column value is not in vs.
// An empty list matches everything.
func NotIn(column string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("1 = 1")
			return
		}
		b.Ident(column).WriteString(" NOT IN (").Args(vs...).WriteString(")")
	})
}

// And combines predicates with AND. An empty list matches everything.
func And(preds ...*Predicate) *Predicate {
	return join("AND", "1 = 1", preds)
}

// Or combines predicates with OR. An empty list matches nothing.
func Or(preds ...*Predicate) *Predicate {
	return join("OR", "1 = 0", preds)
}

// Not negates a predicate.
func Not(p *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT (")
		p.render(b)
		b.WriteString(")")
	})
}

func join(op, empty string, preds []*Predicate) *Predicate {
	return P(func(b *Builder) {
		switch len(preds) {
		case 0:
			b.WriteString(empty)
			return
		case 1:
			preds[0].render(b)
			return
		}
		b.WriteString("(")
		for i, p := range preds {
			if i > 0 {
				b.WriteString(" " + op + " ")
			}
			p.render(b)
		}
		b.WriteString(")")
	})
}
