package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/linkage/dialect"
)

// Querier wraps the Query method implemented by every statement builder.
type Querier interface {
	// Query returns the statement and its arguments.
	Query() (string, []any)
}

// Builder is the low-level statement writer. It quotes identifiers and
// renders placeholders for its dialect.
type Builder struct {
	sb      strings.Builder
	args    []any
	dialect string
	errs    []error
}

// SetDialect sets the dialect used for quoting and placeholders.
func (b *Builder) SetDialect(name string) {
	b.dialect = name
}

// Dialect returns the builder dialect.
func (b *Builder) Dialect() string {
	return b.dialect
}

// AddError records an error reported by Err.
func (b *Builder) AddError(err error) *Builder {
	b.errs = append(b.errs, err)
	return b
}

// Err returns the errors recorded while building, joined.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// WriteString writes raw SQL.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Ident writes a quoted identifier. Qualified names ("t.c") are quoted per
// part. Invalid identifiers are recorded as errors.
func (b *Builder) Ident(s string) *Builder {
	if !isValidIdentifier(s) {
		return b.AddError(fmt.Errorf("dialect/sql: invalid identifier %q", s))
	}
	q := `"`
	if b.dialect == dialect.MySQL {
		q = "`"
	}
	for i, part := range strings.Split(s, ".") {
		if i > 0 {
			b.sb.WriteByte('.')
		}
		b.sb.WriteString(q + part + q)
	}
	return b
}

// IdentComma writes a comma separated list of identifiers.
func (b *Builder) IdentComma(idents ...string) *Builder {
	for i, s := range idents {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Ident(s)
	}
	return b
}

// Arg writes a placeholder for v and records it.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.sb.WriteString("$" + strconv.Itoa(len(b.args)))
	} else {
		b.sb.WriteByte('?')
	}
	return b
}

// Args writes a comma separated list of placeholders.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(v)
	}
	return b
}

// Query implements Querier.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

func (b *Builder) where(p *Predicate) {
	if p == nil {
		return
	}
	b.WriteString(" WHERE ")
	p.render(b)
}

// DialectBuilder creates statement builders for one dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect returns a DialectBuilder for the given dialect name.
//
//	sql.Dialect(dialect.Postgres).Select("id").From("tags").Where(sql.EQ("name", "go"))
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select returns a Selector for the dialect.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return &Selector{dialect: d.dialect, columns: columns}
}

// Insert returns an InsertBuilder for the dialect.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: d.dialect, table: table}
}

// Update returns an UpdateBuilder for the dialect.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: d.dialect, table: table}
}

// Delete returns a DeleteBuilder for the dialect.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: d.dialect, table: table}
}

// OrderTerm is a single ORDER BY term.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Asc returns an ascending order term.
func Asc(column string) OrderTerm { return OrderTerm{Column: column} }

// Desc returns a descending order term.
func Desc(column string) OrderTerm { return OrderTerm{Column: column, Desc: true} }

// Selector is a builder for SELECT statements.
type Selector struct {
	dialect string
	columns []string
	table   string
	where   *Predicate
	order   []OrderTerm
	err     error
}

// From sets the source table.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Where adds a predicate, combined with AND with the previous ones.
func (s *Selector) Where(p *Predicate) *Selector {
	s.where = joinWhere(s.where, p)
	return s
}

// OrderBy appends order terms.
func (s *Selector) OrderBy(terms ...OrderTerm) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// Err returns the error of the last Query call.
func (s *Selector) Err() error { return s.err }

// Query implements Querier.
func (s *Selector) Query() (string, []any) {
	b := &Builder{dialect: s.dialect}
	b.WriteString("SELECT ")
	if len(s.columns) == 0 {
		b.WriteString("*")
	} else {
		b.IdentComma(s.columns...)
	}
	b.WriteString(" FROM ").Ident(s.table)
	b.where(s.where)
	for i, o := range s.order {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.Ident(o.Column)
		if o.Desc {
			b.WriteString(" DESC")
		}
	}
	s.err = b.Err()
	return b.Query()
}

// InsertBuilder is a builder for single-row INSERT statements.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    []any
	returning []string
	err       error
}

// Columns sets the inserted columns.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values sets the inserted values, in column order.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values...)
	return i
}

// Returning sets the RETURNING columns. It is ignored by MySQL.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// Err returns the error of the last Query call.
func (i *InsertBuilder) Err() error { return i.err }

// Query implements Querier.
func (i *InsertBuilder) Query() (string, []any) {
	b := &Builder{dialect: i.dialect}
	b.WriteString("INSERT INTO ").Ident(i.table)
	switch {
	case len(i.columns) != len(i.values):
		b.AddError(fmt.Errorf("dialect/sql: insert into %q: %d columns and %d values", i.table, len(i.columns), len(i.values)))
	case len(i.columns) == 0 && i.dialect == dialect.MySQL:
		b.WriteString(" () VALUES ()")
	case len(i.columns) == 0:
		b.WriteString(" DEFAULT VALUES")
	default:
		b.WriteString(" (").IdentComma(i.columns...).WriteString(") VALUES (").Args(i.values...).WriteString(")")
	}
	if len(i.returning) > 0 && i.dialect != dialect.MySQL {
		b.WriteString(" RETURNING ").IdentComma(i.returning...)
	}
	i.err = b.Err()
	return b.Query()
}

// UpdateBuilder is a builder for UPDATE statements.
type UpdateBuilder struct {
	dialect string
	table   string
	columns []string
	values  []any
	where   *Predicate
	err     error
}

// Set adds a column assignment.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// Empty reports whether the statement has no assignments.
func (u *UpdateBuilder) Empty() bool { return len(u.columns) == 0 }

// Where adds a predicate, combined with AND with the previous ones.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	u.where = joinWhere(u.where, p)
	return u
}

// Err returns the error of the last Query call.
func (u *UpdateBuilder) Err() error { return u.err }

// Query implements Querier.
func (u *UpdateBuilder) Query() (string, []any) {
	b := &Builder{dialect: u.dialect}
	b.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for i, c := range u.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c).WriteString(" = ").Arg(u.values[i])
	}
	b.where(u.where)
	u.err = b.Err()
	return b.Query()
}

// DeleteBuilder is a builder for DELETE statements.
type DeleteBuilder struct {
	dialect string
	table   string
	where   *Predicate
	err     error
}

// Where adds a predicate, combined with AND with the previous ones.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	d.where = joinWhere(d.where, p)
	return d
}

// Err returns the error of the last Query call.
func (d *DeleteBuilder) Err() error { return d.err }

// Query implements Querier.
func (d *DeleteBuilder) Query() (string, []any) {
	b := &Builder{dialect: d.dialect}
	b.WriteString("DELETE FROM ").Ident(d.table)
	b.where(d.where)
	d.err = b.Err()
	return b.Query()
}

func joinWhere(prev, p *Predicate) *Predicate {
	switch {
	case p == nil:
		return prev
	case prev == nil:
		return p
	default:
		return And(prev, p)
	}
}

var (
	_ Querier = (*Selector)(nil)
	_ Querier = (*InsertBuilder)(nil)
	_ Querier = (*UpdateBuilder)(nil)
	_ Querier = (*DeleteBuilder)(nil)
)
