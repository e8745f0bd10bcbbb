package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// SQLBuilder is the squirrel-backed Builder implementation. It renders plain
// SQL with ? placeholders and performs no I/O; callers execute the result
// through database/sql or any compatible layer.
//
// Predicates are collected with their AND/OR connective and combined left to
// right when the query is rendered, so OrWhere composes with whatever came
// before it.
type SQLBuilder struct {
	model Model
	sb    sq.SelectBuilder
	preds []predicate
	joins []string
	err   error
}

type predicate struct {
	expr sq.Sqlizer
	or   bool
}

// interface guard
var _ Builder = (*SQLBuilder)(nil)

// NewSQLBuilder creates a builder selecting all columns of the model's table.
func NewSQLBuilder(model Model) *SQLBuilder {
	return &SQLBuilder{
		model: model,
		sb:    sq.Select(model.Table() + ".*").From(model.Table()),
	}
}

// newSubBuilder creates an existential subquery builder (SELECT 1 FROM table).
func newSubBuilder(model Model) *SQLBuilder {
	return &SQLBuilder{
		model: model,
		sb:    sq.Select("1").From(model.Table()),
	}
}

// Where adds an AND-ed predicate "column operator ?".
func (b *SQLBuilder) Where(column, operator string, value any) Builder {
	b.add(b.compare(column, operator, value), false)
	return b
}

// OrWhere adds an OR-ed predicate "column operator ?".
func (b *SQLBuilder) OrWhere(column, operator string, value any) Builder {
	b.add(b.compare(column, operator, value), true)
	return b
}

// compare builds a single comparison expression, normalizing IN operands.
func (b *SQLBuilder) compare(column, operator string, value any) sq.Sqlizer {
	switch strings.ToUpper(operator) {
	case "IN":
		return sq.Eq{column: toSlice(value)}
	case "NOT IN":
		return sq.NotEq{column: toSlice(value)}
	default:
		return sq.Expr(column+" "+operator+" ?", value)
	}
}

// WhereRaw adds a raw SQL predicate.
func (b *SQLBuilder) WhereRaw(sql string, args ...any) Builder {
	b.add(sq.Expr(sql, args...), false)
	return b
}

// WhereIn adds a "column IN (...)" predicate.
func (b *SQLBuilder) WhereIn(column string, values ...any) Builder {
	b.add(sq.Eq{column: values}, false)
	return b
}

// WhereNull adds a "column IS NULL" predicate.
func (b *SQLBuilder) WhereNull(column string) Builder {
	b.add(sq.Eq{column: nil}, false)
	return b
}

// WhereHas wraps fn's constraints in an EXISTS subquery correlated with the
// named relation. Dotted names chain one EXISTS per segment. An unresolvable
// relation records a deferred error surfaced by ToSQL.
func (b *SQLBuilder) WhereHas(relation string, fn func(Builder)) Builder {
	sub, err := b.existsSubquery(relation, fn)
	if err != nil {
		b.fail(err)
		return b
	}
	b.add(sq.Expr("EXISTS (?)", sub.where()), false)
	return b
}

// existsSubquery builds the correlated subquery for relation, recursing over
// dotted chains.
func (b *SQLBuilder) existsSubquery(relation string, fn func(Builder)) (*SQLBuilder, error) {
	head, rest, _ := strings.Cut(relation, ".")
	rel, err := b.model.Relation(head)
	if err != nil {
		return nil, err
	}

	sub := newSubBuilder(rel.Model)
	owner := b.model.Table()
	related := rel.Model.Table()
	switch rel.Kind {
	case BelongsTo:
		sub.add(sq.Expr(related+"."+rel.OwnerKey+" = "+owner+"."+rel.ForeignKey), false)
	default:
		sub.add(sq.Expr(related+"."+rel.ForeignKey+" = "+owner+"."+rel.OwnerKey), false)
	}

	if rest != "" {
		inner, err := sub.existsSubquery(rest, fn)
		if err != nil {
			return nil, err
		}
		sub.add(sq.Expr("EXISTS (?)", inner.where()), false)
		return sub, nil
	}

	fn(sub)
	if sub.err != nil {
		return nil, sub.err
	}
	return sub, nil
}

// Join adds an inner join and records the joined table.
func (b *SQLBuilder) Join(table, on string) Builder {
	b.sb = b.sb.Join(table + " ON " + on)
	b.joins = append(b.joins, table)
	return b
}

// LeftJoin adds a left join and records the joined table.
func (b *SQLBuilder) LeftJoin(table, on string) Builder {
	b.sb = b.sb.LeftJoin(table + " ON " + on)
	b.joins = append(b.joins, table)
	return b
}

// JoinedTables returns a copy of the joined table names.
func (b *SQLBuilder) JoinedTables() []string {
	out := make([]string, len(b.joins))
	copy(out, b.joins)
	return out
}

// OrderBy appends ORDER BY expressions.
func (b *SQLBuilder) OrderBy(columns ...string) Builder {
	b.sb = b.sb.OrderBy(columns...)
	return b
}

// Limit sets the row limit.
func (b *SQLBuilder) Limit(n uint64) Builder {
	b.sb = b.sb.Limit(n)
	return b
}

// Offset sets the row offset.
func (b *SQLBuilder) Offset(n uint64) Builder {
	b.sb = b.sb.Offset(n)
	return b
}

// Model returns the model descriptor the builder queries.
func (b *SQLBuilder) Model() Model { return b.model }

// ToSQL renders the composed query, or returns the first deferred error.
func (b *SQLBuilder) ToSQL() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	return b.where().ToSql()
}

// add records a predicate with its connective.
func (b *SQLBuilder) add(expr sq.Sqlizer, or bool) {
	b.preds = append(b.preds, predicate{expr: expr, or: or})
}

// where returns the select builder with collected predicates applied.
func (b *SQLBuilder) where() sq.SelectBuilder {
	if len(b.preds) == 0 {
		return b.sb
	}
	return b.sb.Where(conjunction(b.preds))
}

// fail records the first deferred error.
func (b *SQLBuilder) fail(err error) {
	if b.err == nil {
		b.err = fmt.Errorf("query: %w", err)
	}
}

// conjunction combines predicates left to right: an OR-ed predicate groups
// with everything accumulated before it.
type conjunction []predicate

func (c conjunction) ToSql() (string, []any, error) {
	var sql string
	var args []any
	for i, p := range c {
		ps, pa, err := p.expr.ToSql()
		if err != nil {
			return "", nil, err
		}
		if i == 0 {
			sql = ps
			args = pa
			continue
		}
		if p.or {
			sql = "(" + sql + ") OR (" + ps + ")"
		} else {
			sql = sql + " AND (" + ps + ")"
		}
		args = append(args, pa...)
	}
	return sql, args, nil
}

// toSlice normalizes an IN operand to a value slice.
func toSlice(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out
	case []int64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out
	case []float64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out
	default:
		return []any{value}
	}
}
