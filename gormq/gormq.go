// Package gormq adapts gorm.io/gorm to the query.Builder contract, so
// filters defined with modelfilter run unchanged against GORM sessions.
// Relation and table metadata come from GORM's schema parser; designated
// filter types are registered per model struct with WithFilter.
package gormq

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gobeam/stringy"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/hugr-lab/modelfilter/query"
)

// schemaCache is shared across builders so each model parses once.
var schemaCache = &sync.Map{}

// Option configures a Builder at construction.
type Option func(*Builder)

// WithFilter designates the filter type for a model struct. The factory must
// return a modelfilter.Definition. Registered factories are inherited by
// subquery builders, so nested relation filtering can resolve them.
func WithFilter(model any, factory func() any) Option {
	return func(b *Builder) {
		b.filters[indirectType(model)] = factory
	}
}

// Builder implements query.Builder over a *gorm.DB. Each clause call records
// conditions on the held session; ToSQL renders them through a DryRun find.
//
// A Builder belongs to a single logical call chain and is not safe for
// concurrent use.
type Builder struct {
	db      *gorm.DB
	sch     *schema.Schema
	filters map[reflect.Type]func() any
	err     error
}

// interface guard
var _ query.Builder = (*Builder)(nil)

// New creates a builder for a model struct over a GORM session.
func New(db *gorm.DB, model any, opts ...Option) (*Builder, error) {
	sch, err := schema.Parse(model, schemaCache, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("gormq: parse model %T: %w", model, err)
	}
	b := &Builder{
		db:      db.Model(model),
		sch:     sch,
		filters: make(map[reflect.Type]func() any),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// DB returns the underlying GORM session with all recorded conditions.
func (b *Builder) DB() *gorm.DB { return b.db }

// Where adds an AND-ed predicate "column operator ?".
func (b *Builder) Where(column, operator string, value any) query.Builder {
	cond, args := compare(column, operator, value)
	b.db = b.db.Where(cond, args...)
	return b
}

// OrWhere adds an OR-ed predicate "column operator ?".
func (b *Builder) OrWhere(column, operator string, value any) query.Builder {
	cond, args := compare(column, operator, value)
	b.db = b.db.Or(cond, args...)
	return b
}

// compare renders one comparison condition, normalizing IN operands to
// GORM's "IN ?" form.
func compare(column, operator string, value any) (string, []any) {
	switch strings.ToUpper(operator) {
	case "IN":
		return column + " IN ?", []any{value}
	case "NOT IN":
		return column + " NOT IN ?", []any{value}
	default:
		return column + " " + operator + " ?", []any{value}
	}
}

// WhereRaw adds a raw SQL predicate.
func (b *Builder) WhereRaw(sql string, args ...any) query.Builder {
	b.db = b.db.Where(sql, args...)
	return b
}

// WhereIn adds a "column IN (...)" predicate.
func (b *Builder) WhereIn(column string, values ...any) query.Builder {
	b.db = b.db.Where(column+" IN ?", values)
	return b
}

// WhereNull adds a "column IS NULL" predicate.
func (b *Builder) WhereNull(column string) query.Builder {
	b.db = b.db.Where(column + " IS NULL")
	return b
}

// WhereHas wraps fn's constraints in an EXISTS subquery correlated through
// GORM relation metadata. Dotted names chain one EXISTS per segment. An
// unresolvable relation records a deferred error surfaced by ToSQL.
func (b *Builder) WhereHas(relation string, fn func(query.Builder)) query.Builder {
	sub, err := b.existsSubquery(relation, fn)
	if err != nil {
		b.fail(err)
		return b
	}
	b.db = b.db.Where("EXISTS (?)", sub.db)
	return b
}

// existsSubquery builds the correlated subquery for relation, recursing over
// dotted chains.
func (b *Builder) existsSubquery(relation string, fn func(query.Builder)) (*Builder, error) {
	head, rest, _ := strings.Cut(relation, ".")
	rel, err := b.relationship(head)
	if err != nil {
		return nil, err
	}

	sub, err := b.correlated(rel)
	if err != nil {
		return nil, err
	}

	if rest != "" {
		inner, err := sub.existsSubquery(rest, fn)
		if err != nil {
			return nil, err
		}
		sub.db = sub.db.Where("EXISTS (?)", inner.db)
		return sub, nil
	}

	fn(sub)
	if sub.err != nil {
		return nil, sub.err
	}
	return sub, nil
}

// correlated creates a SELECT 1 subquery over the relation's table with the
// correlation predicates for its kind, including many-to-many join tables.
func (b *Builder) correlated(rel *schema.Relationship) (*Builder, error) {
	related := rel.FieldSchema
	session := b.db.Session(&gorm.Session{NewDB: true}).Table(related.Table).Select("1")

	if rel.Type == schema.Many2Many {
		jt := rel.JoinTable
		var on []string
		for _, ref := range rel.References {
			if ref.OwnPrimaryKey {
				continue
			}
			on = append(on, fmt.Sprintf("%s.%s = %s.%s",
				jt.Table, ref.ForeignKey.DBName, related.Table, ref.PrimaryKey.DBName))
		}
		session = session.Joins("JOIN " + jt.Table + " ON " + strings.Join(on, " AND "))
		for _, ref := range rel.References {
			if !ref.OwnPrimaryKey {
				continue
			}
			session = session.Where(fmt.Sprintf("%s.%s = %s.%s",
				jt.Table, ref.ForeignKey.DBName, b.sch.Table, ref.PrimaryKey.DBName))
		}
		return b.child(session, related), nil
	}

	for _, ref := range rel.References {
		switch {
		case ref.OwnPrimaryKey:
			// has one / has many: foreign key on the related table
			session = session.Where(fmt.Sprintf("%s.%s = %s.%s",
				related.Table, ref.ForeignKey.DBName, b.sch.Table, ref.PrimaryKey.DBName))
		case ref.PrimaryValue != "":
			// polymorphic type discriminator
			session = session.Where(fmt.Sprintf("%s.%s = ?", related.Table, ref.ForeignKey.DBName), ref.PrimaryValue)
		default:
			// belongs to: foreign key on the owner table
			session = session.Where(fmt.Sprintf("%s.%s = %s.%s",
				related.Table, ref.PrimaryKey.DBName, b.sch.Table, ref.ForeignKey.DBName))
		}
	}
	return b.child(session, related), nil
}

// child wraps a subquery session in a Builder sharing the filter registry.
func (b *Builder) child(db *gorm.DB, sch *schema.Schema) *Builder {
	return &Builder{db: db, sch: sch, filters: b.filters}
}

// relationship resolves a relation by RelationSpec-style name: exact match
// first, then the CamelCased field name ("posts" finds field Posts).
func (b *Builder) relationship(name string) (*schema.Relationship, error) {
	if rel, ok := b.sch.Relationships.Relations[name]; ok {
		return rel, nil
	}
	field := stringy.New(strings.ReplaceAll(name, ".", "_")).CamelCase()
	if rel, ok := b.sch.Relationships.Relations[field]; ok {
		return rel, nil
	}
	return nil, fmt.Errorf("%w: %s on model %s", query.ErrRelationNotFound, name, b.sch.Name)
}

// Join adds an inner join.
func (b *Builder) Join(table, on string) query.Builder {
	b.db = b.db.Joins("JOIN " + table + " ON " + on)
	return b
}

// LeftJoin adds a left join.
func (b *Builder) LeftJoin(table, on string) query.Builder {
	b.db = b.db.Joins("LEFT JOIN " + table + " ON " + on)
	return b
}

// JoinedTables returns the table names present in the session's join
// clauses: association joins resolve through schema metadata, raw joins are
// scanned for the token after JOIN.
func (b *Builder) JoinedTables() []string {
	var out []string
	for _, j := range b.db.Statement.Joins {
		if rel, ok := b.sch.Relationships.Relations[j.Name]; ok {
			out = append(out, rel.FieldSchema.Table)
			continue
		}
		if table := joinTableName(j.Name); table != "" {
			out = append(out, table)
		}
	}
	return out
}

// joinTableName extracts the table token following the JOIN keyword from a
// raw join clause.
func joinTableName(clause string) string {
	fields := strings.Fields(clause)
	for i, f := range fields {
		if strings.EqualFold(f, "JOIN") && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

// OrderBy appends ORDER BY expressions.
func (b *Builder) OrderBy(columns ...string) query.Builder {
	for _, column := range columns {
		b.db = b.db.Order(column)
	}
	return b
}

// Limit sets the row limit.
func (b *Builder) Limit(n uint64) query.Builder {
	b.db = b.db.Limit(int(n))
	return b
}

// Offset sets the row offset.
func (b *Builder) Offset(n uint64) query.Builder {
	b.db = b.db.Offset(int(n))
	return b
}

// Model returns a query.Model view over the GORM schema.
func (b *Builder) Model() query.Model {
	return &gormModel{b: b, sch: b.sch}
}

// ToSQL renders the composed query through a DryRun find.
func (b *Builder) ToSQL() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	dest := reflect.New(reflect.SliceOf(b.sch.ModelType)).Interface()
	tx := b.db.Session(&gorm.Session{DryRun: true}).Find(dest)
	if tx.Error != nil {
		return "", nil, fmt.Errorf("gormq: %w", tx.Error)
	}
	return tx.Statement.SQL.String(), tx.Statement.Vars, nil
}

// fail records the first deferred error.
func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = fmt.Errorf("gormq: %w", err)
	}
}

// gormModel adapts a GORM schema to the query.Model contract.
type gormModel struct {
	b   *Builder
	sch *schema.Schema
}

func (m *gormModel) Name() string  { return m.sch.Name }
func (m *gormModel) Table() string { return m.sch.Table }

func (m *gormModel) Relation(name string) (query.Relation, error) {
	rel, err := (&Builder{db: m.b.db, sch: m.sch, filters: m.b.filters}).relationship(name)
	if err != nil {
		return query.Relation{}, err
	}

	out := query.Relation{
		Name:  name,
		Model: &gormModel{b: m.b, sch: rel.FieldSchema},
	}
	switch rel.Type {
	case schema.BelongsTo:
		out.Kind = query.BelongsTo
	case schema.HasOne:
		out.Kind = query.HasOne
	default:
		out.Kind = query.HasMany
	}
	for _, ref := range rel.References {
		if ref.PrimaryKey == nil || ref.ForeignKey == nil {
			continue
		}
		out.ForeignKey = ref.ForeignKey.DBName
		out.OwnerKey = ref.PrimaryKey.DBName
		break
	}
	return out, nil
}

func (m *gormModel) NewFilter() any {
	factory, ok := m.b.filters[m.sch.ModelType]
	if !ok {
		return nil
	}
	return factory()
}

// indirectType returns the struct type behind a model value or pointer.
func indirectType(model any) reflect.Type {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
