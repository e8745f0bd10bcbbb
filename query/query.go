package query

import "errors"

// Standard errors returned by the query package.
var (
	// ErrModelNotFound indicates a model name is not present in the registry.
	ErrModelNotFound = errors.New("query: model not found")

	// ErrRelationNotFound indicates a relation name is not declared on a model.
	ErrRelationNotFound = errors.New("query: relation not found")

	// ErrInvalidModel indicates a model definition failed validation.
	ErrInvalidModel = errors.New("query: invalid model definition")
)

// Kind describes how a relation correlates two models.
type Kind int

const (
	// HasMany: the related table carries a foreign key referencing the owner.
	HasMany Kind = iota

	// HasOne: same correlation as HasMany, at most one related row.
	HasOne

	// BelongsTo: the owner table carries a foreign key referencing the related
	// table's owner key.
	BelongsTo
)

// String returns the relation kind name.
func (k Kind) String() string {
	switch k {
	case HasMany:
		return "has_many"
	case HasOne:
		return "has_one"
	case BelongsTo:
		return "belongs_to"
	default:
		return "unknown"
	}
}

// Model describes a filterable entity: its backing table, its relations, and
// the filter type designated for it (if any).
//
// Implementations must be safe for concurrent reads after registration.
type Model interface {
	// Name returns the registry name of the model (e.g., "users").
	Name() string

	// Table returns the backing table name.
	Table() string

	// Relation resolves a declared relation by name.
	// Returns ErrRelationNotFound (wrapped) if the relation is not declared,
	// or ErrModelNotFound (wrapped) if its target model is unknown.
	Relation(name string) (Relation, error)

	// NewFilter constructs a fresh instance of the model's designated filter
	// type, or nil if the model has none. The result is a
	// modelfilter.Definition; it is typed any to avoid an import cycle and is
	// asserted by the filter core.
	NewFilter() any
}

// Relation is a resolved association between two models.
type Relation struct {
	// Name is the relation name as declared on the owner.
	Name string

	// Kind determines the correlation direction.
	Kind Kind

	// Model is the related model.
	Model Model

	// ForeignKey is the correlating foreign key column. For HasMany/HasOne it
	// lives on the related table; for BelongsTo it lives on the owner table.
	ForeignKey string

	// OwnerKey is the referenced key column ("id" unless overridden). For
	// HasMany/HasOne it lives on the owner table; for BelongsTo on the
	// related table.
	OwnerKey string
}

// Builder composes a query against one model. Implementations are mutable:
// each call records a clause on the receiver and returns it for chaining.
// Errors raised while recording clauses (for example an unknown relation in
// WhereHas) are deferred and surfaced by ToSQL, matching the underlying SQL
// builder's behavior.
//
// A Builder belongs to a single logical call chain and is not safe for
// concurrent use.
type Builder interface {
	// Where adds an AND-ed predicate "column operator ?" with one bind value.
	Where(column, operator string, value any) Builder

	// OrWhere adds an OR-ed predicate "column operator ?" with one bind value.
	OrWhere(column, operator string, value any) Builder

	// WhereRaw adds a raw SQL predicate with bind values.
	WhereRaw(sql string, args ...any) Builder

	// WhereIn adds a "column IN (...)" predicate.
	WhereIn(column string, values ...any) Builder

	// WhereNull adds a "column IS NULL" predicate.
	WhereNull(column string) Builder

	// WhereHas wraps fn's constraints in an existential subquery against the
	// named relation. The relation may be dotted ("comments.author") to chain
	// through nested relations; each segment adds one EXISTS level.
	WhereHas(relation string, fn func(Builder)) Builder

	// Join adds an inner join and records the joined table name.
	Join(table, on string) Builder

	// LeftJoin adds a left join and records the joined table name.
	LeftJoin(table, on string) Builder

	// JoinedTables returns the table names currently present in the query's
	// join clauses. The returned slice is a copy.
	JoinedTables() []string

	// OrderBy appends ORDER BY expressions.
	OrderBy(columns ...string) Builder

	// Limit sets the row limit.
	Limit(n uint64) Builder

	// Offset sets the row offset.
	Offset(n uint64) Builder

	// Model returns the descriptor of the model the builder queries.
	Model() Model

	// ToSQL renders the composed query. Returns the first deferred error if
	// any clause failed to record.
	ToSQL() (string, []any, error)
}
