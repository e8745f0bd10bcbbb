package modelfilter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobeam/stringy"

	"github.com/hugr-lab/modelfilter/query"
)

// Standard errors returned by the modelfilter package.
var (
	// ErrNoFilterType indicates relation input targeted a related model that
	// has no designated filter type.
	ErrNoFilterType = errors.New("modelfilter: related model has no filter type")

	// ErrNilBuilder indicates New was called without a query builder.
	ErrNilBuilder = errors.New("modelfilter: query builder must not be nil")
)

// Definition is implemented by user filter types through embedding Base:
//
//	type UserFilter struct {
//	    modelfilter.Base
//	}
//
//	func (f *UserFilter) Name(v string) {
//	    f.Where("name", "LIKE", "%"+v+"%")
//	}
//
// Exported methods with one parameter become dispatch targets for input keys.
// Optional capabilities are discovered by type assertion:
//
//   - Setup()                      — runs before any dispatch
//   - Relations() RelationSpec     — declares relation-to-input-key mappings
//   - <Relation>Setup(q Builder)   — runs before a relation's constraints
//
// A Definition instance belongs to exactly one Filter; create a fresh value
// per request.
type Definition interface {
	base() *Base
}

// HasSetup is the optional pre-dispatch hook. Implement it on a filter type
// to inject default ordering or scoping before per-key filtering runs.
type HasSetup interface {
	Setup()
}

// HasRelations is the optional relation declaration. See RelationSpec.
type HasRelations interface {
	Relations() RelationSpec
}

// Base carries the per-instance filter state and exposes the query builder's
// methods directly on the filter type, so filter methods compose clauses
// without fetching the underlying builder. Embed it by value.
type Base struct {
	f *Filter
}

func (b *Base) base() *Base { return b }

// Builder returns the underlying query builder.
func (b *Base) Builder() query.Builder { return b.f.builder }

// Where adds an AND-ed predicate on the underlying builder.
func (b *Base) Where(column, operator string, value any) *Base {
	b.f.builder.Where(column, operator, value)
	return b
}

// OrWhere adds an OR-ed predicate on the underlying builder.
func (b *Base) OrWhere(column, operator string, value any) *Base {
	b.f.builder.OrWhere(column, operator, value)
	return b
}

// WhereRaw adds a raw SQL predicate on the underlying builder.
func (b *Base) WhereRaw(sql string, args ...any) *Base {
	b.f.builder.WhereRaw(sql, args...)
	return b
}

// WhereIn adds an IN predicate on the underlying builder.
func (b *Base) WhereIn(column string, values ...any) *Base {
	b.f.builder.WhereIn(column, values...)
	return b
}

// WhereNull adds an IS NULL predicate on the underlying builder.
func (b *Base) WhereNull(column string) *Base {
	b.f.builder.WhereNull(column)
	return b
}

// WhereHas wraps constraints in an existential subquery on the underlying
// builder.
func (b *Base) WhereHas(relation string, fn func(query.Builder)) *Base {
	b.f.builder.WhereHas(relation, fn)
	return b
}

// Join adds an inner join on the underlying builder.
func (b *Base) Join(table, on string) *Base {
	b.f.builder.Join(table, on)
	return b
}

// LeftJoin adds a left join on the underlying builder.
func (b *Base) LeftJoin(table, on string) *Base {
	b.f.builder.LeftJoin(table, on)
	return b
}

// OrderBy appends ORDER BY expressions on the underlying builder.
func (b *Base) OrderBy(columns ...string) *Base {
	b.f.builder.OrderBy(columns...)
	return b
}

// Limit sets the row limit on the underlying builder.
func (b *Base) Limit(n uint64) *Base {
	b.f.builder.Limit(n)
	return b
}

// Offset sets the row offset on the underlying builder.
func (b *Base) Offset(n uint64) *Base {
	b.f.builder.Offset(n)
	return b
}

// Input returns the filter's sanitized input.
func (b *Base) Input() *Input { return b.f.input }

// InputValue returns the sanitized input value for key, or def when absent.
func (b *Base) InputValue(key string, def any) any {
	return b.f.input.Value(key, def)
}

// Push injects an input entry after construction. The empty-value exclusion
// rule applies unless the keep-empty toggle is set.
func (b *Base) Push(key string, value any) *Base {
	b.f.Push(key, value)
	return b
}

// Related registers a local constraint closure for a relation. Closures run
// in registration order before any relation-targeted input is applied.
func (b *Base) Related(relation string, fn func(query.Builder)) *Base {
	b.f.Related(relation, fn)
	return b
}

// Filter drives one filtering pass: it owns the sanitized input, dispatches
// each key to the definition's methods, and cascades into relations. All
// state is scoped to the instance; create one per request.
type Filter struct {
	def     Definition
	info    *typeInfo
	builder query.Builder
	input   *Input
	raw     *Input

	relations bool
	dropID    bool
	camel     bool
	keepEmpty bool

	blacklist map[string]struct{}

	local      map[string][]func(query.Builder)
	localOrder []string

	// memoized per instance
	resolved map[string]*resolvedRelation
	joined   map[string]struct{}
}

// Option configures a Filter at construction.
type Option func(*Filter)

// WithRelations toggles relation filtering (default true).
func WithRelations(enabled bool) Option {
	return func(f *Filter) { f.relations = enabled }
}

// WithDropIDSuffix toggles stripping a trailing "_id" from input keys when
// deriving method names (default true).
func WithDropIDSuffix(enabled bool) Option {
	return func(f *Filter) { f.dropID = enabled }
}

// WithCamelCase toggles snake/kebab to camelCase conversion when deriving
// method names (default true).
func WithCamelCase(enabled bool) Option {
	return func(f *Filter) { f.camel = enabled }
}

// WithKeepEmpty keeps empty-valued input entries (default: removed).
func WithKeepEmpty(enabled bool) Option {
	return func(f *Filter) { f.keepEmpty = enabled }
}

// WithBlacklist seeds the method blacklist.
func WithBlacklist(names ...string) Option {
	return func(f *Filter) {
		for _, name := range names {
			f.blacklist[name] = struct{}{}
		}
	}
}

// New creates a filter over a query builder and raw input. The input is
// sanitized immediately: empty-valued entries never participate in dispatch
// unless WithKeepEmpty is given. Relations are enabled by default.
func New(def Definition, b query.Builder, in *Input, opts ...Option) (*Filter, error) {
	if b == nil {
		return nil, ErrNilBuilder
	}
	if in == nil {
		in = NewInput()
	}
	f := &Filter{
		def:       def,
		info:      infoFor(def),
		builder:   b,
		raw:       in,
		relations: true,
		dropID:    true,
		camel:     true,
		blacklist: make(map[string]struct{}),
		local:     make(map[string][]func(query.Builder)),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.input = in.sanitized(f.keepEmpty)
	def.base().f = f
	return f, nil
}

// Handle runs the filtering pass: the optional Setup hook, then per-key
// dispatch in input order, then relation filtering when enabled. Returns the
// composed builder.
//
// Handle is NOT idempotent: calling it twice re-applies every matched
// predicate. Panics raised inside filter methods, hooks, or closures
// propagate to the caller.
func (f *Filter) Handle() (query.Builder, error) {
	if s, ok := f.def.(HasSetup); ok {
		s.Setup()
	}
	f.dispatch()
	if f.relations {
		if err := f.filterRelations(); err != nil {
			return nil, err
		}
	}
	return f.builder, nil
}

// dispatch resolves and invokes a filter method per input key. Keys without
// a callable method are silently skipped.
func (f *Filter) dispatch() {
	for _, key := range f.input.Keys() {
		name := f.MethodName(key)
		if f.Blacklisted(name) {
			continue
		}
		m, ok := f.info.handler(exported(name))
		if !ok {
			continue
		}
		value, _ := f.input.Get(key)
		call(f.def, m, value)
	}
}

// MethodName derives the dispatch method name for an input key: trailing
// "_id" stripped (when the drop-suffix toggle is on), literal dots removed,
// then camelCased (when the camel-case toggle is on). Lookup upper-cases the
// first letter, so "user_id" dispatches to a method named User.
func (f *Filter) MethodName(key string) string {
	name := key
	if f.dropID {
		name = strings.TrimSuffix(name, "_id")
	}
	name = strings.ReplaceAll(name, ".", "")
	if f.camel {
		name = lowerCamel(name)
	}
	return name
}

// RelationsEnabled reads the relation toggle, or sets it when called with an
// argument.
func (f *Filter) RelationsEnabled(v ...bool) bool {
	if len(v) > 0 {
		f.relations = v[0]
	}
	return f.relations
}

// DropIDSuffix reads the drop-"_id" toggle, or sets it when called with an
// argument.
func (f *Filter) DropIDSuffix(v ...bool) bool {
	if len(v) > 0 {
		f.dropID = v[0]
	}
	return f.dropID
}

// CamelCaseMethods reads the camel-case toggle, or sets it when called with
// an argument.
func (f *Filter) CamelCaseMethods(v ...bool) bool {
	if len(v) > 0 {
		f.camel = v[0]
	}
	return f.camel
}

// KeepEmpty reads the keep-empty toggle, or sets it when called with an
// argument. Affects entries pushed after the call; construction-time
// sanitization is controlled by WithKeepEmpty.
func (f *Filter) KeepEmpty(v ...bool) bool {
	if len(v) > 0 {
		f.keepEmpty = v[0]
	}
	return f.keepEmpty
}

// Blacklist disallows the named methods from input dispatch.
func (f *Filter) Blacklist(names ...string) *Filter {
	for _, name := range names {
		f.blacklist[name] = struct{}{}
	}
	return f
}

// Unblacklist re-allows a method name, re-enabling dispatch on the next
// Handle.
func (f *Filter) Unblacklist(name string) *Filter {
	delete(f.blacklist, name)
	return f
}

// Blacklisted reports whether a method name is blocked from dispatch. Both
// the derived spelling ("createdAt") and the exported spelling ("CreatedAt")
// match.
func (f *Filter) Blacklisted(name string) bool {
	if _, ok := f.blacklist[name]; ok {
		return true
	}
	_, ok := f.blacklist[exported(name)]
	if ok {
		return true
	}
	_, ok = f.blacklist[lowerFirst(name)]
	return ok
}

// Builder returns the underlying query builder.
func (f *Filter) Builder() query.Builder { return f.builder }

// Input returns the sanitized input map.
func (f *Filter) Input() *Input { return f.input }

// InputValue returns the sanitized input value for key, or def when absent.
func (f *Filter) InputValue(key string, def any) any {
	return f.input.Value(key, def)
}

// Push injects an input entry after construction, before Handle. The
// empty-value exclusion rule applies unless the keep-empty toggle is set.
func (f *Filter) Push(key string, value any) *Filter {
	if !f.keepEmpty && isEmptyValue(value) {
		return f
	}
	f.input.Set(key, value)
	return f
}

// PushMap injects several input entries at once (map iteration order).
func (f *Filter) PushMap(values map[string]any) *Filter {
	for key, value := range values {
		f.Push(key, value)
	}
	return f
}

// Related registers a local constraint closure for a relation, independent
// of the declared RelationSpec.
func (f *Filter) Related(relation string, fn func(query.Builder)) *Filter {
	if _, ok := f.local[relation]; !ok {
		f.localOrder = append(f.localOrder, relation)
	}
	f.local[relation] = append(f.local[relation], fn)
	return f
}

// lowerCamel converts snake/kebab text to camelCase ("created_at" to
// "createdAt").
func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	return lowerFirst(stringy.New(s).CamelCase())
}

// exported upper-cases the first byte to form the exported method name.
func exported(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// lowerFirst lower-cases the first byte.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// hookName derives the exported per-relation setup hook name: dots become
// word breaks, so relation "comments.author" maps to CommentsAuthorSetup.
func hookName(relation string) string {
	name := strings.ReplaceAll(relation, ".", "_")
	return fmt.Sprintf("%sSetup", stringy.New(name).CamelCase())
}
