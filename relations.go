package modelfilter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hugr-lab/modelfilter/query"
)

// Key names one input key permitted for a relation, optionally under an
// alias. The alias becomes the key seen by the nested filter; unaliased keys
// keep their own name.
type Key struct {
	Alias string
	Name  string
}

// K declares an unaliased relation input key.
func K(name string) Key { return Key{Name: name} }

// Aliased declares a relation input key exposed to the nested filter under
// alias.
func Aliased(alias, name string) Key { return Key{Alias: alias, Name: name} }

// Keys declares several unaliased relation input keys.
func Keys(names ...string) []Key {
	out := make([]Key, len(names))
	for i, name := range names {
		out[i] = Key{Name: name}
	}
	return out
}

// RelationSpec maps relation names to the input keys permitted to cascade
// into them. Declared per filter type via the HasRelations capability:
//
//	func (f *UserFilter) Relations() modelfilter.RelationSpec {
//	    return modelfilter.RelationSpec{
//	        "posts": modelfilter.Keys("title", "status"),
//	    }
//	}
//
// Relation names may be dotted ("comments.author") to chain through nested
// relations.
type RelationSpec map[string][]Key

// resolvedRelation is the merged constraint set for one relation: local
// closures first, then the relation-targeted input subset.
type resolvedRelation struct {
	closures []func(query.Builder)
	input    *Input
}

func (rr *resolvedRelation) empty() bool {
	return len(rr.closures) == 0 && rr.input.Len() == 0
}

// RelatedInput returns the subset of the sanitized input permitted for a
// relation, keyed by alias where one is declared. Keys absent from the input
// are omitted.
func (f *Filter) RelatedInput(relation string) *Input {
	out := NewInput()
	spec, ok := f.def.(HasRelations)
	if !ok {
		return out
	}
	for _, key := range spec.Relations()[relation] {
		value, ok := f.input.Get(key.Name)
		if !ok {
			continue
		}
		name := key.Alias
		if name == "" {
			name = key.Name
		}
		out.Set(name, value)
	}
	return out
}

// allRelations computes the memoized union of declared and locally
// registered relations with their merged constraint sets. Declared names
// come first in sorted order, then local-only names in registration order.
func (f *Filter) allRelations() (map[string]*resolvedRelation, []string) {
	if f.resolved != nil {
		return f.resolved, f.resolvedOrder()
	}

	f.resolved = make(map[string]*resolvedRelation)
	if spec, ok := f.def.(HasRelations); ok {
		for name := range spec.Relations() {
			f.resolved[name] = &resolvedRelation{
				closures: f.local[name],
				input:    f.RelatedInput(name),
			}
		}
	}
	for _, name := range f.localOrder {
		if _, ok := f.resolved[name]; ok {
			continue
		}
		f.resolved[name] = &resolvedRelation{
			closures: f.local[name],
			input:    NewInput(),
		}
	}
	return f.resolved, f.resolvedOrder()
}

// resolvedOrder returns declared relation names sorted, then local-only
// names in registration order.
func (f *Filter) resolvedOrder() []string {
	var declared []string
	local := make([]string, 0, len(f.localOrder))
	if spec, ok := f.def.(HasRelations); ok {
		for name := range spec.Relations() {
			declared = append(declared, name)
		}
		sort.Strings(declared)
	}
	seen := make(map[string]struct{}, len(declared))
	for _, name := range declared {
		seen[name] = struct{}{}
	}
	for _, name := range f.localOrder {
		if _, ok := seen[name]; !ok {
			local = append(local, name)
		}
	}
	return append(declared, local...)
}

// joinedTables memoizes the set of table names present in the query's join
// clauses. Computed on first use (after the Setup hook has run) and never
// invalidated within the instance's lifetime: joins must not be added
// concurrently while relations resolve.
func (f *Filter) joinedTables() map[string]struct{} {
	if f.joined == nil {
		f.joined = make(map[string]struct{})
		for _, table := range f.builder.JoinedTables() {
			f.joined[table] = struct{}{}
		}
	}
	return f.joined
}

// filterRelations applies every relation's merged constraint set, choosing
// per relation between filtering the current query (relation already joined)
// and an existential subquery (not joined).
func (f *Filter) filterRelations() error {
	resolved, order := f.allRelations()
	for _, name := range order {
		rr := resolved[name]
		if rr.empty() {
			continue
		}

		rel, err := f.resolveChain(name)
		if err != nil {
			return err
		}

		if _, joined := f.joinedTables()[rel.Model.Table()]; joined {
			if err := f.filterJoined(name, rel, rr); err != nil {
				return err
			}
			continue
		}
		if err := f.filterUnjoined(name, rr); err != nil {
			return err
		}
	}
	return nil
}

// resolveChain walks a possibly dotted relation name segment by segment from
// the builder's model, returning the final relation.
func (f *Filter) resolveChain(name string) (query.Relation, error) {
	model := f.builder.Model()
	var rel query.Relation
	for _, segment := range strings.Split(name, ".") {
		var err error
		rel, err = model.Relation(segment)
		if err != nil {
			return query.Relation{}, fmt.Errorf("modelfilter: relation %q: %w", name, err)
		}
		model = rel.Model
	}
	return rel, nil
}

// filterJoined applies a relation's constraints directly against the current
// query: the relation's table is already joined, so predicates compose onto
// the shared query instead of a subquery.
func (f *Filter) filterJoined(name string, rel query.Relation, rr *resolvedRelation) error {
	f.runRelationSetup(name, f.builder)
	for _, fn := range rr.closures {
		fn(f.builder)
	}
	if rr.input.Len() == 0 {
		return nil
	}
	return f.runNested(name, rel, f.builder, rr.input)
}

// filterUnjoined wraps a relation's constraints in an existential subquery.
// The main query's join list is unchanged.
func (f *Filter) filterUnjoined(name string, rr *resolvedRelation) error {
	var nestedErr error
	f.builder.WhereHas(name, func(sub query.Builder) {
		f.runRelationSetup(name, sub)
		for _, fn := range rr.closures {
			fn(sub)
		}
		if rr.input.Len() == 0 {
			return
		}
		nestedErr = f.runNested(name, query.Relation{Model: sub.Model()}, sub, rr.input)
	})
	return nestedErr
}

// runNested constructs the related model's designated filter over the given
// builder, scoped to the relation's input subset, and handles it. Relations
// stay disabled for the nested call unless the nested filter type declares
// further relations of its own.
func (f *Filter) runNested(name string, rel query.Relation, b query.Builder, in *Input) error {
	v := rel.Model.NewFilter()
	if v == nil {
		return fmt.Errorf("%w: relation %q (model %s)", ErrNoFilterType, name, rel.Model.Name())
	}
	def, ok := v.(Definition)
	if !ok {
		return fmt.Errorf("modelfilter: relation %q: filter factory for model %s returned %T, not a Definition",
			name, rel.Model.Name(), v)
	}

	nested, err := New(def, b, in, WithRelations(declaresRelations(def)))
	if err != nil {
		return err
	}
	nested.dropID = f.dropID
	nested.camel = f.camel
	if _, err := nested.Handle(); err != nil {
		return err
	}
	return nil
}

// runRelationSetup invokes the per-relation setup hook if the filter type
// defines one.
func (f *Filter) runRelationSetup(relation string, b query.Builder) {
	if m, ok := f.info.setup(hookName(relation)); ok {
		callSetup(f.def, m, b)
	}
}

// declaresRelations reports whether a definition declares a non-empty
// RelationSpec.
func declaresRelations(def Definition) bool {
	spec, ok := def.(HasRelations)
	return ok && len(spec.Relations()) > 0
}
