package query

import (
	"fmt"
	"sort"
	"sync"
)

// RelationDef declares a relation on a model definition. The target model is
// referenced by registry name and resolved lazily at lookup time, so mutually
// related models can be registered in any order.
type RelationDef struct {
	// Model is the registry name of the related model.
	// REQUIRED: MUST be non-empty.
	Model string

	// Kind determines the correlation direction. Defaults to HasMany.
	Kind Kind

	// ForeignKey is the correlating foreign key column.
	// REQUIRED: MUST be non-empty (no column-name inference is performed).
	ForeignKey string

	// OwnerKey is the referenced key column. Defaults to "id".
	OwnerKey string
}

// ModelDef declares a filterable model for registration.
type ModelDef struct {
	// Name is the registry name (e.g., "users").
	// REQUIRED: MUST be non-empty and unique within the registry.
	Name string

	// Table is the backing table name. Defaults to Name.
	Table string

	// Relations maps relation names to their definitions.
	// OPTIONAL: nil if the model has no relations.
	Relations map[string]RelationDef

	// Filter constructs the model's designated filter type. The returned
	// value must be a modelfilter.Definition.
	// OPTIONAL: nil if no filter type is designated.
	Filter func() any
}

// Registry is a catalog of model definitions. Registration happens during
// initialization; lookups are safe for concurrent use afterwards.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*ModelDef
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*ModelDef)}
}

// Register validates and adds a model definition.
// Returns ErrInvalidModel (wrapped) if the definition is malformed or the
// name is already taken. Relation targets are not checked here; they resolve
// lazily via Model.Relation.
func (r *Registry) Register(def ModelDef) error {
	if def.Name == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidModel)
	}
	if def.Table == "" {
		def.Table = def.Name
	}
	for name, rel := range def.Relations {
		if name == "" {
			return fmt.Errorf("%w: model %s: relation name cannot be empty", ErrInvalidModel, def.Name)
		}
		if rel.Model == "" {
			return fmt.Errorf("%w: model %s: relation %s has no target model", ErrInvalidModel, def.Name, name)
		}
		if rel.ForeignKey == "" {
			return fmt.Errorf("%w: model %s: relation %s has no foreign key", ErrInvalidModel, def.Name, name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[def.Name]; ok {
		return fmt.Errorf("%w: duplicate model name: %s", ErrInvalidModel, def.Name)
	}
	r.models[def.Name] = &def
	return nil
}

// MustRegister is Register that panics on error. Intended for static
// registration in package init or main.
func (r *Registry) MustRegister(def ModelDef) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Model returns the descriptor for a registered model.
func (r *Registry) Model(name string) (Model, error) {
	r.mu.RLock()
	def, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return &modelRef{reg: r, def: def}, nil
}

// Models returns the registered model names in sorted order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder creates a SQL builder querying the named model.
func (r *Registry) Builder(model string) (*SQLBuilder, error) {
	m, err := r.Model(model)
	if err != nil {
		return nil, err
	}
	return NewSQLBuilder(m), nil
}

// modelRef is the registry-backed Model implementation.
type modelRef struct {
	reg *Registry
	def *ModelDef
}

func (m *modelRef) Name() string  { return m.def.Name }
func (m *modelRef) Table() string { return m.def.Table }

func (m *modelRef) Relation(name string) (Relation, error) {
	rel, ok := m.def.Relations[name]
	if !ok {
		return Relation{}, fmt.Errorf("%w: %s on model %s", ErrRelationNotFound, name, m.def.Name)
	}
	target, err := m.reg.Model(rel.Model)
	if err != nil {
		return Relation{}, fmt.Errorf("relation %s on model %s: %w", name, m.def.Name, err)
	}
	ownerKey := rel.OwnerKey
	if ownerKey == "" {
		ownerKey = "id"
	}
	return Relation{
		Name:       name,
		Kind:       rel.Kind,
		Model:      target,
		ForeignKey: rel.ForeignKey,
		OwnerKey:   ownerKey,
	}, nil
}

func (m *modelRef) NewFilter() any {
	if m.def.Filter == nil {
		return nil
	}
	return m.def.Filter()
}
