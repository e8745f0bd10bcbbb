package query

import (
	"errors"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister(ModelDef{
		Name: "users",
		Relations: map[string]RelationDef{
			"posts":   {Model: "posts", Kind: HasMany, ForeignKey: "user_id"},
			"company": {Model: "companies", Kind: BelongsTo, ForeignKey: "company_id"},
		},
	})
	reg.MustRegister(ModelDef{
		Name: "posts",
		Relations: map[string]RelationDef{
			"comments": {Model: "comments", Kind: HasMany, ForeignKey: "post_id"},
		},
	})
	reg.MustRegister(ModelDef{Name: "comments"})
	reg.MustRegister(ModelDef{Name: "companies"})
	return reg
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(ModelDef{}); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("expected ErrInvalidModel for empty name, got %v", err)
	}

	if err := reg.Register(ModelDef{Name: "users"}); err != nil {
		t.Fatalf("expected successful registration, got %v", err)
	}
	if err := reg.Register(ModelDef{Name: "users"}); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("expected ErrInvalidModel for duplicate name, got %v", err)
	}

	err := reg.Register(ModelDef{
		Name:      "posts",
		Relations: map[string]RelationDef{"author": {Model: "users"}},
	})
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("expected ErrInvalidModel for missing foreign key, got %v", err)
	}
}

func TestTableDefaultsToName(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(ModelDef{Name: "users"})

	m, err := reg.Model("users")
	if err != nil {
		t.Fatalf("Model failed: %v", err)
	}
	if m.Table() != "users" {
		t.Errorf("expected table 'users', got %q", m.Table())
	}
}

func TestRelationResolution(t *testing.T) {
	reg := testRegistry(t)

	m, err := reg.Model("users")
	if err != nil {
		t.Fatalf("Model failed: %v", err)
	}

	rel, err := m.Relation("posts")
	if err != nil {
		t.Fatalf("Relation failed: %v", err)
	}
	if rel.Model.Table() != "posts" {
		t.Errorf("expected related table 'posts', got %q", rel.Model.Table())
	}
	if rel.OwnerKey != "id" {
		t.Errorf("expected default owner key 'id', got %q", rel.OwnerKey)
	}
	if rel.Kind != HasMany {
		t.Errorf("expected has_many, got %s", rel.Kind)
	}

	if _, err := m.Relation("missing"); !errors.Is(err, ErrRelationNotFound) {
		t.Errorf("expected ErrRelationNotFound, got %v", err)
	}
}

func TestRelationUnknownTarget(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(ModelDef{
		Name:      "users",
		Relations: map[string]RelationDef{"posts": {Model: "posts", ForeignKey: "user_id"}},
	})

	m, err := reg.Model("users")
	if err != nil {
		t.Fatalf("Model failed: %v", err)
	}
	if _, err := m.Relation("posts"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound for unregistered target, got %v", err)
	}
}

func TestModelNotFound(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Model("ghosts"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := reg.Builder("ghosts"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound from Builder, got %v", err)
	}
}

func TestModelsSorted(t *testing.T) {
	reg := testRegistry(t)
	names := reg.Models()
	want := []string{"comments", "companies", "posts", "users"}
	if len(names) != len(want) {
		t.Fatalf("expected %d models, got %d", len(want), len(names))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("expected names[%d]=%q, got %q", i, name, names[i])
		}
	}
}
