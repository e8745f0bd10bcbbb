// Package query defines the query-builder contract consumed by the filter core,
// together with a reference implementation backed by Masterminds/squirrel and a
// registry of model descriptors.
//
// The filter core never talks to a database directly. It composes predicates
// through the Builder interface and reads relation metadata through Model. Any
// query layer that satisfies those two interfaces can host filters; the gormq
// package provides an adapter for gorm.io/gorm.
//
// # Models and Relations
//
// Models are registered once, typically at startup:
//
//	reg := query.NewRegistry()
//	err := reg.Register(query.ModelDef{
//	    Name:  "users",
//	    Table: "users",
//	    Relations: map[string]query.RelationDef{
//	        "posts": {Model: "posts", Kind: query.HasMany, ForeignKey: "user_id"},
//	    },
//	})
//
// Relation targets are resolved lazily, so mutually related models can be
// registered in any order.
//
// # Builders
//
// A Builder is obtained from the registry and composes SQL without executing it:
//
//	b, err := reg.Builder("users")
//	b.Where("name", "LIKE", "%ann%").OrderBy("name")
//	sql, args, err := b.ToSQL()
//
// WhereHas wraps constraints on a related model in an existential subquery:
//
//	b.WhereHas("posts", func(sub query.Builder) {
//	    sub.Where("status", "=", "published")
//	})
//
// produces WHERE EXISTS (SELECT 1 FROM posts WHERE posts.user_id = users.id
// AND status = ?). Dotted relation names nest one EXISTS per chain segment.
package query
