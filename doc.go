// Package modelfilter provides declarative model filtering on top of a query
// builder: user-supplied input key/value pairs (typically from an HTTP
// request) dispatch by naming convention to methods on a user-defined filter
// type, optionally cascading into related models, and return the composed
// query.
//
// The package simplifies request-driven querying by:
//   - Dispatching each input key to a matching filter method, silently
//     skipping keys with no match
//   - Removing empty-valued input entries before dispatch
//   - Cascading filtering into related models, either in place (relation
//     already joined) or through an existential subquery
//   - Exposing the query builder's methods directly on the filter type
//
// # Quick Start
//
// Define a filter type by embedding Base; exported methods with one
// parameter become dispatch targets:
//
//	type UserFilter struct {
//	    modelfilter.Base
//	}
//
//	func (f *UserFilter) Name(v string) {
//	    f.Where("name", "LIKE", "%"+v+"%")
//	}
//
//	func (f *UserFilter) Status(v string) {
//	    f.Where("status", "=", v)
//	}
//
// Register the model and run the filter:
//
//	reg := query.NewRegistry()
//	reg.MustRegister(query.ModelDef{Name: "users"})
//
//	b, _ := reg.Builder("users")
//	in, _ := modelfilter.ParseJSON(body)
//
//	flt, err := modelfilter.New(&UserFilter{}, b, in)
//	if err != nil {
//	    return err
//	}
//	q, err := flt.Handle()
//	if err != nil {
//	    return err
//	}
//	sql, args, err := q.ToSQL()
//
// # Method Names
//
// The method name for an input key is derived by stripping a trailing "_id"
// (toggle: DropIDSuffix, default on), removing literal dots, and camelCasing
// (toggle: CamelCaseMethods, default on). The exported Go method is found by
// upper-casing the first letter:
//
//	user_id    -> user      -> method User
//	created_at -> createdAt -> method CreatedAt
//
// Keys that derive to a blacklisted name, to a name with no method, or to a
// framework method (Handle, Push, Where, ...) are skipped without error.
//
// # Relations
//
// A filter type declares which input keys cascade into which relations:
//
//	func (f *UserFilter) Relations() modelfilter.RelationSpec {
//	    return modelfilter.RelationSpec{
//	        "posts": modelfilter.Keys("title", "status"),
//	    }
//	}
//
// If the relation's table is already joined into the query, constraints
// apply directly to it; otherwise they wrap in an EXISTS subquery. The
// related model's own filter type handles the relation-targeted input
// subset. Local closures registered with Related apply before that input.
//
// # Hooks
//
// Optional hooks are discovered by type assertion or method-set inspection
// when the filter type is first registered, not probed per call:
//   - Setup() runs before any dispatch
//   - <Relation>Setup(q query.Builder) runs before a relation's constraints
//
// # Repeated Handle
//
// Handle is not idempotent: calling it twice re-applies every matched
// predicate. Create a fresh Filter (and Definition value) per request.
package modelfilter
