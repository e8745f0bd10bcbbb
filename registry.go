package modelfilter

import (
	"reflect"
	"strings"
	"sync"

	"github.com/hugr-lab/modelfilter/query"
)

// typeInfo holds the dispatchable surface of one concrete filter type,
// computed once via reflection and cached for the process lifetime. This
// replaces per-request method probing: dispatch is a map lookup.
type typeInfo struct {
	// handlers maps exported method names to input-dispatchable methods
	// (exactly one parameter besides the receiver).
	handlers map[string]reflect.Method

	// setups maps per-relation setup hook names ("PostsSetup") to methods
	// with signature func(query.Builder).
	setups map[string]reflect.Method
}

var (
	typeCache sync.Map // reflect.Type -> *typeInfo

	builderType = reflect.TypeOf((*query.Builder)(nil)).Elem()

	// frameworkMethods are the names input keys must never dispatch to:
	// everything promoted from Base plus the optional capability hooks.
	// Guards input keys like "push" or "handle" from shadowing the
	// filter machinery.
	frameworkMethods = frameworkMethodSet()
)

// frameworkMethodSet collects the exported method names of Base and the
// reserved hook names.
func frameworkMethodSet() map[string]struct{} {
	set := make(map[string]struct{})
	t := reflect.TypeOf(&Base{})
	for i := 0; i < t.NumMethod(); i++ {
		set[t.Method(i).Name] = struct{}{}
	}
	set["Setup"] = struct{}{}
	set["Relations"] = struct{}{}
	set["Handle"] = struct{}{}
	return set
}

// infoFor returns the cached typeInfo for a filter definition's concrete
// type, building it on first use.
func infoFor(def Definition) *typeInfo {
	t := reflect.TypeOf(def)
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeInfo)
	}

	info := &typeInfo{
		handlers: make(map[string]reflect.Method),
		setups:   make(map[string]reflect.Method),
	}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if _, reserved := frameworkMethods[m.Name]; reserved {
			continue
		}
		// Relation setup hooks: <Relation>Setup(q query.Builder).
		if strings.HasSuffix(m.Name, "Setup") && m.Type.NumIn() == 2 && m.Type.In(1) == builderType {
			info.setups[m.Name] = m
			continue
		}
		if m.Type.NumIn() == 2 {
			info.handlers[m.Name] = m
		}
	}

	cached, _ := typeCache.LoadOrStore(t, info)
	return cached.(*typeInfo)
}

// handler returns the dispatchable method for an exported name, if any.
func (ti *typeInfo) handler(name string) (reflect.Method, bool) {
	m, ok := ti.handlers[name]
	return m, ok
}

// setup returns the relation setup hook for an exported name, if any.
func (ti *typeInfo) setup(name string) (reflect.Method, bool) {
	m, ok := ti.setups[name]
	return m, ok
}

// call invokes a handler method with the input value. Returns false without
// calling when the value cannot be passed to the method's parameter; such
// keys are silently skipped, consistent with unmatched keys. Any return
// values are discarded.
func call(def Definition, m reflect.Method, value any) bool {
	argT := m.Type.In(1)

	var arg reflect.Value
	switch {
	case value == nil:
		switch argT.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			arg = reflect.Zero(argT)
		default:
			return false
		}
	default:
		v := reflect.ValueOf(value)
		switch {
		case v.Type().AssignableTo(argT):
			arg = v
		case isNumeric(v.Type()) && isNumeric(argT):
			// JSON numbers decode as float64; allow numeric parameters.
			arg = v.Convert(argT)
		default:
			return false
		}
	}

	m.Func.Call([]reflect.Value{reflect.ValueOf(def), arg})
	return true
}

// callSetup invokes a relation setup hook with the given builder.
func callSetup(def Definition, m reflect.Method, b query.Builder) {
	m.Func.Call([]reflect.Value{reflect.ValueOf(def), reflect.ValueOf(b)})
}

// isNumeric reports whether a type is an integer or float kind.
func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
