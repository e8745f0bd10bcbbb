package modelfilter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"

	"github.com/hugr-lab/modelfilter/internal/msgpack"
)

// Input is an ordered mapping from input key to value. Iteration order is the
// insertion order, so filters dispatch keys in the order the input arrived.
//
// Values may be scalars, slices, maps, or nil. Input performs no validation;
// it only tracks order and presence.
type Input struct {
	keys   []string
	values map[string]any
}

// NewInput creates an empty input map.
func NewInput() *Input {
	return &Input{values: make(map[string]any)}
}

// InputOf creates an input from key/value pairs in the given order.
// Panics if the number of arguments is odd or a key is not a string.
// Intended for tests and literals; request payloads use the Parse helpers.
func InputOf(pairs ...any) *Input {
	if len(pairs)%2 != 0 {
		panic("modelfilter: InputOf requires an even number of arguments")
	}
	in := NewInput()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("modelfilter: InputOf key %d is %T, not string", i/2, pairs[i]))
		}
		in.Set(key, pairs[i+1])
	}
	return in
}

// ParseJSON decodes a JSON object into an input, preserving the order of the
// object's keys. Returns an error for anything that is not a JSON object.
func ParseJSON(data []byte) (*Input, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("modelfilter: invalid JSON input: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("modelfilter: JSON input must be an object, got %v", tok)
	}

	in := NewInput()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("modelfilter: invalid JSON input: %w", err)
		}
		key := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("modelfilter: invalid JSON value for %q: %w", key, err)
		}
		in.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("modelfilter: invalid JSON input: %w", err)
	}
	return in, nil
}

// FromValues builds an input from URL query values. Keys are added in sorted
// order (url.Values is unordered); single-element value lists collapse to
// their scalar.
func FromValues(values url.Values) *Input {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	in := NewInput()
	for _, key := range keys {
		vs := values[key]
		if len(vs) == 1 {
			in.Set(key, vs[0])
			continue
		}
		in.Set(key, vs)
	}
	return in
}

// ParseMsgpack decodes a MessagePack map payload into an input. Keys are
// added in sorted order (MessagePack maps are unordered).
func ParseMsgpack(data []byte) (*Input, error) {
	m, err := msgpack.DecodeMap(data)
	if err != nil {
		return nil, fmt.Errorf("modelfilter: %w", err)
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	in := NewInput()
	for _, key := range keys {
		in.Set(key, m[key])
	}
	return in, nil
}

// Set adds or replaces a value. A new key is appended to the iteration order;
// replacing an existing key keeps its position.
func (in *Input) Set(key string, value any) *Input {
	if _, ok := in.values[key]; !ok {
		in.keys = append(in.keys, key)
	}
	in.values[key] = value
	return in
}

// Get returns the value for key and whether it is present.
func (in *Input) Get(key string) (any, bool) {
	v, ok := in.values[key]
	return v, ok
}

// Value returns the value for key, or def if the key is absent.
func (in *Input) Value(key string, def any) any {
	if v, ok := in.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present.
func (in *Input) Has(key string) bool {
	_, ok := in.values[key]
	return ok
}

// Delete removes a key, preserving the order of the remaining keys.
func (in *Input) Delete(key string) {
	if _, ok := in.values[key]; !ok {
		return
	}
	delete(in.values, key)
	for i, k := range in.keys {
		if k == key {
			in.keys = append(in.keys[:i], in.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in iteration order. The returned slice is a copy.
func (in *Input) Keys() []string {
	out := make([]string, len(in.keys))
	copy(out, in.keys)
	return out
}

// Len returns the number of entries.
func (in *Input) Len() int {
	return len(in.keys)
}

// Map returns the entries as a plain map. The returned map is a copy;
// iteration order is not preserved.
func (in *Input) Map() map[string]any {
	out := make(map[string]any, len(in.values))
	for k, v := range in.values {
		out[k] = v
	}
	return out
}

// sanitized returns a copy of in without empty entries, or a plain copy when
// keepEmpty is set. Empty means nil, empty string, or a slice/map/array of
// length zero.
func (in *Input) sanitized(keepEmpty bool) *Input {
	out := NewInput()
	for _, key := range in.keys {
		value := in.values[key]
		if !keepEmpty && isEmptyValue(value) {
			continue
		}
		out.Set(key, value)
	}
	return out
}

// isEmptyValue reports whether a value is excluded from dispatch.
func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
