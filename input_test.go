package modelfilter

import (
	"net/url"
	"testing"

	"github.com/hugr-lab/modelfilter/internal/msgpack"
)

func TestParseJSONPreservesOrder(t *testing.T) {
	in, err := ParseJSON([]byte(`{"zeta": 1, "alpha": "a", "mid": [1, 2]}`))
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}

	keys := in.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i, key := range want {
		if keys[i] != key {
			t.Errorf("expected keys[%d]=%q, got %q", i, key, keys[i])
		}
	}

	if v, _ := in.Get("zeta"); v != float64(1) {
		t.Errorf("expected zeta=1, got %v", v)
	}
}

func TestParseJSONRejectsNonObject(t *testing.T) {
	if _, err := ParseJSON([]byte(`[1, 2]`)); err == nil {
		t.Error("expected error for JSON array input")
	}
	if _, err := ParseJSON([]byte(`"str"`)); err == nil {
		t.Error("expected error for JSON string input")
	}
	if _, err := ParseJSON([]byte(`{"a":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestFromValues(t *testing.T) {
	in := FromValues(url.Values{
		"name": {"ann"},
		"tags": {"go", "sql"},
	})

	if v, _ := in.Get("name"); v != "ann" {
		t.Errorf("expected scalar collapse, got %v", v)
	}
	tags, _ := in.Get("tags")
	if list, ok := tags.([]string); !ok || len(list) != 2 {
		t.Errorf("expected 2-element list, got %v", tags)
	}
}

func TestParseMsgpack(t *testing.T) {
	data, err := msgpack.Encode(map[string]any{"name": "ann", "age": 30})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	in, err := ParseMsgpack(data)
	if err != nil {
		t.Fatalf("ParseMsgpack failed: %v", err)
	}
	if v, _ := in.Get("name"); v != "ann" {
		t.Errorf("expected name=ann, got %v", v)
	}
	if !in.Has("age") {
		t.Error("expected age key")
	}

	if _, err := ParseMsgpack(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestInputSetGetDelete(t *testing.T) {
	in := NewInput()
	in.Set("a", 1).Set("b", 2).Set("a", 3)

	if in.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", in.Len())
	}
	keys := in.Keys()
	if keys[0] != "a" || keys[1] != "b" {
		t.Errorf("replacing a key must keep its position, got %v", keys)
	}
	if v, _ := in.Get("a"); v != 3 {
		t.Errorf("expected a=3, got %v", v)
	}
	if v := in.Value("missing", "fallback"); v != "fallback" {
		t.Errorf("expected fallback, got %v", v)
	}

	in.Delete("a")
	if in.Has("a") || in.Len() != 1 {
		t.Errorf("expected only b to remain, got %v", in.Keys())
	}
}

func TestSanitizedRemovesEmpty(t *testing.T) {
	in := InputOf(
		"name", "ann",
		"empty", "",
		"nil", nil,
		"list", []any{},
		"dict", map[string]any{},
		"zero", 0,
		"no", false,
	)

	got := in.sanitized(false)
	want := []string{"name", "zero", "no"}
	keys := got.Keys()
	if len(keys) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, keys)
	}
	for i, key := range want {
		if keys[i] != key {
			t.Errorf("expected keys[%d]=%q, got %q", i, key, keys[i])
		}
	}
}

func TestSanitizedKeepEmpty(t *testing.T) {
	in := InputOf("empty", "", "nil", nil)
	got := in.sanitized(true)
	if got.Len() != 2 {
		t.Errorf("expected all entries kept, got %v", got.Keys())
	}
}

func TestInputOfPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for odd argument count")
		}
	}()
	InputOf("only-key")
}
