package attrpath

import (
	"encoding/json"
	"testing"
)

func TestLookupNestedPath(t *testing.T) {
	data := map[string]any{
		"attributes": map[string]any{
			"hp": map[string]any{"value": 10, "max": 20},
		},
	}

	value, ok := Lookup(data, "attributes.hp.value")
	if !ok {
		t.Fatal("expected path to resolve")
	}
	if value.(int) != 10 {
		t.Fatalf("expected 10, got %v", value)
	}
}

func TestLookupAbsentIsNotZero(t *testing.T) {
	data := map[string]any{
		"attributes": map[string]any{
			"hp": map[string]any{"value": 0},
		},
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"zero value resolves", "attributes.hp.value", true},
		{"missing leaf", "attributes.hp.temp", false},
		{"missing branch", "attributes.sp.value", false},
		{"empty path", "", false},
		{"non-map segment", "attributes.hp.value.deeper", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Lookup(data, tt.path)
			if ok != tt.want {
				t.Fatalf("expected ok=%v for %q", tt.want, tt.path)
			}
		})
	}
}

func TestLookupNilLeafTreatedAsAbsent(t *testing.T) {
	data := map[string]any{
		"attributes": map[string]any{
			"hp": map[string]any{"value": nil},
		},
	}

	if _, ok := Lookup(data, "attributes.hp.value"); ok {
		t.Fatal("expected explicit null to read as absent")
	}
}

func TestNumberCoercions(t *testing.T) {
	data := map[string]any{
		"a": 3,
		"b": 3.5,
		"c": int64(7),
		"d": json.Number("12"),
		"e": "not a number",
	}

	tests := []struct {
		path string
		want float64
		ok   bool
	}{
		{"a", 3, true},
		{"b", 3.5, true},
		{"c", 7, true},
		{"d", 12, true},
		{"e", 0, false},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Number(data, tt.path)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("expected (%v, %v), got (%v, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestNumberOrFallback(t *testing.T) {
	data := map[string]any{"hp": map[string]any{"min": 0}}

	if got := NumberOr(data, "hp.min", -1); got != 0 {
		t.Fatalf("expected stored zero, got %v", got)
	}
	if got := NumberOr(data, "hp.floor", -1); got != -1 {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestSetBuildsNestedPatch(t *testing.T) {
	patch := map[string]any{}
	Set(patch, "attributes.hp.value", 4.0)
	Set(patch, "attributes.hp.temp", 1.0)
	Set(patch, "wounds.value", 2.0)

	if got, ok := Number(patch, "attributes.hp.value"); !ok || got != 4 {
		t.Fatalf("expected 4, got (%v, %v)", got, ok)
	}
	if got, ok := Number(patch, "attributes.hp.temp"); !ok || got != 1 {
		t.Fatalf("expected 1, got (%v, %v)", got, ok)
	}
	if got, ok := Number(patch, "wounds.value"); !ok || got != 2 {
		t.Fatalf("expected 2, got (%v, %v)", got, ok)
	}
}
