package board

import (
	"errors"
	"testing"
)

func TestParseObjectKind(t *testing.T) {
	tests := []struct {
		input string
		want  ObjectKind
	}{
		{"RECTANGLE", KindRectangle},
		{"ellipse", KindEllipse},
		{" Text ", KindText},
		{"PATH", KindPath},
		{"line", KindLine},
	}
	for _, tc := range tests {
		got, err := ParseObjectKind(tc.input)
		if err != nil {
			t.Errorf("ParseObjectKind(%q) returned error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseObjectKind(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}

	if _, err := ParseObjectKind("TRIANGLE"); !errors.Is(err, ErrUnknownObjectKind) {
		t.Fatalf("expected ErrUnknownObjectKind, got %v", err)
	}
}

func TestAttributeSetCopiesOnWayIn(t *testing.T) {
	source := map[string]any{"left": 10.0}
	set := NewAttributeSet(source)
	source["left"] = 999.0

	if got := mustAttr(t, set, "left"); got != float64(10) {
		t.Fatalf("expected stored snapshot isolated from source map, got %v", got)
	}
}

func TestAttributeSetCopiesOnWayOut(t *testing.T) {
	set := attrs(map[string]any{"left": 10})
	exported := set.ToMap()
	exported["left"] = 999.0

	if got := mustAttr(t, set, "left"); got != float64(10) {
		t.Fatalf("expected stored snapshot isolated from exported map, got %v", got)
	}
}

func TestAttributeSetNormalizesNumericTypes(t *testing.T) {
	set := NewAttributeSet(map[string]any{
		"a": int(1),
		"b": int64(2),
		"c": float32(3),
		"d": 4.5,
	})
	for name, want := range map[string]float64{"a": 1, "b": 2, "c": 3, "d": 4.5} {
		if got := mustAttr(t, set, name); got != want {
			t.Errorf("attribute %q = %v (%T), want float64 %v", name, got, got, want)
		}
	}
}

func TestAttributeSetEqual(t *testing.T) {
	a := attrs(map[string]any{"left": 1, "fill": "#fff"})
	b := attrs(map[string]any{"left": 1, "fill": "#fff"})
	c := attrs(map[string]any{"left": 2, "fill": "#fff"})

	if !a.Equal(b) {
		t.Fatal("expected identical sets to compare equal")
	}
	if a.Equal(c) {
		t.Fatal("expected differing sets to compare unequal")
	}
	if !(AttributeSet{}).Equal(NewAttributeSet(nil)) {
		t.Fatal("expected empty sets to compare equal")
	}
}

func TestEncodeDecodeAttributesRoundTrip(t *testing.T) {
	original := attrs(map[string]any{"left": 12.5, "fill": "#336699", "text": "note"})
	blob, err := EncodeAttributes(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := DecodeAttributes(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.Equal(original) {
		t.Fatalf("round trip mismatch: %v vs %v", decoded.ToMap(), original.ToMap())
	}
}

func TestDecodeAttributesEmptyBlob(t *testing.T) {
	decoded, err := DecodeAttributes("")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.IsEmpty() {
		t.Fatalf("expected empty set, got %v", decoded.ToMap())
	}
}

func TestDecodeAttributesRejectsCompositeValues(t *testing.T) {
	_, err := DecodeAttributes(`{"points": [1, 2, 3]}`)
	if !errors.Is(err, ErrInvalidAttributeValue) {
		t.Fatalf("expected ErrInvalidAttributeValue, got %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	set := attrs(map[string]any{"top": 1, "angle": 2, "left": 3})
	names := set.Names()
	want := []string{"angle", "left", "top"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("expected sorted names %v, got %v", want, names)
		}
	}
}
