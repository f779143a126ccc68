package convert

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToCamelCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"snake_case", "snakeCase"},
		{"already", "already"},
		{"on_row_press", "onRowPress"},
		{"double__underscore", "doubleUnderscore"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ToCamelCase(tt.in); got != tt.want {
			t.Errorf("ToCamelCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToReactPropCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"max_width", "maxWidth"},
		{"UNSAFE_class_name", "UNSAFE_className"},
		{"aria_label", "aria-label"},
		{"aria_described_by", "aria-describedBy"},
	}
	for _, tt := range tests {
		if got := ToReactPropCase(tt.in); got != tt.want {
			t.Errorf("ToReactPropCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDictToCamelCase(t *testing.T) {
	in := map[string]any{"on_press": "f", "is_disabled": nil, "aria_label": "x"}

	got := DictToCamelCase(in, true, nil)
	want := map[string]any{"onPress": "f", "aria-label": "x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DictToCamelCase(omitNil) mismatch (-want +got):\n%s", diff)
	}

	got = DictToCamelCase(in, false, ToCamelCase)
	want = map[string]any{"onPress": "f", "isDisabled": nil, "ariaLabel": "x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DictToCamelCase(keep nil) mismatch (-want +got):\n%s", diff)
	}
}
