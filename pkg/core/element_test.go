package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/driftui/pkg/convert"
)

func TestNewBase_Children(t *testing.T) {
	tests := []struct {
		name     string
		children []any
		want     any
		present  bool
	}{
		{name: "none"},
		{name: "single", children: []any{"a"}, want: "a", present: true},
		{name: "many", children: []any{"a", "b"}, want: []any{"a", "b"}, present: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBase("ui.Flex", Props{"gap": 2}, tt.children...)
			got, ok := b.Props["children"]
			if ok != tt.present {
				t.Fatalf("children present = %v, want %v", ok, tt.present)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("children mismatch (-want +got):\n%s", diff)
			}
			if b.Props["gap"] != 2 {
				t.Errorf("gap = %v, want 2", b.Props["gap"])
			}
		})
	}
}

func TestBase_RenderCopiesProps(t *testing.T) {
	b := NewBase("ui.Text", Props{"text": "a"})
	props := b.Render(nil)
	props["text"] = "changed"

	if b.Props["text"] != "a" {
		t.Error("Render exposed the element's own props")
	}
}

func TestDefine(t *testing.T) {
	greeting := Define("app.Greeting", func(c *Context, props Props) any {
		return "hello " + props["name"].(string)
	})

	e := greeting(Props{"name": "drift"})

	if got := e.ElementName(); got != "app.Greeting" {
		t.Errorf("ElementName() = %q, want %q", got, "app.Greeting")
	}
	if got := e.Render(nil)["children"]; got != "hello drift" {
		t.Errorf("children = %v, want %q", got, "hello drift")
	}
}

func TestTableElement(t *testing.T) {
	table := &struct{ name string }{name: "trades"}
	base := NewTableElement(table, Props{"show_quick_filters": true, "density": nil})

	sorted, err := base.Sort("price", "descending")
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	props := sorted.Render(nil)

	if props["table"] != table {
		t.Errorf("table = %v, want the wrapped table", props["table"])
	}
	if props["showQuickFilters"] != true {
		t.Errorf("showQuickFilters = %v, want true", props["showQuickFilters"])
	}
	if _, ok := props["density"]; ok {
		t.Error("nil hints should be omitted")
	}
	want := []map[string]any{{"column": "price", "direction": "DESC"}}
	if diff := cmp.Diff(want, props["sorts"]); diff != "" {
		t.Errorf("sorts mismatch (-want +got):\n%s", diff)
	}
	if _, ok := base.Render(nil)["sorts"]; ok {
		t.Error("Sort modified the original element")
	}
}

func TestTableElement_Callbacks(t *testing.T) {
	e := NewTableElement("t", nil).
		OnRowPress(func(int, map[string]any) {}).
		OnCellPress(func(int, string, any) {}).
		OnColumnPress(func(string) {})

	props := e.Render(nil)
	for _, key := range []string{"onRowPress", "onCellPress", "onColumnPress"} {
		if props[key] == nil {
			t.Errorf("%s missing from rendered props", key)
		}
	}
}

func TestParseSortDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    SortDirection
		wantErr bool
	}{
		{in: "asc", want: SortAscending},
		{in: "ASCENDING", want: SortAscending},
		{in: "Desc", want: SortDescending},
		{in: "sideways", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSortDirection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSortDirection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSortDirection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewDatePicker(t *testing.T) {
	var received any
	picker, err := NewDatePicker(Props{
		"value":             "2021-01-01",
		"unavailable_dates": []any{"2021-01-02 UTC"},
		"on_change":         func(v any) { received = v },
		"is_disabled":       nil,
	})
	if err != nil {
		t.Fatalf("NewDatePicker() error = %v", err)
	}

	if picker.ElementName() != DatePickerName {
		t.Errorf("ElementName() = %q, want %q", picker.ElementName(), DatePickerName)
	}
	if _, ok := picker.Props["value"].(convert.LocalDate); !ok {
		t.Errorf("value = %T, want convert.LocalDate", picker.Props["value"])
	}
	if _, ok := picker.Props["unavailableDates"].([]any)[0].(convert.Instant); !ok {
		t.Errorf("unavailableDates[0] = %T, want convert.Instant", picker.Props["unavailableDates"].([]any)[0])
	}
	if _, ok := picker.Props["isDisabled"]; ok {
		t.Error("nil props should be omitted")
	}

	picker.Props["onChange"].(func(any))("2021-05-06")
	if _, ok := received.(convert.LocalDate); !ok {
		t.Errorf("on_change received %T, want convert.LocalDate", received)
	}
}

func TestNewDatePicker_InvalidDate(t *testing.T) {
	if _, err := NewDatePicker(Props{"value": 3.5}); err == nil {
		t.Error("NewDatePicker() error = nil, want a conversion error")
	}
}
