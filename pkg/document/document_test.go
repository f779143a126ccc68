package document

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/errors"
	"github.com/go-drift/driftui/pkg/export"
)

type widgetTable struct{ name string }

func (*widgetTable) ExportType() string { return "test.Table" }

func render(t *testing.T, element core.Element) *core.RenderedNode {
	t.Helper()
	root := core.NewRootContext()
	t.Cleanup(root.Dispose)
	node, err := core.NewRenderer(root).Render(context.Background(), element)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return node
}

func TestEncode_Tree(t *testing.T) {
	pressed := 0
	el := core.NewBase("ui.Flex", core.Props{"direction": "row"},
		core.NewBase("ui.Text", core.Props{"value": "hello"}),
		core.NewBase("ui.Button", core.Props{"onPress": func() { pressed++ }, "size": 3}),
	)

	doc, err := Encode(nil, render(t, el))
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		ElementNameKey: "ui.Flex",
		PropsKey: map[string]any{
			"direction": "row",
			"children": []any{
				map[string]any{ElementNameKey: "ui.Text", PropsKey: map[string]any{"value": "hello"}},
				map[string]any{ElementNameKey: "ui.Button", PropsKey: map[string]any{
					"onPress": map[string]any{CallableIDKey: "cb0"},
					"size":    3,
				}},
			},
		},
	}
	if d := cmp.Diff(want, doc.Root); d != "" {
		t.Errorf("document mismatch (-want +got):\n%s", d)
	}

	if doc.Callables.Len() != 1 {
		t.Fatalf("Callables.Len = %d, want 1", doc.Callables.Len())
	}
	if err := doc.Callables.Call("cb0", nil); err != nil {
		t.Fatal(err)
	}
	if pressed != 1 {
		t.Errorf("pressed = %d, want 1", pressed)
	}
}

func TestEncode_CallableIDsAreDeterministic(t *testing.T) {
	el := core.NewBase("ui.Form", core.Props{
		"onSubmit": func() {},
		"onChange": func(string) {},
		"onBlur":   func() {},
	})
	node := render(t, el)
	doc, err := Encode(nil, node)
	if err != nil {
		t.Fatal(err)
	}
	props := doc.Root[PropsKey].(map[string]any)
	for key, want := range map[string]string{"onBlur": "cb0", "onChange": "cb1", "onSubmit": "cb2"} {
		got := props[key].(map[string]any)[CallableIDKey]
		if got != want {
			t.Errorf("%s callable = %v, want %s", key, got, want)
		}
	}
}

func TestEncode_ExportableObjects(t *testing.T) {
	prices := &widgetTable{"prices"}
	el := core.NewBase("ui.Panel", nil,
		core.NewTableElement(prices, core.Props{"density": "compact"}),
		core.NewTableElement(prices, nil),
	)
	node := render(t, el)

	registry := export.NewRegistry()
	view := registry.View()
	var doc *Document
	diff, err := view.Export(func(refs export.Referencer) error {
		var err error
		doc, err = Encode(refs, node)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	children := doc.Root[PropsKey].(map[string]any)["children"].([]any)
	for i, child := range children {
		table := child.(map[string]any)[PropsKey].(map[string]any)["table"]
		if d := cmp.Diff(map[string]any{ObjectIDKey: 0}, table); d != "" {
			t.Errorf("child %d table mismatch (-want +got):\n%s", i, d)
		}
	}
	if d := cmp.Diff([]int{0}, diff.NewReferences); d != "" {
		t.Errorf("NewReferences mismatch (-want +got):\n%s", d)
	}
	if len(diff.NewObjects) != 1 || diff.NewObjects[0] != any(prices) {
		t.Errorf("NewObjects = %v, want [prices]", diff.NewObjects)
	}
}

func TestEncode_ExportableWithoutReferencer(t *testing.T) {
	node := render(t, core.NewTableElement(&widgetTable{}, nil))
	_, err := Encode(nil, node)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindProtocol {
		t.Errorf("Encode error = %v, want KindProtocol", err)
	}
}

func TestEncode_Values(t *testing.T) {
	type point struct{ X, Y int }
	e := NewEncoder(nil)

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"nil", nil, nil},
		{"string", "x", "x"},
		{"int", 4, 4},
		{"typed string", core.SortDescending, "DESC"},
		{"int slice", []int{1, 2}, []any{1, 2}},
		{"string map", map[string]bool{"a": true}, map[string]any{"a": true}},
		{"struct", point{1, 2}, point{1, 2}},
		{"nil func", (func())(nil), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EncodeValue(tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if d := cmp.Diff(tt.want, got); d != "" {
				t.Errorf("EncodeValue mismatch (-want +got):\n%s", d)
			}
		})
	}

	if _, err := e.EncodeValue(map[int]string{1: "a"}); err == nil {
		t.Error("EncodeValue(map[int]string) succeeded, want error")
	}
	if _, err := e.EncodeValue(make(chan int)); err == nil {
		t.Error("EncodeValue(chan) succeeded, want error")
	}
}

func TestCallables_Lookup(t *testing.T) {
	c := newCallables()
	c.add(func() {})
	c.add(func() {})

	for _, id := range []string{"cb0", "cb1"} {
		if _, ok := c.Lookup(id); !ok {
			t.Errorf("Lookup(%q) not found", id)
		}
	}
	for _, id := range []string{"cb2", "cb", "cb-1", "cb01", "x0", ""} {
		if _, ok := c.Lookup(id); ok {
			t.Errorf("Lookup(%q) found, want missing", id)
		}
	}
	if err := c.Call("cb9", nil); !stderrors.Is(err, ErrUnknownCallable) {
		t.Errorf("Call(cb9) error = %v, want ErrUnknownCallable", err)
	}
}
