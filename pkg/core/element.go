package core

import (
	"maps"
)

// Props holds the properties of an element. Values may be scalars,
// slices, maps, or further Elements; the renderer resolves nested
// Elements into RenderedNodes.
type Props map[string]any

// Element is an immutable description of one UI unit. Elements carry no
// mutable state; state lives in the Context they are rendered into.
//
// The set of element variants is closed: [Base] for built-in components,
// [Component] for custom render functions and [TableElement] for live
// tables.
type Element interface {
	// ElementName returns the type tag sent to the client.
	ElementName() string
	// Render produces the raw properties of the element.
	Render(c *Context) Props

	element()
}

// Base is a built-in component: its rendered properties are its props.
type Base struct {
	Name  string
	Props Props
}

// NewBase creates a Base element. Children, if any, are stored under the
// "children" prop.
func NewBase(name string, props Props, children ...any) Base {
	out := make(Props, len(props)+1)
	maps.Copy(out, props)
	switch len(children) {
	case 0:
	case 1:
		out["children"] = children[0]
	default:
		out["children"] = children
	}
	return Base{Name: name, Props: out}
}

func (b Base) ElementName() string { return b.Name }

// Render returns a copy of the element props.
func (b Base) Render(*Context) Props {
	return maps.Clone(b.Props)
}

func (Base) element() {}

// RenderFunc is the body of a custom component. It runs inside the
// component's context, may call hooks, and returns the component's
// children.
type RenderFunc func(c *Context, props Props) any

// Component is a custom element: a render function plus the props it was
// created with.
type Component struct {
	Name  string
	Props Props
	Fn    RenderFunc
}

func (e Component) ElementName() string { return e.Name }

// Render calls the render function and places its result under
// "children".
func (e Component) Render(c *Context) Props {
	return Props{"children": e.Fn(c, e.Props)}
}

func (Component) element() {}

// Define returns a constructor for a named component. Each call to the
// constructor creates a fresh Component element:
//
//	var Counter = core.Define("app.Counter", func(c *core.Context, props core.Props) any {
//	    count, setCount := core.UseState(c, 0)
//	    return core.NewBase("ui.Button", core.Props{"label": count, "onPress": func() { setCount(count + 1) }})
//	})
//
//	root := Counter(nil)
func Define(name string, fn RenderFunc) func(props Props) Component {
	return func(props Props) Component {
		return Component{Name: name, Props: props, Fn: fn}
	}
}
