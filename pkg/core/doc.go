// Package core provides the render context tree, elements, the renderer and
// the hook library.
//
// Elements are immutable descriptions of UI units. Rendering an element
// produces a RenderedNode: the element's name and its fully resolved
// properties. State lives in Contexts, not in elements; a Context is a
// persistent scope addressed by a path of keys from the root, and holds an
// ordered arena of hook slots.
//
// # Components
//
// Custom elements are defined with [Define]. The render function runs
// inside the component's context and may call hooks:
//
//	var Counter = core.Define("app.Counter", func(c *core.Context, props core.Props) any {
//	    count, setCount := core.UseState(c, 0)
//	    return core.NewBase("ui.Button", core.Props{
//	        "label":   count,
//	        "onPress": func() { setCount(count + 1) },
//	    })
//	})
//
// # Child Keys
//
// Nested structures are rendered in child contexts whose keys derive from
// position: list members by index, map members by key, and Elements by
// position plus element name ("0-ui.Text", "child-ui.Box"). Reordering a
// list therefore moves state with positions, while replacing an element
// with one of another name at the same position resets its state. A key
// that is not visited by a pass is torn down with all its descendants and
// every resource managed by them.
//
// # Hook Rules
//
// Hooks are identified by call order. A render function must call the same
// hooks in the same order on every pass. Requesting a slot of a different
// kind than the previous pass is a contract violation and fails the pass;
// with [DebugMode] enabled, a changed slot count fails the pass too.
//
// # Passes
//
// [Renderer.Render] runs one atomic pass. If any render function panics,
// state written during the pass is rolled back, contexts created during the
// pass are discarded, and the error is returned. Effects run only after a
// pass commits.
//
// [RenderOwner] drives passes in response to invalidations, which may come
// from any goroutine.
package core
