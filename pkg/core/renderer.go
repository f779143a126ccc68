package core

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/go-drift/driftui/pkg/errors"
)

var tracer = otel.Tracer("github.com/go-drift/driftui/pkg/core")

// ErrDisposed is returned when rendering into a disposed context tree.
var ErrDisposed = stderrors.New("render context disposed")

// RenderedNode is the output of rendering one Element: its name and its
// fully resolved properties. Nested Elements have been replaced by
// RenderedNodes.
type RenderedNode struct {
	Name  string
	Props Props
}

// Walk visits the node and every nested RenderedNode in depth-first
// pre-order until visit returns false.
func (n *RenderedNode) Walk(visit func(*RenderedNode) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	return walkValue(n.Props, visit)
}

func walkValue(value any, visit func(*RenderedNode) bool) bool {
	switch v := value.(type) {
	case *RenderedNode:
		return v.Walk(visit)
	case Props:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			if !walkValue(v[key], visit) {
				return false
			}
		}
	case map[string]any:
		return walkValue(Props(v), visit)
	case []any:
		for _, item := range v {
			if !walkValue(item, visit) {
				return false
			}
		}
	}
	return true
}

// Renderer renders elements into a context tree.
type Renderer struct {
	root *Context
}

// NewRenderer creates a renderer for the tree rooted at root.
func NewRenderer(root *Context) *Renderer {
	return &Renderer{root: root}
}

// Root returns the root context.
func (r *Renderer) Root() *Context {
	return r.root
}

// Render runs one pass of element over the root context and returns the
// resulting node tree. The pass is atomic: if any render function panics,
// every state change of the pass is rolled back, the failure is reported
// and returned, and the previously rendered tree remains authoritative.
// Effects staged by a successful pass run before Render returns.
func (r *Renderer) Render(ctx context.Context, element Element) (node *RenderedNode, err error) {
	t := r.root.tree
	t.passMu.Lock()
	defer t.passMu.Unlock()

	if r.root.IsDisposed() {
		return nil, ErrDisposed
	}

	_, span := tracer.Start(ctx, "core.Render")
	span.SetAttributes(attribute.String("driftui.element", element.ElementName()))
	defer span.End()

	start := time.Now()
	p := &pass{}
	t.pass = p
	node, err = r.run(element, p)
	t.pass = nil

	if err != nil {
		p.rollback()
		renderPasses.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}

	p.commit()
	renderDuration.Observe(time.Since(start).Seconds())
	renderPasses.WithLabelValues("ok").Inc()
	p.runEffects()
	return node, nil
}

func (r *Renderer) run(element Element, p *pass) (node *RenderedNode, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			renderErr := &errors.RenderError{
				Element:    element.ElementName(),
				Path:       p.failedAt,
				Recovered:  rec,
				StackTrace: errors.CaptureStack(),
				Timestamp:  time.Now(),
			}
			if e, ok := rec.(error); ok {
				renderErr.Err = e
			}
			errors.ReportRenderError(renderErr)
			node, err = nil, renderErr
		}
	}()
	return renderElement(element, r.root), nil
}

func renderElement(element Element, c *Context) *RenderedNode {
	end := c.open()
	ok := false
	defer func() { end(ok) }()

	props := element.Render(c)
	resolved := renderPropsInOpenContext(props, c)
	ok = true
	return &RenderedNode{Name: element.ElementName(), Props: resolved}
}

// childKey derives the context key of a child item. Elements get their
// name appended so a type change at the same position resets state;
// collections are keyed by position; scalars need no context.
func childKey(item any, key string) (string, bool) {
	if element, ok := item.(Element); ok {
		return key + "-" + element.ElementName(), true
	}
	if isCollection(item) {
		return key, true
	}
	return "", false
}

func renderChild(item any, key string, c *Context) any {
	k, ok := childKey(item, key)
	if !ok {
		return item
	}
	return renderItem(item, c.Child(k))
}

func renderItem(item any, c *Context) any {
	switch v := item.(type) {
	case Element:
		return renderElement(v, c)
	case Props:
		return renderMap(v, c)
	case map[string]any:
		return map[string]any(renderMap(v, c))
	case []any:
		return renderList(v, c)
	}

	rv := reflect.ValueOf(item)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return renderList(items, c)
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return map[string]any(renderMap(m, c))
	}
	return item
}

func renderList(items []any, c *Context) []any {
	end := c.open()
	ok := false
	defer func() { end(ok) }()

	out := make([]any, len(items))
	for i, item := range items {
		out[i] = renderChild(item, strconv.Itoa(i), c)
	}
	ok = true
	return out
}

func renderMap(m map[string]any, c *Context) Props {
	end := c.open()
	ok := false
	defer func() { end(ok) }()

	out := renderPropsInOpenContext(m, c)
	ok = true
	return out
}

func renderPropsInOpenContext(m map[string]any, c *Context) Props {
	out := make(Props, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		out[key] = renderChild(m[key], key, c)
	}
	return out
}

func isCollection(item any) bool {
	switch item.(type) {
	case nil, string, []byte, *RenderedNode:
		return false
	case []any, map[string]any, Props:
		return true
	}
	switch reflect.ValueOf(item).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}
