package testing

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-drift/driftui/pkg/core"
)

// Finder locates nodes in a rendered tree.
type Finder interface {
	// Evaluate returns all matching nodes under root (depth-first pre-order).
	Evaluate(root *core.RenderedNode) []*core.RenderedNode
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	nodes  []*core.RenderedNode
	finder Finder
}

func (r FinderResult) description() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() *core.RenderedNode {
	if len(r.nodes) == 0 {
		panic(fmt.Sprintf("Finder found no nodes: %s", r.description()))
	}
	return r.nodes[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() *core.RenderedNode {
	if len(r.nodes) == 0 {
		return nil
	}
	return r.nodes[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) *core.RenderedNode {
	if index < 0 || index >= len(r.nodes) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.nodes), r.description()))
	}
	return r.nodes[index]
}

// All returns all matches in traversal order.
func (r FinderResult) All() []*core.RenderedNode {
	return r.nodes
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.nodes)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.nodes) > 0
}

// Prop returns a prop of the first match. Panics if no matches.
func (r FinderResult) Prop(key string) any {
	return r.First().Props[key]
}

// --- Concrete finders ---

type nameFinder struct {
	name string
}

func (f *nameFinder) Evaluate(root *core.RenderedNode) []*core.RenderedNode {
	return collectMatches(root, func(n *core.RenderedNode) bool {
		return n.Name == f.name
	})
}

func (f *nameFinder) Description() string {
	return fmt.Sprintf("ByName(%s)", f.name)
}

// ByName returns a finder that matches nodes with the given element name.
func ByName(name string) Finder {
	return &nameFinder{name: name}
}

// propFinder matches nodes whose prop equals the given value.
type propFinder struct {
	key   string
	value any
}

func (f *propFinder) Evaluate(root *core.RenderedNode) []*core.RenderedNode {
	return collectMatches(root, func(n *core.RenderedNode) bool {
		v, ok := n.Props[f.key]
		if !ok {
			return false
		}
		if v == nil || f.value == nil {
			return v == f.value
		}
		// Guard against non-comparable types (slices, maps, funcs).
		if !reflect.TypeOf(v).Comparable() || !reflect.TypeOf(f.value).Comparable() {
			return reflect.DeepEqual(v, f.value)
		}
		return v == f.value
	})
}

func (f *propFinder) Description() string {
	return fmt.Sprintf("ByProp(%s=%v)", f.key, f.value)
}

// ByProp returns a finder that matches nodes whose prop key equals value.
func ByProp(key string, value any) Finder {
	return &propFinder{key: key, value: value}
}

// text returns the text content of a node: a string "children" prop, or a
// list of strings.
func text(n *core.RenderedNode) (string, bool) {
	switch v := n.Props["children"].(type) {
	case string:
		return v, true
	case []any:
		var b strings.Builder
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", false
			}
			b.WriteString(s)
		}
		return b.String(), true
	}
	return "", false
}

type textFinder struct {
	text string
}

func (f *textFinder) Evaluate(root *core.RenderedNode) []*core.RenderedNode {
	return collectMatches(root, func(n *core.RenderedNode) bool {
		s, ok := text(n)
		return ok && s == f.text
	})
}

func (f *textFinder) Description() string {
	return fmt.Sprintf("ByText(%q)", f.text)
}

// ByText returns a finder that matches nodes whose children are exactly
// the given text.
func ByText(text string) Finder {
	return &textFinder{text: text}
}

type textContainingFinder struct {
	substring string
}

func (f *textContainingFinder) Evaluate(root *core.RenderedNode) []*core.RenderedNode {
	return collectMatches(root, func(n *core.RenderedNode) bool {
		s, ok := text(n)
		return ok && strings.Contains(s, f.substring)
	})
}

func (f *textContainingFinder) Description() string {
	return fmt.Sprintf("ByTextContaining(%q)", f.substring)
}

// ByTextContaining returns a finder that matches nodes whose text children
// contain the given substring.
func ByTextContaining(substring string) Finder {
	return &textContainingFinder{substring: substring}
}

// predicateFinder matches nodes satisfying a predicate.
type predicateFinder struct {
	fn   func(*core.RenderedNode) bool
	desc string
}

func (f *predicateFinder) Evaluate(root *core.RenderedNode) []*core.RenderedNode {
	return collectMatches(root, f.fn)
}

func (f *predicateFinder) Description() string {
	return f.desc
}

// ByPredicate returns a finder that matches nodes satisfying fn.
func ByPredicate(fn func(*core.RenderedNode) bool) Finder {
	return &predicateFinder{fn: fn, desc: "ByPredicate(...)"}
}

// descendantFinder finds nodes matching 'matching' that are descendants
// of nodes matching 'of'.
type descendantFinder struct {
	of       Finder
	matching Finder
}

func (f *descendantFinder) Evaluate(root *core.RenderedNode) []*core.RenderedNode {
	var results []*core.RenderedNode
	seen := make(map[*core.RenderedNode]bool)
	for _, ancestor := range f.of.Evaluate(root) {
		// Search within each ancestor's subtree, skipping the ancestor itself
		visitChildren(ancestor, func(child *core.RenderedNode) {
			for _, match := range f.matching.Evaluate(child) {
				if !seen[match] {
					seen[match] = true
					results = append(results, match)
				}
			}
		})
	}
	return results
}

func (f *descendantFinder) Description() string {
	return fmt.Sprintf("Descendant(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Descendant returns a finder that matches nodes satisfying 'matching'
// that are descendants of nodes matching 'of'.
func Descendant(of, matching Finder) Finder {
	return &descendantFinder{of: of, matching: matching}
}

// ancestorFinder finds nodes matching 'matching' that are ancestors of
// nodes matching 'of'.
type ancestorFinder struct {
	of       Finder
	matching Finder
}

func (f *ancestorFinder) Evaluate(root *core.RenderedNode) []*core.RenderedNode {
	descendants := f.of.Evaluate(root)
	if len(descendants) == 0 {
		return nil
	}
	var results []*core.RenderedNode
	for _, candidate := range f.matching.Evaluate(root) {
		for _, desc := range descendants {
			if candidate != desc && isAncestorOf(candidate, desc) {
				results = append(results, candidate)
				break
			}
		}
	}
	return results
}

func (f *ancestorFinder) Description() string {
	return fmt.Sprintf("Ancestor(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Ancestor returns a finder that matches nodes satisfying 'matching'
// that are ancestors of nodes matching 'of'.
func Ancestor(of, matching Finder) Finder {
	return &ancestorFinder{of: of, matching: matching}
}

// isAncestorOf returns true if ancestor contains descendant in its subtree.
func isAncestorOf(ancestor, descendant *core.RenderedNode) bool {
	found := false
	ancestor.Walk(func(n *core.RenderedNode) bool {
		if n == descendant {
			found = true
			return false
		}
		return true
	})
	return found
}

// collectMatches performs depth-first pre-order traversal, collecting
// nodes that satisfy the predicate.
func collectMatches(root *core.RenderedNode, predicate func(*core.RenderedNode) bool) []*core.RenderedNode {
	var results []*core.RenderedNode
	root.Walk(func(n *core.RenderedNode) bool {
		if predicate(n) {
			results = append(results, n)
		}
		return true
	})
	return results
}

// visitChildren calls visit for each node nested directly in the props of
// parent, in sorted prop order.
func visitChildren(parent *core.RenderedNode, visit func(*core.RenderedNode)) {
	var walk func(value any)
	walk = func(value any) {
		switch v := value.(type) {
		case *core.RenderedNode:
			visit(v)
		case core.Props:
			for _, key := range slices.Sorted(maps.Keys(v)) {
				walk(v[key])
			}
		case map[string]any:
			walk(core.Props(v))
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	walk(parent.Props)
}
