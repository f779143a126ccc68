package testing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/document"
)

// ErrSettleTimeout is returned when PumpAndSettle or PumpUntil exceeds its
// timeout.
var ErrSettleTimeout = errors.New("PumpAndSettle timed out: tree did not settle")

// ErrNotMounted is returned when pumping before Mount.
var ErrNotMounted = errors.New("no element mounted")

// pollInterval is how often PumpAndSettle and PumpUntil check for
// invalidations that arrive from other goroutines.
const pollInterval = 5 * time.Millisecond

// RenderTester renders an element tree synchronously for tests. It drives
// the same passes as a RenderOwner, but only when the test asks for them.
type RenderTester struct {
	ctx      context.Context
	element  core.Element
	root     *core.Context
	renderer *core.Renderer
	last     *core.RenderedNode
	passes   int
	env      core.Environment
}

// NewRenderTester creates a tester. Call Cleanup() when done, or use
// NewRenderTesterWithT() instead.
func NewRenderTester() *RenderTester {
	return &RenderTester{ctx: context.Background()}
}

// NewRenderTesterWithT creates a tester that auto-cleans up via t.Cleanup().
// This is the recommended constructor for tests.
func NewRenderTesterWithT(t *testing.T) *RenderTester {
	tester := NewRenderTester()
	t.Cleanup(tester.Cleanup)
	return tester
}

// SetEnvironment sets the ambient environment of trees mounted afterwards.
func (t *RenderTester) SetEnvironment(env core.Environment) {
	t.env = env
}

// Cleanup disposes the mounted tree.
func (t *RenderTester) Cleanup() {
	if t.root != nil {
		t.root.Dispose()
		t.root = nil
		t.renderer = nil
		t.last = nil
	}
}

// Mount disposes any previously mounted tree and renders element into a
// new one.
func (t *RenderTester) Mount(element core.Element) error {
	t.Cleanup()
	var opts []core.RootOption
	if t.env != nil {
		opts = append(opts, core.WithEnvironment(t.env))
	}
	t.element = element
	t.root = core.NewRootContext(opts...)
	t.renderer = core.NewRenderer(t.root)
	t.passes = 0
	return t.render()
}

// Pump renders the mounted element if the tree is dirty.
func (t *RenderTester) Pump() error {
	if t.root == nil {
		return ErrNotMounted
	}
	if !t.root.IsDirty() {
		return nil
	}
	return t.render()
}

// Rerender renders the mounted element whether or not the tree is dirty.
func (t *RenderTester) Rerender() error {
	if t.root == nil {
		return ErrNotMounted
	}
	return t.render()
}

func (t *RenderTester) render() error {
	node, err := t.renderer.Render(t.ctx, t.element)
	if err != nil {
		return err
	}
	t.last = node
	t.passes++
	return nil
}

// PumpAndSettle pumps until the tree stays clean for one poll interval or
// the timeout is reached. Returns ErrSettleTimeout if the tree keeps being
// invalidated.
func (t *RenderTester) PumpAndSettle(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := t.Pump(); err != nil {
			return err
		}
		time.Sleep(pollInterval)
		if !t.root.IsDirty() {
			return nil
		}
	}
	return ErrSettleTimeout
}

// PumpUntil pumps until finder matches at least one node or the timeout
// is reached.
func (t *RenderTester) PumpUntil(finder Finder, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := t.Pump(); err != nil {
			return err
		}
		if t.Find(finder).Exists() {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s", ErrSettleTimeout, finder.Description())
		}
		time.Sleep(pollInterval)
	}
}

// Root returns the root context of the mounted tree.
func (t *RenderTester) Root() *core.Context {
	return t.root
}

// Tree returns the most recently rendered tree.
func (t *RenderTester) Tree() *core.RenderedNode {
	return t.last
}

// Passes returns the number of successful passes since Mount.
func (t *RenderTester) Passes() int {
	return t.passes
}

// Find evaluates a finder against the most recently rendered tree.
func (t *RenderTester) Find(finder Finder) FinderResult {
	if t.last == nil {
		return FinderResult{finder: finder}
	}
	return FinderResult{
		nodes:  finder.Evaluate(t.last),
		finder: finder,
	}
}

// Invoke calls the callback stored under prop of the first node matched
// by finder, with args as the client would send them.
func (t *RenderTester) Invoke(finder Finder, prop string, args ...any) error {
	result := t.Find(finder)
	node := result.FirstOrNil()
	if node == nil {
		return fmt.Errorf("invoke %s: no node found by %s", prop, finder.Description())
	}
	fn, ok := node.Props[prop]
	if !ok || fn == nil {
		return fmt.Errorf("invoke %s: %s has no such prop", prop, node.Name)
	}
	return document.Invoke(fn, args)
}

// Press invokes the onPress callback of the first node matched by finder.
func (t *RenderTester) Press(finder Finder) error {
	return t.Invoke(finder, "onPress")
}
