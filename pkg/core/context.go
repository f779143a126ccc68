package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-drift/driftui/pkg/errors"
)

// Slot is one cell of per-context hook state. Slots are created by
// [Context.NextSlot] in call order and must be requested in the same
// order, with the same kind, on every pass over the context.
//
// A slot may also implement any of:
//
//	Commit()   // the pass that touched the slot completed
//	Rollback() // the pass that touched the slot failed
//	Dispose()  // the owning context is being torn down
type Slot interface {
	Kind() string
}

// tree is the state shared by every context under one root.
type tree struct {
	onInvalidate func()
	env          Environment

	// passMu serializes render passes over the tree.
	passMu sync.Mutex
	pass   *pass
}

// Context is a persistent render scope. It gives hook state a stable
// identity across passes: the same key under the same parent resolves to
// the same Context for as long as the parent keeps visiting that key.
type Context struct {
	tree   *tree
	parent *Context
	key    string

	mu       sync.Mutex
	children map[string]*Context

	scope    Scope
	dirty    atomic.Bool
	disposed atomic.Bool

	// Mirrors of len(slots) and passes for readers outside the pass.
	slotCount   atomic.Int64
	renderCount atomic.Int64

	// Fields below are only touched by the goroutine running the pass.
	slots     []Slot
	passes    int
	isOpen    bool
	cursor    int
	baseSlots int
	visited   map[string]struct{}
	created   map[string]struct{}
	stale     []string
}

// RootOption configures a root context.
type RootOption func(*tree)

// WithInvalidate sets the function called whenever any context in the
// tree is invalidated. It may be called from any goroutine.
func WithInvalidate(fn func()) RootOption {
	return func(t *tree) {
		t.onInvalidate = fn
	}
}

// WithEnvironment sets the ambient environment captured by
// [UseExecutionContext] when no explicit environment is given.
func WithEnvironment(env Environment) RootOption {
	return func(t *tree) {
		t.env = env
	}
}

// NewRootContext creates the root of a context tree. The root starts
// dirty so that an owner knows a first pass is needed.
func NewRootContext(opts ...RootOption) *Context {
	t := &tree{}
	for _, opt := range opts {
		opt(t)
	}
	c := newContext(t, nil, "")
	c.dirty.Store(true)
	return c
}

func newContext(t *tree, parent *Context, key string) *Context {
	contextsCreated.Inc()
	return &Context{tree: t, parent: parent, key: key}
}

// Key returns the key of this context within its parent.
func (c *Context) Key() string {
	return c.key
}

// Parent returns the parent context, or nil for the root.
func (c *Context) Parent() *Context {
	return c.parent
}

// Path returns the keys from the root down to this context.
func (c *Context) Path() []string {
	var path []string
	for p := c; p != nil && p.parent != nil; p = p.parent {
		path = append(path, p.key)
	}
	slices.Reverse(path)
	return path
}

// String returns the path of the context.
func (c *Context) String() string {
	return fmt.Sprintf("Context(/%s)", strings.Join(c.Path(), "/"))
}

// Child returns the child context for key, creating and registering it on
// first use. While the context is open, the key is recorded as visited so
// that it survives the end of the pass.
func (c *Context) Child(key string) *Context {
	c.mu.Lock()
	child, ok := c.children[key]
	if !ok {
		if c.children == nil {
			c.children = make(map[string]*Context)
		}
		child = newContext(c.tree, c, key)
		c.children[key] = child
	}
	c.mu.Unlock()

	if c.isOpen {
		c.visited[key] = struct{}{}
		if !ok {
			c.created[key] = struct{}{}
		}
	}
	return child
}

// ChildKeys returns the keys of the current children in sorted order.
func (c *Context) ChildKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.children))
}

// Lookup follows path from this context without creating anything.
func (c *Context) Lookup(path ...string) (*Context, bool) {
	current := c
	for _, key := range path {
		current.mu.Lock()
		next, ok := current.children[key]
		current.mu.Unlock()
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// SlotCount returns the number of hook slots held by the context.
func (c *Context) SlotCount() int {
	return int(c.slotCount.Load())
}

// RenderCount returns the number of completed passes over the context.
func (c *Context) RenderCount() int {
	return int(c.renderCount.Load())
}

// IsDirty reports whether the context was invalidated since its last pass
// started.
func (c *Context) IsDirty() bool {
	return c.dirty.Load()
}

// IsDisposed reports whether the context has been torn down.
func (c *Context) IsDisposed() bool {
	return c.disposed.Load()
}

// Environment returns the ambient environment of the tree.
func (c *Context) Environment() Environment {
	if c.tree.env == nil {
		return noopEnvironment{}
	}
	return c.tree.env
}

// Manage ties release to the lifetime of the context. It runs when the
// context is torn down, or immediately if it already was.
func (c *Context) Manage(release func()) (unmanage func()) {
	return c.scope.Manage(release)
}

// Invalidate marks the context and all of its ancestors as needing a new
// pass and notifies the tree's invalidate handler. Safe to call from any
// goroutine; a no-op once the context is disposed.
func (c *Context) Invalidate() {
	if c.disposed.Load() {
		return
	}
	for p := c; p != nil; p = p.parent {
		p.dirty.Store(true)
	}
	invalidations.Inc()
	if fn := c.tree.onInvalidate; fn != nil {
		fn()
	}
}

// NextSlot returns the next hook slot in call order, creating it with init
// on first use. Requesting a slot whose kind differs from the one recorded
// at the same position panics with a [errors.ContractError].
func (c *Context) NextSlot(kind string, init func() Slot) Slot {
	if !c.isOpen {
		panic(&errors.ContractError{Path: c.Path(), Slot: c.cursor, Detail: "hook used outside of a render pass"})
	}
	index := c.cursor
	c.cursor++

	if index < len(c.slots) {
		slot := c.slots[index]
		if slot.Kind() != kind {
			panic(&errors.ContractError{Path: c.Path(), Slot: index, Expected: slot.Kind(), Actual: kind})
		}
		c.tree.pass.touch(slot)
		return slot
	}

	if DebugMode && c.passes > 0 {
		panic(&errors.ContractError{
			Path:   c.Path(),
			Slot:   index,
			Actual: kind,
			Detail: fmt.Sprintf("%s slot requested beyond the %d slots of the previous pass", kind, len(c.slots)),
		})
	}
	slot := init()
	c.slots = append(c.slots, slot)
	c.slotCount.Store(int64(len(c.slots)))
	c.tree.pass.touch(slot)
	return slot
}

// open starts a pass over the context. The returned function must be
// called exactly once; ok reports whether the pass body completed.
func (c *Context) open() (end func(ok bool)) {
	p := c.tree.pass
	if p == nil {
		panic(&errors.ContractError{Path: c.Path(), Detail: "context opened outside of a render pass"})
	}
	if c.isOpen {
		panic(&errors.ContractError{Path: c.Path(), Detail: "context opened twice in one pass"})
	}
	if c.disposed.Load() {
		panic(&errors.ContractError{Path: c.Path(), Detail: "render of a disposed context"})
	}
	c.isOpen = true
	c.dirty.Store(false)
	c.cursor = 0
	c.baseSlots = len(c.slots)
	c.visited = make(map[string]struct{})
	c.created = make(map[string]struct{})
	p.opened = append(p.opened, c)

	return func(ok bool) {
		c.isOpen = false
		if !ok {
			p.fail(c)
			return
		}
		if DebugMode && c.passes > 0 && c.cursor < len(c.slots) {
			p.fail(c)
			panic(&errors.ContractError{
				Path:   c.Path(),
				Slot:   c.cursor,
				Detail: fmt.Sprintf("%d slots requested, previous pass used %d", c.cursor, len(c.slots)),
			})
		}
		c.mu.Lock()
		for key := range c.children {
			if _, seen := c.visited[key]; !seen {
				c.stale = append(c.stale, key)
			}
		}
		c.mu.Unlock()
		p.closed = append(p.closed, c)
	}
}

// finish applies a completed pass: stale children are torn down.
func (c *Context) finish() {
	c.mu.Lock()
	stale := make([]*Context, 0, len(c.stale))
	for _, key := range c.stale {
		if child, ok := c.children[key]; ok {
			stale = append(stale, child)
			delete(c.children, key)
		}
	}
	c.mu.Unlock()

	for _, child := range stale {
		child.dispose()
	}
	c.passes++
	c.renderCount.Store(int64(c.passes))
	c.reset()
}

// abandon undoes a failed pass: slots appended during the pass are
// dropped and children created during the pass are torn down. Children
// that existed before the pass are kept.
func (c *Context) abandon() {
	if c.baseSlots < len(c.slots) {
		dropped := c.slots[c.baseSlots:]
		c.slots = c.slots[:c.baseSlots:c.baseSlots]
		c.slotCount.Store(int64(len(c.slots)))
		for i := len(dropped) - 1; i >= 0; i-- {
			disposeSlot(dropped[i])
		}
	}

	c.mu.Lock()
	created := make([]*Context, 0, len(c.created))
	for key := range c.created {
		if child, ok := c.children[key]; ok {
			created = append(created, child)
			delete(c.children, key)
		}
	}
	c.mu.Unlock()

	for _, child := range created {
		child.dispose()
	}
	c.isOpen = false
	c.dirty.Store(true)
	c.reset()
}

func (c *Context) reset() {
	c.visited = nil
	c.created = nil
	c.stale = nil
}

// Dispose tears down the context, its descendants, their hook slots and
// every resource managed by them. Disposing the root waits for an
// in-progress pass to finish.
func (c *Context) Dispose() {
	if c.parent == nil {
		c.tree.passMu.Lock()
		defer c.tree.passMu.Unlock()
	}
	c.dispose()
}

func (c *Context) dispose() {
	if !c.disposed.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	children := c.children
	c.children = nil
	c.mu.Unlock()

	for _, key := range slices.Sorted(maps.Keys(children)) {
		children[key].dispose()
	}
	for i := len(c.slots) - 1; i >= 0; i-- {
		disposeSlot(c.slots[i])
	}
	c.slots = nil
	c.slotCount.Store(0)
	c.scope.Release()
	contextsDisposed.Inc()
}

func disposeSlot(slot Slot) {
	if d, ok := slot.(interface{ Dispose() }); ok {
		func() {
			defer errors.Recover("core.disposeSlot")
			d.Dispose()
		}()
	}
}

