package core

import (
	"sync"

	"github.com/go-drift/driftui/pkg/errors"
)

// Slot kinds recorded by the built-in hooks.
const (
	KindState    = "state"
	KindMemo     = "memo"
	KindCallback = "callback"
	KindRef      = "ref"
	KindEffect   = "effect"
)

// slotAs returns the next slot as S. A slot of the right kind but a
// different Go type (the same hook called with another type parameter at
// the same position) is a contract violation.
func slotAs[S Slot](c *Context, kind string, init func() S) S {
	index := c.cursor
	slot := c.NextSlot(kind, func() Slot { return init() })
	typed, ok := slot.(S)
	if !ok {
		var want S
		panic(&errors.ContractError{Path: c.Path(), Slot: index, Expected: typeName(slot), Actual: typeName(want)})
	}
	return typed
}

// StateCell holds one piece of hook state. Writes may come from any
// goroutine; they are recorded as pending and become the current value
// when the next pass over the owning context completes.
type StateCell[T any] struct {
	ctx *Context
	set func(T)

	mu         sync.Mutex
	value      T
	pending    T
	hasPending bool
	version    uint64

	// staged is the value read by the pass in progress.
	staged        T
	stagedVersion uint64
	hasStaged     bool
}

func (s *StateCell[T]) Kind() string { return KindState }

// Value returns the committed value.
func (s *StateCell[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set records value as pending and invalidates the owning context.
func (s *StateCell[T]) Set(value T) {
	s.mu.Lock()
	s.pending = value
	s.hasPending = true
	s.version++
	s.mu.Unlock()
	s.ctx.Invalidate()
}

// Update applies transform to the latest value, pending or committed.
func (s *StateCell[T]) Update(transform func(T) T) {
	s.mu.Lock()
	current := s.value
	if s.hasPending {
		current = s.pending
	}
	s.pending = transform(current)
	s.hasPending = true
	s.version++
	s.mu.Unlock()
	s.ctx.Invalidate()
}

// read returns the value the current pass should see.
func (s *StateCell[T]) read() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasPending {
		s.staged = s.pending
		s.stagedVersion = s.version
		s.hasStaged = true
		return s.pending
	}
	return s.value
}

func (s *StateCell[T]) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasStaged {
		return
	}
	s.value = s.staged
	if s.version == s.stagedVersion {
		var zero T
		s.pending = zero
		s.hasPending = false
	}
	s.hasStaged = false
}

func (s *StateCell[T]) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.staged = zero
	s.hasStaged = false
}

// UseStateCell returns the state cell at the current position, created
// with init on the first pass.
func UseStateCell[T any](c *Context, init func() T) *StateCell[T] {
	cell := slotAs(c, KindState, func() *StateCell[T] {
		return newStateCell(c, init())
	})
	cell.read()
	return cell
}

func newStateCell[T any](c *Context, value T) *StateCell[T] {
	cell := &StateCell[T]{ctx: c, value: value}
	cell.set = cell.Set
	return cell
}

// UseState returns the current value of a state cell and a setter. The
// setter is stable across passes and safe to call from any goroutine.
func UseState[T any](c *Context, initial T) (T, func(T)) {
	return UseStateFunc(c, func() T { return initial })
}

// UseStateFunc is like UseState but computes the initial value lazily.
func UseStateFunc[T any](c *Context, init func() T) (T, func(T)) {
	cell := slotAs(c, KindState, func() *StateCell[T] {
		return newStateCell(c, init())
	})
	return cell.read(), cell.set
}

type memoSlot[T any] struct {
	kind  string
	value T
	deps  []any
	ready bool

	staged     T
	stagedDeps []any
	hasStaged  bool
}

func (m *memoSlot[T]) Kind() string { return m.kind }

func (m *memoSlot[T]) Commit() {
	if !m.hasStaged {
		return
	}
	m.value, m.deps, m.ready = m.staged, m.stagedDeps, true
	m.hasStaged = false
}

func (m *memoSlot[T]) Rollback() {
	var zero T
	m.staged, m.stagedDeps, m.hasStaged = zero, nil, false
}

func memoize[T any](c *Context, kind string, compute func() T, deps []any) T {
	slot := slotAs(c, kind, func() *memoSlot[T] {
		return &memoSlot[T]{kind: kind}
	})
	if slot.ready && deps != nil && DepsEqual(slot.deps, deps) {
		return slot.value
	}
	slot.staged = compute()
	slot.stagedDeps = append([]any(nil), deps...)
	slot.hasStaged = true
	return slot.staged
}

// UseMemo returns compute's result, recomputing it only when deps differ
// element-wise from the deps of the previous pass. Nil deps recompute on
// every pass.
func UseMemo[T any](c *Context, compute func() T, deps []any) T {
	return memoize(c, KindMemo, compute, deps)
}

// UseCallback returns fn as it was when deps last changed, so children
// comparing callbacks by identity see a stable value.
func UseCallback[F any](c *Context, fn F, deps []any) F {
	return memoize(c, KindCallback, func() F { return fn }, deps)
}

// Ref is a mutable cell whose identity never changes across passes.
// Writing to it does not trigger a pass.
type Ref[T any] struct {
	Current T
}

type refSlot[T any] struct {
	ref *Ref[T]
}

func (r *refSlot[T]) Kind() string { return KindRef }

// UseRef returns the ref at the current position, created holding
// initial on the first pass.
func UseRef[T any](c *Context, initial T) *Ref[T] {
	return slotAs(c, KindRef, func() *refSlot[T] {
		return &refSlot[T]{ref: &Ref[T]{Current: initial}}
	}).ref
}

type effectSlot struct {
	deps    []any
	ran     bool
	cleanup func()

	stagedEffect func() func()
	stagedDeps   []any
	hasStaged    bool
	scheduled    func() func()
}

func (e *effectSlot) Kind() string { return KindEffect }

func (e *effectSlot) Commit() {
	if !e.hasStaged {
		return
	}
	e.deps = e.stagedDeps
	e.scheduled = e.stagedEffect
	e.stagedEffect, e.stagedDeps, e.hasStaged = nil, nil, false
}

func (e *effectSlot) Rollback() {
	e.stagedEffect, e.stagedDeps, e.hasStaged = nil, nil, false
}

func (e *effectSlot) run() {
	effect := e.scheduled
	e.scheduled = nil
	if effect == nil {
		return
	}
	if e.cleanup != nil {
		cleanup := e.cleanup
		e.cleanup = nil
		cleanup()
	}
	e.ran = true
	e.cleanup = effect()
}

func (e *effectSlot) Dispose() {
	e.scheduled = nil
	if e.cleanup != nil {
		cleanup := e.cleanup
		e.cleanup = nil
		cleanup()
	}
}

// UseEffect schedules effect to run after the pass completes, on the
// first pass and whenever deps differ from the deps of its previous run.
// Nil deps run the effect after every pass. The cleanup returned by
// effect, if any, runs before the next run and when the context is torn
// down.
func UseEffect(c *Context, effect func() func(), deps []any) {
	slot := slotAs(c, KindEffect, func() *effectSlot { return &effectSlot{} })
	if slot.ran && deps != nil && DepsEqual(slot.deps, deps) {
		return
	}
	slot.stagedEffect = effect
	slot.stagedDeps = append([]any(nil), deps...)
	slot.hasStaged = true
	c.tree.pass.queueEffect(slot)
}
