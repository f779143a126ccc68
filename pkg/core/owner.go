package core

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RenderOwner drives passes of one element over its own context tree.
// Invalidations anywhere in the tree schedule a pass; requests that arrive
// while a pass is pending are coalesced, and Run paces passes with a rate
// limiter so bursts of state changes produce few renders.
type RenderOwner struct {
	element  Element
	root     *Context
	renderer *Renderer
	limiter  *rate.Limiter

	// onRendered is called after every pass, successful or not.
	onRendered func(node *RenderedNode, err error)

	requests chan struct{}

	// flushMu is held across a pass and its OnRendered call, so results
	// are recorded and delivered in render order.
	flushMu sync.Mutex

	mu      sync.Mutex
	last    *RenderedNode
	lastErr error
}

// OwnerOption configures a RenderOwner.
type OwnerOption func(*ownerConfig)

type ownerConfig struct {
	limit      rate.Limit
	burst      int
	env        Environment
	onRendered func(*RenderedNode, error)
}

// WithRateLimit limits scheduled passes to limit per second with the
// given burst. The default is unlimited.
func WithRateLimit(limit rate.Limit, burst int) OwnerOption {
	return func(c *ownerConfig) {
		c.limit = limit
		c.burst = burst
	}
}

// WithOwnerEnvironment sets the ambient environment of the owned tree.
func WithOwnerEnvironment(env Environment) OwnerOption {
	return func(c *ownerConfig) {
		c.env = env
	}
}

// WithOnRendered sets the function called with the outcome of each pass.
func WithOnRendered(fn func(node *RenderedNode, err error)) OwnerOption {
	return func(c *ownerConfig) {
		c.onRendered = fn
	}
}

// NewRenderOwner creates an owner for element. No pass runs until Flush
// or Run is called.
func NewRenderOwner(element Element, opts ...OwnerOption) *RenderOwner {
	cfg := ownerConfig{limit: rate.Inf}
	for _, opt := range opts {
		opt(&cfg)
	}
	o := &RenderOwner{
		element:    element,
		limiter:    rate.NewLimiter(cfg.limit, max(cfg.burst, 1)),
		onRendered: cfg.onRendered,
		requests:   make(chan struct{}, 1),
	}
	rootOpts := []RootOption{WithInvalidate(o.ScheduleRender)}
	if cfg.env != nil {
		rootOpts = append(rootOpts, WithEnvironment(cfg.env))
	}
	o.root = NewRootContext(rootOpts...)
	o.renderer = NewRenderer(o.root)
	o.ScheduleRender()
	return o
}

// Root returns the root of the owned tree.
func (o *RenderOwner) Root() *Context {
	return o.root
}

// ScheduleRender requests a pass. It never blocks.
func (o *RenderOwner) ScheduleRender() {
	select {
	case o.requests <- struct{}{}:
	default:
	}
}

// Flush runs a pass if the tree is dirty and returns the latest rendered
// tree. A clean tree returns the previous result without rendering.
// Concurrent callers are serialized.
func (o *RenderOwner) Flush(ctx context.Context) (*RenderedNode, error) {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()
	if !o.root.IsDirty() {
		return o.Last()
	}
	node, err := o.renderer.Render(ctx, o.element)

	o.mu.Lock()
	if err == nil {
		o.last = node
	}
	o.lastErr = err
	o.mu.Unlock()

	if o.onRendered != nil {
		o.onRendered(node, err)
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Last returns the most recent successfully rendered tree and the error
// of the most recent pass, if it failed.
func (o *RenderOwner) Last() (*RenderedNode, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.lastErr
}

// Run processes scheduled passes until ctx is done or the tree is
// disposed. Failed passes are reported through the error handler and
// OnRendered; they do not stop the loop.
func (o *RenderOwner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.requests:
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
		if o.root.IsDisposed() {
			return ErrDisposed
		}
		_, _ = o.Flush(ctx)
	}
}

// Dispose tears down the owned tree.
func (o *RenderOwner) Dispose() {
	o.root.Dispose()
}
