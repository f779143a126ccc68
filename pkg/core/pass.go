package core

import (
	"github.com/go-drift/driftui/pkg/errors"
)

// pass journals one render pass so it can be applied or undone as a
// whole. Nothing observable changes until commit: pending state stays
// pending, stale children stay mounted and effects stay queued.
type pass struct {
	touched []Slot
	opened  []*Context
	closed  []*Context
	effects []*effectSlot

	failedAt []string
}

func (p *pass) touch(slot Slot) {
	p.touched = append(p.touched, slot)
}

func (p *pass) queueEffect(slot *effectSlot) {
	p.effects = append(p.effects, slot)
}

// fail records the innermost context that did not close normally.
func (p *pass) fail(c *Context) {
	if p.failedAt == nil {
		p.failedAt = c.Path()
	}
}

func (p *pass) commit() {
	for _, slot := range p.touched {
		if c, ok := slot.(interface{ Commit() }); ok {
			c.Commit()
		}
	}
	// Parents close after their children, so walk backwards to prune from
	// the top of the tree down.
	for i := len(p.closed) - 1; i >= 0; i-- {
		p.closed[i].finish()
	}
}

func (p *pass) rollback() {
	for _, slot := range p.touched {
		if r, ok := slot.(interface{ Rollback() }); ok {
			r.Rollback()
		}
	}
	for i := len(p.opened) - 1; i >= 0; i-- {
		p.opened[i].abandon()
	}
}

// runEffects runs the effects staged by a committed pass in call order.
func (p *pass) runEffects() {
	for _, slot := range p.effects {
		func() {
			defer errors.Recover("core.effect")
			slot.run()
		}()
		effectsRun.Inc()
	}
}
