package stream

import "sync"

// Reorderer applies messages in (epoch, revision) order on the consumer
// side. Messages of one epoch are applied strictly by increasing revision,
// starting at revision 0; early arrivals are buffered until the gap is
// filled. A message of a newer epoch discards everything buffered for
// older epochs, and messages of superseded epochs are dropped.
type Reorderer struct {
	apply func(Message)

	mu      sync.Mutex
	started bool
	epoch   uint64
	next    uint64
	pending map[uint64]Message
}

// NewReorderer returns a reorderer that hands in-order messages to apply.
// apply is called with the reorderer's lock held, one message at a time.
func NewReorderer(apply func(Message)) *Reorderer {
	return &Reorderer{apply: apply, pending: make(map[uint64]Message)}
}

// Push accepts one message and applies every message that became
// applicable. It returns the number of messages applied.
func (r *Reorderer) Push(msg Message) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case !r.started || msg.Epoch > r.epoch:
		r.started = true
		r.epoch = msg.Epoch
		r.next = 0
		clear(r.pending)
	case msg.Epoch < r.epoch:
		staleDropped.Inc()
		return 0
	}
	if msg.Revision < r.next {
		// Duplicate delivery.
		return 0
	}
	r.pending[msg.Revision] = msg

	applied := 0
	for {
		next, ok := r.pending[r.next]
		if !ok {
			return applied
		}
		delete(r.pending, r.next)
		r.next++
		r.apply(next)
		applied++
	}
}

// Epoch returns the current epoch and the next expected revision.
func (r *Reorderer) Epoch() (epoch, next uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch, r.next
}

// Pending returns the number of buffered messages.
func (r *Reorderer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
