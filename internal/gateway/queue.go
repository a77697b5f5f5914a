// ABOUTME: Bounded per-connection FIFO for one-way streams with drop-oldest overflow
// ABOUTME: Drain hands envelopes to a sink in order and stops cleanly on backpressure

package gateway

// OutboundQueue is the bounded FIFO of pending envelopes for a one-way
// connection. When full, enqueuing evicts the oldest entry first, giving
// at-most-last-N delivery semantics.
type OutboundQueue struct {
	max     int
	entries []*Envelope
	dropped uint64
}

// NewOutboundQueue creates a queue holding at most max envelopes.
func NewOutboundQueue(max int) *OutboundQueue {
	return &OutboundQueue{max: max}
}

// Enqueue appends an envelope, evicting the oldest entry if the queue is at
// capacity. Overflow is non-fatal and signals nothing to sender or recipient.
func (q *OutboundQueue) Enqueue(env *Envelope) {
	if len(q.entries) >= q.max {
		q.entries = q.entries[1:]
		q.dropped++
	}
	q.entries = append(q.entries, env)
}

// DrainSink receives envelopes in FIFO order. Returning accepted=false
// signals transient backpressure: the envelope and everything after it stay
// queued for a later attempt. A non-nil error signals a dead stream.
type DrainSink func(env *Envelope) (accepted bool, err error)

// Drain hands every queued envelope to sink in order. On rejection it stops
// and keeps the rejected envelope and its successors queued; partial drains
// never reorder or duplicate entries. On error the queue is left as-is and
// the error is returned for the caller's eviction path.
func (q *OutboundQueue) Drain(sink DrainSink) error {
	delivered := 0
	for _, env := range q.entries {
		accepted, err := sink(env)
		if err != nil {
			q.entries = q.entries[delivered:]
			return err
		}
		if !accepted {
			break
		}
		delivered++
	}
	q.entries = q.entries[delivered:]
	return nil
}

// Len returns the number of envelopes currently queued.
func (q *OutboundQueue) Len() int {
	return len(q.entries)
}

// Dropped returns how many envelopes overflow has evicted so far.
func (q *OutboundQueue) Dropped() uint64 {
	return q.dropped
}
