package ast

import "sync/atomic"

// ID is the identity of an AST node. Side tables (annotations, hints,
// diagnostics) key on it.
type ID uint64

// NoID marks a node that was never numbered.
const NoID ID = 0

func (id ID) IsValid() bool { return id != NoID }

// segmentShift sizes the per-file id ranges handed out by Segment.
const segmentShift = 40

// IDProvider hands out monotonically increasing ids. Copies share the same
// counter, so every producer that draws from a cloned provider continues the
// same sequence.
type IDProvider struct {
	next *atomic.Uint64
}

// NewIDProvider returns a provider whose first id is 1.
func NewIDProvider() IDProvider {
	return NewIDProviderFrom(1)
}

// NewIDProviderFrom returns a provider whose first id is start.
func NewIDProviderFrom(start uint64) IDProvider {
	p := IDProvider{next: new(atomic.Uint64)}
	p.next.Store(start)
	return p
}

// Next allocates a fresh id.
func (p IDProvider) Next() ID {
	return ID(p.next.Add(1) - 1)
}

// Clone returns a provider that shares this provider's counter.
func (p IDProvider) Clone() IDProvider {
	return p
}

// Peek returns the id the next call to Next would hand out.
func (p IDProvider) Peek() ID {
	return ID(p.next.Load())
}

// Segment returns an independent provider for the n-th worker. Segments
// never overlap with each other nor with the base range [1, 1<<40).
func Segment(n int) IDProvider {
	return NewIDProviderFrom(uint64(n+1) << segmentShift)
}
