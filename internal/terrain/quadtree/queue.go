package quadtree

import (
	"cmp"
	"slices"
	"sync/atomic"
)

// splitHost is the part of the tree the queue drives.
type splitHost interface {
	quad(id QuadID) *Quad
	startSplit(q *Quad)
}

// SplitQueue orders pending splits by level, then distance, and keeps at most
// limit of them in flight. In-flight splits stay at the head of the queue until
// they complete.
type SplitQueue struct {
	host  splitHost
	limit int
	items []QuadID
	stop  atomic.Bool
}

func newSplitQueue(host splitHost, limit int) *SplitQueue {
	return &SplitQueue{host: host, limit: max(limit, 1)}
}

// Update drops finished entries, sorts the pending ones and starts splits until
// limit are in flight. It reports whether the queue has work and is not stopped.
func (sq *SplitQueue) Update() bool {
	sq.purge()
	if len(sq.items) == 0 || sq.stop.Load() {
		return false
	}

	slices.SortStableFunc(sq.items, func(a, b QuadID) int {
		qa, qb := sq.host.quad(a), sq.host.quad(b)
		fa, fb := qa.state == Splitting, qb.state == Splitting
		if fa != fb {
			if fa {
				return -1
			}
			return 1
		}
		if fa {
			return 0
		}
		if c := cmp.Compare(qa.level, qb.level); c != 0 {
			return c
		}
		return cmp.Compare(qa.distance, qb.distance)
	})

	for _, id := range sq.items[:min(sq.limit, len(sq.items))] {
		if q := sq.host.quad(id); q.state == Leaf {
			sq.host.startSplit(q)
		}
	}
	return true
}

// purge removes released quads and quads whose split completed.
func (sq *SplitQueue) purge() {
	sq.items = slices.DeleteFunc(sq.items, func(id QuadID) bool {
		q := sq.host.quad(id)
		if q == nil {
			return true
		}
		if q.state == Split {
			q.inQueue = false
			return true
		}
		return false
	})
}

// Add queues q unless it is queued already or split.
func (sq *SplitQueue) Add(q *Quad) {
	if q.inQueue || q.state == Split {
		return
	}
	sq.items = append(sq.items, q.id)
	q.inQueue = true
}

// Remove drops q from the queue. A split in flight is not interrupted.
func (sq *SplitQueue) Remove(q *Quad) {
	if !q.inQueue || q.state == Splitting {
		return
	}
	if i := slices.Index(sq.items, q.id); i >= 0 {
		sq.items = slices.Delete(sq.items, i, i+1)
	}
	q.inQueue = false
}

// Stop pauses or resumes dequeuing. It is safe to call from any goroutine.
func (sq *SplitQueue) Stop(stop bool) { sq.stop.Store(stop) }

// Stopped reports whether dequeuing is paused.
func (sq *SplitQueue) Stopped() bool { return sq.stop.Load() }

// AnyCurrentlySplitting reports whether a split started by the queue is still
// generating meshes.
func (sq *SplitQueue) AnyCurrentlySplitting() bool {
	for _, id := range sq.items[:min(sq.limit, len(sq.items))] {
		if q := sq.host.quad(id); q != nil && q.state == Splitting {
			return true
		}
	}
	return false
}

// Len returns the number of queued quads, in flight included.
func (sq *SplitQueue) Len() int { return len(sq.items) }

// InFlight returns the number of queued quads currently splitting.
func (sq *SplitQueue) InFlight() int {
	n := 0
	for _, id := range sq.items {
		if q := sq.host.quad(id); q != nil && q.state == Splitting {
			n++
		}
	}
	return n
}
