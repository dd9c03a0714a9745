package reactor

import "container/heap"

// schedEntry is a single pending-reader slot in the scheduler's priority
// queue, keyed by the reader's recorded start timestamp.
type schedEntry struct {
	start  *timestamp
	reader *Reader
}

// readerHeap is a min-heap of schedEntry, implementing heap.Interface as a
// plain slice with the five required methods, Less delegating to the
// owning scheduler's comparison rule instead of a direct field compare.
type readerHeap struct {
	entries []schedEntry
	tl      *Timeline
}

func (h *readerHeap) Len() int { return len(h.entries) }

// Less orders entries by start timestamp: a spliced-out start sorts before
// a live one (so stale entries surface and get discarded quickly), and two
// spliced-out starts compare equal.
func (h *readerHeap) Less(i, j int) bool {
	a, b := h.entries[i].start, h.entries[j].start
	aSpliced, bSpliced := h.tl.IsSplicedOut(a), h.tl.IsSplicedOut(b)
	switch {
	case aSpliced && bSpliced:
		return false
	case aSpliced:
		return true
	case bSpliced:
		return false
	default:
		return h.tl.Compare(a, b) < 0
	}
}

func (h *readerHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *readerHeap) Push(x any) {
	h.entries = append(h.entries, x.(schedEntry))
}

func (h *readerHeap) Pop() any {
	old := h.entries
	n := len(old)
	x := old[n-1]
	h.entries = old[:n-1]
	return x
}

// scheduler is the change-propagation priority queue: a min-heap of pending
// readers ordered by start timestamp. Duplicate entries for the same
// reader are permitted; when propagate pops a reader it also drops every
// other entry for that reader still queued, so the duplicates are
// discarded without re-running the body.
type scheduler struct {
	h *readerHeap
}

func newScheduler(tl *Timeline) *scheduler {
	return &scheduler{h: &readerHeap{tl: tl}}
}

// Add enqueues r, to be run once its recorded start becomes the queue's
// minimum (and is not spliced out).
func (s *scheduler) Add(r *Reader) {
	heap.Push(s.h, schedEntry{start: r.start, reader: r})
}

// IsEmpty reports whether the queue has no entries.
func (s *scheduler) IsEmpty() bool { return s.h.Len() == 0 }

// Len returns the number of entries currently queued, including any
// stale (spliced-out) duplicates not yet discarded by a pop.
func (s *scheduler) Len() int { return s.h.Len() }

// FindMin returns the minimum entry without removing it. ok is false if the
// queue is empty.
func (s *scheduler) FindMin() (r *Reader, ok bool) {
	if s.h.Len() == 0 {
		return nil, false
	}
	return s.h.entries[0].reader, true
}

// RemoveMin removes and returns the minimum entry. ok is false if the queue
// is empty.
func (s *scheduler) RemoveMin() (r *Reader, ok bool) {
	if s.h.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(s.h).(schedEntry)
	return e.reader, true
}
