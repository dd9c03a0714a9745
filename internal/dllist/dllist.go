// Package dllist implements an intrusive, circular, doubly-linked list with
// stable handles, giving O(1) insertion, removal, and safe self-removing
// iteration. It backs every dependent-callback and cleanup-action list in
// the engine: cell subscriber lists, timestamp cleanup chains, and the
// scheduler's per-reader subscription bookkeeping.
package dllist

// List is a circular, sentinel-headed doubly-linked list of values of type
// T. The zero value is not usable; construct with [New].
type List[T any] struct {
	sentinel Handle[T]
}

// Handle is a stable reference to a single element of a [List]. Handles
// remain valid (aside from Remove) for as long as the owning List is alive;
// in particular, a Handle is not invalidated by insertions or removals of
// other elements.
type Handle[T any] struct {
	prev, next *Handle[T]
	list       *List[T]
	value      T
}

// New creates an empty list.
func New[T any]() *List[T] {
	l := &List[T]{}
	l.sentinel.prev = &l.sentinel
	l.sentinel.next = &l.sentinel
	l.sentinel.list = l
	return l
}

// IsEmpty reports whether the list has no elements.
func (l *List[T]) IsEmpty() bool {
	return l.sentinel.next == &l.sentinel
}

// PushBack inserts v at the end of the list and returns its handle.
func (l *List[T]) PushBack(v T) *Handle[T] {
	return insertBefore(&l.sentinel, v)
}

// PushFront inserts v at the start of the list and returns its handle.
func (l *List[T]) PushFront(v T) *Handle[T] {
	return insertAfter(&l.sentinel, v)
}

// InsertAfter inserts v immediately after h and returns its handle. h must
// belong to this list (or be a handle previously returned by this list).
func (l *List[T]) InsertAfter(h *Handle[T], v T) *Handle[T] {
	return insertAfter(h, v)
}

func insertAfter[T any](at *Handle[T], v T) *Handle[T] {
	h := &Handle[T]{value: v, list: at.list, prev: at, next: at.next}
	at.next.prev = h
	at.next = h
	return h
}

func insertBefore[T any](at *Handle[T], v T) *Handle[T] {
	return insertAfter(at.prev, v)
}

// Remove detaches h from its list. It is idempotent: removing an
// already-removed handle is a no-op.
func (h *Handle[T]) Remove() {
	if h.list == nil {
		return
	}
	h.prev.next = h.next
	h.next.prev = h.prev
	h.prev = nil
	h.next = nil
	h.list = nil
}

// Value returns the handle's payload.
func (h *Handle[T]) Value() T {
	return h.value
}

// Next returns the handle immediately following h, or nil if h is the last
// element (or already removed).
func (h *Handle[T]) Next() *Handle[T] {
	if h.list == nil || h.next == &h.list.sentinel {
		return nil
	}
	return h.next
}

// Prev returns the handle immediately preceding h, or nil if h is the first
// element (or already removed).
func (h *Handle[T]) Prev() *Handle[T] {
	if h.list == nil || h.prev == &h.list.sentinel {
		return nil
	}
	return h.prev
}

// Each calls f with every element currently in the list, from front to
// back. f may remove its own handle (or any other live handle) during
// iteration: the next node is captured before f runs, so self-removal and
// removal of not-yet-visited nodes are both safe. Returning false from f
// stops iteration early.
func (l *List[T]) Each(f func(v T) bool) {
	cur := l.sentinel.next
	for cur != &l.sentinel {
		next := cur.next
		if !f(cur.value) {
			return
		}
		cur = next
	}
}

// Len counts the elements in the list. O(n); intended for tests and
// diagnostics, not hot paths.
func (l *List[T]) Len() int {
	n := 0
	l.Each(func(T) bool { n++; return true })
	return n
}
