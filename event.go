package reactor

import "github.com/joeycumines/go-reactor/internal/dllist"

// Event is a push-only occurrence stream: unlike Cell it has no state,
// only dependents, and sends are transient — each send either never
// occurs, or occurs once with a value, observed by whatever is currently
// subscribed. subscribeEvent is unexported so Event, like Cell, can only be
// implemented within this package.
type Event[V any] interface {
	subscribeEvent(cb func(Result[V])) (unsubscribe func())
}

// eventNode is the concrete Event behind MakeEvent and every derived event
// combinator (Merge/Map/Filter/Collect/Changes/WhenTrue).
type eventNode[V any] struct {
	eng  *Engine
	deps *dllist.List[func(Result[V])]
}

func newEventNode[V any](eng *Engine) *eventNode[V] {
	return &eventNode[V]{eng: eng, deps: dllist.New[func(Result[V])]()}
}

func (e *eventNode[V]) subscribeEvent(cb func(Result[V])) func() {
	h := e.deps.PushBack(cb)
	return func() { h.Remove() }
}

// fire dispatches r to every current dependent synchronously, in
// subscription order. Each dependent runs under the engine's panic
// recovery, same as a cell's dispatch — one misbehaving handler does not
// stop the rest from seeing the occurrence.
func (e *eventNode[V]) fire(r Result[V]) {
	e.deps.Each(func(cb func(Result[V])) bool {
		e.eng.protect("event", func() { cb(r) })
		return true
	})
}

// neverEvent is the identity element for Merge: an event with no
// dependents that never fires.
type neverEvent[V any] struct{}

func (neverEvent[V]) subscribeEvent(func(Result[V])) func() { return func() {} }

// Never returns the event that never fires.
func Never[V any]() Event[V] { return neverEvent[V]{} }

// Sender is the write side of an event, returned alongside its Event by
// MakeEvent.
type Sender[V any] struct {
	node *eventNode[V]
}

// Send enqueues v as a successful occurrence.
func (s Sender[V]) Send(v V) { s.enqueue(Ok(v)) }

// SendExn enqueues err as a failed occurrence.
func (s Sender[V]) SendExn(err error) { s.enqueue(Failed[V](err)) }

// SendResult enqueues an arbitrary Result as an occurrence.
func (s Sender[V]) SendResult(r Result[V]) { s.enqueue(r) }

func (s Sender[V]) enqueue(r Result[V]) {
	s.node.eng.enqueueSend(func() { s.node.fire(r) })
}

// MakeEvent creates a fresh Event and its Sender.
func MakeEvent[V any](eng *Engine) (Event[V], Sender[V]) {
	node := newEventNode[V](eng)
	return node, Sender[V]{node: node}
}

// enqueueSend implements the event layer's process-wide FIFO dispatch loop:
// each queued send fires all current dependents synchronously, then
// Propagate runs, before the next queued send is drained. The
// "running" flag makes this re-entrant-safe: a send issued from within a
// dependent's callback (a nested send) is appended and the call returns
// immediately — the outer loop picks it up on its next iteration.
func (eng *Engine) enqueueSend(f func()) {
	eng.eventQueue = append(eng.eventQueue, f)
	if eng.eventRunning {
		return
	}
	eng.eventRunning = true
	defer func() { eng.eventRunning = false }()
	for len(eng.eventQueue) > 0 {
		next := eng.eventQueue[0]
		eng.eventQueue = eng.eventQueue[1:]
		next()
		_ = eng.Propagate()
	}
}

// Merge forwards every result from any input event.
func Merge[V any](eng *Engine, es ...Event[V]) Event[V] {
	out := newEventNode[V](eng)
	for _, e := range es {
		unsub := e.subscribeEvent(func(r Result[V]) { out.fire(r) })
		eng.Cleanup(unsub)
	}
	return out
}

// Map forwards Value(f v), or Fail(err) if f panics.
func Map[V, U any](eng *Engine, e Event[V], f func(V) U) Event[U] {
	out := newEventNode[U](eng)
	unsub := e.subscribeEvent(func(r Result[V]) {
		if r.Fail != nil {
			out.fire(Failed[U](r.Fail))
			return
		}
		out.fire(applyPlainFunc(f, r.Value))
	})
	eng.Cleanup(unsub)
	return out
}

// Filter forwards values for which p holds; Fail results always pass
// through.
func Filter[V any](eng *Engine, e Event[V], p func(V) bool) Event[V] {
	out := newEventNode[V](eng)
	unsub := e.subscribeEvent(func(r Result[V]) {
		if r.Fail != nil {
			out.fire(r)
			return
		}
		if p(r.Value) {
			out.fire(r)
		}
	})
	eng.Cleanup(unsub)
	return out
}

// Collect folds e's values through f starting at init, forwarding each new
// accumulator. Once the accumulator is Fail (because f panicked, or an
// input itself was Fail), further inputs are dropped.
func Collect[V, A any](eng *Engine, e Event[V], init A, f func(A, V) A) Event[A] {
	out := newEventNode[A](eng)
	acc := Ok(init)
	unsub := e.subscribeEvent(func(r Result[V]) {
		if acc.Fail != nil {
			return
		}
		if r.Fail != nil {
			acc = Failed[A](r.Fail)
			out.fire(acc)
			return
		}
		acc = applyFold(f, acc.Value, r.Value)
		out.fire(acc)
	})
	eng.Cleanup(unsub)
	return out
}

func applyFold[A, V any](f func(A, V) A, a A, v V) (result Result[A]) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Failed[A](asError(rec, "event"))
		}
	}()
	return Ok(f(a, v))
}

// Hold returns a cell whose state starts at init and follows e's latest
// result.
func Hold[V any](eng *Engine, e Event[V], init V) Cell[V] {
	cell, w := newBoundCell[V](eng, nil, defaultValueEq[V])
	w.WriteResult(Ok(init))
	unsub := e.subscribeEvent(func(r Result[V]) { w.WriteResult(r) })
	eng.Cleanup(unsub)
	return cell
}

// Changes returns an event that fires each time b's state changes (after
// its own Eq filtering) — b.subscribe already only dispatches on a
// genuine change, so Changes needs no filtering of its own.
func Changes[V any](eng *Engine, b Cell[V]) Event[V] {
	out := newEventNode[V](eng)
	unsub := b.subscribe(func(r Result[V]) { out.fire(r) })
	eng.Cleanup(unsub)
	return out
}

// Unit is the payload of WhenTrue's event: a transition carries no data of
// its own.
type Unit struct{}

// WhenTrue returns a Unit event that fires on each transition of b to
// true.
func WhenTrue(eng *Engine, b Cell[bool]) Event[Unit] {
	out := newEventNode[Unit](eng)
	unsub := b.subscribe(func(r Result[bool]) {
		if r.Fail == nil && r.Value {
			out.fire(Ok(Unit{}))
		}
	})
	eng.Cleanup(unsub)
	return out
}

// Count returns a cell counting every occurrence (success or failure) e
// has produced so far.
func Count[V any](eng *Engine, e Event[V]) Cell[int] {
	cell, w := newBoundCell[int](eng, nil, defaultValueEq[int])
	w.Write(0)
	n := 0
	unsub := e.subscribeEvent(func(Result[V]) {
		n++
		w.Write(n)
	})
	eng.Cleanup(unsub)
	return cell
}

// NotifyE subscribes f to every successful occurrence of e, returning a
// cancel handle. There is no notifyNow parameter here (unlike Notify): an
// immediate synchronous fire is a cell-layer concept — an event has no
// current state to fire immediately.
func NotifyE[V any](e Event[V], f func(V)) CancelFunc {
	return NotifyResultE(e, func(r Result[V]) {
		if r.Fail == nil {
			f(r.Value)
		}
	})
}

// NotifyResultE subscribes f to every occurrence (success or failure) of
// e, returning a cancel handle.
func NotifyResultE[V any](e Event[V], f func(Result[V])) CancelFunc {
	unsub := e.subscribeEvent(f)
	cancelled := false
	return func() {
		if cancelled {
			return
		}
		cancelled = true
		unsub()
	}
}

// MakeCell creates a changeable cell seeded with v, returning it alongside
// a plain setter function rather than a full [Writer] — a narrower
// convenience API for callers who only ever write successful values and
// never need Clear or
// WriteExn.
func MakeCell[V any](eng *Engine, v V) (Cell[V], func(V)) {
	cell, w := MakeChangeable[V](eng, WithInitial(v))
	return cell, w.Write
}

// Switch flattens a cell-of-cells into a single cell that always mirrors
// whichever inner cell x currently holds, re-subscribing whenever x itself
// changes. Equivalent to Bind(eng, x, identity).
func Switch[V any](eng *Engine, x Cell[Cell[V]]) Cell[V] {
	return Bind(eng, x, func(inner Cell[V]) Cell[V] { return inner })
}
