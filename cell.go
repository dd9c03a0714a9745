package reactor

import (
	"reflect"

	"github.com/joeycumines/go-reactor/internal/dllist"
)

// Result is the outcome of a cell read: either a Value or a Fail, never
// both meaningfully at once.
type Result[V any] struct {
	Value V
	Fail  error
}

// Ok wraps v as a successful Result.
func Ok[V any](v V) Result[V] { return Result[V]{Value: v} }

// Failed wraps err as a failed Result.
func Failed[V any](err error) Result[V] { return Result[V]{Fail: err} }

// Eq is a user-supplied equality predicate over cell values, used to decide
// whether a write is a no-op.
type Eq[V any] func(a, b V) bool

// Cell is a read-only view over a changeable or constant node: changeable
// cells support subscription (used internally by Bind/connect), constant
// cells never notify. The subscribe method is unexported so Cell can only
// be implemented within this package — callers only ever hold one via
// MakeChangeable/MakeConstant.
type Cell[V any] interface {
	// ReadResult returns the cell's current Result without raising.
	ReadResult() Result[V]

	subscribe(cb func(Result[V])) (unsubscribe func())
}

// Writer is the mutation side of a changeable cell, returned alongside its
// Cell by MakeChangeable. Holding only the Cell half prevents a consumer
// from writing to a cell it merely depends on.
type Writer[V any] struct {
	cell *changeableCell[V]
}

// Write stores v (wrapped as a success Result), subject to the cell's Eq.
func (w Writer[V]) Write(v V) { w.cell.writeResult(Ok(v)) }

// WriteExn stores err as a failure, subject to the cell's Eq.
func (w Writer[V]) WriteExn(err error) { w.cell.writeResult(Failed[V](err)) }

// Clear resets the cell to its initial Failed(ErrUnset) state.
func (w Writer[V]) Clear() { w.cell.writeResult(Result[V]{Fail: ErrUnset}) }

// WriteResult stores r if it differs from the current Result under the
// cell's Eq, dispatching to every dependent callback on change. Errors
// raised by a dependent callback are routed to the engine's exception
// handler; they do not abort dispatch to the remaining callbacks.
func (w Writer[V]) WriteResult(r Result[V]) { w.cell.writeResult(r) }

// WriteResultNoEq stores r and dispatches unconditionally, skipping the Eq
// check. Used by connect, whose source cell already filtered via its own
// Eq before this write was triggered — applying Eq again here would
// double-filter against the wrong value.
func (w Writer[V]) WriteResultNoEq(r Result[V]) { w.cell.writeResultNoEq(r) }

// changeableCell is the mutable node backing MakeChangeable.
type changeableCell[V any] struct {
	eq      Eq[V]
	errEq   func(a, b error) bool
	current Result[V]
	subs    *dllist.List[func(Result[V])]
	exn     func(error)
	logger  Logger
}

func (c *changeableCell[V]) ReadResult() Result[V] { return c.current }

func (c *changeableCell[V]) subscribe(cb func(Result[V])) func() {
	h := c.subs.PushBack(cb)
	return func() { h.Remove() }
}

func (c *changeableCell[V]) writeResult(r Result[V]) {
	if resultEqual(c.current, r, c.eq, c.errEq) {
		return
	}
	c.current = r
	c.dispatch(r)
}

func (c *changeableCell[V]) writeResultNoEq(r Result[V]) {
	c.current = r
	c.dispatch(r)
}

func (c *changeableCell[V]) dispatch(r Result[V]) {
	c.subs.Each(func(cb func(Result[V])) bool {
		c.invoke(cb, r)
		return true
	})
}

func (c *changeableCell[V]) invoke(cb func(Result[V]), r Result[V]) {
	defer func() {
		if rec := recover(); rec != nil {
			err := PanicError{Value: rec, Site: "dispatch"}
			logError(c.logger, "cell", "dependent callback panic", err)
			c.exn(err)
		}
	}()
	cb(r)
}

func resultEqual[V any](a, b Result[V], eq Eq[V], errEq func(a, b error) bool) bool {
	if (a.Fail == nil) != (b.Fail == nil) {
		return false
	}
	if a.Fail != nil {
		return errEq(a.Fail, b.Fail)
	}
	return eq(a.Value, b.Value)
}

// constantCell is the immutable node backing MakeConstant: its Result never
// changes, and subscribe is a no-op (there is nothing to ever notify).
type constantCell[V any] struct {
	result Result[V]
}

func (c *constantCell[V]) ReadResult() Result[V] { return c.result }

func (c *constantCell[V]) subscribe(func(Result[V])) func() {
	return func() {}
}

// cellConfig collects MakeChangeable's optional eq/initial parameters.
type cellConfig[V any] struct {
	eq      Eq[V]
	initial *Result[V]
}

// CellOption configures a changeable cell at construction time.
type CellOption[V any] func(*cellConfig[V])

// WithEq overrides the cell's default (structural) equality predicate.
func WithEq[V any](eq Eq[V]) CellOption[V] {
	return func(c *cellConfig[V]) { c.eq = eq }
}

// WithInitial seeds the cell with a successful initial value, instead of
// the default Unset failure.
func WithInitial[V any](v V) CellOption[V] {
	r := Ok(v)
	return func(c *cellConfig[V]) { c.initial = &r }
}

// WithInitialResult seeds the cell with an arbitrary initial Result
// (success or failure).
func WithInitialResult[V any](r Result[V]) CellOption[V] {
	return func(c *cellConfig[V]) { c.initial = &r }
}

// MakeChangeable creates a new mutable cell, returning its read-only Cell
// view and its Writer. Before the first write (or absent WithInitial*), the
// cell's Result is Failed(ErrUnset).
func MakeChangeable[V any](eng *Engine, opts ...CellOption[V]) (Cell[V], Writer[V]) {
	cfg := cellConfig[V]{eq: defaultValueEq[V]}
	for _, o := range opts {
		o(&cfg)
	}
	initial := Result[V]{Fail: ErrUnset}
	if cfg.initial != nil {
		initial = *cfg.initial
	}
	c := &changeableCell[V]{
		eq:      cfg.eq,
		errEq:   eng.opts.errorEq,
		current: initial,
		subs:    dllist.New[func(Result[V])](),
		exn:     eng.opts.exnHandler,
		logger:  eng.opts.logger,
	}
	return c, Writer[V]{cell: c}
}

// MakeConstant wraps a fixed Result as a never-changing Cell.
func MakeConstant[V any](r Result[V]) Cell[V] {
	return &constantCell[V]{result: r}
}

// ReadResult returns c's current Result without raising on failure.
func ReadResult[V any](c Cell[V]) Result[V] { return c.ReadResult() }

// Read returns c's current value, panicking with the underlying error if c
// currently holds a Fail. The panic is
// expected to be recovered at a reader-body boundary (reader.go) or by
// TryBind/Catch; left uncaught, it reaches the engine's exception handler.
func Read[V any](c Cell[V]) V {
	r := c.ReadResult()
	if r.Fail != nil {
		panic(r.Fail)
	}
	return r.Value
}

// IsConstant reports whether c is a constant cell (MakeConstant), as
// opposed to a changeable one.
func IsConstant[V any](c Cell[V]) bool {
	_, ok := c.(*constantCell[V])
	return ok
}

// Hash returns a stable per-cell identity value, suitable as a map key for
// callers that need to key auxiliary state by cell identity (e.g. a
// dedup set across Merge inputs).
func Hash[V any](c Cell[V]) uintptr {
	return reflect.ValueOf(c).Pointer()
}
