package reactor

import "github.com/joeycumines/go-reactor/internal/dllist"

// Reader is a single derivation: a body re-run whenever any of its declared
// dependencies changes, bracketed by a [start, finish] timestamp interval
// that owns every subscription, nested reader, cleanup, and memo entry it
// produces.
type Reader struct {
	body   func()
	subs   []func(enqueue func()) (unsubscribe func())
	start  *timestamp
	finish *timestamp
	label  string
}

// addReader is the internal reader-construction primitive behind
// Bind/Lift/BindN/LiftN: tick start, run body once (eagerly, so its nested
// writes and sub-readers materialize inside [start, finish)), tick finish,
// then install each dependency subscription, recording its unsubscribe as
// a cleanup on start. start and finish, once ticked here, are fixed for
// the Reader's whole lifetime — every later re-run (propagate.go's rerun)
// reuses them as fixed anchors and only replaces what lies between them.
func addReader(eng *Engine, label string, body func(), subs ...func(enqueue func()) (unsubscribe func())) *Reader {
	tl := eng.timeline
	r := &Reader{body: body, subs: subs, label: label}
	r.start = tl.Tick()
	runProtected(eng, r.body)
	r.finish = tl.Tick()
	r.installSubs(eng)
	return r
}

// rerun re-executes the reader in place for the propagation loop: it fires
// start's pending cleanups first (the previous run's subscriptions,
// satisfying the "every cleanup fires exactly once before its timestamp is
// reused" invariant), sets now to start, re-runs body, and re-installs
// subscriptions. The caller (propagate.go) is responsible for pushing/
// popping the finish-stack around this call and splicing the unused
// suffix of [now, finish] afterward.
func (r *Reader) rerun(eng *Engine) {
	tl := eng.timeline
	tl.runCleanups(r.start)
	tl.SetNow(r.start)
	runProtected(eng, r.body)
	r.installSubs(eng)
}

func (r *Reader) installSubs(eng *Engine) {
	tl := eng.timeline
	enqueue := func() { eng.sched.Add(r) }
	for _, sub := range r.subs {
		unsub := sub(enqueue)
		tl.AddCleanup(r.start, unsub)
	}
}

// runProtected runs f, recovering any panic that escapes it and routing it
// through the engine's exception handler. Bind/Lift/BindN/LiftN bodies
// already convert their own user-callback panics into a Fail result
// before returning, so this is a backstop for anything that still slips
// through rather than the primary failure path.
func runProtected(eng *Engine, f func()) {
	defer func() {
		if rec := recover(); rec != nil {
			err := asError(rec, "reader")
			logError(eng.opts.logger, "reader", "uncaught reader panic", err)
			eng.opts.exnHandler(err)
		}
	}()
	f()
}

// watch builds the standard "on any notification, enqueue r" subscription
// used by Bind/Lift/BindN/LiftN against a single dependency cell.
func watch[V any](c Cell[V]) func(enqueue func()) (unsubscribe func()) {
	return func(enqueue func()) func() {
		return c.subscribe(func(Result[V]) { enqueue() })
	}
}

// asError normalizes a recovered panic value into an error, wrapping it as
// a PanicError (tagged with site) unless it already is one.
func asError(rec any, site string) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return PanicError{Value: rec, Site: site}
}

// connect mirrors src's current and future results into dst: it writes
// src's present Result (through dst's own Eq, guarding against a
// no-op re-run producing the same value again), then subscribes dst to
// every subsequent change of src via WriteResultNoEq — src's own Eq
// already filtered that stream, so applying dst's Eq again would
// double-filter against the wrong baseline. The subscription is dropped as
// a cleanup on the engine's current now, so it survives until the calling
// reader is spliced out and re-run.
func connect[V any](eng *Engine, src Cell[V], dst Writer[V]) {
	dst.WriteResult(src.ReadResult())
	unsub := src.subscribe(func(r Result[V]) {
		dst.WriteResultNoEq(r)
	})
	eng.Cleanup(unsub)
}

// neverEq is the default Eq for bind-flavored combinators: always unequal,
// i.e. always propagate, because the dependency structure itself may have
// changed even if the produced value looks the same.
func neverEq[V any]() Eq[V] {
	return func(a, b V) bool { return false }
}

// Bind installs a monadic dependency of t on a single cell: when t is a
// Constant, f is applied (or its failure short-circuited) with no reader
// ever created. Otherwise a reader re-runs f each time t changes, mirroring
// the produced cell's results into the output via connect. The default Eq
// is neverEq (always propagate); override with WithEq.
func Bind[T, U any](eng *Engine, t Cell[T], f func(T) Cell[U], opts ...CellOption[U]) Cell[U] {
	if ct, ok := t.(*constantCell[T]); ok {
		if ct.result.Fail != nil {
			return MakeConstant[U](Failed[U](ct.result.Fail))
		}
		inner, ferr := applyCellFunc(f, ct.result.Value)
		if ferr != nil {
			return MakeConstant[U](Failed[U](ferr))
		}
		return inner
	}

	cell, w := newBoundCell[U](eng, opts, neverEq[U]())

	body := func() {
		tr := t.ReadResult()
		if tr.Fail != nil {
			w.WriteResult(Failed[U](tr.Fail))
			return
		}
		inner, ferr := applyCellFunc(f, tr.Value)
		if ferr != nil {
			w.WriteResult(Failed[U](ferr))
			return
		}
		connect(eng, inner, w)
	}

	addReader(eng, "", body, watch(t))
	return cell
}

// Lift applies a plain (non-cell-returning) function to t's value, writing
// the result (or, on panic, a Fail) directly rather than connecting to a
// nested cell. The default Eq is the cell's own (structural) equality,
// since unlike Bind the dependency structure never changes.
func Lift[T, U any](eng *Engine, t Cell[T], f func(T) U, opts ...CellOption[U]) Cell[U] {
	if ct, ok := t.(*constantCell[T]); ok {
		if ct.result.Fail != nil {
			return MakeConstant[U](Failed[U](ct.result.Fail))
		}
		return MakeConstant[U](applyPlainFunc(f, ct.result.Value))
	}

	cell, w := newBoundCell[U](eng, opts, defaultValueEq[U])

	body := func() {
		tr := t.ReadResult()
		if tr.Fail != nil {
			w.WriteResult(Failed[U](tr.Fail))
			return
		}
		w.WriteResult(applyPlainFunc(f, tr.Value))
	}

	addReader(eng, "", body, watch(t))
	return cell
}

// BindN generalizes Bind over a slice of same-typed cells with the
// fail-fast-on-any-Fail rule: the first Fail encountered (in slice order)
// short-circuits the whole computation.
func BindN[T, U any](eng *Engine, ts []Cell[T], f func([]T) Cell[U], opts ...CellOption[U]) Cell[U] {
	if allConstant(ts) {
		vals, failure := readAll(ts)
		if failure != nil {
			return MakeConstant[U](Failed[U](failure))
		}
		inner, ferr := applyCellFunc(f, vals)
		if ferr != nil {
			return MakeConstant[U](Failed[U](ferr))
		}
		return inner
	}

	cell, w := newBoundCell[U](eng, opts, neverEq[U]())

	body := func() {
		vals, failure := readAll(ts)
		if failure != nil {
			w.WriteResult(Failed[U](failure))
			return
		}
		inner, ferr := applyCellFunc(f, vals)
		if ferr != nil {
			w.WriteResult(Failed[U](ferr))
			return
		}
		connect(eng, inner, w)
	}

	addReader(eng, "", body, watchAll(ts)...)
	return cell
}

// LiftN generalizes Lift over a slice of same-typed cells.
func LiftN[T, U any](eng *Engine, ts []Cell[T], f func([]T) U, opts ...CellOption[U]) Cell[U] {
	if allConstant(ts) {
		vals, failure := readAll(ts)
		if failure != nil {
			return MakeConstant[U](Failed[U](failure))
		}
		return MakeConstant[U](applyPlainFunc(f, vals))
	}

	cell, w := newBoundCell[U](eng, opts, defaultValueEq[U])

	body := func() {
		vals, failure := readAll(ts)
		if failure != nil {
			w.WriteResult(Failed[U](failure))
			return
		}
		w.WriteResult(applyPlainFunc(f, vals))
	}

	addReader(eng, "", body, watchAll(ts)...)
	return cell
}

// TryBind is Bind with the failure path handled explicitly: succ sees t's
// value on success, errFn sees t's error on failure, each producing the
// cell to mirror — unlike Bind, a Fail from t does not automatically
// become the output's Fail.
func TryBind[T, U any](eng *Engine, t Cell[T], succ func(T) Cell[U], errFn func(error) Cell[U], opts ...CellOption[U]) Cell[U] {
	if ct, ok := t.(*constantCell[T]); ok {
		if ct.result.Fail != nil {
			inner, ferr := applyCellFunc(errFn, ct.result.Fail)
			if ferr != nil {
				return MakeConstant[U](Failed[U](ferr))
			}
			return inner
		}
		inner, ferr := applyCellFunc(succ, ct.result.Value)
		if ferr != nil {
			return MakeConstant[U](Failed[U](ferr))
		}
		return inner
	}

	cell, w := newBoundCell[U](eng, opts, neverEq[U]())

	body := func() {
		tr := t.ReadResult()
		var inner Cell[U]
		var ferr error
		if tr.Fail != nil {
			inner, ferr = applyCellFunc(errFn, tr.Fail)
		} else {
			inner, ferr = applyCellFunc(succ, tr.Value)
		}
		if ferr != nil {
			w.WriteResult(Failed[U](ferr))
			return
		}
		connect(eng, inner, w)
	}

	addReader(eng, "", body, watch(t))
	return cell
}

// Catch derives a cell mirroring src's successful results unchanged, but
// substitutes errFn(err)'s result in place of any Fail.
func Catch[V any](eng *Engine, src Cell[V], errFn func(error) Cell[V], opts ...CellOption[V]) Cell[V] {
	return TryBind[V, V](eng, src, func(v V) Cell[V] { return MakeConstant(Ok(v)) }, errFn, opts...)
}

// CancelFunc cancels a Notify/NotifyResult subscription. Calling it more
// than once is a no-op.
type CancelFunc func()

// Cleanup registers f to run exactly once, when the engine's current now
// timestamp is spliced out or the engine is reset.
func (eng *Engine) Cleanup(f func()) {
	eng.timeline.AddCleanup(eng.timeline.GetNow(), f)
}

// Notify subscribes f to c's successful results, returning a handle to
// cancel the subscription. Failures are silently skipped; use NotifyResult
// to observe them. If notifyNow is supplied and true (or omitted and the
// engine's WithNotifyFireImmediately default is set), f also fires
// synchronously with c's current value before Notify returns.
func Notify[V any](eng *Engine, c Cell[V], f func(V), notifyNow ...bool) CancelFunc {
	return NotifyResult(eng, c, func(r Result[V]) {
		if r.Fail == nil {
			f(r.Value)
		}
	}, notifyNow...)
}

// NotifyResult subscribes f to every result c produces (success or
// failure), returning a cancel handle. See Notify for the notifyNow
// parameter.
func NotifyResult[V any](eng *Engine, c Cell[V], f func(Result[V]), notifyNow ...bool) CancelFunc {
	fireNow := eng.opts.notifyNowByDef
	if len(notifyNow) > 0 {
		fireNow = notifyNow[0]
	}

	unsub := c.subscribe(f)
	cancelled := false
	cancel := CancelFunc(func() {
		if cancelled {
			return
		}
		cancelled = true
		unsub()
	})

	if fireNow {
		eng.protect("notify", func() { f(c.ReadResult()) })
	}

	return cancel
}

// protect runs f, recovering any panic and routing it through the engine's
// exception handler (never letting it escape to the caller). The same rule
// applies to dispatch callbacks and cleanups: errors raised outside a
// reader body's own recomputation always go to the handler.
func (eng *Engine) protect(site string, f func()) {
	defer func() {
		if rec := recover(); rec != nil {
			err := asError(rec, site)
			logWarn(eng.opts.logger, "reader", site+" panic", err)
			eng.opts.exnHandler(err)
		}
	}()
	f()
}

// --- small generic helpers shared by Bind/Lift/BindN/LiftN ---

func newBoundCell[U any](eng *Engine, opts []CellOption[U], defaultEq Eq[U]) (Cell[U], Writer[U]) {
	cfg := cellConfig[U]{eq: defaultEq}
	for _, o := range opts {
		o(&cfg)
	}
	initial := Result[U]{Fail: ErrUnset}
	if cfg.initial != nil {
		initial = *cfg.initial
	}
	c := &changeableCell[U]{
		eq:      cfg.eq,
		errEq:   eng.opts.errorEq,
		current: initial,
		subs:    dllist.New[func(Result[U])](),
		exn:     eng.opts.exnHandler,
		logger:  eng.opts.logger,
	}
	return c, Writer[U]{cell: c}
}

func applyCellFunc[T, U any](f func(T) Cell[U], v T) (cell Cell[U], err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = asError(rec, "reader")
		}
	}()
	return f(v), nil
}

func applyPlainFunc[T, U any](f func(T) U, v T) (result Result[U]) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Failed[U](asError(rec, "reader"))
		}
	}()
	return Ok(f(v))
}

func allConstant[T any](ts []Cell[T]) bool {
	for _, t := range ts {
		if _, ok := t.(*constantCell[T]); !ok {
			return false
		}
	}
	return true
}

// readAll reads every cell's current Result, short-circuiting on the first
// Fail encountered (fail-fast rule shared by BindN/LiftN, over both
// constant and live inputs).
func readAll[T any](ts []Cell[T]) (vals []T, failure error) {
	vals = make([]T, len(ts))
	for i, t := range ts {
		r := t.ReadResult()
		if r.Fail != nil {
			return nil, r.Fail
		}
		vals[i] = r.Value
	}
	return vals, nil
}

func watchAll[T any](ts []Cell[T]) []func(enqueue func()) (unsubscribe func()) {
	subs := make([]func(enqueue func()) (unsubscribe func()), len(ts))
	for i, t := range ts {
		subs[i] = watch(t)
	}
	return subs
}
