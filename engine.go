package reactor

// Engine is the process-wide, strictly single-threaded context tying
// together the virtual-time timeline, the reader scheduler, the
// finish-stack that bounds memoization, the event dispatch queue, and the
// installed exception handler / debug hook / logger. There are no locks
// anywhere in this file or its collaborators (timeline.go, scheduler.go,
// cell.go, reader.go, propagate.go, memo.go, event.go): access is
// cooperative and single-threaded by design, and calling Engine methods
// from more than one goroutine concurrently is undefined behavior.
type Engine struct {
	opts *engineOptions

	timeline *Timeline
	sched    *scheduler

	// finishStack holds the enclosing reader's finish timestamp for each
	// level of reader nesting currently executing, topmost last. memo.go
	// consults its top to bound a cache hit's re-spliced range, and to
	// decide whether memoization is active at all: only inside a reader.
	finishStack []*timestamp

	// eventQueue and eventRunning back the re-entrant dispatch loop for
	// Send.
	eventQueue   []func()
	eventRunning bool

	memoTables []memoTableResetter

	// memoHits and memoMisses are process-wide counters surfaced through
	// Stats; memo.go increments them on every memoized call made inside a
	// reader (calls outside a reader are not counted).
	memoHits   uint64
	memoMisses uint64
}

// New constructs an Engine, applying opts over the documented defaults and
// calling Init.
func New(opts ...EngineOption) (*Engine, error) {
	cfg, err := resolveEngineOptions(opts)
	if err != nil {
		return nil, err
	}
	eng := &Engine{opts: cfg}
	eng.Init()
	return eng, nil
}

// Init resets all engine state: the timeline (firing every remaining
// cleanup), the scheduler, the finish-stack, the event queue, and every
// live memo table. Callers must not retain cells, readers, or cancel
// handles across Init.
func (eng *Engine) Init() {
	if eng.timeline == nil {
		eng.timeline = NewTimeline(eng.opts.exnHandler, eng.opts.logger)
	} else {
		eng.timeline.Init()
	}
	eng.sched = newScheduler(eng.timeline)
	eng.finishStack = nil
	eng.eventQueue = nil
	eng.eventRunning = false
	for _, mt := range eng.memoTables {
		mt.reset()
	}
	eng.memoHits = 0
	eng.memoMisses = 0
	logDebug(eng.opts.logger, "engine", "init", nil)
}

// SetExceptionHandler installs h as the process-wide handler for errors
// raised outside a reader body (dispatch callbacks, cleanups, notify
// callbacks). The default re-raises (panics).
func (eng *Engine) SetExceptionHandler(h func(error)) {
	eng.opts.exnHandler = h
}

// SetDebugHook installs h to observe notable engine transitions.
func (eng *Engine) SetDebugHook(h func(DebugEvent)) {
	eng.opts.debugHook = h
}

// Logger returns the engine's structured logger.
func (eng *Engine) Logger() Logger { return eng.opts.logger }

// SetCycleDetection overrides the number of consecutive times the same
// reader may be popped and immediately re-enqueued before Propagate raises
// a CycleError (see defaultCycleRerunLimit). A limit <= 0 restores the
// default.
func (eng *Engine) SetCycleDetection(limit int) {
	if limit <= 0 {
		limit = defaultCycleRerunLimit
	}
	eng.opts.cycleLimit = limit
}

// Stats is a read-only snapshot of engine-wide counters, scoped down to
// plain counts: this engine has no latency distribution to estimate, so
// there is no percentile tracker to wire up.
type Stats struct {
	// PendingReaders is the scheduler queue's current length, including any
	// stale (spliced-out) duplicates not yet discarded by a pop.
	PendingReaders int
	// LiveTimestamps is the number of timestamps the timeline still holds.
	LiveTimestamps int
	// MemoHits and MemoMisses count the outcome of every memoized call
	// made inside a reader, across every memo table created on this
	// engine, since the last Init. Calls outside a reader are not counted.
	MemoHits   uint64
	MemoMisses uint64
}

// Stats returns a snapshot of the engine's current counters.
func (eng *Engine) Stats() Stats {
	return Stats{
		PendingReaders: eng.sched.Len(),
		LiveTimestamps: eng.timeline.Len(),
		MemoHits:       eng.memoHits,
		MemoMisses:     eng.memoMisses,
	}
}
