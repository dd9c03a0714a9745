package reactor

// engineOptions holds configuration resolved from EngineOption values before
// an Engine is constructed.
type engineOptions struct {
	exnHandler     func(error)
	debugHook      func(DebugEvent)
	logger         Logger
	errorEq        func(a, b error) bool
	memoSize       int
	notifyNowByDef bool
	cycleLimit     int
}

// --- Engine Options ---

// EngineOption configures an [Engine] at construction time.
type EngineOption interface {
	applyEngine(*engineOptions) error
}

// engineOptionImpl implements EngineOption.
type engineOptionImpl struct {
	applyEngineFunc func(*engineOptions) error
}

func (o *engineOptionImpl) applyEngine(opts *engineOptions) error {
	return o.applyEngineFunc(opts)
}

// WithExceptionHandler installs the process-wide handler invoked when a
// dispatch callback or cleanup action panics outside of a reader body's
// own recomputation. The default handler re-panics.
func WithExceptionHandler(h func(error)) EngineOption {
	return &engineOptionImpl{func(opts *engineOptions) error {
		opts.exnHandler = h
		return nil
	}}
}

// WithDebugHook installs a callback invoked with a [DebugEvent] on each
// memo hit and memo miss. Ticks, splices and propagation steps do not
// invoke it. Intended for tests and tooling, not production hot paths.
func WithDebugHook(h func(DebugEvent)) EngineOption {
	return &engineOptionImpl{func(opts *engineOptions) error {
		opts.debugHook = h
		return nil
	}}
}

// WithLogger attaches a structured [Logger] to the engine. The default is a
// no-op logger (see [NewNoOpLogger]).
func WithLogger(l Logger) EngineOption {
	return &engineOptionImpl{func(opts *engineOptions) error {
		opts.logger = l
		return nil
	}}
}

// WithErrorEquality overrides the default reference-identity equality used
// when comparing two Fail results. The default treats two distinct error
// values as unequal even if they satisfy errors.Is against each other.
func WithErrorEquality(eq func(a, b error) bool) EngineOption {
	return &engineOptionImpl{func(opts *engineOptions) error {
		opts.errorEq = eq
		return nil
	}}
}

// WithDefaultMemoSize sets the default bounded size for memo tables created
// via Memo without an explicit MemoOption size override.
func WithDefaultMemoSize(n int) EngineOption {
	return &engineOptionImpl{func(opts *engineOptions) error {
		opts.memoSize = n
		return nil
	}}
}

// WithNotifyFireImmediately changes the engine-wide default for the
// notifyNow behavior of Notify/NotifyResult (NotifyE/NotifyResultE have no
// such behavior and ignore it): whether
// the callback also fires synchronously, once, with the current value at
// subscribe time. The default is false (subscribe only, no immediate
// synchronous fire).
func WithNotifyFireImmediately(enabled bool) EngineOption {
	return &engineOptionImpl{func(opts *engineOptions) error {
		opts.notifyNowByDef = enabled
		return nil
	}}
}

// resolveEngineOptions applies opts over the engine's documented defaults.
func resolveEngineOptions(opts []EngineOption) (*engineOptions, error) {
	cfg := &engineOptions{
		exnHandler: func(err error) { panic(err) },
		debugHook:  func(DebugEvent) {},
		logger:     NewNoOpLogger(),
		errorEq:    defaultErrorEq,
		memoSize:   256,
		cycleLimit: defaultCycleRerunLimit,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // skip nil options gracefully
		}
		if err := opt.applyEngine(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// DebugEvent describes a single notable engine transition, delivered to a
// hook installed via WithDebugHook.
type DebugEvent struct {
	// Kind names the transition: "memo-hit" or "memo-miss".
	Kind string
	// Detail is a short human-readable description.
	Detail string
}
