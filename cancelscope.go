package reactor

import "github.com/joeycumines/go-reactor/internal/dllist"

// CancelSignal communicates cancellation to code that holds it, mirroring
// the shape of a DOM AbortSignal but adapted to this engine's
// single-threaded, lock-free execution model: there is no mutex here,
// because an Engine and everything derived from it is only ever touched
// from one goroutine at a time.
//
// Usage:
//
//	scope := reactor.NewCancelScope()
//	signal := scope.Signal()
//
//	cancel := reactor.NotifyResult(eng, c, func(r reactor.Result[int]) {
//		if signal.Cancelled() {
//			return
//		}
//		// ...
//	})
//	signal.OnCancel(func(reason any) { cancel() })
//
//	scope.Cancel("shutting down")
type CancelSignal struct {
	handlers  *dllist.List[func(reason any)]
	reason    any
	cancelled bool
}

func newCancelSignal() *CancelSignal {
	return &CancelSignal{handlers: dllist.New[func(reason any)]()}
}

// Cancelled reports whether Cancel has been called on the owning scope.
func (s *CancelSignal) Cancelled() bool { return s.cancelled }

// Reason returns the value passed to Cancel, or nil if not yet cancelled.
func (s *CancelSignal) Reason() any { return s.reason }

// OnCancel registers handler to run when the scope is cancelled. If the
// scope is already cancelled, handler runs immediately, inline, with the
// existing reason.
func (s *CancelSignal) OnCancel(handler func(reason any)) {
	if handler == nil {
		return
	}
	if s.cancelled {
		handler(s.reason)
		return
	}
	s.handlers.PushBack(handler)
}

// ThrowIfCancelled returns a [CancelledError] if the scope has been
// cancelled, nil otherwise — for call sites that want to bail out with an
// error rather than branch on Cancelled().
func (s *CancelSignal) ThrowIfCancelled() error {
	if s.cancelled {
		return &CancelledError{Reason: s.reason}
	}
	return nil
}

func (s *CancelSignal) cancel(reason any) {
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.reason = reason
	s.handlers.Each(func(h func(reason any)) bool {
		h(reason)
		return true
	})
}

// CancelScope is the write side of a [CancelSignal], mirroring an
// AbortController: it is the only thing that can cancel the signal it
// owns.
type CancelScope struct {
	signal *CancelSignal
}

// NewCancelScope creates a scope with a fresh, uncancelled signal.
func NewCancelScope() *CancelScope {
	return &CancelScope{signal: newCancelSignal()}
}

// Signal returns the scope's [CancelSignal].
func (c *CancelScope) Signal() *CancelSignal { return c.signal }

// Cancel cancels the scope's signal with reason, running every handler
// registered via [CancelSignal.OnCancel] in registration order. A second
// call is a no-op; the original reason is retained.
func (c *CancelScope) Cancel(reason any) {
	if reason == nil {
		reason = &CancelledError{Reason: "cancelled"}
	}
	c.signal.cancel(reason)
}

// CancelledError is the default reason substituted by [CancelScope.Cancel]
// when called with a nil reason, and the error returned by
// [CancelSignal.ThrowIfCancelled].
type CancelledError struct {
	// Reason is whatever was passed to Cancel.
	Reason any
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	if s, ok := e.Reason.(string); ok {
		return "reactor: cancelled: " + s
	}
	if err, ok := e.Reason.(error); ok {
		return "reactor: cancelled: " + err.Error()
	}
	return "reactor: cancelled"
}

// Is implements errors.Is support: any *CancelledError matches any other.
func (e *CancelledError) Is(target error) bool {
	_, ok := target.(*CancelledError)
	return ok
}

// Unwrap returns the underlying error if Reason is itself an error.
func (e *CancelledError) Unwrap() error {
	if err, ok := e.Reason.(error); ok {
		return err
	}
	return nil
}

// AnyCancelScope returns a [CancelSignal] that cancels as soon as any of
// the given signals cancel, with that signal's reason. Mirrors
// AbortSignal.any(). Returns a never-cancelling signal for an empty input.
func AnyCancelScope(signals ...*CancelSignal) *CancelSignal {
	composite := newCancelSignal()
	for _, sig := range signals {
		if sig == nil {
			continue
		}
		if sig.Cancelled() {
			composite.cancel(sig.Reason())
			return composite
		}
	}
	for _, sig := range signals {
		if sig == nil {
			continue
		}
		sig.OnCancel(func(reason any) { composite.cancel(reason) })
	}
	return composite
}
