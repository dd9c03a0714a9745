// Package reactor provides a self-adjusting computation engine: a set of
// changeable [Cell] values, derived via [Bind]/[Lift] and friends, that
// stay consistent under a change-propagation scheduler without the caller
// ever re-running a whole computation graph by hand.
//
// # Architecture
//
// The engine is built around four cooperating pieces, each in its own
// file:
//
//   - [Timeline] ([Timeline.Tick], [Timeline.SpliceOut]): a virtual-time
//     order-maintenance structure. Every reader execution owns a
//     [start, finish] timestamp range; splicing that range invalidates
//     everything nested inside it (subscriptions, nested readers, memo
//     entries) in one pass.
//   - the scheduler (readerHeap, unexported): a priority queue of readers
//     pending re-execution, ordered by start timestamp with spliced-out
//     entries sorting first so they're discarded cheaply.
//   - [Engine.Propagate]: drains the scheduler in timestamp order,
//     re-running each stale [Reader] exactly once per pass and splicing
//     away its previous run's unused suffix.
//   - [Memo]: a bounded, keyed cache of sub-computations, valid only
//     within the currently executing reader's timestamp range.
//
// [Event] sits on top of cells as a push-only occurrence stream: unlike a
// cell it holds no state, only dependents, and [Sender.Send] enqueues
// rather than writes.
//
// # Concurrency
//
// The engine is strictly single-threaded and cooperative: there are no
// locks, atomics, or goroutines anywhere in this package or its
// internal/dllist collaborator. Calling an [Engine]'s methods, or any
// [Cell]/[Reader]/[Event] derived from it, from more than one goroutine
// concurrently is undefined behavior — callers that need cross-goroutine
// access must serialize it themselves (e.g. by running the engine on a
// single dedicated goroutine and communicating via channels).
//
// # Error Handling
//
// Two distinct failure paths exist. A panic inside a reader body (Bind,
// Lift, BindN, LiftN, TryBind) or inside a Map or Collect callback is
// converted locally into a [Result]'s Fail field — it never escapes as a
// Go panic. A panic anywhere else reachable from the engine (a dispatch
// callback, a cleanup action, a Notify/NotifyE callback, a Filter
// predicate) is routed to the
// process-wide exception handler installed via [WithExceptionHandler],
// which defaults to re-panicking.
//
// # Usage
//
//	eng, err := reactor.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	a, aw := reactor.MakeChangeable[int](eng, reactor.WithInitial(1))
//	b, bw := reactor.MakeChangeable[int](eng, reactor.WithInitial(2))
//	sum := reactor.LiftN(eng, []reactor.Cell[int]{a, b}, func(vs []int) int {
//		return vs[0] + vs[1]
//	})
//
//	cancel := reactor.Notify(eng, sum, func(v int) {
//		fmt.Println("sum is now", v)
//	})
//	defer cancel()
//
//	aw.Write(10)
//	if err := eng.Propagate(); err != nil {
//		log.Fatal(err)
//	}
//
// # Logging
//
// [WithLogger] attaches a [Logger]; use [NewLogifaceLogger] to wrap a
// [github.com/joeycumines/logiface] logger, or [NewDefaultLogger] for a
// ready-made JSON encoder backed by [github.com/joeycumines/stumpy]. The
// default is a no-op logger.
package reactor
