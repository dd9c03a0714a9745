package reactor

// defaultCycleRerunLimit bounds how many times the same Reader may be
// popped and immediately re-enqueued, back to back, before Propagate gives
// up and raises a CycleError. A reader re-enqueued with a start timestamp
// equal to the current virtual clock is the signature of a dataflow
// cycle; this is a bounded-repeat heuristic rather than a precise graph-cycle
// proof — see DESIGN.md). Engine.SetCycleDetection overrides it per engine.
const defaultCycleRerunLimit = 10000

// Propagate drains the scheduler in increasing start-timestamp order,
// re-running every stale reader exactly once per pass, until the queue is
// empty (or, if until is supplied, until the next pending reader's start
// would exceed it).
func (eng *Engine) Propagate(until ...*timestamp) error {
	tl := eng.timeline
	nowBefore := tl.GetNow()

	var bound *timestamp
	if len(until) > 0 {
		bound = until[0]
	}

	var lastReader *Reader
	repeat := 0

	for {
		r, ok := eng.sched.FindMin()
		if !ok {
			break
		}
		if tl.IsSplicedOut(r.start) {
			eng.sched.RemoveMin()
			continue
		}
		if bound != nil && tl.Compare(r.start, bound) > 0 {
			break
		}

		if r == lastReader {
			repeat++
			if repeat >= eng.opts.cycleLimit {
				err := &CycleError{Reader: r.label}
				logError(eng.opts.logger, "scheduler", "cycle detected", err)
				tl.SetNow(nowBefore)
				return err
			}
		} else {
			lastReader = r
			repeat = 1
		}

		eng.sched.RemoveMin()
		// Further queued entries for r share its start, so they now sit at
		// the top of the heap; one rerun serves them all.
		for {
			dup, ok := eng.sched.FindMin()
			if !ok || dup != r {
				break
			}
			eng.sched.RemoveMin()
		}

		eng.finishStack = append(eng.finishStack, r.finish)
		r.rerun(eng)
		eng.finishStack = eng.finishStack[:len(eng.finishStack)-1]

		tl.SpliceOut(tl.GetNow(), r.finish)

		logDebug(eng.opts.logger, "scheduler", "reader ran", map[string]any{"label": r.label})
	}

	tl.SetNow(nowBefore)
	return nil
}
