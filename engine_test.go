package reactor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AppliesOptions(t *testing.T) {
	var handled error
	eng, err := New(WithExceptionHandler(func(e error) { handled = e }))
	require.NoError(t, err)

	root := eng.timeline.GetNow()
	t1 := eng.timeline.Tick()
	eng.timeline.AddCleanup(t1, func() { panic("boom") })
	eng.timeline.SpliceOut(root, t1)
	require.Error(t, handled)
}

func TestEngine_SetExceptionHandlerOverridesDefault(t *testing.T) {
	eng := newTestEngine(t)
	var got error
	eng.SetExceptionHandler(func(e error) { got = e })

	eng.protect("test", func() { panic(errors.New("kaboom")) })
	require.Error(t, got)
	assert.Equal(t, "kaboom", got.Error())
}

func TestEngine_SetDebugHookObservesMemoEvents(t *testing.T) {
	eng := newTestEngine(t)
	call := Memo[int, int](eng)
	a, wa := MakeChangeable(eng, WithInitial(0))
	_ = Lift(eng, a, func(v int) int { return call(func(k int) int { return k }, v) })

	var kinds []string
	eng.SetDebugHook(func(ev DebugEvent) { kinds = append(kinds, ev.Kind) })

	wa.Write(1) // runs the reader from inside Propagate, exercising the memo's real miss path
	require.NoError(t, eng.Propagate())

	assert.Contains(t, kinds, "memo-miss")
}

func TestEngine_Logger(t *testing.T) {
	eng := newTestEngine(t)
	require.NotNil(t, eng.Logger())

	custom := NewNoOpLogger()
	eng2, err := New(WithLogger(custom))
	require.NoError(t, err)
	assert.Equal(t, custom, eng2.Logger())
}

func TestEngine_InitResetsCountersAndQueues(t *testing.T) {
	eng := newTestEngine(t)
	call := Memo[int, int](eng)
	a, wa := MakeChangeable(eng, WithInitial(0))
	_ = Lift(eng, a, func(v int) int { return call(func(k int) int { return k }, v) })

	wa.Write(1) // exercises the memo's real (inside-reader) miss path
	require.NoError(t, eng.Propagate())

	b, wb := MakeChangeable(eng, WithInitial(10))
	_ = Lift(eng, b, func(v int) int { return v })
	wb.Write(20) // leaves an entry pending in the scheduler, uncommitted

	stats := eng.Stats()
	assert.Positive(t, stats.MemoMisses)
	assert.Positive(t, stats.PendingReaders)

	eng.Init()
	stats = eng.Stats()
	assert.Equal(t, 0, stats.PendingReaders)
	assert.Equal(t, uint64(0), stats.MemoHits)
	assert.Equal(t, uint64(0), stats.MemoMisses)
}

func TestEngine_StatsTracksPendingAndLiveTimestamps(t *testing.T) {
	eng := newTestEngine(t)
	before := eng.Stats()

	eng.timeline.Tick()
	after := eng.Stats()
	assert.Equal(t, before.LiveTimestamps+1, after.LiveTimestamps)
}

func TestEngine_SetCycleDetectionOverridesLimit(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetCycleDetection(2)
	assert.Equal(t, 2, eng.opts.cycleLimit)

	eng.SetCycleDetection(0) // restores the default
	assert.Equal(t, defaultCycleRerunLimit, eng.opts.cycleLimit)
}

func TestEngine_CycleDetectionRaisesCycleError(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetCycleDetection(3)

	// A synthetic, dependency-less reader whose body re-adds it to the
	// queue on every run. Its start never gets spliced out by its own
	// rerun (only the [now, finish] suffix is), so each rerun leaves the
	// same live entry at the top of the queue — a reader that keeps
	// re-enqueuing itself. The duplicates added up front are collapsed
	// into the first run.
	r := &Reader{label: "self-referential"}
	r.body = func() { eng.sched.Add(r) }
	r.start = eng.timeline.Tick()
	r.finish = eng.timeline.Tick()
	for i := 0; i < 5; i++ {
		eng.sched.Add(r)
	}

	err := eng.Propagate()
	var cycleErr *CycleError
	require.Error(t, err)
	assert.True(t, errors.As(err, &cycleErr))
}
