package reactor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLift_ShortCircuitsOnConstant(t *testing.T) {
	eng := newTestEngine(t)
	c := MakeConstant(Ok(3))
	out := Lift(eng, c, func(v int) int { return v + 1 })
	assert.True(t, IsConstant(out))
	assert.Equal(t, 4, Read(out))
}

func TestLift_PropagatesOnChange(t *testing.T) {
	eng := newTestEngine(t)
	a, wa := MakeChangeable(eng, WithInitial(1))
	b := Lift(eng, a, func(v int) int { return v * 10 })
	assert.Equal(t, 10, Read(b))

	wa.Write(2)
	require.NoError(t, eng.Propagate())
	assert.Equal(t, 20, Read(b))
}

func TestLift_PanicBecomesFail(t *testing.T) {
	eng := newTestEngine(t)
	a, wa := MakeChangeable(eng, WithInitial(1))
	b := Lift(eng, a, func(v int) int {
		if v == 0 {
			panic("div by zero")
		}
		return 10 / v
	})
	assert.Equal(t, 10, Read(b))

	wa.Write(0)
	require.NoError(t, eng.Propagate())
	r := ReadResult(b)
	require.Error(t, r.Fail)
}

func TestLift_FailPropagatesFromInput(t *testing.T) {
	eng := newTestEngine(t)
	a, wa := MakeChangeable[int](eng)
	b := Lift(eng, a, func(v int) int { return v + 1 })
	r := ReadResult(b)
	require.Error(t, r.Fail)
	assert.True(t, errors.Is(r.Fail, ErrUnset))

	wa.Write(1)
	require.NoError(t, eng.Propagate())
	assert.Equal(t, 2, Read(b))
}

func TestBind_ShortCircuitsOnConstant(t *testing.T) {
	eng := newTestEngine(t)
	c := MakeConstant(Ok(5))
	out := Bind(eng, c, func(v int) Cell[int] { return MakeConstant(Ok(v * 2)) })
	assert.True(t, IsConstant(out))
	assert.Equal(t, 10, Read(out))
}

func TestBind_DynamicSwitch(t *testing.T) {
	eng := newTestEngine(t)
	sw, wsw := MakeChangeable(eng, WithInitial(true))
	x, wx := MakeChangeable(eng, WithInitial(1))
	y, wy := MakeChangeable(eng, WithInitial(100))

	out := Bind(eng, sw, func(b bool) Cell[int] {
		if b {
			return x
		}
		return y
	})

	assert.Equal(t, 1, Read(out))

	wsw.Write(false)
	require.NoError(t, eng.Propagate())
	assert.Equal(t, 100, Read(out))

	wx.Write(2)
	require.NoError(t, eng.Propagate())
	assert.Equal(t, 100, Read(out), "switched away from x; its writes must no longer be observed")

	wy.Write(200)
	require.NoError(t, eng.Propagate())
	assert.Equal(t, 200, Read(out))
}

func TestBindN_FailFastOnFirstFailure(t *testing.T) {
	eng := newTestEngine(t)
	a, wa := MakeChangeable(eng, WithInitial(1))
	b, _ := MakeChangeable[int](eng) // starts Unset

	out := BindN(eng, []Cell[int]{a, b}, func(vs []int) Cell[int] {
		return MakeConstant(Ok(vs[0] + vs[1]))
	})
	r := ReadResult(out)
	require.Error(t, r.Fail)
	assert.True(t, errors.Is(r.Fail, ErrUnset))
	_ = wa
}

func TestLiftN_SumsMultipleCells(t *testing.T) {
	eng := newTestEngine(t)
	a, wa := MakeChangeable(eng, WithInitial(1))
	b, wb := MakeChangeable(eng, WithInitial(2))
	sum := LiftN(eng, []Cell[int]{a, b}, func(vs []int) int {
		total := 0
		for _, v := range vs {
			total += v
		}
		return total
	})
	assert.Equal(t, 3, Read(sum))

	wa.Write(10)
	wb.Write(20)
	require.NoError(t, eng.Propagate())
	assert.Equal(t, 30, Read(sum))
}

func TestTryBind_RoutesSuccessAndFailure(t *testing.T) {
	eng := newTestEngine(t)
	a, wa := MakeChangeable(eng, WithInitial(1))
	out := TryBind(eng, a,
		func(v int) Cell[int] { return MakeConstant(Ok(v * 100)) },
		func(err error) Cell[int] { return MakeConstant(Ok(-1)) },
	)
	assert.Equal(t, 100, Read(out))

	wa.WriteExn(errors.New("bad"))
	require.NoError(t, eng.Propagate())
	assert.Equal(t, -1, Read(out))
}

func TestCatch_SubstitutesOnFailure(t *testing.T) {
	eng := newTestEngine(t)
	a, wa := MakeChangeable(eng, WithInitial(1))
	b := Lift(eng, a, func(x int) int {
		if x == 0 {
			panic("div by zero")
		}
		return 10 / x
	})
	c := Catch(eng, b, func(error) Cell[int] { return MakeConstant(Ok(-1)) })
	assert.Equal(t, 10, Read(c))

	wa.Write(0)
	require.NoError(t, eng.Propagate())
	assert.Equal(t, -1, Read(c))
}

func TestNotify_FiresOnlyOnSuccess(t *testing.T) {
	eng := newTestEngine(t)
	c, w := MakeChangeable[int](eng)
	var got []int
	_ = Notify(eng, c, func(v int) { got = append(got, v) })

	w.WriteExn(errors.New("boom"))
	w.Write(1)
	assert.Equal(t, []int{1}, got)
}

func TestNotify_NotifyNowFiresImmediately(t *testing.T) {
	eng := newTestEngine(t)
	c, _ := MakeChangeable(eng, WithInitial(9))
	var got int
	_ = Notify(eng, c, func(v int) { got = v }, true)
	assert.Equal(t, 9, got)
}

func TestNotify_CancelStopsFutureDeliveries(t *testing.T) {
	eng := newTestEngine(t)
	c, w := MakeChangeable[int](eng)
	var count int
	cancel := Notify(eng, c, func(int) { count++ })

	w.Write(1)
	assert.Equal(t, 1, count)

	cancel()
	w.Write(2)
	assert.Equal(t, 1, count, "no more deliveries after cancel")

	cancel() // idempotent
	assert.Equal(t, 1, count)
}

func TestCleanup_FiresOnCurrentNowSplice(t *testing.T) {
	eng := newTestEngine(t)
	var ran bool
	a, wa := MakeChangeable(eng, WithInitial(1))
	_ = Lift(eng, a, func(v int) int {
		eng.Cleanup(func() { ran = true })
		return v
	})
	wa.Write(2)
	require.NoError(t, eng.Propagate())
	assert.True(t, ran, "re-running the reader must splice out (and fire) its prior cleanup")
}

func TestDiamondRecomputation(t *testing.T) {
	eng := newTestEngine(t)
	a, wa := MakeChangeable(eng, WithInitial(1))
	b := Lift(eng, a, func(v int) int { return v + 1 })
	c := Lift(eng, a, func(v int) int { return v * 2 })
	d := LiftN(eng, []Cell[int]{b, c}, func(vs []int) int { return vs[0] + vs[1] })

	assert.Equal(t, 4, Read(d))

	var bRuns, cRuns, dRuns int
	b2 := Lift(eng, a, func(v int) int { bRuns++; return v + 1 })
	c2 := Lift(eng, a, func(v int) int { cRuns++; return v * 2 })
	d2 := LiftN(eng, []Cell[int]{b2, c2}, func(vs []int) int { dRuns++; return vs[0] + vs[1] })
	bRuns, cRuns, dRuns = 0, 0, 0 // discount the constructor's initial eager run

	wa.Write(10)
	require.NoError(t, eng.Propagate())
	assert.Equal(t, 31, Read(d)) // (10+1) + (10*2)
	assert.Equal(t, 31, Read(d2))
	assert.Equal(t, 1, bRuns)
	assert.Equal(t, 1, cRuns)
	assert.Equal(t, 1, dRuns)
}
