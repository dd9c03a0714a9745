package reactor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New()
	require.NoError(t, err)
	return eng
}

func TestMakeChangeable_DefaultsToUnset(t *testing.T) {
	eng := newTestEngine(t)
	c, _ := MakeChangeable[int](eng)
	r := ReadResult(c)
	require.Error(t, r.Fail)
	assert.True(t, errors.Is(r.Fail, ErrUnset))
}

func TestMakeChangeable_WithInitial(t *testing.T) {
	eng := newTestEngine(t)
	c, _ := MakeChangeable(eng, WithInitial(42))
	assert.Equal(t, 42, Read(c))
}

func TestWriter_WriteAndRead(t *testing.T) {
	eng := newTestEngine(t)
	c, w := MakeChangeable[int](eng)
	w.Write(7)
	assert.Equal(t, 7, Read(c))
}

func TestWriter_Clear(t *testing.T) {
	eng := newTestEngine(t)
	c, w := MakeChangeable(eng, WithInitial(1))
	w.Clear()
	r := ReadResult(c)
	assert.True(t, errors.Is(r.Fail, ErrUnset))
}

func TestWriter_WriteExn(t *testing.T) {
	eng := newTestEngine(t)
	c, w := MakeChangeable[int](eng)
	sentinel := errors.New("broke")
	w.WriteExn(sentinel)
	r := ReadResult(c)
	assert.Equal(t, sentinel, r.Fail)
}

func TestRead_PanicsOnFail(t *testing.T) {
	eng := newTestEngine(t)
	c, _ := MakeChangeable[int](eng)
	assert.PanicsWithValue(t, error(ErrUnset), func() { Read(c) })
}

func TestWrite_EqFiltersNoOpWrites(t *testing.T) {
	eng := newTestEngine(t)
	c, w := MakeChangeable(eng, WithInitial(0), WithEq(func(a, b int) bool { return a == b }))
	var fired int
	_ = Notify(eng, c, func(int) { fired++ })

	w.Write(0) // equal to current => no dispatch
	assert.Equal(t, 0, fired)

	w.Write(1) // unequal => dispatch
	assert.Equal(t, 1, fired)

	w.Write(1) // equal to new current => no dispatch
	assert.Equal(t, 1, fired)
}

func TestWriteResultNoEq_BypassesEq(t *testing.T) {
	eng := newTestEngine(t)
	c, w := MakeChangeable(eng, WithInitial(5), WithEq(func(a, b int) bool { return true }))
	var got []int
	_ = NotifyResult(eng, c, func(r Result[int]) { got = append(got, r.Value) })

	w.WriteResultNoEq(Ok(5)) // same value, but Eq always says equal — must still dispatch
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0])
}

func TestMakeConstant(t *testing.T) {
	c := MakeConstant(Ok(9))
	assert.True(t, IsConstant(c))
	assert.Equal(t, 9, Read(c))
}

func TestIsConstant_FalseForChangeable(t *testing.T) {
	eng := newTestEngine(t)
	c, _ := MakeChangeable[int](eng)
	assert.False(t, IsConstant(c))
}

func TestHash_StableAndDistinct(t *testing.T) {
	eng := newTestEngine(t)
	a, _ := MakeChangeable[int](eng)
	b, _ := MakeChangeable[int](eng)
	assert.Equal(t, Hash(a), Hash(a))
	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestDispatch_ErrorsFromDependentsDoNotAbortIteration(t *testing.T) {
	eng := newTestEngine(t)
	var exnCount int
	eng.SetExceptionHandler(func(error) { exnCount++ })

	c, w := MakeChangeable[int](eng)
	var secondRan bool
	_ = Notify(eng, c, func(int) { panic("first subscriber blows up") })
	_ = Notify(eng, c, func(int) { secondRan = true })

	w.Write(1)
	assert.True(t, secondRan)
	assert.Equal(t, 1, exnCount)
}

func TestResultEqual_FailUsesErrorEq(t *testing.T) {
	eng, err := New(WithErrorEquality(func(a, b error) bool { return a.Error() == b.Error() }))
	require.NoError(t, err)

	c, w := MakeChangeable[int](eng)
	var fired int
	_ = NotifyResult(eng, c, func(Result[int]) { fired++ })

	w.WriteExn(errors.New("same message"))
	assert.Equal(t, 1, fired)
	w.WriteExn(errors.New("same message"))
	assert.Equal(t, 1, fired, "errors with equal messages should compare equal under the custom error eq")
}
