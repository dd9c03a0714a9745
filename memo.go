package reactor

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// memoEntry is a single cached sub-computation: its result, and the
// timestamp range its evaluation spanned.
type memoEntry[V any] struct {
	result Result[V]
	start  *timestamp
	finish *timestamp
}

// memoTableResetter lets Engine.Init clear every live memo table (of
// whatever key/value type) without the engine itself being generic over
// them.
type memoTableResetter interface {
	reset()
}

// memoTable is the per-call-site cache behind Memo: a bounded LRU of
// memoEntry, keyed by the caller's own key type.
type memoTable[K comparable, V any] struct {
	eng   *Engine
	cache *lru.Cache[K, *memoEntry[V]]
}

func (mt *memoTable[K, V]) reset() { mt.cache.Purge() }

// memoConfig collects Memo's optional size parameter.
type memoConfig struct {
	size int
}

// MemoOption configures a memo table at construction time.
type MemoOption func(*memoConfig)

// WithMemoSize overrides the engine's default bounded memo table size
// (see WithDefaultMemoSize) for this specific table.
func WithMemoSize(n int) MemoOption {
	return func(c *memoConfig) { c.size = n }
}

// Memo creates a bounded, keyed cache of reader sub-computations and
// returns the function used to call through it. The returned function is
// only memoizing while called from inside a reader body (the engine's
// finish-stack non-empty); outside a reader it simply calls f directly.
//
// On a cache hit whose cached range fits strictly inside the calling
// reader's remaining interval, the gap since now is spliced out, any
// readers pending inside the cached range are replayed via Propagate, and
// now advances to the entry's finish — reusing the prior timestamps (and
// everything nested inside them) instead of re-running f. On a miss, f is
// evaluated within a fresh [start, finish) bracket and the result is
// cached, with a cleanup on finish removing the entry so it cannot
// outlive the timestamps it depends on.
//
// Key equality and hashing use K's native comparable semantics — the same
// constraint golang-lru/v2 itself imposes — rather than a pluggable
// hash/eq pair.
func Memo[K comparable, V any](eng *Engine, opts ...MemoOption) func(f func(K) V, k K) V {
	cfg := memoConfig{size: eng.opts.memoSize}
	for _, o := range opts {
		o(&cfg)
	}
	size := cfg.size
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[K, *memoEntry[V]](size)
	if err != nil {
		// only returned by golang-lru for a non-positive size, already
		// guarded above.
		panic(err)
	}

	mt := &memoTable[K, V]{eng: eng, cache: cache}
	eng.memoTables = append(eng.memoTables, mt)
	return mt.call
}

func (mt *memoTable[K, V]) call(f func(K) V, k K) V {
	eng := mt.eng
	if len(eng.finishStack) == 0 {
		return f(k)
	}
	top := eng.finishStack[len(eng.finishStack)-1]
	tl := eng.timeline
	now := tl.GetNow()

	if entry, ok := mt.cache.Get(k); ok && tl.Compare(entry.start, now) > 0 && tl.Compare(entry.finish, top) < 0 {
		tl.SpliceOut(now, entry.start)
		_ = eng.Propagate(entry.finish)
		tl.SetNow(entry.finish)
		eng.memoHits++
		logDebug(eng.opts.logger, "memo", "hit", nil)
		eng.opts.debugHook(DebugEvent{Kind: "memo-hit"})
		if entry.result.Fail != nil {
			panic(entry.result.Fail)
		}
		return entry.result.Value
	}

	start := tl.Tick()
	result := evalMemo(f, k)
	finish := tl.Tick()

	entry := &memoEntry[V]{result: result, start: start, finish: finish}
	mt.cache.Add(k, entry)
	tl.AddCleanup(finish, func() { mt.cache.Remove(k) })

	eng.memoMisses++
	logDebug(eng.opts.logger, "memo", "miss", nil)
	eng.opts.debugHook(DebugEvent{Kind: "memo-miss"})

	if result.Fail != nil {
		panic(result.Fail)
	}
	return result.Value
}

func evalMemo[K comparable, V any](f func(K) V, k K) (result Result[V]) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Failed[V](asError(rec, "memo"))
		}
	}()
	return Ok(f(k))
}
