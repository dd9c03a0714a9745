package reactor

import (
	"github.com/joeycumines/go-reactor/internal/dllist"
)

// timestamp is a single point in the engine's virtual-time order. It is
// opaque to callers outside this file: readers and cells only ever hold a
// *timestamp handed back by Tick, and compare/splice through the owning
// Timeline.
type timestamp struct {
	label uint64
	// node is this timestamp's handle in the owning Timeline's live list.
	// nil once spliced out; the timestamp value itself survives (frozen
	// label, spliced=true) for any stale holder that still compares against
	// it.
	node *dllist.Handle[*timestamp]
	// spliced is set exactly once, by splice_out or a full reset.
	spliced bool
	// cleanups is allocated lazily; most timestamps never get one.
	cleanups *dllist.List[func()]
}

// maxLabel is the top of the label space; labels are spread across
// [0, maxLabel] on relabel and bisected on insertion.
const maxLabel = ^uint64(0)

// initialGap is the label step used when appending past the last live
// timestamp, keeping room for future insertions without an immediate
// relabel.
const initialGap = uint64(1) << 32

// Timeline is the engine's totally ordered virtual clock: an
// order-maintenance structure over timestamp nodes, supporting O(1)
// amortized insert-after and O(1) compare, plus range invalidation
// ("splice-out").
//
// The label scheme here is a single-level uint64 midpoint scheme rather
// than full two-level Dietz-Sleator labels: insertion bisects the gap
// between neighboring labels, and exhausting a gap (no integer between two
// neighbors) triggers a full relabel of the live list, spreading labels
// evenly back across the uint64 space. With a 64-bit label space, this
// relabel is vanishingly rare in practice, trading the textbook's
// worst-case guarantee for a much simpler implementation — the asymptotic
// upgrade path (windowed relabeling, or full two-level labels) is a drop-in
// change confined to newLabelAfter and relabelAll.
type Timeline struct {
	list   *dllist.List[*timestamp]
	now    *timestamp
	exn    func(error)
	logger Logger
}

// NewTimeline constructs a Timeline and calls Init on it.
func NewTimeline(exnHandler func(error), logger Logger) *Timeline {
	tl := &Timeline{exn: exnHandler, logger: logger}
	tl.Init()
	return tl
}

// Init resets the timeline: every still-live timestamp is spliced out (its
// cleanups fire, in list order), then a single root timestamp is allocated
// and set as now.
func (tl *Timeline) Init() {
	if tl.list != nil {
		// Run and drop every remaining cleanup, oldest-registered
		// timestamp first, same ordering guarantee as an ordinary
		// splice-out.
		tl.list.Each(func(t *timestamp) bool {
			t.spliced = true
			tl.runCleanups(t)
			return true
		})
	}
	tl.list = dllist.New[*timestamp]()
	root := &timestamp{label: maxLabel / 2}
	root.node = tl.list.PushBack(root)
	tl.now = root
	logDebug(tl.logger, "timeline", "init", nil)
}

// Tick inserts a new timestamp immediately after now and sets now to it.
func (tl *Timeline) Tick() *timestamp {
	label := tl.newLabelAfter(tl.now)
	t := &timestamp{label: label}
	t.node = tl.list.InsertAfter(tl.now.node, t)
	tl.now = t
	logDebug(tl.logger, "timeline", "tick", map[string]any{"label": label})
	return t
}

// Compare returns -1, 0, or +1 according to a and b's position in the
// total order. Frozen (spliced-out) timestamps retain their last label, so
// Compare remains well-defined for them; callers that need "is this
// ordering still meaningful" should check IsSplicedOut first (the
// scheduler's comparison rule does exactly that).
func (tl *Timeline) Compare(a, b *timestamp) int {
	switch {
	case a.label < b.label:
		return -1
	case a.label > b.label:
		return 1
	default:
		return 0
	}
}

// IsSplicedOut reports whether t has been invalidated by a prior SpliceOut
// or Init.
func (tl *Timeline) IsSplicedOut(t *timestamp) bool {
	return t.spliced
}

// SpliceOut invalidates every live timestamp t with lo < t <= hi, in
// increasing order, running and dropping each one's cleanups as it goes.
// lo itself is left live (and is typically reused as the next run's
// starting point). A no-op if hi is already spliced out (idempotent with
// respect to repeated calls over the same range).
func (tl *Timeline) SpliceOut(lo, hi *timestamp) {
	if lo == hi || hi.spliced {
		return
	}
	cur := lo.node.Next()
	for cur != nil {
		t := cur.Value()
		next := cur.Next()
		t.spliced = true
		tl.runCleanups(t)
		cur.Remove()
		t.node = nil
		if t == hi {
			break
		}
		cur = next
	}
	logDebug(tl.logger, "timeline", "splice", map[string]any{"lo": lo.label, "hi": hi.label})
}

// Len returns the number of live (not spliced-out) timestamps.
func (tl *Timeline) Len() int { return tl.list.Len() }

// SetNow sets the virtual clock to t.
func (tl *Timeline) SetNow(t *timestamp) { tl.now = t }

// GetNow returns the current virtual clock position.
func (tl *Timeline) GetNow() *timestamp { return tl.now }

// AddCleanup registers f to run exactly once, when t is spliced out or the
// timeline is reset via Init.
func (tl *Timeline) AddCleanup(t *timestamp, f func()) {
	if t.cleanups == nil {
		t.cleanups = dllist.New[func()]()
	}
	t.cleanups.PushBack(f)
}

// runCleanups fires every cleanup registered on t, in registration order,
// recovering and routing any panic through the engine's exception handler
// rather than letting it unwind through the timeline's own bookkeeping.
func (tl *Timeline) runCleanups(t *timestamp) {
	if t.cleanups == nil {
		return
	}
	t.cleanups.Each(func(f func()) bool {
		tl.runOne(f)
		return true
	})
	t.cleanups = nil
}

func (tl *Timeline) runOne(f func()) {
	defer func() {
		if r := recover(); r != nil {
			err := PanicError{Value: r, Site: "cleanup"}
			logError(tl.logger, "timeline", "cleanup panic", err)
			tl.exn(err)
		}
	}()
	f()
}

// newLabelAfter picks a label strictly between at's label and its
// successor's (or past it, if at is the tail), relabeling first if the gap
// is exhausted.
func (tl *Timeline) newLabelAfter(at *timestamp) uint64 {
	next := at.node.Next()
	if next == nil {
		if at.label > maxLabel-initialGap {
			tl.relabelAll()
			next = at.node.Next()
			if next == nil {
				return at.label + initialGap
			}
			return at.label + (next.Value().label-at.label)/2
		}
		return at.label + initialGap
	}

	hi := next.Value().label
	if hi-at.label <= 1 {
		tl.relabelAll()
		next = at.node.Next()
		if next == nil {
			return at.label + initialGap
		}
		hi = next.Value().label
	}
	return at.label + (hi-at.label)/2
}

// relabelAll spreads every live timestamp's label evenly across
// [0, maxLabel], preserving relative order.
func (tl *Timeline) relabelAll() {
	n := uint64(tl.list.Len())
	if n == 0 {
		return
	}
	step := maxLabel / (n + 1)
	if step == 0 {
		step = 1
	}
	i := uint64(1)
	tl.list.Each(func(t *timestamp) bool {
		t.label = step * i
		i++
		return true
	})
	logDebug(tl.logger, "timeline", "relabel", map[string]any{"count": n})
}
