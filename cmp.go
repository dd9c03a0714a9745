package reactor

import (
	"github.com/google/go-cmp/cmp"
)

// defaultValueEq is the engine-wide default [Eq] for cell values: structural
// comparison, falling back to "not equal" if the comparison itself panics.
// cmp.Equal panics on unexported struct fields it doesn't know how to
// handle, which makes go-cmp a convenient implementation of that fallback
// rule rather than an approximation of it.
func defaultValueEq[V any](a, b V) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return cmp.Equal(a, b)
}
