// Package stability turns the jittery per-frame label stream into stable,
// debounced state transitions.
package stability

import (
	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// Window is a fixed-capacity ring of the most recent raw labels. Appending
// to a full window evicts the oldest sample. It is mutated and read only by
// the inference worker, so it carries no locking.
type Window struct {
	samples []types.Gesture
	next    int
	filled  int
}

// NewWindow creates a window of the given capacity. Capacity must be >= 1.
func NewWindow(size int) *Window {
	return &Window{samples: make([]types.Gesture, size)}
}

// Append records one raw label, evicting the oldest when full.
func (w *Window) Append(g types.Gesture) {
	w.samples[w.next] = g
	w.next = (w.next + 1) % len(w.samples)
	if w.filled < len(w.samples) {
		w.filled++
	}
}

// Full reports whether the window has seen at least capacity samples.
func (w *Window) Full() bool {
	return w.filled == len(w.samples)
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.filled
}

// Cap returns the window capacity W.
func (w *Window) Cap() int {
	return len(w.samples)
}

// Stable returns the majority label if its count reaches threshold,
// otherwise GestureNone. It only produces a meaningful answer on a full
// window; callers gate on Full.
func (w *Window) Stable(threshold int) types.Gesture {
	counts := make(map[types.Gesture]int, 4)
	var best types.Gesture
	bestCount := 0
	for i := 0; i < w.filled; i++ {
		g := w.samples[i]
		counts[g]++
		if counts[g] > bestCount {
			best = g
			bestCount = counts[g]
		}
	}
	if bestCount >= threshold {
		return best
	}
	return types.GestureNone
}

// Reset clears all samples.
func (w *Window) Reset() {
	w.next = 0
	w.filled = 0
}
