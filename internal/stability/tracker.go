package stability

import (
	"sync/atomic"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// Tracker owns the stability window and the active-state machine.
//
// States are {none} plus the recognized categories. Entry into a recognized
// category is the only transition that fires; a sustained "none" silently
// resets the active state. A direct change from one category to another
// fires exactly once, for the new category.
//
// Observe must be called from a single goroutine (the inference worker).
// Active and Fill are safe for concurrent readers such as the status server.
type Tracker struct {
	window     *Window
	threshold  int
	recognized map[types.Gesture]bool

	active atomic.Value // types.Gesture
	fill   atomic.Int32
}

// NewTracker creates a tracker with window size w, vote count threshold, and
// the set of categories that may become an active state.
func NewTracker(w, threshold int, recognized map[types.Gesture]bool) *Tracker {
	t := &Tracker{
		window:     NewWindow(w),
		threshold:  threshold,
		recognized: recognized,
	}
	t.active.Store(types.GestureNone)
	return t
}

// Observe appends one raw label and returns the category entered this cycle.
// The second return is false when no transition was confirmed.
func (t *Tracker) Observe(raw types.Gesture) (types.Gesture, bool) {
	if raw.IsNone() {
		raw = types.GestureNone
	}
	t.window.Append(raw)
	t.fill.Store(int32(t.window.Len()))

	// No decision until the window has a full history.
	if !t.window.Full() {
		return types.GestureNone, false
	}

	stable := t.window.Stable(t.threshold)
	active := t.Active()

	switch {
	case t.recognized[stable] && stable != active:
		t.active.Store(stable)
		return stable, true
	case stable == types.GestureNone:
		// Return to none resets without an event.
		t.active.Store(types.GestureNone)
	}
	return types.GestureNone, false
}

// Active returns the last confirmed stable category, or GestureNone.
func (t *Tracker) Active() types.Gesture {
	return t.active.Load().(types.Gesture)
}

// Fill returns how many samples the window currently holds.
func (t *Tracker) Fill() int {
	return int(t.fill.Load())
}

// WindowSize returns the configured window capacity.
func (t *Tracker) WindowSize() int {
	return t.window.Cap()
}
