package stability

import (
	"math"
	"testing"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

var recognized = map[types.Gesture]bool{
	types.GestureClosedFist: true,
	types.GestureOpenPalm:   true,
	types.GestureThumbUp:    true,
	types.GestureVictory:    true,
}

func repeat(g types.Gesture, n int) []types.Gesture {
	out := make([]types.Gesture, n)
	for i := range out {
		out[i] = g
	}
	return out
}

func TestWindowStableMajority(t *testing.T) {
	cases := []struct {
		name   string
		labels []types.Gesture
		want   types.Gesture
	}{
		{
			name:   "six of eight meets threshold",
			labels: append(repeat(types.GestureOpenPalm, 6), repeat(types.GestureNone, 2)...),
			want:   types.GestureOpenPalm,
		},
		{
			name:   "five of eight falls short",
			labels: append(repeat(types.GestureOpenPalm, 5), repeat(types.GestureNone, 3)...),
			want:   types.GestureNone,
		},
		{
			name:   "unanimous none",
			labels: repeat(types.GestureNone, 8),
			want:   types.GestureNone,
		},
		{
			name:   "split vote yields none",
			labels: append(repeat(types.GestureThumbUp, 4), repeat(types.GestureVictory, 4)...),
			want:   types.GestureNone,
		},
	}

	// W=8, r=0.75 => threshold 6 (the stock deployment).
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := NewWindow(8)
			for _, g := range tc.labels {
				w.Append(g)
			}
			if !w.Full() {
				t.Fatalf("window not full after %d samples", len(tc.labels))
			}
			if got := w.Stable(6); got != tc.want {
				t.Fatalf("Stable = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWindowStableAcrossSizesAndRatios(t *testing.T) {
	for _, size := range []int{1, 3, 5, 8, 12} {
		for _, ratio := range []float64{0.5, 0.75, 1.0} {
			threshold := int(math.Ceil(ratio * float64(size)))

			// Exactly threshold votes for one category must be stable.
			w := NewWindow(size)
			for i := 0; i < size; i++ {
				if i < threshold {
					w.Append(types.GestureClosedFist)
				} else {
					w.Append(types.GestureNone)
				}
			}
			if got := w.Stable(threshold); got != types.GestureClosedFist {
				t.Fatalf("W=%d r=%g: %d votes not stable, got %q", size, ratio, threshold, got)
			}

			// One vote short must yield none (unless none itself wins).
			if threshold-1 <= size-threshold+1 {
				continue
			}
			w = NewWindow(size)
			for i := 0; i < size; i++ {
				if i < threshold-1 {
					w.Append(types.GestureClosedFist)
				} else {
					w.Append(types.GestureNone)
				}
			}
			if got := w.Stable(threshold); got != types.GestureNone {
				t.Fatalf("W=%d r=%g: %d votes reported stable %q", size, ratio, threshold-1, got)
			}
		}
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	w.Append(types.GestureOpenPalm)
	w.Append(types.GestureOpenPalm)
	w.Append(types.GestureOpenPalm)
	// Three newer samples push all palms out.
	w.Append(types.GestureClosedFist)
	w.Append(types.GestureClosedFist)
	w.Append(types.GestureClosedFist)

	if got := w.Stable(3); got != types.GestureClosedFist {
		t.Fatalf("Stable = %q after eviction, want Closed_Fist", got)
	}
}

func TestTrackerNoDecisionBeforeFull(t *testing.T) {
	tr := NewTracker(8, 6, recognized)
	for i := 0; i < 7; i++ {
		if g, changed := tr.Observe(types.GestureOpenPalm); changed {
			t.Fatalf("transition %q confirmed with only %d samples", g, i+1)
		}
	}
	if tr.Active() != types.GestureNone {
		t.Fatalf("Active = %q before window full, want None", tr.Active())
	}
}

func TestTrackerEntryEmitsOnce(t *testing.T) {
	tr := NewTracker(8, 6, recognized)

	// Window fills with Closed_Fist x7, none x1.
	tr.Observe(types.GestureNone)
	events := 0
	for i := 0; i < 7; i++ {
		if _, changed := tr.Observe(types.GestureClosedFist); changed {
			events++
		}
	}
	if events != 1 {
		t.Fatalf("entry emitted %d events, want exactly 1", events)
	}
	if tr.Active() != types.GestureClosedFist {
		t.Fatalf("Active = %q, want Closed_Fist", tr.Active())
	}

	// Same stable category on further cycles stays silent.
	for i := 0; i < 10; i++ {
		if g, changed := tr.Observe(types.GestureClosedFist); changed {
			t.Fatalf("repeat cycle emitted %q", g)
		}
	}
}

func TestTrackerReentryAfterNone(t *testing.T) {
	tr := NewTracker(4, 3, recognized)
	events := []types.Gesture{}
	feed := func(g types.Gesture, n int) {
		for i := 0; i < n; i++ {
			if cat, changed := tr.Observe(g); changed {
				events = append(events, cat)
			}
		}
	}

	feed(types.GestureOpenPalm, 4) // enter Open_Palm
	feed(types.GestureNone, 4)     // silent reset
	feed(types.GestureOpenPalm, 4) // re-enter

	if len(events) != 2 {
		t.Fatalf("got %d events %v, want 2 (entry + re-entry)", len(events), events)
	}
	for _, g := range events {
		if g != types.GestureOpenPalm {
			t.Fatalf("unexpected event %q", g)
		}
	}
}

func TestTrackerDirectCategoryChangeEmitsOnce(t *testing.T) {
	tr := NewTracker(4, 3, recognized)
	events := []types.Gesture{}
	feed := func(g types.Gesture, n int) {
		for i := 0; i < n; i++ {
			if cat, changed := tr.Observe(g); changed {
				events = append(events, cat)
			}
		}
	}

	feed(types.GestureOpenPalm, 4)
	feed(types.GestureVictory, 4) // A -> B without a stable none in between

	if len(events) != 2 {
		t.Fatalf("got events %v, want [Open_Palm Victory]", events)
	}
	if events[0] != types.GestureOpenPalm || events[1] != types.GestureVictory {
		t.Fatalf("got events %v, want [Open_Palm Victory]", events)
	}
	if tr.Active() != types.GestureVictory {
		t.Fatalf("Active = %q, want Victory", tr.Active())
	}
}

func TestTrackerUnrecognizedStableNeverActivates(t *testing.T) {
	tr := NewTracker(4, 3, recognized)

	// A category outside the map may dominate the window but must neither
	// emit an event nor become the active state.
	for i := 0; i < 8; i++ {
		if g, changed := tr.Observe(types.Gesture("ILoveYou")); changed {
			t.Fatalf("unmapped category emitted %q", g)
		}
	}
	if tr.Active() != types.GestureNone {
		t.Fatalf("Active = %q, want None", tr.Active())
	}
}
