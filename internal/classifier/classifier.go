// Package classifier defines the gesture-classification boundary and the
// MediaPipe sidecar binding behind it.
//
// The classifier is an external collaborator: one frame in, zero-or-one top
// gesture category out, synchronous and stateless between calls. Everything
// downstream of it (area filtering, debouncing) lives in Go.
package classifier

import (
	"context"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// Classifier runs gesture recognition on a single frame.
type Classifier interface {
	// Classify runs one synchronous inference. A result with no landmarks
	// means no hand was detected; that is not an error.
	Classify(ctx context.Context, frame *types.Frame) (types.ClassifierResult, error)

	// Close releases the underlying recognizer resource.
	Close() error
}

// FilterLabel reduces a classifier result to the cycle's raw label.
// Detections whose normalized area does not exceed the threshold are treated
// as no detection, regardless of the reported category or score.
func FilterLabel(res types.ClassifierResult, areaThreshold float64) types.Gesture {
	if res.Gesture.IsNone() || len(res.Landmarks) == 0 {
		return types.GestureNone
	}
	if res.Area() <= areaThreshold {
		return types.GestureNone
	}
	return res.Gesture
}
