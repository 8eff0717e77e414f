package types

// Gesture is a raw classification category as reported per frame.
type Gesture string

// GestureNone is the sentinel for "no qualifying detection this frame".
const GestureNone Gesture = "None"

// Categories produced by the gesture recognizer model.
const (
	GestureClosedFist Gesture = "Closed_Fist"
	GestureOpenPalm   Gesture = "Open_Palm"
	GestureThumbUp    Gesture = "Thumb_Up"
	GestureVictory    Gesture = "Victory"
)

// IsNone reports whether the gesture is the no-detection sentinel.
func (g Gesture) IsNone() bool {
	return g == GestureNone || g == ""
}

// Landmark is a single hand landmark in normalized [0,1] image coordinates.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClassifierResult is the outcome of one classifier invocation.
// A result with no landmarks means no hand was detected.
type ClassifierResult struct {
	Gesture   Gesture    // Top category, or GestureNone
	Score     float64    // Model confidence for the top category
	Landmarks []Landmark // Normalized hand landmarks (empty if no detection)
}

// Area returns the normalized bounding extent of the detected hand,
// computed as width*height of the landmark bounding box. Returns 0 when
// there are no landmarks.
func (r ClassifierResult) Area() float64 {
	if len(r.Landmarks) == 0 {
		return 0
	}
	minX, maxX := r.Landmarks[0].X, r.Landmarks[0].X
	minY, maxY := r.Landmarks[0].Y, r.Landmarks[0].Y
	for _, lm := range r.Landmarks[1:] {
		if lm.X < minX {
			minX = lm.X
		}
		if lm.X > maxX {
			maxX = lm.X
		}
		if lm.Y < minY {
			minY = lm.Y
		}
		if lm.Y > maxY {
			maxY = lm.Y
		}
	}
	return (maxX - minX) * (maxY - minY)
}
