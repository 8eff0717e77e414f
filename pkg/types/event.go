package types

import "time"

// NotificationEvent is emitted once per confirmed state transition.
// It is immutable after construction; sinks read it concurrently.
type NotificationEvent struct {
	ID        string    // Unique event ID
	Timestamp time.Time // Moment the transition was confirmed
	Category  Gesture   // Raw category that became stable
	Label     string    // Human-readable label from the gesture map
}
