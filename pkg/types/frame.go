package types

import "time"

// Frame is a single captured video frame in packed RGB24 layout.
//
// A Frame is owned by exactly one pipeline stage at a time; ownership moves
// with the frame on every hand-off and the pixel buffer is never shared.
type Frame struct {
	Data      []byte    // Raw pixel data (RGB, 3 bytes per pixel)
	Width     int       // Frame width in pixels
	Height    int       // Frame height in pixels
	Seq       uint64    // Sequential capture number
	Timestamp time.Time // Frame capture timestamp
}

// Size returns the expected byte length for the frame dimensions.
func (f *Frame) Size() int {
	return f.Width * f.Height * 3
}
