package classifier

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// handAt builds a landmark set whose bounding box spans w x h starting at
// (0.1, 0.1) in normalized coordinates.
func handAt(w, h float64) []types.Landmark {
	return []types.Landmark{
		{X: 0.1, Y: 0.1},
		{X: 0.1 + w/2, Y: 0.1 + h},
		{X: 0.1 + w, Y: 0.1 + h/2},
	}
}

func TestFilterLabelAreaThreshold(t *testing.T) {
	cases := []struct {
		name string
		res  types.ClassifierResult
		want types.Gesture
	}{
		{
			name: "large hand passes",
			res: types.ClassifierResult{
				Gesture:   types.GestureOpenPalm,
				Score:     0.97,
				Landmarks: handAt(0.5, 0.5), // area 0.25
			},
			want: types.GestureOpenPalm,
		},
		{
			name: "small hand forced to none despite high confidence",
			res: types.ClassifierResult{
				Gesture:   types.GestureOpenPalm,
				Score:     0.99,
				Landmarks: handAt(0.2, 0.2), // area 0.04
			},
			want: types.GestureNone,
		},
		{
			name: "no landmarks",
			res:  types.ClassifierResult{Gesture: types.GestureThumbUp, Score: 0.9},
			want: types.GestureNone,
		},
		{
			name: "explicit none",
			res:  types.ClassifierResult{Gesture: types.GestureNone},
			want: types.GestureNone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FilterLabel(tc.res, 0.15); got != tc.want {
				t.Fatalf("FilterLabel = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResultArea(t *testing.T) {
	res := types.ClassifierResult{Landmarks: handAt(0.4, 0.3)}
	got := res.Area()
	want := 0.4 * 0.3
	if got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("Area = %g, want %g", got, want)
	}

	if (types.ClassifierResult{}).Area() != 0 {
		t.Fatalf("empty result Area != 0")
	}
}

func TestEncodeJPEGDownscales(t *testing.T) {
	frame := &types.Frame{Width: 1280, Height: 720}
	frame.Data = make([]byte, frame.Size())

	data, w, h, err := encodeJPEG(frame)
	if err != nil {
		t.Fatalf("encodeJPEG: %v", err)
	}
	if w != 480 || h != 270 {
		t.Fatalf("scaled to %dx%d, want 480x270", w, h)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable JPEG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		t.Fatalf("decoded %dx%d, header said %dx%d", b.Dx(), b.Dy(), w, h)
	}
}

func TestEncodeJPEGKeepsSmallFrames(t *testing.T) {
	frame := &types.Frame{Width: 320, Height: 240}
	frame.Data = make([]byte, frame.Size())

	_, w, h, err := encodeJPEG(frame)
	if err != nil {
		t.Fatalf("encodeJPEG: %v", err)
	}
	if w != 320 || h != 240 {
		t.Fatalf("small frame rescaled to %dx%d", w, h)
	}
}

func TestEncodeJPEGRejectsShortBuffer(t *testing.T) {
	frame := &types.Frame{Width: 64, Height: 64, Data: make([]byte, 10)}
	if _, _, _, err := encodeJPEG(frame); err == nil {
		t.Fatalf("expected error for truncated frame data")
	}
}

func TestParseResult(t *testing.T) {
	res, err := parseResult([]byte(`{"gesture":"Victory","score":0.88,"landmarks":[{"x":0.2,"y":0.3},{"x":0.6,"y":0.7}]}`))
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if res.Gesture != types.GestureVictory || res.Score != 0.88 || len(res.Landmarks) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = parseResult([]byte(`{"gesture":"","score":0,"landmarks":[]}`))
	if err != nil {
		t.Fatalf("parseResult empty: %v", err)
	}
	if !res.Gesture.IsNone() {
		t.Fatalf("empty gesture parsed as %q", res.Gesture)
	}

	if _, err := parseResult([]byte(`{"error":"model exploded"}`)); err == nil {
		t.Fatalf("expected error response to surface as error")
	}

	if _, err := parseResult([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
