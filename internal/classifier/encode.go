package classifier

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// maxInferenceDim caps the longest side of the image sent to the recognizer.
// The model works on normalized landmarks, so shrinking the input only cuts
// encode and transfer cost.
const maxInferenceDim = 480

const jpegQuality = 80

// encodeJPEG converts a packed RGB24 frame to a JPEG for the sidecar,
// downscaling when the frame exceeds maxInferenceDim on its longest side.
func encodeJPEG(frame *types.Frame) ([]byte, int, int, error) {
	if len(frame.Data) < frame.Size() {
		return nil, 0, 0, fmt.Errorf("frame data %d bytes, expected %d for %dx%d",
			len(frame.Data), frame.Size(), frame.Width, frame.Height)
	}

	src := rgbToRGBA(frame)

	dstW, dstH := frame.Width, frame.Height
	if longest := max(dstW, dstH); longest > maxInferenceDim {
		scale := float64(maxInferenceDim) / float64(longest)
		dstW = int(float64(dstW) * scale)
		dstH = int(float64(dstH) * scale)
	}

	out := src
	if dstW != frame.Width || dstH != frame.Height {
		out = image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		draw.ApproxBiLinear.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), dstW, dstH, nil
}

func rgbToRGBA(frame *types.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		srcRow := frame.Data[y*frame.Width*3:]
		dstRow := img.Pix[y*img.Stride:]
		for x := 0; x < frame.Width; x++ {
			dstRow[x*4+0] = srcRow[x*3+0]
			dstRow[x*4+1] = srcRow[x*3+1]
			dstRow[x*4+2] = srcRow[x*3+2]
			dstRow[x*4+3] = 0xff
		}
	}
	return img
}
