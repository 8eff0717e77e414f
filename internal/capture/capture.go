// Package capture wraps the camera device behind a pull-based frame source.
//
// The GStreamer pipeline handles device access, pixel-format conversion and
// coarse rate limiting; videorate with drop-only caps the device-side rate,
// and the acquisition worker adds its own interval sleep on top so the
// configured target FPS holds even when the device free-runs faster.
package capture

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/shichaoxia/baby-monitor/internal/config"
	"github.com/shichaoxia/baby-monitor/internal/logger"
	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// Source produces frames on demand. Implementations are owned exclusively
// by the acquisition worker; no locking is provided or needed.
type Source interface {
	// Capture blocks until the next frame is available and returns it.
	// A capture failure is recoverable; the caller skips the cycle.
	Capture() (*types.Frame, error)

	// Close releases the camera device. Capture must not be called after.
	Close() error
}

// V4L2Source reads RGB frames from a V4L2 device through GStreamer.
type V4L2Source struct {
	pipeline *gst.Pipeline
	sink     *app.Sink
	width    int
	height   int
	seq      atomic.Uint64
}

// Open builds and starts the capture pipeline. Failure here is fatal by
// design: a monitor that cannot see the camera must not start.
func Open(cfg config.Camera) (*V4L2Source, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("create v4l2src: %w", err)
	}
	src.SetProperty("device", cfg.Device)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("create videoconvert: %w", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("create videoscale: %w", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("create capsfilter: %w", err)
	}
	capsStr := fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1",
		cfg.Width, cfg.Height, cfg.TargetFPS)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)    // No clock sync (real-time)
	appsink.SetProperty("max-buffers", 1) // Keep only the latest frame
	appsink.SetProperty("drop", true)     // Drop old frames

	if err := pipeline.AddMany(src, converter, scaler, videorate, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("assemble pipeline: %w", err)
	}
	if err := gst.ElementLinkMany(src, converter, scaler, videorate, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("link pipeline: %w", err)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("open camera %s: %w", cfg.Device, err)
	}

	logger.Info("Capture", "Camera %s open (%dx%d @ %d fps)",
		cfg.Device, cfg.Width, cfg.Height, cfg.TargetFPS)

	return &V4L2Source{
		pipeline: pipeline,
		sink:     appsink,
		width:    cfg.Width,
		height:   cfg.Height,
	}, nil
}

// Capture implements Source. It blocks on the appsink until the device
// delivers the next frame, copies the pixel data out of the GStreamer
// buffer, and returns an owned Frame.
func (s *V4L2Source) Capture() (*types.Frame, error) {
	sample := s.sink.PullSample()
	if sample == nil {
		return nil, fmt.Errorf("no sample from device (EOS or flush)")
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, fmt.Errorf("sample without buffer")
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return nil, fmt.Errorf("empty buffer from device")
	}

	// Copy out; GStreamer reuses the buffer after Unmap.
	pixels := make([]byte, len(data))
	copy(pixels, data)
	buffer.Unmap()

	frame := &types.Frame{
		Data:      pixels,
		Width:     s.width,
		Height:    s.height,
		Seq:       s.seq.Add(1),
		Timestamp: time.Now(),
	}
	if len(pixels) < frame.Size() {
		return nil, fmt.Errorf("short frame: %d bytes, expected %d", len(pixels), frame.Size())
	}
	return frame, nil
}

// Close stops the pipeline and releases the device.
func (s *V4L2Source) Close() error {
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("stop capture pipeline: %w", err)
	}
	return nil
}
