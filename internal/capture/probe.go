package capture

import (
	"fmt"
	"time"

	"github.com/shichaoxia/baby-monitor/internal/config"
	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// ProbeResult describes one probed device.
type ProbeResult struct {
	Device string
	OK     bool
	Err    error
	Frame  *types.Frame // First frame, when OK
}

// Probe opens a device and tries to pull a single frame within timeout.
// It confirms the device is not just present but actually streaming.
func Probe(device string, cfg config.Camera, timeout time.Duration) ProbeResult {
	cfg.Device = device

	src, err := Open(cfg)
	if err != nil {
		return ProbeResult{Device: device, Err: fmt.Errorf("open: %w", err)}
	}

	type captured struct {
		frame *types.Frame
		err   error
	}
	ch := make(chan captured, 1)
	go func() {
		frame, captureErr := src.Capture()
		ch <- captured{frame: frame, err: captureErr}
	}()

	select {
	case c := <-ch:
		_ = src.Close()
		if c.err != nil {
			return ProbeResult{Device: device, Err: fmt.Errorf("device on but not streaming: %w", c.err)}
		}
		return ProbeResult{Device: device, OK: true, Frame: c.frame}
	case <-time.After(timeout):
		// Close unblocks the pending PullSample.
		_ = src.Close()
		<-ch
		return ProbeResult{Device: device, Err: fmt.Errorf("no frame within %s", timeout)}
	}
}
