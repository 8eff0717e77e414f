package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shichaoxia/baby-monitor/internal/capture"
	"github.com/shichaoxia/baby-monitor/internal/config"
	"github.com/shichaoxia/baby-monitor/internal/logger"
)

var (
	maxIndex = flag.Int("max-index", 4, "Highest /dev/videoN index to probe")
	width    = flag.Int("width", 640, "Capture width")
	height   = flag.Int("height", 480, "Capture height")
	fps      = flag.Int("fps", 10, "Capture framerate")
	timeout  = flag.Duration("timeout", 5*time.Second, "Per-device capture timeout")
	verbose  = flag.Bool("v", false, "Verbose logging")
)

func main() {
	flag.Parse()

	level := logger.WARN
	if *verbose {
		level = logger.DEBUG
	}
	logger.Init(level, os.Stderr, false)

	cfg := config.Camera{Width: *width, Height: *height, TargetFPS: *fps}

	fmt.Printf("Probing /dev/video0 .. /dev/video%d at %dx%d@%dfps\n\n", *maxIndex, *width, *height, *fps)

	var working []capture.ProbeResult
	for i := 0; i <= *maxIndex; i++ {
		device := fmt.Sprintf("/dev/video%d", i)
		if _, err := os.Stat(device); err != nil {
			continue
		}

		fmt.Printf("%-14s ", device)
		res := capture.Probe(device, cfg, *timeout)
		if !res.OK {
			fmt.Printf("FAIL  %v\n", res.Err)
			continue
		}
		fmt.Printf("OK    %dx%d, %d bytes/frame\n", res.Frame.Width, res.Frame.Height, len(res.Frame.Data))
		working = append(working, res)
	}

	fmt.Println()
	if len(working) == 0 {
		fmt.Println("No working camera found.")
		fmt.Println("Check that the camera is connected and not held by another process.")
		os.Exit(1)
	}

	fmt.Printf("%d working device(s).\n", len(working))
	fmt.Printf("Recommended config:\n\n")
	fmt.Printf("  [camera]\n")
	fmt.Printf("  device = %q\n", working[0].Device)
	fmt.Printf("  width = %d\n", *width)
	fmt.Printf("  height = %d\n", *height)
	fmt.Printf("  target_fps = %d\n", *fps)
}
