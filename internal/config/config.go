package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// Camera contains capture device configuration.
type Camera struct {
	Device    string `toml:"device"`     // V4L2 device path (e.g. "/dev/video0")
	Width     int    `toml:"width"`      // Capture width in pixels
	Height    int    `toml:"height"`     // Capture height in pixels
	TargetFPS int    `toml:"target_fps"` // Upper bound on acquisition rate
}

// Detection contains classifier and debounce configuration.
type Detection struct {
	ModelPath     string  `toml:"model_path"`     // Gesture recognizer model asset
	SidecarCmd    string  `toml:"sidecar_cmd"`    // Interpreter for the recognizer sidecar
	SidecarScript string  `toml:"sidecar_script"` // Recognizer sidecar script path
	AreaThreshold float64 `toml:"area_threshold"` // Minimum normalized hand area
	WindowSize    int     `toml:"window_size"`    // Stability window size W
	VoteRatio     float64 `toml:"vote_ratio"`     // Majority-vote ratio r
}

// Notify contains side-effect configuration (audio cue and Bark push).
type Notify struct {
	BarkKeys       []string `toml:"bark_keys"`       // Recipient device keys
	BarkBaseURL    string   `toml:"bark_base_url"`   // Push endpoint base
	BarkGroup      string   `toml:"bark_group"`      // Notification group tag
	RequestTimeout int      `toml:"request_timeout"` // Push HTTP timeout, seconds
	AudioPath      string   `toml:"audio_path"`      // Local audio cue asset
}

// Server contains HTTP listener and local storage configuration.
type Server struct {
	StatusAddr  string `toml:"status_addr"`  // Status/health JSON endpoints
	MetricsAddr string `toml:"metrics_addr"` // Prometheus metrics endpoint
	PprofAddr   string `toml:"pprof_addr"`   // pprof endpoint ("" disables)
	JournalPath string `toml:"journal_path"` // SQLite care-event journal
	LockPath    string `toml:"lock_path"`    // Single-instance lock file
}

// Config is the full monitor configuration, loaded once at startup.
// Components receive it (or sub-structs) by value and never re-read it.
type Config struct {
	Camera    Camera            `toml:"camera"`
	Detection Detection         `toml:"detection"`
	Notify    Notify            `toml:"notify"`
	Server    Server            `toml:"server"`
	Gestures  map[string]string `toml:"gestures"` // category -> human label
}

// Default returns the configuration matching the stock deployment.
func Default() *Config {
	return &Config{
		Camera: Camera{
			Device:    "/dev/video0",
			Width:     640,
			Height:    480,
			TargetFPS: 10,
		},
		Detection: Detection{
			ModelPath:     "gesture_recognizer.task",
			SidecarCmd:    "python3",
			SidecarScript: "scripts/recognizer_worker.py",
			AreaThreshold: 0.15,
			WindowSize:    8,
			VoteRatio:     0.75,
		},
		Notify: Notify{
			BarkBaseURL:    "https://api.day.app",
			BarkGroup:      "BabyMonitor",
			RequestTimeout: 5,
			AudioPath:      "success.mp3",
		},
		Server: Server{
			StatusAddr:  ":8080",
			MetricsAddr: ":9090",
			PprofAddr:   "",
			JournalPath: "care_events.db",
			LockPath:    "babymonitord.lock",
		},
		Gestures: map[string]string{
			string(types.GestureClosedFist): "Sleeping",
			string(types.GestureOpenPalm):   "Awake",
			string(types.GestureThumbUp):    "Feeding",
			string(types.GestureVictory):    "Diaper",
		},
	}
}

// Load reads a TOML config from path, layered over Default. A missing file
// returns the defaults so a bare checkout can run with local assets.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise break the debounce math.
func (c *Config) Validate() error {
	if c.Camera.TargetFPS <= 0 {
		return fmt.Errorf("camera.target_fps must be positive, got %d", c.Camera.TargetFPS)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera dimensions must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Detection.WindowSize < 1 {
		return fmt.Errorf("detection.window_size must be at least 1, got %d", c.Detection.WindowSize)
	}
	if c.Detection.VoteRatio <= 0 || c.Detection.VoteRatio > 1 {
		return fmt.Errorf("detection.vote_ratio must be in (0,1], got %g", c.Detection.VoteRatio)
	}
	if c.Detection.AreaThreshold < 0 || c.Detection.AreaThreshold >= 1 {
		return fmt.Errorf("detection.area_threshold must be in [0,1), got %g", c.Detection.AreaThreshold)
	}
	if c.Notify.RequestTimeout <= 0 {
		c.Notify.RequestTimeout = 5
	}
	return nil
}

// VoteThreshold returns the sample count a category needs inside the window
// before it is considered stable: ceil(ratio * window size).
func (c *Config) VoteThreshold() int {
	return int(math.Ceil(c.Detection.VoteRatio * float64(c.Detection.WindowSize)))
}

// Label resolves a category to its configured human label.
// The second return is false for unmapped categories.
func (c *Config) Label(g types.Gesture) (string, bool) {
	label, ok := c.Gestures[string(g)]
	return label, ok
}
