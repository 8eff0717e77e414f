package classifier

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/shichaoxia/baby-monitor/internal/config"
	"github.com/shichaoxia/baby-monitor/internal/logger"
	"github.com/shichaoxia/baby-monitor/pkg/types"
)

const (
	// The sidecar loads the model at startup; give it room on slow boards.
	readyTimeout = 30 * time.Second

	stopTimeout = 2 * time.Second

	// One base64 JPEG response line can run into the megabytes.
	maxLineBytes = 8 << 20
)

// Sidecar drives a MediaPipe gesture-recognizer subprocess over
// line-delimited JSON on stdin/stdout. One request is in flight at a time;
// Classify serializes callers.
type Sidecar struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner

	mu     sync.Mutex
	closed bool
}

type sidecarRequest struct {
	FrameData string `json:"frame_data"` // base64 JPEG
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Seq       uint64 `json:"seq"`
}

type sidecarResponse struct {
	Ready     bool             `json:"ready,omitempty"`
	Gesture   string           `json:"gesture"`
	Score     float64          `json:"score"`
	Landmarks []types.Landmark `json:"landmarks"`
	Error     string           `json:"error,omitempty"`
}

// NewSidecar validates the model asset, spawns the recognizer process and
// waits for its ready line. A missing model or script is a fatal startup
// error.
func NewSidecar(cfg config.Detection) (*Sidecar, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("gesture model %s: %w", cfg.ModelPath, err)
	}
	if _, err := os.Stat(cfg.SidecarScript); err != nil {
		return nil, fmt.Errorf("recognizer sidecar %s: %w", cfg.SidecarScript, err)
	}

	cmd := exec.Command(cfg.SidecarCmd, cfg.SidecarScript, "--model", cfg.ModelPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start sidecar: %w", err)
	}

	go relayStderr(stderr)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	s := &Sidecar{
		cmd:     cmd,
		stdin:   stdin,
		scanner: scanner,
	}

	if err := s.awaitReady(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	logger.Info("Classifier", "Recognizer sidecar ready (pid %d, model %s)",
		cmd.Process.Pid, cfg.ModelPath)
	return s, nil
}

func (s *Sidecar) awaitReady() error {
	type result struct {
		ok  bool
		err error
	}
	ch := make(chan result, 1)
	go func() {
		if !s.scanner.Scan() {
			ch <- result{err: fmt.Errorf("sidecar exited before ready: %v", s.scanner.Err())}
			return
		}
		var resp sidecarResponse
		if err := json.Unmarshal(s.scanner.Bytes(), &resp); err != nil {
			ch <- result{err: fmt.Errorf("sidecar ready line: %w", err)}
			return
		}
		if resp.Error != "" {
			ch <- result{err: fmt.Errorf("sidecar startup: %s", resp.Error)}
			return
		}
		ch <- result{ok: resp.Ready}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		if !r.ok {
			return fmt.Errorf("sidecar first line was not a ready message")
		}
		return nil
	case <-time.After(readyTimeout):
		return fmt.Errorf("sidecar not ready after %s", readyTimeout)
	}
}

// Classify implements Classifier. The frame is encoded to JPEG, sent to the
// sidecar, and the response decoded. A returned result with no landmarks
// means no hand was detected.
func (s *Sidecar) Classify(ctx context.Context, frame *types.Frame) (types.ClassifierResult, error) {
	if err := ctx.Err(); err != nil {
		return types.ClassifierResult{}, err
	}

	jpegData, w, h, err := encodeJPEG(frame)
	if err != nil {
		return types.ClassifierResult{}, err
	}

	req := sidecarRequest{
		FrameData: base64.StdEncoding.EncodeToString(jpegData),
		Width:     w,
		Height:    h,
		Seq:       frame.Seq,
	}
	line, err := json.Marshal(req)
	if err != nil {
		return types.ClassifierResult{}, fmt.Errorf("encode request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ClassifierResult{}, fmt.Errorf("sidecar closed")
	}

	if _, err := s.stdin.Write(append(line, '\n')); err != nil {
		return types.ClassifierResult{}, fmt.Errorf("write to sidecar: %w", err)
	}
	if !s.scanner.Scan() {
		return types.ClassifierResult{}, fmt.Errorf("sidecar response: %v", scanErr(s.scanner))
	}
	return parseResult(s.scanner.Bytes())
}

// Close shuts the sidecar down: stdin close signals a graceful exit, with a
// kill after stopTimeout. Idempotent.
func (s *Sidecar) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		logger.Warn("Classifier", "Sidecar did not exit within %s, killing", stopTimeout)
		_ = s.cmd.Process.Kill()
		<-done
	}
	return nil
}

// parseResult decodes one sidecar response line.
func parseResult(line []byte) (types.ClassifierResult, error) {
	var resp sidecarResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return types.ClassifierResult{}, fmt.Errorf("decode sidecar response: %w", err)
	}
	if resp.Error != "" {
		return types.ClassifierResult{}, fmt.Errorf("sidecar: %s", resp.Error)
	}

	res := types.ClassifierResult{
		Gesture:   types.Gesture(resp.Gesture),
		Score:     resp.Score,
		Landmarks: resp.Landmarks,
	}
	if resp.Gesture == "" {
		res.Gesture = types.GestureNone
	}
	return res, nil
}

func scanErr(s *bufio.Scanner) error {
	if err := s.Err(); err != nil {
		return err
	}
	return io.EOF
}

// relayStderr maps the sidecar's Python log lines onto our logger.
func relayStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "ERROR") || strings.Contains(line, "CRITICAL"):
			logger.Error("Sidecar", "%s", line)
		case strings.Contains(line, "WARNING"):
			logger.Warn("Sidecar", "%s", line)
		default:
			logger.Debug("Sidecar", "%s", line)
		}
	}
}
