// Package pipeline owns the two long-lived workers and their lifecycle.
//
// The acquisition worker pulls frames from the camera at a bounded rate and
// publishes them into the hand-off slot. The inference worker drains the
// slot, classifies, debounces and decides transitions — strictly
// sequentially, so the window and active state need no locking. The two
// workers share nothing but the slot.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shichaoxia/baby-monitor/internal/capture"
	"github.com/shichaoxia/baby-monitor/internal/classifier"
	"github.com/shichaoxia/baby-monitor/internal/config"
	"github.com/shichaoxia/baby-monitor/internal/frameslot"
	"github.com/shichaoxia/baby-monitor/internal/logger"
	"github.com/shichaoxia/baby-monitor/internal/metrics"
	"github.com/shichaoxia/baby-monitor/internal/stability"
	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// takeTimeout bounds the inference worker's wait on the hand-off slot.
// It is the pipeline's only cancellation-responsiveness point, so shutdown
// latency is bounded by it.
const takeTimeout = 1 * time.Second

// EventSink receives confirmed transition events. Implemented by
// dispatch.Dispatcher.
type EventSink interface {
	Dispatch(ev types.NotificationEvent)
}

// Supervisor starts, supervises and stops the pipeline workers.
type Supervisor struct {
	source  capture.Source
	cls     classifier.Classifier
	sink    EventSink
	metrics *metrics.Metrics

	slot    *frameslot.Slot
	tracker *stability.Tracker
	labels  map[types.Gesture]string

	period        time.Duration
	areaThreshold float64

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
	stopped bool
}

// New wires a supervisor from the already-constructed collaborators.
// The recognized-category set is derived from the configured gesture map.
func New(src capture.Source, cls classifier.Classifier, sink EventSink, m *metrics.Metrics, cfg *config.Config) *Supervisor {
	recognized := make(map[types.Gesture]bool, len(cfg.Gestures))
	labels := make(map[types.Gesture]string, len(cfg.Gestures))
	for category, label := range cfg.Gestures {
		recognized[types.Gesture(category)] = true
		labels[types.Gesture(category)] = label
	}

	return &Supervisor{
		source:        src,
		cls:           cls,
		sink:          sink,
		metrics:       m,
		slot:          frameslot.New(),
		tracker:       stability.NewTracker(cfg.Detection.WindowSize, cfg.VoteThreshold(), recognized),
		labels:        labels,
		period:        time.Second / time.Duration(cfg.Camera.TargetFPS),
		areaThreshold: cfg.Detection.AreaThreshold,
	}
}

// Start launches the acquisition and inference workers. Calling Start twice
// is an error.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("pipeline already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.acquisitionLoop(gctx) })
	group.Go(func() error { return s.inferenceLoop(gctx) })

	s.cancel = cancel
	s.group = group
	s.started = true

	logger.Info("Pipeline", "Workers started (period %s, take timeout %s)", s.period, takeTimeout)
	return nil
}

// Stop signals both workers, waits for them to exit, then releases the
// camera and the classifier. Stop before Start is a no-op, as is a second
// Stop.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	group := s.group
	s.mu.Unlock()

	cancel()
	s.slot.Close() // wakes a blocked Take immediately
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Pipeline", "Worker exited with error: %v", err)
	}

	if err := s.source.Close(); err != nil {
		logger.Warn("Pipeline", "Camera release: %v", err)
	}
	if err := s.cls.Close(); err != nil {
		logger.Warn("Pipeline", "Classifier release: %v", err)
	}

	logger.Info("Pipeline", "Stopped")
	return nil
}

// acquisitionLoop captures frames at the configured rate and hands each to
// the slot. Capture failures skip the cycle; the loop never dies on them.
func (s *Supervisor) acquisitionLoop(ctx context.Context) error {
	logger.Info("Acquisition", "Worker running")

	for ctx.Err() == nil {
		start := time.Now()

		frame, err := s.source.Capture()
		if err != nil {
			s.metrics.CaptureErrors.Add(1)
			logger.Warn("Acquisition", "Capture failed: %v", err)
		} else {
			s.slot.Put(frame)
			s.metrics.FramesCaptured.Add(1)
			s.metrics.FramesDropped.Store(s.slot.Drops())
		}

		elapsed := time.Since(start)
		s.metrics.UpdateCaptureLatency(elapsed)

		// Sleep the remainder of the target interval so the rate holds
		// without drifting under capture jitter.
		if remainder := s.period - elapsed; remainder > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(remainder):
			}
		}
	}

	logger.Info("Acquisition", "Worker exiting")
	return ctx.Err()
}

// inferenceLoop drains the slot, classifies each frame, advances the
// stability window, and dispatches confirmed transitions.
func (s *Supervisor) inferenceLoop(ctx context.Context) error {
	logger.Info("Inference", "Worker running")

	for ctx.Err() == nil {
		frame, ok := s.slot.Take(takeTimeout)
		if !ok {
			// Timeout or closed slot; re-loop to observe cancellation.
			continue
		}

		start := time.Now()
		raw := types.GestureNone

		res, err := s.cls.Classify(ctx, frame)
		switch {
		case err != nil && ctx.Err() != nil:
			// Shutdown raced the in-flight call; nothing to record.
		case err != nil:
			// A failed classification is a "none" sample: the window
			// still advances so a dying classifier degrades to a reset.
			s.metrics.ClassifierErrors.Add(1)
			logger.Error("Inference", "Classify failed (frame %d): %v", frame.Seq, err)
		default:
			raw = classifier.FilterLabel(res, s.areaThreshold)
			if !res.Gesture.IsNone() && raw.IsNone() && len(res.Landmarks) > 0 {
				logger.Debug("Inference", "Detected %s below area threshold (area %.4f)",
					res.Gesture, res.Area())
			}
		}

		category, changed := s.tracker.Observe(raw)
		s.metrics.FramesClassified.Add(1)
		s.metrics.WindowFill.Store(uint64(s.tracker.Fill()))
		if s.tracker.Active().IsNone() {
			s.metrics.ActiveState.Store(0)
		} else {
			s.metrics.ActiveState.Store(1)
		}
		s.metrics.UpdateInferenceLatency(time.Since(start))

		if changed {
			s.sink.Dispatch(types.NotificationEvent{
				ID:        uuid.New().String(),
				Timestamp: time.Now(),
				Category:  category,
				Label:     s.labels[category],
			})
		}
	}

	logger.Info("Inference", "Worker exiting")
	return ctx.Err()
}

// Active returns the current debounced state for external observers.
func (s *Supervisor) Active() types.Gesture {
	return s.tracker.Active()
}

// WindowFill returns how many samples the stability window holds.
func (s *Supervisor) WindowFill() int {
	return s.tracker.Fill()
}

// WindowSize returns the configured stability window capacity.
func (s *Supervisor) WindowSize() int {
	return s.tracker.WindowSize()
}

// Running reports whether the workers are live.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}
