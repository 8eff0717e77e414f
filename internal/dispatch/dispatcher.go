// Package dispatch fans a confirmed state-change event out to its side
// effects: the local audio cue, one push attempt per recipient, and the care
// journal. Every side effect runs in its own goroutine, is never awaited by
// the pipeline, and fails only into the log.
package dispatch

import (
	"context"
	"time"

	"github.com/shichaoxia/baby-monitor/internal/logger"
	"github.com/shichaoxia/baby-monitor/internal/metrics"
	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// pushTitle matches the original deployment's notification title.
const pushTitle = "Baby Care Record"

// sideEffectTimeout bounds each detached side effect so a hung player or
// endpoint cannot accumulate goroutines forever.
const sideEffectTimeout = 30 * time.Second

// Recorder persists emitted events. Implemented by the journal store.
type Recorder interface {
	Append(ctx context.Context, ev types.NotificationEvent) error
}

// Dispatcher reacts to stable-state transitions.
type Dispatcher struct {
	audio   AudioPlayer
	pusher  *BarkPusher
	journal Recorder // may be nil
	metrics *metrics.Metrics
}

// New creates a dispatcher. journal may be nil to disable persistence.
func New(audio AudioPlayer, pusher *BarkPusher, journal Recorder, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		audio:   audio,
		pusher:  pusher,
		journal: journal,
		metrics: m,
	}
}

// Dispatch triggers all side effects for one event and returns immediately.
// The audio path, each recipient's push, and the journal write are mutually
// independent; one failing or stalling never delays the others.
func (d *Dispatcher) Dispatch(ev types.NotificationEvent) {
	body := ev.Timestamp.Format("2006-01-02 15:04") + " " + ev.Label
	logger.Info("Dispatch", "Event: %s (%s)", body, ev.Category)
	d.metrics.EventsEmitted.Add(1)

	go d.playCue()

	keys := d.pusher.Keys()
	if len(keys) == 0 {
		logger.Warn("Dispatch", "No push recipients configured, skipping notification")
	}
	for _, key := range keys {
		go d.pushOne(key, body)
	}

	if d.journal != nil {
		go d.record(ev)
	}
}

func (d *Dispatcher) playCue() {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if err := d.audio.Play(ctx); err != nil {
		d.metrics.AudioFailures.Add(1)
		logger.Error("Dispatch", "Audio cue failed: %v", err)
	}
}

func (d *Dispatcher) pushOne(key, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	start := time.Now()
	if err := d.pusher.PushKey(ctx, key, pushTitle, body); err != nil {
		d.metrics.PushFailures.Add(1)
		logger.Error("Dispatch", "Push to %s failed: %v", maskKey(key), err)
		return
	}
	d.metrics.PushesSent.Add(1)
	logger.Info("Dispatch", "Push sent to %s", maskKey(key))
	logger.Debug("Dispatch", "Push latency for %s: %s", maskKey(key), time.Since(start))
}

func (d *Dispatcher) record(ev types.NotificationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if err := d.journal.Append(ctx, ev); err != nil {
		d.metrics.JournalFailures.Add(1)
		logger.Error("Dispatch", "Journal write failed: %v", err)
	}
}
