package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shichaoxia/baby-monitor/internal/config"
	"github.com/shichaoxia/baby-monitor/internal/metrics"
	"github.com/shichaoxia/baby-monitor/pkg/types"
)

func testNotify(baseURL string, keys ...string) config.Notify {
	return config.Notify{
		BarkKeys:       keys,
		BarkBaseURL:    baseURL,
		BarkGroup:      "BabyMonitor",
		RequestTimeout: 2,
	}
}

func TestPushKeySendsExpectedRequest(t *testing.T) {
	var gotPath, gotGroup, gotArchive string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotGroup = r.URL.Query().Get("group")
		gotArchive = r.URL.Query().Get("isArchive")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewBarkPusher(testNotify(srv.URL, "devkey123"))
	err := p.PushKey(context.Background(), "devkey123", "Baby Care Record", "2026-03-01 08:00 Awake")
	if err != nil {
		t.Fatalf("PushKey: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/devkey123/") {
		t.Fatalf("path = %q, want key prefix", gotPath)
	}
	if !strings.Contains(gotPath, "Baby%20Care%20Record") {
		t.Fatalf("title not path-escaped: %q", gotPath)
	}
	if gotGroup != "BabyMonitor" || gotArchive != "1" {
		t.Fatalf("query tags = group=%q isArchive=%q", gotGroup, gotArchive)
	}
}

func TestPushKeyNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewBarkPusher(testNotify(srv.URL, "k"))
	if err := p.PushKey(context.Background(), "k", "t", "b"); err == nil {
		t.Fatalf("expected error for status 403")
	}
}

func TestDispatchPushesAllRecipientsDespiteOneFailure(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)[0]
		mu.Lock()
		seen[key]++
		mu.Unlock()
		if key == "key2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := metrics.New()
	d := New(noopPlayer{}, NewBarkPusher(testNotify(srv.URL, "key1", "key2", "key3")), nil, m)

	d.Dispatch(types.NotificationEvent{
		ID:        "ev1",
		Timestamp: time.Now(),
		Category:  types.GestureOpenPalm,
		Label:     "Awake",
	})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.PushesSent.Load() == 2 && m.PushFailures.Load() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if m.PushesSent.Load() != 2 || m.PushFailures.Load() != 1 {
		t.Fatalf("sent=%d failed=%d, want 2 sent and 1 failed", m.PushesSent.Load(), m.PushFailures.Load())
	}

	mu.Lock()
	defer mu.Unlock()
	for _, key := range []string{"key1", "key2", "key3"} {
		if seen[key] != 1 {
			t.Fatalf("recipient %s received %d requests, want exactly 1", key, seen[key])
		}
	}
}

type blockingPlayer struct {
	release chan struct{}
}

func (p *blockingPlayer) Play(ctx context.Context) error {
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDispatchDoesNotBlockOnSlowAudio(t *testing.T) {
	player := &blockingPlayer{release: make(chan struct{})}
	defer close(player.release)

	m := metrics.New()
	d := New(player, NewBarkPusher(testNotify("http://127.0.0.1:0")), nil, m)

	start := time.Now()
	d.Dispatch(types.NotificationEvent{ID: "ev", Timestamp: time.Now(), Label: "Sleeping"})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Dispatch blocked for %v on a stuck audio player", elapsed)
	}
}

type failingRecorder struct{ called chan struct{} }

func (r *failingRecorder) Append(ctx context.Context, ev types.NotificationEvent) error {
	close(r.called)
	return errors.New("disk full")
}

func TestDispatchJournalFailureIsContained(t *testing.T) {
	rec := &failingRecorder{called: make(chan struct{})}
	m := metrics.New()
	d := New(noopPlayer{}, NewBarkPusher(testNotify("http://127.0.0.1:0")), rec, m)

	d.Dispatch(types.NotificationEvent{ID: "ev", Timestamp: time.Now(), Label: "Feeding"})

	select {
	case <-rec.called:
	case <-time.After(time.Second):
		t.Fatalf("journal recorder never invoked")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && m.JournalFailures.Load() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if m.JournalFailures.Load() != 1 {
		t.Fatalf("JournalFailures = %d, want 1", m.JournalFailures.Load())
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("abcdefghij"); got != "abcde***" {
		t.Fatalf("maskKey = %q", got)
	}
	if got := maskKey("ab"); got != "ab***" {
		t.Fatalf("maskKey short = %q", got)
	}
}
