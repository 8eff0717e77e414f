package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	categories := []types.Gesture{types.GestureClosedFist, types.GestureOpenPalm, types.GestureThumbUp}
	for i, cat := range categories {
		ev := types.NotificationEvent{
			ID:        uuid.New().String(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Category:  cat,
			Label:     "label-" + string(cat),
		}
		if err := store.Append(ctx, ev); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	entries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(entries))
	}
	if entries[0].Category != string(types.GestureThumbUp) {
		t.Fatalf("newest entry = %q, want Thumb_Up first", entries[0].Category)
	}
	if entries[1].Category != string(types.GestureOpenPalm) {
		t.Fatalf("second entry = %q, want Open_Palm", entries[1].Category)
	}
	if !entries[0].EmittedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("timestamp round-trip got %v", entries[0].EmittedAt)
	}
}

func TestRecentOnEmptyJournal(t *testing.T) {
	store := openTestStore(t)
	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("empty journal returned %d entries", len(entries))
	}
}
