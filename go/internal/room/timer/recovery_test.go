package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityfocus/focusd/go/internal/models"
)

func TestRecoveryRestoresRunningCountdown(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()
	h.store.put(models.TimerRecord{
		RoomName:         "quartz",
		EndTimestamp:     now.Add(300 * time.Second),
		OriginalDuration: 600,
		UpdatedAt:        now,
	})

	h.join(t, "quartz", "ada")

	snap := h.snapshot(t, "quartz")
	assert.Equal(t, 300, snap.SecondsRemaining)
	assert.False(t, snap.IsPaused)
	assert.True(t, h.schedulerLive("quartz"))

	h.tickN("quartz", 10)
	assert.Equal(t, 290, h.snapshot(t, "quartz").SecondsRemaining)

	room := h.registry.lookup("quartz")
	room.mu.Lock()
	original := room.originalDuration
	room.mu.Unlock()
	assert.Equal(t, 600, original)
}

func TestRecoveryRestoresPausedCountdown(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()
	pausedAt := now.Add(-40 * time.Second)
	h.store.put(models.TimerRecord{
		RoomName:     "quartz",
		IsPaused:     true,
		EndTimestamp: pausedAt.Add(90 * time.Second),
		PausedAt:     &pausedAt,
		UpdatedAt:    pausedAt,
	})

	h.join(t, "quartz", "ada")

	// The remainder is measured against the pause moment, so wall time spent
	// down does not erode a paused countdown.
	snap := h.snapshot(t, "quartz")
	assert.Equal(t, 90, snap.SecondsRemaining)
	assert.True(t, snap.IsPaused)

	h.tickN("quartz", 30)
	assert.Equal(t, 90, h.snapshot(t, "quartz").SecondsRemaining)
}

func TestRecoveryOfExpiredCountdownResolvesViaExpiry(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()
	h.store.put(models.TimerRecord{
		RoomName:         "quartz",
		EndTimestamp:     now.Add(-5 * time.Minute),
		OriginalDuration: 1500,
		UpdatedAt:        now.Add(-30 * time.Minute),
	})

	h.join(t, "quartz", "ada")

	require.True(t, h.schedulerLive("quartz"))
	h.tickN("quartz", 1)

	snap := h.snapshot(t, "quartz")
	assert.Equal(t, 0, snap.SecondsRemaining)
	assert.False(t, h.schedulerLive("quartz"))
	assert.False(t, snap.IsBreak, "stale expiry resolves quietly, without a mode flip")
}

func TestRecoveryRestoresModeAndPresentation(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()
	h.store.put(models.TimerRecord{
		RoomName:     "quartz",
		IsBreak:      true,
		EndTimestamp: now.Add(120 * time.Second),
		WorkTitle:    "Deep Work",
		BreakTitle:   "Coffee",
		WorkButtons:  []int{1500, 3000},
		BreakButtons: []int{300},
		UpdatedAt:    now,
	})

	h.join(t, "quartz", "ada")

	snap := h.snapshot(t, "quartz")
	assert.True(t, snap.IsBreak)

	room := h.registry.lookup("quartz")
	room.mu.Lock()
	defer room.mu.Unlock()
	assert.Equal(t, "Deep Work", room.workTitle)
	assert.Equal(t, "Coffee", room.breakTitle)
	assert.Equal(t, []int{1500, 3000}, room.workButtons)
	assert.Equal(t, []int{300}, room.breakButtons)
}

func TestFirstJoinOfNewRoomWritesInitialRecord(t *testing.T) {
	h := newHarness(t)

	h.join(t, "quartz", "ada")

	rec, ok := h.store.get("quartz")
	require.True(t, ok, "expected an initial record for a brand-new room")
	assert.Equal(t, models.DefaultWorkTitle, rec.WorkTitle)
	assert.Equal(t, models.DefaultBreakTitle, rec.BreakTitle)
	assert.False(t, h.schedulerLive("quartz"), "a new room has nothing to resume")
}

func TestRecoveryRunsOncePerIncarnation(t *testing.T) {
	h := newHarness(t)
	h.join(t, "quartz", "ada")
	require.False(t, h.schedulerLive("quartz"))

	// A record appearing after the first consult must not be picked up by
	// later joins into the same live room.
	h.store.put(models.TimerRecord{
		RoomName:     "quartz",
		EndTimestamp: h.clock.Now().Add(500 * time.Second),
		UpdatedAt:    h.clock.Now(),
	})

	h.join(t, "quartz", "bo")
	assert.False(t, h.schedulerLive("quartz"))
	assert.Equal(t, 0, h.snapshot(t, "quartz").SecondsRemaining)
}

func TestRecoveryStoreFailureStartsFresh(t *testing.T) {
	h := newHarness(t)
	h.store.mu.Lock()
	h.store.fail = assert.AnError
	h.store.mu.Unlock()

	h.join(t, "quartz", "ada")

	assert.True(t, h.registry.Has("quartz"))
	assert.False(t, h.schedulerLive("quartz"))
	assert.Equal(t, 0, h.snapshot(t, "quartz").SecondsRemaining)
}
