package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRoomTornDownAfterDelay(t *testing.T) {
	h := newHarness(t)
	h.join(t, "quartz", "ada")
	require.True(t, h.registry.Has("quartz"))

	h.registry.Leave("quartz", "ada")
	require.True(t, h.registry.Has("quartz"), "teardown is delayed, not immediate")

	h.clock.Advance(h.registry.cfg.ReapDelay)
	waitFor(t, waitTimeout, func() bool { return !h.registry.Has("quartz") },
		"empty room was never torn down")
}

func TestTeardownWaitsFullDelay(t *testing.T) {
	h := newHarness(t)
	h.join(t, "quartz", "ada")
	h.registry.Leave("quartz", "ada")

	h.clock.Advance(h.registry.cfg.ReapDelay - time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.registry.Has("quartz"))

	h.clock.Advance(time.Second)
	waitFor(t, waitTimeout, func() bool { return !h.registry.Has("quartz") },
		"room survived past the teardown delay")
}

func TestRejoinCancelsTeardown(t *testing.T) {
	h := newHarness(t)
	h.join(t, "quartz", "ada")
	h.registry.Leave("quartz", "ada")

	h.join(t, "quartz", "bo")

	h.clock.Advance(2 * h.registry.cfg.ReapDelay)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.registry.Has("quartz"), "rejoin must cancel the pending teardown")
	assert.Equal(t, 1, h.registry.Participants("quartz"))
}

func TestTeardownReleasesLiveScheduler(t *testing.T) {
	h := newHarness(t)
	h.join(t, "quartz", "ada")
	require.NoError(t, h.registry.StartCountdown(context.Background(), "quartz", 3600))

	room := h.registry.lookup("quartz")
	require.NotNil(t, room)
	room.mu.Lock()
	handle := room.sched
	room.mu.Unlock()
	require.NotNil(t, handle)

	h.registry.Leave("quartz", "ada")
	h.clock.Advance(h.registry.cfg.ReapDelay)
	waitFor(t, waitTimeout, func() bool { return !h.registry.Has("quartz") },
		"room with live countdown was never torn down")

	select {
	case <-handle.stop:
	case <-time.After(waitTimeout):
		t.Fatal("teardown did not cancel the tick handle")
	}
}

func TestLeaveOnlyArmsReaperWhenRoomEmpties(t *testing.T) {
	h := newHarness(t)
	h.join(t, "quartz", "ada")
	h.join(t, "quartz", "bo")

	h.registry.Leave("quartz", "ada")
	h.clock.Advance(2 * h.registry.cfg.ReapDelay)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.registry.Has("quartz"), "occupied room must never be reaped")
	assert.Equal(t, 1, h.registry.Participants("quartz"))
}

func TestTeardownOfMissingRoomIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.join(t, "quartz", "ada")
	h.registry.Leave("quartz", "ada")

	room := h.registry.lookup("quartz")
	require.NotNil(t, room)
	room.mu.Lock()
	handle := room.reap
	room.mu.Unlock()
	require.NotNil(t, handle)

	h.clock.Advance(h.registry.cfg.ReapDelay)
	waitFor(t, waitTimeout, func() bool { return !h.registry.Has("quartz") },
		"room was never torn down")

	// A second fire against the already-deleted room must not panic or
	// resurrect anything.
	assert.NotPanics(t, func() {
		h.registry.teardown("quartz", handle)
	})
	assert.False(t, h.registry.Has("quartz"))
}

func TestLeaveUnknownRoomIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.registry.Leave("nowhere", "ada")
	assert.False(t, h.registry.Has("nowhere"))
}

func TestLeaveRemovesFirstMatchingParticipant(t *testing.T) {
	h := newHarness(t)
	h.join(t, "quartz", "ada")
	h.join(t, "quartz", "ada")

	h.registry.Leave("quartz", "ada")
	assert.Equal(t, 1, h.registry.Participants("quartz"))
	assert.True(t, h.registry.Has("quartz"))
}
