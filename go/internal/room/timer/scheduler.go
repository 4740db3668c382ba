package timer

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/room/events"
)

// tickHandle is the cancellable periodic-tick resource a running countdown
// owns. Cancel is idempotent and stops the tick goroutine. startDuration is
// the duration this schedule began with; expiry consults it to decide
// whether to flip work/break mode.
type tickHandle struct {
	ticker        clockwork.Ticker
	stop          chan struct{}
	once          sync.Once
	startDuration int
}

func (h *tickHandle) cancel() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.stop)
	})
}

// StartSchedule installs a fresh countdown for a room: it cancels any live
// tick handle, resets the heartbeat counter, sets secondsRemaining and
// immediately broadcasts one synchronous state snapshot before the first
// tick elapses. A duration at or below zero still installs the handle so the
// first tick runs the expiry branch (restart recovery depends on this).
//
// Precondition violations (unknown room, missing broadcaster) report an
// error and mutate nothing.
func (g *Registry) StartSchedule(roomName string, durationSeconds int) error {
	room := g.lookup(roomName)
	if room == nil {
		log.Error().Str("room", roomName).Msg("cannot start schedule: room does not exist")
		return ErrRoomNotFound
	}
	if g.broadcaster == nil {
		log.Error().Str("room", roomName).Msg("cannot start schedule: no broadcaster")
		return ErrNoBroadcaster
	}

	room.mu.Lock()
	snap := g.startScheduleLocked(room, durationSeconds)
	room.mu.Unlock()

	g.broadcastRoom(roomName, events.New(roomName, events.EventTypeTimerResponse, snap.payload()))
	return nil
}

// startScheduleLocked does the actual handle swap. Callers hold room.mu and
// must broadcast the returned snapshot after unlocking.
func (g *Registry) startScheduleLocked(room *Room, durationSeconds int) Snapshot {
	if room.sched != nil {
		room.sched.cancel()
		room.sched = nil
	}

	if durationSeconds < 0 {
		durationSeconds = 0
	}

	room.heartbeatTicks = 0
	room.secondsRemaining = durationSeconds
	room.running = durationSeconds > 0
	room.notifyChangedLocked()

	handle := &tickHandle{
		ticker:        g.clock.NewTicker(g.cfg.TickInterval),
		stop:          make(chan struct{}),
		startDuration: durationSeconds,
	}
	room.sched = handle

	go g.runTicks(room, handle)

	log.Debug().
		Str("room", room.name).
		Int("duration_sec", durationSeconds).
		Msg("installed countdown schedule")

	return room.snapshotLocked()
}

// runTicks drives one countdown until its handle is cancelled or the
// countdown expires.
func (g *Registry) runTicks(room *Room, handle *tickHandle) {
	for {
		select {
		case <-handle.stop:
			return
		case <-handle.ticker.Chan():
			g.tick(room, handle)
		}
	}
}

// tick advances one room by one second of wall-clock time.
func (g *Registry) tick(room *Room, handle *tickHandle) {
	room.mu.Lock()

	// A newer schedule may have replaced this handle between the ticker
	// firing and us taking the lock. Stale ticks must not touch state.
	if room.sched != handle {
		room.mu.Unlock()
		return
	}

	// Pause freezes the clock entirely: no decrement, no broadcast.
	if room.paused {
		room.mu.Unlock()
		return
	}

	// Zero-length schedules (mode-switch pulses, already-expired
	// recoveries) hit this on their first tick.
	if room.secondsRemaining <= 0 {
		g.expireLocked(room, handle)
		return
	}

	room.secondsRemaining--
	room.running = true
	room.heartbeatTicks++
	room.notifyChangedLocked()

	if room.secondsRemaining <= 0 {
		g.expireLocked(room, handle)
		return
	}

	heartbeat := room.secondsRemaining > g.cfg.HeartbeatQuietWindow &&
		room.heartbeatTicks%g.cfg.HeartbeatEvery == 0
	snap := room.snapshotLocked()
	room.mu.Unlock()

	if heartbeat {
		g.broadcastRoom(room.name, events.New(room.name, events.EventTypeTimerResponse, snap.payload()))
	}
}

// expireLocked runs the terminal branch of a countdown exactly once per
// run: releases the tick handle, clamps to zero and, for real countdowns
// (above the flip threshold), flips work/break mode and fans out the
// end-of-timer notifications. Expiry never auto-starts the next countdown;
// it only flips the flag and updates the display title.
//
// Called with room.mu held; unlocks before broadcasting.
func (g *Registry) expireLocked(room *Room, handle *tickHandle) {
	handle.cancel()
	room.sched = nil
	if room.secondsRemaining != 0 {
		room.secondsRemaining = 0
		room.notifyChangedLocked()
	}
	room.running = false

	startDuration := handle.startDuration
	endedBreak := room.breakMode
	flipped := startDuration > g.cfg.BreakFlipThreshold
	if flipped {
		room.breakMode = !room.breakMode
	}
	title := room.currentTitleLocked()
	snap := room.snapshotLocked()
	room.mu.Unlock()

	g.broadcastRoom(room.name, events.New(room.name, events.EventTypeTimerResponse, snap.payload()))

	if !flipped {
		return
	}

	log.Info().
		Str("room", room.name).
		Int("duration_sec", startDuration).
		Bool("ended_break", endedBreak).
		Msg("countdown ended, mode flipped")

	g.broadcastRoom(room.name, events.New(room.name, events.EventTypeEndTimer, events.EndTimerPayload{IsBreakMode: endedBreak}))
	g.broadcastRoom(room.name, events.New(room.name, events.EventTypeUpdatedTitle, events.UpdatedTitlePayload{Title: title}))
	g.relay.Publish(events.New(room.name, events.EventTypeCountdownEnded, events.CountdownEndedPayload{
		DurationInSeconds: startDuration,
		IsBreakMode:       endedBreak,
	}))

	// The message log write hits the database; keep it off the tick path.
	go g.chat.CountdownEnded(context.Background(), room.name, startDuration)
}
