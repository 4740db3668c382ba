package timer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/models"
	"github.com/communityfocus/focusd/go/internal/room/events"
)

// Lifecycle operations. Every entry point validates its room, treats
// violations as logged no-ops and never lets one room's failure reach
// another. Persistence writes happen before the scheduler (re)start so the
// per-second tick path never waits on the store.

// StartCountdown begins a fresh countdown: clears pause, records the
// duration for later resets, persists the new end timestamp, logs the start
// to the room's message log and hands the room to the scheduler.
func (g *Registry) StartCountdown(ctx context.Context, roomName string, durationSeconds int) error {
	room, err := g.validRoom(roomName, "start countdown")
	if err != nil {
		return err
	}
	if durationSeconds < 0 {
		log.Error().Str("room", roomName).Int("duration_sec", durationSeconds).Msg("start countdown rejected: invalid duration")
		return ErrInvalidDuration
	}

	now := g.clock.Now()
	room.mu.Lock()
	room.paused = false
	room.originalDuration = durationSeconds
	rec := g.recordLocked(room, now.Add(time.Duration(durationSeconds)*time.Second), nil)
	room.mu.Unlock()

	g.persist(ctx, rec)
	go g.chat.CountdownStarted(context.WithoutCancel(ctx), roomName, durationSeconds)
	g.relay.Publish(events.New(roomName, events.EventTypeCountdownStarted, events.CountdownStartedPayload{
		DurationInSeconds: durationSeconds,
		IsBreakMode:       rec.IsBreak,
	}))

	return g.StartSchedule(roomName, durationSeconds)
}

// TogglePause flips the paused flag. Pausing records the pause moment;
// resuming recomputes a fresh end timestamp from the frozen remainder.
// Either way the scheduler restarts with the current remainder, which
// re-establishes a clean single tick handle and heartbeat counter, and the
// requesting client gets an immediate single-shot sync.
func (g *Registry) TogglePause(ctx context.Context, roomName, clientID string) error {
	room, err := g.validRoom(roomName, "toggle pause")
	if err != nil {
		return err
	}

	now := g.clock.Now()
	room.mu.Lock()
	room.paused = !room.paused
	remaining := room.secondsRemaining
	end := now.Add(time.Duration(remaining) * time.Second)
	var pausedAt *time.Time
	if room.paused {
		pausedAt = &now
	}
	rec := g.recordLocked(room, end, pausedAt)
	paused := room.paused
	room.mu.Unlock()

	log.Info().Str("room", roomName).Bool("paused", paused).Int("remaining_sec", remaining).Msg("toggled pause")

	g.persist(ctx, rec)
	if err := g.StartSchedule(roomName, remaining); err != nil {
		return err
	}
	go g.TimerRequest(context.WithoutCancel(ctx), roomName, clientID)
	return nil
}

// ResetCountdown clears pause and restarts the scheduler from the duration
// the current countdown originally began with.
func (g *Registry) ResetCountdown(ctx context.Context, roomName, clientID string) error {
	room, err := g.validRoom(roomName, "reset countdown")
	if err != nil {
		return err
	}

	now := g.clock.Now()
	room.mu.Lock()
	room.paused = false
	duration := room.originalDuration
	rec := g.recordLocked(room, now.Add(time.Duration(duration)*time.Second), nil)
	room.mu.Unlock()

	log.Info().Str("room", roomName).Int("duration_sec", duration).Msg("reset countdown")

	g.persist(ctx, rec)
	if err := g.StartSchedule(roomName, duration); err != nil {
		return err
	}
	go g.TimerRequest(context.WithoutCancel(ctx), roomName, clientID)
	return nil
}

// SwitchMode sets the work/break flag explicitly, announces the change and
// runs a zero-length pulse through the scheduler. The pulse exists to force
// a clean handle reset and a state broadcast; it expires immediately and,
// being below the flip threshold, cannot flip the mode a second time.
func (g *Registry) SwitchMode(ctx context.Context, roomName string, toBreak bool, userName string) error {
	room, err := g.validRoom(roomName, "switch mode")
	if err != nil {
		return err
	}

	now := g.clock.Now()
	room.mu.Lock()
	room.breakMode = toBreak
	room.paused = false
	title := room.currentTitleLocked()
	rec := g.recordLocked(room, now, nil)
	room.mu.Unlock()

	log.Info().Str("room", roomName).Bool("break", toBreak).Str("user", userName).Msg("switched timer mode")

	g.broadcastRoom(roomName, events.New(roomName, events.EventTypeModeChanged, events.ModeChangedPayload{IsBreakMode: toBreak}))
	g.broadcastRoom(roomName, events.New(roomName, events.EventTypeUpdatedTitle, events.UpdatedTitlePayload{Title: title}))
	g.relay.Publish(events.New(roomName, events.EventTypeModeSwitched, events.ModeSwitchedPayload{
		IsBreakMode: toBreak,
		UserName:    userName,
	}))

	g.persist(ctx, rec)
	return g.StartSchedule(roomName, 0)
}

// validRoom resolves a room for a lifecycle operation, rejecting reserved
// names and rooms with no live state.
func (g *Registry) validRoom(roomName, op string) (*Room, error) {
	if roomName == ReservedRoom {
		log.Error().Str("room", roomName).Str("op", op).Msg("rejected operation on reserved room")
		return nil, ErrReservedRoom
	}
	room := g.lookup(roomName)
	if room == nil {
		log.Error().Str("room", roomName).Str("op", op).Msg("rejected operation: room does not exist")
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// recordLocked builds the durable record from the room's current state.
// Callers hold room.mu.
func (g *Registry) recordLocked(room *Room, end time.Time, pausedAt *time.Time) models.TimerRecord {
	return models.TimerRecord{
		RoomName:         room.name,
		IsPaused:         room.paused,
		IsBreak:          room.breakMode,
		EndTimestamp:     end,
		PausedAt:         pausedAt,
		OriginalDuration: room.originalDuration,
		WorkTitle:        room.workTitle,
		BreakTitle:       room.breakTitle,
		WorkButtons:      append([]int(nil), room.workButtons...),
		BreakButtons:     append([]int(nil), room.breakButtons...),
		UpdatedAt:        g.clock.Now(),
	}
}

// persist writes a record to the durable store, logging failures. A failed
// write never blocks the in-memory lifecycle.
func (g *Registry) persist(ctx context.Context, rec models.TimerRecord) {
	if err := g.store.UpsertTimer(ctx, rec); err != nil {
		log.Error().Err(err).Str("room", rec.RoomName).Msg("failed to persist timer record")
	}
}
