package timer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/models"
)

// recover reconstructs a room's timer from the durable store. It runs once
// per in-memory incarnation of a room, on the first join that finds no live
// scheduler handle, and carries elapsed-time accounting across process
// restarts.
func (g *Registry) recover(ctx context.Context, room *Room) {
	rec, err := g.store.FindTimer(ctx, room.name)
	if err != nil {
		log.Error().Err(err).Str("room", room.name).Msg("failed to read timer record, starting fresh")
		return
	}

	if rec == nil {
		// True room creation: write the initial record instead of
		// reconstructing one.
		now := g.clock.Now()
		room.mu.Lock()
		initial := g.recordLocked(room, now, nil)
		room.mu.Unlock()
		g.persist(ctx, initial)
		log.Info().Str("room", room.name).Msg("no persisted timer, wrote initial record")
		return
	}

	remaining := rec.RemainingAt(g.clock.Now())
	if remaining < 0 {
		// The countdown expired while no process was hosting the room.
		// Install a zero-length schedule so the first tick runs the expiry
		// branch instead of erroring.
		log.Warn().
			Str("room", room.name).
			Time("end", rec.EndTimestamp).
			Msg("persisted countdown already expired, resolving via expiry")
		remaining = 0
	}

	room.mu.Lock()
	room.paused = rec.IsPaused
	room.breakMode = rec.IsBreak
	room.originalDuration = rec.OriginalDuration
	applyRecordDefaultsLocked(room, rec)
	room.mu.Unlock()

	log.Info().
		Str("room", room.name).
		Int("remaining_sec", remaining).
		Bool("paused", rec.IsPaused).
		Bool("break", rec.IsBreak).
		Msg("recovered timer state from durable store")

	if err := g.StartSchedule(room.name, remaining); err != nil {
		log.Error().Err(err).Str("room", room.name).Msg("failed to restart recovered schedule")
	}
}

// applyRecordDefaultsLocked restores presentation fields, keeping the
// built-in defaults when the record predates them.
func applyRecordDefaultsLocked(room *Room, rec *models.TimerRecord) {
	if rec.WorkTitle != "" {
		room.workTitle = rec.WorkTitle
	}
	if rec.BreakTitle != "" {
		room.breakTitle = rec.BreakTitle
	}
	if len(rec.WorkButtons) > 0 {
		room.workButtons = append([]int(nil), rec.WorkButtons...)
	}
	if len(rec.BreakButtons) > 0 {
		room.breakButtons = append([]int(nil), rec.BreakButtons...)
	}
}
