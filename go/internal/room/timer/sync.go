package timer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/room/events"
)

// TimerRequest answers one client's "what is the current state" query with
// at most one timerResponse, without perturbing the running scheduler.
//
// Missing rooms get an immediate zeroed snapshot. Paused or idle rooms get
// an immediate snapshot of what is there, since nothing can change without
// an explicit lifecycle call. A running room answers on the first observed
// change of secondsRemaining, which the next tick bounds at one tick
// interval. This is single-shot: the client re-requests for further
// updates.
func (g *Registry) TimerRequest(ctx context.Context, roomName, clientID string) {
	room := g.lookup(roomName)
	if room == nil {
		log.Warn().Str("room", roomName).Msg("timer request for unknown room, answering with defaults")
		g.broadcastClient(roomName, clientID, events.New(roomName, events.EventTypeTimerResponse, events.TimerResponsePayload{}))
		return
	}

	room.mu.Lock()
	if room.paused || room.sched == nil || room.secondsRemaining <= 0 {
		snap := room.snapshotLocked()
		room.mu.Unlock()
		g.broadcastClient(roomName, clientID, events.New(roomName, events.EventTypeTimerResponse, snap.payload()))
		return
	}
	changed := room.changed
	room.mu.Unlock()

	select {
	case <-ctx.Done():
		return
	case <-changed:
	}

	snap := room.Snapshot()
	g.broadcastClient(roomName, clientID, events.New(roomName, events.EventTypeTimerResponse, snap.payload()))
}
