package timer

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// reapHandle is the cancellable scheduled-teardown resource an empty room
// owns. Cancellation is idempotent and stop-and-drains the timer so the
// wait goroutine never leaks.
type reapHandle struct {
	timer clockwork.Timer
	stop  chan struct{}
	once  sync.Once
}

func (h *reapHandle) cancel() {
	h.once.Do(func() {
		stopAndDrainTimer(h.timer)
		close(h.stop)
	})
}

// stopAndDrainTimer stops a timer and drains its channel if it already
// fired, per the time.Timer.Stop documentation.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

// armReapLocked schedules teardown of an empty room after the configured
// delay. Any previously pending teardown is replaced. Callers hold room.mu.
func (g *Registry) armReapLocked(room *Room) {
	if room.reap != nil {
		room.reap.cancel()
	}

	handle := &reapHandle{
		timer: g.clock.NewTimer(g.cfg.ReapDelay),
		stop:  make(chan struct{}),
	}
	room.reap = handle

	log.Info().
		Str("room", room.name).
		Dur("delay", g.cfg.ReapDelay).
		Msg("room empty, teardown scheduled")

	go func() {
		select {
		case <-handle.timer.Chan():
			g.teardown(room.name, handle)
		case <-handle.stop:
		}
	}()
}

// cancelReapLocked disarms a pending teardown, if any. Callers hold room.mu.
func (r *Room) cancelReapLocked() {
	if r.reap == nil {
		return
	}
	r.reap.cancel()
	r.reap = nil
	log.Info().Str("room", r.name).Msg("cancelled pending room teardown")
}

// teardown destroys a room's timer state: the scheduler handle is cancelled
// first, then the entry leaves the registry. Idempotent; firing against an
// already-deleted room logs and no-ops.
func (g *Registry) teardown(roomName string, handle *reapHandle) {
	g.mu.Lock()
	room, ok := g.rooms[roomName]
	if !ok {
		g.mu.Unlock()
		log.Warn().Str("room", roomName).Msg("teardown fired for missing room")
		return
	}

	room.mu.Lock()
	if room.reap != handle {
		// A rejoin swapped in new state after this timer fired.
		room.mu.Unlock()
		g.mu.Unlock()
		log.Debug().Str("room", roomName).Msg("teardown superseded, skipping")
		return
	}
	if room.sched != nil {
		room.sched.cancel()
		room.sched = nil
	}
	room.reap = nil
	room.mu.Unlock()

	delete(g.rooms, roomName)
	g.mu.Unlock()

	log.Info().Str("room", roomName).Msg("destroyed idle room timer state")
}
