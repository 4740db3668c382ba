package timer

import (
	"sync"

	"github.com/communityfocus/focusd/go/internal/models"
	"github.com/communityfocus/focusd/go/internal/room/events"
)

// Room is the authoritative in-memory timer state for one room. Exactly one
// instance exists per active room, owned by the Registry. All fields are
// guarded by mu; the scheduler, lifecycle operations and the reaper mutate
// them under that lock only.
type Room struct {
	mu   sync.Mutex
	name string

	// participants in join order. Duplicates are distinct connections;
	// removal drops the first matching occurrence.
	participants []string

	// sched is the at-most-one live periodic tick handle. Starting a new
	// countdown cancels the previous handle before installing its own.
	sched *tickHandle

	// reap is the at-most-one pending teardown handle, present only while
	// the room is empty.
	reap *reapHandle

	secondsRemaining int
	paused           bool
	breakMode        bool
	running          bool
	originalDuration int
	heartbeatTicks   int

	workTitle    string
	breakTitle   string
	workButtons  []int
	breakButtons []int

	// recovered is set after the durable store has been consulted once for
	// this in-memory incarnation of the room.
	recovered bool

	// changed is closed and replaced whenever secondsRemaining moves, so a
	// single-shot sync request can wait for the next observable change
	// without polling.
	changed chan struct{}
}

func newRoom(name string) *Room {
	return &Room{
		name:         name,
		participants: []string{},
		workTitle:    models.DefaultWorkTitle,
		breakTitle:   models.DefaultBreakTitle,
		workButtons:  append([]int(nil), models.DefaultWorkButtons...),
		breakButtons: append([]int(nil), models.DefaultBreakButtons...),
		changed:      make(chan struct{}),
	}
}

// notifyChangedLocked wakes every waiter observing secondsRemaining.
// Callers must hold r.mu.
func (r *Room) notifyChangedLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// currentTitleLocked returns the display title for the room's current mode.
func (r *Room) currentTitleLocked() string {
	if r.breakMode {
		return r.breakTitle
	}
	return r.workTitle
}

// Snapshot is a point-in-time copy of the observable timer state.
type Snapshot struct {
	SecondsRemaining int
	IsPaused         bool
	IsRunning        bool
	IsBreak          bool
}

func (r *Room) snapshotLocked() Snapshot {
	return Snapshot{
		SecondsRemaining: r.secondsRemaining,
		IsPaused:         r.paused,
		IsRunning:        r.running,
		IsBreak:          r.breakMode,
	}
}

// Snapshot returns the room's current observable state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (s Snapshot) payload() events.TimerResponsePayload {
	return events.TimerResponsePayload{
		SecondsRemaining: s.SecondsRemaining,
		IsPaused:         s.IsPaused,
		IsTimerRunning:   s.IsRunning,
		IsBreakMode:      s.IsBreak,
	}
}
