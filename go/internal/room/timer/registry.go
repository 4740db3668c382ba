package timer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/models"
	"github.com/communityfocus/focusd/go/internal/room/events"
)

// ReservedRoom is the placeholder room clients land in before choosing a
// real one. Every lifecycle operation rejects it.
const ReservedRoom = "default"

// Broadcaster delivers outbound events to connected clients. The registry
// never blocks on it; implementations must accept events without waiting.
type Broadcaster interface {
	BroadcastToRoom(roomName string, event *events.Event)
	BroadcastToClient(roomName, clientID string, event *events.Event)
}

// Store is the durable key-value contract the core depends on for
// crash/restart recovery. Reads and writes happen off the tick path.
type Store interface {
	FindTimer(ctx context.Context, roomName string) (*models.TimerRecord, error)
	UpsertTimer(ctx context.Context, rec models.TimerRecord) error
}

// ChatLog is the message-log collaborator. Calls may perform slow I/O; the
// scheduler invokes them on their own goroutine, never on the tick path.
type ChatLog interface {
	CountdownStarted(ctx context.Context, roomName string, durationSeconds int)
	CountdownEnded(ctx context.Context, roomName string, durationSeconds int)
}

// Relay publishes room lifecycle events for out-of-process consumers.
// Delivery is at-most-once; failures are the relay's problem to log.
type Relay interface {
	Publish(event *events.Event)
}

// Config holds the timer core tunables.
type Config struct {
	// TickInterval is the scheduler cadence. One second in production;
	// tests keep it at one second too and drive a fake clock instead.
	TickInterval time.Duration

	// HeartbeatEvery is the tick modulus for redundant state broadcasts.
	HeartbeatEvery int

	// HeartbeatQuietWindow suppresses heartbeats once secondsRemaining is
	// at or below this value, so no late heartbeat can jump the final
	// countdown a client renders locally.
	HeartbeatQuietWindow int

	// BreakFlipThreshold: a countdown must have started above this many
	// seconds for natural expiry to flip work/break mode. Zero-length
	// pulses from explicit mode switches stay below it.
	BreakFlipThreshold int

	// ReapDelay is how long an empty room survives before teardown.
	ReapDelay time.Duration
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		TickInterval:         time.Second,
		HeartbeatEvery:       10,
		HeartbeatQuietWindow: 20,
		BreakFlipThreshold:   1,
		ReapDelay:            2 * time.Minute,
	}
}

// Registry owns the process-wide room-name to timer-state mapping and every
// operation that drives it: the per-room tick scheduler, the lifecycle
// operations, single-shot sync responses, idle-room reaping and restart
// recovery.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg         Config
	clock       clockwork.Clock
	broadcaster Broadcaster
	store       Store
	chat        ChatLog
	relay       Relay
}

// NewRegistry wires up a registry. broadcaster may be nil, in which case
// every schedule start degrades to a logged no-op per the error contract.
// store, chat and relay may be nil and are replaced with no-ops.
func NewRegistry(cfg Config, clock clockwork.Clock, broadcaster Broadcaster, store Store, chat ChatLog, relay Relay) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if store == nil {
		store = noopStore{}
	}
	if chat == nil {
		chat = noopChatLog{}
	}
	if relay == nil {
		relay = noopRelay{}
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		cfg:         cfg,
		clock:       clock,
		broadcaster: broadcaster,
		store:       store,
		chat:        chat,
		relay:       relay,
	}
}

// lookup returns the live room state, or nil.
func (g *Registry) lookup(roomName string) *Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rooms[roomName]
}

// getOrCreate lazily creates room state with defaults on first reference.
func (g *Registry) getOrCreate(roomName string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok := g.rooms[roomName]; ok {
		return room
	}
	room := newRoom(roomName)
	g.rooms[roomName] = room
	log.Debug().Str("room", roomName).Msg("created room timer state")
	return room
}

// Rooms returns the names of all live rooms.
func (g *Registry) Rooms() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.rooms))
	for name := range g.rooms {
		names = append(names, name)
	}
	return names
}

// Has reports whether a room currently holds live state.
func (g *Registry) Has(roomName string) bool {
	return g.lookup(roomName) != nil
}

// Join registers a participant, lazily creating room state, cancelling any
// pending teardown and reconstructing state from the durable store when no
// live scheduler exists for the room.
func (g *Registry) Join(ctx context.Context, roomName, userName string) error {
	if roomName == "" {
		log.Error().Msg("join rejected: empty room name")
		return ErrRoomNotFound
	}
	if roomName == ReservedRoom {
		return ErrReservedRoom
	}

	room := g.getOrCreate(roomName)

	room.mu.Lock()
	room.cancelReapLocked()
	room.participants = append(room.participants, userName)
	count := len(room.participants)
	needsRecovery := room.sched == nil && !room.recovered
	if needsRecovery {
		room.recovered = true
	}
	room.mu.Unlock()

	log.Info().Str("room", roomName).Str("user", userName).Int("users", count).Msg("user joined room")
	g.broadcastRoom(roomName, events.New(roomName, events.EventTypeUsersInRoom, events.UsersInRoomPayload{Count: count}))

	if needsRecovery {
		g.recover(ctx, room)
	}
	return nil
}

// Leave removes the first matching participant and arms the reaper when the
// room empties out.
func (g *Registry) Leave(roomName, userName string) {
	room := g.lookup(roomName)
	if room == nil || roomName == ReservedRoom {
		return
	}

	room.mu.Lock()
	for i, p := range room.participants {
		if p == userName {
			room.participants = append(room.participants[:i], room.participants[i+1:]...)
			break
		}
	}
	count := len(room.participants)
	if count == 0 {
		g.armReapLocked(room)
	}
	room.mu.Unlock()

	log.Info().Str("room", roomName).Str("user", userName).Int("users", count).Msg("user left room")
	g.broadcastRoom(roomName, events.New(roomName, events.EventTypeUsersInRoom, events.UsersInRoomPayload{Count: count}))
}

// Participants returns the current participant count for a room.
func (g *Registry) Participants(roomName string) int {
	room := g.lookup(roomName)
	if room == nil {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.participants)
}

func (g *Registry) broadcastRoom(roomName string, event *events.Event) {
	if g.broadcaster == nil {
		return
	}
	g.broadcaster.BroadcastToRoom(roomName, event)
}

func (g *Registry) broadcastClient(roomName, clientID string, event *events.Event) {
	if g.broadcaster == nil {
		return
	}
	g.broadcaster.BroadcastToClient(roomName, clientID, event)
}

type noopStore struct{}

func (noopStore) FindTimer(context.Context, string) (*models.TimerRecord, error) { return nil, nil }
func (noopStore) UpsertTimer(context.Context, models.TimerRecord) error          { return nil }

type noopChatLog struct{}

func (noopChatLog) CountdownStarted(context.Context, string, int) {}
func (noopChatLog) CountdownEnded(context.Context, string, int)   {}

type noopRelay struct{}

func (noopRelay) Publish(*events.Event) {}
