package timer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/communityfocus/focusd/go/internal/models"
	"github.com/communityfocus/focusd/go/internal/room/events"
)

// Test doubles for the registry's collaborators. Scheduler goroutines stay
// parked on the fake clock, so tests drive ticks by calling tick directly
// and advance the fake clock only when a real timer (the reaper) should
// fire.

const waitTimeout = 2 * time.Second

type clientEvent struct {
	clientID string
	event    *events.Event
}

type fakeBroadcaster struct {
	mu           sync.Mutex
	roomEvents   []*events.Event
	clientEvents []clientEvent
}

func (b *fakeBroadcaster) BroadcastToRoom(roomName string, event *events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roomEvents = append(b.roomEvents, event)
}

func (b *fakeBroadcaster) BroadcastToClient(roomName, clientID string, event *events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clientEvents = append(b.clientEvents, clientEvent{clientID: clientID, event: event})
}

func (b *fakeBroadcaster) roomEventsOfType(t events.EventType) []*events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*events.Event
	for _, e := range b.roomEvents {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (b *fakeBroadcaster) clientEventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clientEvents)
}

func (b *fakeBroadcaster) lastClientEvent() *clientEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.clientEvents) == 0 {
		return nil
	}
	ev := b.clientEvents[len(b.clientEvents)-1]
	return &ev
}

type fakeStore struct {
	mu      sync.Mutex
	records map[string]models.TimerRecord
	fail    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]models.TimerRecord)}
}

func (s *fakeStore) FindTimer(_ context.Context, roomName string) (*models.TimerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	rec, ok := s.records[roomName]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *fakeStore) UpsertTimer(_ context.Context, rec models.TimerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.records[rec.RoomName] = rec
	return nil
}

func (s *fakeStore) put(rec models.TimerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.RoomName] = rec
}

func (s *fakeStore) get(roomName string) (models.TimerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[roomName]
	return rec, ok
}

type fakeChatLog struct {
	mu      sync.Mutex
	started []int
	ended   []int
}

func (c *fakeChatLog) CountdownStarted(_ context.Context, _ string, durationSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, durationSeconds)
}

func (c *fakeChatLog) CountdownEnded(_ context.Context, _ string, durationSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = append(c.ended, durationSeconds)
}

func (c *fakeChatLog) endedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ended)
}

type testHarness struct {
	registry    *Registry
	clock       *clockwork.FakeClock
	broadcaster *fakeBroadcaster
	store       *fakeStore
	chat        *fakeChatLog
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	broadcaster := &fakeBroadcaster{}
	store := newFakeStore()
	chat := &fakeChatLog{}
	cfg := DefaultConfig()
	return &testHarness{
		registry:    NewRegistry(cfg, clock, broadcaster, store, chat, nil),
		clock:       clock,
		broadcaster: broadcaster,
		store:       store,
		chat:        chat,
	}
}

// join adds a participant without exercising recovery against persisted
// state (the default store has none).
func (h *testHarness) join(t *testing.T, roomName, userName string) {
	t.Helper()
	if err := h.registry.Join(context.Background(), roomName, userName); err != nil {
		t.Fatalf("join %s: %v", roomName, err)
	}
}

// tickN runs n scheduler ticks synchronously. The background tick
// goroutine never observes fake-clock ticks in these tests, so driving the
// shared tick path directly keeps every assertion deterministic.
func (h *testHarness) tickN(roomName string, n int) {
	for i := 0; i < n; i++ {
		room := h.registry.lookup(roomName)
		if room == nil {
			return
		}
		room.mu.Lock()
		handle := room.sched
		room.mu.Unlock()
		if handle == nil {
			return
		}
		h.registry.tick(room, handle)
	}
}

func (h *testHarness) snapshot(t *testing.T, roomName string) Snapshot {
	t.Helper()
	room := h.registry.lookup(roomName)
	if room == nil {
		t.Fatalf("room %s not found", roomName)
	}
	return room.Snapshot()
}

func (h *testHarness) schedulerLive(roomName string) bool {
	room := h.registry.lookup(roomName)
	if room == nil {
		return false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.sched != nil
}

func decodePayload(t *testing.T, event *events.Event, out any) {
	t.Helper()
	if err := json.Unmarshal(event.Data, out); err != nil {
		t.Fatalf("decode %s payload: %v", event.Type, err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}
