package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityfocus/focusd/go/internal/room/events"
)

func newTestConnection(id, roomName string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ID:       id,
		RoomName: roomName,
		Send:     make(chan []byte, 8),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func TestBroadcastToRoomReachesEveryConnection(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	c1 := newTestConnection("c1", "quartz")
	c2 := newTestConnection("c2", "quartz")
	other := newTestConnection("c3", "basalt")
	cm.registerConnection(c1)
	cm.registerConnection(c2)
	cm.registerConnection(other)

	cm.BroadcastToRoom("quartz", events.New("quartz", events.EventTypeUsersInRoom, events.UsersInRoomPayload{Count: 2}))
	cm.handleBroadcast(<-cm.broadcastCh)

	for _, c := range []*Connection{c1, c2} {
		select {
		case raw := <-c.Send:
			var ev events.Event
			require.NoError(t, json.Unmarshal(raw, &ev))
			assert.Equal(t, events.EventTypeUsersInRoom, ev.Type)
		default:
			t.Fatalf("connection %s received nothing", c.ID)
		}
	}
	select {
	case <-other.Send:
		t.Fatal("broadcast leaked into another room")
	default:
	}
}

func TestBroadcastToClientTargetsOneConnection(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	c1 := newTestConnection("c1", "quartz")
	c2 := newTestConnection("c2", "quartz")
	cm.registerConnection(c1)
	cm.registerConnection(c2)

	cm.BroadcastToClient("quartz", "c2", events.New("quartz", events.EventTypeTimerResponse, events.TimerResponsePayload{SecondsRemaining: 42}))
	cm.handleBroadcast(<-cm.broadcastCh)

	select {
	case <-c1.Send:
		t.Fatal("single-client answer leaked to the whole room")
	default:
	}
	select {
	case raw := <-c2.Send:
		var ev events.Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		var payload events.TimerResponsePayload
		require.NoError(t, json.Unmarshal(ev.Data, &payload))
		assert.Equal(t, 42, payload.SecondsRemaining)
	default:
		t.Fatal("targeted connection received nothing")
	}
}

func TestBroadcastToUnknownRoomIsDropped(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	cm.BroadcastToRoom("nowhere", events.New("nowhere", events.EventTypeUsersInRoom, events.UsersInRoomPayload{}))
	assert.NotPanics(t, func() {
		cm.handleBroadcast(<-cm.broadcastCh)
	})
}

func TestStatsCountsConnectionsPerRoom(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	cm.registerConnection(newTestConnection("c1", "quartz"))
	cm.registerConnection(newTestConnection("c2", "quartz"))
	cm.registerConnection(newTestConnection("c3", "basalt"))

	total, rooms := cm.Stats()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, rooms)
}

func TestUnregisterTellsCoreAboutJoinedConnections(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	core := &fakeCore{}
	cm.AttachCore(core)

	joined := newTestConnection("c1", "quartz")
	joined.UserName = "ada"
	joined.joined = true
	never := newTestConnection("c2", "quartz")
	cm.registerConnection(joined)
	cm.registerConnection(never)

	cm.unregisterConnection(joined)
	cm.unregisterConnection(never)

	require.Equal(t, 1, core.callCount())
	call := core.lastCall()
	assert.Equal(t, "leave", call.op)
	assert.Equal(t, "quartz", call.room)
	assert.Equal(t, "ada", call.user)

	total, rooms := cm.Stats()
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, rooms)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	core := &fakeCore{}
	cm.AttachCore(core)

	conn := newTestConnection("c1", "quartz")
	conn.joined = true
	cm.registerConnection(conn)

	cm.unregisterConnection(conn)
	cm.unregisterConnection(conn)

	assert.Equal(t, 1, core.callCount())
}
