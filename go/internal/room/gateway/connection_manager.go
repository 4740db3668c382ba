package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/room/events"
)

// ConnectionManager owns every live websocket connection, pooled by room
// name, and fans outbound room events to them. It is the timer core's
// Broadcaster: room-wide broadcasts and single-client answers both go
// through the buffered broadcast channel, so the core never blocks on a
// slow socket.
type ConnectionManager struct {
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// core is attached after construction; the timer registry needs the
	// manager as its broadcaster before it exists itself.
	core Core
}

// Connection is one client's websocket, bound to a single room for its
// whole lifetime.
type Connection struct {
	ID       string
	RoomName string
	UserName string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time

	// ctx is cancelled when the connection goes away, aborting any
	// single-shot sync wait started on its behalf.
	ctx    context.Context
	cancel context.CancelFunc

	// joined is set once the client has sent its join event, so
	// unregistering knows whether to remove a participant.
	joined bool
	mu     sync.Mutex
}

// ConnectionConfig holds websocket tuning.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is one outbound event, room-wide unless ClientID is set.
type BroadcastMessage struct {
	RoomName string
	Event    *events.Event
	ClientID string
}

// DefaultConnectionConfig returns production websocket settings.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a manager. Call AttachCore before serving
// connections.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// AttachCore hands the manager its inbound event sink. The registry and the
// manager reference each other, so this happens after both exist.
func (cm *ConnectionManager) AttachCore(core Core) {
	cm.core = core
}

// Start processes broadcast messages until the context ends.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket bound to a room.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, roomName, userName string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		ID:          uuid.New().String(),
		RoomName:    roomName,
		UserName:    userName,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("room", roomName).
		Str("user", userName).
		Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.roomConnections[conn.RoomName] == nil {
		cm.roomConnections[conn.RoomName] = make(map[*Connection]bool)
	}
	cm.roomConnections[conn.RoomName][conn] = true
}

// unregisterConnection drops a connection and tells the core about the
// implicit disconnect.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.roomConnections[conn.RoomName]
	removed := false
	if exists {
		if _, ok := connections[conn]; ok {
			delete(connections, conn)
			close(conn.Send)
			removed = true
			if len(connections) == 0 {
				delete(cm.roomConnections, conn.RoomName)
			}
		}
	}
	cm.mu.Unlock()

	if !removed {
		return
	}

	conn.cancel()

	conn.mu.Lock()
	joined := conn.joined
	userName := conn.UserName
	conn.mu.Unlock()

	if joined && cm.core != nil {
		cm.core.Leave(conn.RoomName, userName)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("room", conn.RoomName).
		Str("user", userName).
		Msg("connection unregistered")
}

// BroadcastToRoom queues an event for every connection in a room.
func (cm *ConnectionManager) BroadcastToRoom(roomName string, event *events.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomName: roomName, Event: event}:
	default:
		log.Warn().Str("room", roomName).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToClient queues an event for exactly one connection.
func (cm *ConnectionManager) BroadcastToClient(roomName, clientID string, event *events.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomName: roomName, Event: event, ClientID: clientID}:
	default:
		log.Warn().Str("room", roomName).Str("client", clientID).Msg("broadcast channel full, dropping client message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.roomConnections[message.RoomName]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	var targets []*Connection
	for conn := range connections {
		if message.ClientID != "" && conn.ID != message.ClientID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("room", conn.RoomName).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// Stats summarizes live connections per room.
func (cm *ConnectionManager) Stats() (totalConnections, activeRooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, connections := range cm.roomConnections {
		totalConnections += len(connections)
	}
	return totalConnections, len(cm.roomConnections)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write websocket message")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			break
		}
		c.Manager.dispatch(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
