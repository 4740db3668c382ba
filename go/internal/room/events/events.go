package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for every message crossing the room wire,
// inbound and outbound.
type Event struct {
	ID        string          `json:"id"`
	Room      string          `json:"room"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// EventType identifies a room event.
type EventType string

// Inbound event types (client to server).
const (
	EventTypeJoin           EventType = "join"
	EventTypeStartCountdown EventType = "startCountdown"
	EventTypePauseCountdown EventType = "pauseCountdown"
	EventTypeResetCountdown EventType = "resetCountdown"
	EventTypeTimerRequest   EventType = "timerRequest"
	EventTypeBreakTimer     EventType = "breakTimer"
	EventTypeWorkTimer      EventType = "workTimer"
)

// Outbound event types (server to client).
const (
	EventTypeTimerResponse EventType = "timerResponse"
	EventTypeEndTimer      EventType = "endTimer"
	EventTypeUpdatedTitle  EventType = "updatedTitle"
	EventTypeModeChanged   EventType = "modeChanged"
	EventTypeUsersInRoom   EventType = "usersInRoom"
	EventTypeMessageLog    EventType = "messageLog"
)

// New builds an outbound event, marshalling the payload into the envelope.
// A payload that fails to marshal yields an event with empty data; callers
// only pass the payload structs below, which cannot fail.
func New(room string, eventType EventType, payload any) *Event {
	data, _ := json.Marshal(payload)
	return &Event{
		ID:        uuid.New().String(),
		Room:      room,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
