package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single entry in a room's message log.
type Message struct {
	ID        uuid.UUID `json:"id"`
	RoomName  string    `json:"room_name"`
	UserName  string    `json:"user_name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
