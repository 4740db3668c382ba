package chatlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/models"
	"github.com/communityfocus/focusd/go/internal/room/events"
)

// System-generated log entries carry this author.
const systemUser = "Anonymous"

// MessageStore persists message-log entries.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg models.Message) error
}

// Broadcaster pushes log entries to a room's connected clients.
type Broadcaster interface {
	BroadcastToRoom(roomName string, event *events.Event)
}

// Log is the message-log collaborator: it records room timer activity
// durably and mirrors each entry to connected clients. Failures are logged
// and swallowed; the timer core never depends on a log write succeeding.
type Log struct {
	store       MessageStore
	broadcaster Broadcaster
}

func New(store MessageStore, broadcaster Broadcaster) *Log {
	return &Log{store: store, broadcaster: broadcaster}
}

// CountdownStarted records the start of a countdown.
func (l *Log) CountdownStarted(ctx context.Context, roomName string, durationSeconds int) {
	l.append(ctx, roomName, fmt.Sprintf("started %s", FormatDuration(durationSeconds)))
}

// CountdownEnded records natural expiry of a countdown.
func (l *Log) CountdownEnded(ctx context.Context, roomName string, durationSeconds int) {
	l.append(ctx, roomName, fmt.Sprintf("ended %s", FormatDuration(durationSeconds)))
}

func (l *Log) append(ctx context.Context, roomName, text string) {
	now := time.Now().UTC()
	msg := models.Message{
		ID:        uuid.New(),
		RoomName:  roomName,
		UserName:  systemUser,
		Message:   text,
		CreatedAt: now,
	}

	if l.store != nil {
		if err := l.store.InsertMessage(ctx, msg); err != nil {
			log.Error().Err(err).Str("room", roomName).Msg("failed to persist message log entry")
		}
	}

	if l.broadcaster != nil {
		l.broadcaster.BroadcastToRoom(roomName, events.New(roomName, events.EventTypeMessageLog, events.MessageLogPayload{
			MessageLog: text,
			Date:       now,
		}))
	}
}

// FormatDuration renders a second count as MM:SS, growing to HH:MM:SS at
// one hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if seconds >= 3600 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
