package gateway

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/room/events"
)

// Core is what the gateway needs from the timer registry. Lifecycle errors
// are recoverable no-ops by contract; the dispatcher logs and drops them.
type Core interface {
	Join(ctx context.Context, roomName, userName string) error
	Leave(roomName, userName string)
	StartCountdown(ctx context.Context, roomName string, durationSeconds int) error
	TogglePause(ctx context.Context, roomName, clientID string) error
	ResetCountdown(ctx context.Context, roomName, clientID string) error
	SwitchMode(ctx context.Context, roomName string, toBreak bool, userName string) error
	TimerRequest(ctx context.Context, roomName, clientID string)
}

// dispatch routes one inbound client message to the timer core. The room is
// fixed by the connection; a payload naming another room is ignored.
func (cm *ConnectionManager) dispatch(c *Connection, raw []byte) {
	if cm.core == nil {
		log.Error().Str("connection_id", c.ID).Msg("dropping inbound event: no core attached")
		return
	}

	var event events.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("dropping malformed inbound event")
		return
	}

	room := c.RoomName
	ctx := c.ctx

	switch event.Type {
	case events.EventTypeJoin:
		var payload events.JoinPayload
		unmarshalData(event.Data, &payload)
		if payload.UserName != "" {
			c.mu.Lock()
			c.UserName = payload.UserName
			c.mu.Unlock()
		}
		c.mu.Lock()
		c.joined = true
		userName := c.UserName
		c.mu.Unlock()
		if err := cm.core.Join(ctx, room, userName); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("join rejected")
		}

	case events.EventTypeStartCountdown:
		var payload events.StartCountdownPayload
		unmarshalData(event.Data, &payload)
		if err := cm.core.StartCountdown(ctx, room, payload.DurationInSeconds); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("start countdown rejected")
		}

	case events.EventTypePauseCountdown:
		if err := cm.core.TogglePause(ctx, room, c.ID); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("pause toggle rejected")
		}

	case events.EventTypeResetCountdown:
		if err := cm.core.ResetCountdown(ctx, room, c.ID); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("reset rejected")
		}

	case events.EventTypeTimerRequest:
		// Single-shot wait, bounded by the next tick; runs off the read
		// loop so a waiting request never stalls inbound traffic.
		go cm.core.TimerRequest(ctx, room, c.ID)

	case events.EventTypeBreakTimer:
		var payload events.JoinPayload
		unmarshalData(event.Data, &payload)
		if err := cm.core.SwitchMode(ctx, room, true, payload.UserName); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("break switch rejected")
		}

	case events.EventTypeWorkTimer:
		var payload events.JoinPayload
		unmarshalData(event.Data, &payload)
		if err := cm.core.SwitchMode(ctx, room, false, payload.UserName); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("work switch rejected")
		}

	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("type", string(event.Type)).
			Msg("ignoring unknown inbound event type")
	}
}

func unmarshalData(data json.RawMessage, v any) {
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Msg("ignoring malformed event payload")
	}
}
