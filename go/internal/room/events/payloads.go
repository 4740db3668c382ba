package events

import "time"

// Payload types shared between the timer core, the gateway and the relay.

// TimerResponsePayload is the authoritative timer snapshot sent on every
// lifecycle change, on heartbeats, and as the answer to a timerRequest.
type TimerResponsePayload struct {
	SecondsRemaining int  `json:"secondsRemaining"`
	IsPaused         bool `json:"isPaused"`
	IsTimerRunning   bool `json:"isTimerRunning"`
	IsBreakMode      bool `json:"isBreakMode"`
}

// EndTimerPayload signals natural expiry of a countdown. IsBreakMode names
// the mode that just finished, not the mode the room flipped into.
type EndTimerPayload struct {
	IsBreakMode bool `json:"isBreakMode"`
}

// UpdatedTitlePayload carries the display title for the room's current mode.
type UpdatedTitlePayload struct {
	Title string `json:"title"`
}

// ModeChangedPayload announces an explicit work/break switch.
type ModeChangedPayload struct {
	IsBreakMode bool `json:"isBreakMode"`
}

// UsersInRoomPayload carries the current participant count.
type UsersInRoomPayload struct {
	Count int `json:"count"`
}

// MessageLogPayload is a single room log entry pushed to clients.
type MessageLogPayload struct {
	MessageLog string    `json:"messageLog"`
	Date       time.Time `json:"date"`
}

// JoinPayload is the inbound payload for join, breakTimer and workTimer.
type JoinPayload struct {
	UserName string `json:"userName"`
}

// StartCountdownPayload is the inbound payload for startCountdown.
type StartCountdownPayload struct {
	DurationInSeconds int `json:"durationInSeconds"`
}
