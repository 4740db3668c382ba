package events

// Event types published to the relay for out-of-process consumers. These
// never go to websocket clients.
const (
	EventTypeCountdownStarted EventType = "countdownStarted"
	EventTypeCountdownEnded   EventType = "countdownEnded"
	EventTypeModeSwitched     EventType = "modeSwitched"
)

// CountdownStartedPayload is published when a room starts a countdown.
type CountdownStartedPayload struct {
	DurationInSeconds int  `json:"durationInSeconds"`
	IsBreakMode       bool `json:"isBreakMode"`
}

// CountdownEndedPayload is published when a countdown reaches zero
// naturally. IsBreakMode names the mode that just finished.
type CountdownEndedPayload struct {
	DurationInSeconds int  `json:"durationInSeconds"`
	IsBreakMode       bool `json:"isBreakMode"`
}

// ModeSwitchedPayload is published on an explicit work/break switch.
type ModeSwitchedPayload struct {
	IsBreakMode bool   `json:"isBreakMode"`
	UserName    string `json:"userName,omitempty"`
}
