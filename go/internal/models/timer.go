package models

import (
	"time"
)

// Default titles shown while a work or break countdown runs.
const (
	DefaultWorkTitle  = "Work"
	DefaultBreakTitle = "Break"
)

// Default duration presets (seconds) offered to a room's participants.
var (
	DefaultWorkButtons  = []int{300, 600, 900, 1500, 3000}
	DefaultBreakButtons = []int{60, 300, 600, 900}
)

// TimerRecord is the durable shape of a room's timer, keyed by room name.
// It carries enough to rebuild the in-memory state after a restart:
// EndTimestamp is the wall-clock moment the countdown would reach zero,
// and PausedAt (when set) freezes that arithmetic at the pause moment.
type TimerRecord struct {
	RoomName         string     `json:"room_name"`
	IsPaused         bool       `json:"is_paused"`
	IsBreak          bool       `json:"is_break"`
	EndTimestamp     time.Time  `json:"end_timestamp"`
	PausedAt         *time.Time `json:"paused_at,omitempty"`
	OriginalDuration int        `json:"original_duration"`
	WorkTitle        string     `json:"work_title"`
	BreakTitle       string     `json:"break_title"`
	WorkButtons      []int      `json:"work_buttons"`
	BreakButtons     []int      `json:"break_buttons"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// RemainingAt computes the seconds left on the countdown as of now.
// A paused record measures from PausedAt instead, so the value does not
// drift while nobody is running the room. The result may be negative,
// meaning the countdown expired while no process was hosting it.
func (r *TimerRecord) RemainingAt(now time.Time) int {
	if r.IsPaused && r.PausedAt != nil {
		return int(r.EndTimestamp.Sub(*r.PausedAt) / time.Second)
	}
	return int(r.EndTimestamp.Sub(now) / time.Second)
}
