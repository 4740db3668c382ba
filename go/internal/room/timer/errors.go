package timer

import "errors"

// Failures inside one room are always local: callers log these and move on,
// they never abort another room's scheduler or the process.
var (
	// ErrRoomNotFound means the operation named a room with no live state.
	// Covers stale operations against rooms torn down concurrently.
	ErrRoomNotFound = errors.New("room not found")

	// ErrReservedRoom means the operation named a reserved system room.
	ErrReservedRoom = errors.New("reserved room name")

	// ErrInvalidDuration means the requested countdown duration is negative.
	ErrInvalidDuration = errors.New("invalid countdown duration")

	// ErrNoBroadcaster means no broadcast channel was supplied to the registry.
	ErrNoBroadcaster = errors.New("no broadcaster configured")
)
