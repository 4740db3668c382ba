package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communityfocus/focusd/go/internal/models"
)

// Repository is the Postgres-backed durable store for room timers and
// message logs. The timer core treats it as a key-value store by room name.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindTimer returns the persisted timer record for a room, or nil when the
// room has never been written.
func (r *Repository) FindTimer(ctx context.Context, roomName string) (*models.TimerRecord, error) {
	const q = `
		SELECT room_name, is_paused, is_break, end_timestamp, paused_at,
		       original_duration, work_title, break_title, work_buttons,
		       break_buttons, updated_at
		FROM room_timers
		WHERE room_name = $1`

	var (
		rec          models.TimerRecord
		pausedAt     *time.Time
		workButtons  []int32
		breakButtons []int32
	)
	err := r.pool.QueryRow(ctx, q, roomName).Scan(
		&rec.RoomName, &rec.IsPaused, &rec.IsBreak, &rec.EndTimestamp,
		&pausedAt, &rec.OriginalDuration, &rec.WorkTitle, &rec.BreakTitle,
		&workButtons, &breakButtons, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find timer for room %q: %w", roomName, err)
	}

	rec.PausedAt = pausedAt
	rec.WorkButtons = toInts(workButtons)
	rec.BreakButtons = toInts(breakButtons)
	return &rec, nil
}

// UpsertTimer writes a room's timer record, inserting on first write.
func (r *Repository) UpsertTimer(ctx context.Context, rec models.TimerRecord) error {
	const q = `
		INSERT INTO room_timers (
			room_name, is_paused, is_break, end_timestamp, paused_at,
			original_duration, work_title, break_title, work_buttons,
			break_buttons, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (room_name) DO UPDATE SET
			is_paused = EXCLUDED.is_paused,
			is_break = EXCLUDED.is_break,
			end_timestamp = EXCLUDED.end_timestamp,
			paused_at = EXCLUDED.paused_at,
			original_duration = EXCLUDED.original_duration,
			work_title = EXCLUDED.work_title,
			break_title = EXCLUDED.break_title,
			work_buttons = EXCLUDED.work_buttons,
			break_buttons = EXCLUDED.break_buttons,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, q,
		rec.RoomName, rec.IsPaused, rec.IsBreak, rec.EndTimestamp,
		rec.PausedAt, rec.OriginalDuration, rec.WorkTitle, rec.BreakTitle,
		toInt32s(rec.WorkButtons), toInt32s(rec.BreakButtons), rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert timer for room %q: %w", rec.RoomName, err)
	}
	return nil
}

// InsertMessage appends an entry to a room's message log.
func (r *Repository) InsertMessage(ctx context.Context, msg models.Message) error {
	const q = `
		INSERT INTO room_messages (id, room_name, user_name, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, q, msg.ID, msg.RoomName, msg.UserName, msg.Message, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message for room %q: %w", msg.RoomName, err)
	}
	return nil
}

// ListMessages returns the most recent message-log entries for a room,
// oldest first.
func (r *Repository) ListMessages(ctx context.Context, roomName string, limit int) ([]models.Message, error) {
	const q = `
		SELECT id, room_name, user_name, message, created_at
		FROM (
			SELECT id, room_name, user_name, message, created_at
			FROM room_messages
			WHERE room_name = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, q, roomName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for room %q: %w", roomName, err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.RoomName, &msg.UserName, &msg.Message, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}

func toInt32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func toInts(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
