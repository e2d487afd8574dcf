package store

import (
	"context"
	"fmt"
	"time"
)

// Event is a row of the events table.
type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Actor     string    `json:"actor"`
	IpAddress string    `json:"ip_address"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

const eventColumns = `id, level, category, message, actor, ip_address, metadata, created_at`

const createEvent = `INSERT INTO events (level, category, message, actor, ip_address, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + eventColumns

// CreateEventParams holds the columns of a new event.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Actor     string
	IpAddress string
	Metadata  string
	CreatedAt time.Time
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	if arg.CreatedAt.IsZero() {
		arg.CreatedAt = time.Now()
	}
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.Actor,
		arg.IpAddress,
		arg.Metadata,
		arg.CreatedAt.UTC(),
	)
	var i Event
	err := scanEvent(row, &i)
	return i, err
}

const listEvents = `SELECT ` + eventColumns + ` FROM events
WHERE (? = '' OR level = ?) AND (? = '' OR category = ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

// ListEventsParams filters and pages the activity log. Empty filters match everything.
type ListEventsParams struct {
	Level    string
	Category string
	Limit    int64
	Offset   int64
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents,
		arg.Level, arg.Level,
		arg.Category, arg.Category,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Event
	for rows.Next() {
		var i Event
		if err := scanEvent(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countEvents = `SELECT COUNT(*) FROM events
WHERE (? = '' OR level = ?) AND (? = '' OR category = ?)`

// CountEventsParams filters the count like ListEventsParams.
type CountEventsParams struct {
	Level    string
	Category string
}

func (q *Queries) CountEvents(ctx context.Context, arg CountEventsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countEvents, arg.Level, arg.Level, arg.Category, arg.Category)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteEventsBefore = `DELETE FROM events WHERE created_at < ?`

// DeleteEventsBefore removes events created before cutoff and returns how many were removed.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEventsBefore, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner, i *Event) error {
	if err := s.Scan(
		&i.ID,
		&i.Level,
		&i.Category,
		&i.Message,
		&i.Actor,
		&i.IpAddress,
		&i.Metadata,
		&i.CreatedAt,
	); err != nil {
		return fmt.Errorf("scanning event: %w", err)
	}
	return nil
}
