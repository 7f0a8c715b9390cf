package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"antigravity/internal/model"
)

// Blocking reports whether [start, end) collides with an existing booking
// that still blocks new reservations: approved bookings always block,
// pending bookings only while their own start is beyond the lead window at
// the evaluation time. Touching endpoints do not collide.
func (db *DB) Blocking(ctx context.Context, start, end, now time.Time, lead time.Duration) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE start_time < ? AND end_time > ?
		AND (status = ? OR (status = ? AND start_time > ?))`,
		end, start, model.StatusApproved, model.StatusPending, now.Add(lead),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateIfFree inserts the booking inside a transaction that re-runs the
// blocking-overlap check first, closing the race between slot display and
// commit. Returns ErrSlotTaken when the interval is no longer free.
func (db *DB) CreateIfFree(ctx context.Context, b *model.Booking, now time.Time, lead time.Duration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE start_time < ? AND end_time > ?
		AND (status = ? OR (status = ? AND start_time > ?))`,
		b.EndTime, b.StartTime, model.StatusApproved, model.StatusPending, now.Add(lead),
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("overlap recheck: %w", err)
	}
	if count > 0 {
		return ErrSlotTaken
	}

	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = model.StatusPending
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (
			reference, customer_name, customer_email, customer_phone,
			guest_count, event_description, start_time, end_time,
			is_overnight, cost_cents, status, gcal_event_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.GuestCount, b.EventDescription, b.StartTime, b.EndTime,
		b.IsOvernight, b.CostCents, b.Status, b.CalendarEventID,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	b.ID = id

	return tx.Commit()
}

// Get returns a booking by id.
func (db *DB) Get(ctx context.Context, id int64) (*model.Booking, error) {
	row := db.QueryRowContext(ctx, selectColumns+" FROM bookings WHERE id = ?", id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

// GetByReference returns a booking by its public reference code.
func (db *DB) GetByReference(ctx context.Context, ref string) (*model.Booking, error) {
	row := db.QueryRowContext(ctx, selectColumns+" FROM bookings WHERE reference = ?", ref)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

// ListFilter narrows and pages ListBookings results.
type ListFilter struct {
	Status   string
	From     time.Time
	To       time.Time
	Search   string // matches customer name or email
	OrderAsc bool
	Limit    int
	Offset   int
}

// ListBookings returns bookings matching the filter, ordered by start time.
func (db *DB) ListBookings(ctx context.Context, f ListFilter) ([]model.Booking, error) {
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "start_time <= ?")
		args = append(args, f.To)
	}
	if f.Search != "" {
		where = append(where, "(customer_name LIKE ? OR customer_email LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}

	query := selectColumns + " FROM bookings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.OrderAsc {
		query += " ORDER BY start_time ASC"
	} else {
		query += " ORDER BY start_time DESC"
	}
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// OnDate returns non-cancelled bookings starting on the given calendar day,
// ascending. Used by the admin calendar view.
func (db *DB) OnDate(ctx context.Context, date time.Time) ([]model.Booking, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := db.QueryContext(ctx, selectColumns+`
		FROM bookings
		WHERE start_time >= ? AND start_time < ? AND status != ?
		ORDER BY start_time`,
		startOfDay, endOfDay, model.StatusCancelled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CountByStatus returns booking counts keyed by status.
func (db *DB) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, "SELECT status, COUNT(*) FROM bookings GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// UpdateStatus sets a booking's status.
func (db *DB) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCost adjusts a booking's estimated cost, e.g. after an admin applies a
// discount.
func (db *DB) SetCost(ctx context.Context, id int64, costCents int64) error {
	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET cost_cents = ?, updated_at = ? WHERE id = ?",
		costCents, time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCalendarEventID records (or clears) the external calendar event id.
func (db *DB) SetCalendarEventID(ctx context.Context, id int64, eventID string) error {
	_, err := db.ExecContext(ctx,
		"UPDATE bookings SET gcal_event_id = ?, updated_at = ? WHERE id = ?",
		eventID, time.Now(), id,
	)
	return err
}

// ExpireLapsed flips pending bookings whose start has entered the lead
// window to expired, so the dashboard agrees with the availability engine's
// pending-lapse rule. Returns the ids of the expired bookings.
func (db *DB) ExpireLapsed(ctx context.Context, now time.Time, lead time.Duration) ([]int64, error) {
	// One transaction so the returned ids are exactly the rows flipped.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM bookings WHERE status = ? AND start_time <= ?",
		model.StatusPending, now.Add(lead),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows.Close()

	_, err = tx.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE status = ? AND start_time <= ?",
		model.StatusExpired, now, model.StatusPending, now.Add(lead),
	)
	if err != nil {
		return nil, err
	}
	return ids, tx.Commit()
}

const selectColumns = `SELECT id, reference, customer_name, customer_email, customer_phone,
	guest_count, event_description, start_time, end_time, is_overnight,
	cost_cents, status, gcal_event_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID, &b.Reference, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.GuestCount, &b.EventDescription, &b.StartTime, &b.EndTime, &b.IsOvernight,
		&b.CostCents, &b.Status, &b.CalendarEventID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
