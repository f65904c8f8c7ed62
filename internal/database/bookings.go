package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentloop/internal/models"
)

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (booker_id, item_id, start_ns, end_ns, status, created_at, updated_at, version)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		booking.BookerID,
		booking.ItemID,
		booking.Start.UnixNano(),
		booking.End.UnixNano(),
		string(booking.Status),
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT id, booker_id, item_id, start_ns, end_ns, status, created_at, updated_at, version
              FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// UpdateBookingStatusIfWaiting atomically moves a WAITING booking into
// the given terminal status. When the booking is no longer WAITING the
// update matches zero rows and ErrStatusConflict is returned, so
// concurrent deciders cannot both succeed.
func (db *DB) UpdateBookingStatusIfWaiting(ctx context.Context, id int64, status models.BookingStatus) error {
	query := `UPDATE bookings SET status = ?, updated_at = ?, version = version + 1
              WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, string(status), time.Now(), id, string(models.StatusWaiting))
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// BookingsByBooker returns the booker's bookings matching the temporal
// query, sorted by start descending.
func (db *DB) BookingsByBooker(ctx context.Context, bookerID int64, q models.BookingQuery) ([]*models.Booking, error) {
	where, args := bookingPredicate(q)
	query := `SELECT id, booker_id, item_id, start_ns, end_ns, status, created_at, updated_at, version
              FROM bookings WHERE booker_id = ?` + where +
		` ORDER BY start_ns DESC LIMIT ? OFFSET ?`

	all := append([]any{bookerID}, args...)
	all = append(all, q.Limit, q.Offset)

	return db.queryBookings(ctx, query, all...)
}

// BookingsByItems returns bookings on any of the given items matching
// the temporal query, sorted by start descending. An empty id set
// yields no rows.
func (db *DB) BookingsByItems(ctx context.Context, itemIDs []int64, q models.BookingQuery) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(itemIDs))
	placeholders = placeholders[:len(placeholders)-1]

	where, args := bookingPredicate(q)
	query := `SELECT id, booker_id, item_id, start_ns, end_ns, status, created_at, updated_at, version
              FROM bookings WHERE item_id IN (` + placeholders + `)` + where +
		` ORDER BY start_ns DESC LIMIT ? OFFSET ?`

	all := make([]any, 0, len(itemIDs)+len(args)+2)
	for _, id := range itemIDs {
		all = append(all, id)
	}
	all = append(all, args...)
	all = append(all, q.Limit, q.Offset)

	return db.queryBookings(ctx, query, all...)
}

// BookingsForItem returns every booking of one item, newest start first.
func (db *DB) BookingsForItem(ctx context.Context, itemID int64) ([]*models.Booking, error) {
	query := `SELECT id, booker_id, item_id, start_ns, end_ns, status, created_at, updated_at, version
              FROM bookings WHERE item_id = ? ORDER BY start_ns DESC`
	return db.queryBookings(ctx, query, itemID)
}

// HasFinishedBooking reports whether the user has at least one booking
// of the item that ended before now, regardless of status.
func (db *DB) HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE booker_id = ? AND item_id = ? AND end_ns < ?`
	var count int
	err := db.QueryRowContext(ctx, query, bookerID, itemID, now.UnixNano()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count finished bookings: %w", err)
	}
	return count > 0, nil
}

// bookingPredicate translates a temporal filter into SQL conditions
// anchored at the query instant.
func bookingPredicate(q models.BookingQuery) (string, []any) {
	now := q.Now.UnixNano()
	switch q.Filter {
	case models.FilterCurrent:
		return ` AND start_ns <= ? AND end_ns >= ?`, []any{now, now}
	case models.FilterPast:
		return ` AND end_ns < ?`, []any{now}
	case models.FilterFuture:
		return ` AND start_ns > ?`, []any{now}
	case models.FilterWaiting:
		// Only future WAITING bookings are listed.
		return ` AND status = ? AND start_ns > ?`, []any{string(models.StatusWaiting), now}
	case models.FilterRejected:
		return ` AND status = ? AND start_ns > ?`, []any{string(models.StatusRejected), now}
	default:
		return ``, nil
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var startNS, endNS int64
	var status string
	err := row.Scan(
		&b.ID, &b.BookerID, &b.ItemID, &startNS, &endNS,
		&status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Start = time.Unix(0, startNS)
	b.End = time.Unix(0, endNS)
	b.Status = models.BookingStatus(status)
	return b, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}
