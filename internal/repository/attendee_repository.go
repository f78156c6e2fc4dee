package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/roster"
)

// AttendeeRepo persists the named attendees behind reservations.
// Removal is a soft delete via the removed_at column so the roster
// history stays auditable.
type AttendeeRepo struct {
    db *sql.DB
}

// NewAttendeeRepo returns a new AttendeeRepo bound to the given database.
func NewAttendeeRepo(db *sql.DB) *AttendeeRepo { return &AttendeeRepo{db: db} }

const attendeeColumns = `id, reservation_id, event_id, first_name, last_name, gender, created_at, removed_at`

func scanAttendee(row interface {
    Scan(dest ...interface{}) error
}) (*model.Attendee, error) {
    var a model.Attendee
    var gender string
    var removedAt sql.NullTime
    err := row.Scan(&a.ID, &a.ReservationID, &a.EventID, &a.FirstName, &a.LastName, &gender, &a.CreatedAt, &removedAt)
    if err != nil {
        return nil, err
    }
    a.Gender = model.Gender(gender)
    if removedAt.Valid {
        t := removedAt.Time.UTC()
        a.RemovedAt = &t
    }
    return &a, nil
}

// AttendeesByReservation returns the active roster of a reservation,
// ordered by creation time.
func (r *AttendeeRepo) AttendeesByReservation(ctx context.Context, reservationID uint64) ([]model.Attendee, error) {
    const q = `SELECT ` + attendeeColumns + ` FROM attendees WHERE reservation_id = ? AND removed_at IS NULL ORDER BY created_at ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Attendee, 0)
    for rows.Next() {
        a, err := scanAttendee(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *a)
    }
    return out, rows.Err()
}

// GetAttendee returns one attendee row, removed or not.
func (r *AttendeeRepo) GetAttendee(ctx context.Context, id uint64) (*model.Attendee, error) {
    const q = `SELECT ` + attendeeColumns + ` FROM attendees WHERE id = ? LIMIT 1`
    a, err := scanAttendee(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, booking.ErrNotFound
    }
    return a, err
}

// AddAttendee inserts a roster row and populates the generated ID.
func (r *AttendeeRepo) AddAttendee(ctx context.Context, a *model.Attendee) error {
    if a.CreatedAt.IsZero() {
        a.CreatedAt = time.Now().UTC()
    }
    const q = `INSERT INTO attendees (reservation_id, event_id, first_name, last_name, gender, created_at) VALUES (?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q,
        a.ReservationID, a.EventID, a.FirstName, a.LastName, string(a.Gender), a.CreatedAt.UTC())
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    a.ID = uint64(id)
    return nil
}

// RemoveAttendee soft-deletes an active attendee.
func (r *AttendeeRepo) RemoveAttendee(ctx context.Context, id uint64, removedAt time.Time) error {
    const q = `UPDATE attendees SET removed_at = ? WHERE id = ? AND removed_at IS NULL`
    result, err := r.db.ExecContext(ctx, q, removedAt.UTC(), id)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return booking.ErrNotFound
    }
    return nil
}

// RenameAttendee replaces the stored name parts.
func (r *AttendeeRepo) RenameAttendee(ctx context.Context, id uint64, first, last string) error {
    const q = `UPDATE attendees SET first_name = ?, last_name = ? WHERE id = ?`
    result, err := r.db.ExecContext(ctx, q, first, last, id)
    if err != nil {
        return err
    }
    if n, err := result.RowsAffected(); err == nil && n == 0 {
        var exists int
        if perr := r.db.QueryRowContext(ctx, `SELECT 1 FROM attendees WHERE id = ?`, id).Scan(&exists); errors.Is(perr, sql.ErrNoRows) {
            return booking.ErrNotFound
        }
    }
    return nil
}

// ListAttendees returns attendees matching the filter, joined to their
// reservation when a status filter is present.
func (r *AttendeeRepo) ListAttendees(ctx context.Context, f roster.Filter) ([]model.Attendee, error) {
    q := `SELECT a.id, a.reservation_id, a.event_id, a.first_name, a.last_name, a.gender, a.created_at, a.removed_at FROM attendees a`
    where := make([]string, 0, 5)
    args := make([]interface{}, 0, 5)
    if f.ReservationStatus != "" {
        q += ` JOIN reservations res ON res.id = a.reservation_id`
        where = append(where, "res.status = ?")
        args = append(args, string(f.ReservationStatus))
    }
    if !f.IncludeRemoved {
        where = append(where, "a.removed_at IS NULL")
    }
    if f.EventID != 0 {
        where = append(where, "a.event_id = ?")
        args = append(args, f.EventID)
    }
    if f.ReservationID != 0 {
        where = append(where, "a.reservation_id = ?")
        args = append(args, f.ReservationID)
    }
    if f.Search != "" {
        where = append(where, "(LOWER(a.first_name) LIKE ? OR LOWER(a.last_name) LIKE ?)")
        needle := "%" + strings.ToLower(f.Search) + "%"
        args = append(args, needle, needle)
    }
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    if f.Sort == booking.SortNewest {
        q += " ORDER BY a.created_at DESC, a.id DESC"
    } else {
        q += " ORDER BY a.created_at ASC, a.id ASC"
    }
    if f.Limit > 0 {
        q += " LIMIT ?"
        args = append(args, f.Limit)
    }

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Attendee, 0)
    for rows.Next() {
        a, err := scanAttendee(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *a)
    }
    return out, rows.Err()
}
