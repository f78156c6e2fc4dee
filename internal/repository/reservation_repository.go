package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "strings"
    "time"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
)

// ReservationRepo persists reservations and their attendee rosters.
// The booking-time price breakdown is stored as a JSON column so the
// snapshot survives later pricing edits.  All timestamp fields are
// stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateReservation inserts the reservation and its roster rows in a
// single transaction.  It populates the generated IDs on the provided
// records.  The unique index on the code column rejects collisions.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation, roster []model.Attendee) error {
    breakdown, err := json.Marshal(res.Breakdown)
    if err != nil {
        return err
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const q = `INSERT INTO reservations
        (code, event_id, buyer_id, boys, girls, total_cents, breakdown, status, payment_proof_ref, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q,
        res.Code, res.EventID, res.BuyerID, res.Boys, res.Girls,
        res.TotalCents, breakdown, string(res.Status), res.PaymentProofRef, res.CreatedAt.UTC())
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)

    if len(roster) > 0 {
        query := `INSERT INTO attendees (reservation_id, event_id, first_name, last_name, gender, created_at) VALUES `
        args := make([]interface{}, 0, len(roster)*6)
        for i := range roster {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?, ?, ?)"
            roster[i].ReservationID = res.ID
            if roster[i].CreatedAt.IsZero() {
                roster[i].CreatedAt = res.CreatedAt
            }
            args = append(args, res.ID, roster[i].EventID, roster[i].FirstName,
                roster[i].LastName, string(roster[i].Gender), roster[i].CreatedAt.UTC())
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

const reservationColumns = `id, code, event_id, buyer_id, boys, girls, total_cents, breakdown, status, payment_proof_ref, admin_note, reviewed_by, reviewed_at, created_at`

func scanReservation(row interface {
    Scan(dest ...interface{}) error
}) (*model.Reservation, error) {
    var res model.Reservation
    var breakdown []byte
    var status string
    var adminNote sql.NullString
    var reviewedBy sql.NullInt64
    var reviewedAt sql.NullTime
    err := row.Scan(
        &res.ID, &res.Code, &res.EventID, &res.BuyerID, &res.Boys, &res.Girls,
        &res.TotalCents, &breakdown, &status, &res.PaymentProofRef,
        &adminNote, &reviewedBy, &reviewedAt, &res.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    res.Status = model.ReservationStatus(status)
    if len(breakdown) > 0 {
        if err := json.Unmarshal(breakdown, &res.Breakdown); err != nil {
            return nil, err
        }
    }
    if adminNote.Valid {
        res.AdminNote = adminNote.String
    }
    if reviewedBy.Valid {
        v := reviewedBy.Int64
        res.ReviewedBy = &v
    }
    if reviewedAt.Valid {
        t := reviewedAt.Time.UTC()
        res.ReviewedAt = &t
    }
    return &res, nil
}

// GetReservationByCode returns one reservation by its public code.
func (r *ReservationRepo) GetReservationByCode(ctx context.Context, code string) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE code = ? LIMIT 1`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, code))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, booking.ErrNotFound
    }
    return res, err
}

// FinalizeReservation applies the terminal status compare-and-swap.
// The WHERE clause on the pending status makes the row update the
// atomic arbiter: RowsAffected == 0 means someone else got there
// first and nothing was written.
func (r *ReservationRepo) FinalizeReservation(ctx context.Context, code string, to model.ReservationStatus, note string, reviewedBy *int64, reviewedAt time.Time) (bool, error) {
    const q = `UPDATE reservations
        SET status = ?, admin_note = ?, reviewed_by = ?, reviewed_at = ?
        WHERE code = ? AND status = ?`
    var by sql.NullInt64
    if reviewedBy != nil {
        by = sql.NullInt64{Int64: *reviewedBy, Valid: true}
    }
    result, err := r.db.ExecContext(ctx, q,
        string(to), note, by, reviewedAt.UTC(), code, string(model.StatusPendingReview))
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    if n == 1 {
        return true, nil
    }
    var exists int
    if perr := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE code = ?`, code).Scan(&exists); errors.Is(perr, sql.ErrNoRows) {
        return false, booking.ErrNotFound
    }
    return false, nil
}

// ListReservations returns reservations matching the filter, ordered
// by creation time.
func (r *ReservationRepo) ListReservations(ctx context.Context, f booking.ReservationFilter) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations`
    where := make([]string, 0, 5)
    args := make([]interface{}, 0, 5)
    if f.EventID != 0 {
        where = append(where, "event_id = ?")
        args = append(args, f.EventID)
    }
    if f.BuyerID != 0 {
        where = append(where, "buyer_id = ?")
        args = append(args, f.BuyerID)
    }
    if f.Status != "" {
        where = append(where, "status = ?")
        args = append(args, string(f.Status))
    }
    if !f.CreatedBefore.IsZero() {
        where = append(where, "created_at < ?")
        args = append(args, f.CreatedBefore.UTC())
    }
    if f.Search != "" {
        where = append(where, "code LIKE ?")
        args = append(args, "%"+strings.ToUpper(f.Search)+"%")
    }
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    if f.Sort == booking.SortOldest {
        q += " ORDER BY created_at ASC, id ASC"
    } else {
        q += " ORDER BY created_at DESC, id DESC"
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
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}
