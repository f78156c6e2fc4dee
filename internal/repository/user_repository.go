package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
)

// UserRepo persists buyer profiles and the blocklist.  Buyers are
// keyed by the external buyer_id issued by the chat transport, not an
// auto-increment column.
type UserRepo struct {
    db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// UpsertUser inserts the profile or refreshes name, surname and phone
// for an existing buyer.  Blocked state is never touched here.
func (r *UserRepo) UpsertUser(ctx context.Context, u *model.User) error {
    const q = `INSERT INTO users (buyer_id, name, surname, phone)
        VALUES (?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE name = VALUES(name), surname = VALUES(surname), phone = VALUES(phone)`
    if _, err := r.db.ExecContext(ctx, q, u.BuyerID, u.Name, u.Surname, u.Phone); err != nil {
        return err
    }
    fresh, err := r.GetUser(ctx, u.BuyerID)
    if err != nil {
        return err
    }
    *u = *fresh
    return nil
}

const userColumns = `buyer_id, name, surname, phone, blocked, blocked_reason, created_at, updated_at`

func scanUser(row interface {
    Scan(dest ...interface{}) error
}) (*model.User, error) {
    var u model.User
    var reason sql.NullString
    err := row.Scan(&u.BuyerID, &u.Name, &u.Surname, &u.Phone, &u.Blocked, &reason, &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if reason.Valid {
        u.BlockedReason = reason.String
    }
    return &u, nil
}

// GetUser fetches a buyer profile by the external buyer id.
func (r *UserRepo) GetUser(ctx context.Context, buyerID int64) (*model.User, error) {
    const q = `SELECT ` + userColumns + ` FROM users WHERE buyer_id = ? LIMIT 1`
    u, err := scanUser(r.db.QueryRowContext(ctx, q, buyerID))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, booking.ErrNotFound
    }
    return u, err
}

// SetUserBlocked flips the blocklist flag.  Blocking an unknown buyer
// creates a bare profile first so the block sticks.
func (r *UserRepo) SetUserBlocked(ctx context.Context, buyerID int64, blocked bool, reason string) error {
    const q = `UPDATE users SET blocked = ?, blocked_reason = ? WHERE buyer_id = ?`
    result, err := r.db.ExecContext(ctx, q, blocked, reason, buyerID)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var exists int
        perr := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE buyer_id = ?`, buyerID).Scan(&exists)
        if errors.Is(perr, sql.ErrNoRows) {
            if !blocked {
                return booking.ErrNotFound
            }
            const ins = `INSERT INTO users (buyer_id, blocked, blocked_reason) VALUES (?, ?, ?)`
            _, err = r.db.ExecContext(ctx, ins, buyerID, blocked, reason)
            return err
        }
    }
    return nil
}

// ListBlockedUsers returns the current blocklist ordered by buyer id.
func (r *UserRepo) ListBlockedUsers(ctx context.Context) ([]model.User, error) {
    const q = `SELECT ` + userColumns + ` FROM users WHERE blocked = TRUE ORDER BY buyer_id ASC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.User, 0)
    for rows.Next() {
        u, err := scanUser(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *u)
    }
    return out, rows.Err()
}
