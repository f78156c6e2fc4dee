package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
)

// EventRepo provides CRUD operations for events and their pricing
// tiers.  Each event owns exactly three rows in event_tiers, keyed by
// tier_no in consumption order.  All timestamp columns are stored in
// UTC (the DSN sets loc=UTC and parseTime=true).
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// CreateEvent inserts the event and its three tier rows in one
// transaction and populates the generated ID and timestamps.
func (r *EventRepo) CreateEvent(ctx context.Context, ev *model.Event) error {
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

    const q = `INSERT INTO events (title, starts_at, location, caption, photo_ref, status) VALUES (?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q,
        ev.Title, ev.StartsAt.UTC(), ev.Location, ev.Caption, ev.PhotoRef, string(ev.Status))
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    ev.ID = uint64(id)

    const tq = `INSERT INTO event_tiers (event_id, tier_no, label, boy_price_cents, girl_price_cents, quota, sold) VALUES (?, ?, ?, ?, ?, ?, 0)`
    for i, t := range ev.Tiers {
        if _, err := tx.ExecContext(ctx, tq, ev.ID, i, string(t.Label), t.BoyPriceCents, t.GirlPriceCents, t.Quota); err != nil {
            return err
        }
    }

    const sel = `SELECT created_at, updated_at FROM events WHERE id = ?`
    if err := tx.QueryRowContext(ctx, sel, ev.ID).Scan(&ev.CreatedAt, &ev.UpdatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetEvent loads one event with its tiers.  Returns booking.ErrNotFound
// when the id does not exist.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
    const q = `SELECT id, title, starts_at, location, caption, photo_ref, status, created_at, updated_at FROM events WHERE id = ?`
    var ev model.Event
    var status string
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &ev.ID, &ev.Title, &ev.StartsAt, &ev.Location, &ev.Caption, &ev.PhotoRef,
        &status, &ev.CreatedAt, &ev.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, booking.ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    ev.Status = model.EventStatus(status)
    if err := r.loadTiers(ctx, &ev); err != nil {
        return nil, err
    }
    return &ev, nil
}

// ListEvents returns events with the given status (empty = all),
// ordered by start time ascending.
func (r *EventRepo) ListEvents(ctx context.Context, status model.EventStatus) ([]model.Event, error) {
    q := `SELECT id, title, starts_at, location, caption, photo_ref, status, created_at, updated_at FROM events`
    args := []interface{}{}
    if status != "" {
        q += ` WHERE status = ?`
        args = append(args, string(status))
    }
    q += ` ORDER BY starts_at ASC, id ASC`

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    events := make([]model.Event, 0)
    for rows.Next() {
        var ev model.Event
        var st string
        if err := rows.Scan(
            &ev.ID, &ev.Title, &ev.StartsAt, &ev.Location, &ev.Caption, &ev.PhotoRef,
            &st, &ev.CreatedAt, &ev.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        ev.Status = model.EventStatus(st)
        events = append(events, ev)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    for i := range events {
        if err := r.loadTiers(ctx, &events[i]); err != nil {
            return nil, err
        }
    }
    return events, nil
}

// UpdateEventTiers overwrites labels, prices and quotas for all three
// tiers.  Sold counters are not touched; they change only through
// SaveTierSold.
func (r *EventRepo) UpdateEventTiers(ctx context.Context, id uint64, tiers [3]model.Tier) error {
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

    const q = `UPDATE event_tiers SET label = ?, boy_price_cents = ?, girl_price_cents = ?, quota = ? WHERE event_id = ? AND tier_no = ?`
    for i, t := range tiers {
        result, err := tx.ExecContext(ctx, q, string(t.Label), t.BoyPriceCents, t.GirlPriceCents, t.Quota, id, i)
        if err != nil {
            return err
        }
        if n, err := result.RowsAffected(); err == nil && n == 0 {
            // distinguish "no change" from "no event": probe the row
            var exists int
            if perr := tx.QueryRowContext(ctx, `SELECT 1 FROM event_tiers WHERE event_id = ? AND tier_no = ?`, id, i).Scan(&exists); errors.Is(perr, sql.ErrNoRows) {
                return booking.ErrNotFound
            }
        }
    }
    const touch = `UPDATE events SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`
    if _, err := tx.ExecContext(ctx, touch, id); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// UpdateEventStatus opens or closes an event listing.
func (r *EventRepo) UpdateEventStatus(ctx context.Context, id uint64, status model.EventStatus) error {
    const q = `UPDATE events SET status = ? WHERE id = ?`
    result, err := r.db.ExecContext(ctx, q, string(status), id)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var exists int
        if perr := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&exists); errors.Is(perr, sql.ErrNoRows) {
            return booking.ErrNotFound
        }
    }
    return nil
}

// SaveTierSold persists the per-tier sold counters after an approval
// commits seats.
func (r *EventRepo) SaveTierSold(ctx context.Context, id uint64, sold [3]int) error {
    const q = `UPDATE event_tiers SET sold = ? WHERE event_id = ? AND tier_no = ?`
    for i, s := range sold {
        if _, err := r.db.ExecContext(ctx, q, s, id, i); err != nil {
            return err
        }
    }
    return nil
}

func (r *EventRepo) loadTiers(ctx context.Context, ev *model.Event) error {
    const q = `SELECT tier_no, label, boy_price_cents, girl_price_cents, quota, sold FROM event_tiers WHERE event_id = ? ORDER BY tier_no`
    rows, err := r.db.QueryContext(ctx, q, ev.ID)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var no int
        var label string
        var t model.Tier
        if err := rows.Scan(&no, &label, &t.BoyPriceCents, &t.GirlPriceCents, &t.Quota, &t.Sold); err != nil {
            return err
        }
        if no < 0 || no > 2 {
            continue
        }
        t.Label = model.TierLabel(label)
        ev.Tiers[no] = t
    }
    return rows.Err()
}
