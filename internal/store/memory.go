// Package store provides an in-memory implementation of the booking
// and roster persistence contracts.  It backs the test suites and
// DB-less deployments (the predecessor of this system ran on an
// embedded single-file database); production setups use the MySQL
// repositories instead.
package store

import (
    "context"
    "fmt"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/roster"
)

// Memory is a thread-safe in-memory store.  All methods copy on the
// way in and out so callers can never alias internal state.
type Memory struct {
    mu           sync.RWMutex
    events       map[uint64]*model.Event
    reservations map[string]*model.Reservation // keyed by code
    attendees    map[uint64]*model.Attendee
    users        map[int64]*model.User

    nextEventID       uint64
    nextReservationID uint64
    nextAttendeeID    uint64
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
    return &Memory{
        events:       make(map[uint64]*model.Event),
        reservations: make(map[string]*model.Reservation),
        attendees:    make(map[uint64]*model.Attendee),
        users:        make(map[int64]*model.User),
    }
}

func copyReservation(r *model.Reservation) *model.Reservation {
    c := *r
    c.Breakdown = append([]model.BreakdownLine(nil), r.Breakdown...)
    if r.ReviewedBy != nil {
        v := *r.ReviewedBy
        c.ReviewedBy = &v
    }
    if r.ReviewedAt != nil {
        v := *r.ReviewedAt
        c.ReviewedAt = &v
    }
    return &c
}

func copyAttendee(a *model.Attendee) *model.Attendee {
    c := *a
    if a.RemovedAt != nil {
        v := *a.RemovedAt
        c.RemovedAt = &v
    }
    return &c
}

// CreateEvent assigns an id and stores the event.
func (m *Memory) CreateEvent(_ context.Context, ev *model.Event) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.nextEventID++
    ev.ID = m.nextEventID
    now := time.Now().UTC()
    ev.CreatedAt, ev.UpdatedAt = now, now
    c := *ev
    m.events[ev.ID] = &c
    return nil
}

func (m *Memory) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    ev, ok := m.events[id]
    if !ok {
        return nil, booking.ErrNotFound
    }
    c := *ev
    return &c, nil
}

func (m *Memory) ListEvents(_ context.Context, status model.EventStatus) ([]model.Event, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    out := make([]model.Event, 0, len(m.events))
    for _, ev := range m.events {
        if status != "" && ev.Status != status {
            continue
        }
        out = append(out, *ev)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].StartsAt.Equal(out[j].StartsAt) {
            return out[i].ID < out[j].ID
        }
        return out[i].StartsAt.Before(out[j].StartsAt)
    })
    return out, nil
}

// UpdateEventTiers overwrites prices and quotas, keeping the persisted
// sold counters intact.
func (m *Memory) UpdateEventTiers(_ context.Context, id uint64, tiers [3]model.Tier) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    ev, ok := m.events[id]
    if !ok {
        return booking.ErrNotFound
    }
    for i := range tiers {
        ev.Tiers[i].Label = tiers[i].Label
        ev.Tiers[i].BoyPriceCents = tiers[i].BoyPriceCents
        ev.Tiers[i].GirlPriceCents = tiers[i].GirlPriceCents
        ev.Tiers[i].Quota = tiers[i].Quota
    }
    ev.UpdatedAt = time.Now().UTC()
    return nil
}

func (m *Memory) UpdateEventStatus(_ context.Context, id uint64, status model.EventStatus) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    ev, ok := m.events[id]
    if !ok {
        return booking.ErrNotFound
    }
    ev.Status = status
    ev.UpdatedAt = time.Now().UTC()
    return nil
}

func (m *Memory) SaveTierSold(_ context.Context, id uint64, sold [3]int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    ev, ok := m.events[id]
    if !ok {
        return booking.ErrNotFound
    }
    for i := range sold {
        ev.Tiers[i].Sold = sold[i]
    }
    ev.UpdatedAt = time.Now().UTC()
    return nil
}

// CreateReservation stores the reservation and its roster rows under a
// single lock, mirroring the transactional insert of the SQL store.
func (m *Memory) CreateReservation(_ context.Context, r *model.Reservation, rosterRows []model.Attendee) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, exists := m.reservations[r.Code]; exists {
        return fmt.Errorf("duplicate reservation code %q", r.Code)
    }
    m.nextReservationID++
    r.ID = m.nextReservationID
    if r.CreatedAt.IsZero() {
        r.CreatedAt = time.Now().UTC()
    }
    m.reservations[r.Code] = copyReservation(r)
    for i := range rosterRows {
        m.nextAttendeeID++
        rosterRows[i].ID = m.nextAttendeeID
        rosterRows[i].ReservationID = r.ID
        if rosterRows[i].CreatedAt.IsZero() {
            rosterRows[i].CreatedAt = r.CreatedAt
        }
        m.attendees[rosterRows[i].ID] = copyAttendee(&rosterRows[i])
    }
    return nil
}

func (m *Memory) GetReservationByCode(_ context.Context, code string) (*model.Reservation, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    r, ok := m.reservations[code]
    if !ok {
        return nil, booking.ErrNotFound
    }
    return copyReservation(r), nil
}

// FinalizeReservation is the status compare-and-swap: it succeeds only
// while the reservation is still pending, under the store lock.
func (m *Memory) FinalizeReservation(_ context.Context, code string, to model.ReservationStatus, note string, reviewedBy *int64, reviewedAt time.Time) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.reservations[code]
    if !ok {
        return false, booking.ErrNotFound
    }
    if r.Status != model.StatusPendingReview {
        return false, nil
    }
    r.Status = to
    r.AdminNote = note
    if reviewedBy != nil {
        v := *reviewedBy
        r.ReviewedBy = &v
    }
    t := reviewedAt
    r.ReviewedAt = &t
    return true, nil
}

// BackdateReservation rewrites a reservation's creation timestamp.
// Test hook for expiry sweeps; the SQL store has no equivalent.
func (m *Memory) BackdateReservation(_ context.Context, code string, at time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.reservations[code]
    if !ok {
        return booking.ErrNotFound
    }
    r.CreatedAt = at
    return nil
}

func (m *Memory) ListReservations(_ context.Context, f booking.ReservationFilter) ([]model.Reservation, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    out := make([]model.Reservation, 0)
    for _, r := range m.reservations {
        if f.EventID != 0 && r.EventID != f.EventID {
            continue
        }
        if f.BuyerID != 0 && r.BuyerID != f.BuyerID {
            continue
        }
        if f.Status != "" && r.Status != f.Status {
            continue
        }
        if !f.CreatedBefore.IsZero() && !r.CreatedAt.Before(f.CreatedBefore) {
            continue
        }
        if f.Search != "" && !strings.Contains(strings.ToUpper(r.Code), strings.ToUpper(f.Search)) {
            continue
        }
        out = append(out, *copyReservation(r))
    }
    oldest := f.Sort == booking.SortOldest
    sort.Slice(out, func(i, j int) bool {
        if out[i].CreatedAt.Equal(out[j].CreatedAt) {
            if oldest {
                return out[i].ID < out[j].ID
            }
            return out[i].ID > out[j].ID
        }
        if oldest {
            return out[i].CreatedAt.Before(out[j].CreatedAt)
        }
        return out[i].CreatedAt.After(out[j].CreatedAt)
    })
    if f.Limit > 0 && len(out) > f.Limit {
        out = out[:f.Limit]
    }
    return out, nil
}

func (m *Memory) AttendeesByReservation(_ context.Context, reservationID uint64) ([]model.Attendee, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    out := make([]model.Attendee, 0)
    for _, a := range m.attendees {
        if a.ReservationID == reservationID && a.RemovedAt == nil {
            out = append(out, *copyAttendee(a))
        }
    }
    sortAttendees(out, booking.SortOldest)
    return out, nil
}

func (m *Memory) GetAttendee(_ context.Context, id uint64) (*model.Attendee, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    a, ok := m.attendees[id]
    if !ok {
        return nil, booking.ErrNotFound
    }
    return copyAttendee(a), nil
}

func (m *Memory) AddAttendee(_ context.Context, a *model.Attendee) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.nextAttendeeID++
    a.ID = m.nextAttendeeID
    if a.CreatedAt.IsZero() {
        a.CreatedAt = time.Now().UTC()
    }
    m.attendees[a.ID] = copyAttendee(a)
    return nil
}

func (m *Memory) RemoveAttendee(_ context.Context, id uint64, removedAt time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    a, ok := m.attendees[id]
    if !ok {
        return booking.ErrNotFound
    }
    t := removedAt
    a.RemovedAt = &t
    return nil
}

func (m *Memory) RenameAttendee(_ context.Context, id uint64, first, last string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    a, ok := m.attendees[id]
    if !ok {
        return booking.ErrNotFound
    }
    a.FirstName, a.LastName = first, last
    return nil
}

func (m *Memory) ListAttendees(_ context.Context, f roster.Filter) ([]model.Attendee, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    statusByReservation := make(map[uint64]model.ReservationStatus, len(m.reservations))
    for _, r := range m.reservations {
        statusByReservation[r.ID] = r.Status
    }
    out := make([]model.Attendee, 0)
    for _, a := range m.attendees {
        if !f.IncludeRemoved && a.RemovedAt != nil {
            continue
        }
        if f.EventID != 0 && a.EventID != f.EventID {
            continue
        }
        if f.ReservationID != 0 && a.ReservationID != f.ReservationID {
            continue
        }
        if f.ReservationStatus != "" && statusByReservation[a.ReservationID] != f.ReservationStatus {
            continue
        }
        if f.Search != "" {
            needle := strings.ToLower(f.Search)
            if !strings.Contains(strings.ToLower(a.FirstName), needle) &&
                !strings.Contains(strings.ToLower(a.LastName), needle) {
                continue
            }
        }
        out = append(out, *copyAttendee(a))
    }
    sortAttendees(out, f.Sort)
    if f.Limit > 0 && len(out) > f.Limit {
        out = out[:f.Limit]
    }
    return out, nil
}

func sortAttendees(out []model.Attendee, order booking.SortOrder) {
    oldest := order != booking.SortNewest
    sort.Slice(out, func(i, j int) bool {
        if out[i].CreatedAt.Equal(out[j].CreatedAt) {
            if oldest {
                return out[i].ID < out[j].ID
            }
            return out[i].ID > out[j].ID
        }
        if oldest {
            return out[i].CreatedAt.Before(out[j].CreatedAt)
        }
        return out[i].CreatedAt.After(out[j].CreatedAt)
    })
}

func (m *Memory) UpsertUser(_ context.Context, u *model.User) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    now := time.Now().UTC()
    if existing, ok := m.users[u.BuyerID]; ok {
        existing.Name = u.Name
        existing.Surname = u.Surname
        existing.Phone = u.Phone
        existing.UpdatedAt = now
        *u = *existing
        return nil
    }
    u.CreatedAt, u.UpdatedAt = now, now
    c := *u
    m.users[u.BuyerID] = &c
    return nil
}

func (m *Memory) GetUser(_ context.Context, buyerID int64) (*model.User, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    u, ok := m.users[buyerID]
    if !ok {
        return nil, booking.ErrNotFound
    }
    c := *u
    return &c, nil
}

func (m *Memory) SetUserBlocked(_ context.Context, buyerID int64, blocked bool, reason string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    u, ok := m.users[buyerID]
    if !ok {
        return booking.ErrNotFound
    }
    u.Blocked = blocked
    u.BlockedReason = reason
    u.UpdatedAt = time.Now().UTC()
    return nil
}

func (m *Memory) ListBlockedUsers(_ context.Context) ([]model.User, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    out := make([]model.User, 0)
    for _, u := range m.users {
        if u.Blocked {
            out = append(out, *u)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].BuyerID < out[j].BuyerID })
    return out, nil
}
