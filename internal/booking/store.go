package booking

import (
    "context"
    "time"

    "github.com/nightpass/ticket-reservation/internal/model"
)

// SortOrder selects the direction of a creation-timestamp sort.  Every
// listing is ordered by the explicit created_at key, never by storage
// iteration order.
type SortOrder string

const (
    SortNewest SortOrder = "newest"
    SortOldest SortOrder = "oldest"
)

// ReservationFilter narrows and orders reservation listings.  Zero
// values mean "any".
type ReservationFilter struct {
    EventID       uint64
    BuyerID       int64
    Status        model.ReservationStatus
    CreatedBefore time.Time
    Search        string // substring match on the reservation code
    Sort          SortOrder
    Limit         int
}

// EventStore persists the event catalog and its tier configuration.
type EventStore interface {
    CreateEvent(ctx context.Context, ev *model.Event) error
    GetEvent(ctx context.Context, id uint64) (*model.Event, error)
    // ListEvents returns events with the given status; empty status
    // means all.  Ordered by starts_at ascending.
    ListEvents(ctx context.Context, status model.EventStatus) ([]model.Event, error)
    UpdateEventTiers(ctx context.Context, id uint64, tiers [3]model.Tier) error
    UpdateEventStatus(ctx context.Context, id uint64, status model.EventStatus) error
    // SaveTierSold persists the per-tier sold counters after a commit.
    // Reserved counts are deliberately not durable: pending holds are
    // rebuilt from reservation snapshots at startup.
    SaveTierSold(ctx context.Context, id uint64, sold [3]int) error
}

// ReservationStore persists reservations and applies the terminal
// status compare-and-swap.
type ReservationStore interface {
    // CreateReservation stores the reservation and its roster rows
    // atomically.  The reservation code must be unique.
    CreateReservation(ctx context.Context, r *model.Reservation, roster []model.Attendee) error
    GetReservationByCode(ctx context.Context, code string) (*model.Reservation, error)
    // FinalizeReservation atomically moves the reservation from
    // pending_payment_review to the given terminal status.  It returns
    // false when the reservation was no longer pending, in which case
    // nothing was written.  This compare-and-swap is what decides the
    // winner of an approve-vs-cancel race.
    FinalizeReservation(ctx context.Context, code string, to model.ReservationStatus, note string, reviewedBy *int64, reviewedAt time.Time) (bool, error)
    ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
}

// AttendeeStore is the roster subset the state machine needs to
// validate an approval.
type AttendeeStore interface {
    // AttendeesByReservation returns the active (not removed) roster
    // rows for a reservation, ordered by creation time.
    AttendeesByReservation(ctx context.Context, reservationID uint64) ([]model.Attendee, error)
}

// UserStore persists buyer profiles and the blocklist.
type UserStore interface {
    UpsertUser(ctx context.Context, u *model.User) error
    GetUser(ctx context.Context, buyerID int64) (*model.User, error)
    SetUserBlocked(ctx context.Context, buyerID int64, blocked bool, reason string) error
    ListBlockedUsers(ctx context.Context) ([]model.User, error)
}

// Store is the full persistence surface the booking service runs on.
// Implemented by the MySQL repositories and by the in-memory store.
type Store interface {
    EventStore
    ReservationStore
    AttendeeStore
    UserStore
}
