// Package roster manages the named attendees bound to a reservation's
// seats.  Mutations here are administrative edits: after a reservation
// is approved they are corrective overrides only and deliberately do
// not re-trigger pricing or inventory changes, so the roster of an
// edited approved reservation is not guaranteed to match the quantity
// originally sold.
package roster

import (
    "context"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
)

// Filter narrows and orders attendee listings.  Zero values mean
// "any".  ReservationStatus filters on the owning reservation's state
// (e.g. approved-only for door guest lists).
type Filter struct {
    EventID           uint64
    ReservationID     uint64
    ReservationStatus model.ReservationStatus
    Search            string // substring match on first or last name
    Sort              booking.SortOrder
    Limit             int
    IncludeRemoved    bool
}

// Store is the persistence surface the roster service needs.
type Store interface {
    GetReservationByCode(ctx context.Context, code string) (*model.Reservation, error)
    GetAttendee(ctx context.Context, id uint64) (*model.Attendee, error)
    AddAttendee(ctx context.Context, a *model.Attendee) error
    RemoveAttendee(ctx context.Context, id uint64, removedAt time.Time) error
    RenameAttendee(ctx context.Context, id uint64, first, last string) error
    ListAttendees(ctx context.Context, f Filter) ([]model.Attendee, error)
}

// Service exposes the roster operations consumed by the admin surface.
type Service struct {
    store Store
    log   *zap.Logger
}

// NewService returns a roster service; log may be nil.
func NewService(store Store, log *zap.Logger) *Service {
    if log == nil {
        log = zap.NewNop()
    }
    return &Service{store: store, log: log}
}

// AddGuest appends a named attendee to the reservation identified by
// code.  The name must split into a first name and a surname.
func (s *Service) AddGuest(ctx context.Context, code string, gender model.Gender, fullName string) (*model.Attendee, error) {
    if !gender.Valid() {
        return nil, fmt.Errorf("%w: %q", booking.ErrInvalidGender, gender)
    }
    first, last, ok := model.SplitFullName(fullName)
    if !ok {
        return nil, fmt.Errorf("%w: %q", booking.ErrInvalidName, fullName)
    }
    res, err := s.store.GetReservationByCode(ctx, code)
    if err != nil {
        return nil, err
    }
    a := &model.Attendee{
        ReservationID: res.ID,
        EventID:       res.EventID,
        FirstName:     first,
        LastName:      last,
        Gender:        gender,
        CreatedAt:     time.Now().UTC(),
    }
    if err := s.store.AddAttendee(ctx, a); err != nil {
        return nil, err
    }
    s.log.Info("guest added", zap.String("code", code), zap.Uint64("attendee_id", a.ID))
    return a, nil
}

// RemoveGuest soft-deletes an attendee.  Removing an already removed
// attendee fails with booking.ErrNotFound.
func (s *Service) RemoveGuest(ctx context.Context, attendeeID uint64) (*model.Attendee, error) {
    a, err := s.store.GetAttendee(ctx, attendeeID)
    if err != nil {
        return nil, err
    }
    if a.RemovedAt != nil {
        return nil, booking.ErrNotFound
    }
    now := time.Now().UTC()
    if err := s.store.RemoveAttendee(ctx, attendeeID, now); err != nil {
        return nil, err
    }
    a.RemovedAt = &now
    s.log.Info("guest removed", zap.Uint64("attendee_id", attendeeID))
    return a, nil
}

// RenameGuest replaces an attendee's name, subject to the same
// two-token rule as every other name in the system.
func (s *Service) RenameGuest(ctx context.Context, attendeeID uint64, fullName string) (*model.Attendee, error) {
    first, last, ok := model.SplitFullName(fullName)
    if !ok {
        return nil, fmt.Errorf("%w: %q", booking.ErrInvalidName, fullName)
    }
    a, err := s.store.GetAttendee(ctx, attendeeID)
    if err != nil {
        return nil, err
    }
    if a.RemovedAt != nil {
        return nil, booking.ErrNotFound
    }
    if err := s.store.RenameAttendee(ctx, attendeeID, first, last); err != nil {
        return nil, err
    }
    a.FirstName, a.LastName = first, last
    return a, nil
}

// List returns attendees matching the filter, ordered by the explicit
// creation timestamp.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Attendee, error) {
    return s.store.ListAttendees(ctx, f)
}
