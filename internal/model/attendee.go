package model

import (
    "strings"
    "time"
)

// Attendee is one named seat bound to a reservation.  While the
// reservation is pending the roster must match the reservation's
// boys/girls counts exactly; after approval admins may edit rows as a
// corrective override without re-validation.  Removal is a soft
// delete so that roster history stays auditable.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – owning reservation (exclusive).
//  EventID       – denormalized event reference for guest lists.
//  FirstName     – first whitespace token of the full name.
//  LastName      – remaining tokens of the full name.
//  Gender        – which tier price the seat was sold at.
//  CreatedAt     – creation timestamp.
//  RemovedAt     – soft-delete timestamp (nil while active).
type Attendee struct {
    ID            uint64     // attendees.id
    ReservationID uint64     // attendees.reservation_id
    EventID       uint64     // attendees.event_id
    FirstName     string     // attendees.first_name
    LastName      string     // attendees.last_name
    Gender        Gender     // attendees.gender
    CreatedAt     time.Time  // attendees.created_at
    RemovedAt     *time.Time // attendees.removed_at (nullable)
}

// FullName joins the stored name parts for display.
func (a *Attendee) FullName() string { return a.FirstName + " " + a.LastName }

// SplitFullName splits a free-form name into a first name and a
// surname.  The name must contain at least two whitespace-separated
// tokens; everything after the first token becomes the surname.  ok
// is false for empty or single-token input.
func SplitFullName(full string) (first, last string, ok bool) {
    parts := strings.Fields(full)
    if len(parts) < 2 {
        return "", "", false
    }
    return parts[0], strings.Join(parts[1:], " "), true
}
