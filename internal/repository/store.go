// Package repository implements the persistence contracts on MySQL.
// Each repository holds a *sql.DB and speaks plain SQL with ?
// placeholders; multi-row writes go through explicit transactions with
// rollback-unless-committed.  Not-found conditions surface as
// booking.ErrNotFound so callers never see sql.ErrNoRows.
package repository

import (
    "database/sql"
)

// Store bundles the per-table repositories into the single persistence
// surface the booking and roster services consume.
type Store struct {
    *EventRepo
    *ReservationRepo
    *AttendeeRepo
    *UserRepo
}

// NewStore wires all repositories onto one connection pool.
func NewStore(db *sql.DB) *Store {
    return &Store{
        EventRepo:       NewEventRepo(db),
        ReservationRepo: NewReservationRepo(db),
        AttendeeRepo:    NewAttendeeRepo(db),
        UserRepo:        NewUserRepo(db),
    }
}
