package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// A reservation is created directly in pending_payment_review (the
// draft phase lives entirely on the client side) and ends in exactly
// one of the four terminal states.
type ReservationStatus string

const (
    StatusPendingReview ReservationStatus = "pending_payment_review" // inventory held, awaiting admin decision
    StatusApproved      ReservationStatus = "approved"               // terminal; hold committed as a sale
    StatusRejected      ReservationStatus = "rejected"               // terminal; hold released
    StatusCancelled     ReservationStatus = "cancelled"              // terminal; buyer or admin cancel, hold released
    StatusExpired       ReservationStatus = "expired"                // terminal; review window ran out, hold released
)

// Terminal reports whether s is a final state that admits no further
// transitions.
func (s ReservationStatus) Terminal() bool { return s != StatusPendingReview }

// BreakdownLine is one row of a priced allocation: how many boys and
// girls a single tier supplies and at what per-ticket prices.  The
// full set of lines for a reservation is stored as a snapshot at
// booking time so later price edits never change what was quoted.
type BreakdownLine struct {
    Tier           TierLabel `json:"tier"`
    Boys           int       `json:"boys"`
    Girls          int       `json:"girls"`
    BoyPriceCents  int64     `json:"boy_price_cents"`
    GirlPriceCents int64     `json:"girl_price_cents"`
    SubtotalCents  int64     `json:"subtotal_cents"`
}

// Seats returns the number of attendees the line accounts for.
func (l BreakdownLine) Seats() int { return l.Boys + l.Girls }

// Reservation records a buyer's booking for an event.  It aggregates
// the requested attendee counts, the price snapshot computed at
// booking time and the review outcome.  This struct corresponds to a
// row in the `reservations` table.
//
// Fields:
//  ID              – primary key identifier.
//  Code            – unique human-readable booking code.
//  EventID         – event being booked.
//  BuyerID         – opaque external identity of the buyer.
//  Boys, Girls     – requested attendee counts per gender.
//  TotalCents      – total price in minor units.
//  Breakdown       – per-tier price snapshot captured at booking time.
//  Status          – current lifecycle state.
//  PaymentProofRef – opaque handle to the uploaded payment proof.
//  AdminNote       – rejection reason or other reviewer note.
//  ReviewedBy      – admin identity that finalized the reservation.
//  ReviewedAt      – when the terminal decision was applied.
//  CreatedAt       – creation timestamp (explicit sort key).
type Reservation struct {
    ID              uint64            // reservations.id
    Code            string            // reservations.code (unique)
    EventID         uint64            // reservations.event_id
    BuyerID         int64             // reservations.buyer_id
    Boys            int               // reservations.boys
    Girls           int               // reservations.girls
    TotalCents      int64             // reservations.total_cents
    Breakdown       []BreakdownLine   // reservations.breakdown (JSON)
    Status          ReservationStatus // reservations.status
    PaymentProofRef string            // reservations.payment_proof_ref
    AdminNote       string            // reservations.admin_note
    ReviewedBy      *int64            // reservations.reviewed_by (nullable)
    ReviewedAt      *time.Time        // reservations.reviewed_at (nullable)
    CreatedAt       time.Time         // reservations.created_at
}

// Seats returns the total number of attendees on the reservation.
func (r *Reservation) Seats() int { return r.Boys + r.Girls }
