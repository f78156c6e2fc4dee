// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationDecidedEvent is published whenever a reservation reaches a
// terminal state.  It carries enough information for downstream
// consumers (chat notifier, dashboards) to act without querying the
// primary database.  Delivery to the buyer is the transport's job.
type ReservationDecidedEvent struct {
    Code       string `json:"code"`
    EventID    uint64 `json:"event_id"`
    EventTitle string `json:"event_title"`
    BuyerID    int64  `json:"buyer_id"`
    Status     string `json:"status"`
    Boys       int    `json:"boys"`
    Girls      int    `json:"girls"`
    TotalCents int64  `json:"total_cents"`
    Note       string `json:"note,omitempty"`
    DecidedBy  *int64 `json:"decided_by,omitempty"`
    DecidedAt  string `json:"decided_at"`
}
