// Package pricing computes priced tier allocations for requested
// attendee counts.  It is pure: quoting never mutates inventory, and
// the same tier state and demand always produce the same breakdown.
// All money is integer minor units; no floating point is involved.
package pricing

import (
    "errors"

    "github.com/nightpass/ticket-reservation/internal/model"
)

// ErrInsufficientInventory is returned when the requested attendee
// count exceeds the combined remaining quota of all tiers.  The caller
// should re-quote with a smaller party or a different event.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// Quote is an itemized price for a requested allocation.  TotalCents
// always equals the sum of the line subtotals.
type Quote struct {
    Lines      []model.BreakdownLine `json:"breakdown"`
    TotalCents int64                 `json:"total_cents"`
}

// Seats returns the number of attendees the quote covers.
func (q Quote) Seats() int {
    n := 0
    for _, l := range q.Lines {
        n += l.Seats()
    }
    return n
}

// Compute walks the tiers in consumption order and greedily fills each
// tier's remaining quota, boys before girls while both genders still
// have unmet demand.  A tier contributes a breakdown line only when it
// supplies at least one attendee.  It returns ErrInsufficientInventory
// when boys+girls exceeds the combined remaining quota.
//
// The tier slice is the caller's live counter view; Compute reads
// Remaining() but never writes.
func Compute(tiers [3]model.Tier, boys, girls int) (Quote, error) {
    if boys < 0 || girls < 0 || boys+girls == 0 {
        return Quote{}, ErrInsufficientInventory
    }
    boysLeft, girlsLeft := boys, girls
    q := Quote{Lines: make([]model.BreakdownLine, 0, len(tiers))}
    for _, t := range tiers {
        remaining := t.Remaining()
        if remaining <= 0 {
            continue
        }
        bTake := min(boysLeft, remaining)
        remaining -= bTake
        gTake := min(girlsLeft, remaining)
        if bTake+gTake == 0 {
            continue
        }
        boysLeft -= bTake
        girlsLeft -= gTake
        sub := int64(bTake)*t.BoyPriceCents + int64(gTake)*t.GirlPriceCents
        q.Lines = append(q.Lines, model.BreakdownLine{
            Tier:           t.Label,
            Boys:           bTake,
            Girls:          gTake,
            BoyPriceCents:  t.BoyPriceCents,
            GirlPriceCents: t.GirlPriceCents,
            SubtotalCents:  sub,
        })
        q.TotalCents += sub
        if boysLeft == 0 && girlsLeft == 0 {
            return q, nil
        }
    }
    return Quote{}, ErrInsufficientInventory
}
