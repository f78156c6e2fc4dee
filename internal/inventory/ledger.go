// Package inventory tracks per-event, per-tier seat counters and the
// holds that pending reservations place on them.  All mutation of an
// event's counters happens under that event's mutex, which is the
// serialization boundary the booking flow relies on: two concurrent
// reservations against the same event are applied one after the other
// and can never jointly oversell a tier.
package inventory

import (
    "errors"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/pricing"
)

// ErrCapacityExceeded is returned when a reserve attempt loses a race:
// the live counters no longer cover the requested demand.  The caller
// must re-quote, since tiers may have shifted.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrUnknownEvent is returned when an event was never registered with
// the ledger.
var ErrUnknownEvent = errors.New("event not registered in ledger")

// ErrUnknownHold is returned when a hold token does not correspond to
// an outstanding hold.  Releasing or committing the same hold twice
// hits this error, which protects the counters from double release.
var ErrUnknownHold = errors.New("unknown or already finalized hold")

// ErrQuotaBelowCommitted is returned by SetPricing when a new quota
// would drop below the seats already reserved or sold in that tier.
var ErrQuotaBelowCommitted = errors.New("quota below reserved+sold")

// Hold is a reserved-but-not-yet-sold allocation.  The token is
// opaque to callers; the lines record exactly which tier counters
// were incremented so that release and commit reverse or convert the
// same delta.
type Hold struct {
    Token     string
    EventID   uint64
    Lines     []model.BreakdownLine
    CreatedAt time.Time
}

// eventState is the ledger's view of one event: live tier counters
// plus the outstanding holds against them.  mu serializes every
// reserve, release and commit for the event.
type eventState struct {
    mu    sync.Mutex
    tiers [3]model.Tier
    holds map[string][]model.BreakdownLine
}

// Ledger holds counters for all registered events.  The outer RWMutex
// only guards the event map; per-event work contends on the event's
// own mutex.
type Ledger struct {
    mu     sync.RWMutex
    events map[uint64]*eventState
}

// NewLedger returns an empty ledger.  Events must be registered
// before they can be quoted or reserved.
func NewLedger() *Ledger {
    return &Ledger{events: make(map[uint64]*eventState)}
}

// Register installs counters for an event, replacing any previous
// registration.  Reserved is forced to zero: outstanding holds do not
// survive re-registration and must be restored explicitly.
func (l *Ledger) Register(eventID uint64, tiers [3]model.Tier) {
    for i := range tiers {
        tiers[i].Reserved = 0
    }
    l.mu.Lock()
    defer l.mu.Unlock()
    l.events[eventID] = &eventState{tiers: tiers, holds: make(map[string][]model.BreakdownLine)}
}

func (l *Ledger) state(eventID uint64) (*eventState, error) {
    l.mu.RLock()
    defer l.mu.RUnlock()
    ev, ok := l.events[eventID]
    if !ok {
        return nil, ErrUnknownEvent
    }
    return ev, nil
}

// Counters returns a snapshot of the event's tier counters.
func (l *Ledger) Counters(eventID uint64) ([3]model.Tier, error) {
    ev, err := l.state(eventID)
    if err != nil {
        return [3]model.Tier{}, err
    }
    ev.mu.Lock()
    defer ev.mu.Unlock()
    return ev.tiers, nil
}

// Quote prices the requested counts against the live counters without
// reserving anything.  The result is advisory: capacity may move
// before a subsequent Reserve, which re-validates under the lock.
func (l *Ledger) Quote(eventID uint64, boys, girls int) (pricing.Quote, error) {
    ev, err := l.state(eventID)
    if err != nil {
        return pricing.Quote{}, err
    }
    ev.mu.Lock()
    defer ev.mu.Unlock()
    return pricing.Compute(ev.tiers, boys, girls)
}

// Reserve computes an allocation plan against the live counters and
// applies it as a hold, all inside the event's critical section.  A
// plan computed earlier (e.g. a displayed quote) is never trusted:
// if capacity moved, the fresh computation fails and the caller gets
// ErrCapacityExceeded.  Either the full plan is reserved or none of
// it is.
func (l *Ledger) Reserve(eventID uint64, boys, girls int) (*Hold, pricing.Quote, error) {
    ev, err := l.state(eventID)
    if err != nil {
        return nil, pricing.Quote{}, err
    }
    ev.mu.Lock()
    defer ev.mu.Unlock()
    q, err := pricing.Compute(ev.tiers, boys, girls)
    if err != nil {
        return nil, pricing.Quote{}, ErrCapacityExceeded
    }
    h := &Hold{
        Token:     uuid.NewString(),
        EventID:   eventID,
        Lines:     q.Lines,
        CreatedAt: time.Now().UTC(),
    }
    ev.applyReserve(q.Lines)
    ev.holds[h.Token] = q.Lines
    return h, q, nil
}

// Restore re-applies the hold of a pending reservation from its stored
// breakdown snapshot.  Used at startup to rebuild ledger state from
// the store.  The snapshot must still fit each tier's free capacity.
func (l *Ledger) Restore(eventID uint64, lines []model.BreakdownLine) (*Hold, error) {
    ev, err := l.state(eventID)
    if err != nil {
        return nil, err
    }
    ev.mu.Lock()
    defer ev.mu.Unlock()
    for _, line := range lines {
        t := ev.tier(line.Tier)
        if t == nil || t.Remaining() < line.Seats() {
            return nil, ErrCapacityExceeded
        }
    }
    h := &Hold{
        Token:     uuid.NewString(),
        EventID:   eventID,
        Lines:     lines,
        CreatedAt: time.Now().UTC(),
    }
    ev.applyReserve(lines)
    ev.holds[h.Token] = lines
    return h, nil
}

// Release reverses a hold, returning its seats to the free pool.  The
// counters end up exactly as they were before the reserve.  Releasing
// a hold twice fails with ErrUnknownHold and changes nothing.
func (l *Ledger) Release(h *Hold) error {
    ev, err := l.state(h.EventID)
    if err != nil {
        return err
    }
    ev.mu.Lock()
    defer ev.mu.Unlock()
    lines, ok := ev.holds[h.Token]
    if !ok {
        return ErrUnknownHold
    }
    for _, line := range lines {
        ev.tier(line.Tier).Reserved -= line.Seats()
    }
    delete(ev.holds, h.Token)
    return nil
}

// Commit converts a hold into a permanent sale.  The seats move from
// Reserved to Sold; total consumed quota is unchanged, so no capacity
// is freed.  Committing a finalized hold fails with ErrUnknownHold.
func (l *Ledger) Commit(h *Hold) error {
    ev, err := l.state(h.EventID)
    if err != nil {
        return err
    }
    ev.mu.Lock()
    defer ev.mu.Unlock()
    lines, ok := ev.holds[h.Token]
    if !ok {
        return ErrUnknownHold
    }
    for _, line := range lines {
        t := ev.tier(line.Tier)
        t.Reserved -= line.Seats()
        t.Sold += line.Seats()
    }
    delete(ev.holds, h.Token)
    return nil
}

// SetPricing updates prices and quotas for an event while preserving
// the live Reserved and Sold counters.  Quotas may not drop below the
// seats already committed in a tier.  Existing reservations keep their
// breakdown snapshots, so this never reprices a past booking.
func (l *Ledger) SetPricing(eventID uint64, tiers [3]model.Tier) error {
    ev, err := l.state(eventID)
    if err != nil {
        return err
    }
    ev.mu.Lock()
    defer ev.mu.Unlock()
    for i := range tiers {
        committed := ev.tiers[i].Reserved + ev.tiers[i].Sold
        if tiers[i].Quota < committed {
            return ErrQuotaBelowCommitted
        }
    }
    for i := range tiers {
        ev.tiers[i].BoyPriceCents = tiers[i].BoyPriceCents
        ev.tiers[i].GirlPriceCents = tiers[i].GirlPriceCents
        ev.tiers[i].Quota = tiers[i].Quota
    }
    return nil
}

func (ev *eventState) applyReserve(lines []model.BreakdownLine) {
    for _, line := range lines {
        ev.tier(line.Tier).Reserved += line.Seats()
    }
}

// tier returns a pointer into the event's counter array for the given
// label, or nil for an unknown label.  Callers hold ev.mu.
func (ev *eventState) tier(label model.TierLabel) *model.Tier {
    for i := range ev.tiers {
        if ev.tiers[i].Label == label {
            return &ev.tiers[i]
        }
    }
    return nil
}
