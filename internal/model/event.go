package model

import "time"

// TierLabel identifies one of the three ordered pricing brackets of an
// event.  Tiers are consumed in declaration order: Early Bird first,
// then Tier-1, then Tier-2.
type TierLabel string

const (
    TierEarlyBird TierLabel = "early_bird" // first bracket to sell out
    TierOne       TierLabel = "tier1"      // second bracket
    TierTwo       TierLabel = "tier2"      // last bracket
)

// TierOrder lists the tiers in consumption order.  Allocation and
// pricing always walk this slice front to back.
var TierOrder = [3]TierLabel{TierEarlyBird, TierOne, TierTwo}

// Gender selects which per-tier price applies to an attendee.  Only
// the two values below are valid anywhere in the system.
type Gender string

const (
    GenderBoy  Gender = "boy"
    GenderGirl Gender = "girl"
)

// Valid reports whether g is one of the two accepted gender values.
func (g Gender) Valid() bool { return g == GenderBoy || g == GenderGirl }

// Tier is a pricing bracket with its own gender prices and a finite
// seat quota.  Reserved counts seats held by pending reservations,
// Sold counts seats of approved reservations.  The invariant
// Reserved+Sold <= Quota must hold at all times.
//
// Fields:
//  Label          – which bracket this is (early_bird, tier1, tier2).
//  BoyPriceCents  – price per boy ticket in minor units.
//  GirlPriceCents – price per girl ticket in minor units.
//  Quota          – total seats sellable in this bracket.
//  Reserved       – seats held by pending reservations.
//  Sold           – seats of approved reservations.
type Tier struct {
    Label          TierLabel // event_tiers.label
    BoyPriceCents  int64     // event_tiers.boy_price_cents
    GirlPriceCents int64     // event_tiers.girl_price_cents
    Quota          int       // event_tiers.quota
    Reserved       int       // in-memory hold delta (not persisted)
    Sold           int       // event_tiers.sold
}

// Remaining returns the number of seats still sellable in the tier.
func (t Tier) Remaining() int { return t.Quota - t.Reserved - t.Sold }

// EventStatus is the lifecycle state of an event listing.
type EventStatus string

const (
    EventOpen   EventStatus = "open"   // accepting bookings
    EventClosed EventStatus = "closed" // hidden from the catalog
)

// Event represents a sellable party/event with three ordered pricing
// tiers.  This struct corresponds to a row in the `events` table plus
// its three `event_tiers` rows.
//
// Fields:
//  ID        – primary key identifier.
//  Title     – display title of the event.
//  StartsAt  – when the event takes place (UTC).
//  Location  – venue description.
//  Caption   – promotional text shown with the listing.
//  PhotoRef  – opaque reference to a promo image held by the transport.
//  Status    – open or closed.
//  Tiers     – the three pricing brackets in consumption order,
//              loaded from the event_tiers rows.
//  CreatedAt – creation timestamp.
//  UpdatedAt – timestamp of last update.
type Event struct {
    ID        uint64      // events.id
    Title     string      // events.title
    StartsAt  time.Time   // events.starts_at
    Location  string      // events.location
    Caption   string      // events.caption
    PhotoRef  string      // events.photo_ref
    Status    EventStatus // events.status
    Tiers     [3]Tier     // per-tier pricing columns
    CreatedAt time.Time   // events.created_at
    UpdatedAt time.Time   // events.updated_at
}

// ActiveTier returns the first tier that still has remaining capacity,
// or nil when the event is sold out.
func (e *Event) ActiveTier() *Tier {
    for i := range e.Tiers {
        if e.Tiers[i].Remaining() > 0 {
            return &e.Tiers[i]
        }
    }
    return nil
}

// RemainingTotal sums the remaining capacity across all three tiers.
func (e *Event) RemainingTotal() int {
    total := 0
    for _, t := range e.Tiers {
        total += t.Remaining()
    }
    return total
}
