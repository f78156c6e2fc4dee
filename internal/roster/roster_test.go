package roster_test

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/inventory"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/roster"
    "github.com/nightpass/ticket-reservation/internal/store"
)

const adminID int64 = 9000

// fixture stands up a memory store holding one approved reservation
// with a boy and a girl on its roster.
func fixture(t *testing.T) (*roster.Service, *booking.Service, *store.Memory, *model.Reservation) {
    t.Helper()
    ctx := context.Background()
    mem := store.NewMemory()
    bsvc := booking.NewService(mem, inventory.NewLedger(), nil,
        func(id int64) bool { return id == adminID }, 0, nil)

    ev := &model.Event{
        Title:    "Warehouse Session",
        StartsAt: time.Now().UTC().Add(48 * time.Hour),
        Tiers: [3]model.Tier{
            {BoyPriceCents: 1000, GirlPriceCents: 800, Quota: 10},
        },
    }
    require.NoError(t, bsvc.CreateEvent(ctx, ev))

    res, err := bsvc.Submit(ctx, booking.SubmitInput{
        EventID: ev.ID,
        BuyerID: 42,
        Boys:    1,
        Girls:   1,
        Attendees: []booking.AttendeeInput{
            {FullName: "Avery Stone", Gender: model.GenderBoy},
            {FullName: "Casey Monroe", Gender: model.GenderGirl},
        },
        PaymentProofRef: "proof-1",
    })
    require.NoError(t, err)
    res, err = bsvc.Decide(ctx, adminID, res.Code, booking.DecideInput{Action: booking.ActionApprove})
    require.NoError(t, err)

    return roster.NewService(mem, nil), bsvc, mem, res
}

func TestAddGuest(t *testing.T) {
    rsvc, _, _, res := fixture(t)
    ctx := context.Background()

    a, err := rsvc.AddGuest(ctx, res.Code, model.GenderGirl, "Drew Calder")
    require.NoError(t, err)
    assert.Equal(t, "Drew", a.FirstName)
    assert.Equal(t, "Calder", a.LastName)
    assert.Equal(t, res.ID, a.ReservationID)
    assert.Equal(t, res.EventID, a.EventID)

    list, err := rsvc.List(ctx, roster.Filter{ReservationID: res.ID})
    require.NoError(t, err)
    assert.Len(t, list, 3)
}

func TestAddGuestValidation(t *testing.T) {
    rsvc, _, _, res := fixture(t)
    ctx := context.Background()

    _, err := rsvc.AddGuest(ctx, res.Code, model.GenderBoy, "Prince")
    assert.ErrorIs(t, err, booking.ErrInvalidName)

    _, err = rsvc.AddGuest(ctx, res.Code, "other", "Drew Calder")
    assert.ErrorIs(t, err, booking.ErrInvalidGender)

    _, err = rsvc.AddGuest(ctx, "RDEADBEEF00", model.GenderBoy, "Drew Calder")
    assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestRemoveGuestSoftDeletes(t *testing.T) {
    rsvc, _, _, res := fixture(t)
    ctx := context.Background()

    list, err := rsvc.List(ctx, roster.Filter{ReservationID: res.ID})
    require.NoError(t, err)
    require.Len(t, list, 2)

    removed, err := rsvc.RemoveGuest(ctx, list[0].ID)
    require.NoError(t, err)
    require.NotNil(t, removed.RemovedAt)

    // gone from active listings, still there with IncludeRemoved
    active, err := rsvc.List(ctx, roster.Filter{ReservationID: res.ID})
    require.NoError(t, err)
    assert.Len(t, active, 1)

    all, err := rsvc.List(ctx, roster.Filter{ReservationID: res.ID, IncludeRemoved: true})
    require.NoError(t, err)
    assert.Len(t, all, 2)

    // removing again is a not-found, not a second delete
    _, err = rsvc.RemoveGuest(ctx, list[0].ID)
    assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestRenameGuest(t *testing.T) {
    rsvc, _, _, res := fixture(t)
    ctx := context.Background()

    list, err := rsvc.List(ctx, roster.Filter{ReservationID: res.ID})
    require.NoError(t, err)

    renamed, err := rsvc.RenameGuest(ctx, list[0].ID, "Robin  van Doren")
    require.NoError(t, err)
    assert.Equal(t, "Robin", renamed.FirstName)
    assert.Equal(t, "van Doren", renamed.LastName)

    _, err = rsvc.RenameGuest(ctx, list[0].ID, "Cher")
    assert.ErrorIs(t, err, booking.ErrInvalidName)
}

func TestPostApprovalEditsDoNotTouchInventory(t *testing.T) {
    rsvc, bsvc, _, res := fixture(t)
    ctx := context.Background()

    before, err := bsvc.GetEvent(ctx, res.EventID)
    require.NoError(t, err)

    _, err = rsvc.AddGuest(ctx, res.Code, model.GenderBoy, "Ellis Hart")
    require.NoError(t, err)
    list, err := rsvc.List(ctx, roster.Filter{ReservationID: res.ID})
    require.NoError(t, err)
    _, err = rsvc.RemoveGuest(ctx, list[0].ID)
    require.NoError(t, err)

    after, err := bsvc.GetEvent(ctx, res.EventID)
    require.NoError(t, err)
    assert.Equal(t, before.Tiers[0].Sold, after.Tiers[0].Sold)
    assert.Equal(t, before.RemainingTotal(), after.RemainingTotal())
}

func TestListFiltersByStatusAndSearch(t *testing.T) {
    rsvc, bsvc, _, res := fixture(t)
    ctx := context.Background()

    // a second, still-pending reservation on the same event
    pending, err := bsvc.Submit(ctx, booking.SubmitInput{
        EventID: res.EventID,
        BuyerID: 43,
        Boys:    1,
        Attendees: []booking.AttendeeInput{
            {FullName: "Finley Mora", Gender: model.GenderBoy},
        },
    })
    require.NoError(t, err)

    approvedOnly, err := rsvc.List(ctx, roster.Filter{
        EventID:           res.EventID,
        ReservationStatus: model.StatusApproved,
    })
    require.NoError(t, err)
    assert.Len(t, approvedOnly, 2, "pending roster rows excluded from the door list")
    for _, a := range approvedOnly {
        assert.NotEqual(t, pending.ID, a.ReservationID)
    }

    byName, err := rsvc.List(ctx, roster.Filter{EventID: res.EventID, Search: "monroe"})
    require.NoError(t, err)
    require.Len(t, byName, 1)
    assert.Equal(t, "Casey", byName[0].FirstName)
}
