package booking_test

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/inventory"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/pricing"
    "github.com/nightpass/ticket-reservation/internal/queue"
    "github.com/nightpass/ticket-reservation/internal/store"
)

const adminID int64 = 9000

// recordingNotifier captures published decision events for assertions.
type recordingNotifier struct {
    mu     sync.Mutex
    events []queue.ReservationDecidedEvent
}

func (n *recordingNotifier) NotifyDecision(_ context.Context, ev queue.ReservationDecidedEvent) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.events = append(n.events, ev)
    return nil
}

func (n *recordingNotifier) all() []queue.ReservationDecidedEvent {
    n.mu.Lock()
    defer n.mu.Unlock()
    return append([]queue.ReservationDecidedEvent(nil), n.events...)
}

func newTestService(t *testing.T, ttl time.Duration) (*booking.Service, *store.Memory, *recordingNotifier) {
    t.Helper()
    mem := store.NewMemory()
    notifier := &recordingNotifier{}
    svc := booking.NewService(mem, inventory.NewLedger(), notifier,
        func(id int64) bool { return id == adminID }, ttl, nil)
    return svc, mem, notifier
}

func createTestEvent(t *testing.T, svc *booking.Service, quotas [3]int) *model.Event {
    t.Helper()
    ev := &model.Event{
        Title:    "Rooftop Night",
        StartsAt: time.Now().UTC().Add(72 * time.Hour),
        Location: "Skybar",
        Tiers: [3]model.Tier{
            {BoyPriceCents: 1000, GirlPriceCents: 800, Quota: quotas[0]},
            {BoyPriceCents: 1500, GirlPriceCents: 1200, Quota: quotas[1]},
            {BoyPriceCents: 2000, GirlPriceCents: 1600, Quota: quotas[2]},
        },
    }
    require.NoError(t, svc.CreateEvent(context.Background(), ev))
    return ev
}

func submitInput(eventID uint64, buyerID int64, boys, girls int) booking.SubmitInput {
    in := booking.SubmitInput{EventID: eventID, BuyerID: buyerID, Boys: boys, Girls: girls, PaymentProofRef: "proof-1"}
    names := []string{"Avery Stone", "Blake Rivers", "Casey Monroe", "Drew Calder", "Ellis Hart", "Finley Mora"}
    for i := 0; i < boys; i++ {
        in.Attendees = append(in.Attendees, booking.AttendeeInput{FullName: names[i%len(names)], Gender: model.GenderBoy})
    }
    for i := 0; i < girls; i++ {
        in.Attendees = append(in.Attendees, booking.AttendeeInput{FullName: names[(boys+i)%len(names)], Gender: model.GenderGirl})
    }
    return in
}

func TestSubmitCreatesPendingReservation(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{2, 10, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 3))
    require.NoError(t, err)

    assert.Equal(t, model.StatusPendingReview, res.Status)
    assert.Regexp(t, `^R[0-9A-F]{10}$`, res.Code)
    // 2 early bird seats at boy 10.00 / girl 8.00, then tier1 girl 12.00 twice
    assert.Equal(t, int64(1000+800+1200+1200), res.TotalCents)
    assert.Len(t, res.Breakdown, 2)

    got, err := svc.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 8, got.RemainingTotal(), "four seats held out of twelve")

    roster, err := svc.AttendeesByReservation(ctx, res.ID)
    require.NoError(t, err)
    assert.Len(t, roster, 4)
}

func TestSubmitRejectsSingleTokenName(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{5, 0, 0})

    in := submitInput(ev.ID, 42, 1, 0)
    in.Attendees[0].FullName = "Madonna"
    _, err := svc.Submit(context.Background(), in)
    assert.ErrorIs(t, err, booking.ErrInvalidName)
}

func TestSubmitRejectsRosterCountMismatch(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{5, 0, 0})

    in := submitInput(ev.ID, 42, 2, 1)
    in.Boys, in.Girls = 1, 2 // counts disagree with the attendee genders
    _, err := svc.Submit(context.Background(), in)
    assert.ErrorIs(t, err, booking.ErrRosterMismatch)
}

func TestSubmitRejectsBlockedBuyer(t *testing.T) {
    svc, mem, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{5, 0, 0})
    ctx := context.Background()

    require.NoError(t, mem.UpsertUser(ctx, &model.User{BuyerID: 42, Name: "Jamie", Surname: "Vale"}))
    require.NoError(t, mem.SetUserBlocked(ctx, 42, true, "chargeback"))

    _, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 0))
    assert.ErrorIs(t, err, booking.ErrBuyerBlocked)

    // inventory untouched by the refused submission
    got, err := svc.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 5, got.RemainingTotal())
}

func TestSubmitRejectsClosedEvent(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{5, 0, 0})
    ctx := context.Background()
    require.NoError(t, svc.SetEventStatus(ctx, ev.ID, model.EventClosed))

    _, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 0))
    assert.ErrorIs(t, err, booking.ErrEventClosed)

    _, err = svc.Quote(ctx, ev.ID, 1, 0)
    assert.ErrorIs(t, err, booking.ErrEventClosed)
}

func TestApproveCommitsInventoryAndNotifies(t *testing.T) {
    svc, _, notifier := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 1))
    require.NoError(t, err)

    decided, err := svc.Decide(ctx, adminID, res.Code, booking.DecideInput{Action: booking.ActionApprove})
    require.NoError(t, err)
    assert.Equal(t, model.StatusApproved, decided.Status)
    require.NotNil(t, decided.ReviewedBy)
    assert.Equal(t, adminID, *decided.ReviewedBy)

    got, err := svc.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, got.Tiers[0].Sold)
    assert.Equal(t, 0, got.Tiers[0].Reserved)
    assert.Equal(t, 2, got.RemainingTotal())

    events := notifier.all()
    require.Len(t, events, 1)
    assert.Equal(t, res.Code, events[0].Code)
    assert.Equal(t, string(model.StatusApproved), events[0].Status)
    assert.Equal(t, "Rooftop Night", events[0].EventTitle)
}

func TestRejectReleasesInventory(t *testing.T) {
    svc, _, notifier := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 2, 0))
    require.NoError(t, err)

    decided, err := svc.Decide(ctx, adminID, res.Code,
        booking.DecideInput{Action: booking.ActionRejectTemplate, Template: "payment_unreadable"})
    require.NoError(t, err)
    assert.Equal(t, model.StatusRejected, decided.Status)
    assert.Equal(t, booking.RejectTemplates["payment_unreadable"], decided.AdminNote)

    got, err := svc.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 4, got.RemainingTotal(), "rejected seats return to the pool")
    assert.Equal(t, 0, got.Tiers[0].Sold)

    require.Len(t, notifier.all(), 1)
}

func TestRejectTemplateUnknownKey(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 0))
    require.NoError(t, err)

    _, err = svc.Decide(ctx, adminID, res.Code,
        booking.DecideInput{Action: booking.ActionRejectTemplate, Template: "dog_ate_receipt"})
    assert.ErrorIs(t, err, booking.ErrUnknownTemplate)

    _, err = svc.Decide(ctx, adminID, res.Code, booking.DecideInput{Action: booking.ActionRejectCustom})
    assert.ErrorIs(t, err, booking.ErrMissingReason)

    // reservation still pending after the malformed attempts
    cur, err := svc.GetReservation(ctx, res.Code)
    require.NoError(t, err)
    assert.Equal(t, model.StatusPendingReview, cur.Status)
}

func TestDecideRequiresAdmin(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 0))
    require.NoError(t, err)

    _, err = svc.Decide(ctx, 12345, res.Code, booking.DecideInput{Action: booking.ActionApprove})
    assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestCancelByWrongBuyerForbidden(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 0))
    require.NoError(t, err)

    _, err = svc.Cancel(ctx, res.Code, 43)
    assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestCancelThenApproveLosesRace(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 2, 0))
    require.NoError(t, err)

    cancelled, err := svc.Cancel(ctx, res.Code, 42)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCancelled, cancelled.Status)

    current, err := svc.Decide(ctx, adminID, res.Code, booking.DecideInput{Action: booking.ActionApprove})
    assert.ErrorIs(t, err, booking.ErrAlreadyFinalized)
    require.NotNil(t, current)
    assert.Equal(t, model.StatusCancelled, current.Status)

    got, err := svc.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 4, got.RemainingTotal(), "cancel released the hold and approve never committed")
    assert.Equal(t, 0, got.Tiers[0].Sold)
}

func TestDoubleApproveCommitsOnce(t *testing.T) {
    svc, _, notifier := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 1))
    require.NoError(t, err)

    _, err = svc.Decide(ctx, adminID, res.Code, booking.DecideInput{Action: booking.ActionApprove})
    require.NoError(t, err)
    _, err = svc.Decide(ctx, adminID, res.Code, booking.DecideInput{Action: booking.ActionApprove})
    assert.ErrorIs(t, err, booking.ErrAlreadyFinalized)

    got, err := svc.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, got.Tiers[0].Sold, "second approve must not double-commit")
    assert.Len(t, notifier.all(), 1, "only the winning transition notifies")
}

func TestConcurrentSubmitLastSeat(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{1, 0, 0})
    ctx := context.Background()

    const buyers = 16
    var wg sync.WaitGroup
    errs := make([]error, buyers)
    for i := 0; i < buyers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = svc.Submit(ctx, submitInput(ev.ID, int64(100+i), 1, 0))
        }(i)
    }
    wg.Wait()

    won := 0
    for _, err := range errs {
        if err == nil {
            won++
        } else {
            assert.ErrorIs(t, err, inventory.ErrCapacityExceeded)
        }
    }
    assert.Equal(t, 1, won, "exactly one buyer gets the last seat")
}

func TestApproveFailsOnRosterDrift(t *testing.T) {
    svc, mem, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 1))
    require.NoError(t, err)

    roster, err := mem.AttendeesByReservation(ctx, res.ID)
    require.NoError(t, err)
    require.NoError(t, mem.RemoveAttendee(ctx, roster[0].ID, time.Now().UTC()))

    _, err = svc.Decide(ctx, adminID, res.Code, booking.DecideInput{Action: booking.ActionApprove})
    assert.ErrorIs(t, err, booking.ErrRosterMismatch)
}

func TestExpireOverdueSweep(t *testing.T) {
    svc, mem, notifier := newTestService(t, time.Hour)
    ev := createTestEvent(t, svc, [3]int{6, 0, 0})
    ctx := context.Background()

    stale, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 0))
    require.NoError(t, err)
    fresh, err := svc.Submit(ctx, submitInput(ev.ID, 43, 1, 0))
    require.NoError(t, err)

    // age the first reservation past the review window
    backdate(t, mem, stale.Code, time.Now().UTC().Add(-2*time.Hour))

    n, err := svc.ExpireOverdue(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, n)

    cur, err := svc.GetReservation(ctx, stale.Code)
    require.NoError(t, err)
    assert.Equal(t, model.StatusExpired, cur.Status)

    cur, err = svc.GetReservation(ctx, fresh.Code)
    require.NoError(t, err)
    assert.Equal(t, model.StatusPendingReview, cur.Status)

    got, err := svc.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 5, got.RemainingTotal(), "expired hold released, fresh hold kept")
    require.Len(t, notifier.all(), 1)
    assert.Equal(t, string(model.StatusExpired), notifier.all()[0].Status)
}

func TestExpireDisabledWithoutWindow(t *testing.T) {
    svc, mem, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{6, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 1, 0))
    require.NoError(t, err)
    backdate(t, mem, res.Code, time.Now().UTC().Add(-48*time.Hour))

    n, err := svc.ExpireOverdue(ctx)
    require.NoError(t, err)
    assert.Zero(t, n)
}

func TestRehydrateRestoresPendingHolds(t *testing.T) {
    svc, mem, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{3, 0, 0})
    ctx := context.Background()

    res, err := svc.Submit(ctx, submitInput(ev.ID, 42, 2, 0))
    require.NoError(t, err)

    // a fresh process over the same store
    restarted := booking.NewService(mem, inventory.NewLedger(), nil,
        func(id int64) bool { return id == adminID }, 0, nil)
    require.NoError(t, restarted.Rehydrate(ctx))

    got, err := restarted.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, got.RemainingTotal(), "pending hold survives restart")

    // the restored hold finalizes normally
    decided, err := restarted.Decide(ctx, adminID, res.Code, booking.DecideInput{Action: booking.ActionApprove})
    require.NoError(t, err)
    assert.Equal(t, model.StatusApproved, decided.Status)

    got, err = restarted.GetEvent(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, got.Tiers[0].Sold)
}

func TestUpdatePricingKeepsLiveHolds(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{4, 0, 0})
    ctx := context.Background()

    _, err := svc.Submit(ctx, submitInput(ev.ID, 42, 3, 0))
    require.NoError(t, err)

    _, err = svc.UpdatePricing(ctx, ev.ID, [3]model.Tier{
        {BoyPriceCents: 1100, GirlPriceCents: 900, Quota: 2},
    })
    assert.ErrorIs(t, err, inventory.ErrQuotaBelowCommitted)

    updated, err := svc.UpdatePricing(ctx, ev.ID, [3]model.Tier{
        {BoyPriceCents: 1100, GirlPriceCents: 900, Quota: 5},
    })
    require.NoError(t, err)
    assert.Equal(t, int64(1100), updated.Tiers[0].BoyPriceCents)
    assert.Equal(t, 3, updated.Tiers[0].Reserved)
}

func TestQuoteInsufficientInventory(t *testing.T) {
    svc, _, _ := newTestService(t, 0)
    ev := createTestEvent(t, svc, [3]int{1, 1, 0})

    _, err := svc.Quote(context.Background(), ev.ID, 2, 1)
    assert.ErrorIs(t, err, pricing.ErrInsufficientInventory)
}

// backdate rewrites a reservation's creation timestamp through a raw
// store round trip, since the public API never exposes it.
func backdate(t *testing.T, mem *store.Memory, code string, at time.Time) {
    t.Helper()
    ctx := context.Background()
    require.NoError(t, mem.BackdateReservation(ctx, code, at))
}
