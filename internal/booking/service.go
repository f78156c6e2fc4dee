package booking

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "errors"
    "fmt"
    "strings"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/nightpass/ticket-reservation/internal/inventory"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/pricing"
    "github.com/nightpass/ticket-reservation/internal/queue"
)

// Action is a decision applied to a pending reservation through the
// admin gateway or the buyer cancel endpoint.
type Action string

const (
    ActionApprove        Action = "approve"
    ActionRejectTemplate Action = "reject_template"
    ActionRejectCustom   Action = "reject_custom"
    ActionCancel         Action = "cancel"
)

// RejectTemplates maps template keys to the canned rejection notes an
// admin can apply without typing a reason.
var RejectTemplates = map[string]string{
    "payment_unreadable": "Payment proof is unreadable. Please upload a clearer photo and book again.",
    "payment_amount":     "Payment amount does not match the quoted total.",
    "event_full":         "The event filled up before your payment could be reviewed.",
}

// Notifier delivers decision events to the external transport.  The
// booking flow treats delivery as best effort: a failed publish is
// logged, never rolled back.
type Notifier interface {
    NotifyDecision(ctx context.Context, ev queue.ReservationDecidedEvent) error
}

// AttendeeInput is one named seat in a submission.
type AttendeeInput struct {
    FullName string
    Gender   model.Gender
}

// SubmitInput is a complete booking draft assembled by the transport.
// The engine never observes partial drafts; counts, roster and the
// payment proof handle arrive together.
type SubmitInput struct {
    EventID         uint64
    BuyerID         int64
    Boys            int
    Girls           int
    Attendees       []AttendeeInput
    PaymentProofRef string
}

// DecideInput carries the admin decision payload.
type DecideInput struct {
    Action   Action
    Template string // template key for reject_template
    Reason   string // free text for reject_custom / cancel note
}

// Service is the reservation state machine.  It owns every transition
// out of pending_payment_review and is the only component that talks
// to both the ledger and the store, so inventory and persisted status
// can never finalize independently.
type Service struct {
    store     Store
    ledger    *inventory.Ledger
    notifier  Notifier
    isAdmin   func(int64) bool
    reviewTTL time.Duration
    log       *zap.Logger

    mu    sync.Mutex
    holds map[string]*inventory.Hold // reservation code -> outstanding hold
}

// NewService wires the state machine.  notifier may be nil (no
// notifications), isAdmin may be nil (all admin decisions refused) and
// reviewTTL <= 0 disables expiry.
func NewService(store Store, ledger *inventory.Ledger, notifier Notifier, isAdmin func(int64) bool, reviewTTL time.Duration, log *zap.Logger) *Service {
    if log == nil {
        log = zap.NewNop()
    }
    return &Service{
        store:     store,
        ledger:    ledger,
        notifier:  notifier,
        isAdmin:   isAdmin,
        reviewTTL: reviewTTL,
        log:       log,
        holds:     make(map[string]*inventory.Hold),
    }
}

// ReviewTTL returns the configured review window (0 = disabled).
func (s *Service) ReviewTTL() time.Duration { return s.reviewTTL }

// Rehydrate rebuilds the ledger from the store: every event's quotas,
// prices and sold counts are registered, then the hold of each still
// pending reservation is re-applied from its breakdown snapshot.  Must
// be called once before the service handles traffic.
func (s *Service) Rehydrate(ctx context.Context) error {
    events, err := s.store.ListEvents(ctx, "")
    if err != nil {
        return fmt.Errorf("rehydrate events: %w", err)
    }
    for _, ev := range events {
        s.ledger.Register(ev.ID, ev.Tiers)
    }
    pending, err := s.store.ListReservations(ctx, ReservationFilter{Status: model.StatusPendingReview, Sort: SortOldest})
    if err != nil {
        return fmt.Errorf("rehydrate reservations: %w", err)
    }
    for i := range pending {
        r := &pending[i]
        h, err := s.ledger.Restore(r.EventID, r.Breakdown)
        if err != nil {
            s.log.Error("failed to restore hold for pending reservation",
                zap.String("code", r.Code), zap.Uint64("event_id", r.EventID), zap.Error(err))
            continue
        }
        s.mu.Lock()
        s.holds[r.Code] = h
        s.mu.Unlock()
    }
    return nil
}

// CreateEvent stores a new event and registers its tiers with the
// ledger.  Tier labels are normalized to the fixed consumption order.
func (s *Service) CreateEvent(ctx context.Context, ev *model.Event) error {
    if ev.Status == "" {
        ev.Status = model.EventOpen
    }
    for i := range ev.Tiers {
        ev.Tiers[i].Label = model.TierOrder[i]
        ev.Tiers[i].Reserved = 0
        ev.Tiers[i].Sold = 0
    }
    if err := s.store.CreateEvent(ctx, ev); err != nil {
        return err
    }
    s.ledger.Register(ev.ID, ev.Tiers)
    s.log.Info("event created", zap.Uint64("event_id", ev.ID), zap.String("title", ev.Title))
    return nil
}

// UpdatePricing applies new per-tier prices and quotas.  Live holds
// and sales survive; quotas cannot drop below seats already committed.
// Existing reservations keep their booking-time breakdown snapshots.
func (s *Service) UpdatePricing(ctx context.Context, eventID uint64, tiers [3]model.Tier) (*model.Event, error) {
    for i := range tiers {
        tiers[i].Label = model.TierOrder[i]
    }
    if err := s.ledger.SetPricing(eventID, tiers); err != nil {
        if errors.Is(err, inventory.ErrUnknownEvent) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if err := s.store.UpdateEventTiers(ctx, eventID, tiers); err != nil {
        return nil, err
    }
    return s.GetEvent(ctx, eventID)
}

// SetEventStatus opens or closes an event listing.
func (s *Service) SetEventStatus(ctx context.Context, eventID uint64, status model.EventStatus) error {
    return s.store.UpdateEventStatus(ctx, eventID, status)
}

// GetEvent returns the event with live tier counters merged in.
func (s *Service) GetEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
    ev, err := s.store.GetEvent(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if counters, cerr := s.ledger.Counters(eventID); cerr == nil {
        ev.Tiers = counters
    }
    return ev, nil
}

// ListOpenEvents returns the bookable catalog with live counters.
func (s *Service) ListOpenEvents(ctx context.Context) ([]model.Event, error) {
    events, err := s.store.ListEvents(ctx, model.EventOpen)
    if err != nil {
        return nil, err
    }
    for i := range events {
        if counters, cerr := s.ledger.Counters(events[i].ID); cerr == nil {
            events[i].Tiers = counters
        }
    }
    return events, nil
}

// Quote prices the requested counts against live counters without
// reserving anything.  Fails with pricing.ErrInsufficientInventory
// when the party does not fit the combined remaining quota.
func (s *Service) Quote(ctx context.Context, eventID uint64, boys, girls int) (pricing.Quote, error) {
    ev, err := s.store.GetEvent(ctx, eventID)
    if err != nil {
        return pricing.Quote{}, err
    }
    if ev.Status != model.EventOpen {
        return pricing.Quote{}, ErrEventClosed
    }
    q, err := s.ledger.Quote(eventID, boys, girls)
    if errors.Is(err, inventory.ErrUnknownEvent) {
        return pricing.Quote{}, ErrNotFound
    }
    return q, err
}

// Submit converts a complete draft into a pending reservation.  The
// allocation plan is computed and reserved inside one ledger critical
// section; on a race loss the buyer gets inventory.ErrCapacityExceeded
// and must re-quote.  The reservation and its roster are persisted
// atomically; if persistence fails the hold is released and nothing
// remains.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*model.Reservation, error) {
    if in.Boys < 0 || in.Girls < 0 || in.Boys+in.Girls == 0 {
        return nil, fmt.Errorf("%w: at least one attendee required", ErrRosterMismatch)
    }
    roster := make([]model.Attendee, 0, len(in.Attendees))
    boys, girls := 0, 0
    for _, a := range in.Attendees {
        if !a.Gender.Valid() {
            return nil, fmt.Errorf("%w: %q", ErrInvalidGender, a.Gender)
        }
        first, last, ok := model.SplitFullName(a.FullName)
        if !ok {
            return nil, fmt.Errorf("%w: %q", ErrInvalidName, a.FullName)
        }
        if a.Gender == model.GenderBoy {
            boys++
        } else {
            girls++
        }
        roster = append(roster, model.Attendee{
            EventID:   in.EventID,
            FirstName: first,
            LastName:  last,
            Gender:    a.Gender,
        })
    }
    if boys != in.Boys || girls != in.Girls {
        return nil, ErrRosterMismatch
    }

    u, err := s.store.GetUser(ctx, in.BuyerID)
    if err != nil && !errors.Is(err, ErrNotFound) {
        return nil, err
    }
    if u != nil && u.Blocked {
        return nil, ErrBuyerBlocked
    }

    ev, err := s.store.GetEvent(ctx, in.EventID)
    if err != nil {
        return nil, err
    }
    if ev.Status != model.EventOpen {
        return nil, ErrEventClosed
    }

    hold, q, err := s.ledger.Reserve(in.EventID, in.Boys, in.Girls)
    if err != nil {
        if errors.Is(err, inventory.ErrUnknownEvent) {
            return nil, ErrNotFound
        }
        return nil, err
    }

    code, err := newCode()
    if err != nil {
        s.releaseHold(hold, "code generation failed")
        return nil, err
    }
    res := &model.Reservation{
        Code:            code,
        EventID:         in.EventID,
        BuyerID:         in.BuyerID,
        Boys:            in.Boys,
        Girls:           in.Girls,
        TotalCents:      q.TotalCents,
        Breakdown:       q.Lines,
        Status:          model.StatusPendingReview,
        PaymentProofRef: in.PaymentProofRef,
        CreatedAt:       time.Now().UTC(),
    }
    if err := s.store.CreateReservation(ctx, res, roster); err != nil {
        s.releaseHold(hold, "persist failed")
        return nil, err
    }
    s.mu.Lock()
    s.holds[code] = hold
    s.mu.Unlock()

    s.log.Info("reservation submitted",
        zap.String("code", code),
        zap.Uint64("event_id", in.EventID),
        zap.Int64("buyer_id", in.BuyerID),
        zap.Int("boys", in.Boys),
        zap.Int("girls", in.Girls),
        zap.Int64("total_cents", q.TotalCents))
    return res, nil
}

// Cancel is the buyer-initiated transition to cancelled, allowed only
// while the reservation is still pending.  It races admin approval
// through the same compare-and-swap as every terminal transition; the
// loser observes ErrAlreadyFinalized.
func (s *Service) Cancel(ctx context.Context, code string, buyerID int64) (*model.Reservation, error) {
    res, err := s.store.GetReservationByCode(ctx, code)
    if err != nil {
        return nil, err
    }
    if res.BuyerID != buyerID {
        return nil, ErrForbidden
    }
    return s.finalize(ctx, res, model.StatusCancelled, "cancelled by buyer", nil)
}

// Decide applies an admin action to a pending reservation looked up by
// code.  The injected admin predicate gates access; transports bring
// their own allowlists.  An already-finalized reservation yields
// ErrAlreadyFinalized along with its current state and never touches
// inventory again.
func (s *Service) Decide(ctx context.Context, adminID int64, code string, in DecideInput) (*model.Reservation, error) {
    if s.isAdmin == nil || !s.isAdmin(adminID) {
        return nil, ErrForbidden
    }
    res, err := s.store.GetReservationByCode(ctx, code)
    if err != nil {
        return nil, err
    }
    switch in.Action {
    case ActionApprove:
        if err := s.checkRoster(ctx, res); err != nil {
            return nil, err
        }
        return s.finalize(ctx, res, model.StatusApproved, "", &adminID)
    case ActionRejectTemplate:
        note, ok := RejectTemplates[in.Template]
        if !ok {
            return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, in.Template)
        }
        return s.finalize(ctx, res, model.StatusRejected, note, &adminID)
    case ActionRejectCustom:
        reason := strings.TrimSpace(in.Reason)
        if reason == "" {
            return nil, ErrMissingReason
        }
        return s.finalize(ctx, res, model.StatusRejected, reason, &adminID)
    case ActionCancel:
        return s.finalize(ctx, res, model.StatusCancelled, strings.TrimSpace(in.Reason), &adminID)
    default:
        return nil, fmt.Errorf("%w: %q", ErrUnknownAction, in.Action)
    }
}

// ExpireOverdue moves pending reservations older than the review
// window to expired, releasing their holds.  Runs through the same
// finalize path as admin decisions, so it can never double-release a
// reservation an admin just decided.  Returns the number expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
    if s.reviewTTL <= 0 {
        return 0, nil
    }
    cutoff := time.Now().UTC().Add(-s.reviewTTL)
    overdue, err := s.store.ListReservations(ctx, ReservationFilter{
        Status:        model.StatusPendingReview,
        CreatedBefore: cutoff,
        Sort:          SortOldest,
    })
    if err != nil {
        return 0, err
    }
    expired := 0
    for i := range overdue {
        _, err := s.finalize(ctx, &overdue[i], model.StatusExpired, "review window elapsed", nil)
        switch {
        case err == nil:
            expired++
        case errors.Is(err, ErrAlreadyFinalized):
            // decided while we were sweeping; nothing to do
        default:
            s.log.Error("failed to expire reservation", zap.String("code", overdue[i].Code), zap.Error(err))
        }
    }
    return expired, nil
}

// ListReservations and AttendeesByReservation expose store listings to
// the gateway layer with the service's error semantics.
func (s *Service) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
    return s.store.ListReservations(ctx, f)
}

func (s *Service) AttendeesByReservation(ctx context.Context, reservationID uint64) ([]model.Attendee, error) {
    return s.store.AttendeesByReservation(ctx, reservationID)
}

// GetReservation looks a reservation up by its public code.
func (s *Service) GetReservation(ctx context.Context, code string) (*model.Reservation, error) {
    return s.store.GetReservationByCode(ctx, code)
}

// checkRoster verifies the active roster matches the reservation's
// requested counts before an approval is allowed.
func (s *Service) checkRoster(ctx context.Context, res *model.Reservation) error {
    attendees, err := s.store.AttendeesByReservation(ctx, res.ID)
    if err != nil {
        return err
    }
    boys, girls := 0, 0
    for _, a := range attendees {
        if a.Gender == model.GenderBoy {
            boys++
        } else {
            girls++
        }
    }
    if boys != res.Boys || girls != res.Girls {
        return ErrRosterMismatch
    }
    return nil
}

// finalize applies a terminal transition.  The store-level
// compare-and-swap decides the winner under concurrency; only the
// winner touches the ledger, exactly once.  On a lost race the current
// reservation state is returned with ErrAlreadyFinalized.
func (s *Service) finalize(ctx context.Context, res *model.Reservation, to model.ReservationStatus, note string, reviewedBy *int64) (*model.Reservation, error) {
    now := time.Now().UTC()
    swapped, err := s.store.FinalizeReservation(ctx, res.Code, to, note, reviewedBy, now)
    if err != nil {
        return nil, err
    }
    if !swapped {
        current, gerr := s.store.GetReservationByCode(ctx, res.Code)
        if gerr != nil {
            return nil, gerr
        }
        return current, ErrAlreadyFinalized
    }

    s.mu.Lock()
    hold := s.holds[res.Code]
    delete(s.holds, res.Code)
    s.mu.Unlock()

    if hold == nil {
        s.log.Error("no outstanding hold for finalized reservation", zap.String("code", res.Code))
    } else if to == model.StatusApproved {
        if err := s.ledger.Commit(hold); err != nil {
            s.log.Error("ledger commit failed", zap.String("code", res.Code), zap.Error(err))
        } else {
            s.persistSold(ctx, res.EventID)
        }
    } else {
        if err := s.ledger.Release(hold); err != nil {
            s.log.Error("ledger release failed", zap.String("code", res.Code), zap.Error(err))
        }
    }

    final := *res
    final.Status = to
    final.AdminNote = note
    final.ReviewedBy = reviewedBy
    final.ReviewedAt = &now

    s.log.Info("reservation finalized",
        zap.String("code", final.Code),
        zap.String("status", string(to)),
        zap.Uint64("event_id", final.EventID))
    s.notifyDecision(ctx, &final)
    return &final, nil
}

// persistSold writes the per-tier sold counters through to the store
// after a commit.  Failures are logged; the ledger remains the runtime
// source of truth and the counters converge on the next restart.
func (s *Service) persistSold(ctx context.Context, eventID uint64) {
    counters, err := s.ledger.Counters(eventID)
    if err != nil {
        s.log.Error("ledger counters unavailable", zap.Uint64("event_id", eventID), zap.Error(err))
        return
    }
    var sold [3]int
    for i := range counters {
        sold[i] = counters[i].Sold
    }
    if err := s.store.SaveTierSold(ctx, eventID, sold); err != nil {
        s.log.Error("failed to persist sold counters", zap.Uint64("event_id", eventID), zap.Error(err))
    }
}

func (s *Service) notifyDecision(ctx context.Context, res *model.Reservation) {
    if s.notifier == nil {
        return
    }
    title := ""
    if ev, err := s.store.GetEvent(ctx, res.EventID); err == nil {
        title = ev.Title
    }
    ev := queue.ReservationDecidedEvent{
        Code:       res.Code,
        EventID:    res.EventID,
        EventTitle: title,
        BuyerID:    res.BuyerID,
        Status:     string(res.Status),
        Boys:       res.Boys,
        Girls:      res.Girls,
        TotalCents: res.TotalCents,
        Note:       res.AdminNote,
        DecidedBy:  res.ReviewedBy,
        DecidedAt:  res.ReviewedAt.UTC().Format(time.RFC3339),
    }
    if err := s.notifier.NotifyDecision(ctx, ev); err != nil {
        s.log.Warn("decision notification failed", zap.String("code", res.Code), zap.Error(err))
    }
}

func (s *Service) releaseHold(h *inventory.Hold, why string) {
    if err := s.ledger.Release(h); err != nil {
        s.log.Error("failed to release hold", zap.String("reason", why), zap.Error(err))
    }
}

// newCode generates a human-referenceable reservation code: "R"
// followed by ten uppercase hex characters.  Uniqueness is enforced by
// the store's unique constraint on the code column.
func newCode() (string, error) {
    b := make([]byte, 5)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return "R" + strings.ToUpper(hex.EncodeToString(b)), nil
}
