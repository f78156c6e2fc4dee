package handler

import (
    "context"
    "encoding/csv"
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/roster"
)

// AdminEventHandler manages the event catalog: creation, pricing
// edits, open/close and the guest list export.
type AdminEventHandler struct {
    Booking *booking.Service
    Roster  *roster.Service
}

func NewAdminEventHandler(bsvc *booking.Service, rsvc *roster.Service) *AdminEventHandler {
    return &AdminEventHandler{Booking: bsvc, Roster: rsvc}
}

// ----- DTOs -----

type tierReq struct {
    BoyPriceCents  int64 `json:"boy_price_cents"`
    GirlPriceCents int64 `json:"girl_price_cents"`
    Quota          int   `json:"quota"`
}

type createEventReq struct {
    Title    string     `json:"title"`
    StartsAt time.Time  `json:"starts_at"`
    Location string     `json:"location"`
    Caption  string     `json:"caption"`
    PhotoRef string     `json:"photo_ref"`
    Tiers    [3]tierReq `json:"tiers"` // consumption order: early_bird, tier1, tier2
}

type updatePricingReq struct {
    Tiers [3]tierReq `json:"tiers"`
}

func tiersFromReq(in [3]tierReq) ([3]model.Tier, error) {
    var tiers [3]model.Tier
    for i, t := range in {
        if t.BoyPriceCents < 0 || t.GirlPriceCents < 0 || t.Quota < 0 {
            return tiers, fmt.Errorf("tier %d: negative price or quota", i)
        }
        tiers[i] = model.Tier{
            BoyPriceCents:  t.BoyPriceCents,
            GirlPriceCents: t.GirlPriceCents,
            Quota:          t.Quota,
        }
    }
    return tiers, nil
}

// Create registers a new event with its three pricing tiers.
func (h *AdminEventHandler) Create(c echo.Context) error {
    var req createEventReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Title == "" || req.StartsAt.IsZero() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and starts_at required"})
    }
    tiers, err := tiersFromReq(req.Tiers)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    ev := &model.Event{
        Title:    req.Title,
        StartsAt: req.StartsAt.UTC(),
        Location: req.Location,
        Caption:  req.Caption,
        PhotoRef: req.PhotoRef,
        Status:   model.EventOpen,
        Tiers:    tiers,
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Booking.CreateEvent(ctx, ev); err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, toEventResp(ev))
}

// UpdatePricing applies new prices and quotas.  Live holds and sales
// survive; lowering a quota below committed seats is refused.
func (h *AdminEventHandler) UpdatePricing(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var req updatePricingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    tiers, err := tiersFromReq(req.Tiers)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    ev, err := h.Booking.UpdatePricing(ctx, id, tiers)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, toEventResp(ev))
}

// SetStatus opens or closes an event listing.
func (h *AdminEventHandler) SetStatus(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var req struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    status := model.EventStatus(req.Status)
    if status != model.EventOpen && status != model.EventClosed {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be open or closed"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Booking.SetEventStatus(ctx, id, status); err != nil {
        return fail(c, err)
    }
    ev, err := h.Booking.GetEvent(ctx, id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, toEventResp(ev))
}

// ExportGuests streams the approved guest list of an event as CSV for
// the door staff.
func (h *AdminEventHandler) ExportGuests(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if _, err := h.Booking.GetEvent(ctx, id); err != nil {
        return fail(c, err)
    }
    guests, err := h.Roster.List(ctx, roster.Filter{
        EventID:           id,
        ReservationStatus: model.StatusApproved,
        Sort:              booking.SortOldest,
    })
    if err != nil {
        return fail(c, err)
    }

    c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
    c.Response().Header().Set(echo.HeaderContentDisposition,
        fmt.Sprintf(`attachment; filename="guests-event-%d.csv"`, id))
    c.Response().WriteHeader(http.StatusOK)

    w := csv.NewWriter(c.Response())
    if err := w.Write([]string{"first_name", "last_name", "gender", "reservation_id"}); err != nil {
        return err
    }
    for _, g := range guests {
        rec := []string{g.FirstName, g.LastName, string(g.Gender), strconv.FormatUint(g.ReservationID, 10)}
        if err := w.Write(rec); err != nil {
            return err
        }
    }
    w.Flush()
    return w.Error()
}
