package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
)

// EventHandler serves the public event catalog and quotes.
type EventHandler struct {
    Booking *booking.Service
}

func NewEventHandler(svc *booking.Service) *EventHandler {
    return &EventHandler{Booking: svc}
}

// ----- DTOs -----

type tierResp struct {
    Label          string `json:"label"`
    BoyPriceCents  int64  `json:"boy_price_cents"`
    GirlPriceCents int64  `json:"girl_price_cents"`
    Quota          int    `json:"quota"`
    Remaining      int    `json:"remaining"`
}

type eventResp struct {
    ID             uint64     `json:"id"`
    Title          string     `json:"title"`
    StartsAt       time.Time  `json:"starts_at"`
    Location       string     `json:"location"`
    Caption        string     `json:"caption"`
    PhotoRef       string     `json:"photo_ref,omitempty"`
    Status         string     `json:"status"`
    Tiers          []tierResp `json:"tiers"`
    TotalRemaining int        `json:"total_remaining"`
}

func toEventResp(ev *model.Event) eventResp {
    resp := eventResp{
        ID:             ev.ID,
        Title:          ev.Title,
        StartsAt:       ev.StartsAt,
        Location:       ev.Location,
        Caption:        ev.Caption,
        PhotoRef:       ev.PhotoRef,
        Status:         string(ev.Status),
        Tiers:          make([]tierResp, 0, len(ev.Tiers)),
        TotalRemaining: ev.RemainingTotal(),
    }
    for _, t := range ev.Tiers {
        resp.Tiers = append(resp.Tiers, tierResp{
            Label:          string(t.Label),
            BoyPriceCents:  t.BoyPriceCents,
            GirlPriceCents: t.GirlPriceCents,
            Quota:          t.Quota,
            Remaining:      t.Remaining(),
        })
    }
    return resp
}

// List returns the open, bookable events with live availability.
func (h *EventHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    events, err := h.Booking.ListOpenEvents(ctx)
    if err != nil {
        return fail(c, err)
    }
    out := make([]eventResp, 0, len(events))
    for i := range events {
        out = append(out, toEventResp(&events[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Get returns a single event by id.
func (h *EventHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    ev, err := h.Booking.GetEvent(ctx, id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, toEventResp(ev))
}

// Quote prices a party against live availability without reserving.
// boys and girls come in as query parameters.
func (h *EventHandler) Quote(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    boys, err := strconv.Atoi(c.QueryParam("boys"))
    if err != nil && c.QueryParam("boys") != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boys"})
    }
    girls, err := strconv.Atoi(c.QueryParam("girls"))
    if err != nil && c.QueryParam("girls") != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid girls"})
    }
    if boys < 0 || girls < 0 || boys+girls == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one attendee required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    q, err := h.Booking.Quote(ctx, id, boys, girls)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "event_id":    id,
        "boys":        boys,
        "girls":       girls,
        "breakdown":   q.Lines,
        "total_cents": q.TotalCents,
    })
}
