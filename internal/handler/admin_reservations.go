package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
)

// AdminReservationHandler is the manual payment review surface: list
// the queue, inspect a reservation and apply a decision.
type AdminReservationHandler struct {
    Booking *booking.Service
}

func NewAdminReservationHandler(svc *booking.Service) *AdminReservationHandler {
    return &AdminReservationHandler{Booking: svc}
}

type decideReq struct {
    Action   string `json:"action"`   // approve | reject_template | reject_custom | cancel
    Template string `json:"template"` // template key for reject_template
    Reason   string `json:"reason"`   // free text for reject_custom
}

// List returns reservations matching the query filters.  Defaults to
// the pending review queue, oldest first, so admins work in arrival
// order.
func (h *AdminReservationHandler) List(c echo.Context) error {
    f := booking.ReservationFilter{
        Status: model.StatusPendingReview,
        Sort:   booking.SortOldest,
    }
    if s := c.QueryParam("status"); s != "" {
        if s == "all" {
            f.Status = ""
        } else {
            f.Status = model.ReservationStatus(s)
        }
    }
    if s := c.QueryParam("event_id"); s != "" {
        id, err := strconv.ParseUint(s, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event_id"})
        }
        f.EventID = id
    }
    if s := c.QueryParam("buyer_id"); s != "" {
        id, err := strconv.ParseInt(s, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid buyer_id"})
        }
        f.BuyerID = id
    }
    if s := c.QueryParam("search"); s != "" {
        f.Search = s
    }
    if s := c.QueryParam("sort"); s == string(booking.SortNewest) {
        f.Sort = booking.SortNewest
    }
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n < 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
        }
        f.Limit = n
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    list, err := h.Booking.ListReservations(ctx, f)
    if err != nil {
        return fail(c, err)
    }
    out := make([]reservationResp, 0, len(list))
    for i := range list {
        out = append(out, toReservationResp(&list[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// Get returns one reservation with its roster, regardless of buyer.
func (h *AdminReservationHandler) Get(c echo.Context) error {
    code := c.Param("code")

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Booking.GetReservation(ctx, code)
    if err != nil {
        return fail(c, err)
    }
    attendees, err := h.Booking.AttendeesByReservation(ctx, res.ID)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "reservation": toReservationResp(res),
        "attendees":   toAttendeeResps(attendees),
    })
}

// Decide applies an admin action to a pending reservation.  A decision
// against an already finalized reservation returns 409 together with
// the reservation's current state.
func (h *AdminReservationHandler) Decide(c echo.Context) error {
    adminID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    code := c.Param("code")
    var req decideReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Booking.Decide(ctx, adminID, code, booking.DecideInput{
        Action:   booking.Action(req.Action),
        Template: req.Template,
        Reason:   req.Reason,
    })
    if err != nil {
        if res != nil && errors.Is(err, booking.ErrAlreadyFinalized) {
            return c.JSON(http.StatusConflict, echo.Map{
                "error":       "reservation already finalized",
                "reservation": toReservationResp(res),
            })
        }
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(res))
}

// Templates lists the canned rejection reasons so admin frontends can
// render them without hardcoding keys.
func (h *AdminReservationHandler) Templates(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"templates": booking.RejectTemplates})
}
