package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
)

// BookingHandler exposes the buyer-facing reservation flow: submit a
// complete draft, list own bookings, look one up and cancel it.
type BookingHandler struct {
    Booking *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
    return &BookingHandler{Booking: svc}
}

// ----- DTOs -----

type attendeeReq struct {
    FullName string `json:"full_name"`
    Gender   string `json:"gender"`
}

type submitReq struct {
    EventID         uint64        `json:"event_id"`
    Boys            int           `json:"boys"`
    Girls           int           `json:"girls"`
    Attendees       []attendeeReq `json:"attendees"`
    PaymentProofRef string        `json:"payment_proof_ref"`
}

type attendeeResp struct {
    ID        uint64 `json:"id"`
    FirstName string `json:"first_name"`
    LastName  string `json:"last_name"`
    Gender    string `json:"gender"`
}

type reservationResp struct {
    Code            string                `json:"code"`
    EventID         uint64                `json:"event_id"`
    BuyerID         int64                 `json:"buyer_id"`
    Boys            int                   `json:"boys"`
    Girls           int                   `json:"girls"`
    TotalCents      int64                 `json:"total_cents"`
    Breakdown       []model.BreakdownLine `json:"breakdown"`
    Status          string                `json:"status"`
    PaymentProofRef string                `json:"payment_proof_ref,omitempty"`
    AdminNote       string                `json:"admin_note,omitempty"`
    ReviewedBy      *int64                `json:"reviewed_by,omitempty"`
    ReviewedAt      *time.Time            `json:"reviewed_at,omitempty"`
    CreatedAt       time.Time             `json:"created_at"`
}

func toReservationResp(r *model.Reservation) reservationResp {
    return reservationResp{
        Code:            r.Code,
        EventID:         r.EventID,
        BuyerID:         r.BuyerID,
        Boys:            r.Boys,
        Girls:           r.Girls,
        TotalCents:      r.TotalCents,
        Breakdown:       r.Breakdown,
        Status:          string(r.Status),
        PaymentProofRef: r.PaymentProofRef,
        AdminNote:       r.AdminNote,
        ReviewedBy:      r.ReviewedBy,
        ReviewedAt:      r.ReviewedAt,
        CreatedAt:       r.CreatedAt,
    }
}

func toAttendeeResps(list []model.Attendee) []attendeeResp {
    out := make([]attendeeResp, 0, len(list))
    for _, a := range list {
        out = append(out, attendeeResp{
            ID:        a.ID,
            FirstName: a.FirstName,
            LastName:  a.LastName,
            Gender:    string(a.Gender),
        })
    }
    return out
}

// Submit converts a complete draft into a pending reservation.  The
// whole party arrives in one request: counts, named roster and the
// payment proof reference.
func (h *BookingHandler) Submit(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req submitReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.EventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
    }

    in := booking.SubmitInput{
        EventID:         req.EventID,
        BuyerID:         buyerID,
        Boys:            req.Boys,
        Girls:           req.Girls,
        PaymentProofRef: req.PaymentProofRef,
    }
    for _, a := range req.Attendees {
        in.Attendees = append(in.Attendees, booking.AttendeeInput{
            FullName: a.FullName,
            Gender:   model.Gender(a.Gender),
        })
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Booking.Submit(ctx, in)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, toReservationResp(res))
}

// List returns the caller's own reservations, newest first.
func (h *BookingHandler) List(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    list, err := h.Booking.ListReservations(ctx, booking.ReservationFilter{
        BuyerID: buyerID,
        Sort:    booking.SortNewest,
    })
    if err != nil {
        return fail(c, err)
    }
    out := make([]reservationResp, 0, len(list))
    for i := range list {
        out = append(out, toReservationResp(&list[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// Get returns one of the caller's reservations by code, including the
// active roster.
func (h *BookingHandler) Get(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    code := c.Param("code")

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Booking.GetReservation(ctx, code)
    if err != nil {
        return fail(c, err)
    }
    if res.BuyerID != buyerID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
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

// Cancel is the buyer-initiated transition to cancelled.  Racing an
// admin decision is safe: the loser gets a 409 with the current state.
func (h *BookingHandler) Cancel(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    code := c.Param("code")

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Booking.Cancel(ctx, code, buyerID)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(res))
}
