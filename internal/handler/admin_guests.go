package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/roster"
)

// AdminGuestHandler exposes roster overrides: add, remove and rename
// attendees on a reservation, and browse guest lists.
type AdminGuestHandler struct {
    Roster *roster.Service
}

func NewAdminGuestHandler(rsvc *roster.Service) *AdminGuestHandler {
    return &AdminGuestHandler{Roster: rsvc}
}

type addGuestReq struct {
    FullName string `json:"full_name"`
    Gender   string `json:"gender"`
}
type renameGuestReq struct {
    FullName string `json:"full_name"`
}

// Add appends a named attendee to a reservation identified by code.
func (h *AdminGuestHandler) Add(c echo.Context) error {
    code := c.Param("code")
    var req addGuestReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    a, err := h.Roster.AddGuest(ctx, code, model.Gender(req.Gender), req.FullName)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, toAttendeeResps([]model.Attendee{*a})[0])
}

// Remove soft-deletes an attendee row.
func (h *AdminGuestHandler) Remove(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendee id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Roster.RemoveGuest(ctx, id); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Rename replaces an attendee's name.
func (h *AdminGuestHandler) Rename(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendee id"})
    }
    var req renameGuestReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    a, err := h.Roster.RenameGuest(ctx, id, req.FullName)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, toAttendeeResps([]model.Attendee{*a})[0])
}

// List returns attendees matching the query filters: event_id,
// reservation status, free-text name search.
func (h *AdminGuestHandler) List(c echo.Context) error {
    f := roster.Filter{Sort: booking.SortOldest}
    if s := c.QueryParam("event_id"); s != "" {
        id, err := strconv.ParseUint(s, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event_id"})
        }
        f.EventID = id
    }
    if s := c.QueryParam("status"); s != "" {
        f.ReservationStatus = model.ReservationStatus(s)
    }
    if s := c.QueryParam("search"); s != "" {
        f.Search = s
    }
    if s := c.QueryParam("include_removed"); s == "true" || s == "1" {
        f.IncludeRemoved = true
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

    list, err := h.Roster.List(ctx, f)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"attendees": toAttendeeResps(list)})
}
