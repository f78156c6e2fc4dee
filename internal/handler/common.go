package handler // handler defines http handlers

import (
    "errors"   // errors provides sentinel matching for status mapping
    "net/http" // net/http provides status codes

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/inventory"
    "github.com/nightpass/ticket-reservation/internal/pricing"
)

// getUserID extracts the authenticated buyer id from echo.Context.
func getUserID(c echo.Context) (int64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case int64:
        return t, nil
    case int:
        return int64(t), nil
    case float64:
        return int64(t), nil
    }
    return 0, errors.New("invalid user_id in context")
}

// fail translates domain sentinels into JSON error responses.  Unknown
// errors become a 500 without leaking internals.
func fail(c echo.Context, err error) error {
    switch {
    case errors.Is(err, booking.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, booking.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, booking.ErrBuyerBlocked):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "buyer is blocked"})
    case errors.Is(err, booking.ErrAlreadyFinalized):
        return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already finalized"})
    case errors.Is(err, booking.ErrEventClosed):
        return c.JSON(http.StatusConflict, echo.Map{"error": "event is closed"})
    case errors.Is(err, inventory.ErrCapacityExceeded),
        errors.Is(err, pricing.ErrInsufficientInventory):
        return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats remaining"})
    case errors.Is(err, inventory.ErrQuotaBelowCommitted):
        return c.JSON(http.StatusConflict, echo.Map{"error": "quota below committed seats"})
    case errors.Is(err, booking.ErrRosterMismatch),
        errors.Is(err, booking.ErrInvalidName),
        errors.Is(err, booking.ErrInvalidGender),
        errors.Is(err, booking.ErrUnknownTemplate),
        errors.Is(err, booking.ErrMissingReason),
        errors.Is(err, booking.ErrUnknownAction):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}
