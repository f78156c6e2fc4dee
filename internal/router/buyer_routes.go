package router

import (
    "github.com/labstack/echo/v4"

    "github.com/nightpass/ticket-reservation/internal/handler"
    "github.com/nightpass/ticket-reservation/internal/middleware"
)

// RegisterBuyer registers buyer-scoped endpoints under /v1.  All routes
// require a valid JWT with the buyer role.  Buyers submit complete
// booking drafts, list their reservations and cancel pending ones.
func RegisterBuyer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("buyer", "admin"),
    )
    g.POST("/bookings", h.Submit)
    g.GET("/my-bookings", h.List)
    g.GET("/bookings/:code", h.Get)
    // Cancel is only valid while the reservation is pending; racing an
    // admin decision returns 409 with the current state.
    g.DELETE("/bookings/:code", h.Cancel)
}
