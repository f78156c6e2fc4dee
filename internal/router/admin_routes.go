package router

import (
    "github.com/labstack/echo/v4"

    "github.com/nightpass/ticket-reservation/internal/handler"
    "github.com/nightpass/ticket-reservation/internal/middleware"
)

// RegisterAdmin registers the admin surface under /v1/admin.  All
// routes require a valid JWT with the admin role; the booking service
// additionally checks the admin allowlist on decisions.
func RegisterAdmin(e *echo.Echo, res *handler.AdminReservationHandler, ev *handler.AdminEventHandler, g *handler.AdminGuestHandler, u *handler.AdminUserHandler, jwtSecret string) {
    grp := e.Group(
        "/v1/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("admin"),
    )

    // Payment review queue and the decision gateway.
    grp.GET("/reservations", res.List)
    grp.GET("/reservations/:code", res.Get)
    grp.POST("/reservations/:code/decision", res.Decide)
    grp.GET("/reject-templates", res.Templates)

    // Event catalog management.
    grp.POST("/events", ev.Create)
    grp.PUT("/events/:id/pricing", ev.UpdatePricing)
    grp.PUT("/events/:id/status", ev.SetStatus)
    grp.GET("/events/:id/guests.csv", ev.ExportGuests)

    // Roster overrides and guest lists.
    grp.POST("/reservations/:code/guests", g.Add)
    grp.GET("/guests", g.List)
    grp.PUT("/guests/:id", g.Rename)
    grp.DELETE("/guests/:id", g.Remove)

    // Buyer blocklist.
    grp.GET("/users/blocked", u.ListBlocked)
    grp.GET("/users/:id", u.Get)
    grp.PUT("/users/:id/block", u.Block)
    grp.DELETE("/users/:id/block", u.Unblock)
}
