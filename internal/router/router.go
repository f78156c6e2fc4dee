package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/nightpass/ticket-reservation/internal/handler"    // import the handlers that implement business logic
    "github.com/nightpass/ticket-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Load balancers and monitoring systems use this to verify that the
    // service is up.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers token issuance and profile routes.
// Unauthenticated operations live under /v1/auth, protected endpoints
// under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    // Buyer token issuance; also upserts the buyer profile.
    g.POST("/token", a.Token)
    // Admin token issuance against the allowlist and shared password.
    g.POST("/admin", a.AdminLogin)

    auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
    auth.GET("/me/profile", a.Profile)
    auth.PUT("/me/profile", a.UpdateProfile)
}

// RegisterPublic registers unauthenticated catalog endpoints.  Guests
// can browse open events and price a party before authenticating.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler) {
    e.GET("/v1/events", ev.List)
    e.GET("/v1/events/:id", ev.Get)
    // Quote prices boys/girls query counts against live availability
    // without reserving anything.
    e.GET("/v1/events/:id/quote", ev.Quote)
}
