package handler

import (
    "context"  // provides context with cancellation for store calls
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts and token expiries

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/config"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/utils"
)

// AuthHandler issues access tokens.  Buyers authenticate with their
// external buyer id issued by the chat transport; admins additionally
// present the shared admin password and must be on the allowlist.
type AuthHandler struct {
    Cfg   config.Config
    Users booking.UserStore
}

func NewAuthHandler(cfg config.Config, users booking.UserStore) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type tokenReq struct {
    BuyerID int64  `json:"buyer_id"`
    Name    string `json:"name"`
    Surname string `json:"surname"`
    Phone   string `json:"phone"`
}
type adminLoginReq struct {
    BuyerID  int64  `json:"buyer_id"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    BuyerID int64     `json:"buyer_id"`
    Role    string    `json:"role"`
    Access  tokenPart `json:"access"`
}

// Token issues a buyer access token and upserts the buyer profile so
// later bookings have a name to attach decisions to.  Blocked buyers
// are refused up front.
func (h *AuthHandler) Token(c echo.Context) error {
    var req tokenReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.BuyerID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "buyer_id required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u := &model.User{
        BuyerID: req.BuyerID,
        Name:    strings.TrimSpace(req.Name),
        Surname: strings.TrimSpace(req.Surname),
        Phone:   strings.TrimSpace(req.Phone),
    }
    if err := h.Users.UpsertUser(ctx, u); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save profile failed"})
    }
    if u.Blocked {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "buyer is blocked"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.BuyerID, "buyer", h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, authResp{
        BuyerID: req.BuyerID,
        Role:    "buyer",
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// AdminLogin verifies the shared admin password and the allowlist, then
// issues an admin token.  Both checks must pass; the error does not say
// which one failed.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
    var req adminLoginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.BuyerID == 0 || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "buyer_id/password required"})
    }
    if h.Cfg.AdminPasswordHash == "" || !h.Cfg.IsAdmin(req.BuyerID) ||
        !utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.BuyerID, "admin", h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, authResp{
        BuyerID: req.BuyerID,
        Role:    "admin",
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "user_id": c.Get("user_id"),
        "role":    c.Get("role"),
    })
}

// Profile returns the caller's stored profile.
func (h *AuthHandler) Profile(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetUser(ctx, buyerID)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "buyer_id": u.BuyerID,
        "name":     u.Name,
        "surname":  u.Surname,
        "phone":    u.Phone,
    })
}

// UpdateProfile overwrites the caller's name, surname and phone.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req tokenReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u := &model.User{
        BuyerID: buyerID,
        Name:    strings.TrimSpace(req.Name),
        Surname: strings.TrimSpace(req.Surname),
        Phone:   strings.TrimSpace(req.Phone),
    }
    if err := h.Users.UpsertUser(ctx, u); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save profile failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "buyer_id": u.BuyerID,
        "name":     u.Name,
        "surname":  u.Surname,
        "phone":    u.Phone,
    })
}
