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

// AdminUserHandler manages the buyer blocklist.
type AdminUserHandler struct {
    Users booking.UserStore
}

func NewAdminUserHandler(users booking.UserStore) *AdminUserHandler {
    return &AdminUserHandler{Users: users}
}

type blockReq struct {
    Reason string `json:"reason"`
}

type userResp struct {
    BuyerID       int64  `json:"buyer_id"`
    Name          string `json:"name,omitempty"`
    Surname       string `json:"surname,omitempty"`
    Phone         string `json:"phone,omitempty"`
    Blocked       bool   `json:"blocked"`
    BlockedReason string `json:"blocked_reason,omitempty"`
}

func toUserResp(u *model.User) userResp {
    return userResp{
        BuyerID:       u.BuyerID,
        Name:          u.Name,
        Surname:       u.Surname,
        Phone:         u.Phone,
        Blocked:       u.Blocked,
        BlockedReason: u.BlockedReason,
    }
}

// Block puts a buyer on the blocklist.  Blocking an unknown buyer id
// still works so abusive buyers can be banned before their first
// profile write.
func (h *AdminUserHandler) Block(c echo.Context) error {
    buyerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid buyer id"})
    }
    var req blockReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.SetUserBlocked(ctx, buyerID, true, req.Reason); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Unblock removes a buyer from the blocklist.
func (h *AdminUserHandler) Unblock(c echo.Context) error {
    buyerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid buyer id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.SetUserBlocked(ctx, buyerID, false, ""); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListBlocked returns the current blocklist.
func (h *AdminUserHandler) ListBlocked(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    users, err := h.Users.ListBlockedUsers(ctx)
    if err != nil {
        return fail(c, err)
    }
    out := make([]userResp, 0, len(users))
    for i := range users {
        out = append(out, toUserResp(&users[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// Get returns one buyer profile.
func (h *AdminUserHandler) Get(c echo.Context) error {
    buyerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid buyer id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetUser(ctx, buyerID)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, toUserResp(u))
}
