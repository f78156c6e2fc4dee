package handler_test

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/config"
    "github.com/nightpass/ticket-reservation/internal/handler"
    "github.com/nightpass/ticket-reservation/internal/inventory"
    "github.com/nightpass/ticket-reservation/internal/model"
    "github.com/nightpass/ticket-reservation/internal/router"
    "github.com/nightpass/ticket-reservation/internal/store"
    "github.com/nightpass/ticket-reservation/internal/utils"
)

const (
    testSecret  = "test-secret"
    testAdminID = int64(9000)
)

type testEnv struct {
    e   *echo.Echo
    svc *booking.Service
    mem *store.Memory
}

func newTestEnv(t *testing.T) *testEnv {
    t.Helper()
    cfg := config.Config{
        Env:          "test",
        Port:         "0",
        JWTSecret:    testSecret,
        AccessTTLMin: 15,
        AdminIDs:     []int64{testAdminID},
    }
    mem := store.NewMemory()
    svc := booking.NewService(mem, inventory.NewLedger(), nil, cfg.IsAdmin, 0, nil)

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, mem), cfg.JWTSecret)
    router.RegisterPublic(e, handler.NewEventHandler(svc))
    router.RegisterBuyer(e, handler.NewBookingHandler(svc), cfg.JWTSecret)
    router.RegisterAdmin(e,
        handler.NewAdminReservationHandler(svc),
        handler.NewAdminEventHandler(svc, nil),
        handler.NewAdminGuestHandler(nil),
        handler.NewAdminUserHandler(mem),
        cfg.JWTSecret)
    return &testEnv{e: e, svc: svc, mem: mem}
}

func (env *testEnv) seedEvent(t *testing.T) *model.Event {
    t.Helper()
    ev := &model.Event{
        Title:    "Neon Garden",
        StartsAt: time.Now().UTC().Add(96 * time.Hour),
        Location: "Pier 9",
        Tiers: [3]model.Tier{
            {BoyPriceCents: 1000, GirlPriceCents: 800, Quota: 2},
            {BoyPriceCents: 1500, GirlPriceCents: 1200, Quota: 10},
        },
    }
    require.NoError(t, env.svc.CreateEvent(context.Background(), ev))
    return ev
}

func bearer(t *testing.T, id int64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, id, role, 15)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func (env *testEnv) do(method, path, auth string, body any) *httptest.ResponseRecorder {
    var reader *strings.Reader
    if body != nil {
        b, _ := json.Marshal(body)
        reader = strings.NewReader(string(b))
    } else {
        reader = strings.NewReader("")
    }
    req := httptest.NewRequest(method, path, reader)
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    env.e.ServeHTTP(rec, req)
    return rec
}

func TestHealthz(t *testing.T) {
    env := newTestEnv(t)
    rec := env.do(http.MethodGet, "/healthz", "", nil)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())
}

func TestQuoteEndpoint(t *testing.T) {
    env := newTestEnv(t)
    ev := env.seedEvent(t)

    rec := env.do(http.MethodGet, fmt.Sprintf("/v1/events/%d/quote?boys=1&girls=3", ev.ID), "", nil)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

    var resp struct {
        Breakdown  []model.BreakdownLine `json:"breakdown"`
        TotalCents int64                 `json:"total_cents"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    // 1 boy + 1 girl early bird, then 2 girls at tier1
    assert.Equal(t, int64(1000+800+2*1200), resp.TotalCents)
    assert.Len(t, resp.Breakdown, 2)
}

func TestQuoteValidation(t *testing.T) {
    env := newTestEnv(t)
    ev := env.seedEvent(t)

    rec := env.do(http.MethodGet, fmt.Sprintf("/v1/events/%d/quote", ev.ID), "", nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = env.do(http.MethodGet, fmt.Sprintf("/v1/events/%d/quote?boys=100", ev.ID), "", nil)
    assert.Equal(t, http.StatusConflict, rec.Code, "oversized party maps to 409")

    rec = env.do(http.MethodGet, "/v1/events/999/quote?boys=1", "", nil)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitAndDecideOverHTTP(t *testing.T) {
    env := newTestEnv(t)
    ev := env.seedEvent(t)
    buyer := bearer(t, 42, "buyer")
    admin := bearer(t, testAdminID, "admin")

    // unauthenticated submit is refused
    rec := env.do(http.MethodPost, "/v1/bookings", "", echo.Map{"event_id": ev.ID})
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    submit := echo.Map{
        "event_id": ev.ID,
        "boys":     1,
        "girls":    1,
        "attendees": []echo.Map{
            {"full_name": "Avery Stone", "gender": "boy"},
            {"full_name": "Casey Monroe", "gender": "girl"},
        },
        "payment_proof_ref": "proof-9",
    }
    rec = env.do(http.MethodPost, "/v1/bookings", buyer, submit)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

    var created struct {
        Code       string `json:"code"`
        Status     string `json:"status"`
        TotalCents int64  `json:"total_cents"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
    assert.Equal(t, string(model.StatusPendingReview), created.Status)
    assert.Equal(t, int64(1800), created.TotalCents)

    // buyer role cannot reach the decision gateway
    decide := echo.Map{"action": "approve"}
    rec = env.do(http.MethodPost, "/v1/admin/reservations/"+created.Code+"/decision", buyer, decide)
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = env.do(http.MethodPost, "/v1/admin/reservations/"+created.Code+"/decision", admin, decide)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

    var decided struct {
        Status string `json:"status"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decided))
    assert.Equal(t, string(model.StatusApproved), decided.Status)

    // a second decision returns 409 with the current state attached
    rec = env.do(http.MethodPost, "/v1/admin/reservations/"+created.Code+"/decision", admin, decide)
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Contains(t, rec.Body.String(), string(model.StatusApproved))
}

func TestCancelRaceOverHTTP(t *testing.T) {
    env := newTestEnv(t)
    ev := env.seedEvent(t)
    buyer := bearer(t, 42, "buyer")
    admin := bearer(t, testAdminID, "admin")

    rec := env.do(http.MethodPost, "/v1/bookings", buyer, echo.Map{
        "event_id": ev.ID,
        "boys":     1,
        "attendees": []echo.Map{
            {"full_name": "Avery Stone", "gender": "boy"},
        },
    })
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var created struct {
        Code string `json:"code"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

    rec = env.do(http.MethodDelete, "/v1/bookings/"+created.Code, buyer, nil)
    assert.Equal(t, http.StatusOK, rec.Code)

    // late approval loses the race
    rec = env.do(http.MethodPost, "/v1/admin/reservations/"+created.Code+"/decision", admin, echo.Map{"action": "approve"})
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthTokenIssuance(t *testing.T) {
    env := newTestEnv(t)

    rec := env.do(http.MethodPost, "/v1/auth/token", "", echo.Map{
        "buyer_id": 42, "name": "Jamie", "surname": "Vale",
    })
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

    var resp struct {
        Role   string `json:"role"`
        Access struct {
            Token string `json:"token"`
        } `json:"access"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, "buyer", resp.Role)
    require.NotEmpty(t, resp.Access.Token)

    // the issued token works on a protected endpoint
    rec = env.do(http.MethodGet, "/v1/me", "Bearer "+resp.Access.Token, nil)
    assert.Equal(t, http.StatusOK, rec.Code)

    // blocked buyers are refused at issuance
    require.NoError(t, env.mem.SetUserBlocked(context.Background(), 42, true, "chargeback"))
    rec = env.do(http.MethodPost, "/v1/auth/token", "", echo.Map{"buyer_id": 42})
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminEventLifecycleOverHTTP(t *testing.T) {
    env := newTestEnv(t)
    admin := bearer(t, testAdminID, "admin")

    create := echo.Map{
        "title":     "Midnight Run",
        "starts_at": time.Now().UTC().Add(240 * time.Hour).Format(time.RFC3339),
        "tiers": []echo.Map{
            {"boy_price_cents": 1000, "girl_price_cents": 800, "quota": 5},
            {"boy_price_cents": 1500, "girl_price_cents": 1200, "quota": 5},
            {"boy_price_cents": 2000, "girl_price_cents": 1600, "quota": 5},
        },
    }
    rec := env.do(http.MethodPost, "/v1/admin/events", admin, create)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

    var ev struct {
        ID             uint64 `json:"id"`
        TotalRemaining int    `json:"total_remaining"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
    assert.Equal(t, 15, ev.TotalRemaining)

    // close it; the public catalog no longer lists it
    rec = env.do(http.MethodPut, fmt.Sprintf("/v1/admin/events/%d/status", ev.ID), admin, echo.Map{"status": "closed"})
    require.Equal(t, http.StatusOK, rec.Code)

    rec = env.do(http.MethodGet, "/v1/events", "", nil)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.NotContains(t, rec.Body.String(), "Midnight Run")
}
