package main // Entry point package

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/nightpass/ticket-reservation/internal/booking"
    "github.com/nightpass/ticket-reservation/internal/config"
    "github.com/nightpass/ticket-reservation/internal/database"
    "github.com/nightpass/ticket-reservation/internal/handler"
    "github.com/nightpass/ticket-reservation/internal/inventory"
    "github.com/nightpass/ticket-reservation/internal/middleware"
    "github.com/nightpass/ticket-reservation/internal/queue"
    "github.com/nightpass/ticket-reservation/internal/repository"
    "github.com/nightpass/ticket-reservation/internal/roster"
    "github.com/nightpass/ticket-reservation/internal/router"
    queue_publisher "github.com/nightpass/ticket-reservation/internal/service"
    "github.com/nightpass/ticket-reservation/internal/store"
)

// fullStore is the combined persistence surface the services need.
type fullStore interface {
    booking.Store
    roster.Store
}

func main() {
    _ = godotenv.Load() // .env is optional; real env vars win

    cfg := config.Load()

    logger, err := newLogger(cfg.Env)
    if err != nil {
        log.Fatalf("init logger: %v", err)
    }
    defer func() { _ = logger.Sync() }()

    var st fullStore
    if cfg.DBUser != "" {
        db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err != nil {
            logger.Fatal("database connection failed", zap.Error(err))
        }
        st = repository.NewStore(db)
        logger.Info("using mysql store", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
    } else {
        st = store.NewMemory()
        logger.Warn("DB_USER not set; using in-memory store, data will not survive restarts")
    }

    ledger := inventory.NewLedger()
    bookingSvc := booking.NewService(st, ledger, queue_publisher.Notifier{}, cfg.IsAdmin, cfg.ReviewWindowTTL, logger)
    rosterSvc := roster.NewService(st, logger)

    // Rebuild live counters and pending holds before accepting traffic.
    if err := bookingSvc.Rehydrate(context.Background()); err != nil {
        logger.Fatal("rehydrate failed", zap.Error(err))
    }

    // Decision consumer appends the review trail to logs/decisions.log.
    go func() {
        if err := queue.StartDecisionConsumer(); err != nil {
            logger.Error("decision consumer stopped", zap.Error(err))
        }
    }()

    // Review-window sweeper; disabled when REVIEW_WINDOW_TTL is unset.
    if ttl := bookingSvc.ReviewTTL(); ttl > 0 {
        go func() {
            interval := ttl / 10
            if interval < time.Minute {
                interval = time.Minute
            }
            ticker := time.NewTicker(interval)
            defer ticker.Stop()
            for range ticker.C {
                n, err := bookingSvc.ExpireOverdue(context.Background())
                if err != nil {
                    logger.Error("expiry sweep failed", zap.Error(err))
                } else if n > 0 {
                    logger.Info("expired overdue reservations", zap.Int("count", n))
                }
            }
        }()
    }

    e := echo.New()
    e.HideBanner = true

    // Distributed rate limiting; disabled when Redis is unreachable.
    rdb := config.NewRedisClient()
    if rdb == nil {
        logger.Warn("redis unavailable; rate limiting disabled")
    }
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    authH := handler.NewAuthHandler(cfg, st)
    eventH := handler.NewEventHandler(bookingSvc)
    bookingH := handler.NewBookingHandler(bookingSvc)
    adminResH := handler.NewAdminReservationHandler(bookingSvc)
    adminEvH := handler.NewAdminEventHandler(bookingSvc, rosterSvc)
    adminGuestH := handler.NewAdminGuestHandler(rosterSvc)
    adminUserH := handler.NewAdminUserHandler(st)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    router.RegisterPublic(e, eventH)
    router.RegisterBuyer(e, bookingH, cfg.JWTSecret)
    router.RegisterAdmin(e, adminResH, adminEvH, adminGuestH, adminUserH, cfg.JWTSecret)

    addr := ":" + cfg.Port
    logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
    if err := e.Start(addr); err != nil {
        logger.Fatal("server stopped", zap.Error(err))
    }
}

// newLogger picks the zap preset by environment: terse JSON in prod,
// human-readable everywhere else.
func newLogger(env string) (*zap.Logger, error) {
    if env == "prod" || env == "production" {
        return zap.NewProduction()
    }
    return zap.NewDevelopment()
}
