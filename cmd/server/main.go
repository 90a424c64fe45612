package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // Load .env files in development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/yumrun/yumrun-backend/internal/config"     // Internal config loader
    "github.com/yumrun/yumrun-backend/internal/database"   // MySQL connection
    "github.com/yumrun/yumrun-backend/internal/handler"    // HTTP handlers
    "github.com/yumrun/yumrun-backend/internal/middleware" // Rate limiting and caching
    "github.com/yumrun/yumrun-backend/internal/queue"      // Notification consumer
    "github.com/yumrun/yumrun-backend/internal/repository" // DB repositories
    "github.com/yumrun/yumrun-backend/internal/router"     // Route registration
)

func main() {
    _ = godotenv.Load() // .env is optional; real deployments set the environment directly

    cfg := config.Load()              // Load environment config
    lcfg := config.LoadLoyaltyConfig() // Loyalty program knobs

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    rdb := config.NewRedisClient() // nil disables rate limiting and caching
    if rdb == nil {
        log.Println("redis unavailable; rate limiting and response caching disabled")
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    orders := repository.NewOrderRepo(db)
    ledger := repository.NewLoyaltyRepo(db)
    notifs := repository.NewNotificationRepo(db)

    authH := handler.NewAuthHandler(cfg, users, tokens)
    orderH := handler.NewOrderHandler(lcfg, orders, users, ledger)
    loyaltyH := handler.NewLoyaltyHandler(lcfg, users, ledger)
    deliveryH := handler.NewDeliveryHandler(lcfg, orders, users, ledger)
    notifH := handler.NewNotificationHandler(notifs)
    adminH := handler.NewAdminHandler(users)

    e := echo.New()
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    rewardsCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    router.RegisterRoutes(e) // Health check
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    router.RegisterCustomerRoutes(e, orderH, loyaltyH, notifH, cfg.JWTSecret, rewardsCache)
    router.RegisterRestaurantRoutes(e, orderH, cfg.JWTSecret)
    router.RegisterRiderRoutes(e, deliveryH, cfg.JWTSecret)
    router.RegisterAdminRoutes(e, loyaltyH, adminH, cfg.JWTSecret)

    // Consume order status events in the background.  The consumer keeps
    // its own reconnect loop; a broker outage never takes the API down.
    go func() {
        if err := queue.StartNotificationConsumer(notifs); err != nil {
            log.Printf("notification consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
