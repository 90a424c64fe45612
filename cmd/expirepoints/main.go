package main // Expiry batch entry point; intended to run from cron

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"

    "github.com/yumrun/yumrun-backend/internal/config"
    "github.com/yumrun/yumrun-backend/internal/database"
    "github.com/yumrun/yumrun-backend/internal/repository"
)

func main() {
    _ = godotenv.Load()

    cfg := config.Load()
    lcfg := config.LoadLoyaltyConfig()
    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    ledger := repository.NewLoyaltyRepo(db)

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
    defer cancel()

    log.Printf("expiring EARN entries past their %d month horizon (~%s)",
        lcfg.ExpiryMonths, lcfg.ExpiryDuration())

    start := time.Now()
    n, err := ledger.ProcessExpired(ctx, time.Now().UTC())
    if err != nil {
        log.Fatalf("expiry batch: %v", err)
    }
    log.Printf("expiry batch done: %d transactions expired in %s", n, time.Since(start).Round(time.Millisecond))
}
