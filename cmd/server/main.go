package main // Entry point package

import (
    "log"  // Logging library
    "time" // Durations for token store TTLs

    "github.com/joho/godotenv"    // Loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/tesla-marketplace/internal/catalog"
    "github.com/iliyamo/tesla-marketplace/internal/config"
    "github.com/iliyamo/tesla-marketplace/internal/database"
    "github.com/iliyamo/tesla-marketplace/internal/handler"
    "github.com/iliyamo/tesla-marketplace/internal/metrics"
    "github.com/iliyamo/tesla-marketplace/internal/payment"
    "github.com/iliyamo/tesla-marketplace/internal/queue"
    "github.com/iliyamo/tesla-marketplace/internal/repository"
    "github.com/iliyamo/tesla-marketplace/internal/router"
    queue_publisher "github.com/iliyamo/tesla-marketplace/internal/service"
    "github.com/iliyamo/tesla-marketplace/internal/session"
    "github.com/iliyamo/tesla-marketplace/internal/workflow"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    // MySQL is the system of record for users, tokens and listings.
    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connect failed: %v", err)
    }
    defer db.Close()
    if err := database.RunMigrations(db, cfg.DBName); err != nil {
        log.Fatalf("database migrate failed: %v", err)
    }

    // Redis backs rate limiting, response caching, the session token
    // store and the payment attempt markers.  The server runs without it,
    // falling back to in-process equivalents.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; using in-process fallbacks")
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    listings := repository.NewListingRepo(db)

    provider := session.NewLocalProvider(cfg, users, tokens)
    var tokenStore session.TokenStore
    if rdb != nil {
        tokenStore = session.NewRedisStore(rdb, time.Duration(cfg.RefreshTTLDays)*24*time.Hour)
    } else {
        tokenStore = session.NewMemoryStore()
    }
    sessions := session.NewManager(provider, tokenStore)
    events, _ := sessions.Subscribe()
    go func() {
        for ev := range events {
            log.Printf("session state: %s", ev.State)
        }
    }()

    if cfg.StripeSecretKey == "" {
        log.Println("no STRIPE_SECRET_KEY set; payment endpoints will fail until one is configured")
    }
    proc := payment.NewStripeProcessor(cfg.StripeSecretKey)
    var attempts payment.AttemptStore
    if rdb != nil {
        attempts = payment.NewRedisAttempts(rdb)
    } else {
        attempts = payment.NewMemoryAttempts()
    }
    coordinator := payment.NewCoordinator(proc, attempts, cfg.ListingFeeCents)

    registry := metrics.NewRegistry()
    collector := metrics.NewCollector(registry)

    flow := workflow.New(listings, coordinator, queue_publisher.NewPublisher(), collector)

    // The consumer tails listing.published and keeps its own reconnect
    // loop; losing the broker never takes the API down.
    go func() {
        if err := queue.StartListingConsumer(); err != nil {
            log.Printf("listing consumer stopped: %v", err)
        }
    }()

    rlCfg := config.LoadRateLimitConfig()
    cacheCfg := config.LoadCacheConfig()

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, provider, users, tokens), cfg.JWTSecret, rlCfg, rdb)
    router.RegisterListings(e, handler.NewListingHandler(flow, listings), handler.NewPaymentHandler(flow), cfg.JWTSecret, cacheCfg, rdb)
    router.RegisterCatalog(e, handler.NewCatalogHandler(catalog.New(cfg.CatalogBaseURL, cfg.CatalogAPIKey)), cacheCfg, rdb)
    e.GET("/metrics", echo.WrapHandler(metrics.Handler(registry)))

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
