package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/tesla-marketplace/internal/config"
    "github.com/iliyamo/tesla-marketplace/internal/handler"
    "github.com/iliyamo/tesla-marketplace/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Used by load balancers and monitoring systems to verify that the
    // service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, protected endpoints under /v1.  The auth group is rate
// limited so credential stuffing cannot hammer the password hasher.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
    g := e.Group("/v1/auth")
    g.Use(middleware.NewTokenBucket(rlCfg, rdb))
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Rotates the refresh token.
    g.POST("/refresh", a.Refresh)
    // Issues a new access token without rotating the refresh token.
    g.POST("/refresh-access", a.RefreshAccess)
    // Logout with a refresh token in the body does not require a JWT.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
    // Logout without a body revokes all of the caller's sessions; this
    // variant needs the JWT to know who the caller is.
    auth.POST("/logout", a.Logout)
}

// RegisterListings registers the listing submission, browse and payment
// routes.  Browse endpoints are public and cached; everything that
// mutates goes through the JWT middleware.
func RegisterListings(e *echo.Echo, l *handler.ListingHandler, p *handler.PaymentHandler, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
    // Public browse: completed listings only, newest first.
    pub := e.Group("/v1/listings")
    pub.Use(middleware.NewRedisCache(cacheCfg, rdb))
    pub.GET("", l.Browse)
    pub.GET("/:id", l.Detail)

    auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    // Submit a draft; the listing is persisted as pending.
    auth.POST("/listings", l.Create)
    // The caller's own listings, pending included.
    auth.GET("/my/listings", l.MyListings)
    // Payment attempt lifecycle for a pending listing.
    auth.POST("/listings/:id/payment", p.Start)
    auth.POST("/listings/:id/payment/complete", p.Complete)
}

// RegisterCatalog registers the unauthenticated vehicle catalog proxy.
// Catalog responses are cached like the public browse endpoints.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
    g := e.Group("/v1/catalog")
    g.Use(middleware.NewRedisCache(cacheCfg, rdb))
    g.GET("/vehicles", h.Search)
    g.GET("/vehicles/:id", h.Vehicle)
}
