package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"mesa-status-backend/config"
	"mesa-status-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	db := h.store.DB()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/restaurants", caching, GetRestaurants(db))
		api.POST("/restaurants", h.CreateRestaurant)

		api.GET("/restaurants/:restaurant_id/tables", caching, h.GetTableStatus)
		api.POST("/restaurants/:restaurant_id/tables", h.GenerateTables)
		api.POST("/restaurants/:restaurant_id/tables/:table_id/status", h.OverrideTableStatus)

		api.GET("/restaurants/:restaurant_id/reservations", h.GetReservations)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
