package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avidalm/cryptoanalyzer-go/internal/cache"
)

// HealthResponse reports service liveness and cache state.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Cache     string                 `json:"cache"`
	CacheInfo map[string]interface{} `json:"cache_stats,omitempty"`
}

// HealthCheck returns a handler for GET /health. The cache may be nil when
// Redis is disabled.
func HealthCheck(priceCache *cache.PriceCache, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Version:   version,
			Timestamp: time.Now().UTC(),
			Cache:     "disabled",
		}
		if priceCache != nil {
			if err := priceCache.Ping(c.Request.Context()); err != nil {
				response.Cache = "unavailable"
			} else {
				response.Cache = "ok"
				response.CacheInfo = priceCache.GetStats()
			}
		}
		c.JSON(http.StatusOK, response)
	}
}
