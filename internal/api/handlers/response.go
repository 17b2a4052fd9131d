package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avidalm/cryptoanalyzer-go/internal/charts"
	"github.com/avidalm/cryptoanalyzer-go/internal/collector"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

const requestIDKey = "request_id"

// MarketData is the slice of the collector service the handlers consume.
type MarketData interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	History(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.PriceSeries, error)
	HistoryMany(ctx context.Context, symbols []string, timeframe models.Timeframe) (map[string]*models.PriceSeries, map[string]error)
	Summary(ctx context.Context, symbol string) (models.MarketSummary, error)
}

// Envelope is the uniform response body for every JSON endpoint.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// RequestID tags every request with a UUID, echoed in the X-Request-ID
// header and in the response envelope.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// CORS lets browser dashboards on other origins call the API. Preflight
// requests are answered without reaching the handlers.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func respond(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: requestID(c),
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC(),
		RequestID: requestID(c),
	})
}

// respondUpstreamError maps collector and chart failures onto HTTP statuses.
func respondUpstreamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, collector.ErrUnsupportedAsset):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, collector.ErrNoData):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, charts.ErrNotEnoughData):
		respondError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, collector.ErrUpstream):
		respondError(c, http.StatusBadGateway, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
