package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 5 * time.Second

// healthReport is the /health/db payload. Pool saturation is the first thing
// to check when scheduling runs start timing out, so the acquire counters
// are included alongside the ping result.
type healthReport struct {
	Service         string `json:"service"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func report(pool *pgxpool.Pool) healthReport {
	stat := pool.Stat()
	return healthReport{
		Service:         "orsched",
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// HealthHandler pings the database with a short timeout and reports pool
// statistics. Load balancers key on the status code, humans on the payload.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		r := report(pool)
		if err := pool.Ping(ctx); err != nil {
			r.Status = "unhealthy"
			r.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, r)
		}
		r.Status = "healthy"
		return c.JSON(http.StatusOK, r)
	}
}
