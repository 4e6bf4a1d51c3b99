package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is the liveness probe.  It never touches dependencies.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HealthHandler checks the dependencies the service needs to answer
// requests.  Redis is optional: a nil client reports "disabled".
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Ready handles GET /readyz.  It answers 503 when the database or a
// configured Redis does not respond within two seconds.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{}
	status := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}
	switch {
	case h.Redis == nil:
		checks["redis"] = "disabled"
	case h.Redis.Ping(ctx).Err() != nil:
		checks["redis"] = "unreachable"
		status = http.StatusServiceUnavailable
	default:
		checks["redis"] = "ok"
	}
	return c.JSON(status, echo.Map{"ready": status == http.StatusOK, "checks": checks})
}
