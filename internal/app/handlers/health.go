package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/storefront/internal/lib/api/response"
)

// Pinger проверяет соединение, подходит *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler обрабатывает GET /health
func HealthHandler(log *slog.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			log.Error("health check failed", slog.String("op", "handlers.HealthHandler"), slog.Any("error", err))
			response.Error(w, http.StatusServiceUnavailable, "database unavailable", nil)
			return
		}
		response.OK(w, http.StatusOK, "ok", map[string]string{"database": "up"})
	}
}
