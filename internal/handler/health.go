package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /health. The database must answer; the index store is
// reported but optional.
func Health(database Pinger, store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := map[string]string{"status": "ok", "database": "ok", "index_store": "disabled"}

		if err := database.Ping(ctx); err != nil {
			slog.Error("health check: database unreachable", "error", err)
			resp["status"] = "unhealthy"
			resp["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		if store != nil {
			resp["index_store"] = "ok"
			if err := store.Ping(ctx); err != nil {
				slog.Warn("health check: index store unreachable", "error", err)
				resp["index_store"] = "unreachable"
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
