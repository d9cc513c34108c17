package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
)

// HealthChecker reports whether durable storage is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Online   int    `json:"online"`
}

// OnlineCounter reports how many chat clients are connected
type OnlineCounter interface {
	OnlineCount() int
}

// Health returns a handler that pings the database
func Health(db HealthChecker, hub OnlineCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		online := 0
		if hub != nil {
			online = hub.OnlineCount()
		}

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "down", Online: online})
			return
		}

		pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Database: "up", Online: online})
	}
}
