package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// HealthHandler serves liveness plus a reachability check per store. A store
// that is not configured shows as "disabled".
type HealthHandler struct {
	Started time.Time
	Checks  map[string]Pinger
	Timeout time.Duration
}

func NewHealthHandler(started time.Time, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{Started: started, Checks: checks, Timeout: 2 * time.Second}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	body := gin.H{
		"status":    "OK",
		"uptime":    time.Since(h.Started).Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	for _, name := range names {
		ping := h.Checks[name]
		switch {
		case ping == nil:
			body[name] = "disabled"
		case ping(ctx) != nil:
			body[name] = "down"
			body["status"] = "DEGRADED"
			status = http.StatusServiceUnavailable
		default:
			body[name] = "up"
		}
	}
	c.JSON(status, body)
}
