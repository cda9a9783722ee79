package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/materials-store-api/internal/interface/http"
	"github.com/oksasatya/materials-store-api/pkg/metrics"
)

// HealthModule mounts /health and, when metrics are enabled, /metrics at the root.
type HealthModule struct {
	Handler *handlers.HealthHandler
	Metrics *metrics.Metrics
}

func NewHealthModule(h *handlers.HealthHandler, m *metrics.Metrics) *HealthModule {
	return &HealthModule{Handler: h, Metrics: m}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Handler.Health)
	if m.Metrics != nil {
		rg.GET("/metrics", gin.WrapH(m.Metrics.Handler()))
	}
}
