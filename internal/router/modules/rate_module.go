package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	handlers "github.com/oksasatya/materials-store-api/internal/interface/http"
)

// RateModule serves daily material rates. Reads are public; writes are admin only.
type RateModule struct {
	Handler *handlers.RateHandler
	Guard   Guard
}

func NewRateModule(h *handlers.RateHandler, g Guard) *RateModule {
	return &RateModule{Handler: h, Guard: g}
}

func (m *RateModule) Register(rg *gin.RouterGroup) {
	g := m.Guard
	rates := rg.Group("/rates")
	rates.GET("", g.PerIP("rates", 120), m.Handler.Today)
	rates.GET("/history", g.PerIP("rates", 120), m.Handler.History)

	admin := rates.Group("")
	admin.Use(g.Auth(), g.Only(entity.UserTypeAdmin))
	{
		admin.POST("", m.Handler.Upsert)
		admin.DELETE("/:id", m.Handler.Delete)
	}
}
