package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	handlers "github.com/oksasatya/materials-store-api/internal/interface/http"
)

type AdminModule struct {
	Handler *handlers.AdminHandler
	Guard   Guard
}

func NewAdminModule(h *handlers.AdminHandler, g Guard) *AdminModule {
	return &AdminModule{Handler: h, Guard: g}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	g := m.Guard
	admin := rg.Group("/admin/users")
	admin.Use(g.Auth(), g.Only(entity.UserTypeAdmin), g.PerUser("admin", 300))
	{
		admin.GET("", m.Handler.ListUsers)
		admin.GET("/search", m.Handler.SearchUsers)
		admin.GET("/:id", m.Handler.GetUser)
		admin.DELETE("/:id", m.Handler.DeleteUser)
		admin.PATCH("/:id/status", m.Handler.SetStatus)
		admin.PATCH("/:id/verify", m.Handler.VerifyProvider)
	}
}
