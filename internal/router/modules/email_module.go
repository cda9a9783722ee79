package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	handlers "github.com/oksasatya/materials-store-api/internal/interface/http"
)

type EmailModule struct {
	Handler *handlers.EmailHandler
	Guard   Guard
}

func NewEmailModule(h *handlers.EmailHandler, g Guard) *EmailModule {
	return &EmailModule{Handler: h, Guard: g}
}

func (m *EmailModule) Register(rg *gin.RouterGroup) {
	g := m.Guard
	auth := rg.Group("/admin/email")
	auth.Use(g.Auth(), g.Only(entity.UserTypeAdmin), g.PerUser("email", 60))
	{
		auth.POST("/send", m.Handler.Send)
	}
}
