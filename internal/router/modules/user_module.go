package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	handlers "github.com/oksasatya/materials-store-api/internal/interface/http"
)

// UserModule serves avatar upload for every account and the customer's own lists.
// POST /users/me/avatar
// POST|DELETE /customers/me/:list/:itemId
type UserModule struct {
	Handler *handlers.UserHandler
	Guard   Guard
}

func NewUserModule(h *handlers.UserHandler, g Guard) *UserModule {
	return &UserModule{Handler: h, Guard: g}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	g := m.Guard

	users := rg.Group("/users/me")
	users.Use(g.Auth(), g.PerUser("avatar", 20))
	users.POST("/avatar", m.Handler.UploadAvatar)

	customers := rg.Group("/customers/me")
	customers.Use(g.Auth(), g.Only(entity.UserTypeCustomer), g.PerUser("lists", 120))
	{
		customers.POST("/:list/:itemId", m.Handler.AddToList)
		customers.DELETE("/:list/:itemId", m.Handler.RemoveFromList)
	}
}
