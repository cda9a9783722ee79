package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/materials-store-api/internal/interface/http"
)

// AuthModule serves registration, login, token refresh, the caller's own account
// and the email verification / password reset flows under /auth.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Guard   Guard
}

func NewAuthModule(h *handlers.AuthHandler, g Guard) *AuthModule {
	return &AuthModule{Handler: h, Guard: g}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	g := m.Guard
	a := rg.Group("/auth")

	// Public with per-IP limits
	a.POST("/register/customer", g.PerIP("register", 10), m.Handler.RegisterCustomer)
	a.POST("/register/service-provider", g.PerIP("register", 10), m.Handler.RegisterServiceProvider)
	a.POST("/login", g.PerIP("login", 10), m.Handler.Login)
	a.POST("/refresh-token", g.PerIP("refresh", 60), m.Handler.Refresh)
	a.POST("/verify-email/confirm", g.PerIP("verify", 30), m.Handler.ConfirmVerification)
	a.POST("/forgot-password", g.PerIP("forgot", 5), m.Handler.ForgotPassword)
	a.POST("/reset-password", g.PerIP("reset", 30), m.Handler.ResetPassword)

	// Protected
	p := a.Group("/")
	p.Use(g.Auth(), g.PerUser("account", 120))
	{
		p.GET("/me", m.Handler.Me)
		p.POST("/logout", m.Handler.Logout)
		p.PUT("/profile", m.Handler.UpdateProfile)
		p.PUT("/password", m.Handler.ChangePassword)
		p.POST("/verify-email/request", g.PerUser("verify-request", 5), m.Handler.RequestVerification)
	}
}
