package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/internal/interface/middleware"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
)

// Guard carries what route modules need for authentication and rate limiting.
type Guard struct {
	JWT   *helpers.JWTManager
	Users middleware.UserLoader
	Redis *redis.Client
	Dev   bool // private-network callers skip rate limits in development
}

func (g Guard) Auth() gin.HandlerFunc {
	return middleware.Auth(g.JWT, g.Users)
}

func (g Guard) Only(types ...entity.UserType) gin.HandlerFunc {
	return middleware.RequireUserTypes(types...)
}

func (g Guard) PerIP(bucket string, max int) gin.HandlerFunc {
	return middleware.RateLimit(g.Redis, max, time.Minute, middleware.KeyByIP(bucket), g.allow())
}

func (g Guard) PerUser(bucket string, max int) gin.HandlerFunc {
	return middleware.RateLimit(g.Redis, max, time.Minute, middleware.KeyByUserID(bucket), g.allow())
}

func (g Guard) allow() middleware.AllowFunc {
	if g.Dev {
		return middleware.AllowPrivateIP()
	}
	return nil
}
