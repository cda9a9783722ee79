package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	"github.com/oksasatya/materials-store-api/pkg/response"
)

const (
	CtxUserIDKey   = "userID"
	CtxUserTypeKey = "userType"
	CtxUserKey     = "user"
)

// UserLoader is the slice of the user repository the auth middleware needs.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// Auth accepts an access token from the Authorization bearer header or the access_token
// cookie, then loads the user and rejects missing or deactivated accounts.
func Auth(jwt *helpers.JWTManager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "Not authorized, no token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			msg := "Not authorized, token failed"
			if errors.Is(err, helpers.ErrTokenExpired) {
				msg = "Not authorized, token expired"
			}
			response.Abort(c, http.StatusUnauthorized, msg, nil)
			return
		}

		u, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil || u == nil {
			response.Abort(c, http.StatusUnauthorized, "Not authorized, user not found", nil)
			return
		}
		if !u.IsActive {
			response.Abort(c, http.StatusUnauthorized, "Account is deactivated", nil)
			return
		}

		c.Set(CtxUserIDKey, u.ID)
		c.Set(CtxUserTypeKey, string(u.UserType))
		c.Set(CtxUserKey, u)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if v, err := c.Cookie(helpers.AccessCookie); err == nil {
		return v
	}
	return ""
}

// RequireUserTypes must run after Auth.
func RequireUserTypes(types ...entity.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := c.GetString(CtxUserTypeKey)
		for _, allowed := range types {
			if t == string(allowed) {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "User role "+t+" is not authorized to access this route", nil)
	}
}
