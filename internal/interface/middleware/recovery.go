package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/materials-store-api/pkg/response"
)

// Recovery turns a panic into a 500 envelope and logs it.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"panic":      recovered,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(CtxRequestIDKey),
		}).Error("panic recovered")
		response.Abort(c, http.StatusInternalServerError, "Internal server error", nil)
	})
}
