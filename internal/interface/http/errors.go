package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/oksasatya/materials-store-api/internal/application"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	"github.com/oksasatya/materials-store-api/pkg/response"
	"github.com/oksasatya/materials-store-api/pkg/validation"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

var errorTable = []errorMapping{
	{app.ErrPhoneTaken, http.StatusBadRequest, "User already exists with this phone number"},
	{app.ErrEmailTaken, http.StatusBadRequest, "User already exists with this email"},
	{app.ErrInvalidUserType, http.StatusBadRequest, "Invalid user type"},
	{app.ErrNoEmail, http.StatusBadRequest, "This account has no email address"},
	{app.ErrAlreadyVerified, http.StatusBadRequest, "Email is already verified"},
	{app.ErrNotProvider, http.StatusBadRequest, "User is not a service provider"},
	{app.ErrInvalidList, http.StatusBadRequest, "List must be one of cart, wishlist, favorites"},
	{app.ErrInvalidAvatar, http.StatusBadRequest, "Avatar must be an image"},
	{app.ErrInvalidToken, http.StatusBadRequest, "Invalid or expired token"},
	{app.ErrWrongPassword, http.StatusBadRequest, "Current password is incorrect"},
	{helpers.ErrPasswordTooLong, http.StatusBadRequest, "Password must be at most 72 bytes"},
	{app.ErrInvalidRateDate, http.StatusBadRequest, "rateDate must be formatted as YYYY-MM-DD"},

	{app.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{app.ErrAccountDisabled, http.StatusUnauthorized, "Account is deactivated"},
	{app.ErrInvalidRefreshToken, http.StatusUnauthorized, "Invalid refresh token"},
	{app.ErrRefreshTokenExpired, http.StatusUnauthorized, "Refresh token expired"},

	{app.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{app.ErrRateNotFound, http.StatusNotFound, "Rate not found"},

	{app.ErrStorageUnavailable, http.StatusServiceUnavailable, "Avatar upload is not available"},
	{app.ErrTokenStoreDown, http.StatusServiceUnavailable, "Please try again later"},
}

// writeError maps domain errors onto status codes. Anything unknown is logged and becomes a 500.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			response.Error[any](c, m.status, m.message, nil)
			return
		}
	}
	_ = c.Error(err)
	if logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		}).Error("request failed")
	}
	response.Error[any](c, http.StatusInternalServerError, "Internal server error", nil)
}

func bindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "Validation failed", validation.ToDetails(err))
}

func clientInfo(c *gin.Context) app.ClientInfo {
	ip := c.GetString("real_ip")
	if ip == "" {
		ip = c.ClientIP()
	}
	return app.ClientInfo{IP: ip, UserAgent: c.Request.UserAgent()}
}
