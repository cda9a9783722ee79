package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/oksasatya/materials-store-api/internal/application"
	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/pkg/response"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	Users  *app.UserService
	Logger *logrus.Logger
}

func NewUserHandler(users *app.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

// UploadAvatar expects a multipart form with the image in the "avatar" field.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+1<<10)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusBadRequest, "avatar must be 5MB or smaller", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "cannot read avatar", nil)
		return
	}
	defer func() { _ = f.Close() }()

	u, err := h.Users.UploadAvatar(c.Request.Context(), c.GetString("userID"), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "Avatar updated", nil)
}

func (h *UserHandler) AddToList(c *gin.Context) {
	items, err := h.Users.AddToList(c.Request.Context(), c.GetString("userID"), entity.CustomerList(c.Param("list")), c.Param("itemId"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{c.Param("list"): items}, "Item added", nil)
}

func (h *UserHandler) RemoveFromList(c *gin.Context) {
	items, err := h.Users.RemoveFromList(c.Request.Context(), c.GetString("userID"), entity.CustomerList(c.Param("list")), c.Param("itemId"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{c.Param("list"): items}, "Item removed", nil)
}
