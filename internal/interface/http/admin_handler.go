package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/oksasatya/materials-store-api/internal/application"
	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/pkg/response"
)

type AdminHandler struct {
	Users  *app.UserService
	Logger *logrus.Logger
}

func NewAdminHandler(users *app.UserService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Users: users, Logger: logger}
}

type listUsersQuery struct {
	UserType string `form:"userType" binding:"omitempty,oneof=customer service_provider admin"`
	IsActive *bool  `form:"isActive"`
	Page     int64  `form:"page" binding:"omitempty,min=1"`
	Limit    int64  `form:"limit" binding:"omitempty,min=1,max=100"`
}

type setStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	var f entity.UserFilter
	if q.UserType != "" {
		t := entity.UserType(q.UserType)
		f.UserType = &t
	}
	f.IsActive = q.IsActive

	users, page, err := h.Users.ListUsers(c.Request.Context(), f, q.Page, q.Limit)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, users, "", page)
}

func (h *AdminHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	users, err := h.Users.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, users, "", nil)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	u, err := h.Users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "", nil)
}

func (h *AdminHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !*req.IsActive && c.Param("id") == c.GetString("userID") {
		response.Error[any](c, http.StatusBadRequest, "You cannot deactivate your own account", nil)
		return
	}
	u, err := h.Users.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive, c.GetString("userID"), clientInfo(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	msg := "User deactivated"
	if *req.IsActive {
		msg = "User activated"
	}
	response.Success(c, http.StatusOK, u, msg, nil)
}

func (h *AdminHandler) VerifyProvider(c *gin.Context) {
	u, err := h.Users.VerifyProvider(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "Service provider verified", nil)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if c.Param("id") == c.GetString("userID") {
		response.Error[any](c, http.StatusBadRequest, "You cannot delete your own account", nil)
		return
	}
	if err := h.Users.DeleteUser(c.Request.Context(), c.Param("id"), c.GetString("userID"), clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "User deleted", nil)
}
