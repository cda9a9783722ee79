package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/oksasatya/materials-store-api/internal/application"
	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	"github.com/oksasatya/materials-store-api/pkg/response"
)

type AuthHandler struct {
	Auth   *app.AuthService
	Users  *app.UserService
	Logger *logrus.Logger
	// Cookies is nil unless COOKIE_TOKENS_ENABLED is set.
	Cookies *helpers.Manager
}

func NewAuthHandler(auth *app.AuthService, users *app.UserService, logger *logrus.Logger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Auth: auth, Users: users, Logger: logger, Cookies: cookies}
}

type registerCustomerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Phone    string `json:"phone" binding:"required,phone"`
	Email    string `json:"email" binding:"omitempty,email"`
	Address  string `json:"address" binding:"max=300"`
	Password string `json:"password" binding:"required,pwd"`
}

type registerProviderRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"omitempty,phone"`
	Address     string `json:"address" binding:"max=300"`
	Password    string `json:"password" binding:"required,pwd"`
	CompanyName string `json:"companyName" binding:"required,max=150"`
	ServiceType string `json:"serviceType" binding:"required,max=100"`
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	UserType   string `json:"userType" binding:"required,oneof=customer service_provider admin"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateProfileRequest struct {
	Name        string `json:"name" binding:"omitempty,min=2,max=100"`
	Address     string `json:"address" binding:"max=300"`
	Email       string `json:"email" binding:"omitempty,email"`
	CompanyName string `json:"companyName" binding:"max=150"`
	ServiceType string `json:"serviceType" binding:"max=100"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,pwd,nefield=CurrentPassword"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,pwd"`
}

func (h *AuthHandler) setCookies(c *gin.Context, res *app.AuthResult) {
	if h.Cookies != nil {
		h.Cookies.SetPair(c, res.Token, res.TokenExpiry, res.RefreshToken, res.RefreshExpiry)
	}
}

func (h *AuthHandler) RegisterCustomer(c *gin.Context) {
	var req registerCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Auth.RegisterCustomer(c.Request.Context(), app.RegisterCustomerInput{
		Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address, Password: req.Password,
	}, clientInfo(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.setCookies(c, res)
	response.Success(c, http.StatusCreated, res, "Customer registered successfully", nil)
}

func (h *AuthHandler) RegisterServiceProvider(c *gin.Context) {
	var req registerProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Auth.RegisterServiceProvider(c.Request.Context(), app.RegisterProviderInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address, Password: req.Password,
		CompanyName: req.CompanyName, ServiceType: req.ServiceType,
	}, clientInfo(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.setCookies(c, res)
	response.Success(c, http.StatusCreated, res, "Service provider registered. Please verify your email.", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), app.LoginInput{
		Identifier: req.Identifier, Password: req.Password, UserType: entity.UserType(req.UserType),
	}, clientInfo(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.setCookies(c, res)
	response.Success(c, http.StatusOK, res, "Login successful", nil)
}

// Refresh takes the refresh token from the body, or from the cookie when cookies are enabled.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	if req.RefreshToken == "" && h.Cookies != nil {
		req.RefreshToken, _ = c.Cookie(helpers.RefreshCookie)
	}
	if req.RefreshToken == "" {
		response.Error[any](c, http.StatusBadRequest, "Refresh token is required", nil)
		return
	}
	res, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if h.Cookies != nil {
		h.Cookies.SetAccess(c, res.Token, res.TokenExpiry)
	}
	response.Success(c, http.StatusOK, res, "Token refreshed", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.Auth.Me(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "", nil)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), c.GetString("userID"), clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if h.Cookies != nil {
		h.Cookies.Clear(c)
	}
	response.Success[any](c, http.StatusOK, nil, "Logged out successfully", nil)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Users.UpdateProfile(c.Request.Context(), c.GetString("userID"), app.UpdateProfileInput{
		Name: req.Name, Address: req.Address, Email: req.Email, CompanyName: req.CompanyName, ServiceType: req.ServiceType,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "Profile updated", nil)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Auth.ChangePassword(c.Request.Context(), c.GetString("userID"), req.CurrentPassword, req.NewPassword, clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if h.Cookies != nil {
		h.Cookies.Clear(c)
	}
	response.Success[any](c, http.StatusOK, nil, "Password changed. Please log in again.", nil)
}

func (h *AuthHandler) RequestVerification(c *gin.Context) {
	if err := h.Auth.RequestEmailVerification(c.Request.Context(), c.GetString("userID"), clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusAccepted, nil, "Verification email sent", nil)
}

func (h *AuthHandler) ConfirmVerification(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Auth.ConfirmEmailVerification(c.Request.Context(), req.Token, clientInfo(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "Email verified", nil)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Auth.RequestPasswordReset(c.Request.Context(), req.Email, clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "If that email is registered, a reset link has been sent", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Auth.ResetPassword(c.Request.Context(), req.Token, req.Password, clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Password has been reset", nil)
}
