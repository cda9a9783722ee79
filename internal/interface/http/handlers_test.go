package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/materials-store-api/config"
	app "github.com/oksasatya/materials-store-api/internal/application"
	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/internal/interface/middleware"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	"github.com/oksasatya/materials-store-api/pkg/mailer"
	"github.com/oksasatya/materials-store-api/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	os.Exit(m.Run())
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (q *recordingQueue) PublishJSON(_ context.Context, body any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, body.(mailer.EmailJob))
	return nil
}

func (q *recordingQueue) last() mailer.EmailJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs[len(q.jobs)-1]
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   map[string]any  `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	users  *memUsers
	jwt    *helpers.JWTManager
	queue  *recordingQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger, _ := logtest.NewNullLogger()
	cfg := &config.Config{
		AppName:          "materials-store-api",
		CompanyName:      "Materials Store",
		VerifyEmailURL:   "http://shop.test/verify-email",
		ResetPasswordURL: "http://shop.test/reset-password",
		MailSendEnabled:  true,
	}
	users := newMemUsers()
	jwt := helpers.NewJWTManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 24*time.Hour)
	queue := &recordingQueue{}

	deps := app.Deps{Config: cfg, Logger: logger, Users: users, JWT: jwt, Redis: rdb, Mail: queue}
	authH := NewAuthHandler(app.NewAuthService(deps), app.NewUserService(deps), logger, nil)
	userH := NewUserHandler(app.NewUserService(deps), logger)
	adminH := NewAdminHandler(app.NewUserService(deps), logger)
	emailH := NewEmailHandler(queue, logger, cfg, nil)

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	auth := middleware.Auth(jwt, users)
	admin := middleware.RequireUserTypes(entity.UserTypeAdmin)

	api.POST("/auth/register/customer", authH.RegisterCustomer)
	api.POST("/auth/register/service-provider", authH.RegisterServiceProvider)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/refresh-token", authH.Refresh)
	api.POST("/auth/verify-email/confirm", authH.ConfirmVerification)
	api.POST("/auth/forgot-password", authH.ForgotPassword)
	api.POST("/auth/reset-password", authH.ResetPassword)
	api.GET("/auth/me", auth, authH.Me)
	api.POST("/auth/logout", auth, authH.Logout)
	api.PUT("/auth/password", auth, authH.ChangePassword)
	api.POST("/customers/me/:list/:itemId", auth, middleware.RequireUserTypes(entity.UserTypeCustomer), userH.AddToList)
	api.DELETE("/customers/me/:list/:itemId", auth, middleware.RequireUserTypes(entity.UserTypeCustomer), userH.RemoveFromList)
	api.GET("/admin/users", auth, admin, adminH.ListUsers)
	api.PATCH("/admin/users/:id/status", auth, admin, adminH.SetStatus)
	api.DELETE("/admin/users/:id", auth, admin, adminH.DeleteUser)
	api.POST("/admin/email/send", auth, admin, emailH.Send)

	return &testServer{engine: r, users: users, jwt: jwt, queue: queue}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) seedAdmin(t *testing.T) (*entity.User, string) {
	t.Helper()
	hash, err := helpers.HashPassword("admin-pass")
	require.NoError(t, err)
	u := s.users.put(&entity.User{UserType: entity.UserTypeAdmin, Name: "Admin", Email: "admin@shop.test", Password: hash, IsActive: true})
	tok, _, err := s.jwt.GenerateAccessToken(u.ID, string(u.UserType))
	require.NoError(t, err)
	return u, tok
}

func registerCustomer(t *testing.T, s *testServer, phone string) app.AuthResult {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register/customer", gin.H{
		"name": "Ravi Kumar", "phone": phone, "address": "12 MG Road", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, code, env.Message)
	var res app.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestRegisterCustomer(t *testing.T) {
	s := newTestServer(t)
	res := registerCustomer(t, s, "9876543210")

	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, entity.UserTypeCustomer, res.User.UserType)
	require.NotNil(t, res.User.CustomerFields)
	assert.Equal(t, []string{}, res.User.Cart)

	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register/customer", gin.H{
		"name": "Someone Else", "phone": "9876543210", "password": "secret123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists with this phone number", env.Message)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register/customer", gin.H{
		"name": "Ravi", "phone": "12ab", "password": "123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Contains(t, env.Error, "phone")
	assert.Contains(t, env.Error, "password")

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"identifier": "x", "password": "y", "userType": "guest",
	}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "userType")
}

func TestRegisterMultiBytePasswordOverBcryptLimit(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register/customer", gin.H{
		"name": "Ravi Kumar", "phone": "9876543210", "password": strings.Repeat("日", 30),
	}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Password must be at most 72 bytes", env.Message)
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	registerCustomer(t, s, "9876543210")

	code, env := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"identifier": "9876543210", "password": "wrong-pass", "userType": "customer",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"identifier": "9876543210", "password": "secret123", "userType": "customer",
	}, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful", env.Message)
	var res app.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.NotNil(t, res.User.LastLogin)

	code, env = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, res.Token)
	require.Equal(t, http.StatusOK, code)
	var me app.UserView
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "Ravi Kumar", me.Name)

	code, env = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized, no token", env.Message)
}

func TestRefreshToken(t *testing.T) {
	s := newTestServer(t)
	res := registerCustomer(t, s, "9876543210")

	code, env := s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", gin.H{"refreshToken": res.RefreshToken}, "")
	require.Equal(t, http.StatusOK, code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.NotEmpty(t, out["token"])
	assert.NotContains(t, out, "refreshToken")

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", gin.H{"refreshToken": res.Token}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid refresh token", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Refresh token is required", env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil, res.Token)
	require.Equal(t, http.StatusOK, code)
	code, env = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", gin.H{"refreshToken": res.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid refresh token", env.Message)
}

func TestProviderVerificationFlow(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register/service-provider", gin.H{
		"name": "Anita", "email": "Anita@Builders.test", "password": "secret123",
		"companyName": "Anita Builders", "serviceType": "masonry",
	}, "")
	require.Equal(t, http.StatusCreated, code, env.Message)
	var res app.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.User.ProviderFields)
	assert.False(t, res.User.IsVerified)
	assert.Equal(t, "anita@builders.test", res.User.Email)

	job := s.queue.last()
	assert.Equal(t, "anita@builders.test", job.To)
	assert.Equal(t, "verify_email", job.Data["Type"])
	link, err := url.Parse(job.Data["VerifyURL"].(string))
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/verify-email/confirm", gin.H{"token": token}, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	var v app.UserView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.True(t, v.IsVerified)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/verify-email/confirm", gin.H{"token": token}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired token", env.Message)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/register/service-provider", gin.H{
		"name": "Anita", "email": "anita@builders.test", "password": "secret123",
		"companyName": "Anita Builders", "serviceType": "masonry",
	}, "")
	require.Equal(t, http.StatusCreated, code)

	code, env := s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", gin.H{"email": "nobody@builders.test"}, "")
	assert.Equal(t, http.StatusOK, code)
	generic := env.Message

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", gin.H{"email": "anita@builders.test"}, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, generic, env.Message)

	job := s.queue.last()
	assert.Equal(t, "forgot_password", job.Data["Type"])
	link, err := url.Parse(job.Data["ResetURL"].(string))
	require.NoError(t, err)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/reset-password", gin.H{
		"token": link.Query().Get("token"), "password": "brand-new-pass",
	}, "")
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"identifier": "anita@builders.test", "password": "brand-new-pass", "userType": "service_provider",
	}, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	res := registerCustomer(t, s, "9876543210")

	code, env := s.do(t, http.MethodPut, "/api/v1/auth/password", gin.H{
		"currentPassword": "not-it", "newPassword": "another-pass",
	}, res.Token)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Current password is incorrect", env.Message)

	code, _ = s.do(t, http.MethodPut, "/api/v1/auth/password", gin.H{
		"currentPassword": "secret123", "newPassword": "another-pass",
	}, res.Token)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", gin.H{"refreshToken": res.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCustomerLists(t *testing.T) {
	s := newTestServer(t)
	res := registerCustomer(t, s, "9876543210")

	code, env := s.do(t, http.MethodPost, "/api/v1/customers/me/cart/cement-50kg", nil, res.Token)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.JSONEq(t, `{"cart":["cement-50kg"]}`, string(env.Data))

	code, _ = s.do(t, http.MethodPost, "/api/v1/customers/me/cart/cement-50kg", nil, res.Token)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodDelete, "/api/v1/customers/me/cart/cement-50kg", nil, res.Token)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"cart":[]}`, string(env.Data))

	code, env = s.do(t, http.MethodPost, "/api/v1/customers/me/orders/o1", nil, res.Token)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "List must be one of cart, wishlist, favorites", env.Message)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	customer := registerCustomer(t, s, "9876543210")
	admin, adminToken := s.seedAdmin(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/admin/users", nil, customer.Token)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "User role customer is not authorized to access this route", env.Message)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/users?userType=customer", nil, adminToken)
	require.Equal(t, http.StatusOK, code, env.Message)
	var list []app.UserView
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, customer.User.ID, list[0].ID)
	assert.JSONEq(t, `{"page":1,"limit":20,"total":1,"pages":1}`, string(env.Meta))

	code, env = s.do(t, http.MethodPatch, "/api/v1/admin/users/"+customer.User.ID+"/status", gin.H{"isActive": false}, adminToken)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, customer.Token)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Account is deactivated", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"identifier": "9876543210", "password": "secret123", "userType": "customer",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Account is deactivated", env.Message)

	code, env = s.do(t, http.MethodPatch, "/api/v1/admin/users/"+customer.User.ID+"/status", gin.H{}, adminToken)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "isActive")

	code, env = s.do(t, http.MethodPatch, "/api/v1/admin/users/"+admin.ID+"/status", gin.H{"isActive": false}, adminToken)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "You cannot deactivate your own account", env.Message)
	code, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, adminToken)
	assert.Equal(t, http.StatusOK, code, "admin stays active")

	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/users/"+admin.ID, nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/users/"+customer.User.ID, nil, adminToken)
	assert.Equal(t, http.StatusOK, code)
	code, env = s.do(t, http.MethodDelete, "/api/v1/admin/users/"+customer.User.ID, nil, adminToken)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", env.Message)
}

func TestAdminSendEmail(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.seedAdmin(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/admin/email/send", gin.H{"to": "a@b.test", "template": "nope"}, adminToken)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "unknown template", env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/email/send", gin.H{"to": "a@b.test"}, adminToken)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/email/send", gin.H{
		"to": "a@b.test", "template": "welcome", "data": gin.H{"Name": "Ravi"},
	}, adminToken)
	require.Equal(t, http.StatusAccepted, code)
	job := s.queue.last()
	assert.Equal(t, "universal", job.Template)
	assert.Equal(t, "welcome", job.Data["Type"])
	assert.Equal(t, "a@b.test", job.Data["RecipientEmail"])
}

func TestEmailSendDisabled(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	queue := &recordingQueue{}
	h := NewEmailHandler(queue, logger, &config.Config{MailSendEnabled: false}, nil)
	r := gin.New()
	r.POST("/send", h.Send)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/send",
		bytes.NewBufferString(`{"to":"a@b.test","subject":"hi","text":"hello"}`)))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"disabled":true`)
	assert.Empty(t, queue.jobs)
}

func TestWriteErrorUnknownIs500(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := gin.New()
	r.GET("/boom", func(c *gin.Context) { writeError(c, logger, errors.New("mongo exploded")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
	assert.NotContains(t, w.Body.String(), "mongo exploded")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "request failed", hook.LastEntry().Message)
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(time.Now().Add(-time.Minute), map[string]Pinger{
		"mongo":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("down") },
		"redis":    nil,
	})
	r := gin.New()
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "DEGRADED", body["status"])
	assert.Equal(t, "up", body["mongo"])
	assert.Equal(t, "down", body["postgres"])
	assert.Equal(t, "disabled", body["redis"])
	assert.GreaterOrEqual(t, body["uptime"].(float64), 60.0)
}
