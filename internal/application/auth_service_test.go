package application

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	repo "github.com/oksasatya/materials-store-api/internal/domain/repository"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	mailtpl "github.com/oksasatya/materials-store-api/pkg/mailer/templates"
)

var client = ClientInfo{IP: "203.0.113.7", UserAgent: "test"}

func TestRegisterCustomer_DuplicatePhone(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByPhone", mock.Anything, "+15550001111", entity.UserTypeCustomer).
		Return(&entity.User{ID: "existing"}, nil)

	svc := NewAuthService(f.deps)
	_, err := svc.RegisterCustomer(context.Background(), RegisterCustomerInput{
		Name: "Ana", Phone: "+15550001111", Password: "secret123",
	}, client)

	assert.ErrorIs(t, err, ErrPhoneTaken)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterCustomer_IssuesTokens(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByPhone", mock.Anything, "+15550001111", entity.UserTypeCustomer).Return(nil, repo.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.AnythingOfType("*entity.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*entity.User).ID = "u1" }).
		Return(nil)
	f.users.On("SetRefreshToken", mock.Anything, "u1", mock.AnythingOfType("string")).Return(nil)

	svc := NewAuthService(f.deps)
	res, err := svc.RegisterCustomer(context.Background(), RegisterCustomerInput{
		Name: " Ana ", Phone: "+15550001111", Address: "12 Brick Lane", Password: "secret123",
	}, client)
	require.NoError(t, err)

	claims, err := f.deps.JWT.ParseAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "customer", claims.UserType)

	_, err = f.deps.JWT.ParseRefreshToken(res.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, "Ana", res.User.Name)
	require.NotNil(t, res.User.CustomerFields)
	assert.Empty(t, f.queue.jobs, "customer without email gets no mail")

	created := f.users.Calls[1].Arguments.Get(1).(*entity.User)
	assert.NotEqual(t, "secret123", created.Password)
	assert.True(t, helpers.CheckPassword(created.Password, "secret123"))
	assert.True(t, created.IsActive)
}

func TestRegisterCustomer_RaceOnCreate(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByPhone", mock.Anything, "+15550001111", entity.UserTypeCustomer).Return(nil, repo.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.Anything).Return(repo.ErrDuplicatePhone)

	_, err := NewAuthService(f.deps).RegisterCustomer(context.Background(), RegisterCustomerInput{
		Name: "Ana", Phone: "+15550001111", Password: "secret123",
	}, client)
	assert.ErrorIs(t, err, ErrPhoneTaken)
}

func TestRegisterServiceProvider_SendsVerification(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByEmail", mock.Anything, "ops@buildco.test").Return(nil, repo.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*entity.User).ID = "p1" }).
		Return(nil)
	f.users.On("SetRefreshToken", mock.Anything, "p1", mock.Anything).Return(nil)

	res, err := NewAuthService(f.deps).RegisterServiceProvider(context.Background(), RegisterProviderInput{
		Name: "BuildCo", Email: "Ops@BuildCo.test", Password: "secret123", CompanyName: "BuildCo Ltd", ServiceType: "masonry",
	}, client)
	require.NoError(t, err)
	require.NotNil(t, res.User.ProviderFields)
	assert.False(t, res.User.IsVerified)
	assert.Equal(t, "ops@buildco.test", res.User.Email)

	job := f.queue.last()
	assert.Equal(t, "ops@buildco.test", job.To)
	assert.Equal(t, mailtpl.Universal, job.Template)
	assert.Equal(t, mailtpl.VerifyEmail, job.Data["Type"])

	link, err := url.Parse(job.Data["VerifyURL"].(string))
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	stored, err := f.redis.Get(verifyKeyPrefix + token)
	require.NoError(t, err)
	assert.Equal(t, "p1", stored)
}

func TestRegisterServiceProvider_EmailTaken(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByEmail", mock.Anything, "ops@buildco.test").Return(&entity.User{ID: "p0"}, nil)

	_, err := NewAuthService(f.deps).RegisterServiceProvider(context.Background(), RegisterProviderInput{
		Name: "BuildCo", Email: "ops@buildco.test", Password: "secret123",
	}, client)
	assert.ErrorIs(t, err, ErrEmailTaken)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func customer(t *testing.T, active bool) *entity.User {
	return &entity.User{
		ID:       "u1",
		UserType: entity.UserTypeCustomer,
		Name:     "Ana",
		Phone:    "+15550001111",
		Password: hashed(t, "secret123"),
		IsActive: active,
		Customer: &entity.CustomerProfile{},
	}
}

func TestLogin_Customer(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByPhone", mock.Anything, "+15550001111", entity.UserTypeCustomer).Return(customer(t, true), nil)
	f.users.On("RecordLogin", mock.Anything, "u1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	res, err := NewAuthService(f.deps).Login(context.Background(), LoginInput{
		Identifier: "+15550001111", Password: "secret123", UserType: entity.UserTypeCustomer,
	}, client)
	require.NoError(t, err)

	claims, err := f.deps.JWT.ParseAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.NotNil(t, res.User.LastLogin)

	stored := f.users.Calls[1].Arguments.String(2)
	assert.Equal(t, res.RefreshToken, stored)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByPhone", mock.Anything, "+15550001111", entity.UserTypeCustomer).Return(customer(t, true), nil)

	_, err := NewAuthService(f.deps).Login(context.Background(), LoginInput{
		Identifier: "+15550001111", Password: "nope-nope", UserType: entity.UserTypeCustomer,
	}, client)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	f.users.AssertNotCalled(t, "RecordLogin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_DeactivatedWithCorrectPassword(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByPhone", mock.Anything, "+15550001111", entity.UserTypeCustomer).Return(customer(t, false), nil)

	_, err := NewAuthService(f.deps).Login(context.Background(), LoginInput{
		Identifier: "+15550001111", Password: "secret123", UserType: entity.UserTypeCustomer,
	}, client)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLogin_EmailOfOtherType(t *testing.T) {
	f := newFixture(t)
	admin := &entity.User{ID: "a1", UserType: entity.UserTypeAdmin, Email: "root@shop.test", Password: hashed(t, "secret123"), IsActive: true}
	f.users.On("GetByEmail", mock.Anything, "root@shop.test").Return(admin, nil)

	_, err := NewAuthService(f.deps).Login(context.Background(), LoginInput{
		Identifier: "ROOT@shop.test", Password: "secret123", UserType: entity.UserTypeServiceProvider,
	}, client)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUserType(t *testing.T) {
	f := newFixture(t)
	_, err := NewAuthService(f.deps).Login(context.Background(), LoginInput{
		Identifier: "x", Password: "y", UserType: "guest",
	}, client)
	assert.ErrorIs(t, err, ErrInvalidUserType)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps)
	refresh, _, err := f.deps.JWT.GenerateRefreshToken("u1")
	require.NoError(t, err)

	u := customer(t, true)
	u.RefreshToken = refresh
	f.users.On("GetByID", mock.Anything, "u1").Return(u, nil)

	res, err := svc.Refresh(context.Background(), refresh)
	require.NoError(t, err)
	claims, err := f.deps.JWT.ParseAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestRefresh_WrongSecret(t *testing.T) {
	f := newFixture(t)
	other := helpers.NewJWTManager(testAccessSecret, "some-other-secret", time.Hour, time.Hour)
	token, _, err := other.GenerateRefreshToken("u1")
	require.NoError(t, err)

	_, err = NewAuthService(f.deps).Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_AccessTokenIsRejected(t *testing.T) {
	f := newFixture(t)
	access, _, err := f.deps.JWT.GenerateAccessToken("u1", "customer")
	require.NoError(t, err)

	_, err = NewAuthService(f.deps).Refresh(context.Background(), access)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_Expired(t *testing.T) {
	f := newFixture(t)
	expired := helpers.NewJWTManager(testAccessSecret, testRefreshSecret, time.Hour, -time.Minute)
	token, _, err := expired.GenerateRefreshToken("u1")
	require.NoError(t, err)

	_, err = NewAuthService(f.deps).Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestRefresh_AfterLogout(t *testing.T) {
	f := newFixture(t)
	refresh, _, err := f.deps.JWT.GenerateRefreshToken("u1")
	require.NoError(t, err)

	u := customer(t, true)
	u.RefreshToken = ""
	f.users.On("SetRefreshToken", mock.Anything, "u1", "").Return(nil)
	f.users.On("GetByID", mock.Anything, "u1").Return(u, nil)

	svc := NewAuthService(f.deps)
	require.NoError(t, svc.Logout(context.Background(), "u1", client))
	_, err = svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_SupersededToken(t *testing.T) {
	f := newFixture(t)
	old, _, err := f.deps.JWT.GenerateRefreshToken("u1")
	require.NoError(t, err)

	u := customer(t, true)
	u.RefreshToken = old + "x"
	f.users.On("GetByID", mock.Anything, "u1").Return(u, nil)

	_, err = NewAuthService(f.deps).Refresh(context.Background(), old)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByID", mock.Anything, "u1").Return(customer(t, true), nil)
	f.users.On("UpdatePassword", mock.Anything, "u1", mock.AnythingOfType("string")).Return(nil)
	svc := NewAuthService(f.deps)

	assert.ErrorIs(t, svc.ChangePassword(context.Background(), "u1", "wrong-one", "newsecret1", client), ErrWrongPassword)
	require.NoError(t, svc.ChangePassword(context.Background(), "u1", "secret123", "newsecret1", client))

	hash := f.users.Calls[len(f.users.Calls)-1].Arguments.String(2)
	assert.True(t, helpers.CheckPassword(hash, "newsecret1"))
}

func TestEmailVerificationRoundTrip(t *testing.T) {
	f := newFixture(t)
	provider := &entity.User{
		ID: "p1", UserType: entity.UserTypeServiceProvider, Name: "BuildCo", Email: "ops@buildco.test",
		IsActive: true, Provider: &entity.ProviderProfile{},
	}
	f.users.On("GetByID", mock.Anything, "p1").Return(provider, nil)
	f.users.On("SetVerified", mock.Anything, "p1").Return(nil).Once()
	svc := NewAuthService(f.deps)

	require.NoError(t, svc.RequestEmailVerification(context.Background(), "p1", client))
	link, err := url.Parse(f.queue.last().Data["VerifyURL"].(string))
	require.NoError(t, err)
	token := link.Query().Get("token")

	view, err := svc.ConfirmEmailVerification(context.Background(), token, client)
	require.NoError(t, err)
	assert.True(t, view.IsVerified)
	assert.Equal(t, mailtpl.Welcome, f.queue.last().Data["Type"])

	_, err = svc.ConfirmEmailVerification(context.Background(), token, client)
	assert.ErrorIs(t, err, ErrInvalidToken, "tokens are single use")

	assert.ErrorIs(t, svc.RequestEmailVerification(context.Background(), "p1", client), ErrAlreadyVerified)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	u := &entity.User{ID: "p1", UserType: entity.UserTypeServiceProvider, Name: "BuildCo", Email: "ops@buildco.test", IsActive: true}
	f.users.On("GetByEmail", mock.Anything, "ops@buildco.test").Return(u, nil)
	f.users.On("GetByEmail", mock.Anything, "nobody@shop.test").Return(nil, repo.ErrNotFound)
	f.users.On("UpdatePassword", mock.Anything, "p1", mock.AnythingOfType("string")).Return(nil)
	svc := NewAuthService(f.deps)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@shop.test", client))
	assert.Empty(t, f.queue.jobs)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ops@buildco.test", client))
	job := f.queue.last()
	assert.Equal(t, mailtpl.ForgotPassword, job.Data["Type"])
	resetURL := job.Data["ResetURL"].(string)
	require.True(t, strings.HasPrefix(resetURL, "http://shop.test/reset-password?token="))
	token := strings.TrimPrefix(resetURL, "http://shop.test/reset-password?token=")

	assert.ErrorIs(t, svc.ResetPassword(context.Background(), token, strings.Repeat("日", 30), client), helpers.ErrPasswordTooLong)
	require.NoError(t, svc.ResetPassword(context.Background(), token, "brandnew1", client), "a rejected password keeps the token")
	assert.ErrorIs(t, svc.ResetPassword(context.Background(), token, "brandnew1", client), ErrInvalidToken)
}

func TestWithToken(t *testing.T) {
	assert.Equal(t, "http://x/verify?token=abc", withToken("http://x/verify", "abc"))
	assert.Equal(t, "http://x/verify?lang=en&token=abc", withToken("http://x/verify?lang=en", "abc"))
}
