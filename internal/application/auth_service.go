package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	repo "github.com/oksasatya/materials-store-api/internal/domain/repository"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	mailtpl "github.com/oksasatya/materials-store-api/pkg/mailer/templates"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = 30 * time.Minute

	verifyKeyPrefix = "auth:verify:"
	resetKeyPrefix  = "auth:reset:"
)

type AuthService struct {
	Deps
}

func NewAuthService(d Deps) *AuthService {
	return &AuthService{Deps: d}
}

type RegisterCustomerInput struct {
	Name     string
	Phone    string
	Email    string
	Address  string
	Password string
}

type RegisterProviderInput struct {
	Name        string
	Email       string
	Phone       string
	Address     string
	Password    string
	CompanyName string
	ServiceType string
}

type LoginInput struct {
	Identifier string
	Password   string
	UserType   entity.UserType
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// RegisterCustomer creates a customer keyed by phone. A phone already used by a customer
// is rejected before anything is written.
func (s *AuthService) RegisterCustomer(ctx context.Context, in RegisterCustomerInput, client ClientInfo) (*AuthResult, error) {
	phone := strings.TrimSpace(in.Phone)
	email := normalizeEmail(in.Email)

	if err := s.ensurePhoneFree(ctx, phone, entity.UserTypeCustomer); err != nil {
		return nil, err
	}
	if email != "" {
		if err := s.ensureEmailFree(ctx, email); err != nil {
			return nil, err
		}
	}

	u := &entity.User{
		UserType: entity.UserTypeCustomer,
		Name:     strings.TrimSpace(in.Name),
		Phone:    phone,
		Email:    email,
		Address:  strings.TrimSpace(in.Address),
		IsActive: true,
		Customer: &entity.CustomerProfile{},
	}
	res, err := s.register(ctx, u, in.Password, client)
	if err != nil {
		return nil, err
	}
	if email != "" {
		s.enqueue(ctx, mailtpl.Welcome, email, mailtpl.NewEmailData(s.Config, mailtpl.Welcome, u.Name, email,
			mailtpl.WithUserType(string(u.UserType)), mailtpl.WithTime(s.now())))
	}
	return res, nil
}

// RegisterServiceProvider creates an unverified provider keyed by email and sends the
// verification mail.
func (s *AuthService) RegisterServiceProvider(ctx context.Context, in RegisterProviderInput, client ClientInfo) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	if phone != "" {
		if err := s.ensurePhoneFree(ctx, phone, entity.UserTypeServiceProvider); err != nil {
			return nil, err
		}
	}

	u := &entity.User{
		UserType: entity.UserTypeServiceProvider,
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Phone:    phone,
		Address:  strings.TrimSpace(in.Address),
		IsActive: true,
		Provider: &entity.ProviderProfile{
			CompanyName: strings.TrimSpace(in.CompanyName),
			ServiceType: strings.TrimSpace(in.ServiceType),
		},
	}
	res, err := s.register(ctx, u, in.Password, client)
	if err != nil {
		return nil, err
	}
	if err := s.sendVerification(ctx, u, client); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("verification email not sent")
	}
	return res, nil
}

func (s *AuthService) ensurePhoneFree(ctx context.Context, phone string, t entity.UserType) error {
	_, err := s.Users.GetByPhone(ctx, phone, t)
	switch {
	case err == nil:
		return ErrPhoneTaken
	case errors.Is(err, repo.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case errors.Is(err, repo.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *AuthService) register(ctx context.Context, u *entity.User, password string, client ClientInfo) (*AuthResult, error) {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u.Password = hash

	if err := s.Users.Create(ctx, u); err != nil {
		s.Metrics.Auth("register", err)
		switch {
		case errors.Is(err, repo.ErrDuplicatePhone):
			return nil, ErrPhoneTaken
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.Users.SetRefreshToken(ctx, u.ID, res.RefreshToken); err != nil {
		return nil, err
	}
	u.RefreshToken = res.RefreshToken

	s.reindex(ctx, u)
	s.audit(ctx, "register", u.ID, identifierOf(u), client, map[string]any{"user_type": string(u.UserType)})
	s.Metrics.Auth("register", nil)
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "user_type": u.UserType}).Info("user registered")

	res.User = ToUserView(u)
	return res, nil
}

func identifierOf(u *entity.User) string {
	if u.UserType.LoginByPhone() {
		return u.Phone
	}
	return u.Email
}

func (s *AuthService) issue(u *entity.User) (*AuthResult, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, string(u.UserType))
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return nil, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		return nil, err
	}
	return &AuthResult{Token: access, TokenExpiry: aexp, RefreshToken: refresh, RefreshExpiry: rexp}, nil
}

// Login looks customers up by phone and everyone else by email. Every successful login
// replaces the stored refresh token, which ends any other session.
func (s *AuthService) Login(ctx context.Context, in LoginInput, client ClientInfo) (*AuthResult, error) {
	if !in.UserType.Valid() {
		return nil, ErrInvalidUserType
	}
	identifier := strings.TrimSpace(in.Identifier)

	var (
		u   *entity.User
		err error
	)
	if in.UserType.LoginByPhone() {
		u, err = s.Users.GetByPhone(ctx, identifier, in.UserType)
	} else {
		identifier = normalizeEmail(identifier)
		u, err = s.Users.GetByEmail(ctx, identifier)
		if err == nil && u.UserType != in.UserType {
			err = repo.ErrNotFound
		}
	}
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err != nil || !helpers.CheckPassword(u.Password, in.Password) {
		s.loginFailed(ctx, identifier, in.UserType, "invalid_credentials", client)
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		s.loginFailed(ctx, identifier, in.UserType, "inactive", client)
		return nil, ErrAccountDisabled
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.Users.RecordLogin(ctx, u.ID, res.RefreshToken, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	u.RefreshToken = res.RefreshToken

	s.audit(ctx, "login", u.ID, identifier, client, nil)
	s.Metrics.Auth("login", nil)
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "ip": client.IP}).Info("login succeeded")

	res.User = ToUserView(u)
	return res, nil
}

func (s *AuthService) loginFailed(ctx context.Context, identifier string, t entity.UserType, reason string, client ClientInfo) {
	s.audit(ctx, "login_failed", "", identifier, client, map[string]any{"reason": reason, "user_type": string(t)})
	s.Metrics.Auth("login", errors.New(reason))
	s.Logger.WithFields(logrus.Fields{"identifier": identifier, "reason": reason, "ip": client.IP}).Warn("login failed")
}

// Refresh mints a new access token. The refresh token itself is not rotated and must
// equal the one stored on the user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		s.Metrics.Auth("refresh", err)
		if errors.Is(err, helpers.ErrTokenExpired) {
			return nil, ErrRefreshTokenExpired
		}
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.Auth("refresh", err)
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !u.IsActive || u.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(u.RefreshToken), []byte(refreshToken)) != 1 {
		s.Metrics.Auth("refresh", ErrInvalidRefreshToken)
		return nil, ErrInvalidRefreshToken
	}

	access, exp, err := s.JWT.GenerateAccessToken(u.ID, string(u.UserType))
	if err != nil {
		return nil, err
	}
	s.Metrics.Auth("refresh", nil)
	return &RefreshResult{Token: access, TokenExpiry: exp}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string, client ClientInfo) error {
	if err := s.Users.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.audit(ctx, "logout", userID, "", client, nil)
	s.Metrics.Auth("logout", nil)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*UserView, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := ToUserView(u)
	return &v, nil
}

func (s *AuthService) load(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password and stores the new hash. The stored
// refresh token is dropped, so other sessions cannot refresh.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string, client ClientInfo) error {
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !helpers.CheckPassword(u.Password, current) {
		s.Metrics.Auth("change_password", ErrWrongPassword)
		return ErrWrongPassword
	}
	hash, err := helpers.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.audit(ctx, "change_password", u.ID, identifierOf(u), client, nil)
	s.Metrics.Auth("change_password", nil)
	return nil
}

// RequestEmailVerification mails a single-use verification link valid for 24h.
func (s *AuthService) RequestEmailVerification(ctx context.Context, userID string, client ClientInfo) error {
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if u.Email == "" {
		return ErrNoEmail
	}
	if u.Provider != nil && u.Provider.IsVerified {
		return ErrAlreadyVerified
	}
	return s.sendVerification(ctx, u, client)
}

func (s *AuthService) sendVerification(ctx context.Context, u *entity.User, client ClientInfo) error {
	token, err := s.storeToken(ctx, verifyKeyPrefix, u.ID, verifyTokenTTL)
	if err != nil {
		return err
	}
	s.enqueue(ctx, mailtpl.VerifyEmail, u.Email, mailtpl.NewEmailData(s.Config, mailtpl.VerifyEmail, u.Name, u.Email,
		mailtpl.WithVerifyURL(withToken(s.Config.VerifyEmailURL, token)),
		mailtpl.WithExpiresIn(verifyTokenTTL),
		mailtpl.WithUserType(string(u.UserType)),
		mailtpl.WithIP(client.IP),
		mailtpl.WithUserAgent(client.UserAgent),
		mailtpl.WithTime(s.now()),
	))
	return nil
}

// ConfirmEmailVerification consumes the token and marks the provider verified.
func (s *AuthService) ConfirmEmailVerification(ctx context.Context, token string, client ClientInfo) (*UserView, error) {
	userID, err := s.takeToken(ctx, verifyKeyPrefix, token)
	if err != nil {
		return nil, err
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Provider != nil && !u.Provider.IsVerified {
		if err := s.Users.SetVerified(ctx, u.ID); err != nil {
			return nil, err
		}
		u.Provider.IsVerified = true
		s.reindex(ctx, u)
	}
	s.audit(ctx, "verify_email", u.ID, u.Email, client, nil)
	s.Metrics.Auth("verify_email", nil)
	s.enqueue(ctx, mailtpl.Welcome, u.Email, mailtpl.NewEmailData(s.Config, mailtpl.Welcome, u.Name, u.Email,
		mailtpl.WithUserType(string(u.UserType)), mailtpl.WithTime(s.now())))

	v := ToUserView(u)
	return &v, nil
}

// RequestPasswordReset always reports success so callers cannot probe which emails exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, client ClientInfo) error {
	email = normalizeEmail(email)
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithField("email", email).Debug("password reset for unknown email")
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}
	token, err := s.storeToken(ctx, resetKeyPrefix, u.ID, resetTokenTTL)
	if err != nil {
		return err
	}
	s.enqueue(ctx, mailtpl.ForgotPassword, u.Email, mailtpl.NewEmailData(s.Config, mailtpl.ForgotPassword, u.Name, u.Email,
		mailtpl.WithResetURL(withToken(s.Config.ResetPasswordURL, token)),
		mailtpl.WithExpiresIn(resetTokenTTL),
		mailtpl.WithIP(client.IP),
		mailtpl.WithUserAgent(client.UserAgent),
		mailtpl.WithTime(s.now()),
	))
	s.audit(ctx, "password_reset_requested", u.ID, email, client, nil)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string, client ClientInfo) error {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return err
	}
	userID, err := s.takeToken(ctx, resetKeyPrefix, token)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	s.audit(ctx, "password_reset", userID, "", client, nil)
	s.Metrics.Auth("password_reset", nil)
	return nil
}

func (s *AuthService) storeToken(ctx context.Context, prefix, userID string, ttl time.Duration) (string, error) {
	if s.Redis == nil {
		return "", ErrTokenStoreDown
	}
	token, err := helpers.GenToken(32)
	if err != nil {
		return "", err
	}
	if err := s.Redis.Set(ctx, prefix+token, userID, ttl).Err(); err != nil {
		s.Logger.WithError(err).Error("store one-time token failed")
		return "", ErrTokenStoreDown
	}
	return token, nil
}

func (s *AuthService) takeToken(ctx context.Context, prefix, token string) (string, error) {
	if s.Redis == nil {
		return "", ErrTokenStoreDown
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	userID, err := helpers.RedisTake(ctx, s.Redis, prefix+token)
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func withToken(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + token
}
