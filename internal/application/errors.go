package application

import "errors"

var (
	ErrPhoneTaken          = errors.New("phone number already registered")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDisabled     = errors.New("account is deactivated")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrInvalidUserType     = errors.New("invalid user type")
	ErrNoEmail             = errors.New("account has no email address")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrNotProvider         = errors.New("user is not a service provider")
	ErrInvalidList         = errors.New("unknown list")
	ErrInvalidAvatar       = errors.New("avatar must be an image")
	ErrStorageUnavailable  = errors.New("avatar storage is not configured")
	ErrTokenStoreDown      = errors.New("token store unavailable")
	ErrRateNotFound        = errors.New("rate not found")
	ErrInvalidRateDate     = errors.New("rateDate must be YYYY-MM-DD")
)
