package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicatePhone = errors.New("phone number already exists")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines the persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByPhone(ctx context.Context, phone string, userType entity.UserType) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	SetRefreshToken(ctx context.Context, id, token string) error
	RecordLogin(ctx context.Context, id, refreshToken string, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) error
	SetVerified(ctx context.Context, id string) error
	AddToList(ctx context.Context, id string, list entity.CustomerList, itemID string) error
	RemoveFromList(ctx context.Context, id string, list entity.CustomerList, itemID string) error
	List(ctx context.Context, f entity.UserFilter, skip, limit int64) ([]*entity.User, int64, error)
	Search(ctx context.Context, q string, limit int64) ([]*entity.User, error)
	Delete(ctx context.Context, id string) error
}
