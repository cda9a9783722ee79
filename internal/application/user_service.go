package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	repo "github.com/oksasatya/materials-store-api/internal/domain/repository"
	mailtpl "github.com/oksasatya/materials-store-api/pkg/mailer/templates"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 100
	defaultSearchSize = 10
	maxSearchSize     = 50
)

type UserService struct {
	Deps
}

func NewUserService(d Deps) *UserService {
	return &UserService{Deps: d}
}

type UpdateProfileInput struct {
	Name        string
	Address     string
	Email       string
	CompanyName string
	ServiceType string
}

func (s *UserService) load(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile applies the non-empty fields. A provider that changes email has to verify again.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*UserView, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(in.Name); v != "" {
		u.Name = v
	}
	if v := strings.TrimSpace(in.Address); v != "" {
		u.Address = v
	}
	if email := normalizeEmail(in.Email); email != "" && email != u.Email {
		other, err := s.Users.GetByEmail(ctx, email)
		switch {
		case err == nil && other.ID != u.ID:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, repo.ErrNotFound):
			return nil, err
		}
		u.Email = email
		if u.Provider != nil {
			u.Provider.IsVerified = false
		}
	}
	if p := u.Provider; p != nil {
		if v := strings.TrimSpace(in.CompanyName); v != "" {
			p.CompanyName = v
		}
		if v := strings.TrimSpace(in.ServiceType); v != "" {
			p.ServiceType = v
		}
	}

	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.reindex(ctx, u)
	v := ToUserView(u)
	return &v, nil
}

// UploadAvatar stores the image under avatars/<uid>/<uuid><ext> and saves its URL on the profile.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (*UserView, error) {
	if s.Storage == nil {
		return nil, ErrStorageUnavailable
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidAvatar
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := "avatars/" + userID + "/" + uuid.NewString() + ext
	url, err := s.Storage.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Error("avatar upload failed")
		return nil, err
	}
	u.AvatarURL = url
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.reindex(ctx, u)
	v := ToUserView(u)
	return &v, nil
}

// AddToList and RemoveFromList edit a customer's cart, wishlist or favorites and return the list.
func (s *UserService) AddToList(ctx context.Context, userID string, list entity.CustomerList, itemID string) ([]string, error) {
	return s.editList(ctx, userID, list, itemID, s.Users.AddToList)
}

func (s *UserService) RemoveFromList(ctx context.Context, userID string, list entity.CustomerList, itemID string) ([]string, error) {
	return s.editList(ctx, userID, list, itemID, s.Users.RemoveFromList)
}

func (s *UserService) editList(ctx context.Context, userID string, list entity.CustomerList, itemID string,
	op func(context.Context, string, entity.CustomerList, string) error) ([]string, error) {
	if !list.Valid() {
		return nil, ErrInvalidList
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, ErrInvalidList
	}
	if err := op(ctx, userID, list, itemID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Customer == nil {
		return []string{}, nil
	}
	switch list {
	case entity.ListCart:
		return orEmpty(u.Customer.Cart), nil
	case entity.ListWishlist:
		return orEmpty(u.Customer.Wishlist), nil
	default:
		return orEmpty(u.Customer.Favorites), nil
	}
}

func (s *UserService) ListUsers(ctx context.Context, f entity.UserFilter, page, limit int64) ([]UserView, Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	users, total, err := s.Users.List(ctx, f, (page-1)*limit, limit)
	if err != nil {
		return nil, Page{}, err
	}
	return toUserViews(users), newPage(page, limit, total), nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*UserView, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := ToUserView(u)
	return &v, nil
}

// SetActive enables or disables an account and tells the owner by email. Disabling also
// drops the stored refresh token.
func (s *UserService) SetActive(ctx context.Context, id string, active bool, adminID string, client ClientInfo) (*UserView, error) {
	if err := s.Users.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, u)
	s.audit(ctx, "status_change", u.ID, identifierOf(u), client, map[string]any{"is_active": active, "by": adminID})
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "is_active": active, "admin_id": adminID}).Info("account status changed")
	if u.Email != "" {
		s.enqueue(ctx, mailtpl.AccountStatus, u.Email, mailtpl.NewAccountStatusData(s.Config, u.Name, u.Email, active,
			mailtpl.WithTime(s.now())))
	}
	v := ToUserView(u)
	return &v, nil
}

func (s *UserService) VerifyProvider(ctx context.Context, id string) (*UserView, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Provider == nil {
		return nil, ErrNotProvider
	}
	if !u.Provider.IsVerified {
		if err := s.Users.SetVerified(ctx, id); err != nil {
			return nil, err
		}
		u.Provider.IsVerified = true
		s.reindex(ctx, u)
	}
	v := ToUserView(u)
	return &v, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id, adminID string, client ClientInfo) error {
	if err := s.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
	}
	s.audit(ctx, "delete_user", id, "", client, map[string]any{"by": adminID})
	return nil
}

// SearchUsers prefers Elasticsearch and falls back to a Mongo regex search when the index
// is not configured or fails.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]UserView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []UserView{}, nil
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	if s.Index != nil {
		ids, err := s.Index.Search(ctx, q, size)
		if err == nil {
			out := make([]UserView, 0, len(ids))
			for _, id := range ids {
				u, err := s.Users.GetByID(ctx, id)
				if err != nil {
					continue
				}
				out = append(out, ToUserView(u))
			}
			return out, nil
		}
		s.Logger.WithError(err).Warn("es search failed, falling back to mongo")
	}

	users, err := s.Users.Search(ctx, q, int64(size))
	if err != nil {
		return nil, err
	}
	return toUserViews(users), nil
}
