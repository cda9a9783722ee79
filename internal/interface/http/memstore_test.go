package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	repo "github.com/oksasatya/materials-store-api/internal/domain/repository"
)

// memUsers is an in-memory UserRepository with the same uniqueness rules as the Mongo indexes.
type memUsers struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*entity.User{}}
}

func clone(u *entity.User) *entity.User {
	cp := *u
	if u.Customer != nil {
		c := *u.Customer
		c.Cart = append([]string(nil), u.Customer.Cart...)
		c.Wishlist = append([]string(nil), u.Customer.Wishlist...)
		c.Favorites = append([]string(nil), u.Customer.Favorites...)
		cp.Customer = &c
	}
	if u.Provider != nil {
		p := *u.Provider
		cp.Provider = &p
	}
	return &cp
}

func (m *memUsers) put(u *entity.User) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	m.users[u.ID] = clone(u)
	return u
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.users {
		if u.Email != "" && o.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
		if u.Phone != "" && o.Phone == u.Phone && o.UserType == u.UserType {
			return repo.ErrDuplicatePhone
		}
	}
	u.ID = primitive.NewObjectID().Hex()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = clone(u)
	return nil
}

func (m *memUsers) find(match func(*entity.User) bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	email = strings.ToLower(email)
	return m.find(func(u *entity.User) bool { return u.Email != "" && u.Email == email })
}

func (m *memUsers) GetByPhone(_ context.Context, phone string, t entity.UserType) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Phone == phone && u.UserType == t })
}

func (m *memUsers) edit(id string, fn func(*entity.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memUsers) Update(_ context.Context, in *entity.User) error {
	return m.edit(in.ID, func(u *entity.User) {
		u.Name, u.Address, u.AvatarURL = in.Name, in.Address, in.AvatarURL
		if in.Email != "" {
			u.Email = in.Email
		}
		if in.Provider != nil {
			p := *in.Provider
			u.Provider = &p
		}
	})
}

func (m *memUsers) SetRefreshToken(_ context.Context, id, token string) error {
	return m.edit(id, func(u *entity.User) { u.RefreshToken = token })
}

func (m *memUsers) RecordLogin(_ context.Context, id, token string, at time.Time) error {
	return m.edit(id, func(u *entity.User) { u.RefreshToken, u.LastLogin = token, &at })
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	return m.edit(id, func(u *entity.User) { u.Password, u.RefreshToken = hash, "" })
}

func (m *memUsers) SetActive(_ context.Context, id string, active bool) error {
	return m.edit(id, func(u *entity.User) {
		u.IsActive = active
		if !active {
			u.RefreshToken = ""
		}
	})
}

func (m *memUsers) SetVerified(_ context.Context, id string) error {
	return m.edit(id, func(u *entity.User) {
		if u.Provider != nil {
			u.Provider.IsVerified = true
		}
	})
}

func listOf(u *entity.User, l entity.CustomerList) *[]string {
	if u.Customer == nil {
		u.Customer = &entity.CustomerProfile{}
	}
	switch l {
	case entity.ListCart:
		return &u.Customer.Cart
	case entity.ListWishlist:
		return &u.Customer.Wishlist
	default:
		return &u.Customer.Favorites
	}
}

func (m *memUsers) AddToList(_ context.Context, id string, l entity.CustomerList, item string) error {
	return m.edit(id, func(u *entity.User) {
		s := listOf(u, l)
		for _, v := range *s {
			if v == item {
				return
			}
		}
		*s = append(*s, item)
	})
}

func (m *memUsers) RemoveFromList(_ context.Context, id string, l entity.CustomerList, item string) error {
	return m.edit(id, func(u *entity.User) {
		s := listOf(u, l)
		out := (*s)[:0]
		for _, v := range *s {
			if v != item {
				out = append(out, v)
			}
		}
		*s = out
	})
}

func (m *memUsers) List(_ context.Context, f entity.UserFilter, skip, limit int64) ([]*entity.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*entity.User
	for _, u := range m.users {
		if f.UserType != nil && u.UserType != *f.UserType {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		all = append(all, clone(u))
	}
	total := int64(len(all))
	if skip >= total {
		return []*entity.User{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

func (m *memUsers) Search(_ context.Context, q string, limit int64) ([]*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q = strings.ToLower(q)
	var out []*entity.User
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(u.Email, q) || strings.Contains(u.Phone, q) {
			out = append(out, clone(u))
		}
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.users, id)
	return nil
}
