package application

import (
	"time"

	"github.com/oksasatya/materials-store-api/internal/domain/entity"
)

// UserView is the public JSON shape of an account. It never carries the password
// hash or refresh token.
type UserView struct {
	ID        string          `json:"id"`
	UserType  entity.UserType `json:"userType"`
	Name      string          `json:"name"`
	Email     string          `json:"email,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	AvatarURL string          `json:"avatarUrl,omitempty"`
	IsActive  bool            `json:"isActive"`
	LastLogin *time.Time      `json:"lastLogin,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`

	*CustomerFields
	*ProviderFields
}

type CustomerFields struct {
	Cart          []string `json:"cart"`
	Wishlist      []string `json:"wishlist"`
	Orders        []string `json:"orders"`
	Favorites     []string `json:"favorites"`
	Notifications []string `json:"notifications"`
}

type ProviderFields struct {
	CompanyName string  `json:"companyName"`
	ServiceType string  `json:"serviceType"`
	IsVerified  bool    `json:"isVerified"`
	Rating      float64 `json:"rating"`
	Earnings    float64 `json:"earnings"`
}

func ToUserView(u *entity.User) UserView {
	v := UserView{
		ID:        u.ID,
		UserType:  u.UserType,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Address:   u.Address,
		AvatarURL: u.AvatarURL,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if c := u.Customer; c != nil {
		v.CustomerFields = &CustomerFields{
			Cart:          orEmpty(c.Cart),
			Wishlist:      orEmpty(c.Wishlist),
			Orders:        orEmpty(c.Orders),
			Favorites:     orEmpty(c.Favorites),
			Notifications: orEmpty(c.Notifications),
		}
	}
	if p := u.Provider; p != nil {
		v.ProviderFields = &ProviderFields{
			CompanyName: p.CompanyName,
			ServiceType: p.ServiceType,
			IsVerified:  p.IsVerified,
			Rating:      p.Rating,
			Earnings:    p.Earnings,
		}
	}
	return v
}

func toUserViews(users []*entity.User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserView(u))
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	Token         string    `json:"token"`
	RefreshToken  string    `json:"refreshToken"`
	User          UserView  `json:"user"`
	TokenExpiry   time.Time `json:"-"`
	RefreshExpiry time.Time `json:"-"`
}

type RefreshResult struct {
	Token       string    `json:"token"`
	TokenExpiry time.Time `json:"-"`
}

// Page is the pagination block sent as response meta.
type Page struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func newPage(page, limit, total int64) Page {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Page{Page: page, Limit: limit, Total: total, Pages: pages}
}

// RateView is the JSON shape of a daily rate; it is also what the rates cache stores.
type RateView struct {
	ID            string    `json:"id"`
	Material      string    `json:"material"`
	Category      string    `json:"category"`
	Unit          string    `json:"unit"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	RateDate      string    `json:"rateDate"`
	PreviousPrice *float64  `json:"previousPrice,omitempty"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Trend         string    `json:"trend"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

const dateLayout = "2006-01-02"

func toRateView(q entity.RateQuote) RateView {
	v := RateView{
		ID:            q.ID,
		Material:      q.Material,
		Category:      q.Category,
		Unit:          q.Unit,
		Price:         q.Price,
		Currency:      q.Currency,
		RateDate:      q.RateDate.Format(dateLayout),
		PreviousPrice: q.PreviousPrice,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Trend:         "stable",
		UpdatedAt:     q.UpdatedAt,
	}
	switch {
	case q.Change > 0:
		v.Trend = "up"
	case q.Change < 0:
		v.Trend = "down"
	}
	return v
}
