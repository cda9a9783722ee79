package entity

import (
	"time"
)

// UserType is the discriminator stored with every user document.
type UserType string

const (
	UserTypeCustomer        UserType = "customer"
	UserTypeServiceProvider UserType = "service_provider"
	UserTypeAdmin           UserType = "admin"
)

// Valid reports whether t is one of the known account types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeCustomer, UserTypeServiceProvider, UserTypeAdmin:
		return true
	}
	return false
}

// LoginByPhone reports whether accounts of this type sign in with their phone number.
// Everyone else signs in with email.
func (t UserType) LoginByPhone() bool { return t == UserTypeCustomer }

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash and RefreshToken the single live refresh token;
// neither is ever serialized.
//
// Exactly one of Customer / Provider is set for those user types; admins carry neither.
type User struct {
	ID           string
	UserType     UserType
	Name         string
	Email        string
	Phone        string
	Address      string
	Password     string
	RefreshToken string
	AvatarURL    string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Customer *CustomerProfile
	Provider *ProviderProfile
}

type CustomerProfile struct {
	Cart          []string
	Wishlist      []string
	Orders        []string
	Favorites     []string
	Notifications []string
}

type ProviderProfile struct {
	CompanyName string
	ServiceType string
	IsVerified  bool
	Rating      float64
	Earnings    float64
}

// IsVerified is true for providers that confirmed their email; other account types
// have no verification requirement.
func (u *User) IsVerified() bool {
	if u.Provider == nil {
		return true
	}
	return u.Provider.IsVerified
}

// CustomerList names the reference arrays a customer may edit directly.
type CustomerList string

const (
	ListCart      CustomerList = "cart"
	ListWishlist  CustomerList = "wishlist"
	ListFavorites CustomerList = "favorites"
)

func (l CustomerList) Valid() bool {
	return l == ListCart || l == ListWishlist || l == ListFavorites
}

// UserFilter narrows admin listings. Nil fields are ignored.
type UserFilter struct {
	UserType *UserType
	IsActive *bool
}
