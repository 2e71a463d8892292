package models

import (
	"slices"
	"time"
)

// Account is the persisted user record. The cart lives inside it, so every
// cart mutation rewrites the whole document.
type Account struct {
	ID             string     `json:"id" bson:"_id"`
	FirstName      string     `json:"first_name" bson:"first_name"`
	LastName       string     `json:"last_name" bson:"last_name"`
	Email          string     `json:"email" bson:"email"`
	ProfileImage   string     `json:"profile_image" bson:"profile_image"`
	Roles          []string   `json:"roles" bson:"roles"`
	Password       string     `json:"-" bson:"password"`
	JwtToken       string     `json:"-" bson:"jwtToken,omitempty"`
	CartItems      []CartLine `json:"cart_items" bson:"cart_items"`
	Addresses      []string   `json:"address" bson:"address"`
	BuyingProducts []string   `json:"buying_products" bson:"buying_products"`
	Orders         []string   `json:"orders" bson:"orders"`
	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// FullName joins first and last name the way notifications address buyers.
func (a *Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

func (a *Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// IsProviderOnly reports an account created through the OAuth bridge that
// has never set a password.
func (a *Account) IsProviderOnly() bool {
	return a.Password == ""
}

// AddPurchased records productID in the purchased set.
func (a *Account) AddPurchased(productID string) {
	if !slices.Contains(a.BuyingProducts, productID) {
		a.BuyingProducts = append(a.BuyingProducts, productID)
	}
}

// AccountView is the account without credentials, returned by login and
// admin listings.
type AccountView struct {
	ID             string     `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	ProfileImage   string     `json:"profile_image"`
	Roles          []string   `json:"roles"`
	CartItems      []CartLine `json:"cart_items"`
	Addresses      []string   `json:"address"`
	BuyingProducts []string   `json:"buying_products"`
	Orders         []string   `json:"orders"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:             a.ID,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		ProfileImage:   a.ProfileImage,
		Roles:          a.Roles,
		CartItems:      a.CartItems,
		Addresses:      a.Addresses,
		BuyingProducts: a.BuyingProducts,
		Orders:         a.Orders,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// Identity is the authenticated caller attached to a request by the
// authentication gate and passed explicitly into protected operations.
type Identity struct {
	AccountID   string
	Email       string
	Roles       []string
	Authorities []string
}

// Authority is the granted authority name for role.
func Authority(role string) string {
	return "ROLE_" + role
}

func (i Identity) HasAuthority(authority string) bool {
	return slices.Contains(i.Authorities, authority)
}

// ProviderProfile is what an external identity provider reports after a
// successful login.
type ProviderProfile struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}
