// Package address manages the buyer's address book.
package address

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shophub/apperr"
	"shophub/globals"
	"shophub/models"
	"shophub/rdx"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

// Book adds addresses and resolves them for checkout.
type Book struct {
	accounts  store.AccountStore
	addresses store.AddressStore
	cache     rdx.Invalidator
}

func NewBook(accounts store.AccountStore, addresses store.AddressStore, cache rdx.Invalidator) *Book {
	return &Book{accounts: accounts, addresses: addresses, cache: cache}
}

type Input struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Country     string `json:"country"`
	PinCode     string `json:"pin_code"`
	HouseNo     string `json:"house_no"`
	Area        string `json:"area"`
	Landmark    string `json:"landmark"`
	City        string `json:"city"`
	State       string `json:"state"`
}

// Add stores a new address for the caller and links it to the account.
func (b *Book) Add(ctx context.Context, id models.Identity, in Input) (*models.Address, error) {
	acc, err := b.accounts.FindByID(ctx, id.AccountID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.PhoneNumber) == "" || strings.TrimSpace(in.PinCode) == "" || strings.TrimSpace(in.City) == "" {
		return nil, apperr.InvalidArgument("phone number, pin code and city are required")
	}

	addr := &models.Address{
		UserID:      acc.ID,
		Name:        strings.TrimSpace(in.Name),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Country:     strings.TrimSpace(in.Country),
		PinCode:     strings.TrimSpace(in.PinCode),
		HouseNo:     strings.TrimSpace(in.HouseNo),
		Area:        strings.TrimSpace(in.Area),
		Landmark:    strings.TrimSpace(in.Landmark),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
	}
	if addr.Name == "" {
		addr.Name = acc.FullName()
	}
	if addr.Country == "" {
		addr.Country = globals.DefaultCountry
	}
	if err := b.addresses.Save(ctx, addr); err != nil {
		return nil, err
	}

	acc.Addresses = append(acc.Addresses, addr.ID)
	if err := b.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	rdx.Evict(ctx, b.cache, acc.Email)
	return addr, nil
}

// FormatShipping renders the frozen shipping string stored on orders.
func FormatShipping(a *models.Address) string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s - %s",
		a.HouseNo, a.Area, a.Landmark, a.City, a.State, a.Country, a.PinCode)
}

// RecipientName is the address name, or the account's full name when unset.
func RecipientName(a *models.Address, acc *models.Account) string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return acc.FullName()
}

func (b *Book) HandleAdd(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	id, _ := utils.IdentityFromRequest(r)
	addr, err := b.Add(ctx, id, in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusCreated, addr, "Address added successfully")
}
