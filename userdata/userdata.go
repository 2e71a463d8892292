// Package userdata assembles the account details view: the account's profile
// with its cart, addresses and orders resolved, cached per email.
package userdata

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"shophub/apperr"
	"shophub/models"
	"shophub/rdx"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

// CartDetail is a cart line joined with the product as it is now. Product is
// nil when the product has since been removed from the catalog.
type CartDetail struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   *models.Product `json:"product"`
}

// OrderLine pairs the price paid with the product's current price.
type OrderLine struct {
	ProductID    string   `json:"productId"`
	ProductName  string   `json:"productName,omitempty"`
	Quantity     int      `json:"quantity"`
	Price        float64  `json:"price"`
	CurrentPrice *float64 `json:"currentPrice,omitempty"`
}

type OrderDetail struct {
	ID              string               `json:"id"`
	PaymentStatus   models.PaymentStatus `json:"payment_status"`
	PaymentMode     string               `json:"payment_mode"`
	TotalAmount     float64              `json:"totalAmount"`
	ShippingAddress string               `json:"shippingAddress"`
	Items           []OrderLine          `json:"items"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// AccountDetails is the cached read model behind /user/user-details.
type AccountDetails struct {
	Profile   models.AccountView `json:"profile"`
	Cart      []CartDetail       `json:"cart"`
	Addresses []models.Address   `json:"addresses"`
	Orders    []OrderDetail      `json:"orders"`
}

type Details struct {
	accounts  store.AccountStore
	products  store.ProductStore
	addresses store.AddressStore
	orders    store.OrderStore
	cache     rdx.Cache
}

func NewDetails(st *store.Stores, cache rdx.Cache) *Details {
	return &Details{
		accounts:  st.Accounts,
		products:  st.Products,
		addresses: st.Addresses,
		orders:    st.Orders,
		cache:     cache,
	}
}

// Get returns the details view for email, building it on a cache miss. Cache
// errors degrade to a rebuild. The view is only cached when no mutation
// invalidated email while it was being built.
func (d *Details) Get(ctx context.Context, email string) (*AccountDetails, error) {
	var cached AccountDetails
	hit, err := d.cache.Get(ctx, email, &cached)
	if err != nil {
		log.Printf("[Cache] read details for %s: %v", email, err)
	}
	if hit {
		return &cached, nil
	}

	gen, genErr := d.cache.Generation(ctx, email)
	if genErr != nil {
		log.Printf("[Cache] read generation for %s: %v", email, genErr)
	}
	details, err := d.build(ctx, email)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		if err := d.cache.Set(ctx, email, gen, details); err != nil {
			log.Printf("[Cache] write details for %s: %v", email, err)
		}
	}
	return details, nil
}

func (d *Details) build(ctx context.Context, email string) (*AccountDetails, error) {
	acc, err := d.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	products := map[string]*models.Product{}
	product := func(id string) *models.Product {
		if p, seen := products[id]; seen {
			return p
		}
		p, err := d.products.FindByID(ctx, id)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				log.Printf("userdata: product %s: %v", id, err)
			}
			p = nil
		}
		products[id] = p
		return p
	}

	out := &AccountDetails{
		Profile:   acc.View(),
		Cart:      make([]CartDetail, 0, len(acc.CartItems)),
		Addresses: make([]models.Address, 0, len(acc.Addresses)),
		Orders:    make([]OrderDetail, 0, len(acc.Orders)),
	}
	for _, line := range acc.CartItems {
		out.Cart = append(out.Cart, CartDetail{ProductID: line.ProductID, Quantity: line.Quantity, Product: product(line.ProductID)})
	}
	for _, id := range acc.Addresses {
		addr, err := d.addresses.FindByID(ctx, id)
		if err != nil {
			log.Printf("userdata: address %s of %s: %v", id, email, err)
			continue
		}
		out.Addresses = append(out.Addresses, *addr)
	}
	for _, id := range acc.Orders {
		order, err := d.orders.FindByID(ctx, id)
		if err != nil {
			log.Printf("userdata: order %s of %s: %v", id, email, err)
			continue
		}
		detail := OrderDetail{
			ID:              order.ID,
			PaymentStatus:   order.PaymentStatus,
			PaymentMode:     order.PaymentMode,
			TotalAmount:     order.TotalAmount,
			ShippingAddress: order.ShippingAddress,
			CreatedAt:       order.CreatedAt,
		}
		for _, it := range order.Items() {
			line := OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
			if p := product(it.ProductID); p != nil {
				price := p.Price
				line.ProductName = p.ProductName
				line.CurrentPrice = &price
			}
			detail.Items = append(detail.Items, line)
		}
		out.Orders = append(out.Orders, detail)
	}
	return out, nil
}

func (d *Details) HandleUserDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, _ := utils.IdentityFromRequest(r)
	details, err := d.Get(ctx, id.Email)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, details, "User details fetched")
}
