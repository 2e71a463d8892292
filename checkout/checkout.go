// Package checkout turns a cart or a single product into a priced, persisted
// order and moves its payment state forward.
//
// Checkout writes three records in sequence: the order, the buyer, then the
// buyer's cached details view. There is no transaction across them and no
// compensation. Every lookup and validation happens before the first write,
// so a rejected checkout leaves nothing behind, but a failure after the order
// is saved leaves the order in place with the buyer's cart untouched. That
// case is logged with the order id.
package checkout

import (
	"context"
	"errors"
	"log"
	"time"

	"shophub/address"
	"shophub/apperr"
	"shophub/globals"
	"shophub/models"
	"shophub/mq"
	"shophub/pay"
	"shophub/rdx"
	"shophub/store"

	"github.com/shopspring/decimal"
)

type Orchestrator struct {
	accounts  store.AccountStore
	products  store.ProductStore
	addresses store.AddressStore
	orders    store.OrderStore
	gateway   pay.Gateway
	notifier  mq.Notifier
	cache     rdx.Invalidator
	now       func() time.Time
}

func New(st *store.Stores, gateway pay.Gateway, notifier mq.Notifier, cache rdx.Invalidator) *Orchestrator {
	return &Orchestrator{
		accounts:  st.Accounts,
		products:  st.Products,
		addresses: st.Addresses,
		orders:    st.Orders,
		gateway:   gateway,
		notifier:  notifier,
		cache:     cache,
		now:       time.Now,
	}
}

// GatewayRefs are the provider's order/payment/signature ids, set once a
// payment has been verified.
type GatewayRefs struct {
	OrderID   string
	PaymentID string
	Signature string
}

// OrderRequest is a single-product checkout.
type OrderRequest struct {
	ProductID     string
	PaymentStatus models.PaymentStatus
	PaymentMode   string
	AddressID     string
	Quantity      int
	Gateway       GatewayRefs
}

// CartOrderRequest checks out the whole cart.
type CartOrderRequest struct {
	PaymentStatus models.PaymentStatus
	PaymentMode   string
	AddressID     string
	Gateway       GatewayRefs
}

// resolveStatus forces PENDING for cash on delivery. Other modes keep the
// caller's status; an empty one is treated as PENDING.
func resolveStatus(mode string, status models.PaymentStatus) models.PaymentStatus {
	if mode == globals.PaymentModeCOD {
		return models.PaymentPending
	}
	if status == "" {
		return models.PaymentPending
	}
	return status
}

func (o *Orchestrator) buyer(ctx context.Context, id models.Identity) (*models.Account, error) {
	if id.Email == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	return o.accounts.FindByEmail(ctx, id.Email)
}

// address resolves addressID and requires it to belong to buyer.
func (o *Orchestrator) address(ctx context.Context, buyer *models.Account, addressID string) (*models.Address, error) {
	if addressID == "" {
		return nil, apperr.InvalidArgument("address is required")
	}
	addr, err := o.addresses.FindByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if addr.UserID != "" && addr.UserID != buyer.ID {
		return nil, apperr.NotFound("address")
	}
	return addr, nil
}

func lineTotal(price float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
}

func (o *Orchestrator) newOrder(buyer *models.Account, addr *models.Address, mode string, status models.PaymentStatus, refs GatewayRefs) *models.Order {
	now := o.now().UTC()
	return &models.Order{
		PaymentStatus:     resolveStatus(mode, status),
		PaymentMode:       mode,
		UserID:            buyer.ID,
		UserName:          address.RecipientName(addr, buyer),
		UserEmail:         buyer.Email,
		UserPhoneNumber:   addr.PhoneNumber,
		ShippingAddress:   address.FormatShipping(addr),
		Address:           addr.ID,
		RazorpayOrderID:   refs.OrderID,
		RazorpayPaymentID: refs.PaymentID,
		RazorpaySignature: refs.Signature,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// commit persists the order, then the buyer, then drops the cached view.
func (o *Orchestrator) commit(ctx context.Context, order *models.Order, buyer *models.Account, mutate func(*models.Account)) error {
	if err := o.orders.Save(ctx, order); err != nil {
		return err
	}

	buyer.Orders = append(buyer.Orders, order.ID)
	mutate(buyer)
	if err := o.accounts.Save(ctx, buyer); err != nil {
		log.Printf("checkout: order %s saved but buyer %s not updated: %v", order.ID, buyer.Email, err)
		return err
	}
	rdx.Evict(ctx, o.cache, buyer.Email)
	return nil
}

// CreateOrder checks out quantity units of one product. The product's
// current price is frozen into the order.
func (o *Orchestrator) CreateOrder(ctx context.Context, id models.Identity, req OrderRequest) (*models.Order, error) {
	buyer, err := o.buyer(ctx, id)
	if err != nil {
		return nil, err
	}
	product, err := o.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	addr, err := o.address(ctx, buyer, req.AddressID)
	if err != nil {
		return nil, err
	}

	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}
	total, _ := lineTotal(product.Price, qty).Float64()

	order := o.newOrder(buyer, addr, req.PaymentMode, req.PaymentStatus, req.Gateway)
	order.TotalAmount = total
	order.OrderItems = []models.OrderItem{{ProductID: product.ID, Quantity: qty, Price: product.Price}}
	order.Product = product.ID
	order.Quantity = qty

	err = o.commit(ctx, order, buyer, func(b *models.Account) {
		b.AddPurchased(product.ID)
		for i, l := range b.CartItems {
			if l.ProductID == product.ID {
				b.CartItems = append(b.CartItems[:i], b.CartItems[i+1:]...)
				break
			}
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("CreateOrder: order %s for %s total %.2f (%s/%s)", order.ID, buyer.Email, order.TotalAmount, order.PaymentMode, order.PaymentStatus)
	o.notifier.SendOrderConfirmation(buyer.Email, order.UserName, *order, *product, *addr)
	return order, nil
}

// priceCart resolves every cart line at the current price. Any unknown
// product fails the whole cart.
func (o *Orchestrator) priceCart(ctx context.Context, buyer *models.Account) ([]models.OrderItem, []*models.Product, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(buyer.CartItems))
	products := make([]*models.Product, 0, len(buyer.CartItems))
	total := decimal.Zero
	for _, line := range buyer.CartItems {
		p, err := o.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, nil, decimal.Zero, err
		}
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, models.OrderItem{ProductID: p.ID, Quantity: qty, Price: p.Price})
		products = append(products, p)
		total = total.Add(lineTotal(p.Price, qty))
	}
	return items, products, total, nil
}

// CreateOrderFromCart checks out every cart line in one order and empties the
// cart. Only the first line's product appears in the confirmation message.
func (o *Orchestrator) CreateOrderFromCart(ctx context.Context, id models.Identity, req CartOrderRequest) (*models.Order, error) {
	buyer, err := o.buyer(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(buyer.CartItems) == 0 {
		return nil, apperr.InvalidArgument("cart is empty")
	}
	addr, err := o.address(ctx, buyer, req.AddressID)
	if err != nil {
		return nil, err
	}

	items, products, total, err := o.priceCart(ctx, buyer)
	if err != nil {
		return nil, err
	}

	order := o.newOrder(buyer, addr, req.PaymentMode, req.PaymentStatus, req.Gateway)
	order.TotalAmount, _ = total.Float64()
	order.OrderItems = items
	order.Product = items[0].ProductID
	order.Quantity = items[0].Quantity

	err = o.commit(ctx, order, buyer, func(b *models.Account) {
		for _, it := range items {
			b.AddPurchased(it.ProductID)
		}
		b.CartItems = []models.CartLine{}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("CreateOrderFromCart: order %s for %s, %d lines, total %.2f", order.ID, buyer.Email, len(items), order.TotalAmount)
	o.notifier.SendOrderConfirmation(buyer.Email, order.UserName, *order, *products[0], *addr)
	return order, nil
}

// Verify checks a provider signature. A mismatch is (false, nil); a
// transport failure is an error of kind Gateway.
func (o *Orchestrator) Verify(ctx context.Context, gatewayOrderID, paymentID, signature string) (bool, error) {
	ok, err := o.gateway.VerifySignature(ctx, gatewayOrderID, paymentID, signature)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind == apperr.KindGateway {
			return false, err
		}
		return false, apperr.Gateway("payment verification unavailable", err)
	}
	return ok, nil
}

// UpdatePaymentStatus marks an order paid. The transition only moves forward:
// repeating it with the same payment id returns the order unchanged, and a
// different payment id on a paid order is a conflict.
func (o *Orchestrator) UpdatePaymentStatus(ctx context.Context, orderID, paymentID, signature string) (*models.Order, error) {
	order, err := o.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentSuccess {
		if order.RazorpayPaymentID == paymentID {
			return order, nil
		}
		return nil, apperr.Conflict("order already paid")
	}

	order.PaymentStatus = models.PaymentSuccess
	order.RazorpayPaymentID = paymentID
	order.RazorpaySignature = signature
	if err := o.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	rdx.Evict(ctx, o.cache, order.UserEmail)
	log.Printf("UpdatePaymentStatus: order %s paid (%s)", order.ID, paymentID)
	return order, nil
}
