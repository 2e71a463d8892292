package checkout

import (
	"context"

	"shophub/apperr"
	"shophub/globals"
	"shophub/models"
	"shophub/pay"
)

// GatewayOrderResult is what the browser needs to open the provider's
// checkout widget.
type GatewayOrderResult struct {
	GatewayOrderID string `json:"order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Key            string `json:"key"`
}

// CreateGatewayOrder registers the payable amount for quantity units of a
// product with the provider.
func (o *Orchestrator) CreateGatewayOrder(ctx context.Context, productID string, quantity int) (*GatewayOrderResult, error) {
	product, err := o.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		quantity = 1
	}
	amount, _ := lineTotal(product.Price, quantity).Float64()

	gw, err := o.gateway.CreateOrder(ctx, pay.ToMinorUnits(amount), globals.DefaultCurrency, pay.Receipt(o.now()))
	if err != nil {
		return nil, err
	}
	return &GatewayOrderResult{
		GatewayOrderID: gw.ID,
		Amount:         gw.Amount,
		Currency:       gw.Currency,
		Key:            o.gateway.KeyID(),
	}, nil
}

// CreateCartGatewayOrder is CreateGatewayOrder for the caller's whole cart.
func (o *Orchestrator) CreateCartGatewayOrder(ctx context.Context, id models.Identity) (*GatewayOrderResult, error) {
	buyer, err := o.buyer(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(buyer.CartItems) == 0 {
		return nil, apperr.InvalidArgument("cart is empty")
	}
	_, _, total, err := o.priceCart(ctx, buyer)
	if err != nil {
		return nil, err
	}
	amount, _ := total.Float64()

	gw, err := o.gateway.CreateOrder(ctx, pay.ToMinorUnits(amount), globals.DefaultCurrency, pay.Receipt(o.now()))
	if err != nil {
		return nil, err
	}
	return &GatewayOrderResult{GatewayOrderID: gw.ID, Amount: gw.Amount, Currency: gw.Currency, Key: o.gateway.KeyID()}, nil
}

// VerifyRequest completes an online payment. An empty ProductID checks out
// the whole cart.
type VerifyRequest struct {
	Gateway   GatewayRefs
	ProductID string
	AddressID string
	Quantity  int
}

// VerifyAndCreateOrder verifies the provider signature and then creates the
// order as paid online.
func (o *Orchestrator) VerifyAndCreateOrder(ctx context.Context, id models.Identity, req VerifyRequest) (*models.Order, error) {
	ok, err := o.Verify(ctx, req.Gateway.OrderID, req.Gateway.PaymentID, req.Gateway.Signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidArgument("payment verification failed")
	}

	if req.ProductID == "" {
		return o.CreateOrderFromCart(ctx, id, CartOrderRequest{
			PaymentStatus: models.PaymentSuccess,
			PaymentMode:   globals.PaymentModeOnline,
			AddressID:     req.AddressID,
			Gateway:       req.Gateway,
		})
	}
	return o.CreateOrder(ctx, id, OrderRequest{
		ProductID:     req.ProductID,
		PaymentStatus: models.PaymentSuccess,
		PaymentMode:   globals.PaymentModeOnline,
		AddressID:     req.AddressID,
		Quantity:      req.Quantity,
		Gateway:       req.Gateway,
	})
}

// OrderFor returns orderID if it belongs to the caller.
func (o *Orchestrator) OrderFor(ctx context.Context, id models.Identity, orderID string) (*models.Order, error) {
	order, err := o.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != id.AccountID {
		return nil, apperr.NotFound("order")
	}
	return order, nil
}

// ConfirmPayment marks the caller's order paid once the provider signature
// over the order's gateway id checks out.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, id models.Identity, orderID, paymentID, signature string) (*models.Order, error) {
	order, err := o.OrderFor(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	if order.RazorpayOrderID == "" {
		return nil, apperr.InvalidArgument("order has no payment gateway reference")
	}
	ok, err := o.Verify(ctx, order.RazorpayOrderID, paymentID, signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidArgument("payment verification failed")
	}
	return o.UpdatePaymentStatus(ctx, orderID, paymentID, signature)
}
