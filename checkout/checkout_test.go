package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shophub/apperr"
	"shophub/models"
	"shophub/pay"
	"shophub/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gatewaySecret = "gw-secret"

type fakeGateway struct {
	verifyErr error
	created   []int64
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*models.GatewayOrder, error) {
	g.created = append(g.created, amount)
	return &models.GatewayOrder{ID: "order_gw1", Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (g *fakeGateway) VerifySignature(_ context.Context, orderID, paymentID, signature string) (bool, error) {
	if g.verifyErr != nil {
		return false, g.verifyErr
	}
	return pay.Sign(gatewaySecret, orderID, paymentID) == signature, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test" }

type sentConfirmation struct {
	email   string
	orderID string
	product string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentConfirmation
}

func (n *recordingNotifier) SendWelcome(string, string) {}

func (n *recordingNotifier) SendOrderConfirmation(email, _ string, order models.Order, product models.Product, _ models.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentConfirmation{email: email, orderID: order.ID, product: product.ID})
}

type evictions struct{ emails []string }

func (e *evictions) Invalidate(_ context.Context, email string) error {
	e.emails = append(e.emails, email)
	return nil
}

type fixture struct {
	o        *Orchestrator
	st       *store.Stores
	gw       *fakeGateway
	notifier *recordingNotifier
	cache    *evictions
	buyer    models.Identity
	addrID   string
}

func newFixture(t *testing.T, cart ...models.CartLine) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	require.NoError(t, st.Products.Save(ctx, &models.Product{ID: "p1", ProductName: "Lamp", Price: 10.0}))
	require.NoError(t, st.Products.Save(ctx, &models.Product{ID: "p2", ProductName: "Mug", Price: 5.0}))

	acc := &models.Account{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", CartItems: cart}
	require.NoError(t, st.Accounts.Save(ctx, acc))
	addr := &models.Address{UserID: acc.ID, PhoneNumber: "99999", HouseNo: "12", Area: "Indiranagar", City: "Bengaluru", State: "KA", Country: "India", PinCode: "560001"}
	require.NoError(t, st.Addresses.Save(ctx, addr))

	f := &fixture{
		st:       st,
		gw:       &fakeGateway{},
		notifier: &recordingNotifier{},
		cache:    &evictions{},
		buyer:    models.Identity{AccountID: acc.ID, Email: acc.Email},
		addrID:   addr.ID,
	}
	f.o = New(st, f.gw, f.notifier, f.cache)
	f.o.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return f
}

func (f *fixture) account(t *testing.T) *models.Account {
	t.Helper()
	acc, err := f.st.Accounts.FindByID(context.Background(), f.buyer.AccountID)
	require.NoError(t, err)
	return acc
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	all, err := f.st.Orders.FindAll(context.Background())
	require.NoError(t, err)
	return len(all)
}

func TestCreateOrderFromCartFreezesPrices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.CartLine{ProductID: "p1", Quantity: 2}, models.CartLine{ProductID: "p2", Quantity: 1})

	order, err := f.o.CreateOrderFromCart(ctx, f.buyer, CartOrderRequest{PaymentMode: "COD", AddressID: f.addrID})
	require.NoError(t, err)
	assert.Equal(t, 25.0, order.TotalAmount)
	require.Len(t, order.OrderItems, 2)
	assert.Equal(t, 10.0, order.OrderItems[0].Price)
	assert.Equal(t, 5.0, order.OrderItems[1].Price)
	assert.Equal(t, "p1", order.Product)
	assert.Equal(t, 2, order.Quantity)
	assert.Equal(t, "12, Indiranagar, , Bengaluru, KA, India - 560001", order.ShippingAddress)
	assert.Equal(t, "Ada Lovelace", order.UserName)
	assert.Equal(t, "99999", order.UserPhoneNumber)

	p1, err := f.st.Products.FindByID(ctx, "p1")
	require.NoError(t, err)
	p1.Price = 99
	require.NoError(t, f.st.Products.Save(ctx, p1))

	stored, err := f.st.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, stored.TotalAmount)
	assert.Equal(t, 10.0, stored.OrderItems[0].Price)

	acc := f.account(t)
	assert.Empty(t, acc.CartItems)
	assert.Equal(t, []string{order.ID}, acc.Orders)
	assert.ElementsMatch(t, []string{"p1", "p2"}, acc.BuyingProducts)
	assert.Equal(t, []string{"ada@example.com"}, f.cache.emails)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "p1", f.notifier.sent[0].product)
}

func TestCreateOrderFromEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.o.CreateOrderFromCart(context.Background(), f.buyer, CartOrderRequest{PaymentMode: "COD", AddressID: f.addrID})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Zero(t, f.orderCount(t))
	assert.Empty(t, f.notifier.sent)
}

func TestCreateOrderFromCartMissingProductLeavesCart(t *testing.T) {
	cart := []models.CartLine{{ProductID: "p1", Quantity: 2}, {ProductID: "gone", Quantity: 1}}
	f := newFixture(t, cart...)

	_, err := f.o.CreateOrderFromCart(context.Background(), f.buyer, CartOrderRequest{PaymentMode: "COD", AddressID: f.addrID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, cart, f.account(t).CartItems)
	assert.Empty(t, f.cache.emails)
}

func TestCODForcesPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.CartLine{ProductID: "p2", Quantity: 1})

	single, err := f.o.CreateOrder(ctx, f.buyer, OrderRequest{ProductID: "p1", PaymentMode: "COD", PaymentStatus: models.PaymentSuccess, AddressID: f.addrID})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, single.PaymentStatus)

	cart, err := f.o.CreateOrderFromCart(ctx, f.buyer, CartOrderRequest{PaymentMode: "COD", PaymentStatus: models.PaymentSuccess, AddressID: f.addrID})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, cart.PaymentStatus)

	online, err := f.o.CreateOrder(ctx, f.buyer, OrderRequest{ProductID: "p1", PaymentMode: "ONLINE", PaymentStatus: models.PaymentAwaitingPayment, AddressID: f.addrID})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentAwaitingPayment, online.PaymentStatus)

	lower, err := f.o.CreateOrder(ctx, f.buyer, OrderRequest{ProductID: "p1", PaymentMode: "cod", PaymentStatus: models.PaymentSuccess, AddressID: f.addrID})
	require.NoError(t, err)
	assert.Equal(t, "cod", lower.PaymentMode)
	assert.Equal(t, models.PaymentSuccess, lower.PaymentStatus)
}

func TestCreateOrderSingleProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.CartLine{ProductID: "p1", Quantity: 3}, models.CartLine{ProductID: "p2", Quantity: 1})

	order, err := f.o.CreateOrder(ctx, f.buyer, OrderRequest{ProductID: "p1", PaymentMode: "COD", AddressID: f.addrID, Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, order.Quantity)
	assert.Equal(t, 10.0, order.TotalAmount)

	acc := f.account(t)
	assert.Equal(t, []models.CartLine{{ProductID: "p2", Quantity: 1}}, acc.CartItems)
	assert.Equal(t, []string{"p1"}, acc.BuyingProducts)

	order, err = f.o.CreateOrder(ctx, f.buyer, OrderRequest{ProductID: "p2", PaymentMode: "COD", AddressID: f.addrID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 15.0, order.TotalAmount)
	assert.Len(t, f.account(t).Orders, 2)
}

func TestCreateOrderLookupFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := &models.Address{UserID: "someone-else", City: "X"}
	require.NoError(t, f.st.Addresses.Save(ctx, other))

	cases := map[string]OrderRequest{
		"unknown product": {ProductID: "nope", PaymentMode: "COD", AddressID: f.addrID},
		"unknown address": {ProductID: "p1", PaymentMode: "COD", AddressID: "nope"},
		"foreign address": {ProductID: "p1", PaymentMode: "COD", AddressID: other.ID},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.o.CreateOrder(ctx, f.buyer, req)
			assert.ErrorIs(t, err, apperr.ErrNotFound)
		})
	}

	_, err := f.o.CreateOrder(ctx, models.Identity{Email: "ghost@example.com"}, OrderRequest{ProductID: "p1", AddressID: f.addrID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, f.orderCount(t))
}

func TestUpdatePaymentStatusIsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.o.CreateOrder(ctx, f.buyer, OrderRequest{ProductID: "p1", PaymentMode: "ONLINE", PaymentStatus: models.PaymentAwaitingPayment, AddressID: f.addrID})
	require.NoError(t, err)

	paid, err := f.o.UpdatePaymentStatus(ctx, order.ID, "pay_1", "sig_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, paid.PaymentStatus)
	assert.Equal(t, "pay_1", paid.RazorpayPaymentID)

	again, err := f.o.UpdatePaymentStatus(ctx, order.ID, "pay_1", "sig_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, again.PaymentStatus)

	_, err = f.o.UpdatePaymentStatus(ctx, order.ID, "pay_2", "sig_2")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := f.st.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", stored.RazorpayPaymentID)
	assert.Equal(t, 10.0, stored.TotalAmount)

	_, err = f.o.UpdatePaymentStatus(ctx, "missing", "pay_1", "sig_1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyAndCreateOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	good := GatewayRefs{OrderID: "order_gw1", PaymentID: "pay_1", Signature: pay.Sign(gatewaySecret, "order_gw1", "pay_1")}

	bad := good
	bad.Signature = "deadbeef"
	_, err := f.o.VerifyAndCreateOrder(ctx, f.buyer, VerifyRequest{Gateway: bad, ProductID: "p1", AddressID: f.addrID, Quantity: 2})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Zero(t, f.orderCount(t))

	f.gw.verifyErr = errors.New("connection reset")
	_, err = f.o.VerifyAndCreateOrder(ctx, f.buyer, VerifyRequest{Gateway: good, ProductID: "p1", AddressID: f.addrID, Quantity: 2})
	assert.ErrorIs(t, err, apperr.ErrGateway)
	assert.Zero(t, f.orderCount(t))
	f.gw.verifyErr = nil

	order, err := f.o.VerifyAndCreateOrder(ctx, f.buyer, VerifyRequest{Gateway: good, ProductID: "p1", AddressID: f.addrID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, order.PaymentStatus)
	assert.Equal(t, "ONLINE", order.PaymentMode)
	assert.Equal(t, "order_gw1", order.RazorpayOrderID)
	assert.Equal(t, 20.0, order.TotalAmount)
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.o.CreateOrder(ctx, f.buyer, OrderRequest{
		ProductID: "p1", PaymentMode: "ONLINE", PaymentStatus: models.PaymentAwaitingPayment,
		AddressID: f.addrID, Gateway: GatewayRefs{OrderID: "order_gw1"},
	})
	require.NoError(t, err)
	sig := pay.Sign(gatewaySecret, "order_gw1", "pay_1")

	_, err = f.o.ConfirmPayment(ctx, models.Identity{AccountID: "intruder"}, order.ID, "pay_1", sig)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.o.ConfirmPayment(ctx, f.buyer, order.ID, "pay_1", "forged")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	paid, err := f.o.ConfirmPayment(ctx, f.buyer, order.ID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, paid.PaymentStatus)
}

func TestCreateGatewayOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.CartLine{ProductID: "p1", Quantity: 2}, models.CartLine{ProductID: "p2", Quantity: 1})

	res, err := f.o.CreateGatewayOrder(ctx, "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), res.Amount)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "rzp_test", res.Key)

	res, err = f.o.CreateCartGatewayOrder(ctx, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), res.Amount)

	_, err = f.o.CreateGatewayOrder(ctx, "nope", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type failingAccounts struct {
	store.AccountStore
	fail bool
}

func (a *failingAccounts) Save(ctx context.Context, acc *models.Account) error {
	if a.fail {
		return apperr.Internal(errors.New("write timeout"))
	}
	return a.AccountStore.Save(ctx, acc)
}

func TestBuyerWriteFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	cart := []models.CartLine{{ProductID: "p1", Quantity: 1}}
	f := newFixture(t, cart...)
	fa := &failingAccounts{AccountStore: f.st.Accounts, fail: true}
	f.o.accounts = fa

	_, err := f.o.CreateOrderFromCart(ctx, f.buyer, CartOrderRequest{PaymentMode: "COD", AddressID: f.addrID})
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Equal(t, 1, f.orderCount(t))
	assert.Equal(t, cart, f.account(t).CartItems)
	assert.Empty(t, f.notifier.sent)
}
