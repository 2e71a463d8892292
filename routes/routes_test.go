package routes

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shophub/address"
	"shophub/apperr"
	"shophub/admin"
	"shophub/auth"
	"shophub/cart"
	"shophub/checkout"
	"shophub/middleware"
	"shophub/models"
	"shophub/mq"
	"shophub/pay"
	"shophub/products"
	"shophub/profile"
	"shophub/ratelim"
	"shophub/rdx"
	"shophub/store"
	"shophub/tickets"
	"shophub/userdata"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct{}

func (stubGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*models.GatewayOrder, error) {
	return &models.GatewayOrder{ID: "order_1", Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (stubGateway) VerifySignature(_ context.Context, orderID, paymentID, signature string) (bool, error) {
	return pay.Sign("secret", orderID, paymentID) == signature, nil
}

func (stubGateway) KeyID() string { return "rzp_test" }

type quietNotifier struct{}

func (quietNotifier) SendWelcome(string, string) {}
func (quietNotifier) SendOrderConfirmation(string, string, models.Order, models.Product, models.Address) {
}

var _ mq.Notifier = quietNotifier{}

type app struct {
	t       *testing.T
	handler http.Handler
	st      *store.Stores
}

func newApp(t *testing.T) *app {
	t.Helper()
	st := store.NewMemory()
	cache := rdx.NewMemoryCache()
	tokens := auth.NewJWTService([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	uploader := noUploads{}
	orchestrator := checkout.New(st, stubGateway{}, quietNotifier{}, cache)

	d := &Deps{
		Auth:        auth.NewService(st.Accounts, tokens, quietNotifier{}, cache),
		Cart:        cart.NewCartStore(st.Accounts, st.Products, cache),
		Addresses:   address.NewBook(st.Accounts, st.Addresses, cache),
		Checkout:    orchestrator,
		Idempotency: pay.NewIdempotency(st.Idempotency),
		Details:     userdata.NewDetails(st, cache),
		Profile:     profile.NewEditor(st.Accounts, uploader, cache),
		Catalog:     products.NewCatalog(st.Products, uploader),
		Admin:       admin.NewConsole(st.Accounts, st.Orders, cache),
		Receipts:    tickets.NewReceipts(orchestrator, st.Products, []byte("receipt")),
		UploadDir:   t.TempDir(),
	}
	router := httprouter.New()
	RoutesWrapper(router, d, ratelim.NewRateLimiter(600, 100))

	require.NoError(t, st.Products.Save(context.Background(), &models.Product{ID: "p1", ProductName: "Lamp", Price: 10}))
	require.NoError(t, st.Products.Save(context.Background(), &models.Product{ID: "p2", ProductName: "Mug", Price: 5}))

	return &app{t: t, handler: middleware.NewGate(tokens, st.Accounts).Handler(router), st: st}
}

func (a *app) do(method, path, token, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func data[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func TestCartCheckoutFlow(t *testing.T) {
	a := newApp(t)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/user/user-details", "", "").Code)

	rec := a.do(http.MethodPost, "/api/v1/public/register", "", `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/v1/public/login", "", `{"email":"ada@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := data[auth.LoginResult](t, rec).Token
	require.NotEmpty(t, token)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/user/add-to-cart/p1", token, "").Code)
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/api/v1/user/update-cart/p1", token, `{"quantity":2}`).Code)
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/user/add-to-cart/p2", token, "").Code)
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/api/v1/user/add-to-cart/p2", token, "").Code)

	rec = a.do(http.MethodPost, "/api/v1/user/add-address", token, `{"phone_number":"99999","pin_code":"411001","city":"Pune","house_no":"12","area":"MG Road"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	addrID := data[models.Address](t, rec).ID

	body := `{"payment_mode":"COD","address":"` + addrID + `"}`
	first := a.do(http.MethodPost, "/api/v1/user/create-order-cart", token, body, "Idempotency-Key", "checkout-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	order := data[models.Order](t, first)
	assert.Equal(t, 25.0, order.TotalAmount)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)

	replay := a.do(http.MethodPost, "/api/v1/user/create-order-cart", token, body, "Idempotency-Key", "checkout-1")
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	orders, err := a.st.Orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	rec = a.do(http.MethodGet, "/api/v1/user/user-details", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	details := data[userdata.AccountDetails](t, rec)
	assert.Empty(t, details.Cart)
	require.Len(t, details.Orders, 1)
	assert.Equal(t, order.ID, details.Orders[0].ID)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/v1/admin/get-all-users", token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/admin/get-all-users", "", "").Code)

	rec = a.do(http.MethodGet, "/api/v1/user/orders/"+order.ID+"/receipt", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestPublicCatalog(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodGet, "/api/v1/public/search?keyword=lamp", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	found := data[[]models.Product](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, "p1", found[0].ID)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/product/get-by-id/p2", "", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/product/get-by-id/nope", "", "").Code)
}

type noUploads struct{}

func (noUploads) Upload(multipart.File, *multipart.FileHeader, string) (string, error) {
	return "", apperr.InvalidArgument("uploads disabled")
}
