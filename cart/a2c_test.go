package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shophub/apperr"
	"shophub/models"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type evictions struct{ emails []string }

func (e *evictions) Invalidate(_ context.Context, email string) error {
	e.emails = append(e.emails, email)
	return nil
}

func setup(t *testing.T) (*CartStore, *store.Stores, models.Identity, *evictions) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	acc := &models.Account{Email: "ada@example.com"}
	require.NoError(t, st.Accounts.Save(ctx, acc))
	for _, id := range []string{"p1", "p2"} {
		require.NoError(t, st.Products.Save(ctx, &models.Product{ID: id, ProductName: id, Price: 10}))
	}
	ev := &evictions{}
	return NewCartStore(st.Accounts, st.Products, ev), st, models.Identity{AccountID: acc.ID, Email: acc.Email}, ev
}

func cartOf(t *testing.T, st *store.Stores, id models.Identity) []models.CartLine {
	t.Helper()
	acc, err := st.Accounts.FindByID(context.Background(), id.AccountID)
	require.NoError(t, err)
	return acc.CartItems
}

func TestAddTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	c, st, id, ev := setup(t)

	res, err := c.Add(ctx, id, "p1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartLine{{ProductID: "p1", Quantity: 1}}, res.CartItems)

	_, err = c.Add(ctx, id, "p1")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Len(t, cartOf(t, st, id), 1)
	assert.Equal(t, []string{"ada@example.com"}, ev.emails)
}

func TestAddUnknownProduct(t *testing.T) {
	c, st, id, _ := setup(t)

	_, err := c.Add(context.Background(), id, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, cartOf(t, st, id))
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	c, st, id, _ := setup(t)
	_, err := c.Add(ctx, id, "p1")
	require.NoError(t, err)

	for _, qty := range []int{0, -1, -50} {
		_, err := c.UpdateQuantity(ctx, id, "p1", qty)
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "qty %d", qty)
	}
	assert.Equal(t, []models.CartLine{{ProductID: "p1", Quantity: 1}}, cartOf(t, st, id))

	_, err = c.UpdateQuantity(ctx, id, "p2", 3)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	res, err := c.UpdateQuantity(ctx, id, "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, res.CartItems[0].Quantity)
	assert.Equal(t, 4, cartOf(t, st, id)[0].Quantity)
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, st, id, _ := setup(t)
	_, err := c.Add(ctx, id, "p1")
	require.NoError(t, err)
	_, err = c.Add(ctx, id, "p2")
	require.NoError(t, err)

	_, err = c.Remove(ctx, id, "p1")
	require.NoError(t, err)
	_, err = c.Remove(ctx, id, "p1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartLine{{ProductID: "p2", Quantity: 1}}, cartOf(t, st, id))
}

func TestHandleUpdateRejectsBadQuantity(t *testing.T) {
	c, _, id, _ := setup(t)
	_, err := c.Add(context.Background(), id, "p1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/user/update-cart/p1", strings.NewReader(`{"quantity":0}`))
	req = req.WithContext(utils.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	c.HandleUpdate(rec, req, httprouter.Params{{Key: "id", Value: "p1"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity must be at least 1")
}
