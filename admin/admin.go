// Package admin backs the ADMIN-only account and order listings.
package admin

import (
	"context"
	"log"
	"net/http"
	"time"

	"shophub/models"
	"shophub/rdx"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

type Console struct {
	accounts store.AccountStore
	orders   store.OrderStore
	cache    rdx.Invalidator
}

func NewConsole(accounts store.AccountStore, orders store.OrderStore, cache rdx.Invalidator) *Console {
	return &Console{accounts: accounts, orders: orders, cache: cache}
}

// Users lists every account without credentials.
func (c *Console) Users(ctx context.Context) ([]models.AccountView, error) {
	all, err := c.accounts.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.AccountView, 0, len(all))
	for i := range all {
		views = append(views, all[i].View())
	}
	return views, nil
}

// DeleteUser removes the account. Its orders stay, since they carry their
// own copy of the buyer's name and address.
func (c *Console) DeleteUser(ctx context.Context, id string) error {
	acc, err := c.accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.accounts.Delete(ctx, id); err != nil {
		return err
	}
	rdx.Evict(ctx, c.cache, acc.Email)
	log.Printf("[Admin] deleted account %s (%s)", acc.ID, acc.Email)
	return nil
}

func (c *Console) Orders(ctx context.Context) ([]models.Order, error) {
	return c.orders.FindAll(ctx)
}

func (c *Console) HandleUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	users, err := c.Users(ctx)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, utils.Paginate(users, utils.ParseQueryOptions(r)), "Users fetched")
}

func (c *Console) HandleDeleteUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := c.DeleteUser(ctx, ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, nil, "User deleted")
}

func (c *Console) HandleOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orders, err := c.Orders(ctx)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, utils.Paginate(orders, utils.ParseQueryOptions(r)), "Orders fetched")
}
