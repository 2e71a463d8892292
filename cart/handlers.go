package cart

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"shophub/apperr"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

func (c *CartStore) HandleAdd(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, _ := utils.IdentityFromRequest(r)
	res, err := c.Add(ctx, id, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, res, res.Message)
}

// HandleUpdate reads the quantity from the JSON body, or from ?quantity=.
func (c *CartStore) HandleUpdate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Quantity *int `json:"quantity"`
	}
	qty := 0
	if q := r.URL.Query().Get("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			utils.RespondWithAppError(w, r, apperr.InvalidArgument("quantity must be a number"))
			return
		}
		qty = n
	} else {
		if err := utils.DecodeJSON(r, &body); err != nil || body.Quantity == nil {
			utils.RespondWithAppError(w, r, apperr.InvalidArgument("quantity is required"))
			return
		}
		qty = *body.Quantity
	}

	id, _ := utils.IdentityFromRequest(r)
	res, err := c.UpdateQuantity(ctx, id, ps.ByName("id"), qty)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, res, res.Message)
}

func (c *CartStore) HandleRemove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, _ := utils.IdentityFromRequest(r)
	res, err := c.Remove(ctx, id, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, res, res.Message)
}
