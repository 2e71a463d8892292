package checkout

import (
	"context"
	"net/http"
	"time"

	"shophub/models"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

type orderBody struct {
	PaymentStatus     string `json:"payment_status"`
	PaymentMode       string `json:"payment_mode"`
	Address           string `json:"address"`
	Quantity          int    `json:"quantity"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	PaymentID         string `json:"payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (b orderBody) refs() GatewayRefs {
	return GatewayRefs{OrderID: b.RazorpayOrderID, PaymentID: b.PaymentID, Signature: b.RazorpaySignature}
}

type verifyBody struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	ProductID         string `json:"product_id"`
	AddressID         string `json:"address_id"`
	Quantity          int    `json:"quantity"`
}

type gatewayOrderBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type confirmBody struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (o *Orchestrator) HandleCreateOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var body orderBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	id, _ := utils.IdentityFromRequest(r)
	order, err := o.CreateOrder(ctx, id, OrderRequest{
		ProductID:     ps.ByName("id"),
		PaymentStatus: models.PaymentStatus(body.PaymentStatus),
		PaymentMode:   body.PaymentMode,
		AddressID:     body.Address,
		Quantity:      body.Quantity,
		Gateway:       body.refs(),
	})
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, order, "Order created successfully")
}

func (o *Orchestrator) HandleCreateOrderFromCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var body orderBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	id, _ := utils.IdentityFromRequest(r)
	order, err := o.CreateOrderFromCart(ctx, id, CartOrderRequest{
		PaymentStatus: models.PaymentStatus(body.PaymentStatus),
		PaymentMode:   body.PaymentMode,
		AddressID:     body.Address,
		Gateway:       body.refs(),
	})
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, order, "Order created from cart successfully")
}

// HandleCreateGatewayOrder prices one product, or the whole cart when
// product_id is empty.
func (o *Orchestrator) HandleCreateGatewayOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var body gatewayOrderBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	var (
		res *GatewayOrderResult
		err error
	)
	if body.ProductID == "" {
		id, _ := utils.IdentityFromRequest(r)
		res, err = o.CreateCartGatewayOrder(ctx, id)
	} else {
		res, err = o.CreateGatewayOrder(ctx, body.ProductID, body.Quantity)
	}
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, res, "Payment order created")
}

func (o *Orchestrator) HandleVerify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var body verifyBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	id, _ := utils.IdentityFromRequest(r)
	order, err := o.VerifyAndCreateOrder(ctx, id, VerifyRequest{
		Gateway:   GatewayRefs{OrderID: body.RazorpayOrderID, PaymentID: body.RazorpayPaymentID, Signature: body.RazorpaySignature},
		ProductID: body.ProductID,
		AddressID: body.AddressID,
		Quantity:  body.Quantity,
	})
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, order, "Payment verified and order created")
}

func (o *Orchestrator) HandleConfirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var body confirmBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	id, _ := utils.IdentityFromRequest(r)
	order, err := o.ConfirmPayment(ctx, id, ps.ByName("orderId"), body.RazorpayPaymentID, body.RazorpaySignature)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, order, "Payment confirmed")
}
