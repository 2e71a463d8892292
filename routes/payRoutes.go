package routes

import (
	"shophub/middleware"

	"github.com/julienschmidt/httprouter"
)

// AddCheckoutRoutes wires order creation and the payment gateway flow.
// Order-creating routes honour Idempotency-Key.
func AddCheckoutRoutes(router *httprouter.Router, d *Deps) {
	idempotent := middleware.Chain(middleware.RequireAuth, d.Idempotency.Wrap)

	router.POST("/api/v1/user/create-order/:id", idempotent(d.Checkout.HandleCreateOrder))
	router.POST("/api/v1/user/create-order-cart", idempotent(d.Checkout.HandleCreateOrderFromCart))

	router.POST("/api/v1/payment/create-order", userOnly(d.Checkout.HandleCreateGatewayOrder))
	router.POST("/api/v1/payment/verify", idempotent(d.Checkout.HandleVerify))
	router.POST("/api/v1/payment/confirm/:orderId", userOnly(d.Checkout.HandleConfirm))
}
