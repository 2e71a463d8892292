package routes

import (
	"net/http"

	"shophub/address"
	"shophub/admin"
	"shophub/auth"
	"shophub/cart"
	"shophub/checkout"
	"shophub/globals"
	"shophub/middleware"
	"shophub/pay"
	"shophub/products"
	"shophub/profile"
	"shophub/ratelim"
	"shophub/tickets"
	"shophub/userdata"

	"github.com/julienschmidt/httprouter"
)

// Deps are the handlers' owners, built once in main.
type Deps struct {
	Auth        *auth.Service
	Google      *auth.GoogleBridge // nil when OAuth is not configured
	Cart        *cart.CartStore
	Addresses   *address.Book
	Checkout    *checkout.Orchestrator
	Idempotency *pay.Idempotency
	Details     *userdata.Details
	Profile     *profile.Editor
	Catalog     *products.Catalog
	Admin       *admin.Console
	Receipts    *tickets.Receipts
	UploadDir   string
}

var (
	userOnly  = middleware.Chain(middleware.RequireAuth)
	adminOnly = middleware.Chain(middleware.RequireRoles(globals.RoleAdmin))
)

func AddStaticRoutes(router *httprouter.Router, d *Deps) {
	router.ServeFiles("/static/uploads/*filepath", http.Dir(d.UploadDir))
}

func AddAuthRoutes(router *httprouter.Router, d *Deps, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/v1/public/register", rateLimiter.Limit(d.Auth.HandleRegister))
	router.POST("/api/v1/public/login", rateLimiter.Limit(d.Auth.HandleLogin))
	router.POST("/api/v1/public/admin-login", rateLimiter.Limit(d.Auth.HandleAdminLogin))
	router.POST("/api/v1/auth/logout", userOnly(d.Auth.HandleLogout))

	if d.Google != nil {
		router.GET("/oauth2/authorization/google", d.Google.Start)
		router.GET("/login/oauth2/code/google", d.Google.Callback)
	}
}

func AddProductRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/v1/public/get-all-products", d.Catalog.HandleList)
	router.GET("/api/v1/public/search", d.Catalog.HandleSearch)
	router.GET("/api/v1/product/get-by-id/:id", d.Catalog.HandleGet)
}

func AddUserRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/v1/user/user-details", userOnly(d.Details.HandleUserDetails))

	router.POST("/api/v1/user/add-to-cart/:id", userOnly(d.Cart.HandleAdd))
	router.PUT("/api/v1/user/update-cart/:id", userOnly(d.Cart.HandleUpdate))
	router.POST("/api/v1/user/delete-cart/:id", userOnly(d.Cart.HandleRemove))

	router.POST("/api/v1/user/add-address", userOnly(d.Addresses.HandleAdd))
	router.PUT("/api/v1/user/update-profile", userOnly(d.Profile.HandleUpdate))
	router.POST("/api/v1/user/upload-profile-image", userOnly(d.Profile.HandleUploadImage))
	router.GET("/api/v1/user/orders/:id/receipt", userOnly(d.Receipts.HandleReceipt))
}

func AddAdminRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/v1/admin/get-all-users", adminOnly(d.Admin.HandleUsers))
	router.POST("/api/v1/admin/delete-user/:id", adminOnly(d.Admin.HandleDeleteUser))
	router.GET("/api/v1/admin/get-all-order", adminOnly(d.Admin.HandleOrders))

	router.GET("/api/v1/admin/get-all-products", adminOnly(d.Catalog.HandleList))
	router.POST("/api/v1/admin/add-product", adminOnly(d.Catalog.HandleAdd))
	router.PUT("/api/v1/admin/update-product/:id", adminOnly(d.Catalog.HandleUpdate))
	router.DELETE("/api/v1/admin/delete/:id", adminOnly(d.Catalog.HandleDelete))
}
