package routes

import (
	"shophub/ratelim"

	"github.com/julienschmidt/httprouter"
)

func RoutesWrapper(router *httprouter.Router, d *Deps, rateLimiter *ratelim.RateLimiter) {
	AddStaticRoutes(router, d)
	AddAuthRoutes(router, d, rateLimiter)
	AddProductRoutes(router, d)
	AddUserRoutes(router, d)
	AddCheckoutRoutes(router, d)
	AddAdminRoutes(router, d)
}
