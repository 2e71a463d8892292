package globals

// Context keys
type ContextKey string

const IdentityKey ContextKey = "identity"

// TokenCookie carries the same bearer token as the Authorization header.
const TokenCookie = "jwtToken"

// TokenCookieMaxAge is 7 days, in seconds.
const TokenCookieMaxAge = 7 * 24 * 60 * 60

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	PaymentModeCOD    = "COD"
	PaymentModeOnline = "ONLINE"
)

const (
	DefaultCountry  = "India"
	DefaultCurrency = "INR"
)

// DetailsCachePrefix namespaces the per-account details view in Redis.
const DetailsCachePrefix = "userDetails_v2:"
