package server

const (
	RouteAuthDevice  = "/v1/auth/device"
	RouteAuthToken   = "/v1/auth/token"
	RouteAuthRefresh = "/v1/auth/refresh"

	RouteDebugDecode       = "/v1/debug/decode"
	RouteDebugDecodeBundle = "/v1/debug/decode/bundle"
	RouteDebugReceipt      = "/v1/debug/receipt"

	RouteIdentityNames = "/v1/identity/names"
	RouteTitles        = "/v1/titles"

	RouteWishlist          = "/v1/wishlist"
	RouteEntitlements      = "/v1/entitlements"
	RouteMarketplaceEvents = "/v1/marketplace/events"

	RouteMetrics = "/metrics"
	RouteLivez   = "/livez"
)
