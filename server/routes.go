package server

import "github.com/bedrocktools/mcgate/internal/obs"

func (s *Server) initRoutes() {
	// Sign-in flow. The token route is polled by clients while the user
	// completes the browser step, so it shares the strict limiter profile.
	s.RegisterRouteHandler("POST "+RouteAuthDevice, ChainMiddleware(s.StartDeviceLogin(), s.AuthMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthToken, ChainMiddleware(s.CompleteLogin(), s.AuthMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshLogin(), s.AuthMiddleware()...))

	// Diagnostics. Decode-only, no trust decisions.
	s.RegisterRouteHandler("POST "+RouteDebugDecode, ChainMiddleware(s.DecodeTokens(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteDebugDecodeBundle, ChainMiddleware(s.DecodeBundle(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteDebugReceipt, ChainMiddleware(s.ReceiptCreator(), s.APIMiddleware()...))

	// Authenticated data routes.
	s.RegisterRouteHandler("POST "+RouteIdentityNames, ChainMiddleware(s.ResolveNames(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteTitles, ChainMiddleware(s.TitleHistory(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWishlist, ChainMiddleware(s.GetWishlist(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteWishlist, ChainMiddleware(s.MutateWishlist(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteEntitlements, ChainMiddleware(s.Entitlements(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteMarketplaceEvents, ChainMiddleware(s.MarketplaceEvents(), s.ProtectedMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, obs.Handler())
	s.RegisterRouteFunc("GET "+RouteLivez, s.Livez())
}
