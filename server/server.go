package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bedrocktools/mcgate/chain"
	"github.com/bedrocktools/mcgate/identity"
	"github.com/bedrocktools/mcgate/internal/cache"
	"github.com/bedrocktools/mcgate/internal/config"
	"github.com/bedrocktools/mcgate/internal/obs"
	"github.com/bedrocktools/mcgate/token/local"
	"github.com/bedrocktools/mcgate/upstream/marketplace"
	"github.com/bedrocktools/mcgate/upstream/msa"
	"github.com/bedrocktools/mcgate/upstream/playfab"
	"github.com/bedrocktools/mcgate/upstream/transport"
	"github.com/bedrocktools/mcgate/upstream/xbox"
)

// titleCacheTTL bounds how stale a cached title-history read may be.
const titleCacheTTL = 2 * time.Minute

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config

	chain     *chain.Chain
	resolver  *identity.Resolver
	xbox      *xbox.Client
	market    *marketplace.Client
	inspector *local.Inspector

	titleCache *cache.TTL[[]xbox.Title]
}

func New(cfg config.Config) *Server {
	obs.Init()

	httpClient := transport.NewHTTPClient(cfg.GetUpstreamTimeout())

	msaClient := msa.New(httpClient, cfg.GetMSAScope())
	xboxClient := xbox.New(httpClient)
	playfabClient := playfab.New(httpClient, cfg.GetPlayFabTitleID())
	marketClient := marketplace.New(httpClient)
	signer := local.NewCreator(cfg.GetBaseURL(), cfg.GetTokenSigningSecret(), cfg.GetAPITokenExpiry())

	// Endpoint discovery is best-effort; a slow or offline issuer must not
	// block startup.
	discoverCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	msaClient.Discover(discoverCtx, cfg.GetMSAIssuer())

	s := &Server{
		env:        cfg.GetEnv(),
		mux:        http.NewServeMux(),
		config:     cfg,
		chain:      chain.New(msaClient, xboxClient, playfabClient, marketClient, signer),
		resolver:   identity.New(xboxClient, cfg.GetResolverRatePerSecond()),
		xbox:       xboxClient,
		market:     marketClient,
		inspector:  local.NewInspector(cfg.GetTokenSigningSecret()),
		titleCache: cache.NewTTL[[]xbox.Title](256),
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
