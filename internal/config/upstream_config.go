package config

import (
	"strconv"
	"time"
)

type UpstreamConfig interface {
	GetMSAClientID() string
	GetMSAIssuer() string
	GetMSAScope() string
	GetPlayFabTitleID() string
	GetUpstreamTimeout() time.Duration
	GetResolverRatePerSecond() int
}

type Upstream struct{}

var _ UpstreamConfig = Upstream{}

// GetMSAClientID returns the default Microsoft application (client) id used
// when an inbound request does not carry its own.
func (Upstream) GetMSAClientID() string {
	return GetEnv("MSA_CLIENT_ID", "")
}

// GetMSAIssuer is the OIDC issuer used to discover live authorization/token
// endpoints at startup. Discovery failure falls back to the static
// consumers-tenant endpoints.
func (Upstream) GetMSAIssuer() string {
	return GetEnv("MSA_ISSUER", "https://login.microsoftonline.com/consumers/v2.0")
}

func (Upstream) GetMSAScope() string {
	return GetEnv("MSA_SCOPE", "XboxLive.signin offline_access")
}

// GetPlayFabTitleID is the PlayFab title the gateway signs sessions into.
// 20CA2 is the Minecraft title.
func (Upstream) GetPlayFabTitleID() string {
	return GetEnv("PLAYFAB_TITLE_ID", "20CA2")
}

// GetUpstreamTimeout is the shared per-call timeout for every upstream
// client. Calls exceeding it fail as upstream faults.
func (Upstream) GetUpstreamTimeout() time.Duration {
	seconds, err := strconv.Atoi(GetEnv("UPSTREAM_TIMEOUT_SEC", "15"))
	if err != nil || seconds <= 0 {
		seconds = 15
	}
	return time.Duration(seconds) * time.Second
}

// GetResolverRatePerSecond paces the identity resolver's single-item
// fallback lookups so a large batch cannot hammer the profile endpoint.
func (Upstream) GetResolverRatePerSecond() int {
	n, err := strconv.Atoi(GetEnv("RESOLVER_RATE_PER_SEC", "16"))
	if err != nil || n <= 0 {
		n = 16
	}
	return n
}
