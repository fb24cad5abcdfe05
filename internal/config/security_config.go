package config

import (
	"strconv"
	"time"
)

type SecurityConfig interface {
	GetTokenSigningSecret() string
	GetAPITokenExpiry() time.Duration
	GetEnableRateLimiting() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetTokenSigningSecret is the HS256 secret for locally issued API tokens.
// The development default must never reach production.
func (Security) GetTokenSigningSecret() string {
	return GetEnv("TOKEN_SIGNING_SECRET", "dev-secret-do-not-deploy")
}

func (Security) GetAPITokenExpiry() time.Duration {
	minutes, err := strconv.Atoi(GetEnv("API_TOKEN_EXPIRY_MIN", "240"))
	if err != nil || minutes <= 0 {
		minutes = 240
	}
	return time.Duration(minutes) * time.Minute
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnv("ENABLE_RATE_LIMITING", "true") == "true"
}
