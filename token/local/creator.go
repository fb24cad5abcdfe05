// Package local mints and verifies the gateway's own API tokens. These are
// the only tokens this service signs; everything else in the credential
// bundle is issued upstream.
package local

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Creator signs short-lived API tokens embedding the caller's Xbox identity.
type Creator struct {
	issuer string
	secret []byte
	expiry time.Duration
}

func NewCreator(issuer, signingSecret string, expiry time.Duration) *Creator {
	return &Creator{
		issuer: issuer,
		secret: []byte(signingSecret),
		expiry: expiry,
	}
}

// Create signs an API token for the given Xbox identity.
func (c *Creator) Create(xuid, gamertag string) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss":  c.issuer,
		"sub":  xuid,
		"xuid": xuid,
		"gtg":  gamertag,
		"iat":  now.Unix(),
		"exp":  now.Add(c.expiry).Unix(),
		"jti":  uuid.New().String(),
	}

	signedToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign API token: %w", err)
	}
	return signedToken, nil
}
