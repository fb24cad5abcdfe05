package local

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/bedrocktools/mcgate/internal/apierr"
)

// Identity is the verified subject of a local API token.
type Identity struct {
	XUID     string
	Gamertag string
}

// Inspector verifies locally issued API tokens.
type Inspector struct {
	secret []byte
}

func NewInspector(signingSecret string) *Inspector {
	return &Inspector{secret: []byte(signingSecret)}
}

// Introspect verifies the signature and expiry of an API token and extracts
// the caller's identity. Any verification failure maps to Unauthenticated.
func (i *Inspector) Introspect(rawToken string) (*Identity, error) {
	token, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }))
	if err != nil || !token.Valid {
		return nil, apierr.Wrap(apierr.KindUnauthenticated, "invalid API token", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, apierr.New(apierr.KindUnauthenticated, "invalid API token claims")
	}

	xuid, _ := claims["xuid"].(string)
	if xuid == "" {
		xuid, _ = claims["sub"].(string)
	}
	gamertag, _ := claims["gtg"].(string)

	return &Identity{XUID: xuid, Gamertag: gamertag}, nil
}
