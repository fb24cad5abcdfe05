// Package marketplace is the Minecraft services client: multiplayer
// authorization, entitlements, the wishlist with its optimistic-concurrency
// version stamps, and marketplace message events.
package marketplace

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bedrocktools/mcgate/upstream/transport"
)

const upstreamName = "minecraft"

// Client talks to the Minecraft franchise services.
type Client struct {
	AuthURL    string
	ServiceURL string

	httpClient *http.Client
	versions   *VersionCache
}

func New(httpClient *http.Client) *Client {
	return &Client{
		AuthURL:    "https://authorization.franchise.minecraft-services.net",
		ServiceURL: "https://store.franchise.minecraft-services.net",
		httpClient: httpClient,
		versions:   NewVersionCache(),
	}
}

// Versions exposes the wishlist version-stamp cache.
func (c *Client) Versions() *VersionCache {
	return c.versions
}

// MultiplayerAuth is an issued Minecraft multiplayer authorization header
// with its validity window.
type MultiplayerAuth struct {
	AuthorizationHeader string `json:"authorizationHeader"`
	ValidUntil          string `json:"validUntil"`
}

// MultiplayerToken exchanges a PlayFab session ticket for the Minecraft
// multiplayer authorization header ("MCToken <value>").
func (c *Client) MultiplayerToken(ctx context.Context, sessionTicket string) (*MultiplayerAuth, error) {
	body := map[string]any{
		"user": map[string]any{
			"language":  "en",
			"token":     sessionTicket,
			"tokenType": "PlayFab",
		},
	}

	var resp struct {
		Result MultiplayerAuth `json:"result"`
	}
	_, err := transport.DoJSON(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodPost,
		URL:    c.AuthURL + "/api/v1.0/multiplayer/session/start",
		Body:   body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// Entitlements returns the caller's raw marketplace entitlement records.
func (c *Client) Entitlements(ctx context.Context, mcToken string) (json.RawMessage, error) {
	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	_, err := transport.DoJSON(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodGet,
		URL:    c.ServiceURL + "/api/v1.0/player/entitlements",
		Header: map[string]string{"Authorization": mcToken},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}
