// Package playfab is the PlayFab client: Xbox-token sign-in and entity
// token issuance for the configured title.
package playfab

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bedrocktools/mcgate/upstream/transport"
)

const upstreamName = "playfab"

// EntityTypeMasterPlayerAccount scopes an entity token to the master player
// account rather than the title-local player.
const EntityTypeMasterPlayerAccount = "master_player_account"

// Client talks to one PlayFab title's API host.
type Client struct {
	BaseURL string

	httpClient *http.Client
	titleID    string
}

func New(httpClient *http.Client, titleID string) *Client {
	return &Client{
		BaseURL:    fmt.Sprintf("https://%s.playfabapi.com", strings.ToLower(titleID)),
		httpClient: httpClient,
		titleID:    titleID,
	}
}

// envelope is PlayFab's uniform response wrapper.
type envelope[T any] struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   T      `json:"data"`
}

// LoginResult is the session credential a successful Xbox login yields.
type LoginResult struct {
	SessionTicket string `json:"SessionTicket"`
	PlayFabID     string `json:"PlayFabId"`
	NewlyCreated  bool   `json:"NewlyCreated"`
}

// Entity identifies the principal an entity token is scoped to.
type Entity struct {
	ID   string `json:"Id"`
	Type string `json:"Type"`
}

// EntityTokenResult is an issued entity token with its scope.
type EntityTokenResult struct {
	EntityToken     string  `json:"EntityToken"`
	TokenExpiration string  `json:"TokenExpiration"`
	Entity          *Entity `json:"Entity,omitempty"`
}

// LoginWithXbox signs the holder of an Xbox composite header into the
// title, creating the account on first contact.
func (c *Client) LoginWithXbox(ctx context.Context, xblHeader string) (*LoginResult, error) {
	body := map[string]any{
		"CreateAccount": true,
		"TitleId":       c.titleID,
		"XboxToken":     xblHeader,
	}

	var resp envelope[LoginResult]
	_, err := transport.DoJSON(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodPost,
		URL:    c.BaseURL + "/Client/LoginWithXbox",
		Body:   body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// EntityToken requests an entity token. A nil entity yields the session's
// default (title player) scope; pass a master-player-account entity for the
// wider scope. An existing session ticket travels in X-Authorization.
func (c *Client) EntityToken(ctx context.Context, sessionTicket string, entity *Entity) (*EntityTokenResult, error) {
	body := map[string]any{}
	if entity != nil {
		body["Entity"] = entity
	}

	var resp envelope[EntityTokenResult]
	_, err := transport.DoJSON(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodPost,
		URL:    c.BaseURL + "/Authentication/GetEntityToken",
		Header: map[string]string{"X-Authorization": sessionTicket},
		Body:   body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
