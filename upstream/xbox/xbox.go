// Package xbox is the Xbox Live client: XBL user tokens, audience-scoped
// XSTS tokens, profile settings and title history.
package xbox

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/upstream/transport"
)

const upstreamName = "xbox"

// Relying-party audiences. An XSTS token is valid only for the single
// audience it was requested for; these are not interchangeable.
const (
	RelyingPartyUserAuth      = "http://auth.xboxlive.com"
	RelyingPartyXboxLive      = "http://xboxlive.com"
	RelyingPartyPlayFabLogin  = "http://playfab.xboxlive.com/"
	RelyingPartyPlayFabRedeem = "https://b980a380.minecraft.playfabapi.com/"
)

// Client talks to the Xbox Live security token and profile services. The
// URL fields default to production; tests point them at stubs.
type Client struct {
	UserAuthURL string
	XSTSURL     string
	ProfileURL  string
	TitleHubURL string

	httpClient *http.Client
}

func New(httpClient *http.Client) *Client {
	return &Client{
		UserAuthURL: "https://user.auth.xboxlive.com",
		XSTSURL:     "https://xsts.auth.xboxlive.com",
		ProfileURL:  "https://profile.xboxlive.com",
		TitleHubURL: "https://titlehub.xboxlive.com",
		httpClient:  httpClient,
	}
}

// TokenResponse is the common shape of user-token and XSTS responses.
type TokenResponse struct {
	IssueInstant  string        `json:"IssueInstant"`
	NotAfter      string        `json:"NotAfter"`
	Token         string        `json:"Token"`
	DisplayClaims DisplayClaims `json:"DisplayClaims"`
}

// DisplayClaims is the xui claims block of a security token response.
type DisplayClaims struct {
	XUI []map[string]string `json:"xui"`
}

// UserClaims extracts {uhs, xuid, gamertag} from the first display-claims
// entry. A missing or empty claims array is a malformed upstream response
// and fails hard.
func (t *TokenResponse) UserClaims() (uhs, xuid, gamertag string, err error) {
	if len(t.DisplayClaims.XUI) == 0 {
		return "", "", "", apierr.New(apierr.KindClient, "xbox token response is missing display claims")
	}
	first := t.DisplayClaims.XUI[0]
	return first["uhs"], first["xid"], first["gtg"], nil
}

// UserToken exchanges a Microsoft access token for an XBL user token.
func (c *Client) UserToken(ctx context.Context, accessToken string) (*TokenResponse, error) {
	body := map[string]any{
		"RelyingParty": RelyingPartyUserAuth,
		"TokenType":    "JWT",
		"Properties": map[string]any{
			"AuthMethod": "RPS",
			"SiteName":   "user.auth.xboxlive.com",
			"RpsTicket":  "d=" + accessToken,
		},
	}

	var token TokenResponse
	_, err := transport.DoJSON(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodPost,
		URL:    c.UserAuthURL + "/user/authenticate",
		Header: map[string]string{"x-xbl-contract-version": "1"},
		Body:   body,
	}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// XSTSToken exchanges an XBL user token for an XSTS token scoped to one
// relying party.
func (c *Client) XSTSToken(ctx context.Context, userToken, relyingParty string) (*TokenResponse, error) {
	body := map[string]any{
		"RelyingParty": relyingParty,
		"TokenType":    "JWT",
		"Properties": map[string]any{
			"SandboxId":  "RETAIL",
			"UserTokens": []string{userToken},
		},
	}

	var token TokenResponse
	_, err := transport.DoJSON(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodPost,
		URL:    c.XSTSURL + "/xsts/authorize",
		Header: map[string]string{"x-xbl-contract-version": "1"},
		Body:   body,
	}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// TitleHistory lists recently played titles. A 404 here means the user has
// no title history, which is a valid empty result, not a failure.
func (c *Client) TitleHistory(ctx context.Context, authHeader, xuid string) ([]Title, error) {
	var result struct {
		Titles []Title `json:"titles"`
	}
	_, err := transport.DoJSON(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/users/xuid(%s)/titles/titlehistory/decoration/achievement,image", c.TitleHubURL, xuid),
		Header: map[string]string{
			"Authorization":          authHeader,
			"x-xbl-contract-version": "2",
		},
	}, &result)
	if err != nil {
		if apierr.IsKind(err, apierr.KindNotFound) {
			return []Title{}, nil
		}
		return nil, err
	}
	return result.Titles, nil
}

// Title is one entry of a user's title history.
type Title struct {
	TitleID      string `json:"titleId"`
	Name         string `json:"name"`
	DisplayImage string `json:"displayImage"`
}
