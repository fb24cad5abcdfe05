// Package msa is the Microsoft account client: device-code sign-in start,
// one-shot device-code exchange, and refresh-token exchange against the
// consumers tenant.
package msa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/upstream/transport"
)

const upstreamName = "microsoft"

// Static consumers-tenant endpoints, used when OIDC discovery is disabled
// or unreachable at startup.
const (
	defaultAuthURL       = "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize"
	defaultTokenURL      = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	defaultDeviceAuthURL = "https://login.microsoftonline.com/consumers/oauth2/v2.0/devicecode"
)

const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// DeviceGrant is the provider's answer to a sign-in start. It is consumed
// exactly once and expires after ExpiresIn seconds.
type DeviceGrant struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// Token is a Microsoft access/refresh token pair.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Client talks to the Microsoft identity platform.
type Client struct {
	httpClient    *http.Client
	scope         string
	endpoint      oauth2.Endpoint
	deviceAuthURL string
	tokenURL      string
}

func New(httpClient *http.Client, scope string) *Client {
	return &Client{
		httpClient: httpClient,
		scope:      scope,
		endpoint: oauth2.Endpoint{
			AuthURL:       defaultAuthURL,
			TokenURL:      defaultTokenURL,
			DeviceAuthURL: defaultDeviceAuthURL,
		},
		deviceAuthURL: defaultDeviceAuthURL,
		tokenURL:      defaultTokenURL,
	}
}

// Discover replaces the static endpoints with the issuer's advertised ones.
// Discovery failure is logged and the static endpoints stay in force;
// Microsoft moving its endpoints must not stop the gateway from booting.
func (c *Client) Discover(ctx context.Context, issuer string) {
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), issuer)
	if err != nil {
		log.Warn().Err(err).Str("issuer", issuer).Msg("OIDC discovery failed, using static endpoints")
		return
	}

	endpoint := provider.Endpoint()
	var extra struct {
		DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint"`
	}
	if err := provider.Claims(&extra); err == nil && extra.DeviceAuthorizationEndpoint != "" {
		endpoint.DeviceAuthURL = extra.DeviceAuthorizationEndpoint
		c.deviceAuthURL = extra.DeviceAuthorizationEndpoint
	}
	c.endpoint = endpoint
	c.tokenURL = endpoint.TokenURL
	log.Info().Str("issuer", issuer).Msg("discovered Microsoft endpoints")
}

// SetEndpointURLs points the client at different token and device-auth
// endpoints. Tests use it to target a stub server.
func (c *Client) SetEndpointURLs(tokenURL, deviceAuthURL string) {
	if tokenURL != "" {
		c.tokenURL = tokenURL
		c.endpoint.TokenURL = tokenURL
	}
	if deviceAuthURL != "" {
		c.deviceAuthURL = deviceAuthURL
		c.endpoint.DeviceAuthURL = deviceAuthURL
	}
}

func (c *Client) config(clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Endpoint: c.endpoint,
		Scopes:   strings.Fields(c.scope),
	}
}

// StartDeviceLogin requests a device grant for the given application id.
func (c *Client) StartDeviceLogin(ctx context.Context, clientID string) (*DeviceGrant, error) {
	if clientID == "" {
		return nil, apierr.New(apierr.KindClient, "client id is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	grant, err := c.config(clientID).DeviceAuth(ctx)
	if err != nil {
		return nil, mapOAuth2Error(err)
	}

	expiresIn := int(time.Until(grant.Expiry).Seconds())
	if grant.Expiry.IsZero() {
		expiresIn = 900
	}
	return &DeviceGrant{
		DeviceCode:      grant.DeviceCode,
		UserCode:        grant.UserCode,
		VerificationURL: grant.VerificationURI,
		ExpiresIn:       expiresIn,
		Interval:        int(grant.Interval),
	}, nil
}

// ExchangeDeviceCode attempts exactly one device-code exchange. The caller
// owns the polling loop; "authorization pending" surfaces as the retryable
// Pending result, never as a terminal failure.
func (c *Client) ExchangeDeviceCode(ctx context.Context, clientID, deviceCode string) (*Token, error) {
	if deviceCode == "" {
		return nil, apierr.New(apierr.KindClient, "device code is required")
	}

	form := url.Values{
		"grant_type":  {deviceCodeGrantType},
		"device_code": {deviceCode},
		"client_id":   {clientID},
	}

	resp, err := transport.Do(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodPost,
		URL:    c.tokenURL,
		Form:   form,
	})
	if err != nil {
		if resp != nil {
			return nil, classifyTokenError(resp.Body, err)
		}
		return nil, err
	}

	var token Token
	if err := resp.Decode(&token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Refresh exchanges a refresh token for a fresh access/refresh pair.
func (c *Client) Refresh(ctx context.Context, clientID, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, apierr.New(apierr.KindClient, "refresh token is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	source := c.config(clientID).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	fresh, err := source.Token()
	if err != nil {
		return nil, mapOAuth2Error(err)
	}

	out := &Token{
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	if !fresh.Expiry.IsZero() {
		out.ExpiresIn = int(time.Until(fresh.Expiry).Seconds())
	}
	return out, nil
}

// classifyTokenError inspects an OAuth error body for the device-flow poll
// signal before falling back to the status-based classification.
func classifyTokenError(body []byte, statusErr error) error {
	var oauthErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &oauthErr) == nil {
		switch oauthErr.Error {
		case "authorization_pending", "slow_down":
			return apierr.Pending()
		case "expired_token":
			return apierr.New(apierr.KindClient, "device code expired").WithDetails(body)
		case "invalid_grant":
			return apierr.New(apierr.KindClient, "device code rejected").WithDetails(body)
		}
	}
	return statusErr
}

// mapOAuth2Error converts x/oauth2 failures into the gateway taxonomy.
func mapOAuth2Error(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if pendingErr := classifyTokenError(retrieveErr.Body, nil); pendingErr != nil {
			return pendingErr
		}
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return apierr.FromStatus(status, upstreamName, retrieveErr.Body)
	}
	return apierr.Wrap(apierr.KindUpstream, "microsoft request failed", err)
}
