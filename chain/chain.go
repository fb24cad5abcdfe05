// Package chain turns one device grant (or refresh token) into the full
// credential bundle a client needs: Microsoft tokens, an XBL user token,
// three audience-scoped XSTS tokens, a PlayFab session with entity tokens,
// the Minecraft multiplayer header and a locally signed API token. The
// chain is atomic - any step's failure aborts it and no partial bundle is
// ever returned.
package chain

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bedrocktools/mcgate/internal/obs"
	"github.com/bedrocktools/mcgate/token/codec"
	"github.com/bedrocktools/mcgate/token/local"
	"github.com/bedrocktools/mcgate/upstream/marketplace"
	"github.com/bedrocktools/mcgate/upstream/msa"
	"github.com/bedrocktools/mcgate/upstream/playfab"
	"github.com/bedrocktools/mcgate/upstream/xbox"
)

// Audience names used as bundle keys for the three XSTS tokens.
const (
	AudienceXboxLive      = "xboxLive"
	AudiencePlayFabLogin  = "playFabLogin"
	AudiencePlayFabRedeem = "playFabRedeem"
)

// Chain owns the upstream clients and the local signer.
type Chain struct {
	msa         *msa.Client
	xbox        *xbox.Client
	playfab     *playfab.Client
	marketplace *marketplace.Client
	signer      *local.Creator
}

func New(msaClient *msa.Client, xboxClient *xbox.Client, playfabClient *playfab.Client, marketplaceClient *marketplace.Client, signer *local.Creator) *Chain {
	return &Chain{
		msa:         msaClient,
		xbox:        xboxClient,
		playfab:     playfabClient,
		marketplace: marketplaceClient,
		signer:      signer,
	}
}

// Bundle is everything one successful sign-in yields. Raw XSTS responses
// are kept for diagnostics.
type Bundle struct {
	MicrosoftAccessToken  string `json:"microsoftAccessToken"`
	MicrosoftRefreshToken string `json:"microsoftRefreshToken"`
	MicrosoftExpiresIn    int    `json:"microsoftExpiresIn"`

	XBLToken string `json:"xblToken"`

	XUID     string `json:"xuid"`
	Gamertag string `json:"gamertag"`
	UHS      string `json:"uhs"`

	XSTS map[string]*xbox.TokenResponse `json:"xsts"`

	XboxLiveHeader      string `json:"xboxLiveHeader"`
	PlayFabLoginHeader  string `json:"playFabLoginHeader"`
	PlayFabRedeemHeader string `json:"playFabRedeemHeader"`

	PlayFabID     string `json:"playFabId"`
	SessionTicket string `json:"sessionTicket"`

	EntityToken       *playfab.EntityTokenResult `json:"entityToken"`
	MasterEntityToken *playfab.EntityTokenResult `json:"masterEntityToken,omitempty"`

	MinecraftToken     string `json:"minecraftToken"`
	MinecraftValidTill string `json:"minecraftValidUntil"`

	APIToken string `json:"apiToken"`
}

// entryFunc is the only variation point between the device-code and
// refresh-token chains: how the Microsoft token pair is obtained.
type entryFunc func(ctx context.Context) (*msa.Token, error)

// StartLogin requests a fresh device grant. The grant is consumed exactly
// once by Complete and expires on the provider's schedule.
func (c *Chain) StartLogin(ctx context.Context, clientID string) (*msa.DeviceGrant, error) {
	return c.msa.StartDeviceLogin(ctx, clientID)
}

// Complete exchanges a device code and runs the rest of the chain. An
// "authorization pending" result from Microsoft propagates as the retryable
// Pending error for the caller's polling loop.
func (c *Chain) Complete(ctx context.Context, clientID, deviceCode string) (*Bundle, error) {
	bundle, err := c.run(ctx, func(ctx context.Context) (*msa.Token, error) {
		return c.msa.ExchangeDeviceCode(ctx, clientID, deviceCode)
	})
	obs.CountLoginChain("device", err)
	return bundle, err
}

// Refresh substitutes the device-code entry with a refresh-token exchange
// and repeats the chain unchanged.
func (c *Chain) Refresh(ctx context.Context, clientID, refreshToken string) (*Bundle, error) {
	bundle, err := c.run(ctx, func(ctx context.Context) (*msa.Token, error) {
		return c.msa.Refresh(ctx, clientID, refreshToken)
	})
	obs.CountLoginChain("refresh", err)
	return bundle, err
}

func (c *Chain) run(ctx context.Context, entry entryFunc) (*Bundle, error) {
	msToken, err := entry(ctx)
	if err != nil {
		return nil, err
	}

	userToken, err := c.xbox.UserToken(ctx, msToken.AccessToken)
	if err != nil {
		return nil, err
	}

	xsts, err := c.xstsFanOut(ctx, userToken.Token)
	if err != nil {
		return nil, err
	}

	uhs, xuid, gamertag, err := xsts[AudienceXboxLive].UserClaims()
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		MicrosoftAccessToken:  msToken.AccessToken,
		MicrosoftRefreshToken: msToken.RefreshToken,
		MicrosoftExpiresIn:    msToken.ExpiresIn,
		XBLToken:              userToken.Token,
		XUID:                  xuid,
		Gamertag:              gamertag,
		UHS:                   uhs,
		XSTS:                  xsts,
		XboxLiveHeader:        codec.BuildXBL3(uhs, xsts[AudienceXboxLive].Token),
		PlayFabLoginHeader:    codec.BuildXBL3(uhs, xsts[AudiencePlayFabLogin].Token),
		PlayFabRedeemHeader:   codec.BuildXBL3(uhs, xsts[AudiencePlayFabRedeem].Token),
	}

	login, err := c.playfab.LoginWithXbox(ctx, bundle.PlayFabLoginHeader)
	if err != nil {
		return nil, err
	}
	bundle.PlayFabID = login.PlayFabID
	bundle.SessionTicket = login.SessionTicket

	if err := c.sessionFanOut(ctx, bundle); err != nil {
		return nil, err
	}

	apiToken, err := c.signer.Create(xuid, gamertag)
	if err != nil {
		return nil, err
	}
	bundle.APIToken = apiToken

	log.Info().Str("xuid", xuid).Str("gamertag", gamertag).Msg("credential chain complete")
	return bundle, nil
}

// xstsFanOut issues the three XSTS requests concurrently. All three must
// succeed; the first failure wins.
func (c *Chain) xstsFanOut(ctx context.Context, userToken string) (map[string]*xbox.TokenResponse, error) {
	audiences := []struct {
		name         string
		relyingParty string
	}{
		{AudienceXboxLive, xbox.RelyingPartyXboxLive},
		{AudiencePlayFabLogin, xbox.RelyingPartyPlayFabLogin},
		{AudiencePlayFabRedeem, xbox.RelyingPartyPlayFabRedeem},
	}

	tokens := make([]*xbox.TokenResponse, len(audiences))
	errs := make([]error, len(audiences))

	var wg sync.WaitGroup
	for i, audience := range audiences {
		wg.Add(1)
		go func(i int, relyingParty string) {
			defer wg.Done()
			tokens[i], errs[i] = c.xbox.XSTSToken(ctx, userToken, relyingParty)
		}(i, audience.relyingParty)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string]*xbox.TokenResponse, len(audiences))
	for i, audience := range audiences {
		out[audience.name] = tokens[i]
	}
	return out, nil
}

// sessionFanOut requests the Minecraft multiplayer header and the entity
// tokens concurrently. The master-entity branch is skipped, not failed,
// when the login produced no PlayFab id.
func (c *Chain) sessionFanOut(ctx context.Context, bundle *Bundle) error {
	var wg sync.WaitGroup
	var mcErr, entityErr, masterErr error
	var mcAuth *marketplace.MultiplayerAuth

	wg.Add(1)
	go func() {
		defer wg.Done()
		mcAuth, mcErr = c.marketplace.MultiplayerToken(ctx, bundle.SessionTicket)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		bundle.EntityToken, entityErr = c.playfab.EntityToken(ctx, bundle.SessionTicket, nil)
	}()

	if bundle.PlayFabID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundle.MasterEntityToken, masterErr = c.playfab.EntityToken(ctx, bundle.SessionTicket, &playfab.Entity{
				ID:   bundle.PlayFabID,
				Type: playfab.EntityTypeMasterPlayerAccount,
			})
		}()
	}
	wg.Wait()

	for _, err := range []error{mcErr, entityErr, masterErr} {
		if err != nil {
			return err
		}
	}

	bundle.MinecraftToken = mcAuth.AuthorizationHeader
	bundle.MinecraftValidTill = mcAuth.ValidUntil
	return nil
}
