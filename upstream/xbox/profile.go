package xbox

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bedrocktools/mcgate/upstream/transport"
)

// SettingGamertag is the profile setting the identity resolver asks for.
const SettingGamertag = "Gamertag"

// The profile service enforces an evolving contract version and rejects
// stale ones with a policy error rather than a schema error. Rungs are
// ordered newest first; the last rung negotiates through the query string,
// which some deployments accept after rejecting both header forms.
var profileVersions = []transport.Version{
	{Name: "header-v3", Header: map[string]string{"x-xbl-contract-version": "3"}},
	{Name: "header-v2", Header: map[string]string{"x-xbl-contract-version": "2"}},
	{Name: "query-v2", Query: map[string]string{"contractVersion": "2"}},
}

// ProfileUser is one resolved profile with its requested settings.
type ProfileUser struct {
	ID       string           `json:"id"`
	Settings []ProfileSetting `json:"settings"`
}

type ProfileSetting struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Setting returns the value of a named setting, or "" when absent.
func (u ProfileUser) Setting(name string) string {
	for _, s := range u.Settings {
		if s.ID == name {
			return s.Value
		}
	}
	return ""
}

// ProfileSettingsBatch resolves up to 100 XUIDs in one call. The bulk
// endpoint fails erratically for large or mixed-validity sets, so every
// rung is tried on any failure shape.
func (c *Client) ProfileSettingsBatch(ctx context.Context, authHeader string, xuids []string, settings []string) ([]ProfileUser, error) {
	body := map[string]any{
		"userIds":  xuids,
		"settings": settings,
	}

	resp, err := transport.WithVersionFallback(ctx, upstreamName, profileVersions, transport.AnyError,
		func(ctx context.Context, version transport.Version) (*transport.Response, error) {
			req := transport.Request{
				Method: http.MethodPost,
				URL:    c.ProfileURL + "/users/batch/profile/settings",
				Header: map[string]string{"Authorization": authHeader},
				Body:   body,
			}
			return transport.Do(ctx, c.httpClient, upstreamName, transport.ApplyVersion(req, version))
		})
	if err != nil {
		return nil, err
	}

	var result struct {
		ProfileUsers []ProfileUser `json:"profileUsers"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return result.ProfileUsers, nil
}

// ProfileSettingsSingle resolves one XUID, newer contract version first,
// older on any failure.
func (c *Client) ProfileSettingsSingle(ctx context.Context, authHeader, xuid string) (*ProfileUser, error) {
	resp, err := transport.WithVersionFallback(ctx, upstreamName, profileVersions[:2], transport.AnyError,
		func(ctx context.Context, version transport.Version) (*transport.Response, error) {
			req := transport.Request{
				Method: http.MethodGet,
				URL:    c.ProfileURL + "/users/xuid(" + xuid + ")/profile/settings",
				Header: map[string]string{"Authorization": authHeader},
				Query:  url.Values{"settings": {SettingGamertag}},
			}
			return transport.Do(ctx, c.httpClient, upstreamName, transport.ApplyVersion(req, version))
		})
	if err != nil {
		return nil, err
	}

	var result struct {
		ProfileUsers []ProfileUser `json:"profileUsers"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	if len(result.ProfileUsers) == 0 {
		return nil, nil
	}
	return &result.ProfileUsers[0], nil
}
