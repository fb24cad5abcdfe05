package xbox_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bedrocktools/mcgate/upstream/xbox"
)

func TestUserClaims(t *testing.T) {
	token := &xbox.TokenResponse{
		DisplayClaims: xbox.DisplayClaims{
			XUI: []map[string]string{{"uhs": "h1", "xid": "253", "gtg": "Steve"}},
		},
	}

	uhs, xuid, gamertag, err := token.UserClaims()
	require.NoError(t, err)
	require.Equal(t, "h1", uhs)
	require.Equal(t, "253", xuid)
	require.Equal(t, "Steve", gamertag)
}

func TestUserClaims_EmptyClaimsFails(t *testing.T) {
	token := &xbox.TokenResponse{}
	_, _, _, err := token.UserClaims()
	require.Error(t, err)
}

func TestProfileSettingsBatch_FallsThroughContractVersions(t *testing.T) {
	var mu sync.Mutex
	var versionsSeen []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/batch/profile/settings", r.URL.Path)

		version := r.Header.Get("x-xbl-contract-version")
		if version == "" {
			version = "query-" + r.URL.Query().Get("contractVersion")
		}
		mu.Lock()
		versionsSeen = append(versionsSeen, version)
		mu.Unlock()

		// Only the query-negotiated rung is accepted.
		if r.Header.Get("x-xbl-contract-version") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"profileUsers": []map[string]any{
				{"id": "253", "settings": []map[string]string{{"id": "Gamertag", "value": "Steve"}}},
			},
		})
	}))
	t.Cleanup(server.Close)

	c := xbox.New(server.Client())
	c.ProfileURL = server.URL

	users, err := c.ProfileSettingsBatch(t.Context(), "XBL3.0 x=h;tok", []string{"253"}, []string{xbox.SettingGamertag})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "Steve", users[0].Setting(xbox.SettingGamertag))
	require.Equal(t, []string{"3", "2", "query-2"}, versionsSeen)
}

func TestProfileSettingsSingle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/xuid(253)/profile/settings", r.URL.Path)
		require.Equal(t, "Gamertag", r.URL.Query().Get("settings"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"profileUsers": []map[string]any{
				{"id": "253", "settings": []map[string]string{{"id": "Gamertag", "value": "Alex"}}},
			},
		})
	}))
	t.Cleanup(server.Close)

	c := xbox.New(server.Client())
	c.ProfileURL = server.URL

	user, err := c.ProfileSettingsSingle(t.Context(), "XBL3.0 x=h;tok", "253")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "Alex", user.Setting(xbox.SettingGamertag))
}

func TestTitleHistory_NotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	c := xbox.New(server.Client())
	c.TitleHubURL = server.URL

	titles, err := c.TitleHistory(t.Context(), "XBL3.0 x=h;tok", "253")
	require.NoError(t, err)
	require.Empty(t, titles)
}

func TestTitleHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/xuid(253)/titles/titlehistory/decoration/achievement,image", r.URL.Path)
		require.Equal(t, "XBL3.0 x=h;tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"titles": []map[string]string{{"titleId": "1739947436", "name": "Minecraft"}},
		})
	}))
	t.Cleanup(server.Close)

	c := xbox.New(server.Client())
	c.TitleHubURL = server.URL

	titles, err := c.TitleHistory(t.Context(), "XBL3.0 x=h;tok", "253")
	require.NoError(t, err)
	require.Len(t, titles, 1)
	require.Equal(t, "Minecraft", titles[0].Name)
}
