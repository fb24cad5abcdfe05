package identity_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bedrocktools/mcgate/identity"
	"github.com/bedrocktools/mcgate/internal/utils"
	"github.com/bedrocktools/mcgate/upstream/xbox"
)

// fakeProfiles scripts the bulk and single lookup paths.
type fakeProfiles struct {
	mu sync.Mutex

	bulkErr     error
	bulkAnswers map[string]string
	bulkExtras  map[string]string
	bulkCalls   int

	singleAnswers map[string]string
	singleCalls   int
}

func (f *fakeProfiles) ProfileSettingsBatch(_ context.Context, _ string, xuids []string, _ []string) ([]xbox.ProfileUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	var users []xbox.ProfileUser
	for _, id := range xuids {
		if name, ok := f.bulkAnswers[id]; ok {
			users = append(users, xbox.ProfileUser{
				ID:       id,
				Settings: []xbox.ProfileSetting{{ID: xbox.SettingGamertag, Value: name}},
			})
		}
	}
	for id, name := range f.bulkExtras {
		users = append(users, xbox.ProfileUser{
			ID:       id,
			Settings: []xbox.ProfileSetting{{ID: xbox.SettingGamertag, Value: name}},
		})
	}
	return users, nil
}

func (f *fakeProfiles) ProfileSettingsSingle(_ context.Context, _ string, xuid string) (*xbox.ProfileUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singleCalls++
	name, ok := f.singleAnswers[xuid]
	if !ok {
		return nil, errors.New("profile not found")
	}
	return &xbox.ProfileUser{
		ID:       xuid,
		Settings: []xbox.ProfileSetting{{ID: xbox.SettingGamertag, Value: name}},
	}, nil
}

func TestResolveNames_EmptyInputSkipsNetwork(t *testing.T) {
	profiles := &fakeProfiles{}
	resolver := identity.New(profiles, 0)

	names, err := resolver.ResolveNames(context.Background(), "XBL3.0 x=h;t", nil)
	require.NoError(t, err)
	require.Empty(t, names)
	require.Zero(t, profiles.bulkCalls)
	require.Zero(t, profiles.singleCalls)
}

func TestResolveNames_BulkPathComplete(t *testing.T) {
	profiles := &fakeProfiles{
		bulkAnswers: map[string]string{"1": "Alpha", "2": "Beta"},
	}
	resolver := identity.New(profiles, 0)

	names, err := resolver.ResolveNames(context.Background(), "XBL3.0 x=h;t", []string{"1", "2", "1", ""})
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Equal(t, "Alpha", utils.Value(names["1"]))
	require.Equal(t, "Beta", utils.Value(names["2"]))
	require.Equal(t, 1, profiles.bulkCalls)
	require.Zero(t, profiles.singleCalls, "complete bulk answer must not trigger the pool")
}

func TestResolveNames_BulkShortfallFallsBackToPool(t *testing.T) {
	profiles := &fakeProfiles{
		bulkAnswers:   map[string]string{"1": "Alpha"},
		singleAnswers: map[string]string{"1": "Alpha", "2": "Beta"},
	}
	resolver := identity.New(profiles, 0)

	names, err := resolver.ResolveNames(context.Background(), "XBL3.0 x=h;t", []string{"1", "2", "3"})
	require.NoError(t, err)

	// Totality: the key set equals the deduplicated input, with nil for the
	// identifier that failed both attempts.
	require.Len(t, names, 3)
	require.Equal(t, "Alpha", utils.Value(names["1"]))
	require.Equal(t, "Beta", utils.Value(names["2"]))
	require.Contains(t, names, "3")
	require.Nil(t, names["3"])

	// The pool re-resolves the whole list, already-answered ids included.
	require.Equal(t, 3, profiles.singleCalls)
}

func TestResolveNames_AliasedBulkAnswerFallsBackToPool(t *testing.T) {
	// The bulk endpoint answers for "1" and for an identifier nobody asked
	// about, omitting "2". The counts line up, but the answer is still
	// incomplete and must not short-circuit the pool.
	profiles := &fakeProfiles{
		bulkAnswers:   map[string]string{"1": "Alpha"},
		bulkExtras:    map[string]string{"999": "Ghost"},
		singleAnswers: map[string]string{"1": "Alpha", "2": "Beta"},
	}
	resolver := identity.New(profiles, 0)

	names, err := resolver.ResolveNames(context.Background(), "XBL3.0 x=h;t", []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Equal(t, "Alpha", utils.Value(names["1"]))
	require.Equal(t, "Beta", utils.Value(names["2"]))
	require.NotContains(t, names, "999", "unrequested records must be discarded")
	require.Equal(t, 2, profiles.singleCalls, "incomplete bulk answer must fall back to the pool")
}

func TestResolveNames_BulkErrorFallsBackToPool(t *testing.T) {
	profiles := &fakeProfiles{
		bulkErr:       errors.New("bulk endpoint down"),
		singleAnswers: map[string]string{"7": "Gamma"},
	}
	resolver := identity.New(profiles, 0)

	names, err := resolver.ResolveNames(context.Background(), "XBL3.0 x=h;t", []string{"7", "8"})
	require.NoError(t, err, "individual failures never raise")
	require.Len(t, names, 2)
	require.Equal(t, "Gamma", utils.Value(names["7"]))
	require.Nil(t, names["8"])
}

func TestResolveNames_LargeBatchIsChunked(t *testing.T) {
	answers := map[string]string{}
	ids := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		id := string(rune('a'+i%26)) + string(rune('0'+i/26))
		ids = append(ids, id)
		answers[id] = "GT-" + id
	}

	profiles := &fakeProfiles{bulkAnswers: answers}
	resolver := identity.New(profiles, 0)

	names, err := resolver.ResolveNames(context.Background(), "XBL3.0 x=h;t", ids)
	require.NoError(t, err)
	require.Len(t, names, len(answers))
	require.Equal(t, 2, profiles.bulkCalls, "150 ids need two chunks at the 100 ceiling")
}
