package local_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/token/local"
)

const testSecret = "test-signing-secret"

func freezeClock(t *testing.T) *time.Time {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	local.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { local.NowTimeFunc = time.Now })
	return &now
}

func TestCreateIntrospect_RoundTrip(t *testing.T) {
	freezeClock(t)
	creator := local.NewCreator("http://localhost:8080", testSecret, 4*time.Hour)

	raw, err := creator.Create("2535412345678901", "Steve")
	require.NoError(t, err)

	ident, err := local.NewInspector(testSecret).Introspect(raw)
	require.NoError(t, err)
	require.Equal(t, "2535412345678901", ident.XUID)
	require.Equal(t, "Steve", ident.Gamertag)
}

func TestIntrospect_RejectsExpiredToken(t *testing.T) {
	now := freezeClock(t)
	creator := local.NewCreator("http://localhost:8080", testSecret, time.Hour)

	raw, err := creator.Create("253", "Alex")
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	_, err = local.NewInspector(testSecret).Introspect(raw)
	require.Error(t, err)
	require.True(t, apierr.IsKind(err, apierr.KindUnauthenticated))
}

func TestIntrospect_RejectsWrongSecret(t *testing.T) {
	freezeClock(t)
	creator := local.NewCreator("http://localhost:8080", testSecret, time.Hour)

	raw, err := creator.Create("253", "Alex")
	require.NoError(t, err)

	_, err = local.NewInspector("other-secret").Introspect(raw)
	require.Error(t, err)
	require.True(t, apierr.IsKind(err, apierr.KindUnauthenticated))
}

func TestIntrospect_RejectsUnsignedToken(t *testing.T) {
	freezeClock(t)

	unsigned, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{
		"xuid": "253", "gtg": "Alex",
	}).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = local.NewInspector(testSecret).Introspect(unsigned)
	require.Error(t, err)
	require.True(t, apierr.IsKind(err, apierr.KindUnauthenticated))
}

func TestCreate_TokensCarryUniqueIDs(t *testing.T) {
	freezeClock(t)
	creator := local.NewCreator("http://localhost:8080", testSecret, time.Hour)

	first, err := creator.Create("253", "Alex")
	require.NoError(t, err)
	second, err := creator.Create("253", "Alex")
	require.NoError(t, err)
	require.NotEqual(t, first, second, "jti makes every token distinct")
}
