package apierr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bedrocktools/mcgate/internal/apierr"
)

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		kind   apierr.Kind
		http   int
	}{
		{http.StatusUnauthorized, apierr.KindUnauthenticated, http.StatusUnauthorized},
		{http.StatusForbidden, apierr.KindUnauthorized, http.StatusForbidden},
		{http.StatusNotFound, apierr.KindNotFound, http.StatusNotFound},
		{http.StatusConflict, apierr.KindClient, http.StatusBadRequest},
		{http.StatusInternalServerError, apierr.KindUpstream, http.StatusBadGateway},
		{http.StatusBadGateway, apierr.KindUpstream, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			err := apierr.FromStatus(tc.status, "xbox", []byte(`{"x":1}`))
			require.Equal(t, tc.kind, err.Kind)
			require.Equal(t, tc.http, err.HTTPStatus())
			require.JSONEq(t, `{"x":1}`, string(err.Details))
		})
	}
}

func TestPending_MessageIsStable(t *testing.T) {
	err := apierr.Pending()
	require.Equal(t, apierr.KindPending, err.Kind)
	require.Equal(t, "Authorization pending", err.Message)
	require.Equal(t, http.StatusBadRequest, err.HTTPStatus())
}

func TestIsMatchesByKind(t *testing.T) {
	err := apierr.New(apierr.KindNotFound, "user not found")
	require.ErrorIs(t, err, &apierr.Error{Kind: apierr.KindNotFound})
	require.NotErrorIs(t, err, &apierr.Error{Kind: apierr.KindClient})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apierr.Wrap(apierr.KindUpstream, "xbox request failed", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "connection refused")
	require.True(t, apierr.IsKind(err, apierr.KindUpstream))
}

func TestIsKindSeesThroughWrapping(t *testing.T) {
	inner := apierr.Pending()
	outer := fmt.Errorf("poll attempt 3: %w", inner)

	require.True(t, apierr.IsKind(outer, apierr.KindPending))
	require.Equal(t, apierr.KindPending, apierr.KindOf(outer))
}

func TestKindOf_DefaultsToUpstream(t *testing.T) {
	require.Equal(t, apierr.KindUpstream, apierr.KindOf(errors.New("plain")))
}

func TestWithDetails_IgnoresEmptyPayload(t *testing.T) {
	err := apierr.New(apierr.KindClient, "bad input").WithDetails(nil)
	require.Nil(t, err.Details)
}
