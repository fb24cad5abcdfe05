package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/upstream/transport"
)

var testVersions = []transport.Version{
	{Name: "v3", Header: map[string]string{"x-contract-version": "3"}},
	{Name: "v2", Header: map[string]string{"x-contract-version": "2"}},
}

func TestWithVersionFallback_PolicyRejectionMovesToNextRung(t *testing.T) {
	var attempted []string
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := r.Header.Get("x-contract-version")
		attempted = append(attempted, version)
		if version == "3" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer stub.Close()

	resp, err := transport.WithVersionFallback(context.Background(), "stub", testVersions, transport.PolicyRejected,
		func(ctx context.Context, version transport.Version) (*transport.Response, error) {
			req := transport.Request{Method: http.MethodGet, URL: stub.URL}
			return transport.Do(ctx, stub.Client(), "stub", transport.ApplyVersion(req, version))
		})

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, []string{"3", "2"}, attempted, "second attempt must use version 2")
}

func TestWithVersionFallback_GenericClientErrorStops(t *testing.T) {
	var attempts int
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer stub.Close()

	_, err := transport.WithVersionFallback(context.Background(), "stub", testVersions, transport.PolicyRejected,
		func(ctx context.Context, version transport.Version) (*transport.Response, error) {
			req := transport.Request{Method: http.MethodGet, URL: stub.URL}
			return transport.Do(ctx, stub.Client(), "stub", transport.ApplyVersion(req, version))
		})

	require.Error(t, err)
	require.True(t, apierr.IsKind(err, apierr.KindClient))
	require.Equal(t, 1, attempts, "a non-policy rejection would fail identically on every rung")
}

func TestWithVersionFallback_QueryRung(t *testing.T) {
	versions := []transport.Version{
		{Name: "header", Header: map[string]string{"x-contract-version": "3"}},
		{Name: "query", Query: map[string]string{"contractVersion": "2"}},
	}

	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-contract-version") == "3" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("contractVersion") != "2" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer stub.Close()

	resp, err := transport.WithVersionFallback(context.Background(), "stub", versions, transport.PolicyRejected,
		func(ctx context.Context, version transport.Version) (*transport.Response, error) {
			req := transport.Request{Method: http.MethodGet, URL: stub.URL}
			return transport.Do(ctx, stub.Client(), "stub", transport.ApplyVersion(req, version))
		})

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
}

func TestDo_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   apierr.Kind
	}{
		{http.StatusUnauthorized, apierr.KindUnauthenticated},
		{http.StatusForbidden, apierr.KindUnauthorized},
		{http.StatusNotFound, apierr.KindNotFound},
		{http.StatusUnprocessableEntity, apierr.KindClient},
		{http.StatusBadGateway, apierr.KindUpstream},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"reason":"detail"}`))
			}))
			defer stub.Close()

			_, err := transport.Do(context.Background(), stub.Client(), "stub", transport.Request{
				Method: http.MethodGet,
				URL:    stub.URL,
			})
			require.Error(t, err)
			require.True(t, apierr.IsKind(err, tc.kind))

			var apiErr *apierr.Error
			require.ErrorAs(t, err, &apiErr)
			require.JSONEq(t, `{"reason":"detail"}`, string(apiErr.Details))
		})
	}
}
