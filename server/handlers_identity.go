package server

import (
	"net/http"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/upstream/xbox"
)

// xblHeaderName carries the caller's Xbox Live composite token for routes
// that proxy the profile and title services on their behalf.
const xblHeaderName = "X-XBL-Authorization"

func xblHeader(r *http.Request) (string, error) {
	header := r.Header.Get(xblHeaderName)
	if header == "" {
		return "", apierr.Newf(apierr.KindClient, "%s header is required", xblHeaderName)
	}
	return header, nil
}

// ResolveNames maps a list of XUIDs to display names. The response map's
// key set always equals the deduplicated input; unresolvable ids are null.
func (s *Server) ResolveNames() http.HandlerFunc {
	type request struct {
		IDs []string `json:"ids"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		auth, err := xblHeader(r)
		if err != nil {
			s.writeError(w, err)
			return
		}

		names, err := s.resolver.ResolveNames(r.Context(), auth, req.IDs)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"names": names})
	}
}

// TitleHistory returns the caller's recently played titles, memoized
// briefly because the data changes slowly and clients refresh eagerly.
func (s *Server) TitleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := identityFromContext(r.Context())
		if ident == nil || ident.XUID == "" {
			s.writeError(w, apierr.New(apierr.KindUnauthenticated, "missing identity"))
			return
		}
		auth, err := xblHeader(r)
		if err != nil {
			s.writeError(w, err)
			return
		}

		titles, err := s.titleCache.GetOrFill("titles:"+ident.XUID, titleCacheTTL, func() ([]xbox.Title, error) {
			return s.xbox.TitleHistory(r.Context(), auth, ident.XUID)
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
	}
}
