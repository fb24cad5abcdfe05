package server

import (
	"net/http"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/upstream/marketplace"
)

// mcTokenHeaderName carries the caller's Minecraft multiplayer
// authorization header ("MCToken <value>") for marketplace routes.
const mcTokenHeaderName = "X-MC-Token"

func mcToken(r *http.Request) (string, error) {
	token := r.Header.Get(mcTokenHeaderName)
	if token == "" {
		return "", apierr.Newf(apierr.KindClient, "%s header is required", mcTokenHeaderName)
	}
	return token, nil
}

// GetWishlist reads the caller's marketplace wishlist.
func (s *Server) GetWishlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := mcToken(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		recentlyViewed := r.URL.Query().Get("recentlyViewed") == "true"

		result, err := s.market.GetWishlist(r.Context(), token, recentlyViewed)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// MutateWishlist adds or removes one wishlist item.
func (s *Server) MutateWishlist() http.HandlerFunc {
	type request struct {
		ItemID    string `json:"itemId"`
		Operation string `json:"operation"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := mcToken(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		var req request
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		result, err := s.market.MutateWishlist(r.Context(), token, req.ItemID, req.Operation)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"versionStamps": result.Stamps})
	}
}

// Entitlements returns the caller's raw marketplace entitlement records.
func (s *Server) Entitlements() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := mcToken(r)
		if err != nil {
			s.writeError(w, err)
			return
		}

		entitlements, err := s.market.Entitlements(r.Context(), token)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"entitlements": entitlements})
	}
}

// MarketplaceEvents reports one marketplace messaging interaction upstream.
func (s *Server) MarketplaceEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := mcToken(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		var event marketplace.MessageEventInput
		if err := decodeBody(r, &event); err != nil {
			s.writeError(w, err)
			return
		}

		if err := s.market.SendMessageEvents(r.Context(), token, event); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
	}
}
