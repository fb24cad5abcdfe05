package server

import (
	"net/http"
	"strings"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/token/codec"
	"github.com/bedrocktools/mcgate/upstream/marketplace"
)

// DecodeTokens decodes one named token or a map of them. Decode-only: no
// signature is checked and nothing here feeds a trust decision.
func (s *Server) DecodeTokens() http.HandlerFunc {
	type request struct {
		Token string `json:"token,omitempty"`
		// Optional envelope declaration (JWS, JWE or OPAQUE) for the
		// single-token form; unknown values fall back to detection.
		Type   string            `json:"type,omitempty"`
		Tokens map[string]string `json:"tokens,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		switch {
		case req.Token != "":
			s.writeJSON(w, http.StatusOK, codec.DecodeAs(req.Token, codec.Kind(strings.ToUpper(req.Type))))
		case len(req.Tokens) > 0:
			s.writeJSON(w, http.StatusOK, codec.DecodeAll(req.Tokens))
		default:
			s.writeError(w, apierr.New(apierr.KindClient, "token or tokens is required"))
		}
	}
}

// ReceiptCreator extracts the creator id from a purchase receipt token.
func (s *Server) ReceiptCreator() http.HandlerFunc {
	type request struct {
		Receipt string `json:"receipt"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if req.Receipt == "" {
			s.writeError(w, apierr.New(apierr.KindClient, "receipt is required"))
			return
		}

		creatorID, err := marketplace.CreatorFromReceipt(req.Receipt)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"creatorId": creatorID})
	}
}

// DecodeBundle decodes a whole sign-in callback bundle and projects out the
// normalized user summary.
func (s *Server) DecodeBundle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var bundle codec.CallbackBundle
		if err := decodeBody(r, &bundle); err != nil {
			s.writeError(w, err)
			return
		}
		if len(bundle.Tokens) == 0 && len(bundle.XSTS) == 0 {
			s.writeError(w, apierr.New(apierr.KindClient, "bundle carries no tokens"))
			return
		}
		s.writeJSON(w, http.StatusOK, codec.DecodeBundle(bundle))
	}
}
