package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bedrocktools/mcgate/internal/apierr"
)

const contentTypeJSON = "application/json; charset=utf-8"

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorBody is the stable client-facing error shape: a machine-readable
// kind plus a human message. Upstream detail is exposed in DEV only.
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierr.Wrap(apierr.KindUpstream, "internal error", err)
	}

	body := errorBody{
		Error:   string(apiErr.Kind),
		Message: apiErr.Message,
	}
	if s.env == "DEV" {
		body.Details = apiErr.Details
	}
	s.writeJSON(w, apiErr.HTTPStatus(), body)
}

func decodeBody(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return apierr.Wrap(apierr.KindClient, "malformed request body", err)
	}
	return nil
}
