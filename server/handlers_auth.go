package server

import (
	"net/http"
)

// StartDeviceLogin begins the device-code sign-in flow.
func (s *Server) StartDeviceLogin() http.HandlerFunc {
	type request struct {
		ClientID string `json:"clientId"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if req.ClientID == "" {
			req.ClientID = s.config.GetMSAClientID()
		}

		grant, err := s.chain.StartLogin(r.Context(), req.ClientID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, grant)
	}
}

// CompleteLogin exchanges a device code for the full credential bundle.
// Clients poll this route; the Pending error kind tells them to keep going.
func (s *Server) CompleteLogin() http.HandlerFunc {
	type request struct {
		ClientID   string `json:"clientId"`
		DeviceCode string `json:"deviceCode"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if req.ClientID == "" {
			req.ClientID = s.config.GetMSAClientID()
		}

		bundle, err := s.chain.Complete(r.Context(), req.ClientID, req.DeviceCode)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, bundle)
	}
}

// RefreshLogin re-runs the chain from a Microsoft refresh token.
func (s *Server) RefreshLogin() http.HandlerFunc {
	type request struct {
		ClientID     string `json:"clientId"`
		RefreshToken string `json:"refreshToken"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if req.ClientID == "" {
			req.ClientID = s.config.GetMSAClientID()
		}

		bundle, err := s.chain.Refresh(r.Context(), req.ClientID, req.RefreshToken)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, bundle)
	}
}

// Livez is the liveness probe.
func (s *Server) Livez() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
