package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/banklink/internal/banklink/service"
	"github.com/aussiebroadwan/banklink/pkg/httpx"
)

// ConnectHandler drives the interactive connection lifecycle.
type ConnectHandler struct {
	Connect *service.ConnectService
	Tokens  *service.TokenService
}

type connectRequest struct {
	ProviderID string `json:"provider_id,omitempty"`
}

type connectResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// HandleStart begins an authorization flow and returns the browser URL.
func (h *ConnectHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
	}

	authURL, err := h.Connect.Start(r.Context(), req.ProviderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, connectResponse{AuthorizationURL: authURL})
}

// HandleCallback completes the flow from the aggregator redirect. code and
// state arrive as query parameters.
func (h *ConnectHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		h.Connect.Cancel()
		httpx.WriteError(w, http.StatusBadRequest, "authorization_denied",
			"authorization was denied: "+errCode)
		return
	}

	code := q.Get("code")
	if code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "callback missing code")
		return
	}

	if err := h.Connect.Complete(r.Context(), code, q.Get("state")); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"connected": true})
}

// HandleDisconnect clears the stored tokens. Idempotent.
func (h *ConnectHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.Connect.Cancel()
	if err := h.Tokens.Disconnect(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"connected": false})
}
