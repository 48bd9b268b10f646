package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/internal/banklink/service"
	"github.com/aussiebroadwan/banklink/pkg/httpx"
)

// SyncHandler exposes manual sync, lifecycle notifications and status.
type SyncHandler struct {
	Sync      *service.SyncService
	Scheduler *service.Scheduler
	Tokens    *service.TokenService
}

type statusResponse struct {
	Connected       bool       `json:"connected"`
	TokenValid      bool       `json:"token_valid"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	Scopes          []string   `json:"scopes,omitempty"`
	RefreshFailures int        `json:"refresh_failures"`

	SchedulerState string          `json:"scheduler_state"`
	Syncing        bool            `json:"syncing"`
	LastSync       *time.Time      `json:"last_sync,omitempty"`
	LastSyncError  string          `json:"last_sync_error,omitempty"`
	LastRun        *domain.SyncRun `json:"last_run,omitempty"`
}

// HandleSync runs a full sync right now. Overlap with a scheduled run maps
// to 409.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.Sync.SyncAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleForeground notifies the scheduler the app came to the foreground.
// Always 202: the actual sync is asynchronous and may be dropped if one is
// already running.
func (h *SyncHandler) HandleForeground(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Foreground()
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleStatus reports connection and scheduler state in one call.
func (h *SyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Connected:       h.Tokens.Connected(),
		TokenValid:      h.Tokens.IsValid(),
		Scopes:          httpx.ParseSpaceDelimitedFields(h.Tokens.Scope()),
		RefreshFailures: h.Tokens.RefreshFailures(),
		SchedulerState:  string(h.Scheduler.State()),
		Syncing:         h.Sync.Syncing(),
	}

	if exp := h.Tokens.ExpiresAt(); !exp.IsZero() {
		resp.TokenExpiresAt = &exp
	}
	if last := h.Scheduler.LastSync(); !last.IsZero() {
		resp.LastSync = &last
	}
	if err := h.Scheduler.LastError(); err != nil {
		resp.LastSyncError = err.Error()
	}
	if run, err := h.Sync.LatestRun(r.Context()); err == nil && run != nil {
		resp.LastRun = run
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
