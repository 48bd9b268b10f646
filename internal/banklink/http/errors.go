package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/banklink/internal/banklink/service"
	"github.com/aussiebroadwan/banklink/pkg/httpx"
)

// writeServiceError maps the service error taxonomy onto HTTP responses.
// Anything outside the taxonomy becomes an opaque 500: raw transport errors
// never cross this boundary.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAuthRequired):
		httpx.WriteError(w, http.StatusUnauthorized, "auth_required",
			"no valid bank connection, reconnect required")
	case errors.Is(err, service.ErrNotConnected):
		httpx.WriteError(w, http.StatusConflict, "not_connected",
			"no bank connection exists")
	case errors.Is(err, service.ErrStateMismatch):
		httpx.WriteError(w, http.StatusBadRequest, "state_mismatch",
			"callback state did not match, authorization aborted")
	case errors.Is(err, service.ErrNoPendingConnect):
		httpx.WriteError(w, http.StatusConflict, "no_pending_authorization",
			"no authorization in progress")
	case errors.Is(err, service.ErrCodeRejected):
		httpx.WriteError(w, http.StatusBadRequest, "code_rejected",
			"authorization code expired or already used")
	case errors.Is(err, service.ErrRedirectMismatch):
		httpx.WriteError(w, http.StatusBadRequest, "redirect_mismatch",
			"redirect URI mismatch")
	case errors.Is(err, service.ErrSyncInProgress):
		httpx.WriteError(w, http.StatusConflict, "sync_in_progress",
			"a sync is already running")
	case errors.Is(err, service.ErrUnavailable):
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"aggregator unreachable and no cached data available")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"internal error")
	}
}
