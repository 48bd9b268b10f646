package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/service"
	"github.com/aussiebroadwan/banklink/pkg/httpx"
)

// DataHandler serves account data through the authenticated data layer, so
// every response carries the live / cache / synthetic source flag.
type DataHandler struct {
	Data *service.DataService
}

func (h *DataHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	res, err := h.Data.GetAccounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleBalances serves balances for ?account_ids=a,b,c or every known
// account when the parameter is absent.
func (h *DataHandler) HandleBalances(w http.ResponseWriter, r *http.Request) {
	var accountIDs []string
	if raw := r.URL.Query().Get("account_ids"); raw != "" {
		accountIDs = splitCSV(raw)
	}

	res, err := h.Data.GetBalances(r.Context(), accountIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleTransactions serves one account's transactions, optionally bounded
// by ?from and ?to (RFC3339).
func (h *DataHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")

	from, ok := parseTimeParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseTimeParam(w, r, "to")
	if !ok {
		return
	}

	res, err := h.Data.GetTransactions(r.Context(), accountID, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleTestConnection verifies token and aggregator reachability with one
// authenticated call, bypassing every fallback.
func (h *DataHandler) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.Data.TestConnection(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func parseTimeParam(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, true
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			key+" must be an RFC3339 timestamp")
		return time.Time{}, false
	}
	return t, true
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
