package domain

import (
	"time"

	"github.com/aussiebroadwan/banklink/pkg/idx"
)

// DataSource flags where a payload came from so callers can always tell real
// data from degraded modes.
type DataSource string

const (
	// SourceLive is a fresh response from the aggregator.
	SourceLive DataSource = "live"
	// SourceCache is the last-known-good snapshot, served because the live
	// call failed.
	SourceCache DataSource = "cache"
	// SourceSynthetic is deterministic generated data, served because a
	// sandbox provider returned an empty or zeroed payload.
	SourceSynthetic DataSource = "synthetic"
)

// SyncStatus is the outcome of one orchestrated sync run.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	// SyncStatusPartial means accounts and balances landed but at least one
	// account's transaction fetch failed and was recorded empty.
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncResult is the atomic output of one orchestrator run.
type SyncResult struct {
	Accounts              []Account                `json:"accounts"`
	Balances              []Balance                `json:"balances"`
	TransactionsByAccount map[string][]Transaction `json:"transactions_by_account"`
	Timestamp             time.Time                `json:"timestamp"`

	// FailedAccounts lists account ids whose transaction fetch failed and
	// was degraded to an empty list.
	FailedAccounts []string `json:"failed_accounts,omitempty"`
}

// Status derives the run status from the result contents.
func (r SyncResult) Status() SyncStatus {
	if len(r.FailedAccounts) > 0 {
		return SyncStatusPartial
	}
	return SyncStatusSuccess
}

// SyncRun is the persisted record of one orchestrator run, for status
// reporting and debugging. Keyed by a ULID so history orders by time.
type SyncRun struct {
	ID               idx.ID     `json:"id"`
	Status           SyncStatus `json:"status"`
	AccountCount     int        `json:"account_count"`
	TransactionCount int        `json:"transaction_count"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       time.Time  `json:"finished_at"`
}
