package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/internal/banklink/store"
	"github.com/aussiebroadwan/banklink/pkg/idx"
	"github.com/aussiebroadwan/banklink/pkg/slogx"
)

// DefaultSyncWindow is the trailing transaction window fetched per sync.
const DefaultSyncWindow = 30 * 24 * time.Hour

// syncRunHistory caps how many run records are kept.
const syncRunHistory = 50

// SyncService orchestrates one full refresh of the local snapshots. Accounts
// are the mandatory root of the data graph: their fetch failing fails the
// run. Balances and per-account transactions are best effort once accounts
// are known; transaction fetches run concurrently and one account's failure
// degrades that account's list to empty without touching the others.
//
// At most one run is in flight; a second SyncAll returns ErrSyncInProgress.
type SyncService struct {
	Data   *DataService
	Tokens *TokenService
	Store  store.Store

	// Window is the trailing transaction window; DefaultSyncWindow when zero.
	Window time.Duration

	now func() time.Time

	mu      sync.Mutex
	syncing bool
}

func NewSyncService(data *DataService, tokens *TokenService, st store.Store) *SyncService {
	return &SyncService{
		Data:   data,
		Tokens: tokens,
		Store:  st,
		Window: DefaultSyncWindow,
		now:    time.Now,
	}
}

// Syncing reports whether a run is currently in flight.
func (s *SyncService) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// SyncAll performs one orchestrated sync and returns the assembled result.
// The run is recorded in history unless the connection was torn down while
// it was in flight.
func (s *SyncService) SyncAll(ctx context.Context) (*domain.SyncResult, error) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	if !s.Tokens.Connected() {
		return nil, ErrNotConnected
	}

	l := slogx.FromContext(ctx)
	startedAt := s.now()
	l.Info("sync started")

	accountsRes, err := s.Data.GetAccounts(ctx)
	if err != nil {
		l.Warn("sync failed: accounts fetch", "error", err)
		s.recordRun(ctx, domain.SyncRun{
			ID:         idx.New(),
			Status:     domain.SyncStatusFailed,
			Error:      err.Error(),
			StartedAt:  startedAt,
			FinishedAt: s.now(),
		})
		return nil, err
	}

	accounts := accountsRes.Accounts
	accountIDs := make([]string, 0, len(accounts))
	for _, a := range accounts {
		accountIDs = append(accountIDs, a.AccountID)
	}

	result := &domain.SyncResult{
		Accounts:              accounts,
		TransactionsByAccount: make(map[string][]domain.Transaction, len(accounts)),
	}

	balancesRes, err := s.Data.GetBalances(ctx, accountIDs)
	if err != nil {
		l.Warn("sync: balances fetch failed, continuing without", "error", err)
	} else {
		result.Balances = balancesRes.Balances
	}

	window := s.Window
	if window <= 0 {
		window = DefaultSyncWindow
	}
	from := s.now().Add(-window)

	var (
		wg       sync.WaitGroup
		resultMu sync.Mutex
	)
	for _, id := range accountIDs {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()

			txnRes, err := s.Data.GetTransactions(ctx, accountID, from, time.Time{})

			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				l.Warn("sync: transactions fetch failed for account",
					"account_id", accountID,
					"error", err,
				)
				result.TransactionsByAccount[accountID] = []domain.Transaction{}
				result.FailedAccounts = append(result.FailedAccounts, accountID)
				return
			}
			result.TransactionsByAccount[accountID] = txnRes.Transactions
		}(id)
	}
	wg.Wait()
	sort.Strings(result.FailedAccounts)

	result.Timestamp = s.now()

	txnCount := 0
	for _, txns := range result.TransactionsByAccount {
		txnCount += len(txns)
	}

	s.recordRun(ctx, domain.SyncRun{
		ID:               idx.New(),
		Status:           result.Status(),
		AccountCount:     len(accounts),
		TransactionCount: txnCount,
		StartedAt:        startedAt,
		FinishedAt:       result.Timestamp,
	})

	l.Info("sync finished",
		"status", string(result.Status()),
		"accounts", len(accounts),
		"transactions", txnCount,
		"failed_accounts", len(result.FailedAccounts),
	)
	return result, nil
}

// LatestRun returns the most recent recorded run, or nil when none exists.
func (s *SyncService) LatestRun(ctx context.Context) (*domain.SyncRun, error) {
	run, err := s.Store.SyncRuns().LatestSyncRun(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// recordRun appends a run record unless the user disconnected while the sync
// was in flight, in which case nothing may be persisted anymore.
func (s *SyncService) recordRun(ctx context.Context, run domain.SyncRun) {
	if !s.Tokens.Connected() {
		return
	}

	l := slogx.FromContext(ctx)
	if err := s.Store.SyncRuns().CreateSyncRun(ctx, run); err != nil {
		l.Warn("failed to record sync run", "error", err)
		return
	}
	if err := s.Store.SyncRuns().PruneSyncRuns(ctx, syncRunHistory); err != nil {
		l.Warn("failed to prune sync run history", "error", err)
	}
}
