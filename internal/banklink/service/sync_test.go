package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/internal/banklink/store"
	"github.com/aussiebroadwan/banklink/internal/banklink/store/drivers/sqlite"
	"github.com/aussiebroadwan/banklink/pkg/banksdk"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	sync   *SyncService
	tokens *TokenService
	store  store.Store
}

func newSyncFixture(t *testing.T, handler http.Handler) *syncFixture {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sdk := banksdk.NewClient(banksdk.Config{
		AuthBaseURL: srv.URL,
		APIBaseURL:  srv.URL,
		ClientID:    "client-1",
	})

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens := NewTokenService(sdk, store.NewTokenVault(st))
	tokens.tokens = domain.TokenSet{
		AccessToken:  "AT",
		RefreshToken: "RT",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	data := NewDataService(sdk, tokens, st, "live")
	return &syncFixture{
		sync:   NewSyncService(data, tokens, st),
		tokens: tokens,
		store:  st,
	}
}

func transactionJSON(id string) map[string]any {
	return map[string]any{
		"transaction_id":       id,
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"description":          "purchase",
		"transaction_type":     "DEBIT",
		"transaction_category": "shopping",
		"amount":               -10.0,
		"currency":             "AUD",
	}
}

func TestSyncAllHappyPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSyncFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/data/v1/accounts":
			writeResults(w, []map[string]any{accountJSON("acc-1"), accountJSON("acc-2")})
		case r.URL.Path == "/data/v1/balances":
			writeResults(w, []map[string]any{
				{"account_id": "acc-1", "currency": "AUD", "current": 100.0, "available": 90.0},
				{"account_id": "acc-2", "currency": "AUD", "current": 250.0, "available": 250.0},
			})
		case strings.HasSuffix(r.URL.Path, "/transactions"):
			writeResults(w, []map[string]any{transactionJSON("txn-" + r.URL.Path)})
		default:
			http.NotFound(w, r)
		}
	}))

	result, err := f.sync.SyncAll(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.SyncStatusSuccess, result.Status())
	require.Len(t, result.Accounts, 2)
	require.Len(t, result.Balances, 2)
	require.Len(t, result.TransactionsByAccount, 2)
	require.Empty(t, result.FailedAccounts)

	run, err := f.sync.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, domain.SyncStatusSuccess, run.Status)
	require.Equal(t, 2, run.AccountCount)
	require.Equal(t, 2, run.TransactionCount)
}

func TestSyncAllIsolatesPerAccountTransactionFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSyncFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/data/v1/accounts":
			writeResults(w, []map[string]any{accountJSON("acc-bad"), accountJSON("acc-good")})
		case r.URL.Path == "/data/v1/balances":
			writeResults(w, nil)
		case strings.Contains(r.URL.Path, "acc-bad"):
			w.WriteHeader(http.StatusInternalServerError)
		case strings.Contains(r.URL.Path, "acc-good"):
			writeResults(w, []map[string]any{transactionJSON("txn-good")})
		default:
			http.NotFound(w, r)
		}
	}))

	result, err := f.sync.SyncAll(ctx)
	require.NoError(t, err)

	require.Equal(t, domain.SyncStatusPartial, result.Status())
	require.Equal(t, []string{"acc-bad"}, result.FailedAccounts)
	require.Empty(t, result.TransactionsByAccount["acc-bad"])
	require.Len(t, result.TransactionsByAccount["acc-good"], 1)
}

func TestSyncAllFailsWhenAccountsFetchFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newSyncFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := f.sync.SyncAll(ctx)
	require.Error(t, err)

	run, err := f.sync.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, domain.SyncStatusFailed, run.Status)
}

func TestSyncAllRejectsOverlappingRuns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once

	f := newSyncFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data/v1/accounts" {
			once.Do(func() { close(entered) })
			<-release
			writeResults(w, nil)
			return
		}
		writeResults(w, nil)
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.sync.SyncAll(ctx)
	}()

	<-entered
	require.True(t, f.sync.Syncing())

	_, err := f.sync.SyncAll(ctx)
	require.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	wg.Wait()
	require.False(t, f.sync.Syncing())
}

func TestSyncAllRequiresConnection(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	f.tokens.tokens = domain.TokenSet{}

	_, err := f.sync.SyncAll(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestDisconnectMidSyncPreventsPersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var f *syncFixture
	f = newSyncFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/data/v1/accounts":
			writeResults(w, []map[string]any{accountJSON("acc-1")})
		case r.URL.Path == "/data/v1/balances":
			// The user disconnects while the sync is in flight.
			require.NoError(t, f.tokens.Disconnect(r.Context()))
			writeResults(w, nil)
		default:
			writeResults(w, nil)
		}
	}))

	_, err := f.sync.SyncAll(ctx)
	require.NoError(t, err)

	// The run must not be recorded once tokens are gone.
	run, err := f.sync.LatestRun(ctx)
	require.NoError(t, err)
	require.Nil(t, run)
}
