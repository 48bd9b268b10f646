package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to actively stop callers from accidentally nesting
// transactions.
type Store interface {
	Tokens() Tokens
	Accounts() Accounts
	Balances() Balances
	Transactions() Transactions
	SyncRuns() SyncRuns

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., replacing
	// the account list together with its balances). The caller MUST call
	// Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Tokens holds the single sealed credential blob for the current bank
// connection. The blob is opaque ciphertext at this layer; sealing lives in
// TokenVault. There is at most one row.
type Tokens interface {
	// GetTokenBlob returns the sealed credential blob, or ErrNotFound when
	// no connection exists.
	GetTokenBlob(ctx context.Context) ([]byte, error)

	// PutTokenBlob overwrites the sealed credential blob wholesale.
	PutTokenBlob(ctx context.Context, blob []byte) error

	// DeleteTokenBlob removes the blob. Deleting an absent blob is not an error.
	DeleteTokenBlob(ctx context.Context) error
}

type Accounts interface {
	// ReplaceAccounts swaps the full account list in one shot. Accounts are
	// reference data and each sync re-fetches them wholesale.
	ReplaceAccounts(ctx context.Context, accounts []domain.Account) error

	// ListAccounts returns all cached accounts ordered by display name.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// GetAccountByID returns one account or ErrNotFound.
	GetAccountByID(ctx context.Context, accountID string) (domain.Account, error)
}

type Balances interface {
	// UpsertBalance writes the snapshot for one account, replacing any prior
	// snapshot. Exactly one row per account.
	UpsertBalance(ctx context.Context, b domain.Balance) error

	// ListBalances returns snapshots for the given account ids, or all
	// snapshots when ids is empty.
	ListBalances(ctx context.Context, accountIDs []string) ([]domain.Balance, error)

	// GetBalanceByAccountID returns one snapshot or ErrNotFound.
	GetBalanceByAccountID(ctx context.Context, accountID string) (domain.Balance, error)
}

type Transactions interface {
	// UpsertTransactions writes records keyed by transaction id. Re-writing
	// an existing id overwrites it, so re-fetching a window is idempotent.
	UpsertTransactions(ctx context.Context, txns []domain.Transaction) error

	// ListByAccount returns cached transactions for an account within
	// [from, to], newest first. Zero times mean unbounded.
	ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]domain.Transaction, error)

	// DeleteByAccount removes all cached transactions for an account.
	DeleteByAccount(ctx context.Context, accountID string) error
}

type SyncRuns interface {
	// CreateSyncRun appends one run record to the history.
	CreateSyncRun(ctx context.Context, run domain.SyncRun) error

	// LatestSyncRun returns the most recent run or ErrNotFound.
	LatestSyncRun(ctx context.Context) (domain.SyncRun, error)

	// ListSyncRuns returns up to limit runs, newest first.
	ListSyncRuns(ctx context.Context, limit int) ([]domain.SyncRun, error)

	// PruneSyncRuns keeps only the newest keep runs. Housekeeping.
	PruneSyncRuns(ctx context.Context, keep int) error
}
