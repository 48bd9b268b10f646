package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/internal/banklink/store"
	"github.com/aussiebroadwan/banklink/pkg/banksdk"
	"github.com/aussiebroadwan/banklink/pkg/slogx"
)

// EnvSandbox enables the synthetic-data fallback. Live environments never
// fabricate data: a genuinely zero-balance account must read as zero.
const EnvSandbox = "sandbox"

// AccountsResult carries fetched accounts together with where they came from.
type AccountsResult struct {
	Accounts []domain.Account  `json:"accounts"`
	Source   domain.DataSource `json:"source"`
}

type BalancesResult struct {
	Balances []domain.Balance  `json:"balances"`
	Source   domain.DataSource `json:"source"`
}

type TransactionsResult struct {
	Transactions []domain.Transaction `json:"transactions"`
	Source       domain.DataSource    `json:"source"`
}

// DataService is the authenticated data access layer: it ensures a valid
// token before every call, degrades to the cached snapshot when the
// aggregator is unreachable, and (sandbox only) substitutes deterministic
// synthetic data when a provider answers 2xx with nothing usable. Every
// result is flagged with its source so callers can always tell the three
// apart.
//
// Raw transport and decode errors never leave this layer; only the sentinel
// errors in errors.go do.
type DataService struct {
	SDK    *banksdk.Client
	Tokens *TokenService
	Store  store.Store
	Mock   *MockGenerator

	// Environment is "sandbox" or "live".
	Environment string

	now func() time.Time
}

func NewDataService(sdk *banksdk.Client, tokens *TokenService, st store.Store, env string) *DataService {
	return &DataService{
		SDK:         sdk,
		Tokens:      tokens,
		Store:       st,
		Mock:        &MockGenerator{},
		Environment: env,
		now:         time.Now,
	}
}

func (s *DataService) sandbox() bool { return s.Environment == EnvSandbox }

// GetAccounts fetches the account list, writing through to the cache on a
// live result.
func (s *DataService) GetAccounts(ctx context.Context) (AccountsResult, error) {
	token, err := s.Tokens.AccessToken(ctx)
	if err != nil {
		return AccountsResult{}, err
	}

	raw, err := s.SDK.GetAccounts(ctx, token)
	if err != nil {
		cached, cerr := s.cachedAccounts(ctx, err)
		if cerr != nil {
			return AccountsResult{}, cerr
		}
		return cached, nil
	}

	accounts := make([]domain.Account, 0, len(raw))
	for _, a := range raw {
		accounts = append(accounts, mapAccount(a))
	}

	if len(accounts) == 0 && s.sandbox() {
		slogx.FromContext(ctx).Info("sandbox returned no accounts, substituting synthetic data")
		return AccountsResult{Accounts: s.Mock.Accounts(), Source: domain.SourceSynthetic}, nil
	}

	s.persistAccounts(ctx, accounts)
	return AccountsResult{Accounts: accounts, Source: domain.SourceLive}, nil
}

// GetBalances fetches balance snapshots for the given accounts, or for every
// cached account when accountIDs is empty.
func (s *DataService) GetBalances(ctx context.Context, accountIDs []string) (BalancesResult, error) {
	token, err := s.Tokens.AccessToken(ctx)
	if err != nil {
		return BalancesResult{}, err
	}

	if len(accountIDs) == 0 {
		cached, err := s.Store.Accounts().ListAccounts(ctx)
		if err != nil {
			return BalancesResult{}, fmt.Errorf("list accounts for balances: %w", err)
		}
		for _, a := range cached {
			accountIDs = append(accountIDs, a.AccountID)
		}
	}

	raw, err := s.SDK.GetBalances(ctx, token, accountIDs)
	if err != nil {
		cached, cerr := s.cachedBalances(ctx, accountIDs, err)
		if cerr != nil {
			return BalancesResult{}, cerr
		}
		return cached, nil
	}

	balances := make([]domain.Balance, 0, len(raw))
	allZero := true
	for _, b := range raw {
		mapped := mapBalance(b)
		if !mapped.IsZero() {
			allZero = false
		}
		balances = append(balances, mapped)
	}

	// Sandbox providers are known to answer 200 with no snapshots, or with
	// every amount zeroed.
	if (len(balances) == 0 || allZero) && s.sandbox() {
		slogx.FromContext(ctx).Info("sandbox returned no usable balances, substituting synthetic data")
		return BalancesResult{
			Balances: s.Mock.Balances(accountIDs, s.now()),
			Source:   domain.SourceSynthetic,
		}, nil
	}

	s.persistBalances(ctx, balances)
	return BalancesResult{Balances: balances, Source: domain.SourceLive}, nil
}

// GetTransactions fetches one account's transactions within [from, to],
// writing through to the cache on a live result.
func (s *DataService) GetTransactions(ctx context.Context, accountID string, from, to time.Time) (TransactionsResult, error) {
	token, err := s.Tokens.AccessToken(ctx)
	if err != nil {
		return TransactionsResult{}, err
	}

	raw, err := s.SDK.GetTransactions(ctx, token, accountID, from, to)
	if err != nil {
		cached, cerr := s.cachedTransactions(ctx, accountID, from, to, err)
		if cerr != nil {
			return TransactionsResult{}, cerr
		}
		return cached, nil
	}

	txns := make([]domain.Transaction, 0, len(raw))
	for _, t := range raw {
		txns = append(txns, mapTransaction(accountID, t))
	}

	if len(txns) == 0 && s.sandbox() {
		return TransactionsResult{
			Transactions: s.Mock.Transactions(accountID, from, to),
			Source:       domain.SourceSynthetic,
		}, nil
	}

	s.persistTransactions(ctx, txns)
	return TransactionsResult{Transactions: txns, Source: domain.SourceLive}, nil
}

// TestConnection verifies the token and aggregator reachability with a single
// authenticated call. No fallback: the point is to report the live truth.
func (s *DataService) TestConnection(ctx context.Context) error {
	token, err := s.Tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	if _, err := s.SDK.GetAccounts(ctx, token); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *DataService) cachedAccounts(ctx context.Context, cause error) (AccountsResult, error) {
	cached, err := s.Store.Accounts().ListAccounts(ctx)
	if err != nil || len(cached) == 0 {
		return AccountsResult{}, fmt.Errorf("%w: %w", ErrUnavailable, cause)
	}

	slogx.FromContext(ctx).Warn("accounts fetch failed, serving cached snapshot", "error", cause)
	return AccountsResult{Accounts: cached, Source: domain.SourceCache}, nil
}

func (s *DataService) cachedBalances(ctx context.Context, accountIDs []string, cause error) (BalancesResult, error) {
	cached, err := s.Store.Balances().ListBalances(ctx, accountIDs)
	if err != nil || len(cached) == 0 {
		return BalancesResult{}, fmt.Errorf("%w: %w", ErrUnavailable, cause)
	}

	slogx.FromContext(ctx).Warn("balances fetch failed, serving cached snapshot", "error", cause)
	return BalancesResult{Balances: cached, Source: domain.SourceCache}, nil
}

func (s *DataService) cachedTransactions(ctx context.Context, accountID string, from, to time.Time, cause error) (TransactionsResult, error) {
	cached, err := s.Store.Transactions().ListByAccount(ctx, accountID, from, to)
	if err != nil || len(cached) == 0 {
		return TransactionsResult{}, fmt.Errorf("%w: %w", ErrUnavailable, cause)
	}

	slogx.FromContext(ctx).Warn("transactions fetch failed, serving cached snapshot",
		"account_id", accountID,
		"error", cause,
	)
	return TransactionsResult{Transactions: cached, Source: domain.SourceCache}, nil
}

// Cache writes are best effort and gated on the connection still existing: a
// disconnect mid-flight must not resurrect data after the tokens are gone.

func (s *DataService) persistAccounts(ctx context.Context, accounts []domain.Account) {
	if !s.Tokens.Connected() {
		return
	}
	if err := s.Store.Accounts().ReplaceAccounts(ctx, accounts); err != nil {
		slogx.FromContext(ctx).Warn("failed to cache accounts", "error", err)
	}
}

func (s *DataService) persistBalances(ctx context.Context, balances []domain.Balance) {
	if !s.Tokens.Connected() {
		return
	}
	for _, b := range balances {
		if err := s.Store.Balances().UpsertBalance(ctx, b); err != nil {
			slogx.FromContext(ctx).Warn("failed to cache balance",
				"account_id", b.AccountID,
				"error", err,
			)
		}
	}
}

func (s *DataService) persistTransactions(ctx context.Context, txns []domain.Transaction) {
	if !s.Tokens.Connected() || len(txns) == 0 {
		return
	}
	if err := s.Store.Transactions().UpsertTransactions(ctx, txns); err != nil {
		slogx.FromContext(ctx).Warn("failed to cache transactions", "error", err)
	}
}

func mapAccount(a banksdk.Account) domain.Account {
	return domain.Account{
		AccountID:    a.AccountID,
		AccountType:  domain.AccountType(a.AccountType),
		Currency:     a.Currency,
		DisplayName:  a.DisplayName,
		ProviderName: a.Provider.DisplayName,
	}
}

func mapBalance(b banksdk.Balance) domain.Balance {
	return domain.Balance{
		AccountID: b.AccountID,
		Current:   b.Current,
		Available: b.Available,
		Overdraft: b.Overdraft,
		Limit:     b.CreditLimit,
		Currency:  b.Currency,
		UpdatedAt: b.UpdateTimestamp,
	}
}

func mapTransaction(accountID string, t banksdk.Transaction) domain.Transaction {
	out := domain.Transaction{
		TransactionID: t.TransactionID,
		AccountID:     accountID,
		Timestamp:     t.Timestamp,
		Description:   t.Description,
		Type:          domain.TransactionType(t.TransactionType),
		Category:      t.TransactionCategory,
		Amount:        t.Amount,
		Currency:      t.Currency,
		MerchantName:  t.MerchantName,
	}
	if t.RunningBalance != nil {
		amount := t.RunningBalance.Amount
		out.RunningBalance = &amount
	}
	return out
}
