package service

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/shopspring/decimal"
)

// SyntheticProvider names the provider on generated records so they are
// recognizable even when the data-source flag gets lost downstream.
const SyntheticProvider = "Synthetic Data"

var (
	mockMerchants = []string{
		"Corner Grocer", "Metro Transit", "Beanline Espresso", "Statewide Energy",
		"Harbour Cinemas", "Fresh Direct", "City Pharmacy", "Northside Gym",
	}
	mockCategories = []string{
		"groceries", "transport", "dining", "utilities",
		"entertainment", "groceries", "health", "lifestyle",
	}
)

// MockGenerator produces deterministic synthetic account data for sandbox
// providers that answer with empty or all-zero payloads. All output is seeded
// from the account id, so repeated calls yield identical records. math/rand
// is fine here: this is display filler, not key material.
type MockGenerator struct{}

// Accounts returns the fixed synthetic account set.
func (g *MockGenerator) Accounts() []domain.Account {
	return []domain.Account{
		{
			AccountID:    "synthetic-everyday",
			AccountType:  domain.AccountTypeTransaction,
			Currency:     "AUD",
			DisplayName:  "Everyday Account",
			ProviderName: SyntheticProvider,
		},
		{
			AccountID:    "synthetic-savings",
			AccountType:  domain.AccountTypeSavings,
			Currency:     "AUD",
			DisplayName:  "Savings Account",
			ProviderName: SyntheticProvider,
		},
		{
			AccountID:    "synthetic-credit",
			AccountType:  domain.AccountTypeCreditCard,
			Currency:     "AUD",
			DisplayName:  "Credit Card",
			ProviderName: SyntheticProvider,
		},
	}
}

// Balance returns a non-zero balance snapshot for the given account id.
func (g *MockGenerator) Balance(accountID string, now time.Time) domain.Balance {
	rng := seededRand(accountID)

	// Cents between $250.00 and $10,249.99 so the snapshot never reads as
	// the zero balance the fallback exists to avoid.
	current := decimal.New(25000+rng.Int63n(1_000_000), -2)
	available := current.Sub(decimal.New(rng.Int63n(10_000), -2))

	return domain.Balance{
		AccountID: accountID,
		Current:   current,
		Available: available,
		Currency:  "AUD",
		UpdatedAt: now,
	}
}

// Balances returns one snapshot per account id.
func (g *MockGenerator) Balances(accountIDs []string, now time.Time) []domain.Balance {
	out := make([]domain.Balance, 0, len(accountIDs))
	for _, id := range accountIDs {
		out = append(out, g.Balance(id, now))
	}
	return out
}

// Transactions returns a deterministic transaction history for an account
// within [from, to], newest first, roughly one record per day.
func (g *MockGenerator) Transactions(accountID string, from, to time.Time) []domain.Transaction {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return nil
	}

	rng := seededRand(accountID)
	days := int(to.Sub(from).Hours() / 24)

	out := make([]domain.Transaction, 0, days)
	for i := 0; i < days; i++ {
		pick := rng.Intn(len(mockMerchants))
		amount := decimal.New(-(200 + rng.Int63n(15_000)), -2)

		txnType := domain.TransactionDebit
		if rng.Intn(10) == 0 {
			txnType = domain.TransactionCredit
			amount = amount.Neg()
		}

		out = append(out, domain.Transaction{
			TransactionID: fmt.Sprintf("synthetic-%s-%d", accountID, i),
			AccountID:     accountID,
			Timestamp:     to.Add(-time.Duration(i*24+rng.Intn(12)) * time.Hour),
			Description:   mockMerchants[pick],
			Type:          txnType,
			Category:      mockCategories[pick],
			Amount:        amount,
			Currency:      "AUD",
			MerchantName:  mockMerchants[pick],
		})
	}
	return out
}

// seededRand derives a deterministic PRNG from an account id.
func seededRand(accountID string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(accountID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
