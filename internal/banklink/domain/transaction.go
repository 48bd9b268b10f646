package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TransactionDebit  TransactionType = "DEBIT"
	TransactionCredit TransactionType = "CREDIT"
)

// Transaction is a single posted transaction, uniquely identified by
// TransactionID and immutable once fetched. Within the rolling fetch window
// records are upserted by id, so re-fetching the same window is idempotent.
type Transaction struct {
	TransactionID  string           `json:"transaction_id"`
	AccountID      string           `json:"account_id"`
	Timestamp      time.Time        `json:"timestamp"`
	Description    string           `json:"description"`
	Type           TransactionType  `json:"type"`
	Category       string           `json:"category"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	MerchantName   string           `json:"merchant_name,omitempty"`
	RunningBalance *decimal.Decimal `json:"running_balance,omitempty"`
}
