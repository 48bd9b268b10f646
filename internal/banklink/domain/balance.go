package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the current balance snapshot for one account. Exactly one
// snapshot exists per account; each sync overwrites it in place. No history
// is retained at this layer.
type Balance struct {
	AccountID string           `json:"account_id"`
	Current   decimal.Decimal  `json:"current"`
	Available decimal.Decimal  `json:"available"`
	Overdraft *decimal.Decimal `json:"overdraft,omitempty"`
	Limit     *decimal.Decimal `json:"limit,omitempty"`
	Currency  string           `json:"currency"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// IsZero reports whether the snapshot carries no usable amounts. Sandbox
// providers are known to answer 200 with all-zero balances.
func (b Balance) IsZero() bool {
	return b.Current.IsZero() && b.Available.IsZero()
}
