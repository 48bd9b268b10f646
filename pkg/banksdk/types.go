package banksdk

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
// Returned for both authorization_code and refresh_token grants.
type TokenResponse struct {
	// AccessToken is the bearer token used to authenticate data API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque refresh token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer" per OAuth2 spec
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// Provider identifies the bank behind an account.
type Provider struct {
	ProviderID  string `json:"provider_id"`
	DisplayName string `json:"display_name"`
}

// Account is one account as reported by the aggregator.
type Account struct {
	AccountID   string   `json:"account_id"`
	AccountType string   `json:"account_type"` // TRANSACTION, SAVINGS, CREDIT_CARD
	Currency    string   `json:"currency"`
	DisplayName string   `json:"display_name"`
	Provider    Provider `json:"provider"`
}

// Balance is the current balance snapshot for an account.
// AccountID is populated on the bulk endpoint; the per-account endpoint
// returns it empty and the caller fills it in.
type Balance struct {
	AccountID       string           `json:"account_id,omitempty"`
	Currency        string           `json:"currency"`
	Current         decimal.Decimal  `json:"current"`
	Available       decimal.Decimal  `json:"available"`
	Overdraft       *decimal.Decimal `json:"overdraft,omitempty"`
	CreditLimit     *decimal.Decimal `json:"credit_limit,omitempty"`
	UpdateTimestamp time.Time        `json:"update_timestamp"`
}

// RunningBalance is the balance immediately after a transaction posted.
type RunningBalance struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// Transaction is a single posted transaction.
type Transaction struct {
	TransactionID       string          `json:"transaction_id"`
	Timestamp           time.Time       `json:"timestamp"`
	Description         string          `json:"description"`
	TransactionType     string          `json:"transaction_type"` // DEBIT or CREDIT
	TransactionCategory string          `json:"transaction_category"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	MerchantName        string          `json:"merchant_name,omitempty"`
	RunningBalance      *RunningBalance `json:"running_balance,omitempty"`
}
