package domain

// AccountType classifies an account as reported by the aggregator.
type AccountType string

const (
	AccountTypeTransaction AccountType = "TRANSACTION"
	AccountTypeSavings     AccountType = "SAVINGS"
	AccountTypeCreditCard  AccountType = "CREDIT_CARD"
)

// Account is immutable reference data for one connected bank account,
// keyed by AccountID and re-fetched wholesale on every full sync.
type Account struct {
	AccountID    string      `json:"account_id"`
	AccountType  AccountType `json:"account_type"`
	Currency     string      `json:"currency"`
	DisplayName  string      `json:"display_name"`
	ProviderName string      `json:"provider_name"`
}
