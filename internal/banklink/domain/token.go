package domain

import (
	"time"
)

// ValidityMargin is subtracted from the token expiry when deciding whether a
// token is still usable. It absorbs clock skew and in-flight request latency.
const ValidityMargin = 30 * time.Second

// TokenSet holds the aggregator credentials for the current connection.
// ExpiresAt is always an absolute instant, computed at receipt time as
// now + expires_in. A refresh overwrites the whole set; there are no partial
// updates.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"` // space-delimited
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the access token is usable at the given instant:
// present and not within ValidityMargin of expiry. A token expiring in 31s
// is valid; one expiring in 29s is not.
func (t TokenSet) Valid(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-ValidityMargin))
}

// IsZero reports whether no token set is present (Unauthenticated).
func (t TokenSet) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// PkceSession is the ephemeral state between "start authorization" and
// "exchange code". Never persisted; exactly one may be active at a time and
// starting a new authorization discards any in-flight one.
type PkceSession struct {
	CodeVerifier  string
	CodeChallenge string
	State         string
	RedirectURI   string
	ProviderID    string
	StartedAt     time.Time
}
