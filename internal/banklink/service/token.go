package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/internal/banklink/store"
	"github.com/aussiebroadwan/banklink/pkg/banksdk"
	"github.com/aussiebroadwan/banklink/pkg/cryptox"
	"github.com/aussiebroadwan/banklink/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenTTL is assumed when the token endpoint omits expires_in and the
// access token carries no readable exp claim.
const defaultTokenTTL = time.Hour

// TokenService owns the token set for the single bank connection: it is the
// only component that mutates tokens. It keeps the current set in memory,
// persists it through the sealed vault, and refreshes it on demand.
//
// The refresh path is single-flight: concurrent callers needing a fresh token
// serialize on one network refresh, because the aggregator invalidates a
// refresh token on first use.
type TokenService struct {
	SDK   *banksdk.Client
	Vault *store.TokenVault

	// now is the clock, swappable in tests.
	now func() time.Time

	mu              sync.Mutex
	tokens          domain.TokenSet
	refreshFailures int

	// refreshMu serializes refresh attempts. Held across the network call,
	// so it must never be acquired while holding mu.
	refreshMu sync.Mutex
}

func NewTokenService(sdk *banksdk.Client, vault *store.TokenVault) *TokenService {
	return &TokenService{
		SDK:   sdk,
		Vault: vault,
		now:   time.Now,
	}
}

// Load repopulates the in-memory token set from the vault. Called once at
// startup; an empty vault just means "not connected".
func (s *TokenService) Load(ctx context.Context) error {
	ts, err := s.Vault.Load(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}

	s.mu.Lock()
	s.tokens = ts
	s.mu.Unlock()
	return nil
}

// Connected reports whether a bank connection exists, regardless of whether
// the access token is currently fresh.
func (s *TokenService) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.tokens.IsZero()
}

// IsValid reports whether the current access token is usable right now.
// Pure state check, no I/O.
func (s *TokenService) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.Valid(s.now())
}

// ExpiresAt returns the absolute expiry of the current access token, zero
// when not connected.
func (s *TokenService) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.ExpiresAt
}

// Scope returns the space-delimited scopes granted to the current token set.
func (s *TokenService) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.Scope
}

// RefreshFailures returns the number of consecutive failed refresh attempts
// since the last success. Surfaced in status so the UI can decide when to
// prompt reconnection.
func (s *TokenService) RefreshFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshFailures
}

// ExchangeCode trades an authorization code for a token set and persists it.
// redirectURI must be byte-identical to the one used at authorization.
func (s *TokenService) ExchangeCode(ctx context.Context, code, verifier, redirectURI string) error {
	resp, err := s.SDK.ExchangeAuthorizationCode(ctx, code, redirectURI, verifier)
	if err != nil {
		var oerr *banksdk.OAuth2Error
		if errors.As(err, &oerr) {
			switch {
			case oerr.IsInvalidGrant():
				return fmt.Errorf("%w: %w", ErrCodeRejected, err)
			case oerr.IsInvalidRequest():
				return fmt.Errorf("%w: %w", ErrRedirectMismatch, err)
			}
		}
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	if err := s.storeResponse(ctx, resp); err != nil {
		return err
	}

	// Fingerprints let log lines be correlated with a token without the
	// token value itself ever reaching the logs.
	slogx.FromContext(ctx).Info("bank connection established",
		"scope", resp.Scope,
		"expires_in", resp.ExpiresIn,
		"access_token_fingerprint", cryptox.FingerprintToken(resp.AccessToken),
	)
	return nil
}

// AccessToken returns a currently valid access token, refreshing first when
// the stored one is missing or inside the safety margin.
func (s *TokenService) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	ts := s.tokens
	s.mu.Unlock()

	if ts.IsZero() {
		return "", ErrAuthRequired
	}
	if ts.Valid(s.now()) {
		return ts.AccessToken, nil
	}
	return s.refresh(ctx)
}

// Refresh forces a refresh grant, sharing any in-flight attempt.
func (s *TokenService) Refresh(ctx context.Context) error {
	_, err := s.refresh(ctx)
	return err
}

func (s *TokenService) refresh(ctx context.Context) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have finished a refresh while we waited on the lock.
	s.mu.Lock()
	ts := s.tokens
	s.mu.Unlock()
	if ts.Valid(s.now()) {
		return ts.AccessToken, nil
	}
	if ts.RefreshToken == "" {
		return "", ErrAuthRequired
	}

	resp, err := s.SDK.RefreshGrant(ctx, ts.RefreshToken)
	if err != nil {
		// The stored set is left untouched: a transient failure must not
		// force re-authentication. Only explicit Disconnect clears tokens.
		s.mu.Lock()
		s.refreshFailures++
		failures := s.refreshFailures
		s.mu.Unlock()

		slogx.FromContext(ctx).Warn("token refresh failed",
			"consecutive_failures", failures,
			"error", err,
		)

		var oerr *banksdk.OAuth2Error
		if errors.As(err, &oerr) && oerr.IsInvalidGrant() {
			return "", fmt.Errorf("%w: refresh token rejected: %w", ErrAuthRequired, err)
		}
		return "", fmt.Errorf("refresh token grant: %w", err)
	}

	if err := s.storeResponse(ctx, resp); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.refreshFailures = 0
	token := s.tokens.AccessToken
	s.mu.Unlock()

	slogx.FromContext(ctx).Info("access token refreshed",
		"access_token_fingerprint", cryptox.FingerprintToken(token),
	)
	return token, nil
}

// Disconnect clears the token set from memory and the vault. This is the only
// path that destroys tokens.
func (s *TokenService) Disconnect(ctx context.Context) error {
	if err := s.Vault.Clear(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.tokens = domain.TokenSet{}
	s.refreshFailures = 0
	s.mu.Unlock()

	slogx.FromContext(ctx).Info("bank connection cleared")
	return nil
}

// storeResponse converts a token endpoint response into a TokenSet with an
// absolute expiry and replaces the current set wholesale, in memory and in
// the vault.
func (s *TokenService) storeResponse(ctx context.Context, resp *banksdk.TokenResponse) error {
	now := s.now()

	ts := domain.TokenSet{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
	}

	switch {
	case resp.ExpiresIn > 0:
		ts.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	default:
		// Some aggregators omit expires_in when the access token is a JWT;
		// fall back to its unverified exp claim.
		if exp := jwtExpiry(resp.AccessToken); !exp.IsZero() {
			ts.ExpiresAt = exp
		} else {
			ts.ExpiresAt = now.Add(defaultTokenTTL)
		}
	}

	// A refresh response may omit the refresh token, meaning it is still the
	// current one.
	if ts.RefreshToken == "" {
		s.mu.Lock()
		ts.RefreshToken = s.tokens.RefreshToken
		s.mu.Unlock()
	}

	if err := s.Vault.Save(ctx, ts); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	s.mu.Lock()
	s.tokens = ts
	s.mu.Unlock()
	return nil
}

// jwtExpiry extracts the exp claim from a JWT access token without verifying
// the signature. We are the party the token was issued to, not its audience;
// only the timestamp is of interest. Returns zero for opaque tokens.
func jwtExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
