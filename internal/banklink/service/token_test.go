package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/internal/banklink/store"
	"github.com/aussiebroadwan/banklink/internal/banklink/store/drivers/sqlite"
	"github.com/aussiebroadwan/banklink/pkg/banksdk"
	"github.com/aussiebroadwan/banklink/pkg/cryptox"
	"github.com/aussiebroadwan/banklink/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newVault(t *testing.T) *store.TokenVault {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	return store.NewTokenVault(st)
}

func newTokenService(t *testing.T, handler http.HandlerFunc) (*TokenService, *store.TokenVault) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sdk := banksdk.NewClient(banksdk.Config{
		AuthBaseURL: srv.URL,
		APIBaseURL:  srv.URL,
		ClientID:    "client-1",
	})

	vault := newVault(t)
	return NewTokenService(sdk, vault), vault
}

func writeTokenJSON(w http.ResponseWriter, access, refresh string, expiresIn int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    expiresIn,
		"scope":         "accounts balance transactions",
	})
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": "rejected",
	})
}

func TestExchangeCodeEstablishesConnection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, vault := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		require.Equal(t, "abc123", r.PostForm.Get("code"))
		require.Equal(t, "app://callback", r.PostForm.Get("redirect_uri"))
		writeTokenJSON(w, "AT1", "RT1", 3600)
	})

	before := time.Now()
	require.NoError(t, svc.ExchangeCode(ctx, "abc123", "the-verifier", "app://callback"))

	require.True(t, svc.Connected())
	require.True(t, svc.IsValid())
	require.WithinDuration(t, before.Add(3600*time.Second), svc.ExpiresAt(), 5*time.Second)

	stored, err := vault.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "AT1", stored.AccessToken)
	require.Equal(t, "RT1", stored.RefreshToken)
}

func TestTokenLogsCarryFingerprintNotValue(t *testing.T) {
	t.Parallel()

	const accessToken = "very-secret-access-token-value"

	svc, _ := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
		writeTokenJSON(w, accessToken, "RT1", 3600)
	})

	var logs bytes.Buffer
	ctx := slogx.WithContext(context.Background(),
		slog.New(slog.NewTextHandler(&logs, nil)))

	require.NoError(t, svc.ExchangeCode(ctx, "abc123", "v", "app://callback"))

	require.Contains(t, logs.String(), cryptox.FingerprintToken(accessToken))
	require.NotContains(t, logs.String(), accessToken)
}

func TestExchangeCodeErrorClassification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("invalid_grant means code expired or used", func(t *testing.T) {
		svc, _ := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
		})

		err := svc.ExchangeCode(ctx, "stale", "v", "app://callback")
		require.ErrorIs(t, err, ErrCodeRejected)
		require.False(t, svc.Connected())
	})

	t.Run("invalid_request means redirect mismatch", func(t *testing.T) {
		svc, _ := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		})

		err := svc.ExchangeCode(ctx, "abc", "v", "app://other")
		require.ErrorIs(t, err, ErrRedirectMismatch)
	})
}

func TestValidityMarginBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	svc, _ := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {})
	svc.now = func() time.Time { return now }

	svc.tokens = domain.TokenSet{
		AccessToken:  "AT",
		RefreshToken: "RT",
		ExpiresAt:    now.Add(31 * time.Second),
	}
	require.True(t, svc.IsValid())

	svc.tokens.ExpiresAt = now.Add(29 * time.Second)
	require.False(t, svc.IsValid())

	svc.tokens = domain.TokenSet{}
	require.False(t, svc.IsValid())
	require.False(t, svc.Connected())
}

func TestConcurrentRefreshIsSingleFlight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var refreshCalls atomic.Int32
	svc, vault := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		refreshCalls.Add(1)
		time.Sleep(50 * time.Millisecond) // widen the race window
		writeTokenJSON(w, "AT2", "RT2", 3600)
	})

	expired := domain.TokenSet{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, vault.Save(ctx, expired))
	require.NoError(t, svc.Load(ctx))

	const callers = 10
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = svc.AccessToken(ctx)
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, refreshCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "AT2", tokens[i])
	}
}

func TestFailedRefreshPreservesStoredTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, vault := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	expired := domain.TokenSet{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, vault.Save(ctx, expired))
	require.NoError(t, svc.Load(ctx))

	_, err := svc.AccessToken(ctx)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAuthRequired) // transient server error, not a rejection

	// The stored refresh token must be untouched after the failure.
	stored, err := vault.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "RT1", stored.RefreshToken)
	require.True(t, svc.Connected())
	require.Equal(t, 1, svc.RefreshFailures())
}

func TestRejectedRefreshSignalsAuthRequiredWithoutClearing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, vault := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
	})

	require.NoError(t, vault.Save(ctx, domain.TokenSet{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))
	require.NoError(t, svc.Load(ctx))

	_, err := svc.AccessToken(ctx)
	require.ErrorIs(t, err, ErrAuthRequired)

	// Even a permanent rejection never destroys stored tokens; only an
	// explicit disconnect does.
	stored, err := vault.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "RT1", stored.RefreshToken)
}

func TestRefreshResponseWithoutRefreshTokenKeepsCurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, vault := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
		writeTokenJSON(w, "AT2", "", 3600)
	})

	require.NoError(t, vault.Save(ctx, domain.TokenSet{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))
	require.NoError(t, svc.Load(ctx))

	token, err := svc.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "AT2", token)

	stored, err := vault.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "RT1", stored.RefreshToken)
}

func TestExpiryFallsBackToJWTExpClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	exp := time.Now().Add(45 * time.Minute).Truncate(time.Second)
	access := unsignedJWT(t, exp)

	svc, _ := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
		writeTokenJSON(w, access, "RT1", 0) // expires_in omitted
	})

	require.NoError(t, svc.ExchangeCode(ctx, "abc", "v", "app://callback"))
	require.WithinDuration(t, exp, svc.ExpiresAt(), time.Second)
}

func TestDisconnectClearsEverything(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, vault := newTokenService(t, func(w http.ResponseWriter, r *http.Request) {
		writeTokenJSON(w, "AT1", "RT1", 3600)
	})
	require.NoError(t, svc.ExchangeCode(ctx, "abc", "v", "app://callback"))
	require.True(t, svc.Connected())

	require.NoError(t, svc.Disconnect(ctx))

	require.False(t, svc.Connected())
	stored, err := vault.Load(ctx)
	require.NoError(t, err)
	require.True(t, stored.IsZero())

	_, err = svc.AccessToken(ctx)
	require.ErrorIs(t, err, ErrAuthRequired)
}

// unsignedJWT builds a JWT with only an exp claim and an empty signature,
// enough for unverified parsing.
func unsignedJWT(t *testing.T, exp time.Time) string {
	t.Helper()

	encode := func(v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}

	header := encode(map[string]string{"alg": "none", "typ": "JWT"})
	claims := encode(map[string]int64{"exp": exp.Unix()})
	return fmt.Sprintf("%s.%s.", header, claims)
}
