package store_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/internal/banklink/store"
	"github.com/aussiebroadwan/banklink/internal/banklink/store/drivers/sqlite"

	"github.com/stretchr/testify/require"
)

func newVault(t *testing.T) (*store.TokenVault, store.Store) {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	return store.NewTokenVault(s), s
}

func TestTokenVaultAbsentIsNotAnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vault, _ := newVault(t)

	ts, err := vault.Load(ctx)
	require.NoError(t, err)
	require.True(t, ts.IsZero())
}

func TestTokenVaultRoundtrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vault, _ := newVault(t)

	want := domain.TokenSet{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		TokenType:    "Bearer",
		Scope:        "info accounts balance transactions offline_access",
		ExpiresAt:    time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, vault.Save(ctx, want))

	got, err := vault.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestTokenVaultSaveOverwritesWholesale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vault, _ := newVault(t)

	first := domain.TokenSet{AccessToken: "a1", RefreshToken: "r1", TokenType: "Bearer"}
	second := domain.TokenSet{AccessToken: "a2", RefreshToken: "r2", TokenType: "Bearer"}

	require.NoError(t, vault.Save(ctx, first))
	require.NoError(t, vault.Save(ctx, second))

	got, err := vault.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, second, got)
}

func TestTokenVaultStoresCiphertextOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vault, s := newVault(t)

	ts := domain.TokenSet{AccessToken: "super-secret-access-token", RefreshToken: "r1"}
	require.NoError(t, vault.Save(ctx, ts))

	blob, err := s.Tokens().GetTokenBlob(ctx)
	require.NoError(t, err)
	require.NotContains(t, string(blob), "super-secret-access-token")
	require.False(t, bytes.Contains(blob, []byte("access_token")))
}

func TestTokenVaultClearIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vault, _ := newVault(t)

	require.NoError(t, vault.Save(ctx, domain.TokenSet{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, vault.Clear(ctx))
	require.NoError(t, vault.Clear(ctx))

	got, err := vault.Load(ctx)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}
