package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/pkg/cryptox"
)

// TokenVault adapts the Tokens repo into a typed, encrypted credential store.
// Token sets are serialized to JSON and sealed with AES-256-GCM before they
// touch the database, so a copied database file yields no usable credentials.
type TokenVault struct {
	store Store
}

// NewTokenVault wraps a Store with sealing for the credential blob.
func NewTokenVault(store Store) *TokenVault {
	return &TokenVault{store: store}
}

// Load returns the persisted token set. An absent blob returns a zero
// TokenSet and no error: "not connected" is a normal state, not a failure.
func (v *TokenVault) Load(ctx context.Context) (domain.TokenSet, error) {
	blob, err := v.store.Tokens().GetTokenBlob(ctx)
	if errors.Is(err, ErrNotFound) {
		return domain.TokenSet{}, nil
	}
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("load token blob: %w", err)
	}

	plain, err := cryptox.Open(blob)
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("unseal token blob: %w", err)
	}

	var ts domain.TokenSet
	if err := json.Unmarshal(plain, &ts); err != nil {
		return domain.TokenSet{}, fmt.Errorf("decode token blob: %w", err)
	}
	return ts, nil
}

// Save seals and persists the token set, replacing any previous set
// wholesale.
func (v *TokenVault) Save(ctx context.Context, ts domain.TokenSet) error {
	plain, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("encode token set: %w", err)
	}

	blob, err := cryptox.Seal(plain)
	if err != nil {
		return fmt.Errorf("seal token set: %w", err)
	}

	if err := v.store.Tokens().PutTokenBlob(ctx, blob); err != nil {
		return fmt.Errorf("persist token blob: %w", err)
	}
	return nil
}

// Clear removes the persisted token set. Clearing an empty vault is a no-op.
func (v *TokenVault) Clear(ctx context.Context) error {
	if err := v.store.Tokens().DeleteTokenBlob(ctx); err != nil {
		return fmt.Errorf("clear token blob: %w", err)
	}
	return nil
}
