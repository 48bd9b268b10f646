package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/pkg/banksdk"
	"github.com/aussiebroadwan/banklink/pkg/slogx"
)

// ConnectService drives the interactive authorization flow: it owns the
// single in-flight PKCE session between "start" and "callback". Starting a
// new authorization discards any session already in flight; the session is
// never persisted.
type ConnectService struct {
	SDK         *banksdk.Client
	Tokens      *TokenService
	RedirectURI string

	now func() time.Time

	mu      sync.Mutex
	session *domain.PkceSession
}

func NewConnectService(sdk *banksdk.Client, tokens *TokenService, redirectURI string) *ConnectService {
	return &ConnectService{
		SDK:         sdk,
		Tokens:      tokens,
		RedirectURI: redirectURI,
		now:         time.Now,
	}
}

// Start begins a new authorization and returns the URL to open in the
// user's browser. providerID optionally pre-selects a bank.
func (s *ConnectService) Start(ctx context.Context, providerID string) (string, error) {
	pkce, err := banksdk.NewPKCEChallenge()
	if err != nil {
		return "", fmt.Errorf("start authorization: %w", err)
	}

	state, err := banksdk.GenerateState()
	if err != nil {
		return "", fmt.Errorf("start authorization: %w", err)
	}

	session := &domain.PkceSession{
		CodeVerifier:  pkce.Verifier,
		CodeChallenge: pkce.Challenge,
		State:         state,
		RedirectURI:   s.RedirectURI,
		ProviderID:    providerID,
		StartedAt:     s.now(),
	}

	s.mu.Lock()
	discarded := s.session != nil
	s.session = session
	s.mu.Unlock()

	l := slogx.FromContext(ctx)
	if discarded {
		l.Info("discarded in-flight authorization session")
	}
	l.Info("authorization started", "provider_id", providerID)

	return s.SDK.BuildAuthorizeURL(s.RedirectURI, state, providerID, nil, pkce), nil
}

// Complete handles the authorization callback. The state is compared in
// constant time against the session's; on mismatch the exchange is aborted
// before any request leaves the process and the session is discarded.
func (s *ConnectService) Complete(ctx context.Context, code, state string) error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return ErrNoPendingConnect
	}

	if subtle.ConstantTimeCompare([]byte(session.State), []byte(state)) != 1 {
		slogx.FromContext(ctx).Warn("authorization callback state mismatch")
		return ErrStateMismatch
	}

	if err := s.Tokens.ExchangeCode(ctx, code, session.CodeVerifier, session.RedirectURI); err != nil {
		return err
	}
	return nil
}

// Pending reports whether an authorization is waiting on its callback.
func (s *ConnectService) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Cancel discards any in-flight authorization session.
func (s *ConnectService) Cancel() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}
