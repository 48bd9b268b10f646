// Package banksdk is a client for an open-banking data aggregator.
//
// It covers the OAuth2 authorization-code flow with PKCE (authorize URL
// building, callback parsing, code exchange, refresh grant) and the
// Bearer-authenticated data endpoints (accounts, balances, transactions).
//
// The package is purely protocol-level: it holds no tokens and persists
// nothing. Token lifecycle, caching and scheduling live with the caller.
package banksdk
