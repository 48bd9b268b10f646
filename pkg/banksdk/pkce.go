package banksdk

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/aussiebroadwan/banklink/pkg/cryptox"
)

// Verifier length bounds per RFC 7636 §4.1.
const (
	MinVerifierLength     = 43
	MaxVerifierLength     = 128
	DefaultVerifierLength = 64
)

// verifierCharset is the RFC 7636 unreserved character set.
const verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// PKCEChallenge holds the PKCE verifier and challenge pair.
// The verifier is kept secret by the client, and the challenge is sent to the
// authorization endpoint.
type PKCEChallenge struct {
	// Verifier is the high-entropy cryptographic random string (kept secret)
	Verifier string

	// Challenge is the base64url-encoded SHA256 hash of the verifier (sent to server)
	Challenge string

	// Method is always "S256" for SHA256
	Method string
}

// NewPKCEChallenge creates a new PKCE code verifier and challenge pair using
// the default verifier length.
func NewPKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := GenerateVerifier(DefaultVerifierLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
		Method:    "S256",
	}, nil
}

// GenerateVerifier creates a random PKCE code verifier of the given length,
// drawn uniformly from the RFC 7636 unreserved set [A-Za-z0-9-._~].
// Length must be within [43, 128]. Uses crypto/rand exclusively.
func GenerateVerifier(length int) (string, error) {
	if length < MinVerifierLength || length > MaxVerifierLength {
		return "", fmt.Errorf("verifier length must be in [%d, %d], got %d",
			MinVerifierLength, MaxVerifierLength, length)
	}

	// Rejection sampling keeps the distribution uniform across the 66-char set.
	// Bytes >= 198 (3*66) would bias the modulo and are discarded.
	const limit = byte(3 * len(verifierCharset))

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, verifierCharset[int(b)%len(verifierCharset)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// ChallengeS256 computes the S256 code challenge for a verifier:
// BASE64URL(SHA256(verifier)), without padding. Deterministic pure function.
func ChallengeS256(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState creates a short random anti-CSRF token for the redirect
// callback. The caller must compare it byte-for-byte against the state
// returned by the authorization server before exchanging the code.
func GenerateState() (string, error) {
	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return state, nil
}
