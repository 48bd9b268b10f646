package banksdk

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildAuthorizeURL constructs the OAuth2 authorization URL for the
// authorization code flow. The user's browser should be sent here to begin
// bank selection and consent.
//
// Parameters:
//   - redirectURI: the URI the aggregator redirects back to (must match the
//     registered redirect URI; the exact same string must later be passed to
//     ExchangeAuthorizationCode)
//   - state: opaque anti-CSRF value, validated on the callback
//   - providerID: pre-selects a bank provider (optional, empty for all)
//   - scopes: scopes to request (DefaultScopes when empty)
//   - pkce: PKCE challenge (required; the aggregator treats this client as public)
func (c *Client) BuildAuthorizeURL(
	redirectURI, state, providerID string,
	scopes []string,
	pkce *PKCEChallenge,
) string {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", strings.Join(scopes, " "))

	if state != "" {
		params.Set("state", state)
	}

	if providerID != "" {
		params.Set("provider_id", providerID)
	}

	if pkce != nil {
		params.Set("code_challenge", pkce.Challenge)
		params.Set("code_challenge_method", pkce.Method)
	}

	return fmt.Sprintf("%s/authorize?%s", c.AuthBaseURL, params.Encode())
}

// ParseCallback parses the callback URL from an authorization redirect and
// extracts the authorization code and state query parameters.
//
// Returns an error if the callback carries an error response (e.g. the user
// denied consent) or is missing the code. The caller must verify the returned
// state against the one generated at authorization start before exchanging
// the code.
func ParseCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()

	if errorCode := query.Get("error"); errorCode != "" {
		errorDesc := query.Get("error_description")
		return "", "", fmt.Errorf("authorization error: %s - %s", errorCode, errorDesc)
	}

	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback missing authorization code")
	}

	state = query.Get("state")

	return code, state, nil
}
