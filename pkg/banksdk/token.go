package banksdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxTokenResponseSize bounds how much of a token response we will read.
const maxTokenResponseSize = 1 << 20 // 1MB

// ExchangeAuthorizationCode exchanges an authorization code for tokens.
// This completes the authorization code flow by trading the code for an
// access token and refresh token.
//
// redirectURI must be byte-identical to the one used in the authorization
// request; the value is passed through without re-encoding. codeVerifier is
// the PKCE verifier from the original PKCEChallenge.
//
// A non-2xx response is returned as *OAuth2Error: invalid_grant means the
// code expired or was already used, invalid_request typically means the
// redirect URI did not match.
func (c *Client) ExchangeAuthorizationCode(
	ctx context.Context,
	code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {c.ClientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}

	return c.requestToken(ctx, data)
}

// RefreshGrant requests new tokens using a refresh token.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.ClientID},
	}

	return c.requestToken(ctx, data)
}

func (c *Client) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.AuthBaseURL+"/connect/token",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseTokenError(resp, body)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, &DecodeError{Endpoint: "/connect/token", Err: err}
	}

	if tokenResp.AccessToken == "" {
		return nil, &DecodeError{
			Endpoint: "/connect/token",
			Err:      fmt.Errorf("response missing access_token"),
		}
	}

	return &tokenResp, nil
}
