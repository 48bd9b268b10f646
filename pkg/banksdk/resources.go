package banksdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxResourceResponseSize bounds how much of a data response we will read.
// Transaction histories can be large but a well-behaved aggregator pages
// long before this.
const maxResourceResponseSize = 8 << 20 // 8MB

// GetAccounts lists all accounts the user has connected.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var out struct {
		Results []Account `json:"results"`
	}
	if err := c.getJSON(ctx, accessToken, "/data/v1/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// GetBalances fetches balance snapshots for the given accounts. It first
// tries the bulk balances endpoint; aggregators that do not offer one answer
// 404 or 405, in which case it falls back to per-account fetches.
func (c *Client) GetBalances(ctx context.Context, accessToken string, accountIDs []string) ([]Balance, error) {
	var out struct {
		Results []Balance `json:"results"`
	}
	err := c.getJSON(ctx, accessToken, "/data/v1/balances", nil, &out)
	if err == nil {
		return out.Results, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) ||
		(apiErr.StatusCode != http.StatusNotFound && apiErr.StatusCode != http.StatusMethodNotAllowed) {
		return nil, err
	}

	balances := make([]Balance, 0, len(accountIDs))
	for _, id := range accountIDs {
		balance, err := c.GetAccountBalance(ctx, accessToken, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch balance for account %s: %w", id, err)
		}
		balances = append(balances, *balance)
	}
	return balances, nil
}

// GetAccountBalance fetches the balance snapshot for a single account.
func (c *Client) GetAccountBalance(ctx context.Context, accessToken, accountID string) (*Balance, error) {
	endpoint := fmt.Sprintf("/data/v1/accounts/%s/balance", url.PathEscape(accountID))

	var out struct {
		Results []Balance `json:"results"`
	}
	if err := c.getJSON(ctx, accessToken, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("empty results")}
	}

	balance := out.Results[0]
	if balance.AccountID == "" {
		balance.AccountID = accountID
	}
	return &balance, nil
}

// GetTransactions fetches transactions for one account. from and to bound the
// window when non-zero and are sent as RFC3339 date query parameters.
func (c *Client) GetTransactions(
	ctx context.Context,
	accessToken, accountID string,
	from, to time.Time,
) ([]Transaction, error) {
	endpoint := fmt.Sprintf("/data/v1/accounts/%s/transactions", url.PathEscape(accountID))

	params := url.Values{}
	if !from.IsZero() {
		params.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		params.Set("to", to.UTC().Format(time.RFC3339))
	}

	var out struct {
		Results []Transaction `json:"results"`
	}
	if err := c.getJSON(ctx, accessToken, endpoint, params, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// getJSON performs a Bearer-authenticated GET against the data API and
// decodes the JSON response into v. Non-2xx responses become *APIError;
// undecodable 2xx bodies become *DecodeError.
func (c *Client) getJSON(
	ctx context.Context,
	accessToken, endpoint string,
	params url.Values,
	v any,
) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	target := c.APIBaseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Body:       string(body),
		}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}

	return nil
}
