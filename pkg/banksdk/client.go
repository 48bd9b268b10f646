package banksdk

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultScopes are the read-only data scopes requested during authorization.
// offline_access is required for the aggregator to issue a refresh token.
var DefaultScopes = []string{"info", "accounts", "balance", "transactions", "offline_access"}

// Config configures a Client.
type Config struct {
	// AuthBaseURL is the authorization server base URL (authorize + token endpoints).
	AuthBaseURL string

	// APIBaseURL is the data API base URL (accounts, balances, transactions).
	APIBaseURL string

	// ClientID identifies this application to the aggregator.
	ClientID string

	// HTTPClient is optional; a 30s-timeout client is used when nil.
	HTTPClient *http.Client

	// RequestsPerSecond caps outbound data API calls. Zero disables limiting.
	RequestsPerSecond float64
}

// Client is a client for the aggregator's OAuth2 and data endpoints.
type Client struct {
	AuthBaseURL string
	APIBaseURL  string
	ClientID    string
	HTTPClient  *http.Client

	limiter *rate.Limiter
}

// NewClient creates a new aggregator client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		AuthBaseURL: strings.TrimSuffix(cfg.AuthBaseURL, "/"),
		APIBaseURL:  strings.TrimSuffix(cfg.APIBaseURL, "/"),
		ClientID:    cfg.ClientID,
		HTTPClient:  httpClient,
		limiter:     limiter,
	}
}
