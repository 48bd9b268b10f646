package banksdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGetAccounts(t *testing.T) {
	t.Parallel()

	t.Run("decodes results envelope with bearer auth", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/data/v1/accounts", r.URL.Path)
			require.Equal(t, "Bearer AT1", r.Header.Get("Authorization"))

			_, _ = w.Write([]byte(`{"results":[
				{"account_id":"acc-1","account_type":"TRANSACTION","currency":"AUD",
				 "display_name":"Everyday","provider":{"provider_id":"oz-bank","display_name":"Oz Bank"}},
				{"account_id":"acc-2","account_type":"SAVINGS","currency":"AUD",
				 "display_name":"Rainy Day","provider":{"provider_id":"oz-bank","display_name":"Oz Bank"}}
			]}`))
		}))
		defer server.Close()

		client := testClient(server.URL, server.URL)
		accounts, err := client.GetAccounts(context.Background(), "AT1")
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		require.Equal(t, "acc-1", accounts[0].AccountID)
		require.Equal(t, "SAVINGS", accounts[1].AccountType)
		require.Equal(t, "Oz Bank", accounts[0].Provider.DisplayName)
	})

	t.Run("non-2xx is an APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
		}))
		defer server.Close()

		client := testClient(server.URL, server.URL)
		_, err := client.GetAccounts(context.Background(), "expired")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("malformed body is a DecodeError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>gateway page</html>`))
		}))
		defer server.Close()

		client := testClient(server.URL, server.URL)
		_, err := client.GetAccounts(context.Background(), "AT1")

		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})
}

func TestGetBalances(t *testing.T) {
	t.Parallel()

	t.Run("uses bulk endpoint when available", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/data/v1/balances", r.URL.Path)
			_, _ = w.Write([]byte(`{"results":[
				{"account_id":"acc-1","currency":"AUD","current":1024.50,"available":1000.00,
				 "update_timestamp":"2026-08-27T10:00:00Z"}
			]}`))
		}))
		defer server.Close()

		client := testClient(server.URL, server.URL)
		balances, err := client.GetBalances(context.Background(), "AT1", []string{"acc-1"})
		require.NoError(t, err)
		require.Len(t, balances, 1)
		require.True(t, balances[0].Current.Equal(decimal.RequireFromString("1024.50")))
	})

	t.Run("falls back to per-account when bulk is 404", func(t *testing.T) {
		var perAccountCalls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/data/v1/balances":
				w.WriteHeader(http.StatusNotFound)
			case "/data/v1/accounts/acc-1/balance", "/data/v1/accounts/acc-2/balance":
				perAccountCalls++
				_, _ = w.Write([]byte(`{"results":[{"currency":"AUD","current":10,"available":10,
					"update_timestamp":"2026-08-27T10:00:00Z"}]}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		client := testClient(server.URL, server.URL)
		balances, err := client.GetBalances(context.Background(), "AT1", []string{"acc-1", "acc-2"})
		require.NoError(t, err)
		require.Len(t, balances, 2)
		require.Equal(t, 2, perAccountCalls)

		// Per-account responses omit account_id; the client fills it in.
		require.Equal(t, "acc-1", balances[0].AccountID)
		require.Equal(t, "acc-2", balances[1].AccountID)
	})

	t.Run("bulk auth failure does not trigger fallback", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := testClient(server.URL, server.URL)
		_, err := client.GetBalances(context.Background(), "AT1", []string{"acc-1"})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})
}

func TestGetTransactions(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 7, 28, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/v1/accounts/acc-1/transactions", r.URL.Path)
		require.Equal(t, "2026-07-28T00:00:00Z", r.URL.Query().Get("from"))
		require.Equal(t, "2026-08-27T00:00:00Z", r.URL.Query().Get("to"))

		_, _ = w.Write([]byte(`{"results":[
			{"transaction_id":"txn-1","timestamp":"2026-08-20T08:30:00Z","description":"COFFEE CO",
			 "transaction_type":"DEBIT","transaction_category":"PURCHASE","amount":-4.50,"currency":"AUD",
			 "merchant_name":"Coffee Co","running_balance":{"currency":"AUD","amount":995.50}}
		]}`))
	}))
	defer server.Close()

	client := testClient(server.URL, server.URL)
	txns, err := client.GetTransactions(context.Background(), "AT1", "acc-1", from, to)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, "txn-1", txns[0].TransactionID)
	require.Equal(t, "DEBIT", txns[0].TransactionType)
	require.NotNil(t, txns[0].RunningBalance)
	require.True(t, txns[0].RunningBalance.Amount.Equal(decimal.RequireFromString("995.50")))
}
