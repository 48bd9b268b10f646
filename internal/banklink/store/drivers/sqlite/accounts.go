package sqlite

import (
	"context"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
)

type accountsRepo struct {
	db dbtx
}

func (r *accountsRepo) ReplaceAccounts(ctx context.Context, accounts []domain.Account) error {
	// Remove accounts that disappeared from the provider. Keeping the rest
	// in place preserves their balances and transactions through the FK.
	keep := make([]any, 0, len(accounts))
	placeholders := ""
	for i, a := range accounts {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		keep = append(keep, a.AccountID)
	}

	if len(accounts) == 0 {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
			return err
		}
		return nil
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE account_id NOT IN (`+placeholders+`)`,
		keep...,
	); err != nil {
		return err
	}

	for _, a := range accounts {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO accounts (account_id, account_type, currency, display_name, provider_name, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (account_id) DO UPDATE SET
				account_type = excluded.account_type,
				currency = excluded.currency,
				display_name = excluded.display_name,
				provider_name = excluded.provider_name,
				updated_at = CURRENT_TIMESTAMP`,
			a.AccountID, string(a.AccountType), a.Currency, a.DisplayName, a.ProviderName,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *accountsRepo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, account_type, currency, display_name, provider_name
		FROM accounts
		ORDER BY display_name, account_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, accountID string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT account_id, account_type, currency, display_name, provider_name
		FROM accounts
		WHERE account_id = ?`,
		accountID,
	)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a           domain.Account
		accountType string
	)
	err := row.Scan(&a.AccountID, &accountType, &a.Currency, &a.DisplayName, &a.ProviderName)
	if err != nil {
		return domain.Account{}, err
	}
	a.AccountType = domain.AccountType(accountType)
	return a, nil
}
