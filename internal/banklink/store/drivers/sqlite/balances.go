package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
)

type balancesRepo struct {
	db dbtx
}

func (r *balancesRepo) UpsertBalance(ctx context.Context, b domain.Balance) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO balances (account_id, current, available, overdraft, credit_limit, currency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			current = excluded.current,
			available = excluded.available,
			overdraft = excluded.overdraft,
			credit_limit = excluded.credit_limit,
			currency = excluded.currency,
			updated_at = excluded.updated_at`,
		b.AccountID,
		b.Current.String(),
		b.Available.String(),
		mapOptionalDecimal(b.Overdraft),
		mapOptionalDecimal(b.Limit),
		b.Currency,
		b.UpdatedAt.UTC(),
	)
	return err
}

func (r *balancesRepo) ListBalances(ctx context.Context, accountIDs []string) ([]domain.Balance, error) {
	query := `
		SELECT account_id, current, available, overdraft, credit_limit, currency, updated_at
		FROM balances`
	args := make([]any, 0, len(accountIDs))
	if len(accountIDs) > 0 {
		query += ` WHERE account_id IN (`
		for i, id := range accountIDs {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, id)
		}
		query += `)`
	}
	query += ` ORDER BY account_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *balancesRepo) GetBalanceByAccountID(ctx context.Context, accountID string) (domain.Balance, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT account_id, current, available, overdraft, credit_limit, currency, updated_at
		FROM balances
		WHERE account_id = ?`,
		accountID,
	)
	b, err := scanBalance(row)
	if err != nil {
		return domain.Balance{}, mapNotFound(err)
	}
	return b, nil
}

func scanBalance(row rowScanner) (domain.Balance, error) {
	var (
		b                  domain.Balance
		current, available string
		overdraft, limit   sql.NullString
		updatedAt          time.Time
	)
	err := row.Scan(&b.AccountID, &current, &available, &overdraft, &limit, &b.Currency, &updatedAt)
	if err != nil {
		return domain.Balance{}, err
	}

	if b.Current, err = mapDecimal(current); err != nil {
		return domain.Balance{}, err
	}
	if b.Available, err = mapDecimal(available); err != nil {
		return domain.Balance{}, err
	}
	if b.Overdraft, err = mapNullDecimalPtr(overdraft); err != nil {
		return domain.Balance{}, err
	}
	if b.Limit, err = mapNullDecimalPtr(limit); err != nil {
		return domain.Balance{}, err
	}
	b.UpdatedAt = updatedAt

	return b, nil
}
