package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
)

type transactionsRepo struct {
	db dbtx
}

func (r *transactionsRepo) UpsertTransactions(ctx context.Context, txns []domain.Transaction) error {
	for _, t := range txns {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO transactions (transaction_id, account_id, ts, description, txn_type, category, amount, currency, merchant_name, running_balance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (transaction_id) DO UPDATE SET
				account_id = excluded.account_id,
				ts = excluded.ts,
				description = excluded.description,
				txn_type = excluded.txn_type,
				category = excluded.category,
				amount = excluded.amount,
				currency = excluded.currency,
				merchant_name = excluded.merchant_name,
				running_balance = excluded.running_balance`,
			t.TransactionID,
			t.AccountID,
			t.Timestamp.UTC(),
			t.Description,
			string(t.Type),
			t.Category,
			t.Amount.String(),
			t.Currency,
			mapStringNull(t.MerchantName),
			mapOptionalDecimal(t.RunningBalance),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *transactionsRepo) ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]domain.Transaction, error) {
	query := `
		SELECT transaction_id, account_id, ts, description, txn_type, category, amount, currency, merchant_name, running_balance
		FROM transactions
		WHERE account_id = ?`
	args := []any{accountID}
	if !from.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY ts DESC, transaction_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?`, accountID)
	return err
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		t                    domain.Transaction
		ts                   time.Time
		txnType, amount      string
		merchant, runningBal sql.NullString
	)
	err := row.Scan(&t.TransactionID, &t.AccountID, &ts, &t.Description, &txnType, &t.Category, &amount, &t.Currency, &merchant, &runningBal)
	if err != nil {
		return domain.Transaction{}, err
	}

	t.Timestamp = ts
	t.Type = domain.TransactionType(txnType)
	if t.Amount, err = mapDecimal(amount); err != nil {
		return domain.Transaction{}, err
	}
	t.MerchantName = mapNullString(merchant)
	if t.RunningBalance, err = mapNullDecimalPtr(runningBal); err != nil {
		return domain.Transaction{}, err
	}

	return t, nil
}
