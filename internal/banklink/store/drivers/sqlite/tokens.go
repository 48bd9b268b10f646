package sqlite

import (
	"context"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) GetTokenBlob(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT blob FROM token_store WHERE id = 1`,
	).Scan(&blob)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return blob, nil
}

func (r *tokensRepo) PutTokenBlob(ctx context.Context, blob []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO token_store (id, blob, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			blob = excluded.blob,
			updated_at = CURRENT_TIMESTAMP`,
		blob,
	)
	return err
}

func (r *tokensRepo) DeleteTokenBlob(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM token_store WHERE id = 1`)
	return err
}
