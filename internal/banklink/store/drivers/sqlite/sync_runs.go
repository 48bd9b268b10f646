package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
	"github.com/aussiebroadwan/banklink/pkg/idx"
)

type syncRunsRepo struct {
	db dbtx
}

func (r *syncRunsRepo) CreateSyncRun(ctx context.Context, run domain.SyncRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, status, account_count, transaction_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		string(run.Status),
		run.AccountCount,
		run.TransactionCount,
		mapStringNull(run.Error),
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	return err
}

func (r *syncRunsRepo) LatestSyncRun(ctx context.Context) (domain.SyncRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, account_count, transaction_count, error, started_at, finished_at
		FROM sync_runs
		ORDER BY id DESC
		LIMIT 1`,
	)
	run, err := scanSyncRun(row)
	if err != nil {
		return domain.SyncRun{}, mapNotFound(err)
	}
	return run, nil
}

func (r *syncRunsRepo) ListSyncRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, account_count, transaction_count, error, started_at, finished_at
		FROM sync_runs
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *syncRunsRepo) PruneSyncRuns(ctx context.Context, keep int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_runs
		WHERE id NOT IN (
			SELECT id FROM sync_runs ORDER BY id DESC LIMIT ?
		)`,
		keep,
	)
	return err
}

func scanSyncRun(row rowScanner) (domain.SyncRun, error) {
	var (
		run                 domain.SyncRun
		id, status          string
		errText             sql.NullString
		startedAt, finished time.Time
	)
	err := row.Scan(&id, &status, &run.AccountCount, &run.TransactionCount, &errText, &startedAt, &finished)
	if err != nil {
		return domain.SyncRun{}, err
	}

	parsed, err := idx.Parse(id)
	if err != nil {
		return domain.SyncRun{}, err
	}
	run.ID = parsed
	run.Status = domain.SyncStatus(status)
	run.Error = mapNullString(errText)
	run.StartedAt = startedAt
	run.FinishedAt = finished

	return run, nil
}
