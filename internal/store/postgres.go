package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/fontintel/fontintel/internal/db"
	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to Postgres and returns a store.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close is a no-op.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ingests (
	processing_id TEXT PRIMARY KEY,
	ingest_id     TEXT NOT NULL,
	owner_id      TEXT NOT NULL,
	original_name TEXT NOT NULL DEFAULT '',
	content_hash  TEXT NOT NULL DEFAULT '',
	quick_hash    TEXT NOT NULL DEFAULT '',
	upload_state  TEXT NOT NULL DEFAULT 'queued',
	job_outcome   TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	error_code    TEXT NOT NULL DEFAULT '',
	family_id     TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ingests_owner_hash ON ingests(owner_id, content_hash);
CREATE INDEX IF NOT EXISTS idx_ingests_state ON ingests(upload_state);

CREATE TABLE IF NOT EXISTS results (
	processing_id TEXT PRIMARY KEY REFERENCES ingests(processing_id),
	authoritative BOOLEAN NOT NULL DEFAULT false,
	result        JSONB NOT NULL,
	saved_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rate_limit_state (
	id           TEXT PRIMARY KEY,
	active_count INTEGER NOT NULL DEFAULT 0 CHECK (active_count >= 0),
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const ingestColumns = `processing_id, ingest_id, owner_id, original_name, content_hash, quick_hash, upload_state, job_outcome, error, error_code, family_id, created_at, updated_at`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateIngest(ctx context.Context, rec *model.IngestRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingests (`+ingestColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ProcessingID, rec.IngestID, rec.OwnerID, rec.OriginalName, rec.ContentHash, rec.QuickHash,
		string(rec.UploadState), string(rec.JobOutcome), rec.Error, rec.ErrorCode, rec.FamilyID,
		rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: create ingest %s", rec.ProcessingID)
}

func (s *PostgresStore) GetIngest(ctx context.Context, processingID string) (*model.IngestRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+ingestColumns+` FROM ingests WHERE processing_id = $1`,
		processingID,
	)
	rec, err := scanIngest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get ingest %s", processingID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get ingest %s", processingID)
	}
	return rec, nil
}

func (s *PostgresStore) FindByHash(ctx context.Context, ownerID, contentHash string) (*model.IngestRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+ingestColumns+` FROM ingests WHERE owner_id = $1 AND content_hash = $2 ORDER BY created_at DESC LIMIT 1`,
		ownerID, contentHash,
	)
	rec, err := scanIngest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find by hash")
	}
	return rec, nil
}

func (s *PostgresStore) UpdateState(ctx context.Context, processingID string, update model.StateUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingests SET upload_state = $1,
			job_outcome = COALESCE(NULLIF($2, ''), job_outcome),
			error = COALESCE(NULLIF($3, ''), error),
			error_code = COALESCE(NULLIF($4, ''), error_code),
			family_id = COALESCE(NULLIF($5, ''), family_id),
			updated_at = $6
		WHERE processing_id = $7`,
		string(update.State), string(update.JobOutcome), update.Error, update.ErrorCode, update.FamilyID,
		time.Now().UTC(), processingID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update state %s", processingID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update state %s", processingID)
	}
	return nil
}

func (s *PostgresStore) ListIngests(ctx context.Context, filter IngestFilter) ([]model.IngestRecord, error) {
	query := `SELECT ` + ingestColumns + ` FROM ingests WHERE true`
	args := []any{}
	argIdx := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(` AND owner_id = $%d`, argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}
	if filter.State != "" {
		query += fmt.Sprintf(` AND upload_state = $%d`, argIdx)
		args = append(args, string(filter.State))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingests")
	}
	defer rows.Close()

	var out []model.IngestRecord
	for rows.Next() {
		rec, err := scanIngest(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingest")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list ingests iterate")
}

func (s *PostgresStore) SaveResult(ctx context.Context, res *model.StoredResult) error {
	payload, err := json.Marshal(res.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (processing_id, authoritative, result, saved_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (processing_id) DO UPDATE SET authoritative = EXCLUDED.authoritative, result = EXCLUDED.result, saved_at = EXCLUDED.saved_at`,
		res.ProcessingID, res.Authoritative, payload, res.SavedAt,
	)
	return eris.Wrapf(err, "postgres: save result %s", res.ProcessingID)
}

func (s *PostgresStore) GetResult(ctx context.Context, processingID string) (*model.StoredResult, error) {
	var out model.StoredResult
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT processing_id, authoritative, result, saved_at FROM results WHERE processing_id = $1`,
		processingID,
	).Scan(&out.ProcessingID, &out.Authoritative, &payload, &out.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get result %s", processingID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get result %s", processingID)
	}
	out.Result = &model.PipelineResult{}
	if err := json.Unmarshal(payload, out.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &out, nil
}

func (s *PostgresStore) TryIncrement(ctx context.Context, key string, limit int) (bool, error) {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO rate_limit_state (id, active_count, last_updated) VALUES ($1, 0, now()) ON CONFLICT (id) DO NOTHING`,
		key,
	); err != nil {
		return false, eris.Wrap(err, "postgres: ensure counter")
	}

	var count int
	err := s.pool.QueryRow(ctx,
		`UPDATE rate_limit_state SET active_count = active_count + 1, last_updated = now()
		WHERE id = $1 AND active_count < $2 RETURNING active_count`,
		key, limit,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "postgres: increment counter")
	}
	return true, nil
}

func (s *PostgresStore) Decrement(ctx context.Context, key string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin decrement")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var count int
	err = tx.QueryRow(ctx,
		`SELECT active_count FROM rate_limit_state WHERE id = $1 FOR UPDATE`,
		key,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "postgres: lock counter")
	}
	if count > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE rate_limit_state SET active_count = $2, last_updated = now() WHERE id = $1`,
			key, count-1,
		); err != nil {
			return eris.Wrap(err, "postgres: decrement counter")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit decrement")
}

func (s *PostgresStore) ForceDecrement(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE rate_limit_state SET active_count = GREATEST(active_count - 1, 0), last_updated = now() WHERE id = $1`,
		key,
	)
	return eris.Wrap(err, "postgres: force decrement counter")
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*model.RateLimitState, error) {
	st := model.RateLimitState{Key: key}
	err := s.pool.QueryRow(ctx,
		`SELECT active_count, last_updated FROM rate_limit_state WHERE id = $1`,
		key,
	).Scan(&st.ActiveCount, &st.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return &st, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get counter")
	}
	return &st, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanIngest(row scannable) (*model.IngestRecord, error) {
	var rec model.IngestRecord
	var state, outcome string
	err := row.Scan(
		&rec.ProcessingID, &rec.IngestID, &rec.OwnerID, &rec.OriginalName, &rec.ContentHash, &rec.QuickHash,
		&state, &outcome, &rec.Error, &rec.ErrorCode, &rec.FamilyID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.UploadState = taxonomy.UploadState(state)
	rec.JobOutcome = taxonomy.JobOutcome(outcome)
	return &rec, nil
}
