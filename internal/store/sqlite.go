package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fontintel/fontintel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// A single connection is used so counter updates serialize on the driver.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ingests_owner_hash ON ingests(owner_id, content_hash);
CREATE INDEX IF NOT EXISTS idx_ingests_state ON ingests(upload_state);

CREATE TABLE IF NOT EXISTS results (
	processing_id TEXT PRIMARY KEY REFERENCES ingests(processing_id),
	authoritative INTEGER NOT NULL DEFAULT 0,
	result        TEXT NOT NULL,
	saved_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS rate_limit_state (
	id           TEXT PRIMARY KEY,
	active_count INTEGER NOT NULL DEFAULT 0 CHECK (active_count >= 0),
	last_updated DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateIngest(ctx context.Context, rec *model.IngestRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingests (`+ingestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ProcessingID, rec.IngestID, rec.OwnerID, rec.OriginalName, rec.ContentHash, rec.QuickHash,
		string(rec.UploadState), string(rec.JobOutcome), rec.Error, rec.ErrorCode, rec.FamilyID,
		rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: create ingest %s", rec.ProcessingID)
}

func (s *SQLiteStore) GetIngest(ctx context.Context, processingID string) (*model.IngestRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ingestColumns+` FROM ingests WHERE processing_id = ?`,
		processingID,
	)
	rec, err := scanIngest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get ingest %s", processingID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get ingest %s", processingID)
	}
	return rec, nil
}

func (s *SQLiteStore) FindByHash(ctx context.Context, ownerID, contentHash string) (*model.IngestRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ingestColumns+` FROM ingests WHERE owner_id = ? AND content_hash = ? ORDER BY created_at DESC LIMIT 1`,
		ownerID, contentHash,
	)
	rec, err := scanIngest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find by hash")
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateState(ctx context.Context, processingID string, update model.StateUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingests SET upload_state = ?,
			job_outcome = COALESCE(NULLIF(?, ''), job_outcome),
			error = COALESCE(NULLIF(?, ''), error),
			error_code = COALESCE(NULLIF(?, ''), error_code),
			family_id = COALESCE(NULLIF(?, ''), family_id),
			updated_at = ?
		WHERE processing_id = ?`,
		string(update.State), string(update.JobOutcome), update.Error, update.ErrorCode, update.FamilyID,
		time.Now().UTC(), processingID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update state %s", processingID)
	}
	return checkRowsAffected(res, "sqlite: update state "+processingID)
}

func (s *SQLiteStore) ListIngests(ctx context.Context, filter IngestFilter) ([]model.IngestRecord, error) {
	query := `SELECT ` + ingestColumns + ` FROM ingests WHERE 1=1`
	var args []any

	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.State != "" {
		query += ` AND upload_state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingests")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.IngestRecord
	for rows.Next() {
		rec, err := scanIngest(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ingest")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list ingests iterate")
}

func (s *SQLiteStore) SaveResult(ctx context.Context, res *model.StoredResult) error {
	payload, err := json.Marshal(res.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (processing_id, authoritative, result, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (processing_id) DO UPDATE SET authoritative = excluded.authoritative, result = excluded.result, saved_at = excluded.saved_at`,
		res.ProcessingID, res.Authoritative, string(payload), res.SavedAt,
	)
	return eris.Wrapf(err, "sqlite: save result %s", res.ProcessingID)
}

func (s *SQLiteStore) GetResult(ctx context.Context, processingID string) (*model.StoredResult, error) {
	var out model.StoredResult
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT processing_id, authoritative, result, saved_at FROM results WHERE processing_id = ?`,
		processingID,
	).Scan(&out.ProcessingID, &out.Authoritative, &payload, &out.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get result %s", processingID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get result %s", processingID)
	}
	out.Result = &model.PipelineResult{}
	if err := json.Unmarshal([]byte(payload), out.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &out, nil
}

func (s *SQLiteStore) TryIncrement(ctx context.Context, key string, limit int) (bool, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO rate_limit_state (id, active_count, last_updated) VALUES (?, 0, ?) ON CONFLICT (id) DO NOTHING`,
		key, time.Now().UTC(),
	); err != nil {
		return false, eris.Wrap(err, "sqlite: ensure counter")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE rate_limit_state SET active_count = active_count + 1, last_updated = ? WHERE id = ? AND active_count < ?`,
		time.Now().UTC(), key, limit,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: increment counter")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) Decrement(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin decrement")
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	err = tx.QueryRowContext(ctx, `SELECT active_count FROM rate_limit_state WHERE id = ?`, key).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: read counter")
	}
	if count > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE rate_limit_state SET active_count = ?, last_updated = ? WHERE id = ?`,
			count-1, time.Now().UTC(), key,
		); err != nil {
			return eris.Wrap(err, "sqlite: decrement counter")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit decrement")
}

func (s *SQLiteStore) ForceDecrement(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rate_limit_state SET active_count = MAX(active_count - 1, 0), last_updated = ? WHERE id = ?`,
		time.Now().UTC(), key,
	)
	return eris.Wrap(err, "sqlite: force decrement counter")
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*model.RateLimitState, error) {
	st := model.RateLimitState{Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT active_count, last_updated FROM rate_limit_state WHERE id = ?`,
		key,
	).Scan(&st.ActiveCount, &st.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return &st, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get counter")
	}
	return &st, nil
}

func checkRowsAffected(res sql.Result, action string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrap(ErrNotFound, action)
	}
	return nil
}
