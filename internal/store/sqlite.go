package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/scoutline/curator/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS items (
	id             TEXT PRIMARY KEY,
	normalized_url TEXT NOT NULL UNIQUE,
	category       TEXT NOT NULL,
	candidate      TEXT NOT NULL,
	score          INTEGER NOT NULL DEFAULT 0,
	seen_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_items_seen_at ON items(seen_at DESC);
CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertItem(ctx context.Context, item *StoredItem) (string, error) {
	id := item.ID
	if id == "" {
		id = uuid.New().String()
	}
	seenAt := item.SeenAt
	if seenAt.IsZero() {
		seenAt = time.Now().UTC()
	}

	candidateJSON, err := json.Marshal(item.Candidate)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal candidate")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (id, normalized_url, category, candidate, score, seen_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, item.NormalizedURL, string(item.Candidate.Category), string(candidateJSON), item.Score, seenAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", ErrConflict
		}
		return "", eris.Wrapf(err, "sqlite: insert item %s", item.NormalizedURL)
	}

	return id, nil
}

func (s *SQLiteStore) GetItemByURL(ctx context.Context, normalizedURL string) (*StoredItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, normalized_url, candidate, score, seen_at FROM items WHERE normalized_url = ?`,
		normalizedURL,
	)

	var item StoredItem
	var candidateJSON string
	err := row.Scan(&item.ID, &item.NormalizedURL, &candidateJSON, &item.Score, &item.SeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get item %s", normalizedURL)
	}

	if err := json.Unmarshal([]byte(candidateJSON), &item.Candidate); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal candidate")
	}
	return &item, nil
}

func (s *SQLiteStore) RecentItems(ctx context.Context, days int) ([]StoredItem, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, normalized_url, candidate, score, seen_at FROM items WHERE seen_at >= ? ORDER BY seen_at DESC`,
		cutoff,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent items")
	}
	defer rows.Close()

	var items []StoredItem
	for rows.Next() {
		var item StoredItem
		var candidateJSON string
		if err := rows.Scan(&item.ID, &item.NormalizedURL, &candidateJSON, &item.Score, &item.SeenAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		if err := json.Unmarshal([]byte(candidateJSON), &item.Candidate); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal candidate")
		}
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: recent items iterate")
}

func (s *SQLiteStore) CountItems(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM items`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count items")
}

func (s *SQLiteStore) CountItemsByCategory(ctx context.Context) (map[model.Category]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, count(*) FROM items GROUP BY category`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by category")
	}
	defer rows.Close()

	counts := make(map[model.Category]int64)
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category count")
		}
		counts[model.Category(cat)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count by category iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.PipelineRunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, runErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, result, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRunRow(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, result, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
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
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRow(row rowScanner) (*model.Run, error) {
	var r model.Run
	var resultJSON, errMsg sql.NullString

	if err := row.Scan(&r.ID, &r.Status, &resultJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if resultJSON.Valid && resultJSON.String != "" {
		r.Result = &model.PipelineRunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
