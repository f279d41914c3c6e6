package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/zonemap/internal/model"
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
CREATE TABLE IF NOT EXISTS assignment_runs (
	id             TEXT PRIMARY KEY,
	policy         TEXT NOT NULL,
	parcels_source TEXT NOT NULL DEFAULT '',
	zoning_source  TEXT NOT NULL DEFAULT '',
	parcel_count   INTEGER NOT NULL,
	matched_count  INTEGER NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS assignment_rows (
	run_id         TEXT NOT NULL REFERENCES assignment_runs(id) ON DELETE CASCADE,
	parcel_index   INTEGER NOT NULL,
	parcel_id      TEXT NOT NULL,
	district_index INTEGER,
	district_id    TEXT,
	overlap_area   REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, parcel_index)
);

CREATE INDEX IF NOT EXISTS idx_assignment_runs_created_at ON assignment_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_assignment_runs_policy ON assignment_runs(policy);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.AssignmentRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assignment_runs (id, policy, parcels_source, zoning_source, parcel_count, matched_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Policy, run.ParcelsSource, run.ZoningSource, run.ParcelCount, run.MatchedCount, run.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO assignment_rows (run_id, parcel_index, parcel_id, district_index, district_id, overlap_area) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare row insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range run.Rows {
		var districtIndex sql.NullInt64
		var districtID sql.NullString
		if r.Matched() {
			districtIndex = sql.NullInt64{Int64: int64(*r.DistrictIndex), Valid: true}
			districtID = sql.NullString{String: r.DistrictID, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, r.ParcelIndex, r.ParcelID, districtIndex, districtID, r.OverlapArea); err != nil {
			return eris.Wrapf(err, "sqlite: insert row %d for run %s", r.ParcelIndex, run.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit run")
	}
	zap.L().Info("sqlite: run saved",
		zap.String("run_id", run.ID),
		zap.Int("parcels", run.ParcelCount),
		zap.Int("matched", run.MatchedCount),
	)
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.AssignmentRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy, parcels_source, zoning_source, parcel_count, matched_count, created_at FROM assignment_runs WHERE id = ?`,
		id,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT parcel_index, parcel_id, district_index, district_id, overlap_area FROM assignment_rows WHERE run_id = ? ORDER BY parcel_index`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get rows for run %s", id)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var row model.AssignmentRow
		var districtIndex sql.NullInt64
		var districtID sql.NullString
		if err := rows.Scan(&row.ParcelIndex, &row.ParcelID, &districtIndex, &districtID, &row.OverlapArea); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment row")
		}
		if districtIndex.Valid {
			idx := int(districtIndex.Int64)
			row.DistrictIndex = &idx
			row.DistrictID = districtID.String
		}
		r.Rows = append(r.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate assignment rows")
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AssignmentRun, error) {
	query := `SELECT id, policy, parcels_source, zoning_source, parcel_count, matched_count, created_at FROM assignment_runs WHERE 1=1`
	var args []any

	if filter.Policy != "" {
		query += ` AND policy = ?`
		args = append(args, filter.Policy)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.AssignmentRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRun returns sql.ErrNoRows unwrapped so callers can map it.
func scanRun(row scannable) (*model.AssignmentRun, error) {
	var r model.AssignmentRun
	err := row.Scan(&r.ID, &r.Policy, &r.ParcelsSource, &r.ZoningSource, &r.ParcelCount, &r.MatchedCount, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	return &r, nil
}
