package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/db"
	"github.com/sells-group/zonemap/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	insertRunSQL = `INSERT INTO assignment_runs (id, policy, parcels_source, zoning_source, parcel_count, matched_count, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	getRunSQL    = `SELECT id, policy, parcels_source, zoning_source, parcel_count, matched_count, created_at FROM assignment_runs WHERE id = $1`
	getRowsSQL   = `SELECT parcel_index, parcel_id, district_index, district_id, overlap_area FROM assignment_rows WHERE run_id = $1 ORDER BY parcel_index`
)

var rowColumns = []string{"run_id", "parcel_index", "parcel_id", "district_index", "district_id", "overlap_area"}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run": insertRunSQL,
	"get_run":    getRunSQL,
	"get_rows":   getRowsSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS assignment_runs (
	id             TEXT PRIMARY KEY,
	policy         TEXT NOT NULL,
	parcels_source TEXT NOT NULL DEFAULT '',
	zoning_source  TEXT NOT NULL DEFAULT '',
	parcel_count   INTEGER NOT NULL,
	matched_count  INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assignment_rows (
	run_id         TEXT NOT NULL REFERENCES assignment_runs(id) ON DELETE CASCADE,
	parcel_index   INTEGER NOT NULL,
	parcel_id      TEXT NOT NULL,
	district_index INTEGER,
	district_id    TEXT,
	overlap_area   DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, parcel_index)
);

CREATE INDEX IF NOT EXISTS idx_assignment_runs_created_at ON assignment_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_assignment_runs_policy ON assignment_runs(policy);
`

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.AssignmentRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	rows := make([][]any, len(run.Rows))
	for i, r := range run.Rows {
		var districtID *string
		if r.Matched() {
			districtID = &run.Rows[i].DistrictID
		}
		rows[i] = []any{run.ID, r.ParcelIndex, r.ParcelID, r.DistrictIndex, districtID, r.OverlapArea}
	}

	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertRunSQL,
			run.ID, run.Policy, run.ParcelsSource, run.ZoningSource,
			run.ParcelCount, run.MatchedCount, run.CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert run %s", run.ID)
		}
		if _, err := db.CopyFrom(ctx, tx, "assignment_rows", rowColumns, rows); err != nil {
			return eris.Wrapf(err, "postgres: copy rows for run %s", run.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("postgres: run saved",
		zap.String("run_id", run.ID),
		zap.Int("parcels", run.ParcelCount),
		zap.Int("matched", run.MatchedCount),
	)
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.AssignmentRun, error) {
	var r model.AssignmentRun
	err := s.pool.QueryRow(ctx, getRunSQL, id).Scan(
		&r.ID, &r.Policy, &r.ParcelsSource, &r.ZoningSource,
		&r.ParcelCount, &r.MatchedCount, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}

	rows, err := s.pool.Query(ctx, getRowsSQL, id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get rows for run %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var row model.AssignmentRow
		var districtID *string
		if err := rows.Scan(&row.ParcelIndex, &row.ParcelID, &row.DistrictIndex, &districtID, &row.OverlapArea); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assignment row")
		}
		if districtID != nil {
			row.DistrictID = *districtID
		}
		r.Rows = append(r.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate assignment rows")
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AssignmentRun, error) {
	query := `SELECT id, policy, parcels_source, zoning_source, parcel_count, matched_count, created_at FROM assignment_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Policy != "" {
		query += fmt.Sprintf(` AND policy = $%d`, argIdx)
		args = append(args, filter.Policy)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.AssignmentRun
	for rows.Next() {
		var r model.AssignmentRun
		if err := rows.Scan(&r.ID, &r.Policy, &r.ParcelsSource, &r.ZoningSource,
			&r.ParcelCount, &r.MatchedCount, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
