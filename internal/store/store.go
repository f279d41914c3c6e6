// Package store persists assignment runs.
package store

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonemap/internal/geo"
	"github.com/sells-group/zonemap/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Policy string `json:"policy,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for assignment runs.
type Store interface {
	// SaveRun stores the run and its rows, filling ID and CreatedAt when
	// they are empty.
	SaveRun(ctx context.Context, run *model.AssignmentRun) error
	// GetRun returns a run with its rows in parcel order.
	GetRun(ctx context.Context, id string) (*model.AssignmentRun, error)
	// ListRuns returns run headers, newest first, without rows.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.AssignmentRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store for driver and applies migrations.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn, poolCfg)
	case DriverSQLite:
		s, err = NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// NewRun builds the record for an assignment result. Parcel and district
// IDs fall back to their collection index when features carry no ID.
func NewRun(res *geo.Result, parcelsSource, zoningSource string) *model.AssignmentRun {
	run := &model.AssignmentRun{
		Policy:        string(res.Policy),
		ParcelsSource: parcelsSource,
		ZoningSource:  zoningSource,
		ParcelCount:   len(res.Assignments),
		MatchedCount:  res.Matched(),
		Rows:          make([]model.AssignmentRow, len(res.Assignments)),
	}
	for i, a := range res.Assignments {
		row := model.AssignmentRow{
			ParcelIndex: a.ParcelIndex,
			ParcelID:    featureID(res.Parcels.Features[a.ParcelIndex].ID, a.ParcelIndex),
			OverlapArea: a.OverlapArea,
		}
		if a.Assigned() {
			idx := a.DistrictIndex
			row.DistrictIndex = &idx
			row.DistrictID = featureID(res.Districts.Features[idx].ID, idx)
		}
		run.Rows[i] = row
	}
	return run
}

func featureID(id string, index int) string {
	if id != "" {
		return id
	}
	return strconv.Itoa(index)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
