// Package geo assigns parcels to zoning districts by spatial overlap.
package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/feature"
)

// NoDistrict marks a parcel that intersects no district.
const NoDistrict = -1

// Assignment is the resolved district for one parcel.
type Assignment struct {
	ParcelIndex   int
	DistrictIndex int
	// OverlapArea is the parcel ∩ district area in parcel CRS units. It is
	// only computed under PolicyLargest and is zero when unassigned.
	OverlapArea float64
}

// Assigned reports whether the parcel received a district.
func (a Assignment) Assigned() bool {
	return a.DistrictIndex != NoDistrict
}

// AssignerOption configures an Assigner.
type AssignerOption func(*Assigner)

// WithEngine replaces the default GEOS engine.
func WithEngine(e Engine) AssignerOption {
	return func(a *Assigner) {
		a.engine = e
	}
}

// Assigner joins parcels to zoning districts.
type Assigner struct {
	// engine is nil unless injected; each Assign call then gets a fresh
	// GEOS engine so conversions never outlive the call.
	engine Engine
}

// NewAssigner creates an Assigner backed by GEOS unless overridden.
func NewAssigner(opts ...AssignerOption) *Assigner {
	a := &Assigner{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assign is a convenience wrapper that parses the policy name and runs a
// fresh GEOS-backed Assigner.
func Assign(parcels, districts *feature.Collection, policy string) (*Result, error) {
	p, err := ParsePolicy(policy)
	if err != nil {
		return nil, err
	}
	return NewAssigner().Assign(parcels, districts, p)
}

// Assign maps every parcel to at most one district. Districts are
// reprojected into the parcels' CRS on a copy when the systems differ.
// The result has exactly one row per parcel, in parcel order.
func (a *Assigner) Assign(parcels, districts *feature.Collection, policy Policy) (*Result, error) {
	if !policy.Valid() {
		return nil, eris.Wrapf(ErrInvalidPolicy, "geo: got %q", string(policy))
	}
	if parcels == nil || districts == nil {
		return nil, eris.New("geo: parcels and districts are required")
	}

	zones := districts
	if !parcels.CRS.Equal(districts.CRS) {
		reprojected, err := districts.Reproject(parcels.CRS)
		if err != nil {
			return nil, eris.Wrap(err, "geo: align district CRS")
		}
		zones = reprojected
	}

	bounds := make([]*geom.Bounds, len(zones.Features))
	for j, z := range zones.Features {
		if !feature.IsEmpty(z.Geometry) {
			bounds[j] = z.Geometry.Bounds()
		}
	}

	engine := a.engine
	if engine == nil {
		engine = NewGEOSEngine()
	}

	rows := make([]Assignment, len(parcels.Features))
	var multi int
	for i, p := range parcels.Features {
		row, candidates, err := resolve(engine, i, p.Geometry, zones, bounds, policy)
		if err != nil {
			return nil, err
		}
		if candidates > 1 {
			multi++
		}
		rows[i] = row
	}

	res := &Result{Policy: policy, Assignments: rows, Parcels: parcels, Districts: zones}
	zap.L().Debug("geo: assigned parcels",
		zap.String("policy", string(policy)),
		zap.Int("parcels", len(rows)),
		zap.Int("matched", res.Matched()),
		zap.Int("multi_overlap", multi),
	)
	return res, nil
}

// resolve picks the district for parcel i. It returns how many districts
// intersected; under PolicyFirst the scan stops at the first hit.
func resolve(engine Engine, i int, parcel geom.T, zones *feature.Collection, bounds []*geom.Bounds, policy Policy) (Assignment, int, error) {
	row := Assignment{ParcelIndex: i, DistrictIndex: NoDistrict}
	if feature.IsEmpty(parcel) {
		return row, 0, nil
	}

	pb := parcel.Bounds()
	var candidates int
	for j, z := range zones.Features {
		if bounds[j] == nil || !pb.Overlaps(geom.XY, bounds[j]) {
			continue
		}
		hit, err := engine.Intersects(parcel, z.Geometry)
		if err != nil {
			return row, 0, eris.Wrapf(err, "geo: parcel %d district %d", i, j)
		}
		if !hit {
			continue
		}
		candidates++

		if policy == PolicyFirst {
			row.DistrictIndex = j
			break
		}

		area, err := engine.IntersectionArea(parcel, z.Geometry)
		if err != nil {
			return row, 0, eris.Wrapf(err, "geo: parcel %d district %d", i, j)
		}
		// Strictly greater keeps the lowest index on ties.
		if row.DistrictIndex == NoDistrict || area > row.OverlapArea {
			row.DistrictIndex = j
			row.OverlapArea = area
		}
	}
	return row, candidates, nil
}
