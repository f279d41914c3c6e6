package geo

import (
	"github.com/sells-group/zonemap/internal/crs"
	"github.com/sells-group/zonemap/internal/feature"
)

// OverlapAreaColumn is added to joined output under PolicyLargest.
const OverlapAreaColumn = "overlap_area"

// Result is the outcome of an assignment run.
type Result struct {
	Policy      Policy
	Assignments []Assignment
	// Parcels is the caller's collection; it is not modified.
	Parcels *feature.Collection
	// Districts is in the parcels' CRS and may be a reprojected copy.
	Districts *feature.Collection
}

// Matched counts parcels that received a district.
func (r *Result) Matched() int {
	n := 0
	for _, a := range r.Assignments {
		if a.Assigned() {
			n++
		}
	}
	return n
}

// District returns the assigned district feature for parcel i.
func (r *Result) District(i int) (feature.Feature, bool) {
	a := r.Assignments[i]
	if !a.Assigned() {
		return feature.Feature{}, false
	}
	return r.Districts.Features[a.DistrictIndex], true
}

// Joined returns a left join of parcels to their assigned districts: one
// feature per parcel carrying the parcel geometry, the parcel attributes and
// the district attributes. Columns present on both sides are suffixed
// "_left" and "_right"; unmatched parcels carry nil district attributes.
func (r *Result) Joined() *feature.Collection {
	parcelCols := r.Parcels.Columns()
	districtCols := r.Districts.Columns()

	conflict := make(map[string]bool)
	inParcels := make(map[string]bool, len(parcelCols))
	for _, c := range parcelCols {
		inParcels[c] = true
	}
	for _, c := range districtCols {
		if inParcels[c] {
			conflict[c] = true
		}
	}

	out := &feature.Collection{
		CRS:      r.Parcels.CRS,
		Features: make([]feature.Feature, len(r.Assignments)),
	}
	for i, a := range r.Assignments {
		p := r.Parcels.Features[a.ParcelIndex]

		props := make(map[string]any, len(p.Properties)+len(districtCols)+1)
		for k, v := range p.Properties {
			if conflict[k] {
				k += "_left"
			}
			props[k] = v
		}

		var dprops map[string]any
		if d, ok := r.District(i); ok {
			dprops = d.Properties
		}
		for _, k := range districtCols {
			key := k
			if conflict[k] {
				key += "_right"
			}
			props[key] = dprops[k]
		}

		if r.Policy == PolicyLargest {
			props[OverlapAreaColumn] = a.OverlapArea
		}

		out.Features[i] = feature.Feature{
			ID:         p.ID,
			Geometry:   crs.CopyGeometry(p.Geometry),
			Properties: props,
		}
	}
	return out
}
