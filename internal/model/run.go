// Package model holds the persisted record types.
package model

import "time"

// AssignmentRun is a stored parcel-to-district assignment.
type AssignmentRun struct {
	ID            string          `json:"id"`
	Policy        string          `json:"policy"`
	ParcelsSource string          `json:"parcels_source"`
	ZoningSource  string          `json:"zoning_source"`
	ParcelCount   int             `json:"parcel_count"`
	MatchedCount  int             `json:"matched_count"`
	CreatedAt     time.Time       `json:"created_at"`
	Rows          []AssignmentRow `json:"rows,omitempty"`
}

// MatchRate is the share of parcels that received a district.
func (r AssignmentRun) MatchRate() float64 {
	if r.ParcelCount == 0 {
		return 0
	}
	return float64(r.MatchedCount) / float64(r.ParcelCount)
}

// AssignmentRow is one parcel's result. DistrictIndex is nil for parcels
// with no intersecting district.
type AssignmentRow struct {
	ParcelIndex   int     `json:"parcel_index"`
	ParcelID      string  `json:"parcel_id"`
	DistrictIndex *int    `json:"district_index,omitempty"`
	DistrictID    string  `json:"district_id,omitempty"`
	OverlapArea   float64 `json:"overlap_area"`
}

// Matched reports whether the parcel was assigned a district.
func (r AssignmentRow) Matched() bool {
	return r.DistrictIndex != nil
}
