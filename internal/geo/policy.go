package geo

import "github.com/rotisserie/eris"

// ErrInvalidPolicy is returned for an unrecognised join-resolution policy.
var ErrInvalidPolicy = eris.New("geo: policy must be 'largest' or 'first'")

// Policy selects one district for a parcel that intersects several.
type Policy string

// Resolution policies.
const (
	// PolicyLargest keeps the district with the greatest intersection area,
	// lowest index on ties.
	PolicyLargest Policy = "largest"
	// PolicyFirst keeps the lowest-indexed intersecting district.
	PolicyFirst Policy = "first"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if !p.Valid() {
		return "", eris.Wrapf(ErrInvalidPolicy, "geo: got %q", s)
	}
	return p, nil
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyLargest || p == PolicyFirst
}
