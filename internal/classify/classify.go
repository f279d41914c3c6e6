// Package classify buckets numeric values into classes for thematic maps.
package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

// Sentinel errors.
var (
	ErrNoValues       = eris.New("classify: no classifiable values")
	ErrInvalidClasses = eris.New("classify: number of classes must be positive")
)

// Classification is the result of a classifier run.
type Classification struct {
	// Breaks are ascending class upper bounds; the last equals the maximum.
	Breaks []float64
	// Bins holds the class index of each input value, in input order.
	Bins []int
	// Min is the smallest input value.
	Min float64
}

// K returns the number of classes actually produced.
func (c *Classification) K() int {
	return len(c.Breaks)
}

// Counts returns the number of values in each class.
func (c *Classification) Counts() []int {
	counts := make([]int, len(c.Breaks))
	for _, b := range c.Bins {
		counts[b]++
	}
	return counts
}

// Labels renders interval labels: the first class is closed on both ends,
// later classes are open on the left.
func (c *Classification) Labels() []string {
	labels := make([]string, len(c.Breaks))
	lower := c.Min
	for i, upper := range c.Breaks {
		if i == 0 {
			labels[i] = fmt.Sprintf("[%.2f, %.2f]", lower, upper)
		} else {
			labels[i] = fmt.Sprintf("(%.2f, %.2f]", lower, upper)
		}
		lower = upper
	}
	return labels
}

// NaturalBreaks classifies values into k classes with the Fisher-Jenks
// algorithm, minimising within-class variance. When there are fewer distinct
// values than k, k is reduced to the distinct count.
func NaturalBreaks(values []float64, k int) (*Classification, error) {
	if k <= 0 {
		return nil, eris.Wrapf(ErrInvalidClasses, "classify: k=%d", k)
	}
	if len(values) == 0 {
		return nil, ErrNoValues
	}
	if floats.HasNaN(values) {
		return nil, eris.Wrap(ErrNoValues, "classify: NaN in input")
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if distinct := countDistinct(sorted); k > distinct {
		k = distinct
	}

	breaks := dedupe(jenks(sorted, k))
	return &Classification{
		Breaks: breaks,
		Bins:   assign(values, breaks),
		Min:    floats.Min(values),
	}, nil
}

// jenks returns k ascending upper bounds for sorted data.
func jenks(data []float64, k int) []float64 {
	n := len(data)
	if k == 1 {
		return []float64{data[n-1]}
	}

	// lower[l][j]: 1-based index of the first value in class j when the
	// first l values are split into j classes. cost[l][j]: matching
	// within-class sum of squared deviations.
	lower := make([][]int, n+1)
	cost := make([][]float64, n+1)
	for i := range lower {
		lower[i] = make([]int, k+1)
		cost[i] = make([]float64, k+1)
	}
	for j := 1; j <= k; j++ {
		lower[1][j] = 1
		for i := 2; i <= n; i++ {
			cost[i][j] = math.Inf(1)
		}
	}

	for l := 2; l <= n; l++ {
		var s1, s2, w, v float64
		for m := 1; m <= l; m++ {
			i3 := l - m + 1
			val := data[i3-1]
			s1 += val
			s2 += val * val
			w++
			v = s2 - (s1*s1)/w
			i4 := i3 - 1
			if i4 == 0 {
				continue
			}
			for j := 2; j <= k; j++ {
				if cost[l][j] >= v+cost[i4][j-1] {
					lower[l][j] = i3
					cost[l][j] = v + cost[i4][j-1]
				}
			}
		}
		lower[l][1] = 1
		cost[l][1] = v
	}

	breaks := make([]float64, k)
	breaks[k-1] = data[n-1]
	idx := n
	for j := k; j >= 2; j-- {
		start := lower[idx][j] - 1 // 0-based first index of class j
		breaks[j-2] = data[start-1]
		idx = start
	}
	return breaks
}

// assign maps each value to the first class whose upper bound contains it.
func assign(values, breaks []float64) []int {
	bins := make([]int, len(values))
	for i, v := range values {
		b := sort.SearchFloat64s(breaks, v)
		if b >= len(breaks) {
			b = len(breaks) - 1
		}
		bins[i] = b
	}
	return bins
}

// dedupe drops repeated bounds that tied splits inside runs of equal values
// can produce.
func dedupe(breaks []float64) []float64 {
	out := make([]float64, 0, len(breaks))
	for _, b := range breaks {
		if len(out) == 0 || b != out[len(out)-1] {
			out = append(out, b)
		}
	}
	return out
}

func countDistinct(sorted []float64) int {
	n := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			n++
		}
	}
	return n
}
