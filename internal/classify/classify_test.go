package classify

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaturalBreaks_SeparatedClusters(t *testing.T) {
	values := []float64{21, 1, 12, 2, 3, 10, 22, 11, 20}

	c, err := NaturalBreaks(values, 3)
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 12, 22}, c.Breaks)
	assert.Equal(t, []int{2, 0, 1, 0, 0, 1, 2, 1, 2}, c.Bins)
	assert.Equal(t, 3, c.K())
	assert.Equal(t, []int{3, 3, 3}, c.Counts())
	assert.Equal(t, 1.0, c.Min)
}

func TestNaturalBreaks_DoesNotReorderInput(t *testing.T) {
	values := []float64{5, 1, 3}
	_, err := NaturalBreaks(values, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 1, 3}, values)
}

func TestNaturalBreaks_KReducedToDistinct(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		k      int
		want   []float64
	}{
		{name: "single value", values: []float64{4}, k: 5, want: []float64{4}},
		{name: "all equal", values: []float64{7, 7, 7}, k: 5, want: []float64{7}},
		{name: "two distinct", values: []float64{1, 1, 9, 9}, k: 5, want: []float64{1, 9}},
		{name: "one class", values: []float64{1, 2, 3}, k: 1, want: []float64{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NaturalBreaks(tt.values, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Breaks)
			for _, b := range c.Bins {
				assert.Less(t, b, c.K())
			}
		})
	}
}

func TestNaturalBreaks_BreaksAscendingEndAtMax(t *testing.T) {
	values := []float64{0.5, 3.2, 8.9, 1.1, 4.4, 15.0, 2.2, 9.7, 0.1, 12.3, 6.6, 7.7}

	c, err := NaturalBreaks(values, 5)
	require.NoError(t, err)
	require.Equal(t, 5, c.K())

	for i := 1; i < len(c.Breaks); i++ {
		assert.Less(t, c.Breaks[i-1], c.Breaks[i])
	}
	assert.Equal(t, 15.0, c.Breaks[len(c.Breaks)-1])
	for i, v := range values {
		assert.LessOrEqual(t, v, c.Breaks[c.Bins[i]])
		if c.Bins[i] > 0 {
			assert.Greater(t, v, c.Breaks[c.Bins[i]-1])
		}
	}
}

func TestNaturalBreaks_Errors(t *testing.T) {
	_, err := NaturalBreaks([]float64{1, 2}, 0)
	assert.True(t, eris.Is(err, ErrInvalidClasses))

	_, err = NaturalBreaks([]float64{1, 2}, -3)
	assert.True(t, eris.Is(err, ErrInvalidClasses))

	_, err = NaturalBreaks(nil, 5)
	assert.True(t, eris.Is(err, ErrNoValues))

	_, err = NaturalBreaks([]float64{1, math.NaN()}, 2)
	assert.True(t, eris.Is(err, ErrNoValues))
}

func TestLabels(t *testing.T) {
	c := &Classification{Breaks: []float64{3, 12, 22}, Min: 1}
	assert.Equal(t, []string{
		"[1.00, 3.00]",
		"(3.00, 12.00]",
		"(12.00, 22.00]",
	}, c.Labels())
}
