package choropleth

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hex(t *testing.T, c any) string {
	t.Helper()
	cf, ok := c.(colorful.Color)
	require.True(t, ok)
	return cf.Hex()
}

func TestPalette_Endpoints(t *testing.T) {
	p, err := Palette("Blues", 5)
	require.NoError(t, err)
	require.Len(t, p, 5)
	assert.Equal(t, "#f7fbff", hex(t, p[0]))
	assert.Equal(t, "#08306b", hex(t, p[4]))
}

func TestPalette_Reversed(t *testing.T) {
	p, err := Palette("Reds_r", 2)
	require.NoError(t, err)
	assert.Equal(t, "#67000d", hex(t, p[0]))
	assert.Equal(t, "#fff5f0", hex(t, p[1]))
}

func TestPalette_GetsDarker(t *testing.T) {
	for _, name := range []string{"Blues", "Greens", "Greys", "Oranges", "Purples", "Reds", "YlOrRd", "YlGnBu"} {
		t.Run(name, func(t *testing.T) {
			p, err := Palette(name, 7)
			require.NoError(t, err)
			for i := 1; i < len(p); i++ {
				prev, _ := colorful.MakeColor(p[i-1])
				cur, _ := colorful.MakeColor(p[i])
				l0, _, _ := prev.Lab()
				l1, _, _ := cur.Lab()
				assert.Less(t, l1, l0, "class %d", i)
			}
		})
	}
}

func TestPalette_SingleClass(t *testing.T) {
	p, err := Palette("Greys", 1)
	require.NoError(t, err)
	assert.Len(t, p, 1)
}

func TestPalette_Errors(t *testing.T) {
	_, err := Palette("Jet", 3)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownColormap))

	_, err = Palette("Blues", 0)
	assert.Error(t, err)
}

func TestColormaps(t *testing.T) {
	names := Colormaps()
	assert.Contains(t, names, "Blues")
	assert.Contains(t, names, "viridis")
	assert.IsNonDecreasing(t, names)
}
