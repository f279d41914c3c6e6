package choropleth

import (
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// ErrUnknownColormap is returned for a colour scheme name not in ramps.
var ErrUnknownColormap = eris.New("choropleth: unknown colormap")

// ramps are ColorBrewer / matplotlib anchor colours, light to dark.
// A "_r" suffix on a name reverses the ramp.
var ramps = map[string][]string{
	"Blues":   {"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	"Greens":  {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"Greys":   {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"},
	"Oranges": {"#fff5eb", "#fee6ce", "#fdd0a2", "#fdae6b", "#fd8d3c", "#f16913", "#d94801", "#a63603", "#7f2704"},
	"Purples": {"#fcfbfd", "#efedf5", "#dadaeb", "#bcbddc", "#9e9ac8", "#807dba", "#6a51a3", "#54278f", "#3f007d"},
	"Reds":    {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"YlOrRd":  {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	"YlGnBu":  {"#ffffd9", "#edf8b1", "#c7e9b4", "#7fcdbb", "#41b6c4", "#1d91c0", "#225ea8", "#253494", "#081d58"},
	"viridis": {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
}

// Colormaps lists the supported scheme names.
func Colormaps() []string {
	names := make([]string, 0, len(ramps))
	for name := range ramps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Palette samples k evenly spaced colours from the named ramp, blending
// anchors in CIE Lab.
func Palette(name string, k int) ([]color.Color, error) {
	anchors, err := anchorColors(name)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, eris.Errorf("choropleth: palette size %d", k)
	}

	out := make([]color.Color, k)
	for i := range out {
		t := 0.5
		if k > 1 {
			t = float64(i) / float64(k-1)
		}
		out[i] = sample(anchors, t)
	}
	return out, nil
}

func anchorColors(name string) ([]colorful.Color, error) {
	base, reversed := strings.CutSuffix(name, "_r")
	hexes, ok := ramps[base]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownColormap, "choropleth: %q", name)
	}

	anchors := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, eris.Wrapf(err, "choropleth: ramp %s anchor %s", base, h)
		}
		anchors[i] = c
	}
	if reversed {
		for i, j := 0, len(anchors)-1; i < j; i, j = i+1, j-1 {
			anchors[i], anchors[j] = anchors[j], anchors[i]
		}
	}
	return anchors, nil
}

// sample returns the ramp colour at t in [0, 1].
func sample(anchors []colorful.Color, t float64) color.Color {
	pos := t * float64(len(anchors)-1)
	lo := int(math.Floor(pos))
	if lo >= len(anchors)-1 {
		return anchors[len(anchors)-1].Clamped()
	}
	frac := pos - float64(lo)
	if frac == 0 {
		return anchors[lo]
	}
	return anchors[lo].BlendLab(anchors[lo+1], frac).Clamped()
}
