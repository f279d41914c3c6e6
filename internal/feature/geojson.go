package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/crs"
)

// crsMember is the pre-RFC 7946 named CRS object still emitted by most
// desktop GIS exports.
type crsMember struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type rawFeature struct {
	ID         json.RawMessage `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type rawCollection struct {
	Type     string       `json:"type"`
	CRS      *crsMember   `json:"crs,omitempty"`
	Features []rawFeature `json:"features"`
}

type collectionOut struct {
	Type     string             `json:"type"`
	CRS      *crsMember         `json:"crs,omitempty"`
	Features []*geojson.Feature `json:"features"`
}

// ReadGeoJSON decodes a GeoJSON FeatureCollection. A named "crs" member is
// honoured; without one the collection is EPSG:4326 as RFC 7946 requires.
func ReadGeoJSON(r io.Reader) (*Collection, error) {
	var raw rawCollection
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, eris.Wrap(err, "geojson: decode")
	}
	if raw.Type != "FeatureCollection" {
		return nil, eris.Errorf("geojson: expected FeatureCollection, got %q", raw.Type)
	}

	c := crs.MustEPSG(crs.WGS84)
	if raw.CRS != nil && raw.CRS.Properties.Name != "" {
		parsed, err := crs.Parse(raw.CRS.Properties.Name)
		if err != nil {
			return nil, eris.Wrap(err, "geojson: crs member")
		}
		c = parsed
	}

	out := &Collection{CRS: c, Features: make([]Feature, 0, len(raw.Features))}
	for i, rf := range raw.Features {
		f := Feature{ID: decodeID(rf.ID), Properties: rf.Properties}
		if f.Properties == nil {
			f.Properties = map[string]any{}
		}
		if len(rf.Geometry) > 0 && !bytes.Equal(bytes.TrimSpace(rf.Geometry), []byte("null")) {
			var g geom.T
			if err := geojson.Unmarshal(rf.Geometry, &g); err != nil {
				return nil, eris.Wrapf(err, "geojson: feature %d geometry", i)
			}
			f.Geometry = g
		}
		out.Features = append(out.Features, f)
	}

	zap.L().Debug("geojson: read collection",
		zap.Int("features", len(out.Features)),
		zap.String("crs", c.String()),
	)
	return out, nil
}

// WriteGeoJSON encodes the collection. Non-WGS84 collections carry a named
// "crs" member so they round-trip through ReadGeoJSON.
func WriteGeoJSON(w io.Writer, c *Collection) error {
	out := collectionOut{Type: "FeatureCollection", Features: make([]*geojson.Feature, len(c.Features))}
	if !c.CRS.IsZero() && c.CRS.Code != crs.WGS84 {
		m := &crsMember{Type: "name"}
		if c.CRS.Code != 0 {
			m.Properties.Name = fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", c.CRS.Code)
		} else {
			m.Properties.Name = c.CRS.Def
		}
		out.CRS = m
	}
	for i, f := range c.Features {
		out.Features[i] = &geojson.Feature{ID: f.ID, Geometry: f.Geometry, Properties: f.Properties}
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "geojson: encode")
	}
	return nil
}

// decodeID accepts string or numeric feature ids.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
