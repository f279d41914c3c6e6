// Package crs resolves coordinate reference systems and reprojects go-geom
// geometries between them.
package crs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
)

// ErrUndefinedCRS is returned when a collection or definition has no usable CRS.
var ErrUndefinedCRS = eris.New("crs: undefined coordinate reference system")

// Well-known codes used across the tool.
const (
	WGS84       = 4326 // RFC 7946 default for GeoJSON
	NAD83       = 4269 // cartographic reference for choropleth output
	WebMercator = 3857
)

// epsgDefs maps EPSG codes to proj4 definitions understood by ctessum/geom/proj.
// UTM zones are generated in EPSG().
var epsgDefs = map[int]string{
	4326: "+proj=longlat +datum=WGS84 +no_defs",
	4269: "+proj=longlat +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +no_defs",
	3857: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs",
	5070: "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	2263: "+proj=lcc +lat_1=41.03333333333333 +lat_2=40.66666666666666 +lat_0=40.16666666666666 +lon_0=-74 +x_0=300000.0000000001 +y_0=0 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +to_meter=0.3048006096012192 +no_defs",
	2272: "+proj=lcc +lat_1=40.96666666666667 +lat_2=39.93333333333333 +lat_0=39.33333333333334 +lon_0=-77.75 +x_0=600000 +y_0=0 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +to_meter=0.3048006096012192 +no_defs",
	2229: "+proj=lcc +lat_1=35.46666666666667 +lat_2=34.03333333333333 +lat_0=33.5 +lon_0=-118 +x_0=2000000.0001016 +y_0=500000.0001016001 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +to_meter=0.3048006096012192 +no_defs",
}

// CRS identifies a coordinate reference system. The zero value is undefined.
type CRS struct {
	// Name is "EPSG:<code>" for registry systems, otherwise the raw definition.
	Name string
	// Def is a proj4 or WKT definition.
	Def string
	// Code is the EPSG code, or 0 for custom definitions.
	Code int
}

// EPSG returns the CRS for a registered EPSG code.
func EPSG(code int) (CRS, error) {
	def, ok := epsgDefs[code]
	if !ok {
		def, ok = utmDef(code)
	}
	if !ok {
		return CRS{}, eris.Wrapf(ErrUndefinedCRS, "crs: unsupported EPSG code %d", code)
	}
	return CRS{Name: fmt.Sprintf("EPSG:%d", code), Def: def, Code: code}, nil
}

// MustEPSG is EPSG for codes known to be registered; it panics otherwise.
func MustEPSG(code int) CRS {
	c, err := EPSG(code)
	if err != nil {
		panic(err)
	}
	return c
}

// utmDef covers WGS84 north/south (326xx/327xx) and NAD83 (269xx) UTM zones.
func utmDef(code int) (string, bool) {
	switch {
	case code >= 32601 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), true
	case code >= 32701 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), true
	case code >= 26901 && code <= 26923:
		return fmt.Sprintf("+proj=utm +zone=%d +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs", code-26900), true
	}
	return "", false
}

// Parse resolves a CRS from "EPSG:nnnn", an OGC URN, a proj4 string or WKT.
func Parse(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, ErrUndefinedCRS
	}

	upper := strings.ToUpper(s)
	switch {
	case upper == "CRS84" || strings.HasSuffix(upper, ":CRS84"):
		return EPSG(WGS84)
	case strings.HasPrefix(upper, "EPSG:"):
		return parseCode(s[len("EPSG:"):])
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:"):
		idx := strings.LastIndex(s, ":")
		return parseCode(s[idx+1:])
	}

	if _, err := proj.Parse(s); err != nil {
		return CRS{}, eris.Wrapf(ErrUndefinedCRS, "crs: parse definition: %v", err)
	}
	return CRS{Name: s, Def: s}, nil
}

func parseCode(s string) (CRS, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return CRS{}, eris.Wrapf(ErrUndefinedCRS, "crs: invalid EPSG code %q", s)
	}
	return EPSG(code)
}

// IsZero reports whether the CRS is undefined.
func (c CRS) IsZero() bool {
	return c.Def == ""
}

// Equal reports whether two CRS values describe the same system.
func (c CRS) Equal(o CRS) bool {
	if c.Code != 0 && o.Code != 0 {
		return c.Code == o.Code
	}
	return normalize(c.Def) == normalize(o.Def)
}

func (c CRS) String() string {
	if c.IsZero() {
		return "undefined"
	}
	return c.Name
}

func normalize(def string) string {
	return strings.Join(strings.Fields(def), " ")
}
