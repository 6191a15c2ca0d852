package crs

import (
	"fmt"
	"strings"
)

// Registry resolves EPSG codes to canonical WKT.
type Registry interface {
	Lookup(code int) (string, bool)
}

// MapRegistry is a Registry backed by a map, for definitions the built in table lacks.
type MapRegistry map[int]string

// Lookup implements Registry.
func (r MapRegistry) Lookup(code int) (string, bool) {
	wkt, ok := r[code]
	return wkt, ok
}

// ChainRegistry consults each registry in order.
type ChainRegistry []Registry

// Lookup implements Registry.
func (r ChainRegistry) Lookup(code int) (string, bool) {
	for _, reg := range r {
		if wkt, ok := reg.Lookup(code); ok {
			return wkt, true
		}
	}
	return "", false
}

const (
	wkt4326 = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,` +
		`AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],` +
		`UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`
	wkt4269 = `GEOGCS["NAD83",DATUM["North_American_Datum_1983",SPHEROID["GRS 1980",6378137,298.257222101,` +
		`AUTHORITY["EPSG","7019"]],TOWGS84[0,0,0,0,0,0,0],AUTHORITY["EPSG","6269"]],` +
		`PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],` +
		`UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4269"]]`
	wkt3857 = `PROJCS["WGS 84 / Pseudo-Mercator",` + wkt4326 + `,PROJECTION["Mercator_1SP"],` +
		`PARAMETER["central_meridian",0],PARAMETER["scale_factor",1],PARAMETER["false_easting",0],` +
		`PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",EAST],` +
		`AXIS["Northing",NORTH],AUTHORITY["EPSG","3857"]]`
	wkt5703 = `VERT_CS["NAVD88 height",VERT_DATUM["North American Vertical Datum 1988",2005,` +
		`AUTHORITY["EPSG","5103"]],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Up",UP],AUTHORITY["EPSG","5703"]]`
	utmTemplate = `PROJCS["%s / UTM zone %d%s",%s,PROJECTION["Transverse_Mercator"],` +
		`PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",%d],PARAMETER["scale_factor",0.9996],` +
		`PARAMETER["false_easting",500000],PARAMETER["false_northing",%d],` +
		`UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",EAST],AXIS["Northing",NORTH],` +
		`AUTHORITY["EPSG","%d"]]`
)

type builtinRegistry struct{}

// DefaultRegistry returns the built in registry: WGS 84 (4326), NAD83 (4269), Pseudo-Mercator
// (3857), NAVD88 height (5703), WGS 84 UTM zones (32601-32660, 32701-32760) and NAD83 UTM zones
// (26901-26923).
func DefaultRegistry() Registry {
	return builtinRegistry{}
}

func (builtinRegistry) Lookup(code int) (string, bool) {
	switch {
	case code == 4326:
		return wkt4326, true
	case code == 4269:
		return wkt4269, true
	case code == 3857:
		return wkt3857, true
	case code == 5703:
		return wkt5703, true
	case code > 32600 && code <= 32660:
		return utmWKT("WGS 84", wkt4326, code-32600, true, code), true
	case code > 32700 && code <= 32760:
		return utmWKT("WGS 84", wkt4326, code-32700, false, code), true
	case code > 26900 && code <= 26923:
		return utmWKT("NAD83", wkt4269, code-26900, true, code), true
	}
	return "", false
}

func utmWKT(datum, geogcs string, zone int, north bool, code int) string {
	hemisphere, falseNorthing := "N", 0
	if !north {
		hemisphere, falseNorthing = "S", 10000000
	}
	return fmt.Sprintf(utmTemplate, datum, zone, hemisphere, geogcs, zone*6-183, falseNorthing, code)
}

// LinearUnitName returns the WKT unit name and metres-per-unit of an EPSG linear unit code.
func LinearUnitName(code uint16) (string, float64, bool) {
	switch code {
	case LinearUnitMetre:
		return "metre", 1, true
	case LinearUnitFoot:
		return "foot", 0.3048, true
	case LinearUnitUSSurveyFoot:
		return "US survey foot", 0.304800609601219, true
	}
	return "", 0, false
}

// linearUnitCode is the inverse of LinearUnitName, matching on the conversion factor.
func linearUnitCode(name string, factor float64) (uint16, bool) {
	for _, code := range []uint16{LinearUnitMetre, LinearUnitFoot, LinearUnitUSSurveyFoot} {
		unitName, unitFactor, _ := LinearUnitName(code)
		if strings.EqualFold(name, unitName) || nearlyEqual(factor, unitFactor) {
			return code, true
		}
	}
	return 0, false
}

func nearlyEqual(a, b float64) bool {
	const tol = 1e-9
	d := a - b
	return d < tol && d > -tol
}
