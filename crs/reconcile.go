package crs

import (
	"github.com/pkg/errors"
)

// LocalUnnamed is what GeoTIFF-to-WKT conversion yields for keys that describe nothing.
const LocalUnnamed = `LOCAL_CS["unnamed",UNIT["unknown",1]]`

// Reconcile checks a WKT derived from GeoTIFF keys against the registry. When the WKT cites an
// EPSG code whose canonical definition differs from it, the citation is stale: the top level
// AUTHORITY is removed so the content stands on its own. Otherwise derived is returned as is.
func Reconcile(derived string, reg Registry) (string, error) {
	root, err := ParseWKT(derived)
	if err != nil {
		return "", err
	}
	code, ok := root.EPSGCode()
	if !ok {
		return derived, nil
	}
	canonicalWKT, ok := reg.Lookup(code)
	if !ok {
		return derived, nil
	}
	canonical, err := ParseWKT(canonicalWKT)
	if err != nil {
		return "", errors.Wrapf(err, "registry definition of EPSG:%d", code)
	}
	if root.Equivalent(canonical) {
		return derived, nil
	}
	root.RemoveChild("AUTHORITY")
	return root.String(), nil
}

// Resolve picks the CRS of a file from its two possible sources. An embedded WKT string always
// wins. Otherwise GeoTIFF keys, when present, are converted and reconciled. The result is "" when
// neither source describes a system.
func Resolve(embedded string, keys *GeoKeys, conv Converter, reg Registry) (string, error) {
	if embedded != "" {
		return embedded, nil
	}
	if keys == nil {
		return "", nil
	}
	derived, err := conv.ToWKT(keys)
	if err != nil {
		return "", err
	}
	if derived == "" || derived == LocalUnnamed {
		return "", nil
	}
	return Reconcile(derived, reg)
}
