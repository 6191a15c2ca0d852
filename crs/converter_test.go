package crs

import (
	"errors"
	"strings"
	"testing"

	"go.viam.com/test"
)

func projectedKeys(code uint16) *GeoKeys {
	keys := NewGeoKeys()
	keys.SetShort(GTModelTypeGeoKey, ModelTypeProjected)
	keys.SetShort(GTRasterTypeGeoKey, RasterPixelIsArea)
	keys.SetShort(ProjectedCSTypeGeoKey, code)
	return keys
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	for _, code := range []int{4326, 4269, 3857, 5703, 32601, 32660, 32701, 32760, 26910} {
		wkt, ok := reg.Lookup(code)
		test.That(t, ok, test.ShouldBeTrue)
		root, err := ParseWKT(wkt)
		test.That(t, err, test.ShouldBeNil)
		got, ok := root.EPSGCode()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldEqual, code)
	}
	for _, code := range []int{0, 32600, 32661, 32700, 26924, 2193} {
		_, ok := reg.Lookup(code)
		test.That(t, ok, test.ShouldBeFalse)
	}

	wkt, _ := reg.Lookup(32717)
	test.That(t, wkt, test.ShouldContainSubstring, `"WGS 84 / UTM zone 17S"`)
	test.That(t, wkt, test.ShouldContainSubstring, `PARAMETER["central_meridian",-81]`)
	test.That(t, wkt, test.ShouldContainSubstring, `PARAMETER["false_northing",10000000]`)

	custom := ChainRegistry{MapRegistry{2193: `PROJCS["NZGD2000 / New Zealand Transverse Mercator 2000",AUTHORITY["EPSG","2193"]]`}, reg}
	_, ok := custom.Lookup(2193)
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = custom.Lookup(4326)
	test.That(t, ok, test.ShouldBeTrue)
}

func TestEPSGConverterToWKT(t *testing.T) {
	conv := NewEPSGConverter(nil)

	wkt, err := conv.ToWKT(projectedKeys(32617))
	test.That(t, err, test.ShouldBeNil)
	canonical, _ := DefaultRegistry().Lookup(32617)
	test.That(t, wkt, test.ShouldEqual, canonical)

	keys := projectedKeys(32617)
	keys.SetShort(ProjLinearUnitsGeoKey, LinearUnitFoot)
	keys.SetString(PCSCitationGeoKey, "UTM 17 feet")
	wkt, err = conv.ToWKT(keys)
	test.That(t, err, test.ShouldBeNil)
	root, err := ParseWKT(wkt)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, root.Name(), test.ShouldEqual, "UTM 17 feet")
	test.That(t, root.Child("UNIT").Name(), test.ShouldEqual, "foot")

	geog := NewGeoKeys()
	geog.SetShort(GTModelTypeGeoKey, ModelTypeGeographic)
	geog.SetShort(GeographicTypeGeoKey, 4269)
	geog.SetShort(VerticalCSTypeGeoKey, 5703)
	wkt, err = conv.ToWKT(geog)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wkt, test.ShouldStartWith, `COMPD_CS["NAD83 + NAVD88 height",GEOGCS["NAD83"`)

	wkt, err = conv.ToWKT(NewGeoKeys())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wkt, test.ShouldEqual, "")

	_, err = conv.ToWKT(projectedKeys(UserDefined))
	test.That(t, errors.Is(err, ErrNotConvertible), test.ShouldBeTrue)
	_, err = conv.ToWKT(projectedKeys(2193))
	test.That(t, errors.Is(err, ErrNotConvertible), test.ShouldBeTrue)
}

func TestEPSGConverterToGeoKeys(t *testing.T) {
	conv := NewEPSGConverter(DefaultRegistry())
	utm, _ := DefaultRegistry().Lookup(32617)

	keys, err := conv.ToGeoKeys(utm)
	test.That(t, err, test.ShouldBeNil)
	model, _ := keys.Short(GTModelTypeGeoKey)
	test.That(t, model, test.ShouldEqual, ModelTypeProjected)
	pcs, _ := keys.Short(ProjectedCSTypeGeoKey)
	test.That(t, pcs, test.ShouldEqual, 32617)
	gcs, _ := keys.Short(GeographicTypeGeoKey)
	test.That(t, gcs, test.ShouldEqual, 4326)
	unit, _ := keys.Short(ProjLinearUnitsGeoKey)
	test.That(t, unit, test.ShouldEqual, LinearUnitMetre)

	// Keys produced from the canonical WKT convert back to it.
	back, err := conv.ToWKT(keys)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back, test.ShouldEqual, utm)

	keys, err = conv.ToGeoKeys(wkt4326)
	test.That(t, err, test.ShouldBeNil)
	model, _ = keys.Short(GTModelTypeGeoKey)
	test.That(t, model, test.ShouldEqual, ModelTypeGeographic)
	citation, _ := keys.String(GeogCitationGeoKey)
	test.That(t, citation, test.ShouldEqual, "WGS 84")

	compound := `COMPD_CS["x",` + utm + `,` + wkt5703 + `]`
	keys, err = conv.ToGeoKeys(compound)
	test.That(t, err, test.ShouldBeNil)
	vcs, _ := keys.Short(VerticalCSTypeGeoKey)
	test.That(t, vcs, test.ShouldEqual, 5703)

	stripped := strings.Replace(utm, `,AUTHORITY["EPSG","32617"]]`, `]`, 1)
	_, err = conv.ToGeoKeys(stripped)
	test.That(t, errors.Is(err, ErrNotConvertible), test.ShouldBeTrue)
	_, err = conv.ToGeoKeys(LocalUnnamed)
	test.That(t, errors.Is(err, ErrNotConvertible), test.ShouldBeTrue)
	_, err = conv.ToGeoKeys("not wkt")
	test.That(t, errors.Is(err, ErrInvalidWKT), test.ShouldBeTrue)
}

func TestReconcile(t *testing.T) {
	reg := DefaultRegistry()
	canonical, _ := reg.Lookup(3857)

	t.Run("matching definition is kept", func(t *testing.T) {
		out, err := Reconcile(canonical, reg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldEqual, canonical)
	})

	t.Run("stale authority is stripped", func(t *testing.T) {
		stale := strings.Replace(canonical, `PARAMETER["false_easting",0]`, `PARAMETER["false_easting",1000]`, 1)
		out, err := Reconcile(stale, reg)
		test.That(t, err, test.ShouldBeNil)
		root, err := ParseWKT(out)
		test.That(t, err, test.ShouldBeNil)
		_, ok := root.EPSGCode()
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, out, test.ShouldContainSubstring, `PARAMETER["false_easting",1000]`)
		// Only the top level citation goes.
		test.That(t, out, test.ShouldContainSubstring, `AUTHORITY["EPSG","4326"]`)
	})

	t.Run("no authority or unknown code", func(t *testing.T) {
		noAuth := `GEOGCS["custom",UNIT["degree",0.0174532925199433]]`
		out, err := Reconcile(noAuth, reg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldEqual, noAuth)

		unknown := `PROJCS["nz",AUTHORITY["EPSG","2193"]]`
		out, err = Reconcile(unknown, reg)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldEqual, unknown)
	})

	t.Run("unparseable", func(t *testing.T) {
		_, err := Reconcile("PROJCS[", reg)
		test.That(t, errors.Is(err, ErrInvalidWKT), test.ShouldBeTrue)
	})
}

func TestResolve(t *testing.T) {
	reg := DefaultRegistry()
	conv := NewEPSGConverter(reg)
	embedded := `GEOGCS["embedded"]`

	out, err := Resolve(embedded, projectedKeys(32617), conv, reg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, embedded)

	out, err = Resolve("", nil, conv, reg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "")

	keys := projectedKeys(32617)
	keys.SetShort(ProjLinearUnitsGeoKey, LinearUnitUSSurveyFoot)
	out, err = Resolve("", keys, conv, reg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `UNIT["US survey foot"`)
	test.That(t, out, test.ShouldNotContainSubstring, `AUTHORITY["EPSG","32617"]`)

	out, err = Resolve("", projectedKeys(32617), conv, reg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `AUTHORITY["EPSG","32617"]`)

	_, err = Resolve("", projectedKeys(2193), conv, reg)
	test.That(t, err, test.ShouldNotBeNil)
}
