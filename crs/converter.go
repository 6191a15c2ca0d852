package crs

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrNotConvertible is returned when a CRS cannot be expressed in the requested form.
var ErrNotConvertible = errors.New("coordinate reference system not convertible")

// Converter translates between GeoTIFF keys and WKT.
type Converter interface {
	// ToWKT returns the WKT described by keys, or "" when the keys describe no CRS.
	ToWKT(keys *GeoKeys) (string, error)
	// ToGeoKeys encodes a WKT string as GeoTIFF keys.
	ToGeoKeys(wkt string) (*GeoKeys, error)
}

// EPSGConverter converts through EPSG codes: keys must name their system by code, and WKT must
// carry an EPSG authority. Citations and linear units in the keys are applied on top of the
// registry definition.
type EPSGConverter struct {
	registry Registry
}

// NewEPSGConverter returns a converter over reg. A nil reg means DefaultRegistry().
func NewEPSGConverter(reg Registry) *EPSGConverter {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &EPSGConverter{registry: reg}
}

func (c *EPSGConverter) canonical(code uint16) (*Node, error) {
	wkt, ok := c.registry.Lookup(int(code))
	if !ok {
		return nil, errors.Wrapf(ErrNotConvertible, "EPSG:%d is not in the registry", code)
	}
	return ParseWKT(wkt)
}

// ToWKT implements Converter.
func (c *EPSGConverter) ToWKT(keys *GeoKeys) (string, error) {
	if pcs, ok := keys.Short(ProjectedCSTypeGeoKey); ok {
		if pcs == UserDefined {
			return "", errors.Wrap(ErrNotConvertible, "user defined projected system")
		}
		node, err := c.canonical(pcs)
		if err != nil {
			return "", err
		}
		if citation, ok := keys.String(PCSCitationGeoKey); ok && citation != "" {
			node.SetName(citation)
		} else if citation, ok := keys.String(GTCitationGeoKey); ok && citation != "" {
			node.SetName(citation)
		}
		if unit, ok := keys.Short(ProjLinearUnitsGeoKey); ok && unit != LinearUnitMetre {
			name, factor, known := LinearUnitName(unit)
			if !known {
				return "", errors.Wrapf(ErrNotConvertible, "linear unit %d", unit)
			}
			node.ReplaceChild(unitNode(name, factor, int(unit)))
		}
		return c.withVertical(node, keys)
	}

	if gcs, ok := keys.Short(GeographicTypeGeoKey); ok {
		if gcs == UserDefined {
			return "", errors.Wrap(ErrNotConvertible, "user defined geographic system")
		}
		node, err := c.canonical(gcs)
		if err != nil {
			return "", err
		}
		if citation, ok := keys.String(GeogCitationGeoKey); ok && citation != "" {
			node.SetName(citation)
		}
		return c.withVertical(node, keys)
	}
	return "", nil
}

func (c *EPSGConverter) withVertical(horizontal *Node, keys *GeoKeys) (string, error) {
	vcs, ok := keys.Short(VerticalCSTypeGeoKey)
	if !ok || vcs == 0 || vcs == UserDefined {
		return horizontal.String(), nil
	}
	vert, err := c.canonical(vcs)
	if err != nil {
		// An unknown vertical system does not invalidate the horizontal one.
		return horizontal.String(), nil //nolint:nilerr
	}
	name := horizontal.Name() + " + " + vert.Name()
	compound := &Node{Keyword: "COMPD_CS", Args: []Value{{Text: &name}, {Node: horizontal}, {Node: vert}}}
	return compound.String(), nil
}

func unitNode(name string, factor float64, code int) *Node {
	authName, authCode := "EPSG", strconv.Itoa(code)
	return &Node{Keyword: "UNIT", Args: []Value{
		{Text: &name},
		{Token: strconv.FormatFloat(factor, 'g', -1, 64)},
		{Node: &Node{Keyword: "AUTHORITY", Args: []Value{{Text: &authName}, {Text: &authCode}}}},
	}}
}

// ToGeoKeys implements Converter.
func (c *EPSGConverter) ToGeoKeys(wkt string) (*GeoKeys, error) {
	root, err := ParseWKT(wkt)
	if err != nil {
		return nil, err
	}
	keys := NewGeoKeys()
	keys.SetShort(GTRasterTypeGeoKey, RasterPixelIsArea)

	horizontal := root
	if root.Keyword == "COMPD_CS" {
		horizontal = nil
		for _, arg := range root.Args {
			if arg.Node == nil {
				continue
			}
			switch arg.Node.Keyword {
			case "PROJCS", "GEOGCS":
				horizontal = arg.Node
			case "VERT_CS":
				if code, ok := arg.Node.EPSGCode(); ok {
					keys.SetShort(VerticalCSTypeGeoKey, uint16(code))
				}
			}
		}
		if horizontal == nil {
			return nil, errors.Wrap(ErrNotConvertible, "compound system without a horizontal part")
		}
	}

	switch horizontal.Keyword {
	case "PROJCS":
		code, ok := horizontal.EPSGCode()
		if !ok {
			return nil, errors.Wrap(ErrNotConvertible, "projected system has no EPSG authority")
		}
		keys.SetShort(GTModelTypeGeoKey, ModelTypeProjected)
		keys.SetShort(ProjectedCSTypeGeoKey, uint16(code))
		keys.SetString(PCSCitationGeoKey, horizontal.Name())
		if geog := horizontal.Child("GEOGCS"); geog != nil {
			if gcs, ok := geog.EPSGCode(); ok {
				keys.SetShort(GeographicTypeGeoKey, uint16(gcs))
			}
		}
		if unit := horizontal.Child("UNIT"); unit != nil {
			factor, _ := unit.Number(1)
			if code, ok := linearUnitCode(unit.Name(), factor); ok {
				keys.SetShort(ProjLinearUnitsGeoKey, code)
			}
		}
	case "GEOGCS":
		code, ok := horizontal.EPSGCode()
		if !ok {
			return nil, errors.Wrap(ErrNotConvertible, "geographic system has no EPSG authority")
		}
		keys.SetShort(GTModelTypeGeoKey, ModelTypeGeographic)
		keys.SetShort(GeographicTypeGeoKey, uint16(code))
		keys.SetString(GeogCitationGeoKey, horizontal.Name())
		keys.SetShort(GeogAngularUnitsGeoKey, AngularUnitDegree)
	default:
		return nil, errors.Wrapf(ErrNotConvertible, "%s systems", horizontal.Keyword)
	}
	return keys, nil
}
