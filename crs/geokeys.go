package crs

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// GeoTIFF key ids used by point-cloud files.
const (
	GTModelTypeGeoKey      = 1024
	GTRasterTypeGeoKey     = 1025
	GTCitationGeoKey       = 1026
	GeographicTypeGeoKey   = 2048
	GeogCitationGeoKey     = 2049
	GeogAngularUnitsGeoKey = 2054
	ProjectedCSTypeGeoKey  = 3072
	PCSCitationGeoKey      = 3073
	ProjLinearUnitsGeoKey  = 3076
	VerticalCSTypeGeoKey   = 4096
	VerticalUnitsGeoKey    = 4099
)

// Values of GeoTIFF keys.
const (
	ModelTypeProjected  = 1
	ModelTypeGeographic = 2
	RasterPixelIsArea   = 1
	UserDefined         = 32767

	LinearUnitMetre        = 9001
	LinearUnitFoot         = 9002
	LinearUnitUSSurveyFoot = 9003
	AngularUnitDegree      = 9102
)

// Tag locations of key values: inline, the double parameters record or the ASCII record.
const (
	locationInline = 0
	locationDouble = 34736
	locationASCII  = 34737
)

// GeoKey is one entry of a GeoTIFF key directory.
type GeoKey struct {
	ID       uint16
	Location uint16
	Count    uint16
	Value    uint16
}

// GeoKeys is a GeoTIFF key directory with its double and ASCII parameter stores.
type GeoKeys struct {
	Version  uint16
	Revision uint16
	Minor    uint16
	Keys     []GeoKey
	Doubles  []float64
	ASCII    string
}

// NewGeoKeys returns an empty version 1.1.0 directory.
func NewGeoKeys() *GeoKeys {
	return &GeoKeys{Version: 1, Revision: 1}
}

// ParseGeoKeys decodes the three GeoTIFF records. doubles and ascii may be nil.
func ParseGeoKeys(directory, doubles, ascii []byte) (*GeoKeys, error) {
	if len(directory) < 8 || len(directory)%2 != 0 {
		return nil, errors.Errorf("geokey directory of %d bytes", len(directory))
	}
	words := make([]uint16, len(directory)/2)
	if err := binary.Read(bytes.NewReader(directory), binary.LittleEndian, words); err != nil {
		return nil, errors.Wrap(err, "reading geokey directory")
	}
	keys := &GeoKeys{Version: words[0], Revision: words[1], Minor: words[2]}
	if keys.Version != 1 {
		return nil, errors.Errorf("unsupported geokey directory version %d", keys.Version)
	}
	numKeys := int(words[3])
	if len(words) < 4+4*numKeys {
		return nil, errors.Errorf("geokey directory declares %d keys but holds %d", numKeys, (len(words)-4)/4)
	}
	for i := 0; i < numKeys; i++ {
		w := words[4+4*i:]
		keys.Keys = append(keys.Keys, GeoKey{ID: w[0], Location: w[1], Count: w[2], Value: w[3]})
	}

	if len(doubles)%8 != 0 {
		return nil, errors.Errorf("geokey double parameters of %d bytes", len(doubles))
	}
	keys.Doubles = make([]float64, len(doubles)/8)
	for i := range keys.Doubles {
		keys.Doubles[i] = math.Float64frombits(binary.LittleEndian.Uint64(doubles[8*i:]))
	}
	keys.ASCII = string(ascii)
	return keys, nil
}

// Encode returns the directory, double and ASCII records. The latter two are nil when unused.
func (g *GeoKeys) Encode() (directory, doubles, ascii []byte) {
	sorted := append([]GeoKey(nil), g.Keys...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	words := []uint16{g.Version, g.Revision, g.Minor, uint16(len(sorted))}
	for _, k := range sorted {
		words = append(words, k.ID, k.Location, k.Count, k.Value)
	}
	directory = make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(directory[2*i:], w)
	}

	if len(g.Doubles) > 0 {
		doubles = make([]byte, 8*len(g.Doubles))
		for i, d := range g.Doubles {
			binary.LittleEndian.PutUint64(doubles[8*i:], math.Float64bits(d))
		}
	}
	if g.ASCII != "" {
		ascii = append([]byte(g.ASCII), 0)
	}
	return directory, doubles, ascii
}

func (g *GeoKeys) find(id uint16) (GeoKey, bool) {
	for _, k := range g.Keys {
		if k.ID == id {
			return k, true
		}
	}
	return GeoKey{}, false
}

func (g *GeoKeys) set(key GeoKey) {
	for i, k := range g.Keys {
		if k.ID == key.ID {
			g.Keys[i] = key
			return
		}
	}
	g.Keys = append(g.Keys, key)
}

// Short returns an inline key value.
func (g *GeoKeys) Short(id uint16) (uint16, bool) {
	k, ok := g.find(id)
	if !ok || k.Location != locationInline {
		return 0, false
	}
	return k.Value, true
}

// Double returns the first double of a key stored in the double parameters.
func (g *GeoKeys) Double(id uint16) (float64, bool) {
	k, ok := g.find(id)
	if !ok || k.Location != locationDouble || k.Count == 0 || int(k.Value) >= len(g.Doubles) {
		return 0, false
	}
	return g.Doubles[k.Value], true
}

// String returns a key stored in the ASCII parameters, without its '|' terminator.
func (g *GeoKeys) String(id uint16) (string, bool) {
	k, ok := g.find(id)
	if !ok || k.Location != locationASCII {
		return "", false
	}
	start, end := int(k.Value), int(k.Value)+int(k.Count)
	if start > len(g.ASCII) || end > len(g.ASCII) {
		return "", false
	}
	return strings.TrimRight(g.ASCII[start:end], "|\x00"), true
}

// SetShort stores an inline key value.
func (g *GeoKeys) SetShort(id, value uint16) {
	g.set(GeoKey{ID: id, Location: locationInline, Count: 1, Value: value})
}

// SetDouble appends a double parameter for the key.
func (g *GeoKeys) SetDouble(id uint16, value float64) {
	g.set(GeoKey{ID: id, Location: locationDouble, Count: 1, Value: uint16(len(g.Doubles))})
	g.Doubles = append(g.Doubles, value)
}

// SetString appends an ASCII parameter for the key, terminated with '|'.
func (g *GeoKeys) SetString(id uint16, value string) {
	value = strings.ReplaceAll(value, "|", " ") + "|"
	g.set(GeoKey{ID: id, Location: locationASCII, Count: uint16(len(value)), Value: uint16(len(g.ASCII))})
	g.ASCII += value
}
