package las

import (
	"fmt"
	"math"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/lascodec/pointcloud"
)

// MaxRecordFormat is the highest point data record format this package understands.
const MaxRecordFormat = 10

// firstExtendedFormat is the first record format of the LAS 1.4 family, which widens the return
// numbers, classification and scan angle.
const firstExtendedFormat = 6

// recordFormat describes which optional fields a point data record format carries and where.
type recordFormat struct {
	id       uint8
	length   int
	extended bool
	gpsTime  bool
	color    bool
	nir      bool
	wave     bool

	gpsOffset   int
	colorOffset int
	nirOffset   int
}

var recordFormats = [MaxRecordFormat + 1]recordFormat{
	{id: 0, length: 20},
	{id: 1, length: 28, gpsTime: true, gpsOffset: 20},
	{id: 2, length: 26, color: true, colorOffset: 20},
	{id: 3, length: 34, gpsTime: true, gpsOffset: 20, color: true, colorOffset: 28},
	{id: 4, length: 57, gpsTime: true, gpsOffset: 20, wave: true},
	{id: 5, length: 63, gpsTime: true, gpsOffset: 20, color: true, colorOffset: 28, wave: true},
	{id: 6, length: 30, extended: true, gpsTime: true, gpsOffset: 22},
	{id: 7, length: 36, extended: true, gpsTime: true, gpsOffset: 22, color: true, colorOffset: 30},
	{id: 8, length: 38, extended: true, gpsTime: true, gpsOffset: 22, color: true, colorOffset: 30, nir: true, nirOffset: 36},
	{id: 9, length: 59, extended: true, gpsTime: true, gpsOffset: 22, wave: true},
	{
		id: 10, length: 67, extended: true, gpsTime: true, gpsOffset: 22,
		color: true, colorOffset: 30, nir: true, nirOffset: 36, wave: true,
	},
}

func lookupFormat(id uint8) (recordFormat, error) {
	if int(id) >= len(recordFormats) {
		return recordFormat{}, pointcloud.NewUnsupportedVersionError("point data record format %d", id)
	}
	return recordFormats[id], nil
}

// RecordLength returns the standard byte length of a record of the given format.
func RecordLength(format uint8) (int, error) {
	f, err := lookupFormat(format)
	if err != nil {
		return 0, err
	}
	return f.length, nil
}

// IsExtendedFormat reports whether format belongs to the LAS 1.4 point family.
func IsExtendedFormat(format uint8) bool {
	return format >= firstExtendedFormat
}

// Version is a LAS file version.
type Version struct {
	Major uint8
	Minor uint8
}

// Known file versions.
var (
	Version10 = Version{1, 0}
	Version11 = Version{1, 1}
	Version12 = Version{1, 2}
	Version13 = Version{1, 3}
	Version14 = Version{1, 4}
)

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v is older than other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// Supported reports whether the version can be read and written.
func (v Version) Supported() bool {
	return v.Major == 1 && v.Minor <= 4
}

// HeaderSize returns the size of the public header block for the version.
func (v Version) HeaderSize() int {
	switch {
	case v.Minor >= 4:
		return headerSize14
	case v.Minor == 3:
		return headerSize13
	default:
		return headerSize10
	}
}

// ParseVersion parses "major.minor".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ".") != 1 {
		return Version{}, errors.Errorf("invalid LAS version %q", s)
	}
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, errors.Wrapf(err, "invalid LAS version %q", s)
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" || sv.Major() > math.MaxUint8 || sv.Minor() > math.MaxUint8 {
		return Version{}, errors.Errorf("invalid LAS version %q", s)
	}
	v := Version{uint8(sv.Major()), uint8(sv.Minor())}
	if !v.Supported() {
		return Version{}, pointcloud.NewUnsupportedVersionError("LAS %s", v)
	}
	return v, nil
}

// VersionForFormat returns the file version the writer picks for a record format.
func VersionForFormat(format uint8) Version {
	switch {
	case format < 2:
		return Version11
	case format < 4:
		return Version12
	case format < 6:
		return Version13
	default:
		return Version14
	}
}

// minVersionForFormat is the oldest file version that defines a record format.
func minVersionForFormat(format uint8) Version {
	switch {
	case format < 2:
		return Version10
	case format < 4:
		return Version12
	case format < 6:
		return Version13
	default:
		return Version14
	}
}

func needsMoreBits(schema *pointcloud.Schema, name string, bits int) bool {
	ch, ok := schema.Lookup(name)
	return ok && ch.Bits > bits
}

// DeriveRecordFormat returns the smallest non-waveform record format able to hold the channels of
// schema.
func DeriveRecordFormat(schema *pointcloud.Schema) uint8 {
	hasGPSTime := schema.Has(pointcloud.ChannelGPSTime) || schema.Has(pointcloud.ChannelGPSTimeAdjusted)
	hasColor := schema.Has(pointcloud.ChannelRed) || schema.Has(pointcloud.ChannelGreen) ||
		schema.Has(pointcloud.ChannelBlue)
	hasNIR := schema.Has(pointcloud.ChannelNearInfrared)
	// Three flag bits fit the legacy classification byte; the overlap bit does not.
	flags, hasFlags := schema.Lookup(pointcloud.ChannelClassFlags)
	hasClassFlags := hasFlags && (flags.Bits == 0 || flags.Bits > 3) || schema.Has(pointcloud.ChannelScannerChannel)
	wideReturns := needsMoreBits(schema, pointcloud.ChannelNumReturns, 3) ||
		needsMoreBits(schema, pointcloud.ChannelReturnNum, 3)
	wideScanAngle := needsMoreBits(schema, pointcloud.ChannelScanAngle, 8)

	if hasClassFlags || wideReturns || wideScanAngle || hasNIR {
		switch {
		case hasNIR:
			return 8
		case hasColor:
			return 7
		default:
			return 6
		}
	}
	switch {
	case hasColor && hasGPSTime:
		return 3
	case hasColor:
		return 2
	case hasGPSTime:
		return 1
	default:
		return 0
	}
}

// ReaderSchema returns the channels a reader exposes for a record format. scale gives the
// quantization of X, Y and Z. adjustedGPSTime selects the GPS time channel name.
func ReaderSchema(format uint8, scale r3.Vector, adjustedGPSTime bool) (*pointcloud.Schema, error) {
	f, err := lookupFormat(format)
	if err != nil {
		return nil, err
	}
	returnBits := 3
	if f.extended {
		returnBits = 4
	}
	channels := []pointcloud.Channel{
		pointcloud.NewChannel(pointcloud.ChannelX, pointcloud.Float64, 32, scale.X),
		pointcloud.NewChannel(pointcloud.ChannelY, pointcloud.Float64, 32, scale.Y),
		pointcloud.NewChannel(pointcloud.ChannelZ, pointcloud.Float64, 32, scale.Z),
		pointcloud.NewChannel(pointcloud.ChannelIntensity, pointcloud.Uint16, 16, 0),
		pointcloud.NewChannel(pointcloud.ChannelReturnNum, pointcloud.Uint8, returnBits, 0),
		pointcloud.NewChannel(pointcloud.ChannelNumReturns, pointcloud.Uint8, returnBits, 0),
	}
	if f.extended {
		channels = append(channels,
			pointcloud.NewChannel(pointcloud.ChannelClassFlags, pointcloud.Uint8, 4, 0),
			pointcloud.NewChannel(pointcloud.ChannelScannerChannel, pointcloud.Uint8, 2, 0),
		)
	}
	channels = append(channels,
		pointcloud.NewChannel(pointcloud.ChannelScanDir, pointcloud.Uint8, 1, 0),
		pointcloud.NewChannel(pointcloud.ChannelEdgeFlightLine, pointcloud.Uint8, 1, 0),
	)
	if f.extended {
		channels = append(channels,
			pointcloud.NewChannel(pointcloud.ChannelClassID, pointcloud.Uint8, 8, 0),
			pointcloud.NewChannel(pointcloud.ChannelScanAngle, pointcloud.Sint16, 16, 0),
		)
	} else {
		channels = append(channels,
			pointcloud.NewChannel(pointcloud.ChannelClassID, pointcloud.Uint8, 5, 0),
			pointcloud.NewChannel(pointcloud.ChannelClassFlags, pointcloud.Uint8, 3, 0),
			pointcloud.NewChannel(pointcloud.ChannelScanAngle, pointcloud.Sint8, 8, 0),
		)
	}
	channels = append(channels,
		pointcloud.NewChannel(pointcloud.ChannelUserData, pointcloud.Uint8, 8, 0),
		pointcloud.NewChannel(pointcloud.ChannelSourceID, pointcloud.Uint16, 16, 0),
	)
	if f.gpsTime {
		name := pointcloud.ChannelGPSTime
		if adjustedGPSTime {
			name = pointcloud.ChannelGPSTimeAdjusted
		}
		channels = append(channels, pointcloud.NewChannel(name, pointcloud.Float64, 64, 0))
	}
	if f.color {
		channels = append(channels,
			pointcloud.NewChannel(pointcloud.ChannelRed, pointcloud.Uint16, 16, 0),
			pointcloud.NewChannel(pointcloud.ChannelGreen, pointcloud.Uint16, 16, 0),
			pointcloud.NewChannel(pointcloud.ChannelBlue, pointcloud.Uint16, 16, 0),
		)
	}
	if f.nir {
		channels = append(channels, pointcloud.NewChannel(pointcloud.ChannelNearInfrared, pointcloud.Uint16, 16, 0))
	}
	return pointcloud.NewSchema(channels...)
}

// SupportedChannels returns the channels of schema that a LAS record can store, in order.
func SupportedChannels(schema *pointcloud.Schema) *pointcloud.Schema {
	return schema.Filter(func(ch pointcloud.Channel) bool {
		_, ok := fieldsByName[ch.Name]
		return ok
	})
}

// unsupportedChannels names the channels of schema that SupportedChannels drops.
func unsupportedChannels(schema *pointcloud.Schema) []string {
	return lo.Filter(schema.Names(), func(name string, _ int) bool {
		_, ok := fieldsByName[name]
		return !ok
	})
}
