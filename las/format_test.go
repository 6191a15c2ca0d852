package las

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lascodec/pointcloud"
)

func xyzChannels(extra ...pointcloud.Channel) *pointcloud.Schema {
	channels := []pointcloud.Channel{
		pointcloud.NewChannel(pointcloud.ChannelX, pointcloud.Float64, 0, 0),
		pointcloud.NewChannel(pointcloud.ChannelY, pointcloud.Float64, 0, 0),
		pointcloud.NewChannel(pointcloud.ChannelZ, pointcloud.Float64, 0, 0),
	}
	return pointcloud.MustSchema(append(channels, extra...)...)
}

func TestDeriveRecordFormat(t *testing.T) {
	u8 := func(name string, bits int) pointcloud.Channel {
		return pointcloud.NewChannel(name, pointcloud.Uint8, bits, 0)
	}
	u16 := func(name string) pointcloud.Channel {
		return pointcloud.NewChannel(name, pointcloud.Uint16, 0, 0)
	}
	gps := pointcloud.NewChannel(pointcloud.ChannelGPSTime, pointcloud.Float64, 0, 0)
	adjusted := pointcloud.NewChannel(pointcloud.ChannelGPSTimeAdjusted, pointcloud.Float64, 0, 0)

	for _, tc := range []struct {
		name   string
		schema *pointcloud.Schema
		format uint8
	}{
		{"xyz intensity", xyzChannels(u16(pointcloud.ChannelIntensity)), 0},
		{"gps time", xyzChannels(gps), 1},
		{"adjusted gps time", xyzChannels(adjusted), 1},
		{"colour", xyzChannels(u16(pointcloud.ChannelGreen)), 2},
		{"colour and time", xyzChannels(u16(pointcloud.ChannelRed), gps), 3},
		{"3 bit returns", xyzChannels(u8(pointcloud.ChannelReturnNum, 3), u8(pointcloud.ChannelNumReturns, 3)), 0},
		{"4 bit returns", xyzChannels(u8(pointcloud.ChannelReturnNum, 4)), 6},
		{"wide scan angle", xyzChannels(pointcloud.NewChannel(pointcloud.ChannelScanAngle, pointcloud.Sint16, 16, 0)), 6},
		{"narrow scan angle", xyzChannels(pointcloud.NewChannel(pointcloud.ChannelScanAngle, pointcloud.Sint8, 8, 0)), 0},
		{"class flags", xyzChannels(u8(pointcloud.ChannelClassFlags, 4)), 6},
		{"legacy class flags", xyzChannels(u8(pointcloud.ChannelClassFlags, 3)), 0},
		{"unsized class flags", xyzChannels(u8(pointcloud.ChannelClassFlags, 0)), 6},
		{"scanner channel and colour", xyzChannels(u8(pointcloud.ChannelScannerChannel, 2), u16(pointcloud.ChannelBlue)), 7},
		{"nir", xyzChannels(u16(pointcloud.ChannelNearInfrared)), 8},
		{"nir and colour", xyzChannels(u16(pointcloud.ChannelNearInfrared), u16(pointcloud.ChannelRed), gps), 8},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, DeriveRecordFormat(tc.schema), test.ShouldEqual, tc.format)
		})
	}
}

func TestDeriveRecordFormatFromReaderSchema(t *testing.T) {
	// Reading a file and writing it back keeps the record format, waveform formats aside.
	for _, f := range recordFormats {
		schema, err := ReaderSchema(f.id, r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}, false)
		test.That(t, err, test.ShouldBeNil)
		expected := f.id
		switch f.id {
		case 4:
			expected = 1
		case 5:
			expected = 3
		case 9:
			expected = 6
		case 10:
			expected = 8
		}
		test.That(t, DeriveRecordFormat(schema), test.ShouldEqual, expected)
	}
}

func TestVersions(t *testing.T) {
	test.That(t, VersionForFormat(0), test.ShouldResemble, Version11)
	test.That(t, VersionForFormat(1), test.ShouldResemble, Version11)
	test.That(t, VersionForFormat(3), test.ShouldResemble, Version12)
	test.That(t, VersionForFormat(5), test.ShouldResemble, Version13)
	test.That(t, VersionForFormat(6), test.ShouldResemble, Version14)
	test.That(t, VersionForFormat(8), test.ShouldResemble, Version14)

	test.That(t, Version12.Less(Version14), test.ShouldBeTrue)
	test.That(t, Version14.Less(Version14), test.ShouldBeFalse)
	test.That(t, Version13.HeaderSize(), test.ShouldEqual, 235)
	test.That(t, Version14.HeaderSize(), test.ShouldEqual, 375)
	test.That(t, Version10.HeaderSize(), test.ShouldEqual, 227)

	v, err := ParseVersion(" 1.3 ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, Version13)
	test.That(t, v.String(), test.ShouldEqual, "1.3")

	_, err = ParseVersion("2.0")
	test.That(t, errors.Is(err, pointcloud.ErrUnsupportedVersion), test.ShouldBeTrue)
	_, err = ParseVersion("1")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ParseVersion("1.4-rc1")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRecordLengths(t *testing.T) {
	expected := []int{20, 28, 26, 34, 57, 63, 30, 36, 38, 59, 67}
	for i, n := range expected {
		length, err := RecordLength(uint8(i))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, length, test.ShouldEqual, n)
	}
	_, err := RecordLength(11)
	test.That(t, errors.Is(err, pointcloud.ErrUnsupportedVersion), test.ShouldBeTrue)
}

func TestReaderSchema(t *testing.T) {
	scale := r3.Vector{X: 0.01, Y: 0.02, Z: 0.001}

	schema, err := ReaderSchema(3, scale, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, schema.Names(), test.ShouldResemble, []string{
		"X", "Y", "Z", "Intensity", "ReturnNum", "NumReturns", "ScanDir", "EdgeFlightLine",
		"ClassId", "ClassFlags", "ScanAngle", "UserData", "SourceId", "GPSTime", "Red", "Green", "Blue",
	})
	test.That(t, schema.HasValidXYZ(), test.ShouldBeTrue)
	y, _ := schema.Lookup(pointcloud.ChannelY)
	test.That(t, y.Quantization, test.ShouldEqual, 0.02)
	test.That(t, y.Bits, test.ShouldEqual, 32)
	ret, _ := schema.Lookup(pointcloud.ChannelReturnNum)
	test.That(t, ret.Bits, test.ShouldEqual, 3)
	angle, _ := schema.Lookup(pointcloud.ChannelScanAngle)
	test.That(t, angle.DataType, test.ShouldEqual, pointcloud.Sint8)

	schema, err = ReaderSchema(10, scale, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, schema.Names(), test.ShouldResemble, []string{
		"X", "Y", "Z", "Intensity", "ReturnNum", "NumReturns", "ClassFlags", "ScannerChannel",
		"ScanDir", "EdgeFlightLine", "ClassId", "ScanAngle", "UserData", "SourceId",
		"GPSTime_Adjusted", "Red", "Green", "Blue", "NearInfrared",
	})
	ret, _ = schema.Lookup(pointcloud.ChannelNumReturns)
	test.That(t, ret.Bits, test.ShouldEqual, 4)
	angle, _ = schema.Lookup(pointcloud.ChannelScanAngle)
	test.That(t, angle.DataType, test.ShouldEqual, pointcloud.Sint16)

	schema, err = ReaderSchema(0, scale, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, schema.Has(pointcloud.ChannelGPSTimeAdjusted), test.ShouldBeFalse)
	test.That(t, schema.Len(), test.ShouldEqual, 13)
	flags, _ := schema.Lookup(pointcloud.ChannelClassFlags)
	test.That(t, flags.Bits, test.ShouldEqual, 3)

	_, err = ReaderSchema(11, scale, false)
	test.That(t, errors.Is(err, pointcloud.ErrUnsupportedVersion), test.ShouldBeTrue)
}

func TestSupportedChannels(t *testing.T) {
	schema := xyzChannels(
		pointcloud.NewChannel("Temperature", pointcloud.Float32, 0, 0),
		pointcloud.NewChannel(pointcloud.ChannelIntensity, pointcloud.Uint16, 0, 0),
		pointcloud.NewChannel("Confidence", pointcloud.Uint8, 0, 0),
	)
	supported := SupportedChannels(schema)
	test.That(t, supported.Names(), test.ShouldResemble, []string{"X", "Y", "Z", "Intensity"})
	test.That(t, unsupportedChannels(schema), test.ShouldResemble, []string{"Temperature", "Confidence"})
}
