package las

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lascodec/pointcloud"
)

func testHeader(version Version, format uint8) Header {
	h := Header{
		FileSourceID:       17,
		GlobalEncoding:     EncodingAdjustedGPSTime,
		ProjectID:          uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Version:            version,
		SystemID:           "HOBU-SYSTEMID",
		GeneratingSoftware: GeneratingSoftware,
		CreationDay:        61,
		CreationYear:       2024,
		HeaderSize:         uint16(version.HeaderSize()),
		OffsetToPointData:  uint32(version.HeaderSize()),
		PointFormat:        format,
		RecordLength:       uint16(recordFormats[format].length),
		LegacyPointCount:   1065,
		LegacyPointsByReturn: [5]uint32{
			925, 114, 21, 5, 0,
		},
		Scale:  r3.Vector{X: 0.01, Y: 0.01, Z: 0.001},
		Offset: r3.Vector{X: 635589, Y: 848886, Z: 400},
		Min:    r3.Vector{X: 635589.01, Y: 848886.45, Z: 406.59},
		Max:    r3.Vector{X: 638994.75, Y: 853535.43, Z: 586.38},
	}
	if version.Minor >= 4 {
		h.PointCount = 1065
		h.PointsByReturn[0] = 925
		h.PointsByReturn[1] = 114
		h.PointsByReturn[14] = 3
	}
	return h
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		version Version
		format  uint8
	}{
		{Version10, 1},
		{Version12, 3},
		{Version13, 5},
		{Version14, 8},
	} {
		t.Run(tc.version.String(), func(t *testing.T) {
			h := testHeader(tc.version, tc.format)
			b, err := h.MarshalBinary()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, len(b), test.ShouldEqual, tc.version.HeaderSize())
			test.That(t, string(b[:4]), test.ShouldEqual, "LASF")

			got, err := ReadHeader(bytes.NewReader(b))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, *got, test.ShouldResemble, h)
		})
	}
}

func TestHeaderCompressedBit(t *testing.T) {
	h := testHeader(Version12, 3)
	h.Compressed = true
	b, err := h.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b[104], test.ShouldEqual, byte(0x83))

	got, err := ReadHeader(bytes.NewReader(b))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.PointFormat, test.ShouldEqual, uint8(3))
	test.That(t, got.Compressed, test.ShouldBeTrue)
	test.That(t, got.FormatString(), test.ShouldEqual, "LAZ 1.2")
	test.That(t, testHeader(Version14, 6).FormatString(), test.ShouldEqual, "LAS 1.4")
}

func TestReadHeaderErrors(t *testing.T) {
	h := testHeader(Version12, 3)
	valid, err := h.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)

	corrupt := func(mutate func(b []byte)) []byte {
		b := bytes.Clone(valid)
		mutate(b)
		return b
	}

	t.Run("signature", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader(corrupt(func(b []byte) { copy(b, "LASX") })))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	})
	t.Run("version", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader(corrupt(func(b []byte) { b[25] = 7 })))
		test.That(t, errors.Is(err, pointcloud.ErrUnsupportedVersion), test.ShouldBeTrue)
	})
	t.Run("truncated", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader(valid[:100]))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	})
	t.Run("truncated 1.4", func(t *testing.T) {
		h := testHeader(Version14, 6)
		b, err := h.MarshalBinary()
		test.That(t, err, test.ShouldBeNil)
		_, err = ReadHeader(bytes.NewReader(b[:300]))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	})
	t.Run("header size", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader(corrupt(func(b []byte) {
			binary.LittleEndian.PutUint16(b[94:], 200)
		})))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	})
	t.Run("point offset", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader(corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[96:], 100)
		})))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	})
	t.Run("zero scale", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader(corrupt(func(b []byte) { putFloat64(b[139:], 0) })))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	})
}

func TestHeaderCounts(t *testing.T) {
	h := testHeader(Version14, 6)
	test.That(t, h.NumPoints(), test.ShouldEqual, int64(1065))

	h.LegacyPointCount = 0
	h.PointCount = 5_000_000_000
	test.That(t, h.NumPoints(), test.ShouldEqual, int64(5_000_000_000))

	h.LegacyPointsByReturn = [5]uint32{10, 0, 0, 0, 0}
	h.PointsByReturn[1] = 20
	test.That(t, h.PointsByReturnCounts(), test.ShouldResemble, [5]float64{10, 20, 0, 0, 0})
}

func TestHeaderWaveform(t *testing.T) {
	h := testHeader(Version13, 1)
	test.That(t, h.HasWaveform(), test.ShouldBeFalse)
	h.GlobalEncoding |= EncodingWaveformExternal
	test.That(t, h.HasWaveform(), test.ShouldBeTrue)
	h.GlobalEncoding = 0
	h.WaveformStart = 4096
	test.That(t, h.HasWaveform(), test.ShouldBeTrue)
}

func TestProjectID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	test.That(t, FormatProjectID(id), test.ShouldEqual, "{6BA7B810-9DAD-11D1-80B4-00C04FD430C8}")

	parsed, err := ParseProjectID(FormatProjectID(id))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, id)

	parsed, err = ParseProjectID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, id)

	_, err = ParseProjectID("{not-a-guid}")
	test.That(t, err, test.ShouldNotBeNil)

	// GUID data 1 to 3 are little endian on disk.
	b := make([]byte, 16)
	putGUID(b, id)
	test.That(t, b[:4], test.ShouldResemble, []byte{0x10, 0xB8, 0xA7, 0x6B})
	test.That(t, b[8:], test.ShouldResemble, []byte{0x80, 0xB4, 0x00, 0xC0, 0x4F, 0xD4, 0x30, 0xC8})
	test.That(t, guidFromBytes(b), test.ShouldEqual, id)
}

func TestCreationDate(t *testing.T) {
	date, ok := creationDate(2024, 61)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, date, test.ShouldEqual, "2024-03-01")

	date, ok = creationDate(2023, 365)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, date, test.ShouldEqual, "2023-12-31")

	_, ok = creationDate(0, 12)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = creationDate(2020, 0)
	test.That(t, ok, test.ShouldBeFalse)
}
