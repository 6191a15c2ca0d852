package las

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lascodec/pointcloud"
)

func TestVLRRoundTrip(t *testing.T) {
	vlrs := []VLR{
		{UserID: UserIDProjection, RecordID: RecordIDGeoKeyDirectory, Description: "GeoTiff Projection Keys", Data: []byte{1, 0, 1, 0}},
		{UserID: UserIDProjection, RecordID: RecordIDCoordinateWKT, Description: "OGC WKT", Data: []byte("PROJCS[\"x\"]\x00")},
		{UserID: "vendor", RecordID: 7, Data: []byte{}},
	}
	var buf bytes.Buffer
	for _, v := range vlrs {
		b, err := v.MarshalBinary()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(b), test.ShouldEqual, v.EncodedSize())
		buf.Write(b)
	}
	got, err := readVLRs(&buf, uint32(len(vlrs)), false, int64(buf.Len()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, vlrs)

	test.That(t, got[0].IsGeoTIFF(), test.ShouldBeTrue)
	test.That(t, got[0].IsWKT(), test.ShouldBeFalse)
	test.That(t, got[1].IsWKT(), test.ShouldBeTrue)
	test.That(t, got[2].IsProjection(), test.ShouldBeFalse)

	v, ok := findVLR(got, UserIDProjection, RecordIDCoordinateWKT)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v.Description, test.ShouldEqual, "OGC WKT")
	_, ok = findVLR(got, UserIDSpec, RecordIDClassification)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestEVLRRoundTrip(t *testing.T) {
	big := bytes.Repeat([]byte("0123456789"), 10000)
	v := VLR{UserID: UserIDProjection, RecordID: RecordIDCoordinateWKT, Description: "large", Data: big, Extended: true}
	b, err := v.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(b), test.ShouldEqual, evlrHeaderSize+len(big))

	got, err := readVLR(bytes.NewReader(b), true, int64(len(b)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, v)

	v.Extended = false
	_, err = v.MarshalBinary()
	test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
}

func TestVLRTruncated(t *testing.T) {
	v := VLR{UserID: "vendor", RecordID: 1, Data: []byte("payload")}
	b, err := v.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)

	// The reader runs dry before the limit is reached.
	_, err = readVLRs(bytes.NewReader(b[:len(b)-2]), 1, false, math.MaxInt64)
	test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "vendor::1")

	_, err = readVLRs(bytes.NewReader(b), 2, false, math.MaxInt64)
	test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "record 1 of 2")
}

func TestVLRLimits(t *testing.T) {
	v := VLR{UserID: "vendor", RecordID: 1, Data: []byte("payload")}
	b, err := v.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)

	t.Run("count", func(t *testing.T) {
		_, err := readVLRs(bytes.NewReader(b), math.MaxInt32, false, int64(len(b)))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "cannot fit")
	})
	t.Run("length", func(t *testing.T) {
		_, err := readVLRs(bytes.NewReader(b), 1, false, int64(len(b)-1))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "vendor::1")
	})
	t.Run("evlr length", func(t *testing.T) {
		e := VLR{UserID: "vendor", RecordID: 2, Data: []byte("payload"), Extended: true}
		eb, err := e.MarshalBinary()
		test.That(t, err, test.ShouldBeNil)
		binary.LittleEndian.PutUint64(eb[20:], 1<<31-1)
		_, err = readVLRs(bytes.NewReader(eb), 1, true, int64(len(eb)))
		test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
	})
	t.Run("exact fit", func(t *testing.T) {
		got, err := readVLRs(bytes.NewReader(append(bytes.Clone(b), b...)), 2, false, int64(2*len(b)))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldHaveLength, 2)
	})
}

func TestVLRKeys(t *testing.T) {
	key := VLRKey(UserIDProjection, RecordIDGeoKeyDirectory)
	test.That(t, key, test.ShouldEqual, "LASF_Projection::34735")

	userID, recordID, ok := ParseVLRKey(key)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, userID, test.ShouldEqual, UserIDProjection)
	test.That(t, recordID, test.ShouldEqual, uint16(RecordIDGeoKeyDirectory))

	for _, bad := range []string{"LASF_Projection", "::12", "LASF_Projection::70000", "LASF_Projection::x", strings.Repeat("u", 17) + "::1"} {
		_, _, ok := ParseVLRKey(bad)
		test.That(t, ok, test.ShouldBeFalse)
	}
}

func TestClassTable(t *testing.T) {
	names := make([]string, 3)
	names[1] = "unclassified"
	names[2] = "a very long class name"
	data := EncodeClassTable(append(names, "", "", "bridge"))
	test.That(t, len(data), test.ShouldEqual, 3*classEntrySize)
	test.That(t, data[0], test.ShouldEqual, byte(1))

	table, err := ParseClassTable(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(table), test.ShouldEqual, 256)
	test.That(t, table[1], test.ShouldEqual, "unclassified")
	// Names are cut to the 15 byte field.
	test.That(t, table[2], test.ShouldEqual, "a very long cla")
	test.That(t, table[5], test.ShouldEqual, "bridge")
	test.That(t, table[0], test.ShouldEqual, "")

	_, err = ParseClassTable(data[:20])
	test.That(t, errors.Is(err, pointcloud.ErrFormat), test.ShouldBeTrue)
}

func TestDefaultClassNames(t *testing.T) {
	test.That(t, len(DefaultLegacyClassNames), test.ShouldEqual, 32)
	test.That(t, len(DefaultExtendedClassNames), test.ShouldEqual, 32)
	test.That(t, DefaultClassNames(3)[7], test.ShouldEqual, "noise")
	test.That(t, DefaultClassNames(6)[7], test.ShouldEqual, "low noise")
	test.That(t, DefaultClassNames(10)[18], test.ShouldEqual, "high noise")
}
