package las

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"go.viam.com/lascodec/pointcloud"
)

const (
	headerSize10 = 227
	headerSize13 = 235
	headerSize14 = 375

	fileSignature = "LASF"
)

// Global encoding bits.
const (
	EncodingAdjustedGPSTime  uint16 = 1 << 0
	EncodingWaveformInternal uint16 = 1 << 1
	EncodingWaveformExternal uint16 = 1 << 2
	EncodingSyntheticReturns uint16 = 1 << 3
	EncodingWKT              uint16 = 1 << 4
)

// Point data format byte bits that mark a compressed point payload.
const compressedFormatMask = 0xC0

// Header is the public header block of a LAS file.
type Header struct {
	FileSourceID       uint16
	GlobalEncoding     uint16
	ProjectID          uuid.UUID
	Version            Version
	SystemID           string
	GeneratingSoftware string
	CreationDay        uint16
	CreationYear       uint16
	HeaderSize         uint16
	OffsetToPointData  uint32
	NumVLRs            uint32
	PointFormat        uint8
	// Compressed is set when the point format byte carries the compression bits.
	Compressed           bool
	RecordLength         uint16
	LegacyPointCount     uint32
	LegacyPointsByReturn [5]uint32
	Scale                r3.Vector
	Offset               r3.Vector
	Min                  r3.Vector
	Max                  r3.Vector

	// LAS 1.3
	WaveformStart uint64

	// LAS 1.4
	EVLRStart      uint64
	NumEVLRs       uint32
	PointCount     uint64
	PointsByReturn [15]uint64
}

// NumPoints returns the point count, preferring the legacy counter when it is set.
func (h Header) NumPoints() int64 {
	if h.LegacyPointCount > 0 {
		return int64(h.LegacyPointCount)
	}
	return int64(h.PointCount)
}

// PointsByReturnCounts returns the first five return counts, falling back to the 64-bit counters
// where the legacy ones are zero.
func (h Header) PointsByReturnCounts() [5]float64 {
	var counts [5]float64
	for i := range counts {
		if h.LegacyPointsByReturn[i] != 0 {
			counts[i] = float64(h.LegacyPointsByReturn[i])
		} else {
			counts[i] = float64(h.PointsByReturn[i])
		}
	}
	return counts
}

// HasWaveform reports whether the header announces waveform packets.
func (h Header) HasWaveform() bool {
	return h.WaveformStart != 0 || h.GlobalEncoding&(EncodingWaveformInternal|EncodingWaveformExternal) != 0
}

// Bounds returns the header's declared extent.
func (h Header) Bounds() pointcloud.Bounds {
	return pointcloud.NewBounds(h.Min.X, h.Max.X, h.Min.Y, h.Max.Y, h.Min.Z, h.Max.Z)
}

// Quantization returns the header's scale and offset.
func (h Header) Quantization() pointcloud.Quantization {
	return pointcloud.Quantization{Scale: h.Scale, Offset: h.Offset}
}

// FormatString describes the file the way tools print it, e.g. "LAS 1.2".
func (h Header) FormatString() string {
	kind := "LAS"
	if h.Compressed {
		kind = "LAZ"
	}
	return kind + " " + h.Version.String()
}

// cString returns the bytes of b up to the first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// putString copies s into the fixed width field b, truncating and NUL padding.
func putString(b []byte, s string) {
	n := copy(b, s)
	clear(b[n:])
}

func guidFromBytes(b []byte) uuid.UUID {
	var id uuid.UUID
	le := binary.LittleEndian
	be := binary.BigEndian
	be.PutUint32(id[0:], le.Uint32(b[0:]))
	be.PutUint16(id[4:], le.Uint16(b[4:]))
	be.PutUint16(id[6:], le.Uint16(b[6:]))
	copy(id[8:], b[8:16])
	return id
}

func putGUID(b []byte, id uuid.UUID) {
	le := binary.LittleEndian
	be := binary.BigEndian
	le.PutUint32(b[0:], be.Uint32(id[0:]))
	le.PutUint16(b[4:], be.Uint16(id[4:]))
	le.PutUint16(b[6:], be.Uint16(id[6:]))
	copy(b[8:16], id[8:])
}

// FormatProjectID renders a project GUID as "{XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}".
func FormatProjectID(id uuid.UUID) string {
	return "{" + strings.ToUpper(id.String()) + "}"
}

// ParseProjectID parses a project GUID with or without braces.
func ParseProjectID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.Trim(strings.TrimSpace(s), "{}"))
}

func getFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func putFloat64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

// ReadHeader reads and validates the public header block at the start of r.
func ReadHeader(r io.Reader) (*Header, error) {
	b := make([]byte, headerSize14)
	if _, err := io.ReadFull(r, b[:headerSize10]); err != nil {
		return nil, readError(err, "read header")
	}
	if string(b[0:4]) != fileSignature {
		return nil, pointcloud.NewFormatError("bad file signature %q", b[0:4])
	}
	h := &Header{Version: Version{Major: b[24], Minor: b[25]}}
	if !h.Version.Supported() {
		return nil, pointcloud.NewUnsupportedVersionError("LAS %s", h.Version)
	}
	le := binary.LittleEndian
	h.HeaderSize = le.Uint16(b[94:])
	if int(h.HeaderSize) < h.Version.HeaderSize() {
		return nil, pointcloud.NewFormatError("header size %d is smaller than %d for LAS %s",
			h.HeaderSize, h.Version.HeaderSize(), h.Version)
	}
	if h.Version.HeaderSize() > headerSize10 {
		if _, err := io.ReadFull(r, b[headerSize10:h.Version.HeaderSize()]); err != nil {
			return nil, readError(err, "read header")
		}
	}

	h.FileSourceID = le.Uint16(b[4:])
	h.GlobalEncoding = le.Uint16(b[6:])
	h.ProjectID = guidFromBytes(b[8:24])
	h.SystemID = cString(b[26:58])
	h.GeneratingSoftware = cString(b[58:90])
	h.CreationDay = le.Uint16(b[90:])
	h.CreationYear = le.Uint16(b[92:])
	h.OffsetToPointData = le.Uint32(b[96:])
	h.NumVLRs = le.Uint32(b[100:])
	h.PointFormat = b[104] &^ compressedFormatMask
	h.Compressed = b[104]&compressedFormatMask != 0
	h.RecordLength = le.Uint16(b[105:])
	h.LegacyPointCount = le.Uint32(b[107:])
	for i := range h.LegacyPointsByReturn {
		h.LegacyPointsByReturn[i] = le.Uint32(b[111+4*i:])
	}
	h.Scale = r3.Vector{X: getFloat64(b[131:]), Y: getFloat64(b[139:]), Z: getFloat64(b[147:])}
	h.Offset = r3.Vector{X: getFloat64(b[155:]), Y: getFloat64(b[163:]), Z: getFloat64(b[171:])}
	h.Max.X = getFloat64(b[179:])
	h.Min.X = getFloat64(b[187:])
	h.Max.Y = getFloat64(b[195:])
	h.Min.Y = getFloat64(b[203:])
	h.Max.Z = getFloat64(b[211:])
	h.Min.Z = getFloat64(b[219:])
	if h.Version.Minor >= 3 {
		h.WaveformStart = le.Uint64(b[227:])
	}
	if h.Version.Minor >= 4 {
		h.EVLRStart = le.Uint64(b[235:])
		h.NumEVLRs = le.Uint32(b[243:])
		h.PointCount = le.Uint64(b[247:])
		for i := range h.PointsByReturn {
			h.PointsByReturn[i] = le.Uint64(b[255+8*i:])
		}
	}

	if h.OffsetToPointData < uint32(h.HeaderSize) {
		return nil, pointcloud.NewFormatError("point data offset %d inside the %d byte header",
			h.OffsetToPointData, h.HeaderSize)
	}
	if h.Scale.X == 0 || h.Scale.Y == 0 || h.Scale.Z == 0 {
		return nil, pointcloud.NewFormatError("zero scale factor %v", h.Scale)
	}
	return h, nil
}

// MarshalBinary encodes the header in the layout of its version. HeaderSize is not consulted;
// the standard size for the version is written.
func (h Header) MarshalBinary() ([]byte, error) {
	if !h.Version.Supported() {
		return nil, pointcloud.NewUnsupportedVersionError("LAS %s", h.Version)
	}
	size := h.Version.HeaderSize()
	b := make([]byte, size)
	le := binary.LittleEndian
	copy(b[0:4], fileSignature)
	le.PutUint16(b[4:], h.FileSourceID)
	le.PutUint16(b[6:], h.GlobalEncoding)
	putGUID(b[8:24], h.ProjectID)
	b[24] = h.Version.Major
	b[25] = h.Version.Minor
	putString(b[26:58], h.SystemID)
	putString(b[58:90], h.GeneratingSoftware)
	le.PutUint16(b[90:], h.CreationDay)
	le.PutUint16(b[92:], h.CreationYear)
	le.PutUint16(b[94:], uint16(size))
	le.PutUint32(b[96:], h.OffsetToPointData)
	le.PutUint32(b[100:], h.NumVLRs)
	b[104] = h.PointFormat
	if h.Compressed {
		b[104] |= 0x80
	}
	le.PutUint16(b[105:], h.RecordLength)
	le.PutUint32(b[107:], h.LegacyPointCount)
	for i, n := range h.LegacyPointsByReturn {
		le.PutUint32(b[111+4*i:], n)
	}
	putFloat64(b[131:], h.Scale.X)
	putFloat64(b[139:], h.Scale.Y)
	putFloat64(b[147:], h.Scale.Z)
	putFloat64(b[155:], h.Offset.X)
	putFloat64(b[163:], h.Offset.Y)
	putFloat64(b[171:], h.Offset.Z)
	putFloat64(b[179:], h.Max.X)
	putFloat64(b[187:], h.Min.X)
	putFloat64(b[195:], h.Max.Y)
	putFloat64(b[203:], h.Min.Y)
	putFloat64(b[211:], h.Max.Z)
	putFloat64(b[219:], h.Min.Z)
	if h.Version.Minor >= 3 {
		le.PutUint64(b[227:], h.WaveformStart)
	}
	if h.Version.Minor >= 4 {
		le.PutUint64(b[235:], h.EVLRStart)
		le.PutUint32(b[243:], h.NumEVLRs)
		le.PutUint64(b[247:], h.PointCount)
		for i, n := range h.PointsByReturn {
			le.PutUint64(b[255+8*i:], n)
		}
	}
	return b, nil
}
