package las

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/lascodec/pointcloud"
)

const (
	vlrHeaderSize  = 54
	evlrHeaderSize = 60
)

// Reserved VLR user ids and record ids.
const (
	UserIDSpec       = "LASF_Spec"
	UserIDProjection = "LASF_Projection"

	RecordIDClassification  = 0
	RecordIDMathTransform   = 2111
	RecordIDCoordinateWKT   = 2112
	RecordIDGeoKeyDirectory = 34735
	RecordIDGeoDoubleParams = 34736
	RecordIDGeoASCIIParams  = 34737
)

// VLR is a variable length record, or an extended one stored after the points.
type VLR struct {
	UserID      string
	RecordID    uint16
	Description string
	Data        []byte
	Extended    bool
}

// Key returns the metadata key of the record, "user_id::record_id".
func (v VLR) Key() string {
	return VLRKey(v.UserID, v.RecordID)
}

// VLRKey returns the metadata key for a record.
func VLRKey(userID string, recordID uint16) string {
	return fmt.Sprintf("%s::%d", userID, recordID)
}

// ParseVLRKey splits a metadata key produced by VLRKey.
func ParseVLRKey(key string) (userID string, recordID uint16, ok bool) {
	userID, idStr, found := strings.Cut(key, "::")
	if !found || userID == "" || len(userID) > 16 {
		return "", 0, false
	}
	id, err := strconv.ParseUint(idStr, 10, 16)
	if err != nil {
		return "", 0, false
	}
	return userID, uint16(id), true
}

// IsProjection reports whether the record carries coordinate system information.
func (v VLR) IsProjection() bool {
	return v.UserID == UserIDProjection
}

// IsGeoTIFF reports whether the record is one of the three GeoTIFF key records.
func (v VLR) IsGeoTIFF() bool {
	return v.IsProjection() && isGeoTIFFRecord(v.RecordID)
}

// IsWKT reports whether the record holds a WKT string.
func (v VLR) IsWKT() bool {
	return v.IsProjection() && isWKTRecord(v.RecordID)
}

func isGeoTIFFRecord(id uint16) bool {
	return id == RecordIDGeoKeyDirectory || id == RecordIDGeoDoubleParams || id == RecordIDGeoASCIIParams
}

func isWKTRecord(id uint16) bool {
	return id == RecordIDMathTransform || id == RecordIDCoordinateWKT
}

// EncodedSize returns the number of bytes the record occupies on disk.
func (v VLR) EncodedSize() int {
	if v.Extended {
		return evlrHeaderSize + len(v.Data)
	}
	return vlrHeaderSize + len(v.Data)
}

// MarshalBinary encodes the record header and payload.
func (v VLR) MarshalBinary() ([]byte, error) {
	if !v.Extended && len(v.Data) > math.MaxUint16 {
		return nil, pointcloud.NewFormatError("VLR %s payload of %d bytes needs an extended record", v.Key(), len(v.Data))
	}
	b := make([]byte, v.EncodedSize())
	le := binary.LittleEndian
	putString(b[2:18], v.UserID)
	le.PutUint16(b[18:], v.RecordID)
	var desc []byte
	if v.Extended {
		le.PutUint64(b[20:], uint64(len(v.Data)))
		desc = b[28:60]
	} else {
		le.PutUint16(b[20:], uint16(len(v.Data)))
		desc = b[22:54]
	}
	putString(desc, v.Description)
	copy(b[len(b)-len(v.Data):], v.Data)
	return b, nil
}

// readVLR reads one record from r. limit is the number of bytes the record may occupy.
func readVLR(r io.Reader, extended bool, limit int64) (VLR, error) {
	size := vlrHeaderSize
	if extended {
		size = evlrHeaderSize
	}
	if limit < int64(size) {
		return VLR{}, pointcloud.NewFormatError("read VLR header: truncated")
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return VLR{}, readError(err, "read VLR header")
	}
	le := binary.LittleEndian
	v := VLR{
		UserID:   cString(b[2:18]),
		RecordID: le.Uint16(b[18:]),
		Extended: extended,
	}
	var length uint64
	if extended {
		length = le.Uint64(b[20:])
		v.Description = cString(b[28:60])
	} else {
		length = uint64(le.Uint16(b[20:]))
		v.Description = cString(b[22:54])
	}
	if length > math.MaxInt32 || int64(length) > limit-int64(size) {
		return VLR{}, pointcloud.NewFormatError("VLR %s declares %d bytes, %d remain", v.Key(), length, limit-int64(size))
	}
	v.Data = make([]byte, length)
	if _, err := io.ReadFull(r, v.Data); err != nil {
		return VLR{}, readError(err, "read VLR "+v.Key())
	}
	return v, nil
}

// readVLRs reads n consecutive records that together fit in limit bytes.
func readVLRs(r io.Reader, n uint32, extended bool, limit int64) ([]VLR, error) {
	size := uint64(vlrHeaderSize)
	if extended {
		size = evlrHeaderSize
	}
	if limit < 0 || uint64(n)*size > uint64(limit) {
		return nil, pointcloud.NewFormatError("%d VLRs cannot fit in %d bytes", n, limit)
	}
	var vlrs []VLR
	for i := uint32(0); i < n; i++ {
		v, err := readVLR(r, extended, limit)
		if err != nil {
			return nil, errors.WithMessagef(err, "record %d of %d", i, n)
		}
		limit -= int64(v.EncodedSize())
		vlrs = append(vlrs, v)
	}
	return vlrs, nil
}

// readError turns a short read into a format error and anything else into an I/O error.
func readError(err error, op string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return pointcloud.NewFormatError("%s: truncated", op)
	}
	return pointcloud.NewIOError(err, op)
}

// findVLR returns the first record with the given ids.
func findVLR(vlrs []VLR, userID string, recordID uint16) (VLR, bool) {
	for _, v := range vlrs {
		if v.UserID == userID && v.RecordID == recordID {
			return v, true
		}
	}
	return VLR{}, false
}
