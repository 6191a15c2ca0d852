package pointcloud

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DataType is the storage type of a channel. The high byte holds the width in bytes, bit 0 marks
// signed values and bit 1 marks floating point values.
type DataType uint16

// The supported datatypes.
const (
	Invalid DataType = 0x0000
	Uint8   DataType = 0x0100
	Sint8   DataType = 0x0101
	Uint16  DataType = 0x0200
	Sint16  DataType = 0x0201
	Uint32  DataType = 0x0400
	Sint32  DataType = 0x0401
	Uint64  DataType = 0x0800
	Sint64  DataType = 0x0801
	Float32 DataType = 0x0403
	Float64 DataType = 0x0803
)

var dataTypeNames = map[DataType]string{
	Uint8:   "UINT8",
	Sint8:   "SINT8",
	Uint16:  "UINT16",
	Sint16:  "SINT16",
	Uint32:  "UINT32",
	Sint32:  "SINT32",
	Uint64:  "UINT64",
	Sint64:  "SINT64",
	Float32: "FLOAT32",
	Float64: "FLOAT64",
}

// ByteWidth returns the size of one sample in bytes.
func (dt DataType) ByteWidth() int {
	return int(dt>>8) & 0xFF
}

// IsSigned reports whether the type holds signed values. Floats are signed.
func (dt DataType) IsSigned() bool {
	return dt&1 != 0
}

// IsFloat reports whether the type is a floating point type.
func (dt DataType) IsFloat() bool {
	return dt&2 != 0
}

// Valid reports whether dt is one of the supported datatypes.
func (dt DataType) Valid() bool {
	_, ok := dataTypeNames[dt]
	return ok
}

func (dt DataType) String() string {
	if name, ok := dataTypeNames[dt]; ok {
		return name
	}
	return fmt.Sprintf("DataType(0x%04x)", uint16(dt))
}

// ParseDataType is the inverse of String.
func ParseDataType(name string) (DataType, error) {
	upper := strings.ToUpper(name)
	for dt, dtName := range dataTypeNames {
		if dtName == upper {
			return dt, nil
		}
	}
	return Invalid, errors.Errorf("unknown datatype %q", name)
}
