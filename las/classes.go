package las

import (
	"slices"

	"go.viam.com/lascodec/pointcloud"
)

const reservedClass = "Reserved for ASPRS Definition"

// DefaultLegacyClassNames are the ASPRS class names for record formats 0 to 5.
var DefaultLegacyClassNames = []string{
	"never classified",
	"unclassified",
	"ground",
	"low vegetation",
	"medium vegetation",
	"high vegetation",
	"building",
	"noise",
	"keypoint",
	"water",
	reservedClass,
	reservedClass,
	"overlap",
	reservedClass, reservedClass, reservedClass, reservedClass, reservedClass,
	reservedClass, reservedClass, reservedClass, reservedClass, reservedClass,
	reservedClass, reservedClass, reservedClass, reservedClass, reservedClass,
	reservedClass, reservedClass, reservedClass, reservedClass,
}

// DefaultExtendedClassNames are the ASPRS class names for record formats 6 to 10.
var DefaultExtendedClassNames = []string{
	"never classified",
	"unclassified",
	"ground",
	"low vegetation",
	"medium vegetation",
	"high vegetation",
	"building",
	"low noise",
	reservedClass,
	"water",
	"rail",
	"road surface",
	reservedClass,
	"wire guard",
	"wire conductor",
	"tower",
	"wire connector",
	"bridge deck",
	"high noise",
	reservedClass, reservedClass, reservedClass, reservedClass, reservedClass,
	reservedClass, reservedClass, reservedClass, reservedClass, reservedClass,
	reservedClass, reservedClass, reservedClass,
}

// DefaultClassNames returns a copy of the built-in table for a record format.
func DefaultClassNames(format uint8) []string {
	if IsExtendedFormat(format) {
		return slices.Clone(DefaultExtendedClassNames)
	}
	return slices.Clone(DefaultLegacyClassNames)
}

const classEntrySize = 16

// ParseClassTable decodes a LASF_Spec record 0 payload. Each 16 byte entry holds a class number
// and a NUL padded name; the result has 256 slots indexed by class number.
func ParseClassTable(data []byte) ([]string, error) {
	if len(data)%classEntrySize != 0 {
		return nil, pointcloud.NewFormatError("classification table of %d bytes is not a multiple of %d",
			len(data), classEntrySize)
	}
	names := make([]string, 256)
	for off := 0; off < len(data); off += classEntrySize {
		names[data[off]] = cString(data[off+1 : off+classEntrySize])
	}
	return names, nil
}

// EncodeClassTable builds a LASF_Spec record 0 payload from names indexed by class number.
// Empty names are left out.
func EncodeClassTable(names []string) []byte {
	var data []byte
	for i, name := range names {
		if name == "" || i > 255 {
			continue
		}
		entry := make([]byte, classEntrySize)
		entry[0] = byte(i)
		putString(entry[1:], name)
		data = append(data, entry...)
	}
	return data
}
