package las

import (
	"encoding/binary"
	"math"
)

// Record is one decoded point data record. Fields absent from a record format stay zero.
//
// ClassFlags holds the synthetic, keypoint and withheld flags in bits 0-2 for every format, and the
// overlap flag in bit 3 for formats 6 to 10. Formats 0 to 5 store those three flags in bits 5-7 of
// the classification byte, so their Classification is limited to 5 bits.
type Record struct {
	X, Y, Z          int32
	Intensity        uint16
	ReturnNumber     uint8
	NumberOfReturns  uint8
	ClassFlags       uint8
	ScannerChannel   uint8
	ScanDirection    uint8
	EdgeOfFlightLine uint8
	Classification   uint8
	ScanAngle        int16
	UserData         uint8
	PointSourceID    uint16
	GPSTime          float64
	Red              uint16
	Green            uint16
	Blue             uint16
	NearInfrared     uint16
}

// packLegacyReturns packs the return byte of formats 0-5.
func packLegacyReturns(returnNumber, numReturns, scanDir, edge uint8) byte {
	return returnNumber&0x7 | (numReturns&0x7)<<3 | (scanDir&0x1)<<6 | (edge&0x1)<<7
}

func unpackLegacyReturns(b byte) (returnNumber, numReturns, scanDir, edge uint8) {
	return b & 0x7, (b >> 3) & 0x7, (b >> 6) & 0x1, b >> 7
}

// packLegacyClass packs the classification byte of formats 0-5.
func packLegacyClass(class, classFlags uint8) byte {
	return class&0x1F | (classFlags&0x7)<<5
}

func unpackLegacyClass(b byte) (class, classFlags uint8) {
	return b & 0x1F, b >> 5
}

// packExtendedReturns packs the return byte of formats 6-10.
func packExtendedReturns(returnNumber, numReturns uint8) byte {
	return returnNumber&0xF | (numReturns&0xF)<<4
}

func unpackExtendedReturns(b byte) (returnNumber, numReturns uint8) {
	return b & 0xF, b >> 4
}

// packExtendedFlags packs the classification flag byte of formats 6-10.
func packExtendedFlags(classFlags, scannerChannel, scanDir, edge uint8) byte {
	return classFlags&0xF | (scannerChannel&0x3)<<4 | (scanDir&0x1)<<6 | (edge&0x1)<<7
}

func unpackExtendedFlags(b byte) (classFlags, scannerChannel, scanDir, edge uint8) {
	return b & 0xF, (b >> 4) & 0x3, (b >> 6) & 0x1, b >> 7
}

// decode fills r from the first f.length bytes of b.
func (r *Record) decode(f recordFormat, b []byte) {
	le := binary.LittleEndian
	r.X = int32(le.Uint32(b[0:]))
	r.Y = int32(le.Uint32(b[4:]))
	r.Z = int32(le.Uint32(b[8:]))
	r.Intensity = le.Uint16(b[12:])
	if f.extended {
		r.ReturnNumber, r.NumberOfReturns = unpackExtendedReturns(b[14])
		r.ClassFlags, r.ScannerChannel, r.ScanDirection, r.EdgeOfFlightLine = unpackExtendedFlags(b[15])
		r.Classification = b[16]
		r.UserData = b[17]
		r.ScanAngle = int16(le.Uint16(b[18:]))
		r.PointSourceID = le.Uint16(b[20:])
	} else {
		r.ReturnNumber, r.NumberOfReturns, r.ScanDirection, r.EdgeOfFlightLine = unpackLegacyReturns(b[14])
		r.Classification, r.ClassFlags = unpackLegacyClass(b[15])
		r.ScannerChannel = 0
		r.ScanAngle = int16(int8(b[16]))
		r.UserData = b[17]
		r.PointSourceID = le.Uint16(b[18:])
	}
	if f.gpsTime {
		r.GPSTime = math.Float64frombits(le.Uint64(b[f.gpsOffset:]))
	}
	if f.color {
		r.Red = le.Uint16(b[f.colorOffset:])
		r.Green = le.Uint16(b[f.colorOffset+2:])
		r.Blue = le.Uint16(b[f.colorOffset+4:])
	}
	if f.nir {
		r.NearInfrared = le.Uint16(b[f.nirOffset:])
	}
}

// encode writes r into the first f.length bytes of b. Wave packet descriptors are zeroed.
func (r *Record) encode(f recordFormat, b []byte) {
	le := binary.LittleEndian
	clear(b[:f.length])
	le.PutUint32(b[0:], uint32(r.X))
	le.PutUint32(b[4:], uint32(r.Y))
	le.PutUint32(b[8:], uint32(r.Z))
	le.PutUint16(b[12:], r.Intensity)
	if f.extended {
		b[14] = packExtendedReturns(r.ReturnNumber, r.NumberOfReturns)
		b[15] = packExtendedFlags(r.ClassFlags, r.ScannerChannel, r.ScanDirection, r.EdgeOfFlightLine)
		b[16] = r.Classification
		b[17] = r.UserData
		le.PutUint16(b[18:], uint16(r.ScanAngle))
		le.PutUint16(b[20:], r.PointSourceID)
	} else {
		b[14] = packLegacyReturns(r.ReturnNumber, r.NumberOfReturns, r.ScanDirection, r.EdgeOfFlightLine)
		b[15] = packLegacyClass(r.Classification, r.ClassFlags)
		b[16] = byte(int8(r.ScanAngle))
		b[17] = r.UserData
		le.PutUint16(b[18:], r.PointSourceID)
	}
	if f.gpsTime {
		le.PutUint64(b[f.gpsOffset:], math.Float64bits(r.GPSTime))
	}
	if f.color {
		le.PutUint16(b[f.colorOffset:], r.Red)
		le.PutUint16(b[f.colorOffset+2:], r.Green)
		le.PutUint16(b[f.colorOffset+4:], r.Blue)
	}
	if f.nir {
		le.PutUint16(b[f.nirOffset:], r.NearInfrared)
	}
}
