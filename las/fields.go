package las

import (
	"go.viam.com/lascodec/pointcloud"
)

// field identifies a Record member a channel maps to.
type field int

const (
	fieldX field = iota
	fieldY
	fieldZ
	fieldIntensity
	fieldReturnNumber
	fieldNumberOfReturns
	fieldClassFlags
	fieldScannerChannel
	fieldScanDirection
	fieldEdgeOfFlightLine
	fieldClassification
	fieldScanAngle
	fieldUserData
	fieldPointSourceID
	fieldGPSTime
	fieldRed
	fieldGreen
	fieldBlue
	fieldNearInfrared
)

var fieldsByName = map[string]field{
	pointcloud.ChannelX:               fieldX,
	pointcloud.ChannelY:               fieldY,
	pointcloud.ChannelZ:               fieldZ,
	pointcloud.ChannelIntensity:       fieldIntensity,
	pointcloud.ChannelReturnNum:       fieldReturnNumber,
	pointcloud.ChannelNumReturns:      fieldNumberOfReturns,
	pointcloud.ChannelClassFlags:      fieldClassFlags,
	pointcloud.ChannelScannerChannel:  fieldScannerChannel,
	pointcloud.ChannelScanDir:         fieldScanDirection,
	pointcloud.ChannelEdgeFlightLine:  fieldEdgeOfFlightLine,
	pointcloud.ChannelClassID:         fieldClassification,
	pointcloud.ChannelScanAngle:       fieldScanAngle,
	pointcloud.ChannelUserData:        fieldUserData,
	pointcloud.ChannelSourceID:        fieldPointSourceID,
	pointcloud.ChannelGPSTime:         fieldGPSTime,
	pointcloud.ChannelGPSTimeAdjusted: fieldGPSTime,
	pointcloud.ChannelRed:             fieldRed,
	pointcloud.ChannelGreen:           fieldGreen,
	pointcloud.ChannelBlue:            fieldBlue,
	pointcloud.ChannelNearInfrared:    fieldNearInfrared,
}

// fieldBinding ties a buffer channel index to the record field it carries.
type fieldBinding struct {
	channel int
	field   field
}

// bindFields maps every LAS-representable channel of schema to its record field.
func bindFields(schema *pointcloud.Schema) []fieldBinding {
	var bindings []fieldBinding
	for i, name := range schema.Names() {
		if f, ok := fieldsByName[name]; ok {
			bindings = append(bindings, fieldBinding{channel: i, field: f})
		}
	}
	return bindings
}

// intValue returns an integer record field.
func (r *Record) intValue(f field) int64 {
	switch f {
	case fieldX:
		return int64(r.X)
	case fieldY:
		return int64(r.Y)
	case fieldZ:
		return int64(r.Z)
	case fieldIntensity:
		return int64(r.Intensity)
	case fieldReturnNumber:
		return int64(r.ReturnNumber)
	case fieldNumberOfReturns:
		return int64(r.NumberOfReturns)
	case fieldClassFlags:
		return int64(r.ClassFlags)
	case fieldScannerChannel:
		return int64(r.ScannerChannel)
	case fieldScanDirection:
		return int64(r.ScanDirection)
	case fieldEdgeOfFlightLine:
		return int64(r.EdgeOfFlightLine)
	case fieldClassification:
		return int64(r.Classification)
	case fieldScanAngle:
		return int64(r.ScanAngle)
	case fieldUserData:
		return int64(r.UserData)
	case fieldPointSourceID:
		return int64(r.PointSourceID)
	case fieldGPSTime:
		return int64(r.GPSTime)
	case fieldRed:
		return int64(r.Red)
	case fieldGreen:
		return int64(r.Green)
	case fieldBlue:
		return int64(r.Blue)
	case fieldNearInfrared:
		return int64(r.NearInfrared)
	}
	return 0
}

// setIntValue stores v into an integer record field, truncating to the field's width.
func (r *Record) setIntValue(f field, v int64) {
	switch f {
	case fieldX:
		r.X = int32(v)
	case fieldY:
		r.Y = int32(v)
	case fieldZ:
		r.Z = int32(v)
	case fieldIntensity:
		r.Intensity = uint16(v)
	case fieldReturnNumber:
		r.ReturnNumber = uint8(v)
	case fieldNumberOfReturns:
		r.NumberOfReturns = uint8(v)
	case fieldClassFlags:
		r.ClassFlags = uint8(v)
	case fieldScannerChannel:
		r.ScannerChannel = uint8(v)
	case fieldScanDirection:
		r.ScanDirection = uint8(v)
	case fieldEdgeOfFlightLine:
		r.EdgeOfFlightLine = uint8(v)
	case fieldClassification:
		r.Classification = uint8(v)
	case fieldScanAngle:
		r.ScanAngle = int16(v)
	case fieldUserData:
		r.UserData = uint8(v)
	case fieldPointSourceID:
		r.PointSourceID = uint16(v)
	case fieldGPSTime:
		r.GPSTime = float64(v)
	case fieldRed:
		r.Red = uint16(v)
	case fieldGreen:
		r.Green = uint16(v)
	case fieldBlue:
		r.Blue = uint16(v)
	case fieldNearInfrared:
		r.NearInfrared = uint16(v)
	}
}
