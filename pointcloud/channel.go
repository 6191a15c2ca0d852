package pointcloud

// Canonical channel names.
const (
	ChannelX               = "X"
	ChannelY               = "Y"
	ChannelZ               = "Z"
	ChannelIntensity       = "Intensity"
	ChannelReturnNum       = "ReturnNum"
	ChannelNumReturns      = "NumReturns"
	ChannelScanDir         = "ScanDir"
	ChannelEdgeFlightLine  = "EdgeFlightLine"
	ChannelScannerChannel  = "ScannerChannel"
	ChannelClassID         = "ClassId"
	ChannelClassFlags      = "ClassFlags"
	ChannelScanAngle       = "ScanAngle"
	ChannelUserData        = "UserData"
	ChannelSourceID        = "SourceId"
	ChannelGPSTime         = "GPSTime"
	ChannelGPSTimeAdjusted = "GPSTime_Adjusted"
	ChannelRed             = "Red"
	ChannelGreen           = "Green"
	ChannelBlue            = "Blue"
	ChannelNearInfrared    = "NearInfrared"
)

// Channel describes one typed column of a point cloud.
//
// Bits is a precision hint no larger than the natural width of DataType; writers use it to pick
// the smallest record layout that can hold the channel. Quantization is the spacing of the
// on-disk fixed point grid for spatially quantized values and zero otherwise.
type Channel struct {
	Name         string
	DataType     DataType
	Bits         int
	Quantization float64
}

// NewChannel returns a channel. A non-positive bits value means the natural width of dt.
func NewChannel(name string, dt DataType, bits int, quantization float64) Channel {
	if bits <= 0 || bits > 8*dt.ByteWidth() {
		bits = 8 * dt.ByteWidth()
	}
	return Channel{Name: name, DataType: dt, Bits: bits, Quantization: quantization}
}

// Equal reports whether the name, datatype, bits and quantization all match.
func (c Channel) Equal(other Channel) bool {
	return c == other
}
