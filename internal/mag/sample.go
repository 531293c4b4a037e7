package mag

// Sample is a single raw magnetometer reading in sensor counts.
type Sample struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// Signed 16-bit decode bounds.
const (
	valueMax  = 65536
	valueHalf = 32767
)

// DecodeSample converts the six data bytes read from the X LSB register
// into signed axis counts. Each axis is little-endian: LSB first, then MSB,
// with values above 32767 reinterpreted as two's complement.
func DecodeSample(data [6]byte) Sample {
	return Sample{
		X: decodeAxis(data[0], data[1]),
		Y: decodeAxis(data[2], data[3]),
		Z: decodeAxis(data[4], data[5]),
	}
}

func decodeAxis(lsb, msb byte) int16 {
	v := int(lsb) | int(msb)<<8
	if v > valueHalf {
		v -= valueMax
	}
	return int16(v)
}

// SampleReader is anything that can produce raw samples over time:
// the real sensor, a mock source, maybe a replay source from file later.
type SampleReader interface {
	ReadRaw() (Sample, error)
}
