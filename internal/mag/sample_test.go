package mag

import "testing"

func TestDecodeAxis(t *testing.T) {
	tests := []struct {
		name string
		lsb  byte
		msb  byte
		want int16
	}{
		{"zero", 0x00, 0x00, 0},
		{"one", 0x01, 0x00, 1},
		{"max positive", 0xFF, 0x7F, 32767},
		{"minus one", 0xFF, 0xFF, -1},
		{"most negative", 0x00, 0x80, -32768},
		{"lsb only", 0x2A, 0x00, 42},
		{"msb only", 0x00, 0x01, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeAxis(tt.lsb, tt.msb); got != tt.want {
				t.Errorf("decodeAxis(0x%02X, 0x%02X) = %d, want %d", tt.lsb, tt.msb, got, tt.want)
			}
		})
	}
}

func TestDecodeAxisMatchesInt16Reinterpret(t *testing.T) {
	// The two's-complement decode must agree with a plain int16
	// reinterpretation of the 16-bit word for every possible value.
	for v := 0; v < 65536; v++ {
		lsb := byte(v)
		msb := byte(v >> 8)
		want := int16(uint16(v))
		if got := decodeAxis(lsb, msb); got != want {
			t.Fatalf("decodeAxis(0x%02X, 0x%02X) = %d, want %d", lsb, msb, got, want)
		}
	}
}

func TestDecodeSample(t *testing.T) {
	// X=-1, Y=-32768, Z=32767, byte order LSB first per axis.
	data := [6]byte{0xFF, 0xFF, 0x00, 0x80, 0xFF, 0x7F}
	got := DecodeSample(data)
	want := Sample{X: -1, Y: -32768, Z: 32767}
	if got != want {
		t.Errorf("DecodeSample(%v) = %+v, want %+v", data, got, want)
	}
}
