package mag

import "testing"

func TestMockReaderNeverFails(t *testing.T) {
	r := NewMockReader()
	for i := 0; i < 100; i++ {
		if _, err := r.ReadRaw(); err != nil {
			t.Fatalf("ReadRaw: %v", err)
		}
	}
}
