package mag

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// RecordSize is the exact on-disk size of a calibration record: three
// little-endian int32 offsets followed by the nine matrix coefficients as
// float32 in row-major order.
const RecordSize = 48

// ErrBadRecordSize reports a calibration file whose length is not exactly
// one record.
var ErrBadRecordSize = errors.New("mag: calibration record is not 48 bytes")

type record struct {
	Offset [3]int32
	Matrix [3][3]float32
}

// Save writes the model as one binary record.
func Save(w io.Writer, m Model) error {
	rec := record{Offset: m.Offset}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rec.Matrix[i][j] = float32(m.Matrix[i][j])
		}
	}
	if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
		return fmt.Errorf("mag: writing calibration record: %w", err)
	}
	return nil
}

// Load reads one binary record and returns the model it encodes. The input
// must be exactly RecordSize bytes; anything shorter or longer is a decode
// error and the caller's current model is left as it was.
func Load(r io.Reader) (Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Model{}, fmt.Errorf("mag: reading calibration record: %w", err)
	}
	if len(data) != RecordSize {
		return Model{}, fmt.Errorf("%w: got %d", ErrBadRecordSize, len(data))
	}
	var rec record
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &rec); err != nil {
		return Model{}, fmt.Errorf("mag: decoding calibration record: %w", err)
	}
	m := Model{Offset: rec.Offset}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Matrix[i][j] = float64(rec.Matrix[i][j])
		}
	}
	return m, nil
}

// SaveFile writes the model to path, replacing any previous record.
func SaveFile(path string, m Model) error {
	var buf bytes.Buffer
	if err := Save(&buf, m); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadFile reads a model from path.
func LoadFile(path string) (Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return Model{}, err
	}
	defer f.Close()
	return Load(f)
}
