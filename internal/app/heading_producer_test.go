package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/mag"
)

func TestOpenSampleReaderMock(t *testing.T) {
	cfg := &config.Config{CompassMock: true}
	reader, closeReader, err := openSampleReader(cfg)
	if err != nil {
		t.Fatalf("openSampleReader: %v", err)
	}
	defer closeReader()

	if _, err := reader.ReadRaw(); err != nil {
		t.Errorf("mock ReadRaw: %v", err)
	}
}

func TestLoadModelMissingFileFallsBack(t *testing.T) {
	m := loadModel(filepath.Join(t.TempDir(), "absent.bin"))
	if m != mag.Identity() {
		t.Errorf("loadModel on missing file = %+v, want identity", m)
	}
}

func TestLoadModelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compass_calibration.bin")
	want := mag.DiagonalModel([3]int32{162, -211, 30}, [3]float64{1.5, 1, 0.5})
	if err := mag.SaveFile(path, want); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	if got := loadModel(path); got != want {
		t.Errorf("loadModel = %+v, want %+v", got, want)
	}
}

func TestLoadModelCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	if err := os.WriteFile(path, make([]byte, 12), 0o644); err != nil {
		t.Fatal(err)
	}
	if m := loadModel(path); m != mag.Identity() {
		t.Errorf("loadModel on truncated file = %+v, want identity", m)
	}
}
