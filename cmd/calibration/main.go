// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


// ./cmd/calibration/main.go
//
// Guided calibration for the QMC5883L magnetometer in this project.
// Calibrates:
//  1. Hard iron: per-axis offset from the min/max envelope of a full 3D rotation sweep
//  2. Soft iron: per-axis scale normalizing each half-range to the mean radius
//
// Output:
//
//	Writes the binary calibration record consumed by the heading producer, plus a
//	timestamped JSON report including calibration date/time and quality/confidence.
//
// Run:
//
//	go run ./cmd/calibration
//
// Notes / assumptions:
//   - Reads raw samples directly from the sensor (or the mock source when COMPASS_MOCK is set);
//     stop the heading producer first so the two do not fight over the bus.
//   - Stores calibration in RAW UNITS (counts). Applying this calibration later requires consistent units.
//   - The min/max method is a practical ellipsoid approximation (offset + diagonal scale). It is
//     robust and easy, though not as accurate as a full 3x3 ellipsoid fit.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/heading"
	"github.com/relabs-tech/compass_computer/internal/mag"
	"github.com/relabs-tech/compass_computer/internal/qmc5883l"
)

const verifySamples = 20

// CalibrationReport is the JSON report written next to the binary record.
type CalibrationReport struct {
	SchemaVersion int        `json:"schema_version"`
	CalibrationAt string     `json:"calibration_at"`
	Samples       int        `json:"samples"`
	DelayMS       int        `json:"delay_ms"`
	Offset        [3]int32   `json:"offset"`
	Scale         [3]float64 `json:"scale"`
	Degenerate    [3]bool    `json:"degenerate"`
	Coverage      float64    `json:"coverage"`
	Sphericity    float64    `json:"sphericity"`
	Confidence    float64    `json:"confidence"`
	RecordFile    string     `json:"record_file"`
}

func main() {
	in := bufio.NewReader(os.Stdin)

	configPath := flag.String("config", "compass_config.txt", "Path to configuration file")
	samplesFlag := flag.Int("samples", 0, "Number of samples to collect (default from config, else 1000)")
	delayFlag := flag.Int("delay", 0, "Delay between samples in ms (default from config, else 10)")
	outFlag := flag.String("out", "", "Override the calibration record path from config")
	flag.Parse()

	fmt.Println("=== Guided Compass Calibration (hard iron + soft iron) ===")
	fmt.Println("This workflow will prompt you in the console and store the calibration record.")
	fmt.Println()

	if err := config.InitGlobal(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	cfg := config.Get()

	samples := *samplesFlag
	if samples <= 0 {
		samples = cfg.CalibrationSamples
	}
	if samples <= 0 {
		samples = 1000
	}
	delayMS := *delayFlag
	if delayMS <= 0 {
		delayMS = cfg.CalibrationDelayMS
	}
	if delayMS <= 0 {
		delayMS = 10
	}
	recordFile := *outFlag
	if recordFile == "" {
		recordFile = cfg.CalibrationFile
	}

	reader, closeReader, err := openReader(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeReader()

	sweep := time.Duration(samples*delayMS) * time.Millisecond
	fmt.Printf("Capture: %d samples every %dms (about %s).\n", samples, delayMS, sweep.Round(time.Second))
	fmt.Println("Rotate the sensor slowly through all orientations (3D) for the whole capture.")
	fmt.Println("Move away from large metal objects and power cables if possible.")
	fmt.Println()
	waitEnter(in, "Press ENTER to start the capture...")

	cal := mag.NewCalibrator(reader)
	res, err := cal.Run(samples, time.Duration(delayMS)*time.Millisecond, func(pct float64) {
		fmt.Printf("\rProgress: %5.1f%%", pct)
	})
	fmt.Println()
	if err != nil {
		fatal(err)
	}

	fmt.Printf("\nMag offset (counts): X=%d Y=%d Z=%d\n", res.Offset[0], res.Offset[1], res.Offset[2])
	fmt.Printf("Mag scale:           X=%.4f Y=%.4f Z=%.4f\n", res.Scale[0], res.Scale[1], res.Scale[2])
	for axis, deg := range res.Degenerate {
		if deg {
			fmt.Printf("Warning: axis %d saw no range at all; its scale is left at 1. Rotate more next time.\n", axis)
		}
	}
	fmt.Printf("Coverage=%.2f Sphericity=%.2f | confidence=%.2f\n", res.Coverage, res.Sphericity, res.Confidence)
	if res.Confidence < 0.5 {
		fmt.Println("Low confidence: consider re-running with a slower, fuller rotation.")
	}

	if err := mag.SaveFile(recordFile, res.Model); err != nil {
		fatal(fmt.Errorf("saving calibration record: %w", err))
	}
	fmt.Printf("\nSaved calibration record to %s\n", recordFile)

	report := CalibrationReport{
		SchemaVersion: 1,
		CalibrationAt: time.Now().Format(time.RFC3339),
		Samples:       res.Samples,
		DelayMS:       delayMS,
		Offset:        res.Offset,
		Scale:         res.Scale,
		Degenerate:    res.Degenerate,
		Coverage:      res.Coverage,
		Sphericity:    res.Sphericity,
		Confidence:    res.Confidence,
		RecordFile:    recordFile,
	}
	if err := writeReport(report); err != nil {
		fatal(err)
	}

	// ---------------- Verification ----------------
	fmt.Println("\nVerification: hold the sensor still, or rotate it and watch the heading follow.")
	waitEnter(in, "Press ENTER to read a few corrected samples...")

	if dev, ok := reader.(*qmc5883l.Dev); ok {
		dev.SetCorrection(res.Model)
	}
	declination := cfg.DeclinationDeg * math.Pi / 180

	for i := 0; i < verifySamples; i++ {
		s, err := reader.ReadRaw()
		if err != nil {
			fmt.Printf("  read error: %v\n", err)
			continue
		}
		v := res.Model.Apply(s)
		deg := heading.FromXY(v[0], v[1], declination)
		norm := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		fmt.Printf("  raw=(%6d %6d %6d)  corrected=(%8.1f %8.1f %8.1f)  |B|=%7.1f  heading=%6.1f° %s\n",
			s.X, s.Y, s.Z, v[0], v[1], v[2], norm, deg, heading.Direction(deg))
		time.Sleep(time.Duration(delayMS) * time.Millisecond)
	}

	fmt.Println("\nCalibration complete.")
}

// openReader opens the configured field source, mirroring what the heading
// producer does: the real QMC5883L, or the mock source for dry runs.
func openReader(cfg *config.Config) (mag.SampleReader, func(), error) {
	if cfg.CompassMock {
		fmt.Println("Using mock field source (COMPASS_MOCK=true).")
		return mag.NewMockReader(), func() {}, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.CompassI2CBus)
	if err != nil {
		return nil, nil, fmt.Errorf("i2c open %q: %w", cfg.CompassI2CBus, err)
	}
	dev, err := qmc5883l.New(bus, qmc5883l.Opts{
		Addr:       cfg.CompassI2CAddr,
		ODRHz:      cfg.CompassODRHz,
		RangeGauss: cfg.CompassRangeGauss,
		OSR:        cfg.CompassOSR,
	})
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("qmc5883l init: %w", err)
	}
	fmt.Printf("QMC5883L ready on bus %q addr 0x%02X.\n", cfg.CompassI2CBus, cfg.CompassI2CAddr)
	return dev, func() { bus.Close() }, nil
}

// ---------- Output ----------

func writeReport(report CalibrationReport) error {
	ts := time.Now().Format("2006-01-02T15-04-05Z07-00")
	name := fmt.Sprintf("%s_compass_calibration.json", ts)

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote: %s\n", name)
	return nil
}

// ---------- Console helpers ----------

func waitEnter(in *bufio.Reader, prompt string) {
	fmt.Print(prompt)
	_, _ = in.ReadString('\n')
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
