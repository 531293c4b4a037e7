// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/heading"
	"github.com/relabs-tech/compass_computer/internal/mag"
	"github.com/relabs-tech/compass_computer/internal/qmc5883l"
)

// HeadingPayload is the JSON schema published on the heading topic.
// Degrees and Direction are only meaningful when Valid is true: a failed
// bus read is published as Valid=false, never as a stale or zero heading.
type HeadingPayload struct {
	Degrees   float64 `json:"degrees"`
	Direction string  `json:"direction"`
	Valid     bool    `json:"valid"`
	Time      string  `json:"time"`
}

// MagPayload carries the raw counts and the corrected field vector on the
// mag topic. Norm is the corrected magnitude; it should stay near-constant
// once calibration is good.
type MagPayload struct {
	Raw       mag.Sample `json:"raw"`
	Corrected [3]float64 `json:"corrected"`
	Norm      float64    `json:"norm"`
	Time      string     `json:"time"`
}

// openSampleReader opens the configured field source: the QMC5883L on the
// configured I2C bus, or the mock source when COMPASS_MOCK is set. The
// returned close func is a no-op for the mock.
func openSampleReader(cfg *config.Config) (mag.SampleReader, func(), error) {
	if cfg.CompassMock {
		log.Println("compass: using mock field source")
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
		Addr:           cfg.CompassI2CAddr,
		ODRHz:          cfg.CompassODRHz,
		RangeGauss:     cfg.CompassRangeGauss,
		OSR:            cfg.CompassOSR,
		DeclinationRad: cfg.DeclinationDeg * math.Pi / 180,
	})
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("qmc5883l init: %w", err)
	}
	log.Printf("compass: QMC5883L ready on bus %q addr 0x%02X", cfg.CompassI2CBus, cfg.CompassI2CAddr)

	return dev, func() { bus.Close() }, nil
}

// loadModel reads the calibration record, falling back to the identity
// model when the file is missing or unreadable. A missing record only
// means the compass runs uncorrected; it is not fatal.
func loadModel(path string) mag.Model {
	m, err := mag.LoadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("compass: no calibration record at %s, running uncorrected", path)
		} else {
			log.Printf("compass: calibration load failed, running uncorrected: %v", err)
		}
		return mag.Identity()
	}
	log.Printf("compass: calibration loaded from %s (offsets %d %d %d)",
		path, m.Offset[0], m.Offset[1], m.Offset[2])
	return m
}

// RunHeadingProducer polls the compass and publishes heading and raw-field
// JSON over MQTT. Read errors are reported and the loop keeps going.
func RunHeadingProducer() error {
	log.Println("starting compass-computer heading producer")

	cfg := config.Get()

	reader, closeReader, err := openSampleReader(cfg)
	if err != nil {
		return err
	}
	defer closeReader()

	model := loadModel(cfg.CalibrationFile)
	if dev, ok := reader.(*qmc5883l.Dev); ok {
		dev.SetCorrection(model)
	}
	declination := cfg.DeclinationDeg * math.Pi / 180

	// --- connect to MQTT ---
	clientID := cfg.MQTTClientIDHeading
	if clientID == "" {
		clientID = "compass-heading-producer"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	topicHeading := cfg.TopicHeading
	if topicHeading == "" {
		topicHeading = "compass/heading"
	}
	topicMag := cfg.TopicMag
	if topicMag == "" {
		topicMag = "compass/mag"
	}

	log.Println("connected to MQTT, starting publish loop")

	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		now := t.Format(time.RFC3339)

		raw, err := reader.ReadRaw()
		if err != nil {
			log.Printf("compass read error: %v", err)
			publish(client, topicHeading, HeadingPayload{Valid: false, Time: now})
			continue
		}

		corrected := model.Apply(raw)
		deg := heading.FromXY(corrected[0], corrected[1], declination)
		dir := heading.Direction(deg)
		norm := math.Sqrt(corrected[0]*corrected[0] + corrected[1]*corrected[1] + corrected[2]*corrected[2])

		publish(client, topicHeading, HeadingPayload{
			Degrees:   deg,
			Direction: dir,
			Valid:     true,
			Time:      now,
		})
		publish(client, topicMag, MagPayload{
			Raw:       raw,
			Corrected: corrected,
			Norm:      norm,
			Time:      now,
		})

		log.Printf("%s tick: heading=%.1f° %s | raw mx=%d my=%d mz=%d | |B|=%.1f",
			now, deg, dir, raw.X, raw.Y, raw.Z, norm)
	}
	return nil
}

func publish(client mqtt.Client, topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("json marshal error (%s): %v", topic, err)
		return
	}
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (%s): %v", topic, token.Error())
	}
}
