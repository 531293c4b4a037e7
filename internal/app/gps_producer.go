package app

import (
	"bufio"
	"encoding/json"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes ground-track fixes as JSON to MQTT. VTG magnetic track is
// folded into the fix when the receiver emits it, so consoles can compare
// the compass heading directly against magnetic course over ground.
func RunGPSProducer() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	clientID := cfg.MQTTClientIDGPS
	if clientID == "" {
		clientID = "compass-gps-producer"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("GPS producer connected to MQTT broker at %s", cfg.MQTTBroker)

	topic := cfg.TopicGPS
	if topic == "" {
		topic = "compass/gps"
	}

	// ---- 2) Open GPS serial port ----
	port := cfg.GPSSerialPort
	if port == "" {
		port = "/dev/serial0"
	}
	baud := cfg.GPSBaudRate
	if baud == 0 {
		baud = 9600
	}
	serialOpts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	sp, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer sp.Close()
	log.Printf("GPS serial port opened on %s at %d baud", port, baud)

	reader := bufio.NewReader(sp)

	// RMC carries position/speed/true course; VTG adds the magnetic track.
	// Each RMC publishes the accumulated fix.
	var current gps.Fix

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("GPS read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeVTG:
			m := sentence.(nmea.VTG)
			current.CourseMagDeg = m.MagneticTrack

		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)

			current.Time = m.Time.String()
			current.Date = m.Date.String()
			current.Latitude = m.Latitude
			current.Longitude = m.Longitude
			current.SpeedKnots = m.Speed
			current.CourseDeg = m.Course
			current.Validity = string(m.Validity)

			payload, err := json.Marshal(current)
			if err != nil {
				log.Printf("GPS JSON marshal error: %v", err)
				continue
			}

			token := client.Publish(topic, 0, true, payload)
			token.Wait()
			if token.Error() != nil {
				log.Printf("GPS publish error: %v", token.Error())
				continue
			}

			log.Printf("published GPS fix: %+v", current)

		default:
			// ignore other sentence types (GGA, GSA, etc.)
		}
	}
}
