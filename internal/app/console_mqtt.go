package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/compass_computer/internal/gps"
)

// RunConsoleMQTT subscribes to the compass and GPS topics and pretty-prints
// everything, so heading can be eyeballed against GPS course over ground.
func RunConsoleMQTT() error {
	opts := mqtt.NewClientOptions().
		AddBroker("tcp://localhost:1883").
		SetClientID("compass-console-subscriber")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Println("console: connected to MQTT broker at tcp://localhost:1883")

	// Subscribe to heading
	headingToken := client.Subscribe("compass/heading", 0, func(_ mqtt.Client, msg mqtt.Message) {
		var h HeadingPayload
		if err := json.Unmarshal(msg.Payload(), &h); err != nil {
			log.Printf("console: heading unmarshal error: %v", err)
			return
		}

		if !h.Valid {
			fmt.Printf("[HEAD]  (no heading — sensor unavailable)\n")
			return
		}
		fmt.Printf("[HEAD]  %6.1f°  %-2s\n", h.Degrees, h.Direction)
	})
	headingToken.Wait()
	if headingToken.Error() != nil {
		return headingToken.Error()
	}
	log.Println("console: subscribed to compass/heading")

	// Subscribe to raw/corrected field
	magToken := client.Subscribe("compass/mag", 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m MagPayload
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("console: mag unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[MAG ]  raw mx=%6d my=%6d mz=%6d  cal cx=%8.1f cy=%8.1f cz=%8.1f  |B|=%7.1f\n",
			m.Raw.X, m.Raw.Y, m.Raw.Z,
			m.Corrected[0], m.Corrected[1], m.Corrected[2], m.Norm,
		)
	})
	magToken.Wait()
	if magToken.Error() != nil {
		return magToken.Error()
	}
	log.Println("console: subscribed to compass/mag")

	// Subscribe to GPS
	gpsToken := client.Subscribe("compass/gps", 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[GPS ]  time=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° (mag %.1f°) validity=%s\n",
			f.Time, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.CourseMagDeg, f.Validity,
		)
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Println("console: subscribed to compass/gps")

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
