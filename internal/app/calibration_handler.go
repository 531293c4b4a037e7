// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/mag"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// CalibrationSession holds the state of an active browser-guided
// calibration run.
type CalibrationSession struct {
	Conn *websocket.Conn
	mu   sync.Mutex
}

// WebSocket message types
type WSMessage struct {
	Action  string `json:"action"` // start, cancel
	Samples int    `json:"samples,omitempty"`
	DelayMS int    `json:"delay_ms,omitempty"`
}

type WSResponse struct {
	Type     string      `json:"type"` // state, progress, result, saved, error
	State    string      `json:"state,omitempty"`
	Progress float64     `json:"progress,omitempty"`
	Result   *mag.Result `json:"result,omitempty"`
	File     string      `json:"file,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// HandleCalibrationWS drives one calibration run over a WebSocket: the
// browser prompts the user to rotate the sensor, the server collects the
// sweep and streams progress, then the computed result, then the name of
// the saved record. The on-disk model only changes after a run completes.
func HandleCalibrationWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("calibration: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := &CalibrationSession{Conn: conn}

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("calibration: websocket read error: %v", err)
			}
			return
		}

		switch msg.Action {
		case "start":
			session.mu.Lock()
			err := session.run(msg.Samples, msg.DelayMS)
			session.mu.Unlock()
			if err != nil {
				log.Printf("calibration: run failed: %v", err)
				session.sendError(err.Error())
			}

		case "cancel":
			log.Printf("calibration: cancelled by user")
			return

		default:
			session.sendError(fmt.Sprintf("unknown action %q", msg.Action))
		}
	}
}

func (s *CalibrationSession) run(samples, delayMS int) error {
	cfg := config.Get()

	if samples <= 0 {
		samples = cfg.CalibrationSamples
	}
	if samples <= 0 {
		samples = 1000
	}
	if delayMS <= 0 {
		delayMS = cfg.CalibrationDelayMS
	}
	if delayMS <= 0 {
		delayMS = 10
	}

	reader, closeReader, err := openSampleReader(cfg)
	if err != nil {
		return err
	}
	defer closeReader()

	cal := mag.NewCalibrator(reader)
	s.sendState(cal.State().String())

	log.Printf("calibration: collecting %d samples every %dms", samples, delayMS)

	res, err := cal.Run(samples, time.Duration(delayMS)*time.Millisecond, func(pct float64) {
		s.sendProgress(pct)
	})
	if err != nil {
		s.sendState(cal.State().String())
		return err
	}
	s.sendState(cal.State().String())

	for axis, deg := range res.Degenerate {
		if deg {
			log.Printf("calibration: axis %d range collapsed to zero, scale left at 1", axis)
		}
	}

	s.Conn.WriteJSON(WSResponse{Type: "result", Result: &res})

	if err := mag.SaveFile(cfg.CalibrationFile, res.Model); err != nil {
		return fmt.Errorf("saving calibration record: %w", err)
	}
	log.Printf("calibration: saved record to %s (confidence %.2f)", cfg.CalibrationFile, res.Confidence)

	s.Conn.WriteJSON(WSResponse{Type: "saved", File: cfg.CalibrationFile})
	return nil
}

func (s *CalibrationSession) sendState(state string) {
	s.Conn.WriteJSON(WSResponse{Type: "state", State: state})
}

func (s *CalibrationSession) sendProgress(pct float64) {
	s.Conn.WriteJSON(WSResponse{Type: "progress", Progress: pct})
}

func (s *CalibrationSession) sendError(message string) {
	s.Conn.WriteJSON(WSResponse{Type: "error", Message: message})
}
