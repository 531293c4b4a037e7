// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/compass_computer/internal/app"
	"github.com/relabs-tech/compass_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "./compass_config.txt", "path to configuration file")
	watch := flag.Bool("watch", false, "keep dumping registers periodically")
	interval := flag.Duration("interval", time.Second, "dump interval in watch mode")
	flag.Parse()

	log.Println("starting QMC5883L register debug tool (standalone)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunRegisterDebug(*watch, *interval); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
