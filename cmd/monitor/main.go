// Copyright (c) 2026 Seili Tech
// SPDX-License-Identifier: MIT

package main

import (
	"log"

	"github.com/seili-tech/picostation/internal/app"
	"github.com/seili-tech/picostation/internal/config"
)

func main() {
	log.Println("starting picostation monitor daemon")

	// Load configuration
	if err := config.InitGlobal("picostation.conf"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Println("Note: the station API server must be reachable at MONITOR_STATION_URL")

	if err := app.RunMonitor(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
