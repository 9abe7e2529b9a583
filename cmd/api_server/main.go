// Copyright (c) 2026 Seili Tech
// SPDX-License-Identifier: MIT

package main

import (
	"log"

	"github.com/seili-tech/picostation/internal/app"
	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/sensors"
)

func main() {
	log.Println("starting picostation HTTP API server")

	if err := config.InitGlobal("picostation.conf"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var led *sensors.StatusLED
	if pin := config.Get().LEDPin; pin != "" {
		var err error
		led, err = sensors.NewStatusLED(pin)
		if err != nil {
			log.Printf("LED unavailable, /lighton and /lightoff disabled: %v", err)
			led = nil
		}
	}

	if err := app.RunAPIServer(sensors.NewBME280Source(), led); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
