package main

import (
	"log"

	"github.com/seili-tech/picostation/internal/app"
	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/sensors"
)

func main() {
	log.Println("starting picostation MQTT producer (mock sensor)")

	if err := config.InitGlobal("picostation.conf"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunProducer(sensors.NewMockSource(), nil); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
