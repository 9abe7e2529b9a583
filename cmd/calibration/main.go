package main

import (
	"log"

	"github.com/seili-tech/picostation/internal/app"
	"github.com/seili-tech/picostation/internal/config"
)

func main() {
	log.Println("starting picostation QNH calibration")

	if err := config.InitGlobal("picostation.conf"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Println("Note: calibration requires the producer to be publishing and a serial GPS with a fix")

	if err := app.RunCalibration(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
