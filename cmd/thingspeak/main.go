package main

import (
	"log"

	"github.com/seili-tech/picostation/internal/app"
	"github.com/seili-tech/picostation/internal/config"
)

func main() {
	log.Println("starting picostation ThingSpeak uploader")

	if err := config.InitGlobal("picostation.conf"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunThingSpeak(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
