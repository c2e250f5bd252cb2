package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nock-and-loose/server/internal/app"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("NOCK_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
