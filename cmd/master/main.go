package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benruijl/walledin/internal/app"
	"github.com/benruijl/walledin/internal/config"
	"github.com/benruijl/walledin/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{Logger: telemetry.WrapLogger(log.Default())}.Master()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := app.RunMaster(ctx, cfg, log.Default()); err != nil {
		log.Fatalf("%v", err)
	}
}
