package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"first-aid/api/internal/app"
	"first-aid/api/internal/config"
	"first-aid/api/internal/handle"
	"first-aid/api/internal/httpserver"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()
	go a.RunJanitor(ctx)

	h := handle.New(a.Engines, a.Service).
		WithDeadline(cfg.RequestTimeout()).
		WithFontPath(cfg.PDFFontPath)

	log.Printf("aid-api: default engine %s (%s)", a.Default.Name(), a.Default.GetModel())
	if err := httpserver.Serve(ctx, ":"+cfg.Port, h.Routes()); err != nil {
		log.Printf("aid-api: %v", err)
	}
}
