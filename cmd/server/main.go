package main

import (
	"context"
	"log"

	"github.com/okarpenko/weather-range-service/internal/app"
)

func main() {
	application, err := app.New()

	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	ctx := context.Background()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	application.WaitForShutdown()
	application.Stop()
}
