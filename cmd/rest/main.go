package main

import (
	"context"
	"log"

	"ai-docagent-be/internal/bootstrap"
	"ai-docagent-be/internal/config"
	"ai-docagent-be/internal/server"
	"ai-docagent-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Services
	ctx := context.Background()
	if err := container.EditDispatcher.Start(ctx); err != nil {
		log.Panicf("Unable to start edit dispatcher: %v", err)
	}
	log.Println("Background: Starting Mutation Consumer...")
	if err := container.MutationConsumer.Consume(ctx); err != nil {
		log.Panicf("Unable to start mutation consumer: %v", err)
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
