package main

import (
	"context"
	"log"

	"notebookllm/internal/activities"
	"notebookllm/internal/app"
	"notebookllm/internal/config"
	"notebookllm/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.TemporalAddress == "" {
		log.Fatal("NOTEBOOK_TEMPORAL_ADDRESS is required for the worker")
	}
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	comp, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer comp.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(comp.Ingestor))

	log.Printf("notebookllm worker listening on %s queue=%s vector_store=%s collection=%q", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.VectorStore, cfg.Collection)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
