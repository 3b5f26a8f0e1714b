package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"notebookllm/internal/api"
	"notebookllm/internal/app"
	"notebookllm/internal/config"
	"notebookllm/internal/metrics"
	"notebookllm/internal/workflows"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	comp, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer comp.Close()

	var wf api.IngestWorkflows
	if cfg.TemporalAddress != "" {
		wc, err := workflows.Dial(cfg.TemporalAddress, cfg.TemporalTaskQueue)
		if err != nil {
			log.Printf("temporal unavailable, async indexing disabled address=%s err=%v", cfg.TemporalAddress, err)
		} else {
			defer wc.Close()
			wf = wc
		}
	}

	h := api.NewServer(comp, metrics.New("notebookllm"), wf)
	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("notebookllm api listening on %s vector_store=%s collection=%q async=%t", cfg.APIAddr, cfg.VectorStore, cfg.Collection, wf != nil)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
