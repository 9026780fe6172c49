package main

import (
	"context"
	"log"

	"atelier-backend/internal/config"
	"atelier-backend/internal/metadata"
	"atelier-backend/internal/seed"
	"atelier-backend/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	reg := metadata.NewRegistry()
	if err := db.Bootstrap(ctx, reg); err != nil {
		log.Fatalf("Failed to bootstrap schema: %v", err)
	}

	if err := seed.Run(ctx, db); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	log.Println("Seed complete")
}
