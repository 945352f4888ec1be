package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/database"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	store, err := storage.New(ctx, cfg, zerolog.Nop())
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Perform health check
	result := services.HealthCheck(ctx, cfg, db, store)

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal health check result: %v", err)
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
	os.Exit(0)
}
