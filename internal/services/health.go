package services

import (
	"context"
	"fmt"
	"log"

	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/storage"
	"github.com/winnerqin/jimeng4-image-generator/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status        string            `json:"status"`
	Database      string            `json:"database"`
	ObjectStorage string            `json:"object_storage"`
	Provider      string            `json:"provider"`
	Details       map[string]string `json:"details,omitempty"`
	ErrorMessage  string            `json:"error,omitempty"`
}

// HealthCheck performs a comprehensive health check of the service
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, store *storage.ObjectStorage) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Status = "unhealthy"
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database connection error: %v", err)
		log.Printf("Health check failed - database connection: %v", err)
	} else {
		if err := sqlDB.PingContext(ctx); err != nil {
			result.Status = "unhealthy"
			result.Database = "unreachable"
			result.Details["database_ping_error"] = err.Error()
			result.ErrorMessage = fmt.Sprintf("Database ping failed: %v", err)
			log.Printf("Health check failed - database ping: %v", err)
		} else {
			result.Database = "ok"
			result.Details["database_type"] = cfg.DBType
			result.Details["database_name"] = cfg.DBDatabase
		}
	}

	// Check object storage connectivity
	if !store.Enabled() {
		result.ObjectStorage = "disabled"
	} else if err := store.Health(ctx); err != nil {
		result.Status = "unhealthy"
		result.ObjectStorage = "unreachable"
		result.Details["object_storage_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("Object storage ping failed: %v", err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; Object storage ping failed: %v", err)
		}
		log.Printf("Health check failed - object storage ping: %v", err)
	} else {
		result.ObjectStorage = "ok"
		result.Details["object_storage_endpoint"] = cfg.OSSEndpoint
	}

	// Check generation provider reachability. A TCP probe is enough here;
	// a full signed request would consume quota.
	if cfg.ProviderURL == "" {
		result.Provider = "disabled"
	} else if err := utils.PingProvider(cfg.ProviderURL); err != nil {
		result.Status = "unhealthy"
		result.Provider = "unreachable"
		result.Details["provider_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("Provider ping failed: %v", err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; Provider ping failed: %v", err)
		}
		log.Printf("Health check failed - provider ping: %v", err)
	} else {
		result.Provider = "ok"
		result.Details["provider_url"] = cfg.ProviderURL
	}

	if result.Status == "healthy" {
		log.Println("Health check passed - all systems operational")
	}

	return result
}
