// Package persistence selects the ledger store backing the application.
package persistence

import (
	"log"

	"lifekline-api/internal/adapters/persistence/memstore"
	"lifekline-api/internal/adapters/persistence/models"
	"lifekline-api/internal/adapters/persistence/repositories"
	"lifekline-api/internal/config"
)

// Open returns the ledger store for the configured driver and a function
// releasing it
func Open(cfg *config.Config) (repositories.LedgerStore, func() error, error) {
	if cfg.Database.Driver == "memory" {
		log.Println("⚠️ Using in-memory ledger store, data is lost on restart")
		return memstore.New(), func() error { return nil }, nil
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		config.CloseDatabase()
		return nil, nil, err
	}
	log.Println("✅ Database migration completed")

	return repositories.NewLedgerStore(db), config.CloseDatabase, nil
}
