package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cargolink/go-freight-backend/internal/domain"
	"github.com/cargolink/go-freight-backend/internal/repo"
)

// newTestDB opens a throwaway SQLite database with the schema migrated.
// WAL plus a busy timeout lets concurrency tests run real parallel
// transactions against the same file.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// validCargoInput returns an input that passes every validation rule.
func validCargoInput() CargoInput {
	return CargoInput{
		Title:           "Pallets to Hamburg",
		PickupAddress:   "Warehouse 7, Dock 3",
		PickupCity:      "Rotterdam",
		PickupCountry:   "Netherlands",
		PickupDate:      "2025-03-10",
		DeliveryAddress: "Speicherstadt 12",
		DeliveryCity:    "Hamburg",
		DeliveryCountry: "Germany",
		DeliveryDate:    "2025-03-12",
		CargoType:       "General",
	}
}

// mustCreateCargo posts a cargo through the service and fails the test on error.
func mustCreateCargo(t *testing.T, db *gorm.DB, ownerID string) *domain.Cargo {
	t.Helper()
	c, err := NewCargoService(db).Create(context.Background(), ownerID, validCargoInput())
	if err != nil {
		t.Fatalf("create cargo: %v", err)
	}
	return c
}

// mustCreateQuote bids on a cargo through the service and fails the test on error.
func mustCreateQuote(t *testing.T, db *gorm.DB, cargoID, carrierID string, price float64) *domain.Quote {
	t.Helper()
	q, err := NewQuoteService(db).Create(context.Background(), cargoID, carrierID, QuoteInput{
		TotalPrice:  price,
		VehicleType: "box truck",
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return q
}
