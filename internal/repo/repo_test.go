package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

// newTestDB opens a throwaway SQLite database with all tables migrated.
// TranslateError is on so unique-index violations surface as
// gorm.ErrDuplicatedKey, matching the production configuration.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedCargo inserts a minimal valid cargo posting.
func seedCargo(t *testing.T, db *gorm.DB, ownerID string, status domain.CargoStatus) *domain.Cargo {
	t.Helper()

	c := &domain.Cargo{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Title:           "Pallets to Hamburg",
		PickupAddress:   "Warehouse 7, Dock 3",
		PickupCity:      "Rotterdam",
		PickupCountry:   "Netherlands",
		PickupDate:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DeliveryAddress: "Speicherstadt 12",
		DeliveryCity:    "Hamburg",
		DeliveryCountry: "Germany",
		DeliveryDate:    time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		CargoType:       domain.CargoGeneral,
		Status:          status,
		IsPublic:        true,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed cargo: %v", err)
	}
	return c
}

// seedQuote inserts a quote via the repository function.
func seedQuote(t *testing.T, db *gorm.DB, cargoID, carrierID string, price float64) *domain.Quote {
	t.Helper()

	q, err := CreateQuote(context.Background(), db, &domain.Quote{
		CargoID:     cargoID,
		CarrierID:   carrierID,
		TotalPrice:  price,
		VehicleType: "box truck",
	})
	if err != nil {
		t.Fatalf("seed quote: %v", err)
	}
	return q
}
