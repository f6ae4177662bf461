package repo

import (
	"context"
	"testing"
	"time"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

func TestOwnCargoStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrator().DropTable(&domain.Cargo{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	_, _, err := OwnCargoStats(context.Background(), db, "owner1")
	if err == nil {
		t.Fatalf("expected error due to missing cargos table")
	}
}

func TestOwnCargoStats_ZeroRows(t *testing.T) {
	db := newTestDB(t)
	count, maxAt, err := OwnCargoStats(context.Background(), db, "owner1")
	if err != nil {
		t.Fatalf("OwnCargoStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestOwnCargoStats_FilterAndMax(t *testing.T) {
	db := newTestDB(t)

	c1 := seedCargo(t, db, "owner1", domain.CargoActive)
	c2 := seedCargo(t, db, "owner1", domain.CargoAssigned)
	c3 := seedCargo(t, db, "owner2", domain.CargoActive)

	// Pin UpdatedAt so the max is deterministic; c2 is the newest for owner1,
	// c3 is newer still but belongs to someone else.
	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for id, ts := range map[string]time.Time{c1.ID: t1, c2.ID: t2, c3.ID: t3} {
		if err := db.Model(&domain.Cargo{}).Where("id = ?", id).
			UpdateColumn("updated_at", ts).Error; err != nil {
			t.Fatalf("pin updated_at: %v", err)
		}
	}

	count, maxAt, err := OwnCargoStats(context.Background(), db, "owner1")
	if err != nil {
		t.Fatalf("OwnCargoStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected maxUpdatedAt %v, got %v", t2, maxAt)
	}
}

// Force the follow-up select to fail by renaming the column.
func TestOwnCargoStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t)
	seedCargo(t, db, "ownerErr", domain.CargoActive)

	if err := db.Exec(`ALTER TABLE cargos RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}

	_, _, err := OwnCargoStats(context.Background(), db, "ownerErr")
	if err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}

func TestThreadStats_ZeroRows(t *testing.T) {
	db := newTestDB(t)
	count, maxAt, err := ThreadStats(context.Background(), db, "user1")
	if err != nil {
		t.Fatalf("ThreadStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestThreadStats_BothSidesAndMaxActivity(t *testing.T) {
	db := newTestDB(t)

	cargoA := seedCargo(t, db, "shipper1", domain.CargoActive)
	cargoB := seedCargo(t, db, "shipper2", domain.CargoActive)
	cargoC := seedCargo(t, db, "shipper3", domain.CargoActive)

	// user1 is shipper on thread A, counterpart on thread B, absent from C.
	thA := seedThread(t, db, cargoA.ID, "shipper1", "user1")
	thB := seedThread(t, db, cargoB.ID, "shipper2", "user1")
	seedThread(t, db, cargoC.ID, "shipper3", "carrier9")

	tA := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	tB := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC) // max for user1
	for id, ts := range map[string]time.Time{thA.ID: tA, thB.ID: tB} {
		if err := db.Model(&domain.ChatThread{}).Where("id = ?", id).
			UpdateColumn("last_message_at", ts).Error; err != nil {
			t.Fatalf("pin last_message_at: %v", err)
		}
	}

	count, maxAt, err := ThreadStats(context.Background(), db, "user1")
	if err != nil {
		t.Fatalf("ThreadStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(tB) {
		t.Fatalf("expected maxActivity %v, got %v", tB, maxAt)
	}

	// ThreadStats counts shipper1's single thread separately.
	count, _, err = ThreadStats(context.Background(), db, "shipper1")
	if err != nil {
		t.Fatalf("ThreadStats error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1 for shipper1, got %d", count)
	}
}

func TestThreadStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrator().DropTable(&domain.ChatThread{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	_, _, err := ThreadStats(context.Background(), db, "user1")
	if err == nil {
		t.Fatalf("expected error due to missing chat_threads table")
	}
}
