package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

func seedDeal(t *testing.T, db *gorm.DB) *domain.Deal {
	t.Helper()
	cargo := seedCargo(t, db, "shipper1", domain.CargoAssigned)
	q := seedQuote(t, db, cargo.ID, "carrier1", 450)
	d, err := CreateDeal(context.Background(), db, cargo.ID, q.ID, "shipper1", "carrier1", 450)
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	return d
}

func TestCreateDeal_SeedsTimeline(t *testing.T) {
	db := newTestDB(t)
	d := seedDeal(t, db)

	if d.Status != domain.DealActive || d.Progress != 0 {
		t.Fatalf("unexpected deal: %+v", d)
	}
	if len(d.Timeline) != 1 || d.Timeline[0].Status != "Created" {
		t.Fatalf("timeline not seeded: %+v", d.Timeline)
	}

	// Timeline survives the JSON serializer round-trip.
	got, err := GetDeal(context.Background(), db, d.ID)
	if err != nil {
		t.Fatalf("GetDeal: %v", err)
	}
	if len(got.Timeline) != 1 || got.Timeline[0].Status != "Created" {
		t.Fatalf("timeline round-trip: %+v", got.Timeline)
	}
}

func TestAdvanceDeal_ProgressTimelineAndDates(t *testing.T) {
	db := newTestDB(t)
	d := seedDeal(t, db)

	if err := AdvanceDeal(context.Background(), db, d, domain.DealInTransit, "loaded"); err != nil {
		t.Fatalf("advance to InTransit: %v", err)
	}
	if d.Status != domain.DealInTransit || d.Progress != 0.25 {
		t.Fatalf("in-memory deal not updated: %+v", d)
	}

	got, _ := GetDeal(context.Background(), db, d.ID)
	if got.Status != domain.DealInTransit || got.Progress != 0.25 {
		t.Fatalf("persisted deal: status=%s progress=%v", got.Status, got.Progress)
	}
	if got.ActualPickupDate == nil {
		t.Fatal("actual pickup date must be stamped on InTransit")
	}
	if len(got.Timeline) != 2 || got.Timeline[1].Status != "InTransit" || got.Timeline[1].Description != "loaded" {
		t.Fatalf("timeline: %+v", got.Timeline)
	}

	if err := AdvanceDeal(context.Background(), db, d, domain.DealDelivered, ""); err != nil {
		t.Fatalf("advance to Delivered: %v", err)
	}
	got, _ = GetDeal(context.Background(), db, d.ID)
	if got.ActualDeliveryDate == nil || got.Progress != 0.75 {
		t.Fatalf("delivered state: %+v", got)
	}
}

func TestAdvanceDeal_StaleStatusGuard(t *testing.T) {
	db := newTestDB(t)
	d := seedDeal(t, db)

	// Another writer moved the deal on.
	stale := *d
	if err := AdvanceDeal(context.Background(), db, d, domain.DealInTransit, ""); err != nil {
		t.Fatalf("advance: %v", err)
	}

	err := AdvanceDeal(context.Background(), db, &stale, domain.DealCancelled, "")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("stale advance must fail with ErrRecordNotFound, got %v", err)
	}
}

func TestOpenDealExists(t *testing.T) {
	db := newTestDB(t)
	d := seedDeal(t, db)
	ctx := context.Background()

	open, err := OpenDealExists(ctx, db, d.CargoID)
	if err != nil || !open {
		t.Fatalf("active deal must block: open=%v err=%v", open, err)
	}

	if err := AdvanceDeal(ctx, db, d, domain.DealCancelled, "fell through"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	open, err = OpenDealExists(ctx, db, d.CargoID)
	if err != nil || open {
		t.Fatalf("cancelled deal must not block: open=%v err=%v", open, err)
	}
}

func TestDealFilterAndStatusCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// shipper1 ships one deal and transports another.
	d1 := seedDeal(t, db) // shipper1 / carrier1
	c2 := seedCargo(t, db, "shipper2", domain.CargoAssigned)
	q2 := seedQuote(t, db, c2.ID, "shipper1", 900)
	if _, err := CreateDeal(ctx, db, c2.ID, q2.ID, "shipper2", "shipper1", 900); err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if err := AdvanceDeal(ctx, db, d1, domain.DealInTransit, ""); err != nil {
		t.Fatalf("advance: %v", err)
	}

	total, err := CountDealsForUser(ctx, db, "shipper1", DealFilter{})
	if err != nil || total != 2 {
		t.Fatalf("both sides: total=%d err=%v", total, err)
	}
	total, _ = CountDealsForUser(ctx, db, "shipper1", DealFilter{Role: "shipper"})
	if total != 1 {
		t.Fatalf("shipper side: total=%d, want 1", total)
	}
	total, _ = CountDealsForUser(ctx, db, "shipper1", DealFilter{Status: domain.DealInTransit})
	if total != 1 {
		t.Fatalf("status filter: total=%d, want 1", total)
	}

	counts, err := DealStatusCounts(ctx, db, "shipper1")
	if err != nil {
		t.Fatalf("DealStatusCounts: %v", err)
	}
	if counts[domain.DealActive] != 1 || counts[domain.DealInTransit] != 1 {
		t.Fatalf("counts: %+v", counts)
	}
}
