// Package services – QuoteService
//
// This file implements QuoteService, which owns the bidding side of the
// marketplace. It guards quote creation (no bids on your own cargo, no bids on
// inactive cargo, one bid per carrier per cargo), restricts quote listings to
// the cargo owner, and assembles the carrier's own-quotes view with cargo and
// deal summaries.
//
// Stale Pending quotes are expired lazily on the owner-listing path; there is
// no background sweep.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cargolink/go-freight-backend/internal/domain"
	"github.com/cargolink/go-freight-backend/internal/repo"
)

// QuoteInput carries the client-supplied fields for a new bid.
type QuoteInput struct {
	TotalPrice        float64  `json:"total_price"`
	PricePerKm        *float64 `json:"price_per_km,omitempty"`
	EstimatedDistance *float64 `json:"estimated_distance,omitempty"`
	VehicleType       string   `json:"vehicle_type"`

	EstimatedPickupTime   *time.Time `json:"estimated_pickup_time,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
	ValidUntil            *time.Time `json:"valid_until,omitempty"`
}

// CarrierQuote is a quote joined with its cargo summary and, when the quote
// was accepted, the resulting deal's status and progress.
type CarrierQuote struct {
	Quote        domain.Quote       `json:"quote"`
	CargoTitle   string             `json:"cargo_title"`
	CargoStatus  domain.CargoStatus `json:"cargo_status"`
	PickupCity   string             `json:"pickup_city"`
	DeliveryCity string             `json:"delivery_city"`
	DealStatus   *domain.DealStatus `json:"deal_status,omitempty"`
	DealProgress *float64           `json:"deal_progress,omitempty"`
}

// QuoteService provides quote creation and the owner/carrier listings.
type QuoteService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewQuoteService constructs a QuoteService.
func NewQuoteService(db *gorm.DB) *QuoteService {
	return &QuoteService{DB: db}
}

// Create submits a Pending quote from carrierID against cargoID.
//
// Failure modes, in check order: ErrCargoNotFound, ErrOwnCargoQuote,
// ErrCargoNotActive, ErrDuplicateQuote, ValidationError. The unique index on
// (cargo_id, carrier_id) backstops the duplicate check under concurrency.
func (s *QuoteService) Create(ctx context.Context, cargoID, carrierID string, in QuoteInput) (*domain.Quote, error) {
	tr := otel.Tracer("services/QuoteService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("cargo.id", cargoID),
			attribute.String("user.id", carrierID),
		),
	)
	defer span.End()

	cargo, err := repo.GetCargo(ctx, s.DB, cargoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCargoNotFound
		}
		return nil, err
	}
	if cargo.OwnerID == carrierID {
		return nil, ErrOwnCargoQuote
	}
	if cargo.Status != domain.CargoActive {
		return nil, ErrCargoNotActive
	}

	exists, err := repo.QuoteExists(ctx, s.DB, cargoID, carrierID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateQuote
	}

	if verr := validateQuote(in); !verr.ok() {
		return nil, verr
	}

	if _, err := repo.EnsureUser(ctx, s.DB, carrierID); err != nil {
		return nil, err
	}

	q := &domain.Quote{
		CargoID:               cargoID,
		CarrierID:             carrierID,
		TotalPrice:            in.TotalPrice,
		PricePerKm:            in.PricePerKm,
		EstimatedDistance:     in.EstimatedDistance,
		VehicleType:           strings.TrimSpace(in.VehicleType),
		EstimatedPickupTime:   in.EstimatedPickupTime,
		EstimatedDeliveryTime: in.EstimatedDeliveryTime,
		Notes:                 in.Notes,
		ValidUntil:            in.ValidUntil,
	}
	created, err := repo.CreateQuote(ctx, s.DB, q)
	if err != nil {
		// Two carriers cannot collide on the unique index, but a doubled
		// request from the same carrier can.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateQuote
		}
		return nil, err
	}
	return created, nil
}

// ListForCargo returns all quotes on a cargo, newest first. Only the cargo
// owner may call it; stale Pending quotes are expired before the read.
func (s *QuoteService) ListForCargo(ctx context.Context, cargoID, requestorID string) ([]domain.Quote, error) {
	tr := otel.Tracer("services/QuoteService")
	ctx, span := tr.Start(ctx, "ListForCargo",
		trace.WithAttributes(attribute.String("cargo.id", cargoID)),
	)
	defer span.End()

	cargo, err := repo.GetCargo(ctx, s.DB, cargoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCargoNotFound
		}
		return nil, err
	}
	if cargo.OwnerID != requestorID {
		return nil, ErrNotCargoOwner
	}

	if _, err := repo.ExpireStaleQuotes(ctx, s.DB, cargoID, time.Now().UTC()); err != nil {
		return nil, err
	}

	return repo.ListQuotesForCargo(ctx, s.DB, cargoID)
}

// ListForCarrier returns a page of the carrier's own quotes with cargo and
// deal summaries, newest first, plus the total count.
func (s *QuoteService) ListForCarrier(ctx context.Context, carrierID string, page, pageSize int) ([]CarrierQuote, int64, error) {
	tr := otel.Tracer("services/QuoteService")
	ctx, span := tr.Start(ctx, "ListForCarrier",
		trace.WithAttributes(
			attribute.String("user.id", carrierID),
			attribute.Int("page", page),
		),
	)
	defer span.End()

	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	total, err := repo.CountQuotesForCarrier(ctx, s.DB, carrierID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []CarrierQuote{}, 0, nil
	}

	quotes, err := repo.ListQuotesForCarrierPage(ctx, s.DB, carrierID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}

	out := make([]CarrierQuote, 0, len(quotes))
	for _, q := range quotes {
		cq := CarrierQuote{Quote: q}

		cargo, err := repo.GetCargo(ctx, s.DB, q.CargoID)
		if err == nil {
			cq.CargoTitle = cargo.Title
			cq.CargoStatus = cargo.Status
			cq.PickupCity = cargo.PickupCity
			cq.DeliveryCity = cargo.DeliveryCity
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, err
		}

		if q.Status == domain.QuoteAccepted {
			deal, err := repo.GetDealByQuote(ctx, s.DB, q.ID)
			switch {
			case err == nil:
				cq.DealStatus = &deal.Status
				cq.DealProgress = &deal.Progress
			case errors.Is(err, gorm.ErrRecordNotFound):
				// accepted quote without a deal should not happen; skip
			default:
				return nil, 0, err
			}
		}
		out = append(out, cq)
	}
	return out, total, nil
}

// validateQuote collects field-level failures for a new bid.
func validateQuote(in QuoteInput) *ValidationError {
	verr := &ValidationError{}
	if in.TotalPrice <= 0 {
		verr.add("total_price", "price must be positive")
	}
	if strings.TrimSpace(in.VehicleType) == "" {
		verr.add("vehicle_type", "vehicle type is required")
	}
	if in.PricePerKm != nil && *in.PricePerKm <= 0 {
		verr.add("price_per_km", "price per km must be positive")
	}
	if in.EstimatedDistance != nil && *in.EstimatedDistance <= 0 {
		verr.add("estimated_distance", "estimated distance must be positive")
	}
	if in.ValidUntil != nil && in.ValidUntil.Before(time.Now()) {
		verr.add("valid_until", "expiry must be in the future")
	}
	return verr
}
