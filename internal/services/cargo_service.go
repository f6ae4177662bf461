// Package services – CargoService
//
// This file implements the CargoService, which owns the lifecycle of cargo
// postings. It validates geography/date/budget input, enforces the trial-tier
// active-posting quota, and coordinates repository operations for creating and
// listing postings (marketplace and owner views, both paginated).
//
// Service-level errors (e.g., ErrQuotaExceeded) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
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

// CargoInput carries the client-supplied fields for a new posting.
type CargoInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`

	PickupAddress   string  `json:"pickup_address"`
	PickupCity      string  `json:"pickup_city"`
	PickupCountry   string  `json:"pickup_country"`
	PickupDate      string  `json:"pickup_date"` // RFC 3339 date or timestamp
	PickupTimeStart *string `json:"pickup_time_start,omitempty"`
	PickupTimeEnd   *string `json:"pickup_time_end,omitempty"`

	DeliveryAddress   string  `json:"delivery_address"`
	DeliveryCity      string  `json:"delivery_city"`
	DeliveryCountry   string  `json:"delivery_country"`
	DeliveryDate      string  `json:"delivery_date"`
	DeliveryTimeStart *string `json:"delivery_time_start,omitempty"`
	DeliveryTimeEnd   *string `json:"delivery_time_end,omitempty"`

	Weight              *float64 `json:"weight,omitempty"`
	Volume              *float64 `json:"volume,omitempty"`
	CargoType           string   `json:"cargo_type"`
	Packaging           *string  `json:"packaging,omitempty"`
	SpecialRequirements *string  `json:"special_requirements,omitempty"`

	EstimatedValue *float64 `json:"estimated_value,omitempty"`
	BudgetMin      *float64 `json:"budget_min,omitempty"`
	BudgetMax      *float64 `json:"budget_max,omitempty"`

	IsUrgent bool  `json:"is_urgent"`
	IsPublic *bool `json:"is_public,omitempty"` // defaults to true
}

// CargoService provides posting creation and listing. It enforces input
// validation and the per-tier posting quota.
type CargoService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// TrialActiveLimit caps Active postings for trial-tier accounts.
	TrialActiveLimit int
}

// NewCargoService constructs a CargoService with the default trial quota.
func NewCargoService(db *gorm.DB) *CargoService {
	return &CargoService{DB: db, TrialActiveLimit: 5}
}

// Create validates input, enforces the trial quota, and persists an Active
// posting. The owner's user row is provisioned on first use, and FirstLogin
// is cleared once they have posted.
func (s *CargoService) Create(ctx context.Context, ownerID string, in CargoInput) (*domain.Cargo, error) {
	tr := otel.Tracer("services/CargoService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", ownerID)),
	)
	defer span.End()

	cargo, verr := buildCargo(ownerID, in)
	if !verr.ok() {
		return nil, verr
	}

	user, err := repo.EnsureUser(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}

	if user.Role == domain.RoleTrial {
		limit := s.TrialActiveLimit
		if limit <= 0 {
			limit = 5
		}
		active, err := repo.CountActiveCargo(ctx, s.DB, ownerID)
		if err != nil {
			return nil, err
		}
		if active >= int64(limit) {
			return nil, ErrQuotaExceeded
		}
	}

	created, err := repo.CreateCargo(ctx, s.DB, cargo)
	if err != nil {
		return nil, err
	}

	if user.FirstLogin {
		// Best effort; the posting itself already succeeded.
		_ = repo.ClearFirstLogin(ctx, s.DB, ownerID)
	}
	return created, nil
}

// ListMarketplace returns other users' public Active postings matching the
// filter, paginated, plus the total count.
func (s *CargoService) ListMarketplace(ctx context.Context, requestorID string, f repo.CargoFilter, page, pageSize int) ([]domain.Cargo, int64, error) {
	tr := otel.Tracer("services/CargoService")
	ctx, span := tr.Start(ctx, "ListMarketplace",
		trace.WithAttributes(
			attribute.String("user.id", requestorID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	total, err := repo.CountMarketplaceCargo(ctx, s.DB, requestorID, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Cargo{}, 0, nil
	}

	items, err := repo.ListMarketplaceCargoPage(ctx, s.DB, requestorID, f, offset, pageSize)
	return items, total, err
}

// ListOwn returns the requestor's own postings regardless of visibility,
// paginated, plus the total count.
func (s *CargoService) ListOwn(ctx context.Context, ownerID string, f repo.CargoFilter, page, pageSize int) ([]domain.Cargo, int64, error) {
	tr := otel.Tracer("services/CargoService")
	ctx, span := tr.Start(ctx, "ListOwn",
		trace.WithAttributes(attribute.String("user.id", ownerID)),
	)
	defer span.End()

	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	total, err := repo.CountOwnCargo(ctx, s.DB, ownerID, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Cargo{}, 0, nil
	}

	items, err := repo.ListOwnCargoPage(ctx, s.DB, ownerID, f, offset, pageSize)
	return items, total, err
}

// Get fetches a single posting.
func (s *CargoService) Get(ctx context.Context, id string) (*domain.Cargo, error) {
	c, err := repo.GetCargo(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCargoNotFound
		}
		return nil, err
	}
	return c, nil
}

// clampPage applies the shared pagination defaults.
func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize
}

// buildCargo validates input and assembles the persistence record. All field
// failures are collected into one ValidationError rather than failing on the
// first.
func buildCargo(ownerID string, in CargoInput) (*domain.Cargo, *ValidationError) {
	verr := &ValidationError{}

	title := strings.TrimSpace(in.Title)
	if len(title) < 3 {
		verr.add("title", "title must be at least 3 characters")
	}
	if len(title) > 200 {
		verr.add("title", "title too long")
	}

	requireStr := func(field, v string, minLen int, msg string) string {
		v = strings.TrimSpace(v)
		if len(v) < minLen {
			verr.add(field, msg)
		}
		return v
	}
	pickupAddr := requireStr("pickup_address", in.PickupAddress, 5, "pickup address is required")
	pickupCity := requireStr("pickup_city", in.PickupCity, 2, "pickup city is required")
	pickupCountry := requireStr("pickup_country", in.PickupCountry, 2, "pickup country is required")
	deliveryAddr := requireStr("delivery_address", in.DeliveryAddress, 5, "delivery address is required")
	deliveryCity := requireStr("delivery_city", in.DeliveryCity, 2, "delivery city is required")
	deliveryCountry := requireStr("delivery_country", in.DeliveryCountry, 2, "delivery country is required")

	pickupDate, perr := parseDate(in.PickupDate)
	if perr != nil {
		verr.add("pickup_date", "pickup date is required (RFC 3339)")
	}
	deliveryDate, derr := parseDate(in.DeliveryDate)
	if derr != nil {
		verr.add("delivery_date", "delivery date is required (RFC 3339)")
	}
	if perr == nil && derr == nil && deliveryDate.Before(pickupDate) {
		verr.add("delivery_date", "delivery date must be on or after pickup date")
	}

	ct := domain.CargoType(strings.TrimSpace(in.CargoType))
	if !ct.Valid() {
		verr.add("cargo_type", "invalid cargo type")
	}

	requirePositive := func(field string, v *float64, msg string) {
		if v != nil && *v <= 0 {
			verr.add(field, msg)
		}
	}
	requirePositive("weight", in.Weight, "weight must be positive")
	requirePositive("volume", in.Volume, "volume must be positive")
	requirePositive("estimated_value", in.EstimatedValue, "estimated value must be positive")
	requirePositive("budget_min", in.BudgetMin, "minimum budget must be positive")
	requirePositive("budget_max", in.BudgetMax, "maximum budget must be positive")
	if in.BudgetMin != nil && in.BudgetMax != nil && *in.BudgetMin > *in.BudgetMax {
		verr.add("budget_max", "maximum budget must be greater than minimum budget")
	}

	if !verr.ok() {
		return nil, verr
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	return &domain.Cargo{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),

		PickupAddress:   pickupAddr,
		PickupCity:      pickupCity,
		PickupCountry:   pickupCountry,
		PickupDate:      pickupDate,
		PickupTimeStart: in.PickupTimeStart,
		PickupTimeEnd:   in.PickupTimeEnd,

		DeliveryAddress:   deliveryAddr,
		DeliveryCity:      deliveryCity,
		DeliveryCountry:   deliveryCountry,
		DeliveryDate:      deliveryDate,
		DeliveryTimeStart: in.DeliveryTimeStart,
		DeliveryTimeEnd:   in.DeliveryTimeEnd,

		Weight:              in.Weight,
		Volume:              in.Volume,
		CargoType:           ct,
		Packaging:           in.Packaging,
		SpecialRequirements: in.SpecialRequirements,

		EstimatedValue: in.EstimatedValue,
		BudgetMin:      in.BudgetMin,
		BudgetMax:      in.BudgetMax,

		Status:   domain.CargoActive,
		IsUrgent: in.IsUrgent,
		IsPublic: isPublic,
	}, verr
}

// parseDate accepts either a bare date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
