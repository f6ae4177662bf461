// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Cargo model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

// CargoFilter narrows marketplace and my-cargo listings. Zero values mean
// "no constraint".
type CargoFilter struct {
	Status     domain.CargoStatus // exact status match
	Type       domain.CargoType   // exact cargo type match
	Country    string             // pickup OR delivery country, case-insensitive contains
	UrgentOnly bool               // only urgent postings
	PriceMin   *float64           // budget_min >= PriceMin
	PriceMax   *float64           // budget_max <= PriceMax
	Search     string             // free text over title/description/cities
}

// CreateCargo inserts a new Cargo row owned by ownerID. The caller provides
// a fully populated record; ID and CreatedAt are set here.
func CreateCargo(ctx context.Context, db *gorm.DB, c *domain.Cargo) (*domain.Cargo, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = domain.CargoActive
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetCargo fetches a single cargo by ID, or ErrNotFound if missing.
func GetCargo(ctx context.Context, db *gorm.DB, id string) (*domain.Cargo, error) {
	var c domain.Cargo
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountActiveCargo returns the number of Active postings owned by ownerID.
// Used to enforce the trial-tier posting quota.
func CountActiveCargo(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Cargo{}).
		Where("owner_id = ? AND status = ?", ownerID, domain.CargoActive).
		Count(&total).Error
	return total, err
}

// applyCargoFilter composes the WHERE clauses shared by count and page queries.
func applyCargoFilter(q *gorm.DB, f CargoFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("cargo_type = ?", f.Type)
	}
	if f.UrgentOnly {
		q = q.Where("is_urgent = ?", true)
	}
	if f.Country != "" {
		pat := "%" + strings.ToLower(f.Country) + "%"
		q = q.Where("LOWER(pickup_country) LIKE ? OR LOWER(delivery_country) LIKE ?", pat, pat)
	}
	if f.PriceMin != nil {
		q = q.Where("budget_min >= ?", *f.PriceMin)
	}
	if f.PriceMax != nil {
		q = q.Where("budget_max <= ?", *f.PriceMax)
	}
	if f.Search != "" {
		pat := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(pickup_city) LIKE ? OR LOWER(delivery_city) LIKE ?",
			pat, pat, pat, pat,
		)
	}
	return q
}

// CountMarketplaceCargo returns the total of public Active postings matching
// the filter, excluding the requestor's own.
func CountMarketplaceCargo(ctx context.Context, db *gorm.DB, requestorID string, f CargoFilter) (int64, error) {
	var total int64
	q := db.WithContext(ctx).
		Model(&domain.Cargo{}).
		Where("status = ? AND is_public = ? AND owner_id <> ?", domain.CargoActive, true, requestorID)
	err := applyCargoFilter(q, f).Count(&total).Error
	return total, err
}

// ListMarketplaceCargoPage returns a page of public Active postings matching
// the filter, excluding the requestor's own, newest first.
func ListMarketplaceCargoPage(ctx context.Context, db *gorm.DB, requestorID string, f CargoFilter, offset, limit int) ([]domain.Cargo, error) {
	var out []domain.Cargo
	q := db.WithContext(ctx).
		Where("status = ? AND is_public = ? AND owner_id <> ?", domain.CargoActive, true, requestorID)
	err := applyCargoFilter(q, f).
		Order("is_urgent DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountOwnCargo returns the total of postings owned by ownerID matching the
// filter, regardless of visibility.
func CountOwnCargo(ctx context.Context, db *gorm.DB, ownerID string, f CargoFilter) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Cargo{}).Where("owner_id = ?", ownerID)
	err := applyCargoFilter(q, f).Count(&total).Error
	return total, err
}

// ListOwnCargoPage returns a page of the owner's postings, newest first.
func ListOwnCargoPage(ctx context.Context, db *gorm.DB, ownerID string, f CargoFilter, offset, limit int) ([]domain.Cargo, error) {
	var out []domain.Cargo
	q := db.WithContext(ctx).Where("owner_id = ?", ownerID)
	err := applyCargoFilter(q, f).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// AssignCargo flips a cargo from Active to Assigned. The status guard in the
// WHERE clause is the concurrency barrier for the acceptance transaction: if
// another accept won first, zero rows are affected and ErrNotFound is
// returned so the caller can roll back.
func AssignCargo(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Cargo{}).
		Where("id = ? AND status = ?", id, domain.CargoActive).
		Update("status", domain.CargoAssigned)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateCargoStatus moves a cargo to next with the same guarded-update shape
// as AssignCargo: zero affected rows means the expected current status did
// not hold and the caller must treat the move as a conflict.
func UpdateCargoStatus(ctx context.Context, db *gorm.DB, id string, current, next domain.CargoStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Cargo{}).
		Where("id = ? AND status = ?", id, current).
		Update("status", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
