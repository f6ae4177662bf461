// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Deal model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

// DealFilter narrows deal listings. Zero values mean "no constraint".
type DealFilter struct {
	Status domain.DealStatus // exact status match
	// Role limits the listing to one side of the engagement:
	// "shipper", "transporter", or "" for both.
	Role string
}

// CreateDeal inserts a new Active deal seeded with a Created timeline entry.
func CreateDeal(ctx context.Context, db *gorm.DB, cargoID, quoteID, shipperID, transporterID string, totalAmount float64) (*domain.Deal, error) {
	now := time.Now().UTC()
	d := &domain.Deal{
		ID:            uuid.NewString(),
		CargoID:       cargoID,
		QuoteID:       quoteID,
		ShipperID:     shipperID,
		TransporterID: transporterID,
		TotalAmount:   totalAmount,
		Status:        domain.DealActive,
		Progress:      0,
		Timeline: []domain.TimelineEntry{
			{Status: "Created", Timestamp: now, Description: "Deal created from accepted quote"},
		},
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDeal fetches a deal by ID, or ErrNotFound if missing.
func GetDeal(ctx context.Context, db *gorm.DB, id string) (*domain.Deal, error) {
	var d domain.Deal
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDealByQuote fetches the deal formed from a quote, or ErrNotFound.
func GetDealByQuote(ctx context.Context, db *gorm.DB, quoteID string) (*domain.Deal, error) {
	var d domain.Deal
	if err := db.WithContext(ctx).Where("quote_id = ?", quoteID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// OpenDealExists reports whether the cargo already has a deal in a state
// that blocks a second acceptance (Active, InTransit, Delivered).
func OpenDealExists(ctx context.Context, db *gorm.DB, cargoID string) (bool, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("cargo_id = ? AND status IN ?", cargoID, domain.BlockingDealStatuses()).
		Count(&total).Error
	return total > 0, err
}

// applyDealFilter composes the WHERE clauses shared by count and page queries.
func applyDealFilter(q *gorm.DB, userID string, f DealFilter) *gorm.DB {
	switch f.Role {
	case "shipper":
		q = q.Where("shipper_id = ?", userID)
	case "transporter":
		q = q.Where("transporter_id = ?", userID)
	default:
		q = q.Where("shipper_id = ? OR transporter_id = ?", userID, userID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CountDealsForUser returns the total deals visible to userID under the filter.
func CountDealsForUser(ctx context.Context, db *gorm.DB, userID string, f DealFilter) (int64, error) {
	var total int64
	err := applyDealFilter(db.WithContext(ctx).Model(&domain.Deal{}), userID, f).
		Count(&total).Error
	return total, err
}

// ListDealsForUserPage returns a page of deals where userID is shipper or
// transporter, newest first.
func ListDealsForUserPage(ctx context.Context, db *gorm.DB, userID string, f DealFilter, offset, limit int) ([]domain.Deal, error) {
	var out []domain.Deal
	err := applyDealFilter(db.WithContext(ctx), userID, f).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DealStatusCounts returns the per-status totals for a user's deals.
func DealStatusCounts(ctx context.Context, db *gorm.DB, userID string) (map[domain.DealStatus]int64, error) {
	var rows []struct {
		Status domain.DealStatus
		Total  int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Select("status, COUNT(*) AS total").
		Where("shipper_id = ? OR transporter_id = ?", userID, userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.DealStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// AdvanceDeal moves a deal from current to next, appending a timeline entry
// and updating progress and the actual pickup/delivery dates where the step
// implies them. The status guard makes the move a compare-and-swap: zero
// affected rows is reported as ErrNotFound.
func AdvanceDeal(ctx context.Context, db *gorm.DB, d *domain.Deal, next domain.DealStatus, description string) error {
	now := time.Now().UTC()
	timeline := append(d.Timeline, domain.TimelineEntry{
		Status:      string(next),
		Timestamp:   now,
		Description: description,
	})

	updates := map[string]any{
		"status":   next,
		"progress": next.ProgressFor(),
		"timeline": timeline,
	}
	switch next {
	case domain.DealInTransit:
		updates["actual_pickup_date"] = now
	case domain.DealDelivered:
		updates["actual_delivery_date"] = now
	}

	res := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("id = ? AND status = ?", d.ID, d.Status).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	d.Status = next
	d.Progress = next.ProgressFor()
	d.Timeline = timeline
	return nil
}
