// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Quote model.
//
// Error semantics:
//   - When a quote is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Status flips are guarded updates: the WHERE clause re-checks the
//     expected current status, and zero affected rows is reported as
//     ErrNotFound so services can surface a state conflict.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

// CreateQuote inserts a new Pending quote. A duplicate (cargo, carrier) pair
// surfaces as gorm.ErrDuplicatedKey via the unique index.
func CreateQuote(ctx context.Context, db *gorm.DB, q *domain.Quote) (*domain.Quote, error) {
	q.ID = uuid.NewString()
	q.Status = domain.QuotePending
	q.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuote fetches a quote by ID, or ErrNotFound if missing.
func GetQuote(ctx context.Context, db *gorm.DB, id string) (*domain.Quote, error) {
	var q domain.Quote
	if err := db.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// QuoteExists reports whether carrierID already has a quote on cargoID, in
// any status. Used for the idempotent duplicate rejection ahead of the
// unique-index backstop.
func QuoteExists(ctx context.Context, db *gorm.DB, cargoID, carrierID string) (bool, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("cargo_id = ? AND carrier_id = ?", cargoID, carrierID).
		Count(&total).Error
	return total > 0, err
}

// ListQuotesForCargo returns all quotes for a cargo, newest first.
func ListQuotesForCargo(ctx context.Context, db *gorm.DB, cargoID string) ([]domain.Quote, error) {
	var out []domain.Quote
	err := db.WithContext(ctx).
		Where("cargo_id = ?", cargoID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// CountQuotesForCarrier returns the carrier's total quote count.
func CountQuotesForCarrier(ctx context.Context, db *gorm.DB, carrierID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("carrier_id = ?", carrierID).
		Count(&total).Error
	return total, err
}

// ListQuotesForCarrierPage returns a page of the carrier's quotes, newest
// first.
func ListQuotesForCarrierPage(ctx context.Context, db *gorm.DB, carrierID string, offset, limit int) ([]domain.Quote, error) {
	var out []domain.Quote
	err := db.WithContext(ctx).
		Where("carrier_id = ?", carrierID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// AcceptQuote flips a quote from Pending to Accepted. Zero affected rows
// means the quote was already resolved (or vanished) and is reported as
// ErrNotFound; the acceptance transaction rolls back on that signal.
func AcceptQuote(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("id = ? AND status = ?", id, domain.QuotePending).
		Update("status", domain.QuoteAccepted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RejectSiblingQuotes marks every other Pending quote on the same cargo as
// Rejected. Called inside the acceptance transaction after the winner is
// flipped.
func RejectSiblingQuotes(ctx context.Context, db *gorm.DB, cargoID, acceptedID string) error {
	return db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("cargo_id = ? AND id <> ? AND status = ?", cargoID, acceptedID, domain.QuotePending).
		Update("status", domain.QuoteRejected).Error
}

// ExpireStaleQuotes lazily transitions Pending quotes whose valid_until has
// passed to Expired. Returns the number of rows flipped. There is no
// background sweep; callers invoke this on the read paths that care.
func ExpireStaleQuotes(ctx context.Context, db *gorm.DB, cargoID string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("cargo_id = ? AND status = ? AND valid_until IS NOT NULL AND valid_until < ?",
			cargoID, domain.QuotePending, now).
		Update("status", domain.QuoteExpired)
	return res.RowsAffected, res.Error
}
