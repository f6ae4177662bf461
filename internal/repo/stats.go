// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

// OwnCargoStats returns aggregate metadata for a shipper's postings: the
// total number of rows and the maximum UpdatedAt timestamp among them.
// When the owner has no cargo, count is 0 and maxUpdatedAt is nil.
func OwnCargoStats(ctx context.Context, db *gorm.DB, ownerID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Cargo{}).Where("owner_id = ?", ownerID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ThreadStats returns aggregate metadata for a user's chat threads: the total
// number of threads and the greatest last_message_at among them. Used for the
// thread-list ETag.
func ThreadStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxActivity *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.ChatThread{}).
		Where("shipper_id = ? OR counterpart_id = ?", userID, userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		LastMessageAt *time.Time
	}
	if err = q.Select("last_message_at").Order("last_message_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, row.LastMessageAt, nil
}
