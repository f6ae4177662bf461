// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Users originate in the external auth provider; rows here are provisioned
// lazily the first time a subject shows up on an authenticated request.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// EnsureUser fetches the user row for id, creating a trial-tier row if none
// exists yet. Safe under concurrent first requests: the insert is an upsert
// that does nothing on conflict, followed by a read.
func EnsureUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	u := &domain.User{
		ID:         id,
		Role:       domain.RoleTrial,
		FirstLogin: true,
		CreatedAt:  time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	return GetUser(ctx, db, id)
}

// GetUser fetches a user by id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ClearFirstLogin flips the FirstLogin flag off. A no-op when already false.
func ClearFirstLogin(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND first_login = ?", id, true).
		Update("first_login", false).Error
}

// UpdateUserRole changes the account tier (trial ↔ pro). Returns ErrNotFound
// when the user does not exist.
func UpdateUserRole(ctx context.Context, db *gorm.DB, id string, role domain.UserRole) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
