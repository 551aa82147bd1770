// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only access to the user directory.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/hijack-notifier/internal/domain"
)

// ListRecipients returns every known user, ordered by ID for determinism.
func ListRecipients(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// GetUserByEmail fetches a single user by email, or ErrNotFound.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
