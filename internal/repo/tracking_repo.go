// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// DeliveryTrackingEntry model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. Updates
// are targeted UPDATE ... WHERE statements that never replace whole rows, so
// concurrent runs writing different columns of the same entry do not clobber
// each other.
//
// Status transitions are enforced in the WHERE clause:
//
//   - ApplyAcceptance only matches rows still at SMSUnknown (-3).
//   - ApplyDeliveryReport only matches rows at SMSAccepted (-1).
//
// Replayed or out-of-order gateway data therefore affects zero rows instead
// of moving an entry backwards.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/hijack-notifier/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrInvalidTransition is returned when a caller asks for a status that the
// source state can never move to.
var ErrInvalidTransition = errors.New("invalid sms status transition")

// createBatchSize bounds the number of rows per INSERT statement.
const createBatchSize = 200

// CreateEntries bulk-inserts tracking entries. Missing IDs are filled with
// random UUIDs and missing CreatedAt with the current UTC time.
func CreateEntries(ctx context.Context, db *gorm.DB, entries []domain.DeliveryTrackingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
	}
	return db.WithContext(ctx).CreateInBatches(entries, createBatchSize).Error
}

// PendingPhones returns the distinct, non-empty phone numbers of entries in
// the run that have not acknowledged the push notification. Order follows
// insertion so callers get a stable recipient list.
func PendingPhones(ctx context.Context, db *gorm.DB, hijackKey, runToken string) ([]string, error) {
	var phones []string
	err := db.WithContext(ctx).
		Model(&domain.DeliveryTrackingEntry{}).
		Where("hijack_key = ? AND run_token = ? AND notification_received = ? AND mobile_phone <> ''",
			hijackKey, runToken, false).
		Order("created_at ASC, id ASC").
		Pluck("mobile_phone", &phones).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(phones))
	out := phones[:0]
	for _, p := range phones {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// ApplyAcceptance records the gateway's submission answer for phone within
// a single run. Only entries still at SMSUnknown are updated. It returns the
// number of rows changed.
func ApplyAcceptance(ctx context.Context, db *gorm.DB, hijackKey, runToken, phone string, status domain.SMSStatus, messageID string) (int64, error) {
	if !domain.SMSUnknown.CanTransition(status) {
		return 0, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, domain.SMSUnknown, status)
	}
	res := db.WithContext(ctx).
		Model(&domain.DeliveryTrackingEntry{}).
		Where("hijack_key = ? AND run_token = ? AND mobile_phone = ? AND sms_status_code = ?",
			hijackKey, runToken, phone, domain.SMSUnknown).
		Updates(map[string]any{
			"sms_status_code": status,
			"sms_message_id":  messageID,
		})
	return res.RowsAffected, res.Error
}

// ApplyDeliveryReport sets the delivery outcome of every entry carrying
// messageID, whichever run owns it. Only entries at SMSAccepted are updated,
// which makes re-applying the same report a no-op.
func ApplyDeliveryReport(ctx context.Context, db *gorm.DB, messageID string, status domain.SMSStatus) (int64, error) {
	if !domain.SMSAccepted.CanTransition(status) {
		return 0, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, domain.SMSAccepted, status)
	}
	res := db.WithContext(ctx).
		Model(&domain.DeliveryTrackingEntry{}).
		Where("sms_message_id = ? AND sms_status_code = ?", messageID, domain.SMSAccepted).
		Update("sms_status_code", status)
	return res.RowsAffected, res.Error
}

// MarkReceived flags the entry of userID in the given run as having received
// the push notification. It returns ErrNotFound when no entry matches.
func MarkReceived(ctx context.Context, db *gorm.DB, hijackKey, runToken, userID string) error {
	res := db.WithContext(ctx).
		Model(&domain.DeliveryTrackingEntry{}).
		Where("hijack_key = ? AND run_token = ? AND user_id = ?", hijackKey, runToken, userID).
		Update("notification_received", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountEntries returns the number of entries recorded for hijackKey across
// all runs.
func CountEntries(ctx context.Context, db *gorm.DB, hijackKey string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.DeliveryTrackingEntry{}).
		Where("hijack_key = ?", hijackKey).
		Count(&total).Error
	return total, err
}

// ListEntriesPage returns a page of entries for hijackKey, newest first.
// The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListEntriesPage(ctx context.Context, db *gorm.DB, hijackKey string, offset, limit int) ([]domain.DeliveryTrackingEntry, error) {
	var out []domain.DeliveryTrackingEntry
	err := db.WithContext(ctx).
		Where("hijack_key = ?", hijackKey).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// PurgeOlderThan deletes every entry created strictly before cutoff and
// returns the number of rows removed.
func PurgeOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&domain.DeliveryTrackingEntry{})
	return res.RowsAffected, res.Error
}
