// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used by the
// operator API to summarize escalation outcomes per hijack.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/hijack-notifier/internal/domain"
)

// DeliveryStats returns, for hijackKey, the number of entries per SMS status
// and the number of entries that acknowledged the push notification.
//
// Statuses with no entries are absent from the map. When the hijack has no
// entries the map is empty and received is 0.
func DeliveryStats(ctx context.Context, db *gorm.DB, hijackKey string) (byStatus map[domain.SMSStatus]int64, received int64, err error) {
	scoped := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.DeliveryTrackingEntry{}).Where("hijack_key = ?", hijackKey)
	}

	var rows []struct {
		Status domain.SMSStatus
		N      int64
	}
	if err = scoped().
		Select("sms_status_code AS status, COUNT(*) AS n").
		Group("sms_status_code").
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	byStatus = make(map[domain.SMSStatus]int64, len(rows))
	for _, r := range rows {
		byStatus[r.Status] = r.N
	}

	if err = scoped().Where("notification_received = ?", true).Count(&received).Error; err != nil {
		return nil, 0, err
	}
	return byStatus, received, nil
}
