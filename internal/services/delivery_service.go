// Package services – DeliveryService
//
// DeliveryService backs the acknowledgement API: devices confirm receipt of
// a push notification, and operators list the tracking entries of a hijack.

package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/hijack-notifier/internal/domain"
	"github.com/tbourn/hijack-notifier/internal/observability"
	"github.com/tbourn/hijack-notifier/internal/repo"
	"github.com/tbourn/hijack-notifier/internal/utils"
)

// DeliverySummary aggregates the entries of one hijack key.
type DeliverySummary struct {
	Total    int64            `json:"total"`
	Received int64            `json:"received"`
	ByStatus map[string]int64 `json:"by_status"`
}

// DeliveryService reads and acknowledges tracking entries.
type DeliveryService struct {
	DB *gorm.DB
}

// Acknowledge marks the user's entry of the run as received.
func (s *DeliveryService) Acknowledge(ctx context.Context, hijackKey, runToken, userID string) error {
	ctx, span := observability.Tracer("services/delivery").Start(ctx, "Acknowledge",
		trace.WithAttributes(
			attribute.String("hijack.key", hijackKey),
			attribute.String("run.token", runToken),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	hijackKey, runToken, userID = strings.TrimSpace(hijackKey), strings.TrimSpace(runToken), strings.TrimSpace(userID)
	if hijackKey == "" || runToken == "" || userID == "" {
		return ErrInvalidAck
	}
	if err := repo.MarkReceived(ctx, s.DB, hijackKey, runToken, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	return nil
}

// ListPage returns entries of hijackKey, newest first, with the total count.
func (s *DeliveryService) ListPage(ctx context.Context, hijackKey string, page, pageSize int) ([]domain.DeliveryTrackingEntry, int64, error) {
	ctx, span := observability.Tracer("services/delivery").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("hijack.key", hijackKey),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if strings.TrimSpace(hijackKey) == "" {
		return nil, 0, ErrEmptyHijackKey
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := repo.CountEntries(ctx, s.DB, hijackKey)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.DeliveryTrackingEntry{}, 0, nil
	}
	items, err := repo.ListEntriesPage(ctx, s.DB, hijackKey, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Summary counts the entries of hijackKey by SMS status.
func (s *DeliveryService) Summary(ctx context.Context, hijackKey string) (DeliverySummary, error) {
	if strings.TrimSpace(hijackKey) == "" {
		return DeliverySummary{}, ErrEmptyHijackKey
	}
	by, received, err := repo.DeliveryStats(ctx, s.DB, hijackKey)
	if err != nil {
		return DeliverySummary{}, err
	}
	out := DeliverySummary{Received: received, ByStatus: make(map[string]int64, len(by))}
	for st, n := range by {
		out.ByStatus[st.String()] = n
		out.Total += n
	}
	return out, nil
}
