// Package services – Sweeper
//
// Sweeper enforces the retention horizon of the tracking store. It is the
// only component that deletes entries by age.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/hijack-notifier/internal/config"
	"github.com/tbourn/hijack-notifier/internal/observability"
	"github.com/tbourn/hijack-notifier/internal/repo"
)

// Sweeper purges tracking entries older than Horizon on a cron schedule.
type Sweeper struct {
	DB       *gorm.DB
	Horizon  time.Duration
	Spec     string         // standard 5-field cron spec
	Location *time.Location // nil means UTC
}

// NewSweeper builds a sweeper from cfg. The timezone must be a valid IANA
// name.
func NewSweeper(db *gorm.DB, cfg config.RetentionConfig) (*Sweeper, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("sweep timezone %q: %w", cfg.Timezone, err)
	}
	return &Sweeper{DB: db, Horizon: cfg.Horizon, Spec: cfg.Cron, Location: loc}, nil
}

// Purge deletes entries created before now minus Horizon. A missing table
// is not an error.
func (s *Sweeper) Purge(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.Horizon)
	ctx, span := observability.Tracer("services/sweeper").Start(ctx, "sweeper.purge",
		trace.WithAttributes(attribute.String("cutoff", cutoff.UTC().Format(time.RFC3339))),
	)
	defer span.End()

	if !repo.HasTrackingTable(ctx, s.DB) {
		return 0, nil
	}
	n, err := repo.PurgeOlderThan(ctx, s.DB, cutoff)
	if err != nil {
		return 0, err
	}
	observability.EntriesPurged.Add(float64(n))
	span.SetAttributes(attribute.Int64("entries.purged", n))
	return n, nil
}

// Start schedules Purge on Spec and returns a func that stops the scheduler
// and waits for a running purge.
func (s *Sweeper) Start(ctx context.Context) (stop func(), err error) {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(s.Spec, func() { s.sweep(ctx) }); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", s.Spec, err)
	}
	c.Start()
	log.Info().Str("component", "sweeper").Str("schedule", s.Spec).Str("tz", loc.String()).
		Dur("horizon", s.Horizon).Msg("retention sweeper scheduled")

	return func() { <-c.Stop().Done() }, nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.Purge(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Str("component", "sweeper").Msg("retention sweep failed")
		return
	}
	log.Info().Str("component", "sweeper").Int64("purged", n).Msg("retention sweep finished")
}
