// Package services – Poller
//
// Poller queries the hijack feed on a fixed cadence and starts one escalation
// run per hijack returned for the tick's window. Windows of consecutive ticks
// may overlap by the configured skew, so a hijack can be escalated more than
// once; runs are independent and that is accepted.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/hijack-notifier/internal/config"
	"github.com/tbourn/hijack-notifier/internal/domain"
	"github.com/tbourn/hijack-notifier/internal/observability"
)

// HijackFeed returns hijacks detected at or after since.
type HijackFeed interface {
	Since(ctx context.Context, since time.Time) ([]domain.HijackEvent, error)
}

// RunStarter starts an escalation run and returns its token.
type RunStarter interface {
	StartRun(ctx context.Context, hijackKey string) string
}

// Poller drives the feed loop.
type Poller struct {
	Feed HijackFeed
	Runs RunStarter

	Interval    time.Duration
	Skew        time.Duration
	CallTimeout time.Duration
}

// NewPoller builds a poller with timings from cfg.
func NewPoller(feed HijackFeed, runs RunStarter, cfg config.EscalationConfig) *Poller {
	return &Poller{
		Feed:        feed,
		Runs:        runs,
		Interval:    cfg.PollInterval,
		Skew:        cfg.PollSkew,
		CallTimeout: cfg.CallTimeout,
	}
}

// Window returns the lower bound of the lookback window ending at now.
func (p *Poller) Window(now time.Time) time.Time {
	return now.Add(-(p.Interval + p.Skew))
}

// Tick performs one poll for the window ending at now and returns the number
// of runs started. On a feed error no run is started.
func (p *Poller) Tick(ctx context.Context, now time.Time) (int, error) {
	since := p.Window(now)
	ctx, span := observability.Tracer("services/poller").Start(ctx, "poller.tick",
		trace.WithAttributes(attribute.String("window.since", since.UTC().Format(time.RFC3339Nano))),
	)
	defer span.End()

	qctx := ctx
	if p.CallTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()
	}
	events, err := p.Feed.Since(qctx, since)
	if err != nil {
		observability.FeedPolls.WithLabelValues(observability.ResultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	observability.FeedPolls.WithLabelValues(observability.ResultOK).Inc()

	started := 0
	for _, ev := range events {
		if ev.Key == "" {
			continue
		}
		token := p.Runs.StartRun(ctx, ev.Key)
		log.Info().
			Str("component", "poller").
			Str("hijack_key", ev.Key).
			Str("run_token", token).
			Time("time_detected", ev.DetectedAt).
			Str("prefix", ev.Prefix).
			Msg("hijack observed")
		started++
	}
	span.SetAttributes(attribute.Int("runs.started", started))
	return started, nil
}

// Run ticks every Interval until ctx is done. A failed tick is logged and
// the next tick polls a fresh window.
func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	log.Info().Str("component", "poller").Dur("interval", p.Interval).Dur("skew", p.Skew).Msg("poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("component", "poller").Msg("poller stopped")
			return ctx.Err()
		case now := <-t.C:
			if _, err := p.Tick(ctx, now); err != nil {
				log.Error().Err(err).Str("component", "poller").Msg("hijack poll failed")
			}
		}
	}
}
