// Package services – EscalationService
//
// One escalation run covers a single observation of a hijack key:
//
//  1. broadcast a push notification (best effort)
//  2. snapshot every user into a tracking entry for the run
//  3. after the grace period, SMS the users that did not acknowledge
//  4. record the gateway's acceptance answers on the run's entries
//  5. after the delivery delay, apply the gateway's delivery reports
//
// Runs execute in their own goroutine and are detached from the caller's
// cancellation; only Close aborts them. Each external call is bounded by
// CallTimeout.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/hijack-notifier/internal/config"
	"github.com/tbourn/hijack-notifier/internal/domain"
	"github.com/tbourn/hijack-notifier/internal/observability"
	"github.com/tbourn/hijack-notifier/internal/push"
	"github.com/tbourn/hijack-notifier/internal/repo"
	"github.com/tbourn/hijack-notifier/internal/sms"
	"github.com/tbourn/hijack-notifier/internal/sysutil"
)

// runTokenLen is the length of a run token.
const runTokenLen = 12

// SMSGateway submits bulk SMS and polls delivery reports.
type SMSGateway interface {
	Submit(ctx context.Context, phones []string, text string) ([]sms.Acceptance, error)
	FetchDeliveryReports(ctx context.Context) ([]sms.DeliveryReport, error)
}

// PushNotifier broadcasts the alert of one run.
type PushNotifier interface {
	Send(ctx context.Context, hijackKey, runToken string) push.Result
}

// SMSText is the body of the escalation SMS for hijackKey.
func SMSText(hijackKey string) string {
	return "Active hijack detected. Hijack key: " + hijackKey
}

// NewRunToken returns a random 12-character run token.
func NewRunToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:runTokenLen]
}

// EscalationService drives escalation runs.
type EscalationService struct {
	DB   *gorm.DB
	SMS  SMSGateway
	Push PushNotifier

	GracePeriod time.Duration // push -> SMS
	DLRDelay    time.Duration // SMS -> delivery reports
	CallTimeout time.Duration // per external call; 0 disables

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// NewToken mints run tokens. Defaults to NewRunToken.
	NewToken func() string

	wg     sync.WaitGroup
	once   sync.Once
	root   context.Context
	cancel context.CancelFunc
}

// NewEscalationService builds a service with timings from cfg.
func NewEscalationService(db *gorm.DB, gw SMSGateway, pn PushNotifier, cfg config.EscalationConfig) *EscalationService {
	return &EscalationService{
		DB:          db,
		SMS:         gw,
		Push:        pn,
		GracePeriod: cfg.GracePeriod,
		DLRDelay:    cfg.DLRDelay,
		CallTimeout: cfg.CallTimeout,
	}
}

func (s *EscalationService) init() {
	s.once.Do(func() {
		s.root, s.cancel = context.WithCancel(context.Background())
		if s.Sleep == nil {
			s.Sleep = sleepCtx
		}
		if s.NewToken == nil {
			s.NewToken = NewRunToken
		}
	})
}

// StartRun mints a token for hijackKey, starts the run in the background and
// returns the token immediately. Values of ctx (trace, logger) are kept but
// its cancellation is not.
func (s *EscalationService) StartRun(ctx context.Context, hijackKey string) string {
	s.init()
	token := s.NewToken()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.root, cancel)

	observability.RunsStarted.Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer stop()
		s.run(runCtx, hijackKey, token)
	}()
	return token
}

// Wait blocks until every started run has finished.
func (s *EscalationService) Wait() { s.wg.Wait() }

// Close aborts in-flight runs at their next wait or call and waits for them.
func (s *EscalationService) Close() {
	s.init()
	s.cancel()
	s.wg.Wait()
}

func (s *EscalationService) run(ctx context.Context, hijackKey, token string) {
	ctx, span := observability.Tracer("services/escalation").Start(ctx, "escalation.run",
		trace.WithAttributes(
			attribute.String("hijack.key", hijackKey),
			attribute.String("run.token", token),
		),
	)
	defer span.End()

	lg := log.With().
		Str("component", "escalation").
		Str("hijack_key", hijackKey).
		Str("run_token", token).
		Logger()
	lg.Info().Msg("escalation run started")

	if err := s.escalate(ctx, lg, hijackKey, token); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) {
			lg.Warn().Msg("escalation run aborted")
			return
		}
		lg.Error().Err(err).Msg("escalation run stopped")
		return
	}
	lg.Info().Msg("escalation run finished")
}

func (s *EscalationService) escalate(ctx context.Context, lg zerolog.Logger, hijackKey, token string) error {
	s.notify(ctx, lg, hijackKey, token)

	created, err := s.snapshot(ctx, hijackKey, token)
	if err != nil {
		return err
	}
	if created == 0 {
		lg.Info().Msg("no recipients; nothing to escalate")
		return nil
	}
	lg.Debug().Int("entries", created).Msg("tracking entries created")

	if err := s.Sleep(ctx, s.GracePeriod); err != nil {
		return err
	}

	var phones []string
	err = s.call(ctx, func(ctx context.Context) (err error) {
		phones, err = repo.PendingPhones(ctx, s.DB, hijackKey, token)
		return err
	})
	if err != nil {
		return err
	}
	if len(phones) == 0 {
		lg.Info().Msg("no unacknowledged recipient with a phone; no sms sent")
		return nil
	}

	var accepted []sms.Acceptance
	err = s.call(ctx, func(ctx context.Context) (err error) {
		accepted, err = s.SMS.Submit(ctx, phones, SMSText(hijackKey))
		return err
	})
	if err != nil {
		observability.SMSSubmissions.WithLabelValues(observability.ResultError).Inc()
		return err
	}
	observability.SMSSubmissions.WithLabelValues(observability.ResultOK).Inc()
	lg.Info().Strs("phones", sysutil.MaskPhones(phones)).Int("answers", len(accepted)).Msg("sms submitted")

	s.recordAcceptances(ctx, lg, hijackKey, token, accepted)

	if err := s.Sleep(ctx, s.DLRDelay); err != nil {
		return err
	}
	_, err = s.ReconcileDeliveryReports(ctx)
	return err
}

// notify sends the push broadcast; its outcome never stops the run.
func (s *EscalationService) notify(ctx context.Context, lg zerolog.Logger, hijackKey, token string) {
	if s.Push == nil {
		return
	}
	res := push.Result{Err: ctx.Err()}
	_ = s.call(ctx, func(ctx context.Context) error {
		res = s.Push.Send(ctx, hijackKey, token)
		return nil
	})
	switch {
	case res.OK():
		observability.PushSends.WithLabelValues(observability.ResultOK).Inc()
		lg.Info().Str("message_id", res.MessageID).Msg("push notification sent")
	case errors.Is(res.Err, push.ErrPushDisabled):
		observability.PushSends.WithLabelValues("disabled").Inc()
		lg.Debug().Msg("push notifications disabled")
	default:
		observability.PushSends.WithLabelValues(observability.ResultError).Inc()
		lg.Warn().Err(res.Err).Msg("push notification failed")
	}
}

// snapshot creates one entry per user for the run and returns how many.
func (s *EscalationService) snapshot(ctx context.Context, hijackKey, token string) (int, error) {
	var users []domain.User
	err := s.call(ctx, func(ctx context.Context) (err error) {
		users, err = repo.ListRecipients(ctx, s.DB)
		return err
	})
	if err != nil || len(users) == 0 {
		return 0, err
	}

	now := time.Now().UTC()
	entries := make([]domain.DeliveryTrackingEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, domain.DeliveryTrackingEntry{
			HijackKey:     hijackKey,
			RunToken:      token,
			UserID:        u.ID,
			MobilePhone:   strings.TrimSpace(u.MobilePhone),
			SMSStatusCode: domain.SMSUnknown,
			CreatedAt:     now,
		})
	}
	err = s.call(ctx, func(ctx context.Context) error {
		if err := repo.EnsureTrackingTable(ctx, s.DB); err != nil {
			return err
		}
		return repo.CreateEntries(ctx, s.DB, entries)
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// recordAcceptances applies each answer to the entries of this run only.
// A failed update is logged and the rest are still applied.
func (s *EscalationService) recordAcceptances(ctx context.Context, lg zerolog.Logger, hijackKey, token string, accepted []sms.Acceptance) {
	for _, a := range accepted {
		observability.SMSAcceptances.WithLabelValues(a.Status.String()).Inc()
		err := s.call(ctx, func(ctx context.Context) error {
			_, err := repo.ApplyAcceptance(ctx, s.DB, hijackKey, token, a.Phone, a.Status, a.MessageID)
			return err
		})
		if err != nil {
			lg.Error().Err(err).Str("phone", sysutil.MaskPhone(a.Phone)).Msg("record sms acceptance")
		}
	}
}

// ReconcileDeliveryReports fetches pending delivery reports and applies them
// by message id, whichever run owns the entry. It returns the number of
// entries changed. Applying the same reports twice changes nothing.
func (s *EscalationService) ReconcileDeliveryReports(ctx context.Context) (int64, error) {
	var reports []sms.DeliveryReport
	err := s.call(ctx, func(ctx context.Context) (err error) {
		reports, err = s.SMS.FetchDeliveryReports(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, r := range reports {
		err := s.call(ctx, func(ctx context.Context) error {
			n, err := repo.ApplyDeliveryReport(ctx, s.DB, r.MessageID, r.Status)
			total += n
			return err
		})
		if err != nil {
			log.Error().Err(err).Str("component", "escalation").Str("message_id", r.MessageID).
				Msg("apply delivery report")
		}
	}
	observability.SMSDLRUpdates.Add(float64(total))
	log.Info().Str("component", "escalation").Int("reports", len(reports)).Int64("updated", total).
		Msg("delivery reports applied")
	return total, nil
}

// call runs fn under CallTimeout.
func (s *EscalationService) call(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.CallTimeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, s.CallTimeout)
	defer cancel()
	return fn(cctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
