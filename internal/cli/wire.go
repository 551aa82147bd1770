package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/hijack-notifier/internal/config"
	"github.com/tbourn/hijack-notifier/internal/domain"
	"github.com/tbourn/hijack-notifier/internal/feed"
	httpapi "github.com/tbourn/hijack-notifier/internal/http"
	"github.com/tbourn/hijack-notifier/internal/observability"
	"github.com/tbourn/hijack-notifier/internal/push"
	"github.com/tbourn/hijack-notifier/internal/repo"
	"github.com/tbourn/hijack-notifier/internal/services"
	"github.com/tbourn/hijack-notifier/internal/sms"
)

// Service holds all wired components of the serve command.
type Service struct {
	Config     config.Config
	DB         *gorm.DB
	Escalation *services.EscalationService
	Poller     *services.Poller
	Sweeper    *services.Sweeper
	Server     *http.Server

	shutdownOTel func(context.Context) error
}

// pushSenderFn is replaced in tests to avoid reaching Firebase.
var pushSenderFn = func(ctx context.Context, credentialsPath string) (push.Sender, error) {
	if credentialsPath == "" {
		log.Warn().Str("component", "push").Msg("PUSH_CREDENTIALS_PATH not set; push notifications disabled")
		return push.DisabledSender(), nil
	}
	return push.NewFirebaseSender(ctx, credentialsPath)
}

// userDirectory adapts the user repository to feed.UserLookup.
type userDirectory struct{ db *gorm.DB }

func (u userDirectory) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, u.db, email)
}

// WireService assembles every component from cfg. On error, anything
// already opened is released.
func WireService(ctx context.Context, cfg config.Config, version string) (svc *Service, err error) {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return nil, err
	}
	svc = &Service{Config: cfg, shutdownOTel: shutdownOTel}
	defer func() {
		if err != nil {
			_ = svc.Close(context.WithoutCancel(ctx))
			svc = nil
		}
	}()

	// Store first; everything else writes to or reads from it.
	svc.DB, err = repo.Open(cfg.DB)
	if err != nil {
		return svc, fmt.Errorf("open database: %w", err)
	}
	if err = repo.AutoMigrate(svc.DB); err != nil {
		return svc, fmt.Errorf("migrate: %w", err)
	}

	sender, err := pushSenderFn(ctx, cfg.Push.CredentialsPath)
	if err != nil {
		return svc, fmt.Errorf("push sender: %w", err)
	}
	notifier := push.NewNotifier(sender, cfg.Push.Topic)
	gateway := sms.New(cfg.SMS)
	svc.Escalation = services.NewEscalationService(svc.DB, gateway, notifier, cfg.Escalation)

	var tokens feed.TokenSource
	if cfg.Feed.JWTSecret != "" {
		tokens = feed.NewTokenForger(userDirectory{db: svc.DB}, cfg.Feed.DefaultEmail, cfg.Feed.JWTSecret)
	} else {
		log.Warn().Str("component", "feed").Msg("JWT_SECRET not set; feed requests are unauthenticated")
	}
	svc.Poller = services.NewPoller(feed.New(cfg.Feed, tokens), svc.Escalation, cfg.Escalation)

	svc.Sweeper, err = services.NewSweeper(svc.DB, cfg.Retention)
	if err != nil {
		return svc, err
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, svc.DB, cfg)
	svc.Server = &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return svc, nil
}

// Close stops in-flight escalation runs and releases the database and the
// tracer provider. The HTTP server is shut down by the serve loop.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	if s.Escalation != nil {
		s.Escalation.Close()
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	if s.shutdownOTel != nil {
		if err := s.shutdownOTel(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
