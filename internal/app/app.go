// Package app wires configuration, storage, services and HTTP handlers
// into a runnable server.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/health-enrollment/internal/config"
	clienthandler "github.com/jwalitptl/health-enrollment/internal/handler/client"
	"github.com/jwalitptl/health-enrollment/internal/handler/dashboard"
	enrollmenthandler "github.com/jwalitptl/health-enrollment/internal/handler/enrollment"
	"github.com/jwalitptl/health-enrollment/internal/handler/health"
	programhandler "github.com/jwalitptl/health-enrollment/internal/handler/program"
	"github.com/jwalitptl/health-enrollment/internal/handler/prometheus"
	"github.com/jwalitptl/health-enrollment/internal/middleware"
	"github.com/jwalitptl/health-enrollment/internal/repository"
	"github.com/jwalitptl/health-enrollment/internal/repository/memory"
	"github.com/jwalitptl/health-enrollment/internal/repository/postgres"
	"github.com/jwalitptl/health-enrollment/internal/router"
	"github.com/jwalitptl/health-enrollment/internal/service"
	clientservice "github.com/jwalitptl/health-enrollment/internal/service/client"
	enrollmentservice "github.com/jwalitptl/health-enrollment/internal/service/enrollment"
	programservice "github.com/jwalitptl/health-enrollment/internal/service/program"
	"github.com/jwalitptl/health-enrollment/internal/service/report"
	"github.com/jwalitptl/health-enrollment/pkg/auth"
	"github.com/jwalitptl/health-enrollment/pkg/messaging"
	"github.com/jwalitptl/health-enrollment/pkg/messaging/redis"
	"github.com/jwalitptl/health-enrollment/pkg/metrics"
	"github.com/jwalitptl/health-enrollment/pkg/validator"
)

const metricsNamespace = "enrollment"

// App is a fully wired server.
type App struct {
	Config  *config.Config
	Store   repository.Store
	Broker  messaging.Broker
	Metrics *metrics.Metrics
	Tokens  auth.JWTService
	Router  *router.Router

	db *sqlx.DB
}

// Option overrides a dependency, mainly for tests.
type Option func(*options)

type options struct {
	store  repository.Store
	broker messaging.Broker
	clock  service.Clock
}

// WithStore uses store instead of the configured driver.
func WithStore(store repository.Store) Option {
	return func(o *options) { o.store = store }
}

// WithBroker uses broker instead of the configured Redis URL.
func WithBroker(broker messaging.Broker) Option {
	return func(o *options) { o.broker = broker }
}

// WithClock fixes "now" for ages and reports.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// New builds the application. Close must be called to release the
// database pool and broker connection.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg, Metrics: metrics.New(metricsNamespace)}

	store, err := a.openStore(ctx, o.store)
	if err != nil {
		return nil, err
	}
	a.Store = repository.Instrument(store, a.Metrics)

	a.Broker = o.broker
	if a.Broker == nil {
		if a.Broker, err = openBroker(ctx, cfg.Redis); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Tokens, err = auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer, auth.WithCache(cfg.Auth.CacheTTL))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	var v validator.Validator
	if o.clock != nil {
		v = validator.NewWithClock(o.clock)
	} else {
		v = validator.New()
	}

	reports := report.NewService(a.Store, cfg.Report.CacheTTL, a.Metrics, o.clock)
	clients := clientservice.NewService(a.Store, v, reports, o.clock)
	programs := programservice.NewService(a.Store, v, reports, o.clock)
	enrollments := enrollmentservice.NewService(enrollmentservice.Config{
		Store:     a.Store,
		Validator: v,
		Broker:    a.Broker,
		Channel:   cfg.Redis.Channel,
		Reports:   reports,
		Metrics:   a.Metrics,
		Clock:     o.clock,
	})

	cors := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowOrigins) > 0 {
		cors.AllowOrigins = cfg.Server.AllowOrigins
	}

	a.Router = router.NewRouter(
		middleware.NewAuthMiddleware(a.Tokens),
		router.Handlers{
			Health:      health.NewHandler(a.Store),
			Clients:     clienthandler.NewHandler(clients),
			Programs:    programhandler.NewHandler(programs),
			Enrollments: enrollmenthandler.NewHandler(enrollments, clients, reports),
			Dashboard:   dashboard.NewHandler(reports),
			Metrics:     prometheus.New(a.Metrics.Registry, metricsNamespace),
		},
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateLimit:      rate.Limit(cfg.RateLimit.RPS),
			RateBurst:      cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     cors,
		},
	)
	a.Router.Setup()

	return a, nil
}

func (a *App) openStore(ctx context.Context, override repository.Store) (repository.Store, error) {
	if override != nil {
		return override, nil
	}

	switch a.Config.Storage.Driver {
	case "memory":
		log.Warn().Msg("using in-memory storage, data is lost on exit")
		return memory.NewStore(), nil
	case "postgres", "":
		db, err := postgres.NewDB(ctx, a.Config.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		return postgres.NewStore(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.Config.Storage.Driver)
	}
}

func openBroker(ctx context.Context, cfg config.RedisConfig) (messaging.Broker, error) {
	if cfg.URL == "" {
		log.Info().Msg("redis.url not set, enrollment events are not published")
		return messaging.NopBroker{}, nil
	}
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return broker, nil
}

// Close releases the broker and database pool.
func (a *App) Close() {
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close broker")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}
}
