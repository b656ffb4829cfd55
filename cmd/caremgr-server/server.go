package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/caremgr/caremgr/internal/config"
	"github.com/caremgr/caremgr/internal/domain/account"
	"github.com/caremgr/caremgr/internal/domain/insurance"
	"github.com/caremgr/caremgr/internal/domain/medical"
	"github.com/caremgr/caremgr/internal/domain/prescription"
	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/db"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/metrics"
	"github.com/caremgr/caremgr/internal/platform/middleware"
	"github.com/caremgr/caremgr/internal/platform/store"
	"github.com/caremgr/caremgr/internal/platform/web"
	"github.com/caremgr/caremgr/migrations"
)

const requestTimeout = 30 * time.Second

// openBackend connects the store selected by cfg. Postgres schemas are
// migrated with the embedded SQL files, SQLite ones with gorm AutoMigrate.
func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Backend, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBSchema)
		if err != nil {
			return store.Backend{}, nil, err
		}
		n, err := db.NewMigrator(pool, migrations.FS).Up(ctx, cfg.DBSchema)
		if err != nil {
			pool.Close()
			return store.Backend{}, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("applied", n).Str("schema", cfg.DBSchema).Msg("connected to postgres")
		return store.Backend{Pool: pool}, pool.Close, nil

	case config.DriverSQLite:
		gdb, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
		if err != nil {
			return store.Backend{}, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := gdb.AutoMigrate(models()...); err != nil {
			return store.Backend{}, nil, fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		closeDB := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return store.Backend{Gorm: gdb}, closeDB, nil
	}

	logger.Warn().Msg("using the in-memory store; data is lost on exit")
	return store.Backend{}, func() {}, nil
}

func models() []any {
	var all []any
	all = append(all, account.Models()...)
	all = append(all, insurance.Models()...)
	all = append(all, medical.Models()...)
	all = append(all, prescription.Models()...)
	return all
}

// pinger reports store health for /health/db.
func pinger(b store.Backend) db.Pinger {
	switch {
	case b.Pool != nil:
		return b.Pool
	case b.Gorm != nil:
		return db.PingFunc(func(ctx context.Context) error {
			sqlDB, err := b.Gorm.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}
	return nil
}

// app holds the wired services of one server instance.
type app struct {
	accounts     *account.Service
	membership   *account.Membership
	insurance    *insurance.Service
	medical      *medical.Service
	prescription *prescription.Service

	signingKey []byte
}

func newApp(cfg *config.Config, b store.Backend, logger zerolog.Logger, m *metrics.Metrics) (*app, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	v := manager.NewValidator()
	accountRepos := account.NewRepositories(b)
	membership := account.NewMembership(accountRepos, v, logger)
	deps := manager.Deps{
		Authorizer: auth.NewOwnershipAuthorizer(membership, membership),
		Validator:  v,
		Logger:     logger,
		Metrics:    m,
	}
	tokens := auth.NewTokenIssuer(key, cfg.JWTIssuer, cfg.TokenTTL)

	a := &app{
		accounts:     account.NewService(accountRepos, membership, tokens, deps),
		membership:   membership,
		insurance:    insurance.NewService(insurance.NewRepositories(b), deps),
		medical:      medical.NewService(medical.NewRepositories(b), deps),
		prescription: prescription.NewService(prescription.NewRepositories(b), deps),
		signingKey:   key,
	}
	a.accounts.AddDependentCheck(a.insurance.HasRecordsFor)
	a.accounts.AddDependentCheck(a.medical.HasRecordsFor)
	a.accounts.AddDependentCheck(a.prescription.HasRecordsFor)
	return a, nil
}

// seed creates the configured admin member when a password is set.
func (a *app) seed(ctx context.Context, cfg *config.Config) error {
	if cfg.AdminPassword == "" {
		return nil
	}
	return a.accounts.SeedAdmin(ctx, cfg.AdminLogin, cfg.AdminPassword)
}

func newServer(cfg *config.Config, b store.Backend, a *app, reg *prometheus.Registry, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = manager.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", auth.DevAuthHeader},
	}))
	e.Use(middleware.RequestTimeout(requestTimeout))

	jwt := auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: a.signingKey,
		Skipper:    auth.AuthSkipper,
		Optional:   auth.OptionalAuth,
	})
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth enabled: requests without a token act as the admin")
		e.Use(auth.DevAuthMiddleware(cfg.AdminLogin, jwt))
	} else {
		e.Use(jwt)
	}
	e.Use(middleware.Audit(logger, nil))
	if b.Pool != nil {
		e.Use(db.ConnMiddleware(b.Pool, func(c echo.Context) bool { return auth.IsPublicPath(c.Path()) }))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(b.Driver(), pinger(b)))
	e.GET("/metrics", metrics.Handler(reg))

	api := e.Group("/api/v1")
	account.NewHandler(a.accounts).RegisterRoutes(api)
	insurance.NewHandler(a.insurance).RegisterRoutes(api)
	medical.NewHandler(a.medical).RegisterRoutes(api)
	prescription.NewHandler(a.prescription).RegisterRoutes(api)

	services := e.Group("/services")
	for _, f := range []*web.Facade{
		account.NewFacade(a.accounts),
		insurance.NewFacade(a.insurance, a.membership),
		medical.NewFacade(a.medical, a.membership),
		prescription.NewFacade(a.prescription, a.membership),
	} {
		f.Register(services)
		logger.Debug().Str("group", f.Group()).Strs("ops", f.Ops()).Msg("service facade mounted")
	}
	return e
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}
