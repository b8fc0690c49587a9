package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/config"
	"github.com/Ramsey-B/tulip/internal/repositories/polis"
	"github.com/Ramsey-B/tulip/internal/repositories/relatie"
	"github.com/Ramsey-B/tulip/internal/repositories/synclog"
	"github.com/Ramsey-B/tulip/internal/services/auditlog"
	"github.com/Ramsey-B/tulip/internal/services/importsession"
	"github.com/Ramsey-B/tulip/internal/services/sweeper"
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/health"
	"github.com/Ramsey-B/tulip/pkg/importer"
	"github.com/Ramsey-B/tulip/pkg/kafka"
	"github.com/Ramsey-B/tulip/pkg/middleware"
	"github.com/Ramsey-B/tulip/pkg/redis"
	"github.com/Ramsey-B/tulip/pkg/routes/imports"
	synclogroutes "github.com/Ramsey-B/tulip/pkg/routes/synclog"
	"github.com/Ramsey-B/tulip/pkg/startup"
	"github.com/Ramsey-B/tulip/pkg/tracing"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the import API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				a.cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return newServer(a.cfg, a.logger).run(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides PORT)")
	return cmd
}

type server struct {
	cfg    *config.Config
	logger ectologger.Logger

	stopTracing func(context.Context) error
	db          database.DB
	redis       *redis.Client
	locker      *redis.Locker
	publisher   kafka.Publisher
	audit       *auditlog.Service
	sessions    *importsession.Service
	sweeper     *sweeper.Sweeper
	health      *health.Checker
	http        *http.Server
	serveErr    chan error
}

func newServer(cfg *config.Config, logger ectologger.Logger) *server {
	return &server{
		cfg:      cfg,
		logger:   logger,
		health:   health.NewChecker(cfg.Version),
		serveErr: make(chan error, 1),
	}
}

func (s *server) run(ctx context.Context) error {
	if err := s.cfg.CheckAuth(); err != nil {
		return err
	}
	st := startup.New(s.logger, s.cfg.StartupMaxAttempts).
		Add(startup.Func{ID: "tracing", StartFunc: s.startTracing, StopFunc: s.shutdownTracing}).
		Add(startup.Func{ID: "database", StartFunc: s.startDatabase, StopFunc: s.closeDatabase}).
		Add(startup.Func{ID: "redis", StartFunc: s.startRedis, StopFunc: s.closeRedis}).
		Add(startup.Func{ID: "kafka", StartFunc: s.startKafka, StopFunc: s.closeKafka}).
		Add(startup.Func{ID: "services", Needs: []string{"database", "redis", "kafka"}, StartFunc: s.startServices}).
		Add(startup.Func{ID: "sweeper", Needs: []string{"services"}, StartFunc: s.startSweeper, StopFunc: s.stopSweeper}).
		Add(startup.Func{ID: "http", Needs: []string{"services", "tracing"}, StartFunc: s.startHTTP, StopFunc: s.stopHTTP})

	if err := st.Start(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to start tulip")
		_ = st.Stop(context.WithoutCancel(ctx))
		return err
	}
	s.health.SetReady(true)
	s.logger.WithField("port", s.cfg.Port).Info("Tulip started")

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down")
	case runErr = <-s.serveErr:
		s.logger.WithError(runErr).Error("HTTP server stopped unexpectedly")
	}
	s.health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(s.cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := st.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (s *server) startTracing(ctx context.Context) error {
	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     s.cfg.TracingEnabled,
		ServiceName: s.cfg.AppName,
		Endpoint:    s.cfg.TracingEndpoint,
		Protocol:    s.cfg.TracingProtocol,
		Insecure:    s.cfg.TracingInsecure,
	}, s.logger)
	if err != nil {
		return err
	}
	s.stopTracing = shutdown
	return nil
}

func (s *server) shutdownTracing(ctx context.Context) error {
	if s.stopTracing == nil {
		return nil
	}
	return s.stopTracing(ctx)
}

func (s *server) startDatabase(ctx context.Context) error {
	db, err := database.Connect(ctx, s.cfg.DatabaseDSN(), database.PoolConfig{
		MaxOpenConns:    s.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    s.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: s.cfg.DatabaseConnMaxLifetime,
	}, s.logger)
	if err != nil {
		return err
	}

	if s.cfg.DatabaseMigrateOnStart {
		if err := migrationService(s.cfg, s.logger).MigratePostgres(db.SQL(), s.cfg.DatabaseName); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	s.db = db
	s.health.Require("database", db.PingContext)
	return nil
}

func (s *server) closeDatabase(context.Context) error {
	return s.db.Close()
}

func (s *server) startRedis(ctx context.Context) error {
	client, err := redis.NewClient(ctx, redis.Config{
		Host:     s.cfg.RedisHost,
		Port:     s.cfg.RedisPort,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	}, s.logger)
	if err != nil {
		return err
	}
	s.redis = client
	s.locker = redis.NewLocker(client, s.cfg.RedisLockPrefix)
	s.health.Require("redis", client.Ping)
	return nil
}

func (s *server) closeRedis(context.Context) error {
	return s.redis.Close()
}

func (s *server) startKafka(context.Context) error {
	if !s.cfg.KafkaEnabled {
		s.publisher = kafka.NoopPublisher{}
		return nil
	}

	cfg := kafka.DefaultProducerConfig()
	cfg.Brokers = s.cfg.KafkaBrokers
	cfg.Topic = s.cfg.KafkaImportTopic
	cfg.BatchSize = s.cfg.KafkaBatchSize
	cfg.BatchTimeout = time.Duration(s.cfg.KafkaBatchTimeout) * time.Millisecond
	cfg.RequiredAcks = s.cfg.KafkaRequiredAcks
	cfg.Compression = s.cfg.KafkaCompression

	producer, err := kafka.NewProducer(cfg, s.logger)
	if err != nil {
		return err
	}
	s.publisher = producer
	return nil
}

func (s *server) closeKafka(context.Context) error {
	return s.publisher.Close()
}

func (s *server) startServices(context.Context) error {
	s.audit = auditlog.NewService(s.db, synclog.NewRepository(s.db, s.logger), s.logger)
	s.sessions = importsession.NewService(
		s.db,
		relatie.NewRepository(s.db, s.logger),
		polis.NewRepository(s.db, s.logger),
		s.audit,
		importsession.NewRedisLocker(s.locker),
		s.publisher,
		importsession.Config{LockTTL: s.cfg.ImportLockTTL},
		s.logger,
	)
	return nil
}

func (s *server) startSweeper(ctx context.Context) error {
	if !s.cfg.SweeperEnabled {
		return nil
	}
	s.sweeper = sweeper.New(s.audit, s.locker, sweeper.Config{
		Schedule:   s.cfg.SweeperSchedule,
		StaleAfter: s.cfg.SweeperStaleAfter,
	}, s.logger)
	return s.sweeper.Start(ctx)
}

func (s *server) stopSweeper(context.Context) error {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	return nil
}

func (s *server) startHTTP(ctx context.Context) error {
	e, err := s.router(ctx)
	if err != nil {
		return err
	}

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(s.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
	}

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()
	return nil
}

func (s *server) stopHTTP(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *server) router(ctx context.Context) (*echo.Echo, error) {
	importerCfg, err := s.cfg.ImporterConfig()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(s.logger)

	e.Use(otelecho.Middleware(s.cfg.AppName))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: s.cfg.AllowOrigins,
		AllowMethods: s.cfg.AllowMethods,
	}))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(s.logger))

	s.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := middleware.HeaderAuth()
	if s.cfg.AuthEnabled {
		if auth, err = middleware.Authentication(ctx, s.logger, s.cfg.AuthIssuerURL, s.cfg.AuthClientID); err != nil {
			return nil, err
		}
	} else {
		s.logger.WithContext(ctx).Warn("Token authentication is disabled, X-User-ID and X-User-Role headers are trusted as sent")
	}

	api := e.Group("/api/v1", auth)

	pipeline := importer.NewPipeline(s.sessions, importerCfg, s.logger)
	imports.NewHandler(s.sessions, pipeline, s.cfg.ImportMaxUploadBytes, s.logger).
		Register(api.Group("/imports", middleware.RequireImportRole()))
	synclogroutes.NewHandler(s.audit).
		Register(api.Group("/sync-logs", middleware.RequireUser()))

	return e, nil
}

func migrationService(cfg *config.Config, logger ectologger.Logger) *database.MigrationService {
	return database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
}
