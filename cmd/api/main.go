package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/mailguard/internal/application"
	"github.com/bryanwahyu/mailguard/internal/application/analysis"
	"github.com/bryanwahyu/mailguard/internal/application/chat"
	"github.com/bryanwahyu/mailguard/internal/application/inbox"
	"github.com/bryanwahyu/mailguard/internal/application/reports"
	"github.com/bryanwahyu/mailguard/internal/config"
	"github.com/bryanwahyu/mailguard/internal/domain/ai"
	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
	openaic "github.com/bryanwahyu/mailguard/internal/infra/ai/openai"
	rediscache "github.com/bryanwahyu/mailguard/internal/infra/cache/redis"
	"github.com/bryanwahyu/mailguard/internal/infra/catalog"
	mysqlp "github.com/bryanwahyu/mailguard/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/mailguard/internal/infra/db/postgres"
	"github.com/bryanwahyu/mailguard/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/mailguard/internal/infra/storage"
	"github.com/bryanwahyu/mailguard/internal/logger"
	"github.com/bryanwahyu/mailguard/internal/metrics"
	"github.com/bryanwahyu/mailguard/internal/middleware"
)

type schemaRepo interface {
	discovery.Repository
	EnsureSchema(ctx context.Context) error
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	metrics.Init()

	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}
	clock := application.SystemClock{}
	rs := &reports.Service{Clock: clock}

	// database (optional)
	if cfg.Database.Driver != "" {
		db, repo, err := openRepository(ctx, cfg)
		if err != nil {
			logger.Fatal("database init error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		}
		defer db.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("schema init error", zap.Error(err))
		}
		rs.Repo = repo
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		logger.Info("report persistence enabled", zap.String("driver", cfg.Database.Driver))
	}

	// minio (optional)
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		rs.Artifacts = store
		checkers["minio"] = middleware.CheckFunc(store.Ping)
	}

	// redis (optional)
	if cfg.Redis.Addr != "" {
		cache, err := rediscache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ReportTTL)
		if err != nil {
			logger.Fatal("redis init error", zap.Error(err))
		}
		defer cache.Close()
		rs.Cache = cache
		checkers["redis"] = middleware.CheckFunc(cache.Ping)
	}

	matcher := mailbox.NewMatcher(catalog.Keywords)
	deps := analysis.Deps{
		Source:    catalog.Inbox{},
		Directory: catalog.Directory{},
		Matcher:   matcher,
		Responder: chat.NewResponder(catalog.Responses()),
		Clock:     clock,
	}
	var routerReports *reports.Service
	if rs.Repo != nil || rs.Artifacts != nil {
		deps.Recorder = rs
		routerReports = rs
	}
	store := analysis.NewStore(deps, analysis.Options{
		ItemDelay:    cfg.Analysis.ItemDelay,
		SummaryDelay: cfg.Analysis.SummaryDelay,
		Owner:        cfg.Analysis.Owner,
	})

	var primary ai.Classifier
	if cfg.OpenAI.APIKey != "" {
		if cfg.OpenAI.BaseURL != "" {
			primary = openaic.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
		} else {
			primary = openaic.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		}
		logger.Info("openai email classifier enabled", zap.String("model", cfg.OpenAI.Model))
	}
	inboxSvc := inbox.NewService(catalog.Inbox{}, primary, inbox.KeywordClassifier{Matcher: matcher})

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()

	handler := httpserver.NewRouter(httpserver.Deps{
		Context:        serveCtx,
		Store:          store,
		Inbox:          inboxSvc,
		Reports:        routerReports,
		Checkers:       checkers,
		APIKeys:        cfg.Auth.APIKeys,
		RateCapacity:   cfg.RateLimit.Capacity,
		RateRefill:     cfg.RateLimit.RefillRate,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	stopServing()

	// tunggu analisis yang masih jalan
	done := make(chan struct{})
	go func() {
		store.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx2.Done():
		logger.Warn("analysis still running at shutdown")
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (*sql.DB, schemaRepo, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		return db, mysqlp.NewReportRepository(db), nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		return db, pgp.NewReportRepository(db), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q (allowed: mysql, postgres)", cfg.Database.Driver)
	}
}
