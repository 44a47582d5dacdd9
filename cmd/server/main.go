package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/httpserver"
	"github.com/JKeiyuru/cornells-sub002/internal/messaging"
	"github.com/JKeiyuru/cornells-sub002/internal/notify"
	"github.com/JKeiyuru/cornells-sub002/internal/quotes"
	"github.com/JKeiyuru/cornells-sub002/internal/ratelimit"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/search"
	"github.com/JKeiyuru/cornells-sub002/internal/service"
	"github.com/JKeiyuru/cornells-sub002/pkg/config"
	pkgdb "github.com/JKeiyuru/cornells-sub002/pkg/db"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
	middleware "github.com/JKeiyuru/cornells-sub002/pkg/middleware/auth"
	"github.com/JKeiyuru/cornells-sub002/pkg/middleware/csrf"
	loggingmw "github.com/JKeiyuru/cornells-sub002/pkg/middleware/logging"
	"github.com/JKeiyuru/cornells-sub002/pkg/telemetry"
	"github.com/JKeiyuru/cornells-sub002/pkg/tokens"
)

const version = "0.1.0"

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func main() {
	cfg := config.Load(".env")
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	// closed in reverse order on shutdown
	var closers []closer

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName, version)
	if err != nil {
		log.Fatalf("tracer: %v", err)
	}
	closers = append(closers, closer{"tracer", shutdownTracer})

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, version)
	if err != nil {
		log.Fatalf("meter: %v", err)
	}
	closers = append(closers, closer{"meter", shutdownMeter})
	metrics, err := telemetry.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := pkgdb.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	closers = append(closers, closer{"db", func(context.Context) error { return pkgdb.Close(db) }})

	var pub notify.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers)
		closers = append(closers, closer{"kafka", func(context.Context) error { return producer.Close() }})
		pub = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}
	dispatcher := notify.New(pub, cfg.NotifyTimeout)
	closers = append(closers, closer{"notify", func(context.Context) error { dispatcher.Close(); return nil }})

	limiter := loginLimiter(ctx, cfg, logger, &closers)
	index := productIndex(ctx, cfg, logger)
	quoteStore := openQuoteStore(ctx, cfg, logger, &closers)

	r := &repo.GormRepo{DB: db}
	catalog := &service.CatalogService{Repo: r, Index: index, Notifier: dispatcher}
	cart := &service.CartService{Repo: r, Notifier: dispatcher, Metrics: metrics, TTL: cfg.CartTTL}
	orders := &service.OrderService{Repo: r, Notifier: dispatcher, Metrics: metrics}
	auth := &service.AuthService{
		Repo:          r,
		Limiter:       limiter,
		Notifier:      dispatcher,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	users := &service.UserService{Repo: r, Notifier: dispatcher}
	quoteSvc := &service.QuoteService{Store: quoteStore, Repo: r, Notifier: dispatcher}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler(cfg.IsDevelopment())
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.WithConfig(loggingmw.Config{
		Logger: logger,
		Quiet:  []string{"/health/live", "/health/ready", "/metrics"},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: len(cfg.CORSOrigins) > 0 && cfg.CORSOrigins[0] != "*",
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-CSRF-Token"},
		ExposeHeaders:    []string{"X-CSRF-Token"},
	}))
	e.Use(csrf.Middleware(csrf.Config{
		SessionCookie: tokens.AccessCookie,
		Secure:        !cfg.IsDevelopment(),
		SkipPaths:     []string{"/api/v1/auth/login", "/api/v1/auth/register"},
	}))

	httpserver.Register(e, &httpserver.Deps{
		Auth:    middleware.NewAuth(cfg.JWTAccessSecret),
		Catalog: &httpserver.CatalogHTTP{Svc: catalog},
		Cart:    &httpserver.CartHTTP{Svc: cart},
		Orders:  &httpserver.OrderHTTP{Svc: orders},
		Session: &httpserver.AuthHTTP{Svc: auth},
		Users:   &httpserver.UserHTTP{Svc: users},
		Quotes:  &httpserver.QuoteHTTP{Svc: quoteSvc},
		Ready:   readiness(db),
		Metrics: metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           otelhttp.NewHandler(e, cfg.ServiceName),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cart.RunSweeper(sweepCtx, cfg.CartSweepInterval)
	}()

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	}
	stopSweeper()
	wg.Wait()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].fn(shutdownCtx); err != nil {
			logger.Error("close_failed", "component", closers[i].name, "error", err)
		}
	}
	logger.Info("stopped")
}

func readiness(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pkgdb.Ping(ctx, db)
	}
}

// loginLimiter prefers Redis and falls back to process-local counters.
func loginLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger, closers *[]closer) ratelimit.Limiter {
	if cfg.RedisURL != "" {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rl, err := ratelimit.NewRedisLimiter(rctx, cfg.RedisURL, cfg.LoginMaxAttempts, cfg.LoginWindow)
		if err == nil {
			*closers = append(*closers, closer{"redis", func(context.Context) error { return rl.Close() }})
			return rl
		}
		logger.Warn("redis_unavailable", "error", err)
	}
	logger.Warn("login_limiter_in_memory")
	return ratelimit.NewMemoryLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow)
}

func productIndex(ctx context.Context, cfg config.Config, logger *slog.Logger) service.ProductIndex {
	if cfg.ESURL == "" {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := search.NewClient(sctx, search.Config{
		URL:      cfg.ESURL,
		User:     cfg.ESUser,
		Password: cfg.ESPassword,
		Index:    cfg.ESIndex,
	})
	if err != nil {
		logger.Warn("search_unavailable", "error", err)
		return nil
	}
	return client
}

func openQuoteStore(ctx context.Context, cfg config.Config, logger *slog.Logger, closers *[]closer) service.QuoteStore {
	if cfg.MongoURL == "" {
		return nil
	}
	store, err := quotes.Connect(ctx, cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		logger.Warn("quote_store_unavailable", "error", err)
		return nil
	}
	*closers = append(*closers, closer{"mongo", store.Close})
	return store
}
