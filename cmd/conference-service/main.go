package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-conference-central/internal/auth"
	"github.com/pribylovaa/go-conference-central/internal/cache"
	"github.com/pribylovaa/go-conference-central/internal/config"
	confhttp "github.com/pribylovaa/go-conference-central/internal/http"
	"github.com/pribylovaa/go-conference-central/internal/interceptors"
	"github.com/pribylovaa/go-conference-central/internal/notify"
	"github.com/pribylovaa/go-conference-central/internal/service"
	"github.com/pribylovaa/go-conference-central/internal/storage"
	"github.com/pribylovaa/go-conference-central/internal/storage/memory"
	"github.com/pribylovaa/go-conference-central/internal/storage/mongo"
	"github.com/pribylovaa/go-conference-central/internal/storage/postgres"
	"github.com/pribylovaa/go-conference-central/internal/tracing"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting conference-service",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("cache", cfg.Cache.Driver),
	)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Хранилище.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	store, err := openStore(dbCtx, cfg)
	dbCancel()
	if err != nil {
		log.Error("storage_open_failed", slog.String("driver", cfg.Storage.Driver), slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info(cfg.Storage.Driver + "_connected")

	// Кэш объявлений.
	announcements, err := openCache(cfg)
	if err != nil {
		log.Error("cache_open_failed", slog.String("driver", cfg.Cache.Driver), slog.String("err", err.Error()))
		rootCancel()
		store.Close()
		os.Exit(1)
	}

	// Трассировка.
	tp, err := tracing.NewProvider(rootCtx, tracing.Config{
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: tracing.DefaultServiceName,
	})
	if err != nil {
		log.Error("tracing_init_failed", slog.String("err", err.Error()))
		rootCancel()
		_ = announcements.Close()
		store.Close()
		os.Exit(1)
	}

	// Письма-подтверждения уходят из фоновой очереди.
	mailer := notify.NewAsync(newNotifier(cfg), cfg.Mail.QueueSize)

	svc := service.New(store, announcements,
		service.WithNotifier(mailer),
		service.WithTracer(tp.Tracer()),
		service.WithAnnouncementTTL(cfg.Cache.TTL),
	)
	log.Info("service_initialized")

	go svc.RunAnnouncements(rootCtx, cfg.Announcement.Interval)

	authn := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Leeway)

	var ready int32 // 0 — not ready; 1 — ready
	httpAddr := cfg.HTTP.Addr()

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", confhttp.NewRouter(svc, authn, confhttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Request,
		BasePath: cfg.HTTP.BasePath,
	}))

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- err
		}
		close(httpErrCh)
	}()

	grpc_prometheus.EnableHandlingTimeHistogram()

	// ops gRPC-сервер: health + reflection.
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(log),
			interceptors.UnaryLoggingInterceptor(log),
			interceptors.WithTimeout(cfg.Timeouts.Request),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecover(log),
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// Рефлексия — только в local/dev.
	if cfg.Env == envLocal || cfg.Env == envDev {
		reflection.Register(grpcServer)
	}

	addr := cfg.GRPC.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("grpc_listen_failed",
			slog.String("addr", addr),
			slog.String("err", err.Error()),
		)
		rootCancel()
		_ = httpSrv.Shutdown(context.Background())
		store.Close()
		os.Exit(1)
	}
	log.Info("grpc_listen_start", slog.String("addr", addr))

	grpc_prometheus.Register(grpcServer)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	atomic.StoreInt32(&ready, 1)

	grpcErrCh := make(chan error, 1)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			grpcErrCh <- err
		}
		close(grpcErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-httpErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	case err := <-grpcErrCh:
		if err != nil {
			log.Error("grpc_serve_failed", slog.String("err", err.Error()))
		}
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	atomic.StoreInt32(&ready, 0)
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		log.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	if err := mailer.Close(shutdownCtx); err != nil {
		log.Warn("mail_queue_not_drained", slog.String("err", err.Error()))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("tracing_shutdown_failed", slog.String("err", err.Error()))
	}
	if err := announcements.Close(); err != nil {
		log.Warn("cache_close_failed", slog.String("err", err.Error()))
	}
	store.Close()

	log.Info("service_stopped")
}

// openStore подключает хранилище выбранного драйвера.
// Для postgres миграции goose применяются до открытия пула.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if cfg.Storage.Migrate {
			if err := postgres.Migrate(ctx, cfg.Storage.PostgresURL); err != nil {
				return nil, err
			}
		}
		pg, err := postgres.New(ctx, cfg.Storage.PostgresURL, cfg.Storage.TxAttempts)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case config.StorageMongo:
		m, err := mongo.New(ctx, cfg.Storage.MongoURL, cfg.Storage.TxAttempts)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.StorageMemory:
		return memory.New(cfg.Storage.TxAttempts), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openCache(cfg *config.Config) (cache.AnnouncementCache, error) {
	if cfg.Cache.Driver == config.CacheRedis {
		return cache.NewRedisCache(cfg.Cache.RedisURL, cfg.Cache.Prefix)
	}
	return cache.NewMemory(cache.DefaultCleanupInterval), nil
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Mail.Driver == config.MailSMTP {
		return notify.NewSMTP(notify.SMTPConfig{
			Addr:     cfg.Mail.Addr(),
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
			Timeout:  cfg.Mail.Timeout,
		})
	}
	return notify.Log{}
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
