package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medibook/scheduling-service/internal/api"
	"github.com/medibook/scheduling-service/internal/config"
	"github.com/medibook/scheduling-service/internal/logger"
	"github.com/medibook/scheduling-service/internal/notify"
	"github.com/medibook/scheduling-service/internal/postgres"
	"github.com/medibook/scheduling-service/internal/prescription"
	redisclient "github.com/medibook/scheduling-service/internal/redis"
	"github.com/medibook/scheduling-service/internal/scheduling"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("timezone", cfg.Timezone.String()),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := postgres.Connect(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	var locker scheduling.DoctorLocker
	routerCfg := api.RouterConfig{}
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			zlog.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				zlog.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewDoctorLocker(rdb, cfg.LockTTL, cfg.LockAcquire)
		routerCfg.Redis = rdb
		zlog.Info("connected to Redis, using distributed doctor locks")
	} else {
		locker = scheduling.NewLocalLocker(cfg.LockAcquire)
		zlog.Info("no Redis configured, using in-process doctor locks")
	}

	var sink scheduling.NotificationSink = scheduling.NopSink{}
	if cfg.AMQPURL != "" {
		amqpSink, err := notify.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange, zlog)
		if err != nil {
			zlog.Fatal("amqp connection error", zap.Error(err))
		}
		defer func() {
			if err := amqpSink.Close(); err != nil {
				zlog.Warn("error closing amqp", zap.Error(err))
			}
		}()
		sink = amqpSink
		zlog.Info("connected to AMQP", zap.String("exchange", cfg.AMQPExchange))
	}

	store := scheduling.NewPgStore(pgPool)
	directory := scheduling.NewPgDirectory(pgPool)
	scheduler := scheduling.NewService(store, directory, locker, sink, cfg)
	prescriptions := prescription.NewService(prescription.NewPgRepository(pgPool), store)

	routerCfg.Scheduler = scheduler
	routerCfg.Prescriptions = prescriptions
	routerCfg.Directory = directory
	routerCfg.PgPool = pgPool
	routerCfg.Log = zlog
	routerCfg.Timezone = cfg.Timezone
	routerCfg.Env = cfg.Env
	routerCfg.Version = version
	routerCfg.RateLimit = cfg.RateLimit

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zlog.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http shutdown error", zap.Error(err))
	}
}
