package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibook/scheduling-service/internal/config"
	"github.com/medibook/scheduling-service/internal/logger"
	"github.com/medibook/scheduling-service/internal/notify"
	"github.com/medibook/scheduling-service/internal/postgres"
	"github.com/medibook/scheduling-service/internal/scheduling"
)

// The reminder worker is the external notification collaborator: it scans
// for confirmed appointments starting within the reminder window and
// publishes best-effort reminder events. It never touches appointment state.
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

	zlog.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("window", cfg.ReminderWindow),
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
	locker := scheduling.NewLocalLocker(cfg.LockAcquire)
	svc := scheduling.NewService(store, directory, locker, sink, cfg)

	// Reminders already dispatched this process lifetime. Best-effort: the
	// set resets on restart, so a reminder may repeat after a redeploy.
	sent := make(map[uuid.UUID]bool)

	runOnce(rootCtx, svc, cfg.ReminderWindow, sent, zlog)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			zlog.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderWindow, sent, zlog)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, window time.Duration, sent map[uuid.UUID]bool, zlog *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	count, err := svc.RemindUpcoming(runCtx, window, sent)
	if err != nil {
		zlog.Error("reminder run error", zap.Error(err))
		return
	}
	zlog.Info("reminder run complete",
		zap.Int("dispatched", count),
		zap.Duration("duration", time.Since(start)),
	)
}
