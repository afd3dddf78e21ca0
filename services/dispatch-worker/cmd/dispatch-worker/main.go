package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/botify-mailer/botify/internal/scheduler"
	"github.com/botify-mailer/botify/internal/store"
	"github.com/botify-mailer/botify/pkg/config"
	"github.com/botify-mailer/botify/pkg/db"
	"github.com/botify-mailer/botify/pkg/logx"
	"github.com/botify-mailer/botify/pkg/metrics"
	"github.com/botify-mailer/botify/pkg/rmq"
	"github.com/botify-mailer/botify/services/dispatch-worker/worker"
)

func main() {
	_ = godotenv.Load()

	logx.Init()
	defer logx.Sync()

	config.MustLoadWorker()
	cfg := config.Worker

	sqlDB, err := db.Open(cfg.DBDSN)
	if err != nil {
		logx.L().Fatalw("db_open_error", "error", err)
	}
	defer sqlDB.Close()

	cons, err := rmq.NewConsumer(cfg.RMQURL, cfg.Queue, cfg.Prefetch)
	if err != nil {
		logx.L().Fatalw("rmq_consumer_error", "error", err)
	}
	defer cons.Close()

	pub, err := rmq.NewPublisher(cfg.RMQURL, cfg.Queue)
	if err != nil {
		logx.L().Fatalw("rmq_publisher_error", "error", err)
	}
	defer pub.Close()

	st := store.New(sqlDB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// scheduled campaigns move to the queue from here
	poller := scheduler.New(st, pub, time.Duration(cfg.PollInterval)*time.Second)
	go poller.Run(ctx)

	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metrics.Handler()}
	go func() {
		logx.L().Infow("metrics_listen_start", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.L().Errorw("metrics_server_error", "error", err)
		}
	}()

	w := worker.New(st, cons, cfg)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		logx.L().Fatalw("worker_error", "error", err)
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutCtx)

	logx.L().Infow("dispatch-worker stopped gracefully")
}
