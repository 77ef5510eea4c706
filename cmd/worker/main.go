package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Domenick1991/seatbook/config"
	"github.com/Domenick1991/seatbook/internal/email"
	"github.com/Domenick1991/seatbook/internal/kafka"
	"github.com/Domenick1991/seatbook/internal/logger"
	"github.com/Domenick1991/seatbook/internal/notification"
	"github.com/Domenick1991/seatbook/internal/repository"
	"github.com/Domenick1991/seatbook/internal/service/flights"
	"github.com/Domenick1991/seatbook/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	flightService := flights.NewFlightService(repository.NewFlightRepository(pool), nil, log.WithField("component", "audit"))
	sender := email.NewSender(log.WithField("component", "email"))
	telegram, err := notification.NewTelegramNotifier(cfg.Telegram, log.WithField("component", "telegram"))
	if err != nil {
		log.Fatalf("init telegram: %v", err)
	}
	w := worker.New(flightService, time.Duration(cfg.Worker.AuditIntervalMinutes)*time.Minute, log, sender, telegram)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := consumer.Consume(ctx, w.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("consumer stopped")
		}
	}()
	go func() {
		defer wg.Done()
		w.RunAudit(ctx)
	}()

	log.WithField("topic", cfg.Kafka.NotificationsTopic).Info("worker started")
	<-ctx.Done()
	log.Info("shutting down worker")
	wg.Wait()
}
