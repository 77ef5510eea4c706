package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/seatbook/api"
	"github.com/Domenick1991/seatbook/config"
	"github.com/Domenick1991/seatbook/internal/bootstrap"
	"github.com/Domenick1991/seatbook/internal/cache"
	"github.com/Domenick1991/seatbook/internal/kafka"
	"github.com/Domenick1991/seatbook/internal/logger"
	"github.com/Domenick1991/seatbook/internal/repository"
	"github.com/Domenick1991/seatbook/internal/service/booking"
	"github.com/Domenick1991/seatbook/internal/service/flights"
	"github.com/Domenick1991/seatbook/migrations"
	"github.com/gin-gonic/gin"
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

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, pool); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
		log.Info("migrations applied")
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second)
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		log.WithError(err).Warn("kafka is unreachable, booking events will be dropped")
	}

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	txManager := repository.NewTxManager(pool, time.Duration(cfg.Database.LockTimeoutMS)*time.Millisecond)

	flightService := flights.NewFlightService(flightRepo, redisCache, log.WithField("component", "flights"))
	bookingService := booking.NewBookingService(
		txManager,
		bookingRepo,
		flightRepo,
		booking.WithCache(redisCache),
		booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLocking(booking.Locking(cfg.Booking.Locking)),
		booking.WithRetry(cfg.Booking.MaxAttempts, time.Duration(cfg.Booking.RetryBaseMS)*time.Millisecond),
		booking.WithLogger(log.WithField("component", "booking")),
	)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterConfig{
		Bookings:    bookingService,
		Flights:     flightService,
		Log:         log.WithField("component", "http"),
		DocsEnabled: cfg.HTTP.DocsEnabled,
	})

	log.WithFields(logrus.Fields{
		"locking":      cfg.Booking.Locking,
		"max_attempts": cfg.Booking.MaxAttempts,
	}).Info("booking service configured")

	if err := bootstrap.Run(ctx, cfg.HTTP, router, log); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
