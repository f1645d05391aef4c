package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/booking"
	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/lock"
	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.WithError(err).Warn("invalid log settings, using defaults")
	}
	log := logger.L()

	db, err := database.Open(context.Background(), database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(db.DB); err != nil {
			log.WithError(err).Fatal("apply migrations")
		}
	}

	rdb, err := config.NewRedisClient(context.Background(), config.LoadRedisConfig())
	if err != nil {
		log.WithError(err).Warn("redis unavailable, falling back to in-process locks")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	clk := clock.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis serialises bookings across instances; a single instance can make
	// do with in-process locks.
	var locker booking.Locker = lock.NewLocal()
	if rdb != nil {
		locker = lock.NewRedis(rdb, cfg.LockTTL)
	}
	opts := []booking.Option{booking.WithClock(clk), booking.WithLocker(locker)}

	var wg sync.WaitGroup
	var publisher *service.QueuePublisher
	if cfg.AMQPURL != "" {
		publisher = service.NewQueuePublisher(cfg.AMQPURL, cfg.AMQPExchange, clk)
		opts = append(opts, booking.WithNotifier(publisher))

		consumer, err := queue.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AuditLogPath)
		if err != nil {
			log.WithError(err).Error("audit consumer disabled")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer consumer.Close()
				consumer.Run(ctx)
			}()
		}
	} else {
		log.Warn("AMQP_URL not set, booking events are not published")
	}

	engine := booking.NewEngine(repository.NewBookingStore(db), opts...)

	scheduler := service.NewScheduler(engine, cfg.ExpireInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	users := repository.NewUserRepo(db)
	cacheCfg := config.LoadCacheConfig()
	e := router.New(router.Handlers{
		Auth:           handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db, clk)),
		Users:          handler.NewUserHandler(users, cfg.BcryptCost),
		Events:         handler.NewEventHandler(repository.NewEventRepo(db), clk),
		Bookings:       handler.NewBookingHandler(engine, users),
		Advertisements: handler.NewAdvertisementHandler(repository.NewAdvertisementRepo(db, clk)),
		Logo:           handler.NewLogoHandler(repository.NewLogoRepo(db, clk)),
	}, router.Options{
		JWTSecret:  cfg.JWTSecret,
		Cache:      middleware.NewRedisCache(cacheCfg, rdb),
		Invalidate: middleware.CacheInvalidator(cacheCfg, rdb),
		RateLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	wg.Wait()
	if publisher != nil {
		_ = publisher.Close()
	}
}
