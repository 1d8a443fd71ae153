// Package main runs the check-in HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-events/checkin/config"
	"github.com/aura-events/checkin/internal/auth"
	"github.com/aura-events/checkin/internal/checkin"
	"github.com/aura-events/checkin/internal/metrics"
	"github.com/aura-events/checkin/internal/notifications"
	"github.com/aura-events/checkin/internal/realtime"
	"github.com/aura-events/checkin/internal/registrations"
	"github.com/aura-events/checkin/internal/server"
	"github.com/aura-events/checkin/internal/store/memory"
	"github.com/aura-events/checkin/internal/tickets"
	"github.com/aura-events/checkin/internal/worker"
	"github.com/aura-events/checkin/pkg/database"
	"github.com/aura-events/checkin/pkg/queue"
)

type ticketStore interface {
	tickets.Store
	checkin.TicketLookup
}

type registrationStore interface {
	registrations.Store
	checkin.RegistrationLookup
}

type notificationStore interface {
	worker.LogStore
	notifications.Lister
}

type stores struct {
	tickets       ticketStore
	registrations registrationStore
	ledger        checkin.Ledger
	notifications notificationStore
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	var st stores
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		mem := memory.New()
		st = stores{
			tickets:       mem.Tickets(),
			registrations: mem.Registrations(),
			ledger:        mem,
			notifications: notifications.NewInMemory(),
		}
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		pool, err := database.Open(ctx, cfg.Database.DSN(), database.PoolOptions{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
			Migrate:  true,
		}, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		st = stores{
			tickets:       tickets.NewRepository(pool),
			registrations: registrations.NewRepository(pool),
			ledger:        checkin.NewRepository(pool),
			notifications: notifications.NewRepository(pool),
		}
	}

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()

	var hub *realtime.Hub
	var notifier registrations.Notifier
	if cfg.Redis.Enabled() {
		opts, _ := cfg.Redis.Options()
		rdb, err := queue.Connect(ctx, opts)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		pubsub := realtime.NewRedisPubSub(rdb, logger)
		hub = realtime.NewHub(logger, pubsub)
		if err := hub.Listen(feedCtx, pubsub); err != nil {
			logger.Fatal("live feed subscribe", zap.Error(err))
		}
		notifier = queue.NewQueue(rdb, logger)
	} else {
		hub = realtime.NewHub(logger, nil)
		notifier = worker.NewNotificationProcessor(st.notifications, worker.LogSender{Logger: logger}, nil, logger)
		logger.Info("redis not configured; live feed is local and notifications are handled inline")
	}

	var gatherer prometheus.Gatherer
	var recorder checkin.Recorder
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.New(reg)
		gatherer = reg
	}

	idSyntax := checkin.UUIDSyntax
	if cfg.CheckIn.IDSyntax == "token" {
		idSyntax = checkin.TokenSyntax
	}
	resolver := checkin.NewResolver(st.tickets, st.registrations,
		checkin.WithIDSyntax(idSyntax),
		checkin.WithFuzzyMinLength(cfg.CheckIn.FuzzyMinLength),
	)
	processor := checkin.NewProcessor(st.ledger, nil)
	checkinSvc := checkin.NewService(resolver, processor, st.ledger, recorder, hub, logger)

	router := server.NewRouter(server.Deps{
		Logger:        logger,
		JWT:           auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours),
		CORSOrigins:   cfg.Server.CORSAllowedOrigins,
		CheckIn:       checkin.NewHandler(checkinSvc),
		Registrations: registrations.NewHandler(st.registrations, notifier, logger),
		Tickets:       tickets.NewHandler(st.tickets, logger),
		Notifications: notifications.NewHandler(st.notifications),
		Hub:           hub,
		Metrics:       gatherer,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stopFeed()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
