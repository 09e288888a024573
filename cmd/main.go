package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/config"
	"github.com/gracechurch/church-backend/database"
	"github.com/gracechurch/church-backend/internal/auditlog"
	"github.com/gracechurch/church-backend/internal/auth"
	"github.com/gracechurch/church-backend/internal/notification"
	"github.com/gracechurch/church-backend/internal/push"
	"github.com/gracechurch/church-backend/internal/realtime"
	"github.com/gracechurch/church-backend/internal/reports"
	"github.com/gracechurch/church-backend/routes"
	"github.com/gracechurch/church-backend/utils"
)

const shutdownTimeout = 15 * time.Second

// @title Church Notification API
// @version 1.0
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := utils.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, notification.Models(), auditlog.Models(), auth.Models()); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}
	logger.Info("database migrations completed")

	// Optional infrastructure: each missing piece disables one feature.
	rdb, err := utils.InitRedis(ctx, cfg)
	if err != nil {
		logger.Warn("redis unavailable, relay and shared rate limits disabled", zap.Error(err))
	} else if rdb == nil {
		logger.Warn("REDIS_ADDR not set, relay and shared rate limits disabled")
	}

	fcmClient, err := utils.InitFirebase(ctx, cfg, logger)
	switch {
	case errors.Is(err, utils.ErrFirebaseDisabled):
		logger.Warn("firebase not configured, FCM delivery disabled")
	case err != nil:
		logger.Warn("firebase initialization failed, FCM delivery disabled", zap.Error(err))
	}

	if !cfg.PushConfigured() {
		logger.Warn("VAPID keys not set, web push disabled; run cmd/vapidkeys to create a pair")
	}

	// ========== Services ==========
	auditSvc := auditlog.NewService(auditlog.NewRepository(db), logger)
	authRepo := auth.NewRepository(db)
	store := notification.NewStore(notification.NewRepository(db), logger)

	hub := realtime.NewHub(store, realtime.Options{
		HeartbeatInterval: cfg.SSEHeartbeatInterval,
		PollInterval:      cfg.SSEPollInterval,
		MaxAge:            cfg.SSEMaxAge,
	}, logger)

	var relay *realtime.Relay
	if rdb != nil {
		relay = realtime.NewRelay(rdb, hub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("relay stopped", zap.Error(err))
			}
		}()
	}
	broadcaster := realtime.NewBroadcaster(hub, relay, logger)

	pushOpts := []push.Option{}
	if fcmClient != nil {
		pushOpts = append(pushOpts, push.WithFCM(fcmClient))
	}
	pushSvc := push.NewService(push.Config{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		VAPIDSubject:    cfg.VAPIDSubject,
		Location:        cfg.Location(),
	}, store.Repository(), authRepo, logger, pushOpts...)

	dispatcher := notification.NewDispatcher(32, 30*time.Second, logger)
	notifier := notification.NewNotifier(store, broadcaster, pushSvc, dispatcher, logger)

	authSvc := auth.NewService(authRepo, notifier, auditSvc, logger)
	reportSvc := reports.NewService(reports.NewRepository(db), reports.NewReportExporter(), auditSvc, cfg.Location(), logger)

	retention := notification.NewRetentionJob(store, cfg.NotificationRetentionDays, 24*time.Hour, logger)
	retention.Start(ctx)

	var consumer *notification.Consumer
	if reader := utils.NewKafkaReader(cfg); reader != nil {
		consumer = notification.NewConsumer(reader, notifier, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("kafka consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("KAFKA_BROKERS not set, notification ingest disabled")
	}

	// ========== HTTP ==========
	router := routes.NewRouter(cfg, logger)
	routes.Setup(router, cfg, routes.Deps{
		Logger:   logger,
		Redis:    rdb,
		Auth:     authSvc,
		Audit:    auditSvc,
		Store:    store,
		Notifier: notifier,
		Push:     pushSvc,
		Hub:      hub,
		Reports:  reportSvc,
	})

	// no WriteTimeout: live streams stay open for up to SSE_MAX_AGE
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// live streams never finish on their own, so end them as shutdown begins
	srv.RegisterOnShutdown(hub.CloseAll)

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	retention.Stop()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Warn("kafka reader close", zap.Error(err))
		}
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("background notification tasks did not finish", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("redis close", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("shutdown complete")
}
