package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"replyloop/config"
	"replyloop/middleware"
	"replyloop/routes"
	"replyloop/utils"
	"replyloop/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.WithError(err).Warn("sentry initialization failed")
		}
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	app := fiber.New()
	app.Use(middleware.CORS())

	// Core engine wiring
	threads := utils.NewThreadStore(config.DB, logger)
	gateway := utils.NewSendGateway(config.DB, logger)
	classifier := utils.NewKeywordClassifier(config.DB, logger)
	responder := worker.NewAutoResponder(config.DB, logger, classifier, gateway, threads)

	watcher := worker.NewMailboxWatcher(config.DB, logger, threads, responder, config.AppConfig.MailboxPollInterval)
	scheduler := worker.NewFollowUpScheduler(config.DB, logger, gateway, threads, config.AppConfig.FollowUpTickInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	scheduler.Start(ctx)

	routes.SetupRoutes(app, config.DB, logger, watcher, scheduler)

	// Shut down workers cleanly on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		scheduler.Stop()
		watcher.Stop()
		_ = app.Shutdown()
	}()

	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
