package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/repository/drive"
	"github.com/dvbernardes/pastelbot/internal/repository/ledger"
	"github.com/dvbernardes/pastelbot/internal/repository/mongodb"
	"github.com/dvbernardes/pastelbot/internal/scheduler"
	"github.com/dvbernardes/pastelbot/internal/server/handlers"
	"github.com/dvbernardes/pastelbot/internal/server/router"
	botsvc "github.com/dvbernardes/pastelbot/internal/service/bot"
	closuresvc "github.com/dvbernardes/pastelbot/internal/service/closure"
	commandsvc "github.com/dvbernardes/pastelbot/internal/service/commands"
	inventorysvc "github.com/dvbernardes/pastelbot/internal/service/inventory"
	reportingsvc "github.com/dvbernardes/pastelbot/internal/service/reporting"
	telegramclient "github.com/dvbernardes/pastelbot/pkg/clients/telegram"
	"github.com/dvbernardes/pastelbot/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	driveRepo, err := drive.NewRepository(context.Background(), cfg.Drive, baseLogger.Named("repo.drive"))
	if err != nil {
		baseLogger.Fatal("failed to init drive repository", zap.Error(err))
	}

	store := ledger.NewStore(driveRepo, cfg.Drive, cfg.Business.UnitCost, baseLogger.Named("repo.ledger"))

	var archive mongodb.Archiver
	if cfg.MongoDB.URI != "" {
		closureArchive, err := mongodb.NewClosureArchive(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb archive", zap.Error(err))
		}
		defer func() {
			if err := closureArchive.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive = closureArchive
		baseLogger.Info("closure archive enabled")
	} else {
		baseLogger.Warn("MONGODB_URI missing, closure archive disabled")
	}

	inventoryService := inventorysvc.NewService(store, cfg.Business, baseLogger.Named("svc.inventory"))
	reportingService := reportingsvc.NewService(store, cfg.Business, baseLogger.Named("svc.reporting"))
	closureService := closuresvc.NewService(store, reportingService, archive, cfg.Business, baseLogger.Named("svc.closure"))
	dispatcher := commandsvc.NewService(inventoryService, reportingService, closureService, store, cfg.Business, cfg.Drive, baseLogger.Named("svc.commands"))

	tgClient := telegramclient.NewClient(cfg.Telegram)
	messagingService := botsvc.NewService(cfg.Telegram, tgClient, dispatcher, baseLogger.Named("svc.bot"))
	webhookHandler := handlers.NewWebhookHandler(messagingService, baseLogger.Named("handlers.telegram"))
	engine := router.New(webhookHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg, reportingService, messagingService, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
