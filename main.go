// File: main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"agendabot/channel/whatsapp"
	"agendabot/config"
	"agendabot/cron"
	"agendabot/database"
	agendaRepoPkg "agendabot/database/repository/agenda"
	registryRepoPkg "agendabot/database/repository/registry"
	reminderRepoPkg "agendabot/database/repository/reminder"
	"agendabot/handlers"
	"agendabot/routes"
	"agendabot/services/agenda"
	"agendabot/services/flow"
	"agendabot/services/notify"
	"agendabot/services/scheduler"
	"agendabot/utils"
)

func main() {
	config.LoadConfig()
	cfg := &config.AppConfig
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Repositories.
	slotRepo := agendaRepoPkg.NewMongoAgendaRepo()
	remindRepo := reminderRepoPkg.NewMongoReminderRepo()
	regRepo := registryRepoPkg.NewMongoRegistryRepo()

	ctx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := slotRepo.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure agenda indexes: %v", err)
	}
	cancelInit()

	// Services.
	waClient := whatsapp.NewClient(cfg)
	agendaService := agenda.NewDefaultAgendaService(slotRepo, utils.GetCacheClient(), cfg)

	sched := scheduler.New(utils.NewClock(cfg.Location()), time.Duration(cfg.SchedulerPollSeconds)*time.Second)
	sched.Start()

	enqueuer := notify.NewAsynqEnqueuer(cfg)
	notifyService, err := notify.NewDefaultNotifyService(
		remindRepo,
		agendaService,
		sched,
		enqueuer,
		waClient,
		utils.GetCacheClient(),
		cfg,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to build notify service: %v", err)
	}

	flowEngine := flow.NewEngine(agendaService, notifyService, regRepo, cfg)

	// Background delivery worker.
	cron.InitDeliveryWorker(cfg, waClient)

	// Boot-time agenda and reminder recovery.
	startupCtx := context.Background()
	if _, err := agendaService.GenerateHorizon(startupCtx); err != nil {
		logger.Sugar().Fatalf("main: failed to generate agenda horizon: %v", err)
	}
	if err := notifyService.RestoreReminders(startupCtx); err != nil {
		logger.Sugar().Errorf("main: failed to restore reminders: %v", err)
	}
	notifyService.ScheduleDailySummary()
	notifyService.CatchUpDailySummary(startupCtx)
	sched.ScheduleDaily(0, 5, "extend-horizon", func(ctx context.Context) error {
		_, err := agendaService.ExtendHorizonByOneDay(ctx)
		return err
	})

	utils.StartHealthMonitor([]*redis.Client{utils.GetCacheClient()}, database.MongoClient)

	// Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	handlerBundle := handlers.NewHandlerBundle(cfg, flowEngine, agendaService, notifyService, waClient)
	routes.RegisterWebhookRoutes(router, handlerBundle)
	routes.RegisterAdminRoutes(router, handlerBundle)
	routes.RegisterHealthRoute(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	sched.Stop()
	if err := enqueuer.Close(); err != nil {
		logger.Sugar().Warnf("main: failed to close delivery queue: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
