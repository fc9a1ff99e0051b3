package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-reconciliation-backend/internal/clients/guestregistry"
	"rental-reconciliation-backend/internal/config"
	"rental-reconciliation-backend/internal/database"
	handler "rental-reconciliation-backend/internal/handlers"
	"rental-reconciliation-backend/internal/middleware"
	"rental-reconciliation-backend/internal/routes"
	"rental-reconciliation-backend/internal/scheduler"
	"rental-reconciliation-backend/internal/services/importer"
	service "rental-reconciliation-backend/internal/services/reconciliation"
	"rental-reconciliation-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New(logger.Config{})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	reconService := service.NewReconciliationService(db, log, cfg.Reconcile.DateWindowDays)

	if cfg.Reconcile.RulesFile != "" {
		rules, err := service.LoadRuleFile(cfg.Reconcile.RulesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("load rules file")
		}
		if _, err := reconService.SeedRules(context.Background(), rules); err != nil {
			log.Fatal().Err(err).Msg("seed rules")
		}
	}

	var sched *scheduler.Scheduler
	if cfg.Reconcile.AutoSchedule != "" {
		sched = scheduler.New(log)
		job := scheduler.NewAutoReconcileJob(reconService, 0, log)
		if err := sched.AddJob(cfg.Reconcile.AutoSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Reconcile.AutoSchedule).Msg("register auto reconcile")
		}
		sched.Start()
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	reconHandler := handler.NewReconciliationHandler(
		reconService,
		importer.NewBatchImporter(db, log),
		guestregistry.NewClient(cfg.Registry.URL, cfg.Registry.Timeout, log),
		cfg.Server.MaxUploadBytes,
		log,
	)
	routes.RegisterRoutes(r, reconHandler)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
