package main

import (
	"afasia/therapist-portal/internal/api"
	"afasia/therapist-portal/internal/config"
	"afasia/therapist-portal/internal/generator"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository/mongo"
	"afasia/therapist-portal/internal/service"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Therapist Portal API
// @version 1.0
// @description API for therapists managing VNEST and SR exercises and their patients' exercise queues.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting therapist portal server...", "address", cfg.Server.Address, "database", cfg.Database.Name)

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT secret is not configured (set JWT_SECRET)")
	}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatal("Could not connect to MongoDB", "error", err)
	}
	defer func() {
		log.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error("Failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info("Database connection established.")

	// --- Ensure Indexes ---
	go func() { // Index creation runs in the background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureIndexes(ctx, appDB, log)
		log.Info("Index creation process completed.")
	}()

	// --- Initialize Repositories ---
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB, log)
	patientRepo := mongo.NewMongoPatientRepository(appDB, log)
	therapistRepo := mongo.NewMongoTherapistRepository(appDB)

	// --- Initialize Services ---
	generatorClient := generator.NewClient(cfg.Generator.GenerateURL, cfg.Generator.PersonalizeURL, cfg.Generator.Timeout)

	visibility := service.NewVisibilityResolver(exerciseRepo, patientRepo, log)
	services := api.Services{
		Auth:       service.NewAuthService(therapistRepo, cfg.JWT.Secret, cfg.JWT.Expiration),
		Exercises:  service.NewExerciseService(exerciseRepo, patientRepo, visibility, generatorClient, log),
		Visibility: visibility,
		Patients:   service.NewPatientService(patientRepo, therapistRepo, log),
		Assignment: service.NewAssignmentService(exerciseRepo, patientRepo, log),
	}

	// --- Initialize Gin Engine ---
	if cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(log))

	api.SetupRoutes(router, cfg.JWT.Secret, services, log)

	// --- Start HTTP Server ---
	// No WriteTimeout: the SSE endpoints hold responses open. Their contexts derive from
	// baseCtx, which is cancelled as soon as shutdown starts.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	go func() {
		log.Info("Server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe error", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exiting.")
}
