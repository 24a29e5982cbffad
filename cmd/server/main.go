package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "school-resources-backend/internal/api/http"
	"school-resources-backend/internal/config"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository/postgres"
	"school-resources-backend/internal/security"
	"school-resources-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting School Resources Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Loans configuration", "timezone", cfg.Loans.Timezone, "allow_borrower_return", cfg.Loans.AllowBorrowerReturn)

	// Initialize Database
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := postgres.Open(ctx, cfg.Database)
	cancel()
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Initialize Services
	emailSvc := service.NewEmailService(cfg.Email)
	sync := service.NewResourceStatusSynchronizer(store.ResourceRepository)
	recorder := service.NewIncidentRecorder(store.IncidentRepository, time.Now)
	reconciler := service.NewReconciler(store.LoanRepository, sync, cfg.Location())

	authSvc := service.NewAuthService(store.UserRepository, tokenManager)
	userSvc := service.NewUserService(store.UserRepository)
	resourceSvc := service.NewResourceService(store.ResourceRepository, store.IncidentRepository)
	loanSvc := service.NewLoanService(
		store.LoanRepository,
		store.UserRepository,
		store.ResourceRepository,
		sync,
		recorder,
		reconciler,
		emailSvc,
		time.Now,
		service.LoanOptions{
			Location:            cfg.Location(),
			AllowBorrowerReturn: cfg.Loans.AllowBorrowerReturn,
			DefaultPageSize:     cfg.Loans.DefaultPageSize,
		},
	)

	// Initialize HTTP handlers
	router := httpapi.NewRouter(httpapi.Handlers{
		Auth:     httpapi.NewAuthHandler(authSvc),
		User:     httpapi.NewUserHandler(userSvc),
		Resource: httpapi.NewResourceHandler(resourceSvc),
		Loan:     httpapi.NewLoanHandler(loanSvc, time.Now, cfg.Location()),
	}, httpapi.NewAuthMiddleware(tokenManager))

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to serve HTTP", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped. Goodbye!")
}
