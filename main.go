package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"qaebench/internal/api"
	"qaebench/internal/config"
	"qaebench/internal/container"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.Connect(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	handler := api.NewServer(
		appContainer.RegistryStore,
		appConfig.Paths.CurvesFile,
		appContainer.ResultsRepo,
		appContainer.Processing,
		appConfig.Aggregation.Options(),
		appContainer.Logger,
	)
	server := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appContainer.Logger.Warn("Server shutdown: %v", err)
		}
	}()

	appContainer.Logger.Info("Starting qaebench server on port %s (curves: %s, database: %s)",
		appConfig.Server.Port, appConfig.Paths.CurvesFile, appConfig.Database.Driver)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
	appContainer.Logger.Info("Server stopped")
}
