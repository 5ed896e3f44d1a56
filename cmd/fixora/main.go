package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fixora/tracker/internal/app"
	httpadapter "github.com/fixora/tracker/internal/adapter/http"
	"github.com/fixora/tracker/internal/config"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/retention"
)

// Version and build information
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Fixora Tracker\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "fixora-tracker",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger.Info(ctx, "Starting Fixora Tracker", map[string]interface{}{
		"version":      Version,
		"environment":  cfg.Server.Environment,
		"store":        cfg.Store.Driver,
		"object_store": cfg.ObjectStore.Driver,
		"redis":        cfg.Redis.Enabled,
	})

	components, err := app.New(ctx, cfg, nil, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Failed to initialize application", err, nil)
		os.Exit(1)
	}
	defer components.Close()

	scheduler := retention.NewScheduler(components.Purger, appLogger)
	if err := scheduler.Start(ctx); err != nil {
		appLogger.Error(ctx, "Failed to start purge scheduler", err, nil)
		os.Exit(1)
	}
	defer scheduler.Stop()

	server := initHTTPServer(cfg, components, appLogger)

	go func() {
		if err := server.Start(); err != nil {
			appLogger.Error(ctx, "HTTP server failed", err, nil)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		appLogger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Error during server shutdown", err, nil)
	}

	appLogger.Info(shutdownCtx, "Server stopped", nil)
}

// initHTTPServer builds the HTTP server over the wired use cases
func initHTTPServer(cfg *config.Config, components *app.App, log logger.Logger) *httpadapter.Server {
	serverConfig := httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Security.CORSOrigins,
		JWTSecret:    cfg.Security.JWTSecret,
		JWTIssuer:    cfg.Security.JWTIssuer,
	}

	handlers := httpadapter.Handlers{
		Lifecycle: httpadapter.NewLifecycleHandler(components.Lifecycle),
		Trash:     httpadapter.NewTrashHandler(components.Trash, components.Purger),
	}

	return httpadapter.NewServer(serverConfig, handlers, components.Registry, log)
}
