package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reedfrost/internal/api"
	"reedfrost/internal/config"
	"reedfrost/internal/container"
	"reedfrost/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create dependency injection container
	appContainer, err := container.Build(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	service := appContainer.EpidemicService

	// JSON API
	gin.SetMode(appConfig.Server.GinMode)
	handler := api.NewEpidemicHandler(service, appConfig.Model.DefaultP, appConfig.Server.RequestTimeout)
	apiServer := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: api.NewRouter(handler),
	}

	// HTML report UI
	uiApp, err := ui.NewApp(service, ui.Config{
		DefaultP:  appConfig.Model.DefaultP,
		Profiling: appConfig.Profiling.Enabled,
	}, appContainer.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize UI: %v", err)
	}
	uiServer := &http.Server{
		Addr:    ":" + appConfig.Server.UIPort,
		Handler: uiApp.Handler(),
	}

	errCh := make(chan error, 2)
	go func() {
		log.Printf("🚀 Starting reedfrost API on port %s (generator %s)", appConfig.Server.Port, service.Algorithm())
		errCh <- apiServer.ListenAndServe()
	}()
	go func() {
		log.Printf("🚀 Starting reedfrost UI on port %s", appConfig.Server.UIPort)
		if appConfig.Profiling.Enabled {
			log.Printf("💡 View profiles: go tool pprof -http=:8081 http://localhost:%s/debug/pprof/profile?seconds=30", appConfig.Server.UIPort)
		}
		errCh <- uiServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Printf("❌ server failed: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = uiServer.Shutdown(shutdownCtx)
}
