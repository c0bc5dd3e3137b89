package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/controllers"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/implementation/devices"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/middleware"
	container "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Container"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	config := ctr.GetConfig()
	logger.WithField("driver", config.Database.Driver).Info("Starting Devices API")

	// Initialize the device store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ctr.InitializeStore(ctx); err != nil {
		logger.FatalWithError(err, "Failed to initialize device store")
	}

	deviceRepo, err := ctr.GetDeviceRepository()
	if err != nil {
		logger.FatalWithError(err, "Failed to get device store")
	}

	healthChecker, err := ctr.GetHealthChecker()
	if err != nil {
		logger.FatalWithError(err, "Failed to create health checker")
	}

	publisher, err := ctr.GetEventPublisher(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to create event publisher")
	}

	deviceService := devices.NewDeviceService(deviceRepo, publisher, logger)

	// Devices may report their own state over MQTT
	if ctr.StartStateListener(context.Background(), deviceService) != nil {
		logger.WithField("topic", config.Events.StateTopic).Info("State report listener started")
	}

	// Initialize Gin router
	gin.SetMode(config.Server.GinMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		ExposeHeaders:    config.CORS.ExposedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// Create controllers and register routes
	deviceController := controllers.NewDeviceController(deviceService, logger)
	healthController := controllers.NewHealthController(healthChecker, logger)

	deviceController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)

	port := config.Server.Port

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("Devices API running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
