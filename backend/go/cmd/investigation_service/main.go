package main

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/database/kafka"
	"ScamSentinel/backend/go/internal/database/mongo"
	"ScamSentinel/backend/go/internal/database/redis"
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/investigation_service/api"
	"ScamSentinel/backend/go/internal/investigation_service/consumer"
	"ScamSentinel/backend/go/internal/investigation_service/publisher"
	"ScamSentinel/backend/go/internal/investigation_service/service"
	"ScamSentinel/backend/go/internal/investigation_service/store"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "backend/go/internal/config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	serviceLogger := logger.New("InvestigationService", "", "")

	// Connect to MongoDB using the singleton GetClient
	mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MongoDB")
	}
	db := mongoClient.Database(cfg.Databases.MongoDB.Database)

	// Redis 用于进度订阅的读路径。
	rdb, err := redis.GetClient(&cfg.Databases.Redis)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Redis")
	}

	kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Kafka")
	}

	// Create components with logger injection
	taskStore := store.NewMongoTaskStore(db, cfg.Databases.MongoDB.TaskCollection)
	connManager := service.NewConnectionManager()
	taskPublisher := publisher.NewTaskPublisher(kafkaClient.NewWriter(cfg.Databases.Kafka.TaskTopic), serviceLogger)
	svc := service.NewInvestigationService(taskStore, extractor.New(cfg.Investigation), connManager, taskPublisher, serviceLogger)
	resultConsumer := consumer.NewResultConsumer(kafkaClient.NewReader(cfg.Databases.Kafka.ResultTopic), serviceLogger)

	ctx, cancel := context.WithCancel(context.Background())
	resultConsumer.Start(ctx, svc.HandleResult)
	serviceLogger.Info("Kafka result consumer started")

	// Setup HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	healthChecks := map[string]func(context.Context) error{
		"mongodb": mongo.HealthCheck,
		"redis":   redis.HealthCheck,
		"kafka":   kafkaClient.HealthCheck,
	}
	apiHandler := api.NewAPI(svc, rdb, serviceLogger, healthChecks)
	api.RegisterRoutes(router, apiHandler, cfg.Auth.JwtSecret)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		serviceLogger.Info("Starting HTTP server on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("HTTP server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Server forced to shutdown")
	}

	cancel()
	if err := taskPublisher.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka publisher")
	}
	if err := resultConsumer.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka consumer")
	}
	if err := mongo.Close(context.Background()); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error disconnecting from MongoDB")
	}
	if err := redis.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Redis client")
	}

	serviceLogger.Info("Server gracefully stopped")
}
