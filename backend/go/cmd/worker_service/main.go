package main

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/database/kafka"
	"ScamSentinel/backend/go/internal/database/minio"
	"ScamSentinel/backend/go/internal/database/mongo"
	"ScamSentinel/backend/go/internal/database/redis"
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/investigation_service/publisher"
	"ScamSentinel/backend/go/internal/investigation_service/store"
	"ScamSentinel/backend/go/internal/llm"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/orchestrator"
	"ScamSentinel/backend/go/internal/progress"
	"ScamSentinel/backend/go/internal/reasoner"
	"ScamSentinel/backend/go/internal/registry"
	"ScamSentinel/backend/go/internal/tools"
	"ScamSentinel/backend/go/internal/worker_service/archiver"
	"ScamSentinel/backend/go/internal/worker_service/consumer"
	"ScamSentinel/backend/go/internal/worker_service/runner"
	httpclient "ScamSentinel/backend/go/pkg/http"
	"ScamSentinel/backend/go/pkg/logger"
	"ScamSentinel/backend/go/pkg/ratelimiter"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "backend/go/internal/config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	inv := cfg.Investigation

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	serviceLogger := logger.New("WorkerService", "", "")

	// 基础设施客户端（均为单例）。
	mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MongoDB")
	}
	db := mongoClient.Database(cfg.Databases.MongoDB.Database)

	rdb, err := redis.GetClient(&cfg.Databases.Redis)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Redis")
	}

	kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Kafka")
	}

	minioClient, err := minio.GetClient(&cfg.Databases.MinIO)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MinIO")
	}

	// 工具适配器栈。
	resultCache := tools.NewResultCache(rdb, serviceLogger)
	registryStore := registry.NewMongoStore(db, cfg.Databases.MongoDB.RegistryCollection)

	outbound, err := httpclient.NewClient(inv.CircuitBreaker, 10*time.Second)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to build outbound HTTP client")
	}

	toolset := []tools.Tool{
		tools.NewRegistryLookup(registryStore, secs(inv.AdapterTimeouts.RegistryLookup)),
		tools.NewPhoneValidator(),
		tools.NewDomainReputation(
			tools.NewHTTPReputationSource(outbound, inv.AdapterEndpoints.DomainReputation),
			resultCache, secs(inv.CacheTTLs.DomainRep), secs(inv.AdapterTimeouts.DomainReputation)),
		tools.NewWebSearch(
			tools.NewHTTPSearchClient(outbound, inv.AdapterEndpoints.WebSearch),
			resultCache, ratelimiter.NewTokenBucket(2, 10), inv.TrustedSourceDomains,
			secs(inv.CacheTTLs.WebSearch), secs(inv.AdapterTimeouts.WebSearch)),
		tools.NewCompanyVerifier(
			tools.NewHTTPCompanyRegistryClient(outbound, inv.AdapterEndpoints.CompanyRegistry),
			resultCache, inv.KnownCompanies,
			secs(inv.CacheTTLs.CompanyVerifier), secs(inv.AdapterTimeouts.CompanyVerifier)),
	}

	// 推理器：模型路径可选，兜底评分常驻。
	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create LLM client")
	}
	verdictReasoner := reasoner.New(llmClient, inv, serviceLogger)

	progressPublisher := progress.NewRedisPublisher(rdb, serviceLogger)
	orch := orchestrator.New(
		extractor.New(inv), toolset, verdictReasoner, progressPublisher,
		inv.ConcurrencyLimit, inv.WebSearchCallBudget, serviceLogger)

	taskStore := store.NewMongoTaskStore(db, cfg.Databases.MongoDB.TaskCollection)
	resultPublisher := publisher.NewTaskPublisher(kafkaClient.NewWriter(cfg.Databases.Kafka.ResultTopic), serviceLogger)
	taskPublisher := publisher.NewTaskPublisher(kafkaClient.NewWriter(cfg.Databases.Kafka.TaskTopic), serviceLogger)
	reportArchiver := archiver.NewReportArchiver(minioClient, cfg.Databases.MinIO.Bucket, serviceLogger)

	taskRunner := runner.New(runner.Config{
		Store:           taskStore,
		Orchestrator:    orch,
		Progress:        progressPublisher,
		ResultPublisher: resultPublisher,
		TaskPublisher:   taskPublisher,
		Registry:        registryStore,
		Archiver:        reportArchiver,
		DeadlineSeconds: inv.TaskDeadlineSeconds,
		HeartbeatSecs:   inv.HeartbeatSeconds,
		MaxAttempts:     inv.MaxAttempts,
		Logger:          serviceLogger,
	})

	taskConsumer := consumer.NewTaskConsumer(kafkaClient.NewReader(cfg.Databases.Kafka.TaskTopic), serviceLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go taskConsumer.Start(ctx, taskRunner.Handle)
	serviceLogger.Info("Worker started, consuming investigation tasks")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down worker...")

	cancel()
	if err := taskConsumer.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka consumer")
	}
	if err := resultPublisher.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing result publisher")
	}
	if err := taskPublisher.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing task publisher")
	}
	if llmClient != nil {
		_ = llmClient.Close()
	}
	if err := mongo.Close(context.Background()); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error disconnecting from MongoDB")
	}
	if err := redis.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Redis client")
	}

	serviceLogger.Info("Worker gracefully stopped")
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
