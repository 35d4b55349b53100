package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang-stock-analyst/internal/analyzer/config"
	"golang-stock-analyst/internal/analyzer/delivery/consumer"
	"golang-stock-analyst/internal/analyzer/repository"
	"golang-stock-analyst/internal/analyzer/service"
	"golang-stock-analyst/internal/analyzer/strategy"
	"golang-stock-analyst/pkg/common"
	"golang-stock-analyst/pkg/logger"
	"golang-stock-analyst/pkg/postgres"
	"golang-stock-analyst/pkg/redis"
	"golang-stock-analyst/pkg/telegram"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the analysis service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Analysis Service", zap.String("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Create the consumer groups if they don't exist.
	// MKSTREAM creates the stream if it doesn't exist.
	consumerStreams := []string{
		common.RedisStreamSchedulerTaskExecution,
		common.RedisStreamStockIndicator,
		common.RedisStreamStockReport,
	}
	for _, stream := range consumerStreams {
		if err := redisClient.XGroupCreateMkStream(context.Background(), stream, common.RedisStreamGroup, "0").Err(); err != nil {
			if err.Error() != "BUSYGROUP Consumer Group name already exists" {
				appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err), logger.StringField("stream", stream))
			}
		}
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db.DB)
	historyRepo := repository.NewTaskExecutionHistoryRepository(db.DB)
	stocksRepo := repository.NewStocksRepository(db.DB)
	stockNewsRepo := repository.NewStockNewsRepository(db.DB)
	snapshotRepo := repository.NewStockIndicatorSnapshotRepository(db.DB)
	reportRepo := repository.NewStockReportRepository(db.DB)
	quoteRepo := repository.NewQuoteRepository(appLogger)
	yahooFinanceRepo, err := repository.NewYahooFinanceRepository(cfg, appLogger, redisClient)
	if err != nil {
		appLogger.Fatal("Failed to initialize Yahoo Finance repository", zap.Error(err))
	}

	telegramNotifier, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
	}

	// Initialize Strategies
	strategies := []strategy.JobExecutionStrategy{
		strategy.NewStockIndicatorStrategy(appLogger, redisClient, stocksRepo),
		strategy.NewStockReportStrategy(appLogger, redisClient, stocksRepo),
		strategy.NewStockNewsScraperStrategy(
			cfg,
			appLogger,
			stockNewsRepo,
			stocksRepo,
		),
		strategy.NewStockPriceAlertStrategy(
			appLogger,
			quoteRepo,
			snapshotRepo,
			stocksRepo,
			telegramNotifier,
			redisClient,
		),
	}

	// Initialize services
	executorSvc := service.NewExecutorService(redisClient, jobRepo, historyRepo, appLogger, strategies)
	stockIndicatorSvc := service.NewStockIndicatorService(cfg, appLogger, redisClient, yahooFinanceRepo, snapshotRepo, telegramNotifier)
	stockReportSvc := service.NewStockReportService(cfg, appLogger, redisClient, yahooFinanceRepo, stockNewsRepo, reportRepo, telegramNotifier)

	// Initialize and start the Redis consumer
	redisConsumer := consumer.NewRedisConsumer(cfg, redisClient, executorSvc, stockIndicatorSvc, stockReportSvc, appLogger)
	redisConsumer.Start(ctx)

	appLogger.Info("Analysis service started. Waiting for tasks...")

	// Wait for interrupt signal to gracefully shut down the service
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down analysis service...")
	cancel()
	redisConsumer.Stop()
	appLogger.Info("Analysis service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "analysis-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-analyzer.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing analysis-service CLI: %s\n", err)
		os.Exit(1)
	}
}
