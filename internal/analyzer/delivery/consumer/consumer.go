package consumer

import (
	"context"
	"sync"
	"time"

	"golang-stock-analyst/internal/analyzer/config"
	"golang-stock-analyst/internal/analyzer/service"
	"golang-stock-analyst/pkg/common"
	"golang-stock-analyst/pkg/logger"
	redisPkg "golang-stock-analyst/pkg/redis"
	"golang-stock-analyst/pkg/utils"
)

// RedisConsumer manages the consumption of tasks from the Redis streams.
type RedisConsumer struct {
	cfg                   *config.Config
	redisClient           *redisPkg.Client
	executorService       service.ExecutorService
	stockIndicatorService service.StockIndicatorService
	stockReportService    service.StockReportService
	logger                *logger.Logger
	stopChan              chan struct{}
	wg                    sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(
	cfg *config.Config,
	redisClient *redisPkg.Client,
	executorService service.ExecutorService,
	stockIndicatorService service.StockIndicatorService,
	stockReportService service.StockReportService,
	log *logger.Logger,
) *RedisConsumer {
	return &RedisConsumer{
		cfg:                   cfg,
		redisClient:           redisClient,
		executorService:       executorService,
		stockIndicatorService: stockIndicatorService,
		stockReportService:    stockReportService,
		logger:                log,
		stopChan:              make(chan struct{}),
	}
}

// Start begins the consumer's task processing loops.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	c.RegisterStreamHandler(ctx, c.executorService.ProcessTask, common.RedisStreamSchedulerTaskExecution, c.cfg.Analyzer.RedisStreamTaskExecutionTimeout)
	c.RegisterStreamHandler(ctx, c.stockIndicatorService.ProcessTask, common.RedisStreamStockIndicator, c.cfg.Analyzer.RedisStreamStockIndicatorTimeout)
	c.RegisterStreamHandler(ctx, c.stockReportService.ProcessTask, common.RedisStreamStockReport, c.cfg.Analyzer.RedisStreamStockReportTimeout)

	//handle retry
	c.RegisterTickerHandler(ctx, c.stockIndicatorService.ProcessRetries, c.cfg.Analyzer.RedisStreamStockIndicatorRetryInterval, c.cfg.Analyzer.RedisStreamStockIndicatorMaxIdleDuration, common.RedisStreamStockIndicator+"-retry")
	c.RegisterTickerHandler(ctx, c.stockReportService.ProcessRetries, c.cfg.Analyzer.RedisStreamStockReportRetryInterval, c.cfg.Analyzer.RedisStreamStockReportMaxIdleDuration, common.RedisStreamStockReport+"-retry")
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation", logger.Field("stream", streamName))
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping", logger.Field("stream", streamName))
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
