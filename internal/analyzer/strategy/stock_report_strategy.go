package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-stock-analyst/internal/analyzer/dto"
	"golang-stock-analyst/internal/analyzer/repository"
	"golang-stock-analyst/internal/entity"
	"golang-stock-analyst/pkg/common"
	"golang-stock-analyst/pkg/logger"
	"golang-stock-analyst/pkg/redis"

	goRedis "github.com/redis/go-redis/v9"
)

const defaultReportRange = "1y"

// StockReportStrategy fans a report generation job out into one stream
// message per stock.
type StockReportStrategy struct {
	logger      *logger.Logger
	redisClient *redis.Client
	stockRepo   repository.StocksRepository
}

type StockReportPayload struct {
	Range      string   `json:"range"`
	SkipStocks []string `json:"skip_stocks"`
}

// NewStockReportStrategy creates a new StockReportStrategy.
func NewStockReportStrategy(log *logger.Logger, redisClient *redis.Client, stockRepo repository.StocksRepository) JobExecutionStrategy {
	return &StockReportStrategy{logger: log, redisClient: redisClient, stockRepo: stockRepo}
}

// GetType returns the job type this strategy handles.
func (s *StockReportStrategy) GetType() entity.JobType {
	return entity.JobTypeStockReport
}

// Execute enqueues one report generation task per stock in the universe.
func (s *StockReportStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	var payload StockReportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if payload.Range == "" {
		payload.Range = defaultReportRange
	}

	stocks, err := s.stockRepo.GetStocks(ctx)
	if err != nil {
		s.logger.Error("Failed to get stocks", logger.ErrorField(err))
		return "", fmt.Errorf("failed to get stocks: %w", err)
	}

	skipStocks := make(map[string]bool)
	for _, stock := range payload.SkipStocks {
		skipStocks[stock] = true
	}

	isSuccess := false

	var results []dto.ExecutorSummaryResult
	for _, stock := range stocks {
		if skipStocks[stock.Code] {
			s.logger.Info("Skipping stock", logger.Field("stock_code", stock.Code))
			continue
		}

		streamData := &dto.StreamDataStockReport{
			StockCode: stock.Code,
			Range:     payload.Range,
		}

		streamDataJSON, err := json.Marshal(streamData)
		if err != nil {
			s.logger.Error("Failed to marshal stock report payload", logger.ErrorField(err))
			results = append(results, dto.ExecutorSummaryResult{StockCode: stock.Code, Error: err.Error()})
			continue
		}

		if err := s.redisClient.XAdd(ctx, &goRedis.XAddArgs{
			Stream: common.RedisStreamStockReport,
			Values: map[string]interface{}{"payload": streamDataJSON},
		}).Err(); err != nil {
			s.logger.Error("Failed to enqueue stock report task", logger.ErrorField(err), logger.Field("stock_code", stock.Code))
			results = append(results, dto.ExecutorSummaryResult{StockCode: stock.Code, Error: err.Error()})
			continue
		}
		isSuccess = true
		results = append(results, dto.ExecutorSummaryResult{StockCode: stock.Code, IsSuccess: true})
	}

	resultJSON, err := json.Marshal(results)
	if err != nil {
		s.logger.Error("Failed to marshal results", logger.ErrorField(err))
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	if isSuccess {
		return string(resultJSON), nil
	}

	return "", fmt.Errorf("failed to enqueue stock report tasks")
}
